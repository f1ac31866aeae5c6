package matcher

// Fuzzy scoring constants. Empirically chosen upstream; preserved exactly
// because downstream property tests pin these numbers.
const (
	fuzzyRecallWeight      = 0.6
	fuzzySignificantWeight = 0.15
	fuzzyScoreThreshold    = 0.3
	fuzzyConfidenceBase    = 0.4
	fuzzyConfidenceScale   = 0.5
	fuzzyConfidenceCap     = 0.75

	significantWordLength = 4
)

// matchFuzzy is Layer 2: word-set overlap between the input and each
// project's name plus aliases. recall rewards covering the project's
// vocabulary; significant words (length >= 4) add a flat bonus each.
func (m *Matcher) matchFuzzy(text string) *Match {
	inputWords := tokenize(text)
	if len(inputWords) == 0 {
		return nil
	}

	best := -1
	bestScore := 0.0
	for pi, p := range m.projects {
		projectWords := tokenize(p.Name)
		for _, a := range p.Aliases {
			for w := range tokenize(a) {
				projectWords[w] = true
			}
		}
		if len(projectWords) == 0 {
			continue
		}

		overlap := 0
		significant := 0
		for w := range projectWords {
			if inputWords[w] {
				overlap++
				if len(w) >= significantWordLength {
					significant++
				}
			}
		}

		recall := float64(overlap) / float64(len(projectWords))
		score := recall*fuzzyRecallWeight + float64(significant)*fuzzySignificantWeight
		if score > fuzzyScoreThreshold && score > bestScore {
			best = pi
			bestScore = score
		}
	}

	if best < 0 {
		return nil
	}

	confidence := fuzzyConfidenceBase + bestScore*fuzzyConfidenceScale
	if confidence > fuzzyConfidenceCap {
		confidence = fuzzyConfidenceCap
	}
	return &Match{Project: m.projects[best], Confidence: confidence, MatchType: MatchFuzzy}
}
