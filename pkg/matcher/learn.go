package matcher

import (
	"strings"

	"github.com/orsinium-labs/stopwords"

	"github.com/kittclouds/pulse/internal/store"
)

// contextWords mark positions in captured text where a project reference
// tends to follow ("notes for acme", "thoughts about the rebrand").
var contextWords = map[string]bool{
	"for":       true,
	"about":     true,
	"regarding": true,
}

// customStopWords supplements the English stopword list with capture
// vocabulary that never identifies a project.
var customStopWords = map[string]bool{
	"note": true, "notes": true, "idea": true, "ideas": true,
	"todo": true, "task": true, "meeting": true, "call": true,
}

// stopwordChecker is the robust English stopword list from the stopwords
// library; customStopWords layers on top of it.
var stopwordChecker = stopwords.MustGet("en")

// minLearnedTokenLength filters out short tokens during alias learning.
const minLearnedTokenLength = 3

// windowSimilarityThreshold gates two-word windows on their Levenshtein
// similarity to the project name.
const windowSimilarityThreshold = 0.6

// contextProximity is how many tokens past a context word still count as
// "near" it.
const contextProximity = 2

// LearnAliases extracts new alias candidates from text the user confirmed
// belongs to project. It returns candidates not already known; callers
// persist them via the store, which appends without ever shrinking.
func LearnAliases(text string, project *store.Project) []string {
	words := strings.Fields(Normalize(text))
	if len(words) == 0 {
		return nil
	}

	known := make(map[string]bool, len(project.Aliases)+1)
	known[Normalize(project.Name)] = true
	for _, a := range project.Aliases {
		known[Normalize(a)] = true
	}

	var learned []string
	seen := make(map[string]bool)
	add := func(candidate string) {
		if candidate == "" || known[candidate] || seen[candidate] {
			return
		}
		seen[candidate] = true
		learned = append(learned, candidate)
	}

	// Single tokens near a context word.
	for i, w := range words {
		if !contextWords[w] {
			continue
		}
		for j := i + 1; j <= i+contextProximity && j < len(words); j++ {
			tok := words[j]
			if len(tok) < minLearnedTokenLength {
				continue
			}
			if isStopWord(tok) {
				continue
			}
			add(tok)
		}
	}

	// Adjacent two-word windows that look like the project name.
	projectName := Normalize(project.Name)
	for i := 0; i+1 < len(words); i++ {
		window := words[i] + " " + words[i+1]
		if Similarity(window, projectName) > windowSimilarityThreshold {
			add(window)
		}
	}

	return learned
}

// SeedAliases derives the initial alias set for a new project from its
// name: the normalized name itself plus an initialism for multiword names.
func SeedAliases(name string) []string {
	normalized := Normalize(name)
	if normalized == "" {
		return nil
	}

	aliases := []string{normalized}

	tokens := strings.Fields(normalized)
	if len(tokens) >= 2 {
		var initials strings.Builder
		for _, tok := range tokens {
			initials.WriteByte(tok[0])
		}
		if initials.Len() >= 2 && initials.Len() <= 5 {
			aliases = append(aliases, initials.String())
		}
	}

	return aliases
}

func isStopWord(w string) bool {
	if customStopWords[w] {
		return true
	}
	return stopwordChecker != nil && stopwordChecker.Contains(w)
}
