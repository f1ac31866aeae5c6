// Package matcher resolves free text to a project through three ordered
// layers: alias containment, fuzzy word overlap, and an optional AI
// fallback. Matches carry a confidence score comparable across layers.
package matcher

import (
	"context"
	"errors"
	"strings"

	"github.com/coregx/ahocorasick"

	"github.com/kittclouds/pulse/internal/store"
	"github.com/kittclouds/pulse/pkg/aibrief"
)

// MatchType records which layer produced a match.
type MatchType string

const (
	MatchAlias MatchType = "alias"
	MatchFuzzy MatchType = "fuzzy"
	MatchAI    MatchType = "ai"
)

// Per-layer confidence values. Pinned for compatibility.
const (
	aliasConfidence       = 0.95
	aiExactConfidence     = 0.7
	aiSubstringConfidence = 0.65
)

// Match is a resolved project with its confidence and originating layer.
type Match struct {
	Project    *store.Project
	Confidence float64
	MatchType  MatchType
}

// ProjectResolver is the external AI layer. It receives candidate project
// names plus the text and returns a bare project name, or "" for none.
type ProjectResolver interface {
	ResolveProject(ctx context.Context, text string, names []string) (string, error)
}

// Matcher matches text against a fixed set of projects. Build one per
// project snapshot; it is immutable and safe for concurrent readers.
type Matcher struct {
	projects []*store.Project

	// Aho-Corasick automaton over every normalized alias, so one scan of
	// the input finds all alias hits at once.
	ac              *ahocorasick.Automaton
	patterns        []string
	patternProjects [][]int // pattern index -> owning project indexes
}

// New compiles a matcher over the given projects. Each project's patterns
// are its normalized name plus all of its aliases.
func New(projects []*store.Project) (*Matcher, error) {
	m := &Matcher{projects: projects}
	patternIndex := make(map[string]int)

	for pi, p := range projects {
		surfaces := append([]string{p.Name}, p.Aliases...)
		for _, surface := range surfaces {
			key := Normalize(surface)
			if key == "" {
				continue
			}
			idx, exists := patternIndex[key]
			if !exists {
				idx = len(m.patterns)
				patternIndex[key] = idx
				m.patterns = append(m.patterns, key)
				m.patternProjects = append(m.patternProjects, nil)
			}
			m.patternProjects[idx] = appendUniqueInt(m.patternProjects[idx], pi)
		}
	}

	if len(m.patterns) > 0 {
		ac, err := ahocorasick.NewBuilder().
			AddStrings(m.patterns).
			SetMatchKind(ahocorasick.LeftmostLongest).
			SetPrefilter(true).
			Build()
		if err != nil {
			return nil, err
		}
		m.ac = ac
	}

	return m, nil
}

// FindMatch runs the local layers in order: alias containment first, then
// fuzzy word overlap. A nil result is not an error; it routes the item to
// the default bucket.
func (m *Matcher) FindMatch(text string) *Match {
	if match := m.matchAlias(text); match != nil {
		return match
	}
	return m.matchFuzzy(text)
}

// ResolveWithAI runs all three layers. The AI layer is only consulted when
// the local layers find nothing. A missing or unconfigured resolver
// degrades to local-only matching rather than failing.
func (m *Matcher) ResolveWithAI(ctx context.Context, text string, resolver ProjectResolver) (*Match, error) {
	if match := m.FindMatch(text); match != nil {
		return match, nil
	}
	if resolver == nil {
		return nil, nil
	}

	names := make([]string, len(m.projects))
	for i, p := range m.projects {
		names[i] = p.Name
	}

	name, err := resolver.ResolveProject(ctx, text, names)
	if err != nil {
		if errors.Is(err, aibrief.ErrNoCredential) {
			return nil, nil
		}
		return nil, err
	}
	if name == "" {
		return nil, nil
	}

	// Exact case-insensitive name match is worth more than a substring hit.
	lower := strings.ToLower(strings.TrimSpace(name))
	for _, p := range m.projects {
		if strings.ToLower(p.Name) == lower {
			return &Match{Project: p, Confidence: aiExactConfidence, MatchType: MatchAI}, nil
		}
	}
	for _, p := range m.projects {
		pn := strings.ToLower(p.Name)
		if strings.Contains(pn, lower) || strings.Contains(lower, pn) {
			return &Match{Project: p, Confidence: aiSubstringConfidence, MatchType: MatchAI}, nil
		}
	}
	return nil, nil
}

// matchAlias is Layer 1: scan the normalized text for alias occurrences
// and pick the project whose matching alias is longest. Ties go to the
// project seen first.
func (m *Matcher) matchAlias(text string) *Match {
	if m.ac == nil {
		return nil
	}

	haystack := []byte(Normalize(text))
	matches := m.ac.FindAllOverlapping(haystack)

	best := -1
	bestLen := 0
	for _, hit := range matches {
		length := len(m.patterns[hit.PatternID])
		for _, pi := range m.patternProjects[hit.PatternID] {
			if length > bestLen || (length == bestLen && best >= 0 && pi < best) {
				best = pi
				bestLen = length
			}
		}
	}
	if best < 0 {
		return nil
	}
	return &Match{Project: m.projects[best], Confidence: aliasConfidence, MatchType: MatchAlias}
}

func appendUniqueInt(slice []int, v int) []int {
	for _, s := range slice {
		if s == v {
			return slice
		}
	}
	return append(slice, v)
}
