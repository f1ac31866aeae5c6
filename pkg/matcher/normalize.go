package matcher

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Normalize prepares text for matching: lowercase, possessives and
// apostrophes stripped, diacritics folded, whitespace collapsed.
// The same function is used for patterns and for input text so both sides
// always agree.
func Normalize(s string) string {
	s = strings.ToLower(s)

	// Curly apostrophes become straight before possessive stripping.
	s = strings.ReplaceAll(s, "’", "'")
	s = strings.ReplaceAll(s, "‘", "'")
	s = strings.ReplaceAll(s, "'s ", " ")
	s = strings.TrimSuffix(s, "'s")
	s = strings.ReplaceAll(s, "'", "")

	s = foldDiacritics(s)
	return strings.Join(strings.Fields(s), " ")
}

// foldDiacritics decomposes to NFD, removes combining marks, and
// recomposes. "café" becomes "cafe".
func foldDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return folded
}

// tokenize splits normalized text into a word set.
func tokenize(s string) map[string]bool {
	words := strings.Fields(Normalize(s))
	set := make(map[string]bool, len(words))
	for _, w := range words {
		set[w] = true
	}
	return set
}
