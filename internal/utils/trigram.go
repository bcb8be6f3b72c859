package utils

import (
	"strings"
	"unicode"
)

// SimilarityThreshold matches pg_trgm's default similarity_threshold.
const SimilarityThreshold = 0.3

// TrigramSet is the set of trigrams of a string as PostgreSQL's pg_trgm
// extracts them: lowercased alphanumeric words, each padded with two leading
// blanks and one trailing blank.
type TrigramSet map[string]struct{}

func Trigrams(s string) TrigramSet {
	set := make(TrigramSet)

	words := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	for _, word := range words {
		padded := []rune("  " + word + " ")
		for i := 0; i+3 <= len(padded); i++ {
			set[string(padded[i:i+3])] = struct{}{}
		}
	}

	return set
}

// Similarity is the Jaccard index of the two sets, the same figure pg_trgm's
// similarity() returns.
func (t TrigramSet) Similarity(other TrigramSet) float64 {
	if len(t) == 0 || len(other) == 0 {
		return 0
	}

	small, large := t, other
	if len(small) > len(large) {
		small, large = large, small
	}

	shared := 0
	for tri := range small {
		if _, ok := large[tri]; ok {
			shared++
		}
	}

	return float64(shared) / float64(len(t)+len(other)-shared)
}

func Similarity(a, b string) float64 {
	return Trigrams(a).Similarity(Trigrams(b))
}
