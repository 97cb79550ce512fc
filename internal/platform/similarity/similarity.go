// Package similarity scores how alike two strings are on a 0..1 scale.
package similarity

import (
	"strings"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
)

// Containment scores used when the shorter string occurs inside the longer
// one. Term search and confidence scoring reward containment differently.
const (
	SearchContainmentScore     = 0.8
	ConfidenceContainmentScore = 0.85
)

// Score returns 1 - editDistance/len(longer), or containment when the shorter
// string is a substring of the longer. Lengths are measured in runes.
// Identical strings score 1; two empty strings score 1.
func Score(a, b string, containment float64) float64 {
	if a == b {
		return 1
	}
	longer, shorter := a, b
	if utf8.RuneCountInString(b) > utf8.RuneCountInString(a) {
		longer, shorter = b, a
	}
	n := utf8.RuneCountInString(longer)
	if n == 0 {
		return 1
	}
	if shorter != "" && strings.Contains(longer, shorter) {
		return containment
	}
	s := 1 - float64(levenshtein.ComputeDistance(longer, shorter))/float64(n)
	return Clamp(s, 0, 1)
}

// Clamp bounds v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
