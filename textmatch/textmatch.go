// Package textmatch provides the string-similarity primitives used to map
// free-text subject names onto catalog entries.
package textmatch

import (
	"strings"
)

// Normalize prepares a subject name for comparison: trims, collapses internal
// whitespace runs and upper-cases. Exact matches are decided on normalized
// forms, so "  computer   networks " and "Computer Networks" are equal.
func Normalize(s string) string {
	return strings.ToUpper(strings.Join(strings.Fields(s), " "))
}

// Distance returns the Levenshtein edit distance between two strings.
func Distance(s1, s2 string) int {
	if len(s1) == 0 {
		return len(s2)
	}
	if len(s2) == 0 {
		return len(s1)
	}

	// Two-row rolling matrix.
	prev := make([]int, len(s2)+1)
	curr := make([]int, len(s2)+1)
	for j := 0; j <= len(s2); j++ {
		prev[j] = j
	}

	for i := 1; i <= len(s1); i++ {
		curr[0] = i
		for j := 1; j <= len(s2); j++ {
			cost := 1
			if s1[i-1] == s2[j-1] {
				cost = 0
			}
			curr[j] = minInt(prev[j]+1, minInt(curr[j-1]+1, prev[j-1]+cost))
		}
		prev, curr = curr, prev
	}
	return prev[len(s2)]
}

// Ratio returns a normalized Levenshtein similarity in [0,1]: 1 for identical
// strings, 0 when every character differs.
func Ratio(s1, s2 string) float64 {
	maxLen := maxInt(len(s1), len(s2))
	if maxLen == 0 {
		return 1.0
	}
	return 1.0 - float64(Distance(s1, s2))/float64(maxLen)
}

// DiceCoefficient returns the Sørensen–Dice bigram similarity in [0,1].
// Insensitive to word order, which suits names like "Systems, Operating"
// versus "Operating Systems".
func DiceCoefficient(s1, s2 string) float64 {
	if s1 == s2 {
		return 1.0
	}
	if len(s1) < 2 || len(s2) < 2 {
		return 0.0
	}

	bigrams1 := bigrams(s1)
	bigrams2 := bigrams(s2)

	intersection := 0
	for b := range bigrams1 {
		if bigrams2[b] {
			intersection++
		}
	}
	return 2.0 * float64(intersection) / float64(len(bigrams1)+len(bigrams2))
}

// Similarity is the resolver's metric: the higher of the Levenshtein ratio and
// the Dice coefficient over normalized inputs. Levenshtein rewards near-exact
// spellings, Dice rewards shared tokens regardless of position.
func Similarity(s1, s2 string) float64 {
	a, b := Normalize(s1), Normalize(s2)
	r := Ratio(a, b)
	if d := DiceCoefficient(a, b); d > r {
		return d
	}
	return r
}

func bigrams(s string) map[string]bool {
	out := make(map[string]bool, len(s))
	for i := 0; i < len(s)-1; i++ {
		out[s[i:i+2]] = true
	}
	return out
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
