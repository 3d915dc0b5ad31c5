package domain

import "strings"

// DefaultSimilarityThreshold is the minimum similarity for a free-text answer
// to be accepted. Policy constant, tunable via config.
const DefaultSimilarityThreshold = 0.75

// Matcher accepts typed answers within an edit-distance-derived similarity
// threshold of the expected answer.
type Matcher struct {
	Threshold float64
}

// NewMatcher builds a Matcher; a non-positive threshold falls back to the default.
func NewMatcher(threshold float64) Matcher {
	if threshold <= 0 {
		threshold = DefaultSimilarityThreshold
	}
	return Matcher{Threshold: threshold}
}

// IsMatch reports whether typed is close enough to expected.
// Both strings are lowercased and trimmed first; an exact match after
// normalization short-circuits the distance computation.
func (m Matcher) IsMatch(typed, expected string) bool {
	a := []rune(strings.ToLower(strings.TrimSpace(typed)))
	b := []rune(strings.ToLower(strings.TrimSpace(expected)))
	if len(a) == 0 && len(b) == 0 {
		return true
	}
	if string(a) == string(b) {
		return true
	}
	longest := len(a)
	if len(b) > longest {
		longest = len(b)
	}
	similarity := 1 - float64(editDistance(a, b))/float64(longest)
	return similarity >= m.Threshold
}

// editDistance computes edit distance with unit costs over the full
// (len(a)+1) x (len(b)+1) table. Adjacent transpositions count as one edit
// so a single swapped pair ("Farnce") still clears the 0.75 bar.
func editDistance(a, b []rune) int {
	table := make([][]int, len(a)+1)
	for i := range table {
		table[i] = make([]int, len(b)+1)
		table[i][0] = i
	}
	for j := 0; j <= len(b); j++ {
		table[0][j] = j
	}

	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			deletion := table[i-1][j] + 1
			insertion := table[i][j-1] + 1
			substitution := table[i-1][j-1] + cost

			min := deletion
			if insertion < min {
				min = insertion
			}
			if substitution < min {
				min = substitution
			}
			if i > 1 && j > 1 && a[i-1] == b[j-2] && a[i-2] == b[j-1] {
				if transposition := table[i-2][j-2] + 1; transposition < min {
					min = transposition
				}
			}
			table[i][j] = min
		}
	}
	return table[len(a)][len(b)]
}
