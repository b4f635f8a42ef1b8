// Package similarity scores how alike two texts are.
package similarity

import (
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
)

// Compute scores the pair (a, b) by cosine (tf-idf), Jaccard (word sets) and Levenshtein (edit distance).
// If either text is empty after trimming, every metric is 0.
func Compute(a, b string) Score {
	a, b = strings.TrimSpace(a), strings.TrimSpace(b)
	if a == "" || b == "" {
		return Score{}
	}
	return Score{
		Cosine:      Round2(cosineTFIDF(a, b) * 100),
		Jaccard:     Round2(jaccard(a, b) * 100),
		Levenshtein: Round2(levenshteinSimilarity(a, b) * 100),
	}
}

// jaccard is |A ∩ B| / |A ∪ B| over the case-sensitive whitespace word sets of a and b.
func jaccard(a, b string) float64 {
	wa, wb := wordSet(a), wordSet(b)
	union := len(wa)
	var inter int
	for w := range wb {
		if _, ok := wa[w]; ok {
			inter++
		} else {
			union++
		}
	}
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

func levenshteinSimilarity(a, b string) float64 {
	maxLen := utf8.RuneCountInString(a)
	if l := utf8.RuneCountInString(b); l > maxLen {
		maxLen = l
	}
	if maxLen == 0 {
		return 1
	}
	dist := levenshtein.ComputeDistance(a, b)
	return 1 - float64(dist)/float64(maxLen)
}

// SharedWords returns the sorted intersection of the whitespace word sets of a and b.
func SharedWords(a, b string) []string {
	wa, wb := wordSet(a), wordSet(b)
	shared := make([]string, 0)
	for w := range wa {
		if _, ok := wb[w]; ok {
			shared = append(shared, w)
		}
	}
	sort.Strings(shared)
	return shared
}

func wordSet(s string) map[string]struct{} {
	words := strings.Fields(s)
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}
