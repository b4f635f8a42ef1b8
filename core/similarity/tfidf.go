package similarity

import (
	"math"
	"regexp"
	"strings"
)

// a token is a run of at least 2 letters, digits or underscores
var tokenRegex = regexp.MustCompile(`[\p{L}\p{N}_]{2,}`)

func tokenize(s string) []string {
	return tokenRegex.FindAllString(strings.ToLower(s), -1)
}

// termCounts returns the occurrences of each token of s.
func termCounts(s string) map[string]float64 {
	counts := make(map[string]float64)
	for _, tok := range tokenize(s) {
		counts[tok]++
	}
	return counts
}

// cosineTFIDF fits a smoothed tf-idf model on exactly the two given documents and returns the cosine similarity of
// their l2-normalized vectors, in [0, 1]. It returns 0 when the shared vocabulary is empty.
func cosineTFIDF(a, b string) float64 {
	ca, cb := termCounts(a), termCounts(b)
	if len(ca) == 0 && len(cb) == 0 {
		return 0
	}

	const n = 2.0
	idf := func(term string) float64 {
		df := 0.0
		if ca[term] > 0 {
			df++
		}
		if cb[term] > 0 {
			df++
		}
		return math.Log((1+n)/(1+df)) + 1
	}

	weights := func(counts map[string]float64) map[string]float64 {
		w := make(map[string]float64, len(counts))
		var norm float64
		for term, tf := range counts {
			v := tf * idf(term)
			w[term] = v
			norm += v * v
		}
		if norm == 0 {
			return w
		}
		norm = math.Sqrt(norm)
		for term := range w {
			w[term] /= norm
		}
		return w
	}

	wa, wb := weights(ca), weights(cb)
	var dot float64
	for term, va := range wa {
		dot += va * wb[term]
	}
	return math.Min(dot, 1)
}
