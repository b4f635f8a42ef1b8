package similarity

import "math"

// Score holds the three similarity metrics of a pair of texts, each a percentage in [0, 100] rounded to 2 decimals.
type Score struct {
	Cosine      float64 `json:"cosine"`
	Jaccard     float64 `json:"jaccard"`
	Levenshtein float64 `json:"levenshtein"`
}

// Average is the aggregate similarity: the arithmetic mean of the three metrics.
func (s Score) Average() float64 {
	return (s.Cosine + s.Jaccard + s.Levenshtein) / 3
}

func (s Score) IsZero() bool {
	return s == Score{}
}

// Round2 rounds x to 2 decimals, halves away from zero.
func Round2(x float64) float64 {
	return math.Round(x*100) / 100
}
