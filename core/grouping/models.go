package grouping

// DefaultThreshold is the aggregate similarity (in %) from which a pair qualifies.
const DefaultThreshold = 10.0

type MergeMode string

const (
	// MergeSinglePass grows each group with one scan over the qualifying pairs. Groups may overlap.
	MergeSinglePass MergeMode = "single-pass"
	// MergeUnionFind computes the full transitive closure. Groups never overlap.
	MergeUnionFind MergeMode = "union-find"
)

// Pair is a scored pair of documents, identified by their indices, with I < J.
type Pair struct {
	I           int
	J           int
	Similarity  float64
	SharedWords []string
}

// Group is a set of documents suspected of plagiarism.
type Group struct {
	Members     []int    `json:"members"` // sorted, len >= 2
	Similarity  float64  `json:"similarity"`
	SharedWords []string `json:"sharedWords"`
}

func (g Group) Contains(idx int) bool {
	for _, m := range g.Members {
		if m == idx {
			return true
		}
	}
	return false
}

type Options struct {
	Threshold float64
	Mode      MergeMode
}

func (o Options) withDefaults() Options {
	if o.Mode == "" {
		o.Mode = MergeSinglePass
	}
	return o
}

// DefaultOptions returns the threshold of 10% with the single-pass merge.
func DefaultOptions() Options {
	return Options{Threshold: DefaultThreshold, Mode: MergeSinglePass}
}

func ParseMergeMode(s string) (MergeMode, bool) {
	switch MergeMode(s) {
	case "", MergeSinglePass:
		return MergeSinglePass, true
	case MergeUnionFind:
		return MergeUnionFind, true
	}
	return "", false
}
