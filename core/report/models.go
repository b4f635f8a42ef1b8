package report

import (
	"github.com/trezcool/plagcheck/core/grouping"
	"github.com/trezcool/plagcheck/core/similarity"
)

const DefaultTextLimit = 200

var SeriesNames = [3]string{"Cosine", "Jaccard", "Levenshtein"}

type (
	// PairScore is the score of documents I and J.
	PairScore struct {
		I     int              `json:"i"`
		J     int              `json:"j"`
		Score similarity.Score `json:"score"`
	}

	// Input describes one plagiarism check run. Names and Texts are indexed by document.
	Input struct {
		AssignmentID int
		Names        []string
		Texts        []string
		Groups       []grouping.Group
		// every scored pair, not only the qualifying ones
		Scores    []PairScore
		Threshold float64
	}

	Artifacts struct {
		ReportPath string `json:"reportPath,omitempty"`
		ChartPath  string `json:"chartPath,omitempty"`
	}
)

type (
	Span struct {
		Text        string
		Highlighted bool
	}

	// Box is one member's excerpt.
	Box struct {
		Title string
		Spans []Span
	}

	Section struct {
		Heading     string
		Students    string
		CommonWords string
		Boxes       []Box
	}

	Document struct {
		Title    string
		Summary  string
		Findings string
		Sections []Section
		Legend   string
	}

	Chart struct {
		Title  string
		XLabel string
		YLabel string
		Series [3]string
		Labels []string
		Values [][3]float64
	}
)
