package report

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/plagcheck/core"
	"github.com/trezcool/plagcheck/core/grouping"
	"github.com/trezcool/plagcheck/core/similarity"
)

type fakeRenderer struct {
	docErr   error
	chartErr error
	docs     map[string]Document
	charts   map[string]Chart
}

func newFakeRenderer() *fakeRenderer {
	return &fakeRenderer{docs: make(map[string]Document), charts: make(map[string]Chart)}
}

func (r *fakeRenderer) RenderDocument(_ context.Context, doc Document, path string) error {
	if r.docErr != nil {
		return r.docErr
	}
	r.docs[path] = doc
	return nil
}

func (r *fakeRenderer) RenderChart(_ context.Context, chart Chart, path string) error {
	if r.chartErr != nil {
		return r.chartErr
	}
	r.charts[path] = chart
	return nil
}

func testInput() Input {
	return Input{
		AssignmentID: 7,
		Names:        []string{"alice", "bob", "carol"},
		Texts: []string{
			"the cat sat on the mat",
			"the cat sat on a hat",
			"",
		},
		Groups: []grouping.Group{
			{Members: []int{0, 1}, Similarity: 61.234, SharedWords: []string{"cat", "on", "sat", "the"}},
		},
		Scores: []PairScore{
			{I: 0, J: 1, Score: similarity.Score{Cosine: 70, Jaccard: 57.14, Levenshtein: 80}},
		},
		Threshold: 10,
	}
}

func TestBuildDocument(t *testing.T) {
	doc := BuildDocument(testInput(), DefaultTextLimit)

	assert.Equal(t, "Plagiarism Detection Report - Assignment 7", doc.Title)
	assert.Equal(t, "Summary of Plagiarism Findings (3 Submissions)", doc.Summary)
	assert.Equal(t, "Detected 1 groups of potential plagiarism:", doc.Findings)
	assert.Equal(t, "Highlighted text indicates matching words", doc.Legend)
	require.Len(t, doc.Sections, 1)

	sec := doc.Sections[0]
	assert.Equal(t, "Group 1 (Similarity: 61.23%):", sec.Heading)
	assert.Equal(t, "Students: alice, bob", sec.Students)
	assert.Equal(t, "Common Words: cat, on, sat, the", sec.CommonWords)
	require.Len(t, sec.Boxes, 2)
	assert.Equal(t, "bob", sec.Boxes[1].Title)
	assert.Equal(t, []Span{
		{"the", true}, {"cat", true}, {"sat", true}, {"on", true}, {"a", false}, {"hat", false},
	}, sec.Boxes[1].Spans)
}

func TestBuildDocument_NoGroups(t *testing.T) {
	in := testInput()
	in.Groups = nil
	in.Threshold = 12.5
	doc := BuildDocument(in, DefaultTextLimit)
	assert.Equal(t, "No significant plagiarism detected (similarity < 12.5%).", doc.Findings)
	assert.Empty(t, doc.Sections)
}

func TestBuildDocument_Truncates(t *testing.T) {
	in := testInput()
	in.Texts[0] = strings.Repeat("lorem ", 100)
	doc := BuildDocument(in, 20)

	var words []string
	for _, s := range doc.Sections[0].Boxes[0].Spans {
		words = append(words, s.Text)
	}
	assert.Equal(t, "lorem lorem lorem...", strings.Join(words, " "))
}

func TestBuildChart(t *testing.T) {
	in := testInput()
	in.Scores = append(in.Scores, PairScore{I: 0, J: 2, Score: similarity.Score{Cosine: 1, Jaccard: 2, Levenshtein: 3}})
	chart := BuildChart(in)

	assert.Equal(t, "Plagiarism Similarity Scores for Assignment 7", chart.Title)
	assert.Equal(t, "Student Pairs", chart.XLabel)
	assert.Equal(t, "Similarity (%)", chart.YLabel)
	assert.Equal(t, [3]string{"Cosine", "Jaccard", "Levenshtein"}, chart.Series)
	assert.Equal(t, []string{"alice & bob", "alice & carol"}, chart.Labels)
	assert.Equal(t, [][3]float64{{70, 57.14, 80}, {1, 2, 3}}, chart.Values)
}

func TestBuilder_Build(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "results")
	r := newFakeRenderer()
	b := NewBuilder(r, dir, 0, core.NopLogger{})

	arts, err := b.Build(context.Background(), testInput())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "plagiarism_report_7.pdf"), arts.ReportPath)
	assert.Equal(t, filepath.Join(dir, "plagiarism_graph_7.png"), arts.ChartPath)
	assert.Contains(t, r.docs, arts.ReportPath)
	assert.Contains(t, r.charts, arts.ChartPath)

	fi, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, fi.IsDir())
}

func TestBuilder_BuildErrors(t *testing.T) {
	dir := t.TempDir()

	r := newFakeRenderer()
	r.docErr = errors.New("no fonts")
	_, err := NewBuilder(r, dir, 0, core.NopLogger{}).Build(context.Background(), testInput())
	assert.EqualError(t, err, "rendering report: no fonts")

	r = newFakeRenderer()
	r.chartErr = errors.New("disk full")
	arts, err := NewBuilder(r, dir, 0, core.NopLogger{}).Build(context.Background(), testInput())
	assert.EqualError(t, err, "rendering chart: disk full")
	assert.Equal(t, Artifacts{}, arts)
}

func TestHighlight(t *testing.T) {
	shared := map[string]bool{"fox": true, "lazy": true}
	tests := []struct {
		name string
		text string
		want []Span
	}{
		{name: "empty", text: "", want: []Span{}},
		{
			name: "exact words",
			text: "the  fox\tand the lazy dog",
			want: []Span{
				{Text: "the"}, {Text: "fox", Highlighted: true}, {Text: "and"},
				{Text: "the"}, {Text: "lazy", Highlighted: true}, {Text: "dog"},
			},
		},
		{
			name: "case and punctuation must match",
			text: "Fox fox, lazy",
			want: []Span{{Text: "Fox"}, {Text: "fox,"}, {Text: "lazy", Highlighted: true}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Highlight(tt.text, shared))
		})
	}
}
