package render

import (
	"context"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/plagcheck/core"
	"github.com/trezcool/plagcheck/core/grouping"
	"github.com/trezcool/plagcheck/core/report"
	"github.com/trezcool/plagcheck/core/similarity"
)

func newRenderer(t *testing.T) *Renderer {
	t.Helper()
	r, err := New("", core.NopLogger{})
	require.NoError(t, err)
	return r
}

func sampleInput() report.Input {
	return report.Input{
		AssignmentID: 7,
		Names:        []string{"Ada", "Bob", "Cy"},
		Texts: []string{
			"the quick brown fox jumps over the lazy dog",
			"the quick brown fox leaps over a lazy dog",
			strings.Repeat("completely unrelated wording ", 40),
		},
		Groups: []grouping.Group{{
			Members:     []int{0, 1},
			Similarity:  62.5,
			SharedWords: []string{"brown", "dog", "fox", "lazy", "over", "quick", "the"},
		}},
		Scores: []report.PairScore{
			{I: 0, J: 1, Score: similarity.Score{Cosine: 70.1, Jaccard: 55, Levenshtein: 62.4}},
			{I: 0, J: 2, Score: similarity.Score{Cosine: 0, Jaccard: 2.5, Levenshtein: 12}},
			{I: 1, J: 2, Score: similarity.Score{Cosine: 0, Jaccard: 2.5, Levenshtein: 11.8}},
		},
		Threshold: 10,
	}
}

func TestRenderer_Build(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "results")
	b := report.NewBuilder(newRenderer(t), dir, 200, core.NopLogger{})

	arts, err := b.Build(context.Background(), sampleInput())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "plagiarism_report_7.pdf"), arts.ReportPath)
	assert.Equal(t, filepath.Join(dir, "plagiarism_graph_7.png"), arts.ChartPath)

	raw, err := os.ReadFile(arts.ReportPath)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(raw), "%PDF-"))

	f, err := os.Open(arts.ChartPath)
	require.NoError(t, err)
	defer f.Close()
	img, err := png.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, chartWidth, img.Bounds().Dx())
	assert.Equal(t, chartHeight, img.Bounds().Dy())
}

func TestRenderer_NoGroups(t *testing.T) {
	r := newRenderer(t)
	dir := t.TempDir()
	in := sampleInput()
	in.Groups = nil
	in.Scores = nil

	ctx := context.Background()
	require.NoError(t, r.RenderDocument(ctx, report.BuildDocument(in, 200), filepath.Join(dir, "r.pdf")))
	require.NoError(t, r.RenderChart(ctx, report.BuildChart(in), filepath.Join(dir, "g.png")))
	assert.FileExists(t, filepath.Join(dir, "r.pdf"))
	assert.FileExists(t, filepath.Join(dir, "g.png"))
}

func TestRenderer_CancelledContext(t *testing.T) {
	r := newRenderer(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	path := filepath.Join(t.TempDir(), "r.pdf")
	assert.ErrorIs(t, r.RenderDocument(ctx, report.Document{}, path), context.Canceled)
	assert.NoFileExists(t, path)
}

func TestWrapSpans(t *testing.T) {
	measure := func(s report.Span) float64 { return float64(len(s.Text) + 1) }
	spans := report.Highlight("aa bbb c dddddddddddd e", map[string]bool{"c": true})

	lines := wrapSpans(spans, 8, measure)
	require.Len(t, lines, 4)
	assert.Equal(t, []report.Span{{Text: "aa"}, {Text: "bbb"}}, lines[0])
	assert.Equal(t, []report.Span{{Text: "c", Highlighted: true}}, lines[1])
	assert.Equal(t, []report.Span{{Text: "dddddddddddd"}}, lines[2])
	assert.Equal(t, []report.Span{{Text: "e"}}, lines[3])

	assert.Nil(t, wrapSpans(nil, 8, measure))
}

func TestLoadFonts(t *testing.T) {
	fs, err := loadFonts(t.TempDir())
	require.NoError(t, err)
	assert.NotEmpty(t, fs.regular)
	assert.NotEmpty(t, fs.bold)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, regularFontFile), []byte("not a font"), 0o644))
	_, err = loadFonts(dir)
	assert.Error(t, err)
}
