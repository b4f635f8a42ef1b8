// Package report lays out plagiarism findings and hands them to a Renderer.
package report

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/trezcool/plagcheck/core"
)

type Renderer interface {
	RenderDocument(ctx context.Context, doc Document, path string) error
	RenderChart(ctx context.Context, chart Chart, path string) error
}

type Builder struct {
	renderer   Renderer
	resultsDir string
	textLimit  int
	logger     core.Logger
}

func NewBuilder(renderer Renderer, resultsDir string, textLimit int, logger core.Logger) *Builder {
	if textLimit <= 0 {
		textLimit = DefaultTextLimit
	}
	return &Builder{renderer: renderer, resultsDir: resultsDir, textLimit: textLimit, logger: logger}
}

func ReportPath(resultsDir string, assignmentID int) string {
	return filepath.Join(resultsDir, fmt.Sprintf("plagiarism_report_%d.pdf", assignmentID))
}

func ChartPath(resultsDir string, assignmentID int) string {
	return filepath.Join(resultsDir, fmt.Sprintf("plagiarism_graph_%d.png", assignmentID))
}

// Build renders the report document and the score chart of a run into the results directory.
func (b *Builder) Build(ctx context.Context, in Input) (Artifacts, error) {
	if err := os.MkdirAll(b.resultsDir, 0o755); err != nil {
		return Artifacts{}, errors.Wrap(err, "creating results dir")
	}
	arts := Artifacts{
		ReportPath: ReportPath(b.resultsDir, in.AssignmentID),
		ChartPath:  ChartPath(b.resultsDir, in.AssignmentID),
	}

	if err := b.renderer.RenderDocument(ctx, BuildDocument(in, b.textLimit), arts.ReportPath); err != nil {
		return Artifacts{}, errors.Wrap(err, "rendering report")
	}
	if err := b.renderer.RenderChart(ctx, BuildChart(in), arts.ChartPath); err != nil {
		return Artifacts{}, errors.Wrap(err, "rendering chart")
	}
	b.logger.Info("report generated", "assignment", in.AssignmentID, "report", arts.ReportPath, "chart", arts.ChartPath)
	return arts, nil
}

func BuildDocument(in Input, textLimit int) Document {
	doc := Document{
		Title:   fmt.Sprintf("Plagiarism Detection Report - Assignment %d", in.AssignmentID),
		Summary: fmt.Sprintf("Summary of Plagiarism Findings (%d Submissions)", len(in.Texts)),
		Legend:  "Highlighted text indicates matching words",
	}
	if len(in.Groups) == 0 {
		doc.Findings = fmt.Sprintf("No significant plagiarism detected (similarity < %s%%).", formatPercent(in.Threshold))
		return doc
	}

	doc.Findings = fmt.Sprintf("Detected %d groups of potential plagiarism:", len(in.Groups))
	for n, g := range in.Groups {
		shared := make(map[string]bool, len(g.SharedWords))
		for _, w := range g.SharedWords {
			shared[w] = true
		}
		names := make([]string, 0, len(g.Members))
		boxes := make([]Box, 0, len(g.Members))
		for _, m := range g.Members {
			name := nameOf(in.Names, m)
			names = append(names, name)
			boxes = append(boxes, Box{Title: name, Spans: Highlight(core.Truncate(textOf(in.Texts, m), textLimit), shared)})
		}
		doc.Sections = append(doc.Sections, Section{
			Heading:     fmt.Sprintf("Group %d (Similarity: %.2f%%):", n+1, g.Similarity),
			Students:    "Students: " + strings.Join(names, ", "),
			CommonWords: "Common Words: " + strings.Join(g.SharedWords, ", "),
			Boxes:       boxes,
		})
	}
	return doc
}

func BuildChart(in Input) Chart {
	chart := Chart{
		Title:  fmt.Sprintf("Plagiarism Similarity Scores for Assignment %d", in.AssignmentID),
		XLabel: "Student Pairs",
		YLabel: "Similarity (%)",
		Series: SeriesNames,
		Labels: make([]string, 0, len(in.Scores)),
		Values: make([][3]float64, 0, len(in.Scores)),
	}
	for _, ps := range in.Scores {
		chart.Labels = append(chart.Labels, nameOf(in.Names, ps.I)+" & "+nameOf(in.Names, ps.J))
		chart.Values = append(chart.Values, [3]float64{ps.Score.Cosine, ps.Score.Jaccard, ps.Score.Levenshtein})
	}
	return chart
}

// Highlight splits text into words, flagging the ones in shared.
// Matching is exact and case-sensitive, like the word sets the shared words come from.
func Highlight(text string, shared map[string]bool) []Span {
	words := strings.Fields(text)
	spans := make([]Span, 0, len(words))
	for _, w := range words {
		spans = append(spans, Span{Text: w, Highlighted: shared[w]})
	}
	return spans
}

func formatPercent(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func nameOf(names []string, idx int) string {
	if idx >= 0 && idx < len(names) && names[idx] != "" {
		return names[idx]
	}
	return fmt.Sprintf("#%d", idx)
}

func textOf(texts []string, idx int) string {
	if idx >= 0 && idx < len(texts) {
		return texts[idx]
	}
	return ""
}
