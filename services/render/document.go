package render

import (
	"context"
	"strings"

	"github.com/go-pdf/fpdf"
	"github.com/pkg/errors"

	"github.com/trezcool/plagcheck/core/report"
)

const (
	fontFamily = "report"

	pageMargin = 15.0 // mm
	boxGap     = 6.0
	boxPadding = 3.0
	lineHeight = 5.0
	bodySize   = 10.0
)

type rgb struct{ r, g, b int }

var (
	headerFill    = rgb{0, 102, 204}
	boxFill       = rgb{240, 240, 240}
	highlightFill = rgb{255, 204, 204}
)

// RenderDocument writes doc as an A4 PDF at path.
func (r *Renderer) RenderDocument(ctx context.Context, doc report.Document, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.AddUTF8FontFromBytes(fontFamily, "", r.fonts.regular)
	pdf.AddUTF8FontFromBytes(fontFamily, "B", r.fonts.bold)
	pdf.SetMargins(pageMargin, pageMargin, pageMargin)
	pdf.SetAutoPageBreak(true, pageMargin)
	pdf.SetTitle(doc.Title, true)
	pdf.AddPage()

	setFill(pdf, headerFill)
	pdf.SetTextColor(255, 255, 255)
	pdf.SetFont(fontFamily, "B", 16)
	pdf.CellFormat(0, 12, doc.Title, "", 1, "C", true, 0, "")
	pdf.SetTextColor(0, 0, 0)
	pdf.Ln(4)

	pdf.SetFont(fontFamily, "B", 13)
	pdf.MultiCell(0, 7, doc.Summary, "", "L", false)
	pdf.SetFont(fontFamily, "", 11)
	pdf.MultiCell(0, 6, doc.Findings, "", "L", false)

	for _, s := range doc.Sections {
		pdf.Ln(4)
		pdf.SetFont(fontFamily, "B", 12)
		pdf.MultiCell(0, 6, s.Heading, "", "L", false)
		pdf.SetFont(fontFamily, "", bodySize)
		pdf.MultiCell(0, lineHeight, s.Students, "", "L", false)
		pdf.MultiCell(0, lineHeight, s.CommonWords, "", "L", false)
		pdf.Ln(2)

		for i := 0; i < len(s.Boxes); i += 2 {
			end := i + 2
			if end > len(s.Boxes) {
				end = len(s.Boxes)
			}
			drawBoxRow(pdf, s.Boxes[i:end])
		}
	}

	pdf.Ln(4)
	setFill(pdf, highlightFill)
	pdf.CellFormat(6, lineHeight, "", "", 0, "", true, 0, "")
	pdf.SetFont(fontFamily, "", bodySize)
	pdf.CellFormat(0, lineHeight, " "+doc.Legend, "", 1, "L", false, 0, "")

	if err := pdf.OutputFileAndClose(path); err != nil {
		return errors.Wrap(err, "writing pdf")
	}
	return nil
}

// drawBoxRow draws up to two member boxes side by side.
func drawBoxRow(pdf *fpdf.Fpdf, boxes []report.Box) {
	pageW, pageH := pdf.GetPageSize()
	colW := (pageW - 2*pageMargin - boxGap) / 2
	textW := colW - 2*boxPadding
	maxLines := int((pageH - 2*pageMargin - 2*boxPadding - 2*lineHeight) / lineHeight)

	layouts := make([][][]report.Span, len(boxes))
	rows := 0
	for i, b := range boxes {
		layouts[i] = wrapSpans(b.Spans, textW, spanWidth(pdf))
		if len(layouts[i]) > maxLines {
			layouts[i] = layouts[i][:maxLines]
		}
		if len(layouts[i]) > rows {
			rows = len(layouts[i])
		}
	}
	boxH := 2*boxPadding + lineHeight*float64(rows+1)

	if pdf.GetY()+boxH > pageH-pageMargin {
		pdf.AddPage()
	}
	top := pdf.GetY()

	oldMargin := pdf.GetCellMargin()
	pdf.SetCellMargin(0)
	for i, b := range boxes {
		left := pageMargin + float64(i)*(colW+boxGap)
		setFill(pdf, boxFill)
		pdf.Rect(left, top, colW, boxH, "F")

		pdf.SetXY(left+boxPadding, top+boxPadding)
		pdf.SetFont(fontFamily, "B", bodySize)
		pdf.CellFormat(textW, lineHeight, b.Title, "", 0, "L", false, 0, "")

		for n, line := range layouts[i] {
			pdf.SetXY(left+boxPadding, top+boxPadding+lineHeight*float64(n+1))
			drawLine(pdf, line)
		}
	}
	pdf.SetCellMargin(oldMargin)
	pdf.SetXY(pageMargin, top+boxH+boxGap)
}

func drawLine(pdf *fpdf.Fpdf, line []report.Span) {
	pdf.SetFont(fontFamily, "", bodySize)
	space := pdf.GetStringWidth(" ")
	for i, s := range line {
		if i > 0 {
			pdf.SetFont(fontFamily, "", bodySize)
			pdf.CellFormat(space, lineHeight, "", "", 0, "L", false, 0, "")
		}
		if s.Highlighted {
			pdf.SetFont(fontFamily, "B", bodySize)
			setFill(pdf, highlightFill)
		} else {
			pdf.SetFont(fontFamily, "", bodySize)
		}
		pdf.CellFormat(pdf.GetStringWidth(s.Text), lineHeight, s.Text, "", 0, "L", s.Highlighted, 0, "")
	}
}

func spanWidth(pdf *fpdf.Fpdf) func(s report.Span) float64 {
	return func(s report.Span) float64 {
		style := ""
		if s.Highlighted {
			style = "B"
		}
		pdf.SetFont(fontFamily, style, bodySize)
		w := pdf.GetStringWidth(s.Text)
		pdf.SetFont(fontFamily, "", bodySize)
		return w + pdf.GetStringWidth(" ")
	}
}

// wrapSpans breaks spans into lines no wider than width. A word wider than a line gets a line of its own.
func wrapSpans(spans []report.Span, width float64, measure func(report.Span) float64) [][]report.Span {
	var (
		lines [][]report.Span
		line  []report.Span
		used  float64
	)
	for _, s := range spans {
		if strings.TrimSpace(s.Text) == "" {
			continue
		}
		w := measure(s)
		if len(line) > 0 && used+w > width {
			lines = append(lines, line)
			line, used = nil, 0
		}
		line = append(line, s)
		used += w
	}
	if len(line) > 0 {
		lines = append(lines, line)
	}
	return lines
}

func setFill(pdf *fpdf.Fpdf, c rgb) {
	pdf.SetFillColor(c.r, c.g, c.b)
}
