package render

import (
	"context"
	"fmt"
	"image/color"

	"github.com/fogleman/gg"
	"github.com/pkg/errors"

	"github.com/trezcool/plagcheck/core/report"
)

const (
	chartWidth  = 1200
	chartHeight = 600

	plotLeft   = 80.0
	plotRight  = 170.0
	plotTop    = 60.0
	plotBottom = 190.0
	yMax       = 100.0
	yStep      = 20.0
)

var seriesColors = [3]color.RGBA{
	{31, 119, 180, 255},
	{255, 127, 14, 255},
	{44, 160, 44, 255},
}

// RenderChart writes chart as a grouped bar chart PNG at path.
func (r *Renderer) RenderChart(ctx context.Context, chart report.Chart, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	titleFace, err := newFace(r.fonts.bold, 20)
	if err != nil {
		return err
	}
	labelFace, err := newFace(r.fonts.regular, 14)
	if err != nil {
		return err
	}
	tickFace, err := newFace(r.fonts.regular, 11)
	if err != nil {
		return err
	}

	dc := gg.NewContext(chartWidth, chartHeight)
	dc.SetColor(color.White)
	dc.Clear()

	x0, y0 := plotLeft, float64(chartHeight)-plotBottom
	plotW := float64(chartWidth) - plotLeft - plotRight
	plotH := y0 - plotTop

	dc.SetFontFace(titleFace)
	dc.SetColor(color.Black)
	dc.DrawStringAnchored(chart.Title, float64(chartWidth)/2, plotTop/2, 0.5, 0.5)

	// y grid and ticks
	dc.SetFontFace(tickFace)
	dc.SetLineWidth(1)
	for v := 0.0; v <= yMax; v += yStep {
		y := y0 - v/yMax*plotH
		dc.SetRGB255(220, 220, 220)
		dc.DrawLine(x0, y, x0+plotW, y)
		dc.Stroke()
		dc.SetColor(color.Black)
		dc.DrawStringAnchored(fmt.Sprintf("%.0f", v), x0-8, y, 1, 0.5)
	}

	if n := len(chart.Values); n > 0 {
		groupW := plotW / float64(n)
		barW := groupW * 0.8 / 3
		for i, vals := range chart.Values {
			gx := x0 + groupW*float64(i) + groupW*0.1
			for s, v := range vals {
				h := clamp(v, 0, yMax) / yMax * plotH
				dc.SetColor(seriesColors[s])
				dc.DrawRectangle(gx+barW*float64(s), y0-h, barW, h)
				dc.Fill()
			}

			if i < len(chart.Labels) {
				lx, ly := x0+groupW*(float64(i)+0.5), y0+10
				dc.Push()
				dc.SetColor(color.Black)
				dc.RotateAbout(gg.Radians(-45), lx, ly)
				dc.DrawStringAnchored(chart.Labels[i], lx, ly, 1, 0.5)
				dc.Pop()
			}
		}
	}

	// axes
	dc.SetColor(color.Black)
	dc.SetLineWidth(1.5)
	dc.DrawLine(x0, plotTop, x0, y0)
	dc.DrawLine(x0, y0, x0+plotW, y0)
	dc.Stroke()

	dc.SetFontFace(labelFace)
	dc.DrawStringAnchored(chart.XLabel, x0+plotW/2, float64(chartHeight)-20, 0.5, 0.5)
	dc.Push()
	dc.RotateAbout(gg.Radians(-90), 24, plotTop+plotH/2)
	dc.DrawStringAnchored(chart.YLabel, 24, plotTop+plotH/2, 0.5, 0.5)
	dc.Pop()

	// legend
	lx, ly := x0+plotW+20, plotTop
	for s, name := range chart.Series {
		dc.SetColor(seriesColors[s])
		dc.DrawRectangle(lx, ly+float64(s)*24, 16, 16)
		dc.Fill()
		dc.SetColor(color.Black)
		dc.DrawStringAnchored(name, lx+24, ly+float64(s)*24+8, 0, 0.5)
	}

	if err := dc.SavePNG(path); err != nil {
		return errors.Wrap(err, "writing chart")
	}
	return nil
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
