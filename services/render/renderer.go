// Package render draws plagiarism reports as PDF documents and score charts as PNG images.
package render

import (
	"github.com/trezcool/plagcheck/core"
	"github.com/trezcool/plagcheck/core/report"
)

type Renderer struct {
	fonts  fontSet
	logger core.Logger
}

var _ report.Renderer = (*Renderer)(nil)

// New returns a Renderer using the fonts of fontDir (optional).
func New(fontDir string, logger core.Logger) (*Renderer, error) {
	fonts, err := loadFonts(fontDir)
	if err != nil {
		return nil, err
	}
	return &Renderer{fonts: fonts, logger: logger.With("service", "render")}, nil
}
