package extract

import (
	"io"

	"github.com/ledongthuc/pdf"
	"github.com/pkg/errors"
)

// readPDF returns the embedded text layer of a PDF. Scanned PDFs have none.
func readPDF(path string) (text string, err error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", errors.Wrap(err, "opening pdf")
	}
	defer f.Close()

	// the reader panics on some malformed documents
	defer func() {
		if rec := recover(); rec != nil {
			text, err = "", errors.Errorf("reading pdf: %v", rec)
		}
	}()

	plain, err := r.GetPlainText()
	if err != nil {
		return "", errors.Wrap(err, "pdf plain text")
	}
	b, err := io.ReadAll(plain)
	if err != nil {
		return "", errors.Wrap(err, "reading pdf text")
	}
	return string(b), nil
}
