// Package extract turns submitted files into plain text.
package extract

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/plagcheck/core"
)

const (
	DefaultPollInterval    = 5 * time.Second
	DefaultMaxPollAttempts = 120
)

var (
	// errors
	ErrUnsupported = errors.New("unsupported file type")
	ErrOCRFailed   = errors.New("ocr processing failed")
	ErrOCRTimeout  = errors.New("ocr processing did not finish in time")
)

// OCR job statuses
const (
	StatusProcessed = "processed"
	StatusFailed    = "failed"
	StatusError     = "error"
)

type (
	// OCRService is an asynchronous text recognition service.
	// Upload returns ErrUnsupported for media types the service cannot read.
	OCRService interface {
		Upload(ctx context.Context, path string) (handle string, err error)
		Status(ctx context.Context, handle string) (string, error)
		Retrieve(ctx context.Context, handle string) (string, error)
	}

	Options struct {
		PollInterval time.Duration
		// 0 polls until the service answers or ctx is done
		MaxPollAttempts int
	}

	Extractor struct {
		ocr    OCRService // optional
		logger core.Logger
		opts   Options
		sleep  func(ctx context.Context, d time.Duration) error
	}
)

// mockable
var sleepCtx = func(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func DefaultOptions() Options {
	return Options{PollInterval: DefaultPollInterval, MaxPollAttempts: DefaultMaxPollAttempts}
}

// New returns an Extractor. ocr may be nil, in which case PDFs are read from their text layer and images yield "".
func New(ocr OCRService, logger core.Logger, opts Options) *Extractor {
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.MaxPollAttempts < 0 {
		opts.MaxPollAttempts = 0
	}
	return &Extractor{ocr: ocr, logger: logger, opts: opts, sleep: sleepCtx}
}

// Extract returns the cleaned text of the file at path. It never fails: any error is logged and yields "".
func (e *Extractor) Extract(ctx context.Context, path string) string {
	raw, err := e.extract(ctx, path)
	if err != nil {
		e.logger.Warn("text extraction failed", "path", path, "err", err)
		return ""
	}
	text := Clean(raw)
	e.logger.Info("extracted text", "path", path, "preview", preview(text, 50))
	return text
}

func (e *Extractor) extract(ctx context.Context, path string) (string, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".txt":
		b, err := os.ReadFile(path)
		if err != nil {
			return "", errors.Wrap(err, "reading text file")
		}
		return string(b), nil
	case ".docx":
		return readDOCX(path)
	case ".png", ".jpg", ".jpeg":
		if e.ocr == nil {
			return "", errors.Wrapf(ErrUnsupported, "%s without an OCR service", ext)
		}
		return e.recognize(ctx, path)
	case ".pdf":
		if e.ocr == nil {
			return readPDF(path)
		}
		text, err := e.recognize(ctx, path)
		if errors.Cause(err) == ErrUnsupported {
			e.logger.Debug("ocr service cannot read pdf, using its text layer", "path", path)
			return readPDF(path)
		}
		return text, err
	default:
		return "", errors.Wrapf(ErrUnsupported, "extension %q", ext)
	}
}

// recognize uploads the file to the OCR service, waits until it is processed and retrieves its text.
func (e *Extractor) recognize(ctx context.Context, path string) (string, error) {
	handle, err := e.ocr.Upload(ctx, path)
	if err != nil {
		return "", errors.Wrap(err, "ocr upload")
	}
	logger := e.logger.With("path", path, "handle", handle)
	logger.Info("file uploaded for ocr")

	for attempt := 1; ; attempt++ {
		status, err := e.ocr.Status(ctx, handle)
		if err != nil {
			return "", errors.Wrap(err, "ocr status")
		}
		logger.Debug("ocr status", "status", status, "attempt", attempt)

		switch status {
		case StatusProcessed:
			text, err := e.ocr.Retrieve(ctx, handle)
			return strings.TrimSpace(text), errors.Wrap(err, "ocr retrieve")
		case StatusFailed, StatusError:
			return "", errors.Wrapf(ErrOCRFailed, "status %q", status)
		}

		if e.opts.MaxPollAttempts > 0 && attempt >= e.opts.MaxPollAttempts {
			return "", errors.Wrapf(ErrOCRTimeout, "after %d attempts", attempt)
		}
		if err := e.sleep(ctx, e.opts.PollInterval); err != nil {
			return "", errors.Wrap(err, "waiting for ocr")
		}
	}
}

// Clean collapses whitespace runs into single spaces, trims the result and drops invalid UTF-8.
func Clean(s string) string {
	return core.CollapseSpaces(s)
}

func preview(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
