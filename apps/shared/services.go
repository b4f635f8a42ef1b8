// Package shared builds the services used by both the API and the admin CLI from the configuration.
package shared

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/plagcheck/core"
	"github.com/trezcool/plagcheck/core/extract"
	"github.com/trezcool/plagcheck/core/grouping"
	"github.com/trezcool/plagcheck/core/plagiarism"
	"github.com/trezcool/plagcheck/core/report"
	"github.com/trezcool/plagcheck/core/submission"
	emailsvc "github.com/trezcool/plagcheck/services/email"
	locksvc "github.com/trezcool/plagcheck/services/lock"
	logsvc "github.com/trezcool/plagcheck/services/logger"
	notificationsvc "github.com/trezcool/plagcheck/services/notification"
	visionocr "github.com/trezcool/plagcheck/services/ocr/vision"
	"github.com/trezcool/plagcheck/services/ocr/whisper"
	"github.com/trezcool/plagcheck/services/render"
	smssvc "github.com/trezcool/plagcheck/services/sms"
)

type Closer func() error

func noopCloser() error { return nil }

// NewLogger returns a named console logger that also reports to Rollbar outside of debug mode.
func NewLogger(conf *core.Config, name string) (*logsvc.RollbarLogger, error) {
	sugar, err := logsvc.NewZap(conf.Debug)
	if err != nil {
		return nil, errors.Wrap(err, "building zap logger")
	}
	logger := logsvc.NewRollbarLogger(sugar.Named(name), conf)
	logger.Enable(!conf.Debug && conf.RollbarToken != "")
	return logger, nil
}

func NewEmailService(conf *core.Config, logger core.Logger) core.EmailService {
	if conf.Debug || conf.Email.SendgridAPIKey == "" {
		return emailsvc.NewConsoleService(conf, logger)
	}
	return emailsvc.NewSendgridService(conf, logger)
}

func NewSMSService(conf *core.Config, logger core.Logger) core.SMSService {
	if !conf.TwilioEnabled() {
		return smssvc.NewConsoleService(logger)
	}
	return smssvc.NewTwilioService(conf, logger)
}

// NewOCRService returns the configured OCR service, or nil when OCR is disabled.
func NewOCRService(ctx context.Context, conf *core.Config, logger core.Logger) (extract.OCRService, Closer, error) {
	switch conf.OCR.Provider {
	case "whisper":
		return whisper.NewClient(conf, logger), noopCloser, nil
	case "vision":
		svc, err := visionocr.NewService(ctx, conf.OCR.VisionCredentialsFile, logger)
		if err != nil {
			return nil, noopCloser, err
		}
		return svc, svc.Close, nil
	case "", "none":
		return nil, noopCloser, nil
	}
	return nil, noopCloser, errors.Errorf("unknown OCR provider %q", conf.OCR.Provider)
}

func NewExtractor(ocr extract.OCRService, conf *core.Config, logger core.Logger) *extract.Extractor {
	return extract.New(ocr, logger.With("component", "extract"), extract.Options{
		PollInterval:    conf.OCR.PollInterval,
		MaxPollAttempts: conf.OCR.MaxPollAttempts,
	})
}

func NewReportBuilder(conf *core.Config, logger core.Logger) (*report.Builder, error) {
	renderer, err := render.New(conf.Paths.FontDir, logger)
	if err != nil {
		return nil, errors.Wrap(err, "creating renderer")
	}
	return report.NewBuilder(renderer, conf.Paths.ResultsDir, conf.Plagiarism.ReportTextLimit, logger.With("component", "report")), nil
}

func NewNotifier(email core.EmailService, sms core.SMSService, conf *core.Config, logger core.Logger) plagiarism.Notifier {
	return notificationsvc.NewService(email, sms, conf, logger)
}

// NewLocker returns a Redis locker when Redis is configured, an in-process one otherwise.
func NewLocker(ctx context.Context, conf *core.Config, logger core.Logger) (core.Locker, Closer, error) {
	if conf.Redis.Addr == "" {
		return locksvc.NewLocalLocker(conf.Redis.LockTTL), noopCloser, nil
	}
	locker, closeFn, err := locksvc.NewRedisLocker(ctx, conf.Redis.Addr, conf.Redis.LockTTL, logger)
	if err != nil {
		return nil, noopCloser, err
	}
	return locker, closeFn, nil
}

func PlagiarismOptions(conf *core.Config) (plagiarism.Options, error) {
	mode, ok := grouping.ParseMergeMode(conf.Plagiarism.MergeMode)
	if !ok {
		return plagiarism.Options{}, errors.Errorf("unknown merge mode %q", conf.Plagiarism.MergeMode)
	}
	return plagiarism.Options{
		Threshold: conf.Plagiarism.Threshold,
		Mode:      mode,
		ReExtract: conf.Plagiarism.ReExtract,
		UploadDir: conf.Paths.UploadDir,
	}, nil
}

func NewPlagiarismService(
	store submission.Store,
	extractor *extract.Extractor,
	reports *report.Builder,
	notifier plagiarism.Notifier,
	logger core.Logger,
	conf *core.Config,
) (*plagiarism.Service, error) {
	opts, err := PlagiarismOptions(conf)
	if err != nil {
		return nil, err
	}
	return plagiarism.NewService(store, extractor, reports, notifier, logger.With("component", "plagiarism"), opts), nil
}
