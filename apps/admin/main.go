package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/trezcool/plagcheck/apps/shared"
	"github.com/trezcool/plagcheck/core"
	"github.com/trezcool/plagcheck/storage/database"
	sqlxdb "github.com/trezcool/plagcheck/storage/database/sqlx"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	conf := core.NewConfig()
	validate, _ := core.NewValidator()
	errAndDie(conf.Validate(validate))

	logger, err := shared.NewLogger(conf, "admin")
	errAndDie(err)
	defer logger.Sync()

	core.ParseEmailTemplates(logger)

	cli := commandLine{conf: conf, logger: logger, out: os.Stdout}
	if len(os.Args) > 1 && os.Args[1] == "createdb" {
		os.Exit(exitCode(cli.run(ctx, os.Args), logger))
	}

	// set up DB
	db, err := database.Open(ctx, conf)
	errAndDie(err)
	defer db.Close()
	cli.db = db

	// set up services
	ocr, closeOCR, err := shared.NewOCRService(ctx, conf, logger)
	errAndDie(err)
	defer closeOCR()

	reports, err := shared.NewReportBuilder(conf, logger)
	errAndDie(err)

	notifier := shared.NewNotifier(shared.NewEmailService(conf, logger), shared.NewSMSService(conf, logger), conf, logger)
	cli.checker, err = shared.NewPlagiarismService(
		sqlxdb.NewSubmissionStore(db), shared.NewExtractor(ocr, conf, logger), reports, notifier, logger, conf,
	)
	errAndDie(err)

	locker, closeLocker, err := shared.NewLocker(ctx, conf, logger)
	errAndDie(err)
	defer closeLocker()
	cli.locker = locker

	// start CLI
	if code := exitCode(cli.run(ctx, os.Args), logger); code != 0 {
		db.Close()
		os.Exit(code)
	}
}

func exitCode(err error, logger core.Logger) int {
	if err == nil {
		return 0
	}
	if err != errHelp {
		logger.Error("command failed", "err", err)
	}
	return 1
}

func errAndDie(err error) {
	if err != nil {
		log.Fatal(err)
	}
}
