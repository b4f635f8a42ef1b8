package dig_container

import (
	"context"
	"log"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"go.uber.org/dig"

	echoapi "github.com/trezcool/plagcheck/apps/api/echo"
	"github.com/trezcool/plagcheck/apps/shared"
	"github.com/trezcool/plagcheck/core"
	"github.com/trezcool/plagcheck/core/extract"
	"github.com/trezcool/plagcheck/storage/database"
	sqlxdb "github.com/trezcool/plagcheck/storage/database/sqlx"
)

type DBLoggerParam struct {
	dig.In
	Logger core.Logger `name:"dbLogger"`
}

// Closers are released when the application stops.
type Closers struct {
	dig.In
	OCR    shared.Closer `name:"ocrCloser"`
	Locker shared.Closer `name:"lockerCloser"`
}

type ocrResult struct {
	dig.Out
	OCR    extract.OCRService
	Closer shared.Closer `name:"ocrCloser"`
}

type lockerResult struct {
	dig.Out
	Locker core.Locker
	Closer shared.Closer `name:"lockerCloser"`
}

func newConfig() (*core.Config, error) {
	conf := core.NewConfig()
	validate, _ := core.NewValidator()
	return conf, conf.Validate(validate)
}

func newLogger(conf *core.Config) (core.Logger, error) {
	return shared.NewLogger(conf, "api")
}

func newDBLogger(conf *core.Config) (core.Logger, error) {
	return shared.NewLogger(conf, "db")
}

func newDB(conf *core.Config, loggerParam DBLoggerParam) (*sqlx.DB, core.DB) {
	setUp := func(ctx context.Context) (*sqlx.DB, error) {
		if err := database.CreateIfNotExist(ctx, conf); err != nil {
			return nil, err
		}

		db, err := database.Open(ctx, conf)
		if err != nil {
			return nil, err
		}

		if err = database.Migrate(ctx, db, loggerParam.Logger); err != nil {
			return nil, err
		}
		return db, nil
	}

	db, err := setUp(context.Background())
	if err != nil {
		loggerParam.Logger.Fatal("setting up database", "err", err)
	}
	return db, db
}

func newOCRService(conf *core.Config, logger core.Logger) (ocrResult, error) {
	ocr, closeFn, err := shared.NewOCRService(context.Background(), conf, logger)
	return ocrResult{OCR: ocr, Closer: closeFn}, err
}

func newLocker(conf *core.Config, logger core.Logger) (lockerResult, error) {
	locker, closeFn, err := shared.NewLocker(context.Background(), conf, logger)
	return lockerResult{Locker: locker, Closer: closeFn}, err
}

// New returns a new dependency injection dig.Container
func New() *dig.Container {
	c := dig.New()

	must(c.Provide(newConfig))
	must(c.Provide(newLogger))
	must(c.Provide(newDBLogger, dig.Name("dbLogger")))
	must(c.Provide(newDB))
	must(c.Provide(sqlxdb.NewSubmissionStore))
	must(c.Provide(core.NewValidator))
	must(c.Provide(shared.NewEmailService))
	must(c.Provide(shared.NewSMSService))
	must(c.Provide(newOCRService))
	must(c.Provide(shared.NewExtractor))
	must(c.Provide(shared.NewReportBuilder))
	must(c.Provide(shared.NewNotifier))
	must(c.Provide(shared.NewPlagiarismService, dig.As(new(echoapi.PlagiarismService))))
	must(c.Provide(newLocker))
	must(c.Provide(echoapi.NewServer))

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
