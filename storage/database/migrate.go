package database

import (
	"context"
	"embed"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/pressly/goose/v3"

	"github.com/trezcool/plagcheck/core"
)

const migrationsDir = "migrations"

//go:embed migrations/*.sql
var migrations embed.FS

type gooseLogger struct {
	logger core.Logger
}

func (l gooseLogger) Fatalf(format string, v ...interface{}) {
	l.logger.Fatal(strings.TrimSpace(fmt.Sprintf(format, v...)))
}

func (l gooseLogger) Printf(format string, v ...interface{}) {
	l.logger.Info(strings.TrimSpace(fmt.Sprintf(format, v...)))
}

func setupGoose(logger core.Logger) error {
	goose.SetBaseFS(migrations)
	goose.SetLogger(gooseLogger{logger: logger})
	return goose.SetDialect("postgres")
}

// Migrate applies every pending migration.
func Migrate(ctx context.Context, db *sqlx.DB, logger core.Logger) error {
	return RunMigration(ctx, db, logger, "up")
}

// RunMigration runs a goose command (up, down, status, redo, version, ...) against the embedded migrations.
func RunMigration(ctx context.Context, db *sqlx.DB, logger core.Logger, command string, args ...string) error {
	if err := setupGoose(logger); err != nil {
		return errors.Wrap(err, "setting up goose")
	}
	if err := goose.RunContext(ctx, command, db.DB, migrationsDir, args...); err != nil {
		return errors.Wrapf(err, "migrating database (%s)", command)
	}
	return nil
}
