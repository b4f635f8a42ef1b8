package main

import (
	"context"

	"github.com/trezcool/plagcheck/storage/database"
)

var (
	// mockable
	runMigrationFunc = database.RunMigration
	createDBFunc     = database.CreateIfNotExist
)

func (cli *commandLine) migrate(ctx context.Context, args []string) error {
	return runMigrationFunc(ctx, cli.db, cli.logger, args[0], args[1:]...)
}
