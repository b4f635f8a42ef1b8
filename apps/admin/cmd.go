package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"

	"github.com/jmoiron/sqlx"

	"github.com/trezcool/plagcheck/core"
	"github.com/trezcool/plagcheck/core/plagiarism"
)

var errHelp = errors.New("help provided")

type commandLine struct {
	conf    *core.Config
	db      *sqlx.DB
	checker *plagiarism.Service
	locker  core.Locker
	logger  core.Logger
	out     io.Writer
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  check -assignment ID [-rerun] - run a plagiarism check (-rerun deletes previous results first)")
	fmt.Fprintln(cli.out, "  results -assignment ID        - list stored plagiarism results")
	fmt.Fprintln(cli.out, "  createdb                      - create the database user and database if missing")
	fmt.Fprintln(cli.out, "  migrate COMMAND [ARGS]        - run a goose command (up, down, status, redo, version, ...)")
}

func (cli *commandLine) run(ctx context.Context, args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	checkCmd := flag.NewFlagSet("check", flag.ContinueOnError)
	checkCmd.SetOutput(cli.out)
	checkID := checkCmd.Int("assignment", 0, "The assignment ID.")
	checkRerun := checkCmd.Bool("rerun", false, "Delete the previous results of the assignment first.")

	resultsCmd := flag.NewFlagSet("results", flag.ContinueOnError)
	resultsCmd.SetOutput(cli.out)
	resultsID := resultsCmd.Int("assignment", 0, "The assignment ID.")

	switch args[1] {
	case "check":
		if err := checkCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *checkID <= 0 {
			checkCmd.Usage()
			return errHelp
		}
		return cli.check(ctx, *checkID, *checkRerun)
	case "results":
		if err := resultsCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *resultsID <= 0 {
			resultsCmd.Usage()
			return errHelp
		}
		return cli.results(ctx, *resultsID)
	case "createdb":
		return createDBFunc(ctx, cli.conf)
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(ctx, args[2:])
	default:
		cli.printUsage()
		return errHelp
	}
}
