package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/trezcool/plagcheck/core/plagiarism"
)

// check runs a plagiarism check while holding the assignment's lock.
func (cli *commandLine) check(ctx context.Context, assignmentID int, rerun bool) error {
	release, err := cli.locker.Lock(ctx, plagiarism.LockKey(assignmentID))
	if err != nil {
		return err
	}
	defer func() {
		if err := release(ctx); err != nil {
			cli.logger.Warn("releasing lock", "assignment", assignmentID, "err", err)
		}
	}()

	var run plagiarism.Run
	if rerun {
		run, err = cli.checker.Recheck(ctx, assignmentID)
	} else {
		run, err = cli.checker.Check(ctx, assignmentID)
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(cli.out, "Assignment %d: %d submissions, %d suspicious pairs, %d groups\n",
		assignmentID, run.Submissions, run.Qualifying, len(run.Groups))
	for i, g := range run.Groups {
		names := make([]string, 0, len(g.Members))
		for _, m := range g.Members {
			names = append(names, run.Names[m])
		}
		fmt.Fprintf(cli.out, "  Group %d (%.2f%%): %s\n", i+1, g.Similarity, strings.Join(names, ", "))
	}
	if run.Artifacts.ReportPath != "" {
		fmt.Fprintf(cli.out, "Report: %s\nGraph: %s\n", run.Artifacts.ReportPath, run.Artifacts.ChartPath)
	}
	return nil
}
