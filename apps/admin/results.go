package main

import (
	"context"
	"fmt"
	"text/tabwriter"
)

func (cli *commandLine) results(ctx context.Context, assignmentID int) error {
	results, err := cli.checker.Results(ctx, assignmentID)
	if err != nil {
		return err
	}
	if len(results) == 0 {
		fmt.Fprintf(cli.out, "No plagiarism results for assignment %d\n", assignmentID)
		return nil
	}

	w := tabwriter.NewWriter(cli.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTUDENT 1\tSTUDENT 2\tSIMILARITY\tCOSINE\tJACCARD\tLEVENSHTEIN\tCREATED")
	for _, r := range results {
		fmt.Fprintf(w, "%d\t%s\t%s\t%.2f\t%.2f\t%.2f\t%.2f\t%s\n",
			r.ID, r.Student1Name, r.Student2Name, r.SimilarityScore, r.Cosine, r.Jaccard, r.Levenshtein,
			r.CreatedAt.Format("2006-01-02 15:04"))
	}
	return w.Flush()
}
