package submission

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/plagcheck/core"
)

const MaxMatchedContentLen = 255

var (
	// errors
	ErrAssignmentNotFound = errors.Wrap(core.ErrNotFound, "assignment not found")
)

// Store persists assignments, submissions and plagiarism results.
type Store interface {
	GetAssignment(ctx context.Context, id int) (Assignment, error)
	// GetSubmissions returns the submissions of an assignment ordered by id.
	GetSubmissions(ctx context.Context, assignmentID int) ([]Submission, error)
	SaveExtractedText(ctx context.Context, submissionID int, text string) error

	InsertResult(ctx context.Context, res Result) (Result, error)
	// SetResultArtifacts sets the report and chart paths of the given results.
	SetResultArtifacts(ctx context.Context, ids []int64, reportPath, graphPath string) error
	MarkAssignmentChecked(ctx context.Context, assignmentID int) error
	// ClearResults deletes every result of an assignment and returns how many were deleted.
	ClearResults(ctx context.Context, assignmentID int) (int64, error)
	// QueryResults returns the results of an assignment, newest first unless ordering says otherwise.
	QueryResults(ctx context.Context, assignmentID int, ordering ...core.DBOrdering) ([]Result, error)

	// RunInTx runs fn with a Store bound to a single transaction, committed if fn returns nil and rolled back
	// otherwise. Stores without transactions run fn against themselves.
	RunInTx(ctx context.Context, fn func(tx Store) error) error
}
