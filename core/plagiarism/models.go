package plagiarism

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/trezcool/plagcheck/core/grouping"
	"github.com/trezcool/plagcheck/core/report"
	"github.com/trezcool/plagcheck/core/submission"
)

type State string

const (
	StateIdle       State = "idle"
	StateExtracting State = "extracting"
	StateScoring    State = "scoring"
	StateGrouping   State = "grouping"
	StateReporting  State = "reporting"
	StateNoGroups   State = "no-groups"
	StateDone       State = "done"
)

type (
	TextExtractor interface {
		// Extract returns the cleaned text of a file, or "" on failure.
		Extract(ctx context.Context, path string) string
	}

	ReportBuilder interface {
		Build(ctx context.Context, in report.Input) (report.Artifacts, error)
	}

	// Notifier tells the assignment's teacher about the outcome of a check.
	Notifier interface {
		NotifyPlagiarismReport(ctx context.Context, assignment submission.Assignment, notice Notice) error
	}

	Notice struct {
		Found      bool
		Groups     int
		ReportPath string
		ChartPath  string
	}

	Options struct {
		Threshold float64
		Mode      grouping.MergeMode
		// extract every submission again, even those with a cached text
		ReExtract bool
		UploadDir string
	}

	// Run summarizes one plagiarism check.
	Run struct {
		ID           uuid.UUID          `json:"id"`
		AssignmentID int                `json:"assignmentId"`
		State        State              `json:"state"`
		Submissions  int                `json:"submissions"`
		Names        []string           `json:"names"`
		Scores       []report.PairScore `json:"scores"`
		Qualifying   int                `json:"qualifying"`
		Groups       []grouping.Group   `json:"groups"`
		Artifacts    report.Artifacts   `json:"artifacts"`
		ResultIDs    []int64            `json:"resultIds"`
		StartedAt    time.Time          `json:"startedAt"`
		FinishedAt   time.Time          `json:"finishedAt"`
	}
)

// LockKey is the key under which checks of an assignment are serialized.
func LockKey(assignmentID int) string {
	return "plagcheck:check:" + strconv.Itoa(assignmentID)
}
