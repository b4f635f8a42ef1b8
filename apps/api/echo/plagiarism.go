package echoapi

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/plagcheck/core"
	"github.com/trezcool/plagcheck/core/plagiarism"
	"github.com/trezcool/plagcheck/core/submission"
	notificationsvc "github.com/trezcool/plagcheck/services/notification"
)

type PlagiarismService interface {
	Check(ctx context.Context, assignmentID int) (plagiarism.Run, error)
	Recheck(ctx context.Context, assignmentID int) (plagiarism.Run, error)
	Results(ctx context.Context, assignmentID int, ordering ...core.DBOrdering) ([]submission.Result, error)
}

var _ PlagiarismService = (*plagiarism.Service)(nil)

type (
	assignmentParam struct {
		ID int `param:"id" json:"id" validate:"gt=0"`
	}

	CheckRequest struct {
		Rerun bool `json:"rerun"`
	}

	GroupResponse struct {
		Students    []string `json:"students"`
		Similarity  float64  `json:"similarity"`
		SharedWords []string `json:"sharedWords"`
	}

	CheckResponse struct {
		RunID        string           `json:"runId"`
		AssignmentID int              `json:"assignmentId"`
		State        plagiarism.State `json:"state"`
		Message      string           `json:"message"`
		Submissions  int              `json:"submissions"`
		Qualifying   int              `json:"qualifying"`
		Groups       []GroupResponse  `json:"groups"`
		ResultIDs    []int64          `json:"resultIds"`
		ReportURL    string           `json:"reportUrl,omitempty"`
		GraphURL     string           `json:"graphUrl,omitempty"`
	}
)

type plagiarismApi struct {
	svc        PlagiarismService
	locker     core.Locker
	validate   *validator.Validate
	translator ut.Translator
	logger     core.Logger
}

func registerPlagiarismAPI(
	g *echo.Group,
	svc PlagiarismService,
	locker core.Locker,
	validate *validator.Validate,
	translator ut.Translator,
	logger core.Logger,
) {
	api := plagiarismApi{
		svc:        svc,
		locker:     locker,
		validate:   validate,
		translator: translator,
		logger:     logger,
	}

	ag := g.Group("/assignments/:id")
	ag.POST("/plagiarism-check", api.check)
	ag.GET("/plagiarism-results", api.results)
	ag.GET("/plagiarism-report", api.downloadReport)
	ag.GET("/plagiarism-graph", api.downloadGraph)
}

// Handlers

func (api *plagiarismApi) check(ctx echo.Context) error {
	id, err := api.assignmentID(ctx)
	if err != nil {
		return err
	}
	var data CheckRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to CheckRequest")
	}

	// a client going away must not abort a run halfway
	reqCtx := context.WithoutCancel(ctx.Request().Context())

	release, err := api.locker.Lock(reqCtx, plagiarism.LockKey(id))
	if err != nil {
		return errors.Wrap(err, "locking assignment")
	}
	defer func() {
		if err := release(reqCtx); err != nil {
			api.logger.Warn("releasing lock", "assignment", id, "err", err)
		}
	}()

	var run plagiarism.Run
	if data.Rerun {
		run, err = api.svc.Recheck(reqCtx, id)
	} else {
		run, err = api.svc.Check(reqCtx, id)
	}
	if err != nil {
		return errors.Wrap(err, "checking plagiarism")
	}
	return ctx.JSON(http.StatusOK, newCheckResponse(run))
}

func (api *plagiarismApi) results(ctx echo.Context) error {
	id, err := api.assignmentID(ctx)
	if err != nil {
		return err
	}
	results, err := api.svc.Results(ctx.Request().Context(), id, orderingFrom(ctx)...)
	if err != nil {
		return errors.Wrap(err, "querying results")
	}
	if results == nil {
		results = []submission.Result{}
	}
	return ctx.JSON(http.StatusOK, results)
}

func (api *plagiarismApi) downloadReport(ctx echo.Context) error {
	return api.download(ctx, func(r submission.Result) *string { return r.ReportPath })
}

func (api *plagiarismApi) downloadGraph(ctx echo.Context) error {
	return api.download(ctx, func(r submission.Result) *string { return r.GraphPath })
}

// download sends the newest artifact of an assignment.
func (api *plagiarismApi) download(ctx echo.Context, artifact func(submission.Result) *string) error {
	id, err := api.assignmentID(ctx)
	if err != nil {
		return err
	}
	results, err := api.svc.Results(ctx.Request().Context(), id)
	if err != nil {
		return errors.Wrap(err, "querying results")
	}

	for _, r := range results {
		path := artifact(r)
		if path == nil || *path == "" {
			continue
		}
		if _, err := os.Stat(*path); err != nil {
			api.logger.Warn("artifact missing on disk", "assignment", id, "path", *path, "err", err)
			return errHttpNotFound
		}
		return ctx.Attachment(*path, filepath.Base(*path))
	}
	return errHttpNotFound
}

func (api *plagiarismApi) assignmentID(ctx echo.Context) (int, error) {
	var p assignmentParam
	if err := (&echo.DefaultBinder{}).BindPathParams(ctx, &p); err != nil {
		return 0, errors.Wrap(err, "binding assignment id")
	}
	if err := api.validate.Struct(p); err != nil {
		return 0, core.TranslateErrors(err, api.translator)
	}
	return p.ID, nil
}

func newCheckResponse(run plagiarism.Run) CheckResponse {
	resp := CheckResponse{
		RunID:        run.ID.String(),
		AssignmentID: run.AssignmentID,
		State:        run.State,
		Submissions:  run.Submissions,
		Qualifying:   run.Qualifying,
		Groups:       make([]GroupResponse, 0, len(run.Groups)),
		ResultIDs:    run.ResultIDs,
	}
	if resp.ResultIDs == nil {
		resp.ResultIDs = []int64{}
	}

	switch {
	case run.Submissions < 2:
		resp.Message = "Not enough submissions to compare."
	case run.Qualifying == 0:
		resp.Message = "No significant plagiarism detected."
	default:
		resp.Message = fmt.Sprintf("Detected %d groups of potential plagiarism.", len(run.Groups))
	}

	for _, g := range run.Groups {
		students := make([]string, 0, len(g.Members))
		for _, m := range g.Members {
			if m < len(run.Names) {
				students = append(students, run.Names[m])
			}
		}
		resp.Groups = append(resp.Groups, GroupResponse{Students: students, Similarity: g.Similarity, SharedWords: g.SharedWords})
	}
	if run.Artifacts.ReportPath != "" {
		resp.ReportURL = notificationsvc.ReportURL(run.AssignmentID)
		resp.GraphURL = notificationsvc.ChartURL(run.AssignmentID)
	}
	return resp
}
