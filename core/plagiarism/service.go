// Package plagiarism runs plagiarism checks over the submissions of an assignment.
package plagiarism

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/plagcheck/core"
	"github.com/trezcool/plagcheck/core/grouping"
	"github.com/trezcool/plagcheck/core/report"
	"github.com/trezcool/plagcheck/core/similarity"
	"github.com/trezcool/plagcheck/core/submission"
)

// mockable
var nowFunc = func() time.Time { return time.Now().UTC() }

type Service struct {
	store     submission.Store
	extractor TextExtractor
	reports   ReportBuilder
	notifier  Notifier
	logger    core.Logger
	opts      Options
}

func NewService(
	store submission.Store,
	extractor TextExtractor,
	reports ReportBuilder,
	notifier Notifier,
	logger core.Logger,
	opts Options,
) *Service {
	if opts.Mode == "" {
		opts.Mode = grouping.MergeSinglePass
	}
	return &Service{
		store:     store,
		extractor: extractor,
		reports:   reports,
		notifier:  notifier,
		logger:    logger,
		opts:      opts,
	}
}

// Results returns the stored results of an assignment, newest first unless ordering says otherwise.
func (svc *Service) Results(ctx context.Context, assignmentID int, ordering ...core.DBOrdering) ([]submission.Result, error) {
	if _, err := svc.store.GetAssignment(ctx, assignmentID); err != nil {
		return nil, err
	}
	return svc.store.QueryResults(ctx, assignmentID, ordering...)
}

// Recheck deletes the previous results of an assignment and checks it again.
func (svc *Service) Recheck(ctx context.Context, assignmentID int) (Run, error) {
	if _, err := svc.store.GetAssignment(ctx, assignmentID); err != nil {
		return Run{ID: uuid.New(), AssignmentID: assignmentID, State: StateIdle}, err
	}
	n, err := svc.store.ClearResults(ctx, assignmentID)
	if err != nil {
		return Run{ID: uuid.New(), AssignmentID: assignmentID, State: StateIdle}, errors.Wrap(err, "clearing results")
	}
	svc.logger.Info("previous results cleared", "assignment", assignmentID, "count", n)
	return svc.Check(ctx, assignmentID)
}

// Check extracts, scores and groups the submissions of an assignment.
// When some pair reaches the threshold, one result per such pair is stored along with the report, all in one
// transaction. Previous results are kept: checking twice stores every pair twice.
// Callers must not check the same assignment concurrently.
func (svc *Service) Check(ctx context.Context, assignmentID int) (Run, error) {
	run := Run{ID: uuid.New(), AssignmentID: assignmentID, State: StateIdle, StartedAt: nowFunc()}
	logger := svc.logger.With("run", run.ID.String(), "assignment", assignmentID)
	logger.Info("starting plagiarism check")

	assignment, err := svc.store.GetAssignment(ctx, assignmentID)
	if err != nil {
		return run, err
	}
	subs, err := svc.store.GetSubmissions(ctx, assignmentID)
	if err != nil {
		return run, errors.Wrap(err, "getting submissions")
	}
	run.Submissions = len(subs)
	logger.Info("found submissions", "count", len(subs))
	if len(subs) < 2 {
		logger.Info("fewer than 2 submissions, skipping")
		return run, nil
	}

	run.State = StateExtracting
	texts, err := svc.extractAll(ctx, logger, subs)
	if err != nil {
		return run, err
	}
	run.Names = make([]string, len(subs))
	for i, sub := range subs {
		run.Names[i] = sub.StudentName
	}

	run.State = StateScoring
	var pairs []grouping.Pair
	run.Scores, pairs = svc.scoreAll(logger, texts, run.Names)

	qualifying := grouping.Qualifying(pairs, svc.opts.Threshold)
	run.Qualifying = len(qualifying)
	if len(qualifying) == 0 {
		run.State = StateNoGroups
		logger.Info("no significant plagiarism detected")
		if err := svc.store.MarkAssignmentChecked(ctx, assignmentID); err != nil {
			return run, errors.Wrap(err, "marking assignment checked")
		}
		svc.notify(ctx, logger, assignment, Notice{})
		return svc.finish(run), nil
	}

	run.State = StateGrouping
	run.Groups = grouping.Find(pairs, grouping.Options{Threshold: svc.opts.Threshold, Mode: svc.opts.Mode})
	logger.Info("plagiarism groups found", "groups", len(run.Groups), "qualifying", len(qualifying))

	run.State = StateReporting
	err = svc.store.RunInTx(ctx, func(tx submission.Store) error {
		ids := make([]int64, 0, len(qualifying))
		for _, p := range qualifying {
			score := scoreOf(run.Scores, p.I, p.J)
			res, err := tx.InsertResult(ctx, submission.Result{
				AssignmentID:    assignmentID,
				Student1ID:      subs[p.I].StudentID,
				Student2ID:      subs[p.J].StudentID,
				SimilarityScore: p.Similarity,
				Cosine:          score.Cosine,
				Jaccard:         score.Jaccard,
				Levenshtein:     score.Levenshtein,
				MatchedContent:  matchedContent(texts[p.I], texts[p.J]),
				CreatedAt:       nowFunc(),
			})
			if err != nil {
				return errors.Wrap(err, "inserting result")
			}
			ids = append(ids, res.ID)
		}

		arts, err := svc.reports.Build(ctx, report.Input{
			AssignmentID: assignmentID,
			Names:        run.Names,
			Texts:        texts,
			Groups:       run.Groups,
			Scores:       run.Scores,
			Threshold:    svc.opts.Threshold,
		})
		if err != nil {
			return err
		}
		if err := tx.SetResultArtifacts(ctx, ids, arts.ReportPath, arts.ChartPath); err != nil {
			return errors.Wrap(err, "saving report paths")
		}
		if err := tx.MarkAssignmentChecked(ctx, assignmentID); err != nil {
			return errors.Wrap(err, "marking assignment checked")
		}
		run.ResultIDs, run.Artifacts = ids, arts
		return nil
	})
	if err != nil {
		run.ResultIDs, run.Artifacts = nil, report.Artifacts{}
		logger.Error("plagiarism check failed", "err", err)
		return run, err
	}

	logger.Info("plagiarism check completed, report and graph generated")
	svc.notify(ctx, logger, assignment, Notice{
		Found:      true,
		Groups:     len(run.Groups),
		ReportPath: run.Artifacts.ReportPath,
		ChartPath:  run.Artifacts.ChartPath,
	})
	return svc.finish(run), nil
}

func (svc *Service) extractAll(ctx context.Context, logger core.Logger, subs []submission.Submission) ([]string, error) {
	texts := make([]string, len(subs))
	for i, sub := range subs {
		if sub.HasText() && !svc.opts.ReExtract {
			texts[i] = sub.Text()
			continue
		}

		path, ok := sub.AbsPath(svc.opts.UploadDir)
		if ok {
			texts[i] = svc.extractor.Extract(ctx, path)
		} else {
			logger.Warn("invalid submission path", "submission", sub.ID, "path", sub.FilePath)
		}
		if err := svc.store.SaveExtractedText(ctx, sub.ID, texts[i]); err != nil {
			return nil, errors.Wrapf(err, "saving text of submission %d", sub.ID)
		}
	}
	return texts, nil
}

// scoreAll scores every pair of non-empty texts in canonical order.
func (svc *Service) scoreAll(logger core.Logger, texts, names []string) ([]report.PairScore, []grouping.Pair) {
	var (
		scores []report.PairScore
		pairs  []grouping.Pair
	)
	for i := 0; i < len(texts); i++ {
		for j := i + 1; j < len(texts); j++ {
			if texts[i] == "" || texts[j] == "" {
				logger.Warn("one or both documents are empty, skipping pair", "first", names[i], "second", names[j])
				continue
			}
			score := similarity.Compute(texts[i], texts[j])
			avg := score.Average()
			logger.Debug("pair scored", "first", names[i], "second", names[j], "similarity", avg)

			scores = append(scores, report.PairScore{I: i, J: j, Score: score})
			pairs = append(pairs, grouping.Pair{
				I:           i,
				J:           j,
				Similarity:  avg,
				SharedWords: similarity.SharedWords(texts[i], texts[j]),
			})
		}
	}
	return scores, pairs
}

func (svc *Service) notify(ctx context.Context, logger core.Logger, assignment submission.Assignment, notice Notice) {
	if svc.notifier == nil {
		return
	}
	if err := svc.notifier.NotifyPlagiarismReport(ctx, assignment, notice); err != nil {
		logger.Error("plagiarism notification failed", "err", err)
	}
}

func (svc *Service) finish(run Run) Run {
	run.State = StateDone
	run.FinishedAt = nowFunc()
	return run
}

func scoreOf(scores []report.PairScore, i, j int) similarity.Score {
	for _, ps := range scores {
		if ps.I == i && ps.J == j {
			return ps.Score
		}
	}
	return similarity.Score{}
}
