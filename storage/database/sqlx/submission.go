// Package sqlxdb stores assignments, submissions and plagiarism results in PostgreSQL.
package sqlxdb

import (
	"context"
	"database/sql"
	"strings"

	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/trezcool/plagcheck/core"
	"github.com/trezcool/plagcheck/core/submission"
)

var resultOrderings = map[string]string{
	"id":               "r.id",
	"createdAt":        "r.created_at",
	"similarityScore":  "r.similarity_score",
	"created_at":       "r.created_at",
	"similarity_score": "r.similarity_score",
}

type submissionStore struct {
	db core.DBExecutor
	// nil when bound to a transaction
	root core.DB
}

var _ submission.Store = (*submissionStore)(nil) // interface compliance check

func NewSubmissionStore(db core.DB) submission.Store {
	return &submissionStore{db: db, root: db}
}

func (s *submissionStore) GetAssignment(ctx context.Context, id int) (submission.Assignment, error) {
	const q = `
		SELECT a.id, a.title, a.teacher_id, a.plagiarism_checked,
		       u.name AS teacher_name, u.email AS teacher_email, u.phone AS teacher_phone
		FROM assignments a
		JOIN users u ON u.id = a.teacher_id
		WHERE a.id = $1`

	var a submission.Assignment
	if err := s.db.GetContext(ctx, &a, q, id); err != nil {
		if err == sql.ErrNoRows {
			return a, submission.ErrAssignmentNotFound
		}
		return a, errors.Wrap(err, "getting assignment")
	}
	return a, nil
}

func (s *submissionStore) GetSubmissions(ctx context.Context, assignmentID int) ([]submission.Submission, error) {
	const q = `
		SELECT s.id, s.assignment_id, s.student_id, u.name AS student_name, s.file_path, s.content_text
		FROM submissions s
		JOIN users u ON u.id = s.student_id
		WHERE s.assignment_id = $1
		ORDER BY s.id`

	subs := make([]submission.Submission, 0)
	if err := s.db.SelectContext(ctx, &subs, q, assignmentID); err != nil {
		return nil, errors.Wrap(err, "selecting submissions")
	}
	return subs, nil
}

func (s *submissionStore) SaveExtractedText(ctx context.Context, submissionID int, text string) error {
	// postgres text cannot hold NUL
	text = strings.ReplaceAll(text, "\x00", "")
	res, err := s.db.ExecContext(ctx, `UPDATE submissions SET content_text = $1 WHERE id = $2`, text, submissionID)
	if err != nil {
		return errors.Wrap(err, "saving extracted text")
	}
	return expectRows(res, 1, errors.Wrapf(core.ErrNotFound, "submission %d", submissionID))
}

func (s *submissionStore) InsertResult(ctx context.Context, res submission.Result) (submission.Result, error) {
	const q = `
		INSERT INTO plagiarism_results (
			assignment_id, student1_id, student2_id, similarity_score, cosine, jaccard, levenshtein,
			matched_content, report_path, graph_path, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, COALESCE($11, now()))
		RETURNING id, created_at`

	res.MatchedContent = core.TruncateRunes(res.MatchedContent, submission.MaxMatchedContentLen)
	var createdAt interface{}
	if !res.CreatedAt.IsZero() {
		createdAt = res.CreatedAt
	}
	row := s.db.QueryRowxContext(ctx, q,
		res.AssignmentID, res.Student1ID, res.Student2ID, res.SimilarityScore, res.Cosine, res.Jaccard,
		res.Levenshtein, res.MatchedContent, res.ReportPath, res.GraphPath, createdAt,
	)
	if err := row.Scan(&res.ID, &res.CreatedAt); err != nil {
		return res, errors.Wrap(err, "inserting result")
	}
	return res, nil
}

func (s *submissionStore) SetResultArtifacts(ctx context.Context, ids []int64, reportPath, graphPath string) error {
	if len(ids) == 0 {
		return nil
	}
	const q = `UPDATE plagiarism_results SET report_path = $1, graph_path = $2 WHERE id = ANY($3)`
	res, err := s.db.ExecContext(ctx, q, reportPath, graphPath, pq.Array(ids))
	if err != nil {
		return errors.Wrap(err, "setting result artifacts")
	}
	return expectRows(res, int64(len(ids)), errors.Wrap(core.ErrNotFound, "result"))
}

func (s *submissionStore) MarkAssignmentChecked(ctx context.Context, assignmentID int) error {
	res, err := s.db.ExecContext(ctx, `UPDATE assignments SET plagiarism_checked = true WHERE id = $1`, assignmentID)
	if err != nil {
		return errors.Wrap(err, "marking assignment checked")
	}
	return expectRows(res, 1, submission.ErrAssignmentNotFound)
}

func (s *submissionStore) ClearResults(ctx context.Context, assignmentID int) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM plagiarism_results WHERE assignment_id = $1`, assignmentID)
	if err != nil {
		return 0, errors.Wrap(err, "clearing results")
	}
	n, err := res.RowsAffected()
	return n, errors.Wrap(err, "clearing results")
}

func (s *submissionStore) QueryResults(ctx context.Context, assignmentID int, ordering ...core.DBOrdering) ([]submission.Result, error) {
	orderBy, err := orderClause(ordering)
	if err != nil {
		return nil, err
	}
	q := `
		SELECT r.id, r.assignment_id, r.student1_id, r.student2_id, r.similarity_score, r.cosine, r.jaccard,
		       r.levenshtein, r.matched_content, r.report_path, r.graph_path, r.created_at,
		       u1.name AS student1_name, u2.name AS student2_name
		FROM plagiarism_results r
		JOIN users u1 ON u1.id = r.student1_id
		JOIN users u2 ON u2.id = r.student2_id
		WHERE r.assignment_id = $1
		ORDER BY ` + orderBy

	results := make([]submission.Result, 0)
	if err := s.db.SelectContext(ctx, &results, q, assignmentID); err != nil {
		return nil, errors.Wrap(err, "selecting results")
	}
	return results, nil
}

func (s *submissionStore) RunInTx(ctx context.Context, fn func(tx submission.Store) error) error {
	if s.root == nil {
		return fn(s)
	}

	tx, err := s.root.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "beginning transaction")
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(&submissionStore{db: tx}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return errors.Wrapf(err, "rollback failed: %v", rbErr)
		}
		return err
	}
	return errors.Wrap(tx.Commit(), "committing transaction")
}

// orderClause maps orderings to columns, newest first by default.
func orderClause(ordering []core.DBOrdering) (string, error) {
	if len(ordering) == 0 {
		return "r.created_at DESC, r.id DESC", nil
	}
	parts := make([]string, 0, len(ordering)+1)
	for _, ord := range ordering {
		col, ok := resultOrderings[ord.Field]
		if !ok {
			return "", errors.Wrapf(core.ErrBadRequest, "cannot order results by %q", ord.Field)
		}
		parts = append(parts, core.DBOrdering{Field: col, Ascending: ord.Ascending}.String())
	}
	parts = append(parts, "r.id DESC")
	return strings.Join(parts, ", "), nil
}

func expectRows(res sql.Result, want int64, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "counting affected rows")
	}
	if n < want {
		return notFound
	}
	return nil
}
