package sqlxdb

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/plagcheck/core"
	"github.com/trezcool/plagcheck/core/submission"
	"github.com/trezcool/plagcheck/storage/database"
)

func TestOrderClause(t *testing.T) {
	tests := []struct {
		name     string
		ordering []core.DBOrdering
		want     string
		wantErr  error
	}{
		{name: "default", want: "r.created_at DESC, r.id DESC"},
		{name: "score asc", ordering: []core.DBOrdering{{Field: "similarityScore", Ascending: true}}, want: "r.similarity_score ASC, r.id DESC"},
		{
			name:     "several",
			ordering: []core.DBOrdering{{Field: "similarity_score"}, {Field: "createdAt", Ascending: true}},
			want:     "r.similarity_score DESC, r.created_at ASC, r.id DESC",
		},
		{name: "unknown field", ordering: []core.DBOrdering{{Field: "1; DROP TABLE users"}}, wantErr: core.ErrBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := orderClause(tt.ordering)
			if tt.wantErr != nil {
				assert.Equal(t, tt.wantErr, errors.Cause(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

// prepareDB connects to PLAGCHECK_TEST_DATABASE_URL, migrates it and empties every table.
func prepareDB(t *testing.T) *sqlx.DB {
	t.Helper()
	dsn := os.Getenv("PLAGCHECK_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("PLAGCHECK_TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	db, err := database.OpenURL(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, database.Migrate(ctx, db, core.NopLogger{}))
	_, err = db.ExecContext(ctx, `TRUNCATE plagiarism_results, submissions, assignments, users RESTART IDENTITY CASCADE`)
	require.NoError(t, err)
	return db
}

func insertID(t *testing.T, db *sqlx.DB, q string, args ...interface{}) int {
	t.Helper()
	var id int
	require.NoError(t, db.QueryRowx(q+" RETURNING id", args...).Scan(&id))
	return id
}

func TestSubmissionStore(t *testing.T) {
	db := prepareDB(t)
	ctx := context.Background()
	store := NewSubmissionStore(db)

	teacher := insertID(t, db, `INSERT INTO users (name, email, phone, role) VALUES ($1, $2, $3, 'teacher')`, "Ms T", "t@school.test", "+243900000000")
	ada := insertID(t, db, `INSERT INTO users (name) VALUES ($1)`, "Ada")
	bob := insertID(t, db, `INSERT INTO users (name) VALUES ($1)`, "Bob")
	asg := insertID(t, db, `INSERT INTO assignments (title, teacher_id) VALUES ($1, $2)`, "Essay", teacher)
	sub1 := insertID(t, db, `INSERT INTO submissions (assignment_id, student_id, file_path) VALUES ($1, $2, $3)`, asg, ada, "a.txt")
	insertID(t, db, `INSERT INTO submissions (assignment_id, student_id, file_path) VALUES ($1, $2, $3)`, asg, bob, "b.txt")

	a, err := store.GetAssignment(ctx, asg)
	require.NoError(t, err)
	assert.Equal(t, submission.Assignment{
		ID: asg, Title: "Essay", TeacherID: teacher, TeacherName: "Ms T", TeacherEmail: "t@school.test", TeacherPhone: "+243900000000",
	}, a)

	_, err = store.GetAssignment(ctx, asg+100)
	assert.True(t, core.IsNotFound(err))

	require.NoError(t, store.SaveExtractedText(ctx, sub1, "hello\x00 world"))
	assert.True(t, core.IsNotFound(store.SaveExtractedText(ctx, 9999, "x")))

	subs, err := store.GetSubmissions(ctx, asg)
	require.NoError(t, err)
	require.Len(t, subs, 2)
	assert.Equal(t, "Ada", subs[0].StudentName)
	assert.Equal(t, "hello world", subs[0].Text())
	assert.False(t, subs[1].HasText())

	// a failing transaction leaves nothing behind
	boom := errors.New("boom")
	err = store.RunInTx(ctx, func(tx submission.Store) error {
		_, err := tx.InsertResult(ctx, submission.Result{AssignmentID: asg, Student1ID: ada, Student2ID: bob, SimilarityScore: 50})
		require.NoError(t, err)
		return boom
	})
	assert.Equal(t, boom, err)
	results, err := store.QueryResults(ctx, asg)
	require.NoError(t, err)
	assert.Empty(t, results)

	created := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	err = store.RunInTx(ctx, func(tx submission.Store) error {
		var ids []int64
		for i, score := range []float64{42.5, 61} {
			res, err := tx.InsertResult(ctx, submission.Result{
				AssignmentID: asg, Student1ID: ada, Student2ID: bob, SimilarityScore: score,
				MatchedContent: "hello world", CreatedAt: created.Add(time.Duration(i) * time.Minute),
			})
			if err != nil {
				return err
			}
			ids = append(ids, res.ID)
		}
		if err := tx.SetResultArtifacts(ctx, ids, "r.pdf", "g.png"); err != nil {
			return err
		}
		return tx.MarkAssignmentChecked(ctx, asg)
	})
	require.NoError(t, err)

	results, err = store.QueryResults(ctx, asg)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, 61.0, results[0].SimilarityScore)
	assert.Equal(t, "Ada", results[0].Student1Name)
	assert.Equal(t, "Bob", results[0].Student2Name)
	require.NotNil(t, results[0].ReportPath)
	assert.Equal(t, "r.pdf", *results[0].ReportPath)
	assert.Equal(t, "g.png", *results[1].GraphPath)

	results, err = store.QueryResults(ctx, asg, core.DBOrdering{Field: "similarityScore", Ascending: true})
	require.NoError(t, err)
	assert.Equal(t, 42.5, results[0].SimilarityScore)

	a, err = store.GetAssignment(ctx, asg)
	require.NoError(t, err)
	assert.True(t, a.Checked)

	assert.True(t, core.IsNotFound(store.SetResultArtifacts(ctx, []int64{12345}, "r.pdf", "g.png")))

	n, err := store.ClearResults(ctx, asg)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}
