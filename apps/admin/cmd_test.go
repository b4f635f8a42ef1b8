package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/plagcheck/apps/shared"
	"github.com/trezcool/plagcheck/core"
	"github.com/trezcool/plagcheck/core/plagiarism"
	"github.com/trezcool/plagcheck/core/submission"
	emailsvc "github.com/trezcool/plagcheck/services/email"
	smssvc "github.com/trezcool/plagcheck/services/sms"
	dummydb "github.com/trezcool/plagcheck/storage/database/dummy"
)

type fixture struct {
	cli   *commandLine
	out   *bytes.Buffer
	store submission.Store
	email *emailsvc.ConsoleServiceMock
	sms   *smssvc.ServiceMock
}

func setup(t *testing.T) *fixture {
	t.Helper()
	uploadDir := t.TempDir()
	conf := &core.Config{}
	conf.Paths.UploadDir = uploadDir
	conf.Paths.ResultsDir = filepath.Join(uploadDir, "results")
	conf.Plagiarism.Threshold = 10
	conf.Plagiarism.ReportTextLimit = 200
	conf.Email.DefaultFromEmail = "noreply@plagcheck.test"
	conf.Redis.LockTTL = time.Minute

	core.ParseEmailTemplates(core.NopLogger{})

	// set up DB & store
	db, err := dummydb.Open()
	require.NoError(t, err)
	db.AddAssignment(submission.Assignment{
		ID: 1, Title: "Essay", TeacherName: "Ms T", TeacherEmail: "t@school.test", TeacherPhone: "243900000000",
	})
	for i, s := range []struct{ name, text string }{
		{"alice", "the quick brown fox jumps over the lazy dog"},
		{"bob", "the quick brown fox jumped over the lazy dog"},
		{"carol", "xyz"},
	} {
		require.NoError(t, os.WriteFile(filepath.Join(uploadDir, s.name+".txt"), []byte(s.text), 0o644))
		db.AddSubmission(submission.Submission{AssignmentID: 1, StudentID: 100 + i, StudentName: s.name, FilePath: s.name + ".txt"})
	}
	store := dummydb.NewSubmissionStore(db)

	// set up services
	email := emailsvc.NewConsoleServiceMock(conf)
	sms := &smssvc.ServiceMock{}
	reports, err := shared.NewReportBuilder(conf, core.NopLogger{})
	require.NoError(t, err)
	checker, err := shared.NewPlagiarismService(
		store, shared.NewExtractor(nil, conf, core.NopLogger{}), reports,
		shared.NewNotifier(email, sms, conf, core.NopLogger{}), core.NopLogger{}, conf,
	)
	require.NoError(t, err)
	locker, _, err := shared.NewLocker(context.Background(), conf, core.NopLogger{})
	require.NoError(t, err)

	out := new(bytes.Buffer)
	return &fixture{
		cli: &commandLine{
			conf:    conf,
			checker: checker,
			locker:  locker,
			logger:  core.NopLogger{},
			out:     out,
		},
		out:   out,
		store: store,
		email: email,
		sms:   sms,
	}
}

type cliTest struct {
	name    string
	args    []string // without program name
	wantErr error
	wantOut []string
}

func runCLITests(t *testing.T, f *fixture, tests []cliTest) {
	t.Helper()
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			f.out.Reset()
			err := f.cli.run(context.Background(), args)
			if tt.wantErr != nil {
				assert.Equal(t, tt.wantErr, errors.Cause(err))
				return
			}
			require.NoError(t, err)
			for _, want := range tt.wantOut {
				assert.Contains(t, f.out.String(), want)
			}
		})
	}
}

func Test_commandLine_usage(t *testing.T) {
	f := setup(t)
	runCLITests(t, f, []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "check: no args", args: []string{"check"}, wantErr: errHelp},
		{name: "check: non-int assignment", args: []string{"check", "-assignment", "lol"}, wantErr: errHelp},
		{name: "results: no args", args: []string{"results"}, wantErr: errHelp},
		{name: "migrate: no subcommand", args: []string{"migrate"}, wantErr: errHelp},
	})
	assert.Contains(t, f.out.String(), "Usage:")
}

func Test_commandLine_check(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	runCLITests(t, f, []cliTest{
		{name: "unknown assignment", args: []string{"check", "-assignment", "99"}, wantErr: core.ErrNotFound},
		{
			name: "check",
			args: []string{"check", "-assignment", "1"},
			wantOut: []string{
				"Assignment 1: 3 submissions, 1 suspicious pairs, 1 groups",
				"Group 1 (",
				"alice, bob",
				"plagiarism_report_1.pdf",
			},
		},
		{name: "results", args: []string{"results", "-assignment", "1"}, wantOut: []string{"STUDENT 1", "alice", "bob"}},
	})

	results, err := f.store.QueryResults(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, results, 1)
	assert.FileExists(t, *results[0].ReportPath)
	assert.FileExists(t, *results[0].GraphPath)
	require.Len(t, f.email.Sent(), 1)
	msg := f.email.Sent()[0]
	assert.Equal(t, "Plagiarism Report for Assignment Essay", msg.Subject)
	assert.Contains(t, msg.TextContent, "Dear Ms T,")
	assert.Contains(t, msg.TextContent, "Download PDF: /v1/assignments/1/plagiarism-report")
	assert.Contains(t, msg.HTMLContent, `href="/v1/assignments/1/plagiarism-graph"`)
	require.Len(t, f.sms.Sent, 1)
	assert.Equal(t, "+243900000000", f.sms.Sent[0].To)

	// a rerun replaces the previous results
	runCLITests(t, f, []cliTest{{name: "rerun", args: []string{"check", "-assignment", "1", "-rerun"}}})
	results, err = f.store.QueryResults(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, results, 1)

	// a plain check appends
	runCLITests(t, f, []cliTest{{name: "check again", args: []string{"check", "-assignment", "1"}}})
	results, err = f.store.QueryResults(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func Test_commandLine_checkLocked(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	release, err := f.cli.locker.Lock(ctx, plagiarism.LockKey(1))
	require.NoError(t, err)
	runCLITests(t, f, []cliTest{{name: "locked", args: []string{"check", "-assignment", "1"}, wantErr: core.ErrConflict}})

	require.NoError(t, release(ctx))
	runCLITests(t, f, []cliTest{{name: "unlocked", args: []string{"check", "-assignment", "1"}}})
}

func Test_commandLine_results_empty(t *testing.T) {
	f := setup(t)
	runCLITests(t, f, []cliTest{
		{name: "no results", args: []string{"results", "-assignment", "1"}, wantOut: []string{"No plagiarism results for assignment 1"}},
		{name: "unknown assignment", args: []string{"results", "-assignment", "2"}, wantErr: core.ErrNotFound},
	})
}

func Test_commandLine_migrate(t *testing.T) {
	f := setup(t)

	var gotCmd string
	var gotArgs []string
	runMigrationFunc = func(_ context.Context, _ *sqlx.DB, _ core.Logger, command string, args ...string) error {
		gotCmd, gotArgs = command, args
		if command == "lol" {
			return errors.Errorf("%q: no such command", command)
		}
		return nil
	}
	var created bool
	createDBFunc = func(context.Context, *core.Config) error {
		created = true
		return nil
	}

	tests := []struct {
		name     string
		args     []string
		wantCmd  string
		wantArgs []string
		wantErr  string
	}{
		{name: "up", args: []string{"migrate", "up"}, wantCmd: "up", wantArgs: []string{}},
		{name: "up-to", args: []string{"migrate", "up-to", "2"}, wantCmd: "up-to", wantArgs: []string{"2"}},
		{name: "status", args: []string{"migrate", "status"}, wantCmd: "status", wantArgs: []string{}},
		{name: "unknown", args: []string{"migrate", "lol"}, wantErr: `"lol": no such command`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := f.cli.run(context.Background(), append([]string{"admin"}, tt.args...))
			if tt.wantErr != "" {
				assert.EqualError(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantCmd, gotCmd)
			assert.Equal(t, tt.wantArgs, gotArgs)
		})
	}

	require.NoError(t, f.cli.run(context.Background(), []string{"admin", "createdb"}))
	assert.True(t, created)
}
