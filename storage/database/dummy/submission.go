package dummydb

import (
	"context"
	"sort"
	"sync"

	"github.com/trezcool/plagcheck/core"
	"github.com/trezcool/plagcheck/core/submission"
)

type submissionStore struct {
	db *DB
	// one transaction at a time
	txMu *sync.Mutex
}

var _ submission.Store = (*submissionStore)(nil) // interface compliance check

func NewSubmissionStore(db *DB) submission.Store {
	return &submissionStore{db: db, txMu: new(sync.Mutex)}
}

func (s *submissionStore) GetAssignment(_ context.Context, id int) (submission.Assignment, error) {
	s.db.RLock()
	defer s.db.RUnlock()

	if a, ok := s.db.assignments[id]; ok {
		return *a, nil
	}
	return submission.Assignment{}, submission.ErrAssignmentNotFound
}

func (s *submissionStore) GetSubmissions(_ context.Context, assignmentID int) ([]submission.Submission, error) {
	s.db.RLock()
	defer s.db.RUnlock()

	subs := make([]submission.Submission, 0)
	for _, sub := range s.db.submissions {
		if sub.AssignmentID == assignmentID {
			subs = append(subs, *sub)
		}
	}
	sort.Slice(subs, func(i, j int) bool { return subs[i].ID < subs[j].ID })
	return subs, nil
}

func (s *submissionStore) SaveExtractedText(_ context.Context, submissionID int, text string) error {
	s.db.Lock()
	defer s.db.Unlock()

	sub, ok := s.db.submissions[submissionID]
	if !ok {
		return core.ErrNotFound
	}
	sub.ContentText = &text
	return nil
}

func (s *submissionStore) InsertResult(_ context.Context, res submission.Result) (submission.Result, error) {
	s.db.Lock()
	defer s.db.Unlock()

	s.db.resultPK++
	res.ID = s.db.resultPK
	s.db.results[res.ID] = &res
	return res, nil
}

func (s *submissionStore) SetResultArtifacts(_ context.Context, ids []int64, reportPath, graphPath string) error {
	s.db.Lock()
	defer s.db.Unlock()

	for _, id := range ids {
		res, ok := s.db.results[id]
		if !ok {
			return core.ErrNotFound
		}
		rp, gp := reportPath, graphPath
		res.ReportPath, res.GraphPath = &rp, &gp
	}
	return nil
}

func (s *submissionStore) MarkAssignmentChecked(_ context.Context, assignmentID int) error {
	s.db.Lock()
	defer s.db.Unlock()

	a, ok := s.db.assignments[assignmentID]
	if !ok {
		return submission.ErrAssignmentNotFound
	}
	a.Checked = true
	return nil
}

func (s *submissionStore) ClearResults(_ context.Context, assignmentID int) (int64, error) {
	s.db.Lock()
	defer s.db.Unlock()

	var n int64
	for id, res := range s.db.results {
		if res.AssignmentID == assignmentID {
			delete(s.db.results, id)
			n++
		}
	}
	return n, nil
}

func (s *submissionStore) QueryResults(_ context.Context, assignmentID int, ordering ...core.DBOrdering) ([]submission.Result, error) {
	s.db.RLock()
	defer s.db.RUnlock()

	results := make([]submission.Result, 0)
	for _, res := range s.db.results {
		if res.AssignmentID != assignmentID {
			continue
		}
		r := *res
		if sub := s.studentName(r.AssignmentID, r.Student1ID); sub != "" {
			r.Student1Name = sub
		}
		if sub := s.studentName(r.AssignmentID, r.Student2ID); sub != "" {
			r.Student2Name = sub
		}
		results = append(results, r)
	}

	ascending := false
	if len(ordering) > 0 {
		ascending = ordering[0].Ascending
	}
	sort.Slice(results, func(i, j int) bool {
		if ascending {
			return results[i].ID < results[j].ID
		}
		return results[i].ID > results[j].ID
	})
	return results, nil
}

func (s *submissionStore) studentName(assignmentID, studentID int) string {
	for _, sub := range s.db.submissions {
		if sub.AssignmentID == assignmentID && sub.StudentID == studentID {
			return sub.StudentName
		}
	}
	return ""
}

// RunInTx restores the whole database if fn fails.
func (s *submissionStore) RunInTx(_ context.Context, fn func(tx submission.Store) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.db.RLock()
	snap := s.db.snapshot()
	s.db.RUnlock()

	if err := fn(s); err != nil {
		s.db.Lock()
		s.db.restore(snap)
		s.db.Unlock()
		return err
	}
	return nil
}
