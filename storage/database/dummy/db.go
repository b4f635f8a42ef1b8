package dummydb

import (
	"sync"

	"github.com/trezcool/plagcheck/core/submission"
)

type (
	DB struct {
		sync.RWMutex
		assignments map[int]*submission.Assignment
		submissions map[int]*submission.Submission
		results     map[int64]*submission.Result

		submissionPK int
		resultPK     int64
	}
)

func Open() (*DB, error) {
	db := &DB{
		assignments: make(map[int]*submission.Assignment),
		submissions: make(map[int]*submission.Submission),
		results:     make(map[int64]*submission.Result),
	}
	return db, nil
}

// AddAssignment stores a (copy of) a. The caller picks its ID.
func (db *DB) AddAssignment(a submission.Assignment) {
	db.Lock()
	defer db.Unlock()
	db.assignments[a.ID] = &a
}

// AddSubmission stores a copy of s, assigning it an ID if it has none.
func (db *DB) AddSubmission(s submission.Submission) submission.Submission {
	db.Lock()
	defer db.Unlock()
	if s.ID == 0 {
		db.submissionPK++
		s.ID = db.submissionPK
	} else if s.ID > db.submissionPK {
		db.submissionPK = s.ID
	}
	if s.ContentText != nil {
		txt := *s.ContentText
		s.ContentText = &txt
	}
	db.submissions[s.ID] = &s
	return s
}

type snapshot struct {
	assignments map[int]submission.Assignment
	submissions map[int]submission.Submission
	results     map[int64]submission.Result
	resultPK    int64
}

func (db *DB) snapshot() snapshot {
	snap := snapshot{
		assignments: make(map[int]submission.Assignment, len(db.assignments)),
		submissions: make(map[int]submission.Submission, len(db.submissions)),
		results:     make(map[int64]submission.Result, len(db.results)),
		resultPK:    db.resultPK,
	}
	for k, v := range db.assignments {
		snap.assignments[k] = *v
	}
	for k, v := range db.submissions {
		snap.submissions[k] = *v
	}
	for k, v := range db.results {
		snap.results[k] = *v
	}
	return snap
}

func (db *DB) restore(snap snapshot) {
	db.assignments = make(map[int]*submission.Assignment, len(snap.assignments))
	for k, v := range snap.assignments {
		v := v
		db.assignments[k] = &v
	}
	db.submissions = make(map[int]*submission.Submission, len(snap.submissions))
	for k, v := range snap.submissions {
		v := v
		db.submissions[k] = &v
	}
	db.results = make(map[int64]*submission.Result, len(snap.results))
	for k, v := range snap.results {
		v := v
		db.results[k] = &v
	}
	db.resultPK = snap.resultPK
}
