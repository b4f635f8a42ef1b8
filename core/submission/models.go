package submission

import (
	"path/filepath"
	"strings"
	"time"
)

type Assignment struct {
	ID           int    `db:"id" json:"id"`
	Title        string `db:"title" json:"title"`
	TeacherID    int    `db:"teacher_id" json:"teacherId"`
	TeacherName  string `db:"teacher_name" json:"teacherName"`
	TeacherEmail string `db:"teacher_email" json:"-"`
	TeacherPhone string `db:"teacher_phone" json:"-"`
	Checked      bool   `db:"plagiarism_checked" json:"plagiarismChecked"`
}

type Submission struct {
	ID           int     `db:"id" json:"id"`
	AssignmentID int     `db:"assignment_id" json:"assignmentId"`
	StudentID    int     `db:"student_id" json:"studentId"`
	StudentName  string  `db:"student_name" json:"studentName"`
	FilePath     string  `db:"file_path" json:"filePath"` // relative to the upload root
	ContentText  *string `db:"content_text" json:"-"`     // nil until extracted
}

// HasText reports whether an earlier extraction produced any text. A failed extraction is stored as ""
// and is attempted again on the next check.
func (s Submission) HasText() bool {
	return s.ContentText != nil && *s.ContentText != ""
}

// Text returns the extracted text, or "" if it was never extracted.
func (s Submission) Text() string {
	if s.ContentText == nil {
		return ""
	}
	return *s.ContentText
}

// AbsPath joins FilePath to uploadDir, refusing paths that would escape it.
func (s Submission) AbsPath(uploadDir string) (string, bool) {
	rel := filepath.Clean(filepath.FromSlash(s.FilePath))
	if rel == "." || filepath.IsAbs(rel) || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return filepath.Join(uploadDir, rel), true
}

// Result is one suspicious pair of one plagiarism check run.
type Result struct {
	ID              int64     `db:"id" json:"id"`
	AssignmentID    int       `db:"assignment_id" json:"assignmentId"`
	Student1ID      int       `db:"student1_id" json:"student1Id"`
	Student2ID      int       `db:"student2_id" json:"student2Id"`
	SimilarityScore float64   `db:"similarity_score" json:"similarityScore"`
	Cosine          float64   `db:"cosine" json:"cosine"`
	Jaccard         float64   `db:"jaccard" json:"jaccard"`
	Levenshtein     float64   `db:"levenshtein" json:"levenshtein"`
	MatchedContent  string    `db:"matched_content" json:"matchedContent"`
	ReportPath      *string   `db:"report_path" json:"reportPath"`
	GraphPath       *string   `db:"graph_path" json:"graphPath"`
	CreatedAt       time.Time `db:"created_at" json:"createdAt"`

	// populated by QueryResults only
	Student1Name string `db:"student1_name" json:"student1Name,omitempty"`
	Student2Name string `db:"student2_name" json:"student2Name,omitempty"`
}
