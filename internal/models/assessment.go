package models

import "time"

// AssessmentKind classifies a gradable event.
type AssessmentKind string

const (
	AssessmentExam       AssessmentKind = "EXAM"
	AssessmentQuiz       AssessmentKind = "QUIZ"
	AssessmentAssignment AssessmentKind = "ASSIGNMENT"
	AssessmentProject    AssessmentKind = "PROJECT"
)

// Assessment is one gradable event for a subject taught in a classroom.
type Assessment struct {
	ID          string         `db:"id" json:"id"`
	SubjectID   string         `db:"subject_id" json:"subject_id"`
	ClassroomID string         `db:"classroom_id" json:"classroom_id"`
	TeacherID   string         `db:"teacher_id" json:"teacher_id"`
	Title       string         `db:"title" json:"title"`
	Kind        AssessmentKind `db:"kind" json:"kind"`
	MaxScore    float64        `db:"max_score" json:"max_score"`
	Weight      float64        `db:"weight" json:"weight"`
	DueDate     *time.Time     `db:"due_date" json:"due_date,omitempty"`
	CreatedAt   time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time      `db:"updated_at" json:"updated_at"`
	AcademicPeriod
}

// AssessmentFilter scopes assessment listings.
type AssessmentFilter struct {
	ClassroomID  string
	SubjectID    string
	TeacherID    string
	AcademicYear string
	Semester     int
	Page         int
	PageSize     int
}

// StudentAssessmentScore links a student to an assessment. A nil Score means ungraded.
type StudentAssessmentScore struct {
	ID           string     `db:"id" json:"id"`
	AssessmentID string     `db:"assessment_id" json:"assessment_id"`
	StudentID    string     `db:"student_id" json:"student_id"`
	Score        *float64   `db:"score" json:"score"`
	IsSubmitted  bool       `db:"is_submitted" json:"is_submitted"`
	GradedAt     *time.Time `db:"graded_at" json:"graded_at,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}

// Graded reports whether a score has been recorded.
func (s StudentAssessmentScore) Graded() bool {
	return s.Score != nil
}

// ScoreRecord is the read model consumed by grade aggregation: one student's score joined with the
// metadata of the assessment it belongs to.
type ScoreRecord struct {
	AssessmentID string   `db:"assessment_id" json:"assessment_id"`
	StudentID    string   `db:"student_id" json:"student_id"`
	SubjectID    string   `db:"subject_id" json:"subject_id"`
	ClassroomID  string   `db:"classroom_id" json:"classroom_id"`
	MaxScore     float64  `db:"max_score" json:"max_score"`
	Weight       float64  `db:"weight" json:"weight"`
	Score        *float64 `db:"score" json:"score"`
	IsSubmitted  bool     `db:"is_submitted" json:"is_submitted"`
	AcademicPeriod
}

// AssessmentGradedError is returned when an assessment cannot change because scores exist.
type AssessmentGradedError struct {
	Message      string                   `json:"message"`
	AssessmentID string                   `json:"assessment_id"`
	Scores       []StudentAssessmentScore `json:"scores"`
}

func (e *AssessmentGradedError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return e.Message
}
