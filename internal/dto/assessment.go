package dto

import (
	"time"

	"github.com/noah-isme/sma-academic-api/internal/models"
)

// CreateAssessmentRequest defines a new assessment. TeacherID defaults to the caller when omitted.
type CreateAssessmentRequest struct {
	SubjectID    string     `json:"subject_id" validate:"required"`
	ClassroomID  string     `json:"classroom_id" validate:"required"`
	TeacherID    string     `json:"teacher_id"`
	AcademicYear string     `json:"academic_year" validate:"required"`
	Semester     int        `json:"semester" validate:"required,min=1,max=2"`
	Title        string     `json:"title" validate:"required,max=200"`
	Kind         string     `json:"kind" validate:"required,oneof=EXAM QUIZ ASSIGNMENT PROJECT"`
	MaxScore     float64    `json:"max_score" validate:"gt=0"`
	Weight       float64    `json:"weight" validate:"gt=0,lte=1"`
	DueDate      *time.Time `json:"due_date"`
}

// UpdateAssessmentRequest edits an assessment that has no recorded score yet.
type UpdateAssessmentRequest struct {
	SubjectID string     `json:"subject_id" validate:"required"`
	Title     string     `json:"title" validate:"required,max=200"`
	Kind      string     `json:"kind" validate:"required,oneof=EXAM QUIZ ASSIGNMENT PROJECT"`
	MaxScore  float64    `json:"max_score" validate:"gt=0"`
	Weight    float64    `json:"weight" validate:"gt=0,lte=1"`
	DueDate   *time.Time `json:"due_date"`
}

// RecordScoreRequest records a raw score. IsSubmitted defaults to true.
type RecordScoreRequest struct {
	Score       *float64 `json:"score" validate:"required,gte=0"`
	IsSubmitted *bool    `json:"is_submitted"`
}

// AssessmentResponse returns an assessment with the number of score rows created for it.
type AssessmentResponse struct {
	models.Assessment
	PendingScores int64 `json:"pending_scores"`
}

// MaterializeResult reports how many score rows a re-run added.
type MaterializeResult struct {
	AssessmentID string `json:"assessment_id"`
	Created      int64  `json:"created"`
}
