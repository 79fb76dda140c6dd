package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-academic-api/internal/models"
)

const scoreRecordSelect = `SELECT s.assessment_id, s.student_id, a.subject_id, a.classroom_id, a.max_score, a.weight, s.score, s.is_submitted, a.academic_year, a.semester
FROM student_assessment_scores s
JOIN assessments a ON a.id = s.assessment_id`

// ScoreRangeError rejects a score above the max score of its assessment as read under the write lock.
type ScoreRangeError struct {
	Score    float64
	MaxScore float64
}

func (e *ScoreRangeError) Error() string {
	return fmt.Sprintf("score %g exceeds max score %g", e.Score, e.MaxScore)
}

// ScoreRepository reads and writes per-student assessment scores.
type ScoreRepository struct {
	db *sqlx.DB
}

// NewScoreRepository creates a new score repository.
func NewScoreRepository(db *sqlx.DB) *ScoreRepository {
	return &ScoreRepository{db: db}
}

// ListByAssessment returns every score row of an assessment ordered by student.
func (r *ScoreRepository) ListByAssessment(ctx context.Context, assessmentID string) ([]models.StudentAssessmentScore, error) {
	query := fmt.Sprintf("SELECT %s FROM student_assessment_scores WHERE assessment_id = $1 ORDER BY student_id", scoreColumns)
	var scores []models.StudentAssessmentScore
	if err := r.db.SelectContext(ctx, &scores, query, assessmentID); err != nil {
		return nil, fmt.Errorf("list assessment scores: %w", err)
	}
	return scores, nil
}

// Record stores score for the student's existing row; a nil score clears it back to ungraded.
// sql.ErrNoRows is returned when the student has no row for the assessment and *ScoreRangeError when
// score exceeds the assessment's current max score.
func (r *ScoreRepository) Record(ctx context.Context, assessmentID, studentID string, score *float64, submitted bool) (*models.StudentAssessmentScore, error) {
	now := time.Now().UTC()
	var gradedAt *time.Time
	if score != nil {
		gradedAt = &now
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin score transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	// Blocks concurrent assessment updates and deletes until the score is written.
	var maxScore float64
	if err := tx.GetContext(ctx, &maxScore, `SELECT max_score FROM assessments WHERE id = $1 FOR SHARE`, assessmentID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("lock assessment: %w", err)
	}
	if score != nil && *score > maxScore {
		return nil, &ScoreRangeError{Score: *score, MaxScore: maxScore}
	}

	query := fmt.Sprintf(`UPDATE student_assessment_scores SET score = $3, is_submitted = $4, graded_at = $5, updated_at = $6 WHERE assessment_id = $1 AND student_id = $2 RETURNING %s`, scoreColumns)
	var saved models.StudentAssessmentScore
	if err := tx.GetContext(ctx, &saved, query, assessmentID, studentID, score, submitted, gradedAt, now); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("record score: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit score: %w", err)
	}
	return &saved, nil
}

// RecordsForStudent returns the student's score records across periods. A non-nil period narrows
// the result to that period.
func (r *ScoreRepository) RecordsForStudent(ctx context.Context, studentID string, period *models.AcademicPeriod) ([]models.ScoreRecord, error) {
	query := scoreRecordSelect + " WHERE s.student_id = $1"
	args := []interface{}{studentID}
	if period != nil {
		query += fmt.Sprintf(" AND a.academic_year = $%d AND a.semester = $%d", len(args)+1, len(args)+2)
		args = append(args, period.AcademicYear, period.Semester)
	}
	query += " ORDER BY a.academic_year, a.semester, a.subject_id"

	var records []models.ScoreRecord
	if err := r.db.SelectContext(ctx, &records, query, args...); err != nil {
		return nil, fmt.Errorf("list student score records: %w", err)
	}
	return records, nil
}

// RecordsForClassroom returns every score record of a classroom's assessments in one period.
func (r *ScoreRepository) RecordsForClassroom(ctx context.Context, classroomID string, period models.AcademicPeriod) ([]models.ScoreRecord, error) {
	query := scoreRecordSelect + " WHERE a.classroom_id = $1 AND a.academic_year = $2 AND a.semester = $3 ORDER BY s.student_id, a.subject_id"
	var records []models.ScoreRecord
	if err := r.db.SelectContext(ctx, &records, query, classroomID, period.AcademicYear, period.Semester); err != nil {
		return nil, fmt.Errorf("list classroom score records: %w", err)
	}
	return records, nil
}
