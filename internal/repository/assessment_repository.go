package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-academic-api/internal/models"
	"github.com/noah-isme/sma-academic-api/pkg/database"
)

const assessmentColumns = "id, subject_id, classroom_id, teacher_id, academic_year, semester, title, kind, max_score, weight, due_date, created_at, updated_at"

const scoreColumns = "id, assessment_id, student_id, score, is_submitted, graded_at, created_at, updated_at"

// materializeScoresQuery creates one ungraded score per actively enrolled student of the assessment's
// classroom and period. Existing rows are left untouched so the statement can be re-run.
const materializeScoresQuery = `INSERT INTO student_assessment_scores (id, assessment_id, student_id, score, is_submitted, created_at, updated_at)
SELECT gen_random_uuid(), a.id, e.student_id, NULL, FALSE, $2, $2
FROM assessments a
JOIN enrollments e ON e.classroom_id = a.classroom_id AND e.academic_year = a.academic_year AND e.semester = a.semester
WHERE a.id = $1 AND e.status = 'ACTIVE'
ON CONFLICT (assessment_id, student_id) DO NOTHING`

// AssessmentRepository persists assessments together with their per-student score rows.
type AssessmentRepository struct {
	db *sqlx.DB
}

// NewAssessmentRepository creates a new assessment repository.
func NewAssessmentRepository(db *sqlx.DB) *AssessmentRepository {
	return &AssessmentRepository{db: db}
}

// List returns assessments matching the filter.
func (r *AssessmentRepository) List(ctx context.Context, filter models.AssessmentFilter) ([]models.Assessment, int, error) {
	base := "FROM assessments WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.ClassroomID != "" {
		conditions = append(conditions, fmt.Sprintf("classroom_id = $%d", len(args)+1))
		args = append(args, filter.ClassroomID)
	}
	if filter.SubjectID != "" {
		conditions = append(conditions, fmt.Sprintf("subject_id = $%d", len(args)+1))
		args = append(args, filter.SubjectID)
	}
	if filter.TeacherID != "" {
		conditions = append(conditions, fmt.Sprintf("teacher_id = $%d", len(args)+1))
		args = append(args, filter.TeacherID)
	}
	if filter.AcademicYear != "" {
		conditions = append(conditions, fmt.Sprintf("academic_year = $%d", len(args)+1))
		args = append(args, filter.AcademicYear)
	}
	if filter.Semester != 0 {
		conditions = append(conditions, fmt.Sprintf("semester = $%d", len(args)+1))
		args = append(args, filter.Semester)
	}
	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s %s ORDER BY created_at DESC LIMIT %d OFFSET %d", assessmentColumns, base, size, offset)
	var assessments []models.Assessment
	if err := r.db.SelectContext(ctx, &assessments, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list assessments: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+base, args...); err != nil {
		return nil, 0, fmt.Errorf("count assessments: %w", err)
	}
	return assessments, total, nil
}

// FindByID loads an assessment by id.
func (r *AssessmentRepository) FindByID(ctx context.Context, id string) (*models.Assessment, error) {
	var assessment models.Assessment
	if err := r.db.GetContext(ctx, &assessment, fmt.Sprintf("SELECT %s FROM assessments WHERE id = $1", assessmentColumns), id); err != nil {
		return nil, err
	}
	return &assessment, nil
}

// Create inserts the assessment and materialises pending scores in one transaction. It returns the
// number of score rows created.
func (r *AssessmentRepository) Create(ctx context.Context, assessment *models.Assessment) (int64, error) {
	if assessment.ID == "" {
		assessment.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if assessment.CreatedAt.IsZero() {
		assessment.CreatedAt = now
	}
	assessment.UpdatedAt = now

	var materialized int64
	err := database.WithTx(ctx, r.db, sql.LevelDefault, func(tx *sqlx.Tx) error {
		const query = `INSERT INTO assessments (id, subject_id, classroom_id, teacher_id, academic_year, semester, title, kind, max_score, weight, due_date, created_at, updated_at) VALUES (:id, :subject_id, :classroom_id, :teacher_id, :academic_year, :semester, :title, :kind, :max_score, :weight, :due_date, :created_at, :updated_at)`
		if _, err := sqlx.NamedExecContext(ctx, tx, query, assessment); err != nil {
			return fmt.Errorf("create assessment: %w", err)
		}
		n, err := materialize(ctx, tx, assessment.ID, now)
		materialized = n
		return err
	})
	if err != nil {
		return 0, err
	}
	return materialized, nil
}

// MaterializePendingScores adds score rows for students enrolled after the assessment was created.
func (r *AssessmentRepository) MaterializePendingScores(ctx context.Context, assessmentID string) (int64, error) {
	return materialize(ctx, r.db, assessmentID, time.Now().UTC())
}

// UpdateIfUngraded rewrites the assessment unless a score has been recorded for it. When scores
// exist nothing is written and they are returned.
func (r *AssessmentRepository) UpdateIfUngraded(ctx context.Context, assessment *models.Assessment) ([]models.StudentAssessmentScore, error) {
	var recorded []models.StudentAssessmentScore
	err := database.WithTx(ctx, r.db, sql.LevelDefault, func(tx *sqlx.Tx) error {
		var err error
		recorded, err = lockRecordedScores(ctx, tx, assessment.ID)
		if err != nil || len(recorded) > 0 {
			return err
		}

		assessment.UpdatedAt = time.Now().UTC()
		const query = `UPDATE assessments SET subject_id = :subject_id, title = :title, kind = :kind, max_score = :max_score, weight = :weight, due_date = :due_date, updated_at = :updated_at WHERE id = :id`
		if _, err := sqlx.NamedExecContext(ctx, tx, query, assessment); err != nil {
			return fmt.Errorf("update assessment: %w", err)
		}
		return nil
	})
	return recorded, err
}

// DeleteIfUngraded removes the assessment and its pending scores unless a score has been recorded.
// When scores exist nothing is deleted and they are returned.
func (r *AssessmentRepository) DeleteIfUngraded(ctx context.Context, id string) ([]models.StudentAssessmentScore, error) {
	var recorded []models.StudentAssessmentScore
	err := database.WithTx(ctx, r.db, sql.LevelDefault, func(tx *sqlx.Tx) error {
		var err error
		recorded, err = lockRecordedScores(ctx, tx, id)
		if err != nil || len(recorded) > 0 {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM student_assessment_scores WHERE assessment_id = $1`, id); err != nil {
			return fmt.Errorf("delete pending scores: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM assessments WHERE id = $1`, id); err != nil {
			return fmt.Errorf("delete assessment: %w", err)
		}
		return nil
	})
	return recorded, err
}

func materialize(ctx context.Context, exec sqlx.ExecerContext, assessmentID string, now time.Time) (int64, error) {
	res, err := exec.ExecContext(ctx, materializeScoresQuery, assessmentID, now)
	if err != nil {
		return 0, fmt.Errorf("materialize pending scores: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("materialize pending scores: %w", err)
	}
	return n, nil
}

// lockRecordedScores locks the assessment row and returns its recorded scores. sql.ErrNoRows is
// returned when the assessment does not exist.
func lockRecordedScores(ctx context.Context, tx *sqlx.Tx, assessmentID string) ([]models.StudentAssessmentScore, error) {
	var id string
	if err := tx.GetContext(ctx, &id, `SELECT id FROM assessments WHERE id = $1 FOR UPDATE`, assessmentID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("lock assessment: %w", err)
	}

	var scores []models.StudentAssessmentScore
	query := fmt.Sprintf("SELECT %s FROM student_assessment_scores WHERE assessment_id = $1 AND score IS NOT NULL ORDER BY student_id", scoreColumns)
	if err := tx.SelectContext(ctx, &scores, query, assessmentID); err != nil {
		return nil, fmt.Errorf("load recorded scores: %w", err)
	}
	return scores, nil
}
