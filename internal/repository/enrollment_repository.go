package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-academic-api/internal/models"
)

// EnrollmentRepository reads classroom rosters.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository constructs the repository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

// ListActiveStudentIDs returns the students actively enrolled in a classroom for a period, ordered
// by student id.
func (r *EnrollmentRepository) ListActiveStudentIDs(ctx context.Context, classroomID string, period models.AcademicPeriod) ([]string, error) {
	const query = `SELECT DISTINCT student_id FROM enrollments WHERE classroom_id = $1 AND academic_year = $2 AND semester = $3 AND status = $4 ORDER BY student_id`
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query, classroomID, period.AcademicYear, period.Semester, models.EnrollmentStatusActive); err != nil {
		return nil, fmt.Errorf("list active students: %w", err)
	}
	return ids, nil
}
