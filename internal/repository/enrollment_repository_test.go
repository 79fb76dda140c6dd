package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-academic-api/internal/models"
)

func newEnrollmentRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestEnrollmentRepositoryListActiveStudentIDs(t *testing.T) {
	db, mock, cleanup := newEnrollmentRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT DISTINCT student_id FROM enrollments WHERE classroom_id = $1 AND academic_year = $2 AND semester = $3 AND status = $4")).
		WithArgs("c1", "2024/2025", 2, "ACTIVE").
		WillReturnRows(sqlmock.NewRows([]string{"student_id"}).AddRow("s1").AddRow("s2"))

	ids, err := repo.ListActiveStudentIDs(context.Background(), "c1", models.AcademicPeriod{AcademicYear: "2024/2025", Semester: 2})
	require.NoError(t, err)
	assert.Equal(t, []string{"s1", "s2"}, ids)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryListActiveStudentIDsError(t *testing.T) {
	db, mock, cleanup := newEnrollmentRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM enrollments")).WillReturnError(errors.New("db down"))

	_, err := repo.ListActiveStudentIDs(context.Background(), "c1", models.AcademicPeriod{AcademicYear: "2024/2025", Semester: 1})
	assert.ErrorContains(t, err, "list active students")
}
