package handler

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-academic-api/internal/models"
	appErrors "github.com/noah-isme/sma-academic-api/pkg/errors"
	"github.com/noah-isme/sma-academic-api/pkg/export"
)

type gradeServiceMock struct {
	format string
	period models.AcademicPeriod
}

func (m *gradeServiceMock) StudentPeriodReport(_ context.Context, studentID string, period models.AcademicPeriod) (*models.StudentPeriodReport, error) {
	m.period = period
	return &models.StudentPeriodReport{StudentID: studentID, Period: period, Subjects: []models.SubjectGradeRow{{SubjectID: "bio"}}}, nil
}

func (m *gradeServiceMock) StudentCumulative(_ context.Context, studentID string) (*models.StudentCumulativeReport, error) {
	return &models.StudentCumulativeReport{StudentID: studentID, CumulativeGPA: 81.5, Graded: true}, nil
}

func (m *gradeServiceMock) ClassRanking(_ context.Context, classroomID string, period models.AcademicPeriod) (*models.ClassRankingReport, error) {
	return &models.ClassRankingReport{ClassroomID: classroomID, Period: period, Rankings: []models.RankingEntry{{StudentID: "st1", GPA: 91, LetterGrade: models.LetterA, Rank: 1}}}, nil
}

func (m *gradeServiceMock) ExportClassRanking(_ context.Context, _ string, _ models.AcademicPeriod, format string) (*export.File, error) {
	m.format = format
	if format == "xlsx" {
		return nil, appErrors.Validation(errors.New("unsupported"), "invalid export format")
	}
	return &export.File{Name: "ranking.csv", ContentType: "text/csv", Content: []byte("Rank,Student\n1,st1\n")}, nil
}

func TestGradeHandlerStudentPeriodReportsNullGrades(t *testing.T) {
	mock := &gradeServiceMock{}
	h := NewGradeHandler(mock)

	c, w := newGinContext(http.MethodGet, "/students/st1/grades?academicYear=2024/2025&semester=2", nil)
	c.Params = gin.Params{{Key: "studentId", Value: "st1"}}
	h.StudentPeriod(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 2, mock.period.Semester)
	assert.Contains(t, w.Body.String(), `"final_grade":null`)
}

func TestGradeHandlerRejectsBadSemester(t *testing.T) {
	h := NewGradeHandler(&gradeServiceMock{})
	c, w := newGinContext(http.MethodGet, "/classrooms/c1/rankings?academicYear=2024/2025&semester=3", nil)
	h.ClassRanking(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGradeHandlerClassRanking(t *testing.T) {
	h := NewGradeHandler(&gradeServiceMock{})
	c, w := newGinContext(http.MethodGet, "/classrooms/c1/rankings?academicYear=2024/2025&semester=1", nil)
	c.Params = gin.Params{{Key: "classroomId", Value: "c1"}}
	h.ClassRanking(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"rank":1`)
}

func TestGradeHandlerCumulative(t *testing.T) {
	h := NewGradeHandler(&gradeServiceMock{})
	c, w := newGinContext(http.MethodGet, "/students/st1/gpa", nil)
	c.Params = gin.Params{{Key: "studentId", Value: "st1"}}
	h.StudentCumulative(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"cumulative_gpa":81.5`)
}

func TestGradeHandlerExport(t *testing.T) {
	mock := &gradeServiceMock{}
	h := NewGradeHandler(mock)

	c, w := newGinContext(http.MethodGet, "/classrooms/c1/rankings/export?academicYear=2024/2025&semester=1&format=csv", nil)
	h.ExportClassRanking(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "csv", mock.format)
	assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "ranking.csv")

	c, w = newGinContext(http.MethodGet, "/classrooms/c1/rankings/export?academicYear=2024/2025&semester=1&format=xlsx", nil)
	h.ExportClassRanking(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
