package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-academic-api/internal/models"
	"github.com/noah-isme/sma-academic-api/pkg/export"
	"github.com/noah-isme/sma-academic-api/pkg/response"
)

type gradeReportService interface {
	StudentPeriodReport(ctx context.Context, studentID string, period models.AcademicPeriod) (*models.StudentPeriodReport, error)
	StudentCumulative(ctx context.Context, studentID string) (*models.StudentCumulativeReport, error)
	ClassRanking(ctx context.Context, classroomID string, period models.AcademicPeriod) (*models.ClassRankingReport, error)
	ExportClassRanking(ctx context.Context, classroomID string, period models.AcademicPeriod, format string) (*export.File, error)
}

// GradeHandler serves GPA reports and class rankings.
type GradeHandler struct {
	service gradeReportService
}

// NewGradeHandler constructs handler.
func NewGradeHandler(svc gradeReportService) *GradeHandler {
	return &GradeHandler{service: svc}
}

// StudentPeriod godoc
// @Summary Student grades for a period
// @Description Subject grades (null when nothing is recorded), period GPA, letter grade and pass flag.
// @Tags Grades
// @Produce json
// @Param studentId path string true "Student ID"
// @Param academicYear query string true "Academic year"
// @Param semester query int true "Semester"
// @Success 200 {object} response.Envelope
// @Router /students/{studentId}/grades [get]
func (h *GradeHandler) StudentPeriod(c *gin.Context) {
	period, err := periodFromQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	report, err := h.service.StudentPeriodReport(c.Request.Context(), c.Param("studentId"), period)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, nil)
}

// StudentCumulative godoc
// @Summary Student cumulative GPA
// @Tags Grades
// @Produce json
// @Param studentId path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /students/{studentId}/gpa [get]
func (h *GradeHandler) StudentCumulative(c *gin.Context) {
	report, err := h.service.StudentCumulative(c.Request.Context(), c.Param("studentId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, nil)
}

// ClassRanking godoc
// @Summary Class ranking with grade distribution and pass/fail rates
// @Tags Grades
// @Produce json
// @Param classroomId path string true "Classroom ID"
// @Param academicYear query string true "Academic year"
// @Param semester query int true "Semester"
// @Success 200 {object} response.Envelope
// @Router /classrooms/{classroomId}/rankings [get]
func (h *GradeHandler) ClassRanking(c *gin.Context) {
	period, err := periodFromQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	report, err := h.service.ClassRanking(c.Request.Context(), c.Param("classroomId"), period)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, nil)
}

// ExportClassRanking godoc
// @Summary Download class ranking
// @Tags Grades
// @Produce text/csv
// @Produce application/pdf
// @Param classroomId path string true "Classroom ID"
// @Param academicYear query string true "Academic year"
// @Param semester query int true "Semester"
// @Param format query string false "csv (default) or pdf"
// @Success 200 {file} file
// @Router /classrooms/{classroomId}/rankings/export [get]
func (h *GradeHandler) ExportClassRanking(c *gin.Context) {
	period, err := periodFromQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	file, err := h.service.ExportClassRanking(c.Request.Context(), c.Param("classroomId"), period, c.Query("format"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.File(c, file.Name, file.ContentType, file.Content)
}
