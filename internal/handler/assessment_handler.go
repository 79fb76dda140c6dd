package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-academic-api/internal/dto"
	"github.com/noah-isme/sma-academic-api/internal/models"
	appErrors "github.com/noah-isme/sma-academic-api/pkg/errors"
	"github.com/noah-isme/sma-academic-api/pkg/response"
)

type assessmentService interface {
	List(ctx context.Context, filter models.AssessmentFilter) ([]models.Assessment, *models.Pagination, error)
	Get(ctx context.Context, id string) (*models.Assessment, error)
	ListScores(ctx context.Context, assessmentID string) ([]models.StudentAssessmentScore, error)
	Create(ctx context.Context, claims *models.JWTClaims, req dto.CreateAssessmentRequest) (*dto.AssessmentResponse, error)
	MaterializePendingScores(ctx context.Context, assessmentID string) (*dto.MaterializeResult, error)
	Update(ctx context.Context, id string, req dto.UpdateAssessmentRequest) (*models.Assessment, error)
	Delete(ctx context.Context, id string) error
	RecordScore(ctx context.Context, assessmentID, studentID string, req dto.RecordScoreRequest) (*models.StudentAssessmentScore, error)
	ClearScore(ctx context.Context, assessmentID, studentID string) (*models.StudentAssessmentScore, error)
}

// AssessmentHandler exposes assessment and score endpoints.
type AssessmentHandler struct {
	service assessmentService
}

// NewAssessmentHandler constructs handler.
func NewAssessmentHandler(svc assessmentService) *AssessmentHandler {
	return &AssessmentHandler{service: svc}
}

// List godoc
// @Summary List assessments
// @Tags Assessments
// @Produce json
// @Param classroomId query string false "Filter by classroom"
// @Param subjectId query string false "Filter by subject"
// @Param teacherId query string false "Filter by teacher"
// @Param academicYear query string false "Academic year"
// @Param semester query int false "Semester"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /assessments [get]
func (h *AssessmentHandler) List(c *gin.Context) {
	filter := models.AssessmentFilter{
		ClassroomID:  c.Query("classroomId"),
		SubjectID:    c.Query("subjectId"),
		TeacherID:    c.Query("teacherId"),
		AcademicYear: c.Query("academicYear"),
	}
	if raw := c.Query("semester"); raw != "" {
		semester, err := strconv.Atoi(raw)
		if err != nil {
			response.Error(c, appErrors.Validation(err, "invalid semester"))
			return
		}
		filter.Semester = semester
	}
	filter.Page, filter.PageSize = pageFromQuery(c)

	assessments, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, assessments, pagination)
}

// Get godoc
// @Summary Get assessment
// @Tags Assessments
// @Produce json
// @Param id path string true "Assessment ID"
// @Success 200 {object} response.Envelope
// @Router /assessments/{id} [get]
func (h *AssessmentHandler) Get(c *gin.Context) {
	assessment, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, assessment, nil)
}

// Create godoc
// @Summary Create assessment
// @Description Creates the assessment and one pending score per actively enrolled student.
// @Tags Assessments
// @Accept json
// @Produce json
// @Param payload body dto.CreateAssessmentRequest true "Assessment payload"
// @Success 201 {object} response.Envelope
// @Router /assessments [post]
func (h *AssessmentHandler) Create(c *gin.Context) {
	var req dto.CreateAssessmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	created, err := h.service.Create(c.Request.Context(), claimsFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, created)
}

// Update godoc
// @Summary Update assessment
// @Tags Assessments
// @Accept json
// @Produce json
// @Param id path string true "Assessment ID"
// @Param payload body dto.UpdateAssessmentRequest true "Assessment payload"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope "Scores already recorded"
// @Router /assessments/{id} [put]
func (h *AssessmentHandler) Update(c *gin.Context) {
	var req dto.UpdateAssessmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	assessment, err := h.service.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, assessment, nil)
}

// Delete godoc
// @Summary Delete assessment
// @Tags Assessments
// @Param id path string true "Assessment ID"
// @Success 204
// @Failure 409 {object} response.Envelope "Recorded scores in error.details"
// @Router /assessments/{id} [delete]
func (h *AssessmentHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Materialize godoc
// @Summary Add pending scores for late enrollments
// @Tags Assessments
// @Produce json
// @Param id path string true "Assessment ID"
// @Success 200 {object} response.Envelope
// @Router /assessments/{id}/materialize [post]
func (h *AssessmentHandler) Materialize(c *gin.Context) {
	result, err := h.service.MaterializePendingScores(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// ListScores godoc
// @Summary List scores of an assessment
// @Tags Assessments
// @Produce json
// @Param id path string true "Assessment ID"
// @Success 200 {object} response.Envelope
// @Router /assessments/{id}/scores [get]
func (h *AssessmentHandler) ListScores(c *gin.Context) {
	scores, err := h.service.ListScores(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, scores, nil)
}

// RecordScore godoc
// @Summary Record a student's score
// @Tags Assessments
// @Accept json
// @Produce json
// @Param id path string true "Assessment ID"
// @Param studentId path string true "Student ID"
// @Param payload body dto.RecordScoreRequest true "Score payload"
// @Success 200 {object} response.Envelope
// @Router /assessments/{id}/scores/{studentId} [put]
func (h *AssessmentHandler) RecordScore(c *gin.Context) {
	var req dto.RecordScoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	score, err := h.service.RecordScore(c.Request.Context(), c.Param("id"), c.Param("studentId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, score, nil)
}

// ClearScore godoc
// @Summary Reset a student's score to ungraded
// @Tags Assessments
// @Produce json
// @Param id path string true "Assessment ID"
// @Param studentId path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /assessments/{id}/scores/{studentId} [delete]
func (h *AssessmentHandler) ClearScore(c *gin.Context) {
	score, err := h.service.ClearScore(c.Request.Context(), c.Param("id"), c.Param("studentId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, score, nil)
}
