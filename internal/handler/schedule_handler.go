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

type scheduleService interface {
	List(ctx context.Context, filter models.ScheduleFilter) ([]models.ScheduleEntry, *models.Pagination, error)
	Get(ctx context.Context, id string) (*models.ScheduleEntry, error)
	ListByTeacher(ctx context.Context, teacherID string, period models.AcademicPeriod) ([]models.ScheduleEntry, error)
	ListByClassroom(ctx context.Context, classroomID string, period models.AcademicPeriod) ([]models.ScheduleEntry, error)
	Check(ctx context.Context, req dto.ScheduleCheckRequest) (*models.ConflictResult, error)
	Create(ctx context.Context, req dto.ScheduleEntryRequest) (*models.ScheduleEntry, error)
	Update(ctx context.Context, id string, req dto.ScheduleEntryRequest) (*models.ScheduleEntry, error)
	Deactivate(ctx context.Context, id string) error
	BulkCreate(ctx context.Context, req dto.BulkScheduleRequest) (*dto.BulkScheduleResult, error)
}

// ScheduleHandler manages schedule endpoints.
type ScheduleHandler struct {
	service scheduleService
}

// NewScheduleHandler constructs handler.
func NewScheduleHandler(svc scheduleService) *ScheduleHandler {
	return &ScheduleHandler{service: svc}
}

// List godoc
// @Summary List schedule entries
// @Tags Schedules
// @Produce json
// @Param academicYear query string false "Academic year, e.g. 2024/2025"
// @Param semester query int false "Semester (1 or 2)"
// @Param teacherId query string false "Filter by teacher"
// @Param classroomId query string false "Filter by classroom"
// @Param subjectId query string false "Filter by subject"
// @Param dayOfWeek query string false "Filter by day"
// @Param includeInactive query bool false "Include deactivated entries"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Param sort query string false "day_of_week|start_time|created_at"
// @Param order query string false "asc|desc"
// @Success 200 {object} response.Envelope
// @Router /schedules [get]
func (h *ScheduleHandler) List(c *gin.Context) {
	filter := models.ScheduleFilter{
		AcademicYear: c.Query("academicYear"),
		TeacherID:    c.Query("teacherId"),
		ClassroomID:  c.Query("classroomId"),
		SubjectID:    c.Query("subjectId"),
		SortBy:       c.Query("sort"),
		SortOrder:    c.Query("order"),
	}
	if raw := c.Query("semester"); raw != "" {
		semester, err := strconv.Atoi(raw)
		if err != nil {
			response.Error(c, appErrors.Validation(err, "invalid semester"))
			return
		}
		filter.Semester = semester
	}
	if raw := c.Query("dayOfWeek"); raw != "" {
		day, err := models.ParseDayOfWeek(raw)
		if err != nil {
			response.Error(c, appErrors.Validation(err, "invalid dayOfWeek"))
			return
		}
		filter.DayOfWeek = day
	}
	filter.IncludeInactive, _ = strconv.ParseBool(c.Query("includeInactive"))
	filter.Page, filter.PageSize = pageFromQuery(c)

	entries, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, pagination)
}

// Get godoc
// @Summary Get schedule entry
// @Tags Schedules
// @Produce json
// @Param id path string true "Schedule ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /schedules/{id} [get]
func (h *ScheduleHandler) Get(c *gin.Context) {
	entry, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entry, nil)
}

// ListByTeacher godoc
// @Summary Weekly timetable of a teacher
// @Tags Schedules
// @Produce json
// @Param teacherId path string true "Teacher ID"
// @Param academicYear query string true "Academic year"
// @Param semester query int true "Semester"
// @Success 200 {object} response.Envelope
// @Router /teachers/{teacherId}/schedules [get]
func (h *ScheduleHandler) ListByTeacher(c *gin.Context) {
	period, err := periodFromQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	entries, err := h.service.ListByTeacher(c.Request.Context(), c.Param("teacherId"), period)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, nil)
}

// ListByClassroom godoc
// @Summary Weekly timetable of a classroom
// @Tags Schedules
// @Produce json
// @Param classroomId path string true "Classroom ID"
// @Param academicYear query string true "Academic year"
// @Param semester query int true "Semester"
// @Success 200 {object} response.Envelope
// @Router /classrooms/{classroomId}/schedules [get]
func (h *ScheduleHandler) ListByClassroom(c *gin.Context) {
	period, err := periodFromQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	entries, err := h.service.ListByClassroom(c.Request.Context(), c.Param("classroomId"), period)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, nil)
}

// Check godoc
// @Summary Dry-run conflict detection
// @Tags Schedules
// @Accept json
// @Produce json
// @Param payload body dto.ScheduleCheckRequest true "Proposed entry"
// @Success 200 {object} response.Envelope
// @Router /schedules/check [post]
func (h *ScheduleHandler) Check(c *gin.Context) {
	var req dto.ScheduleCheckRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	result, err := h.service.Check(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Create godoc
// @Summary Create schedule entry
// @Tags Schedules
// @Accept json
// @Produce json
// @Param payload body dto.ScheduleEntryRequest true "Schedule payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope "Conflicting entries in error.details"
// @Router /schedules [post]
func (h *ScheduleHandler) Create(c *gin.Context) {
	var req dto.ScheduleEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	entry, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, entry)
}

// Update godoc
// @Summary Update schedule entry
// @Tags Schedules
// @Accept json
// @Produce json
// @Param id path string true "Schedule ID"
// @Param payload body dto.ScheduleEntryRequest true "Schedule payload"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /schedules/{id} [put]
func (h *ScheduleHandler) Update(c *gin.Context) {
	var req dto.ScheduleEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	entry, err := h.service.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entry, nil)
}

// Deactivate godoc
// @Summary Deactivate schedule entry
// @Tags Schedules
// @Param id path string true "Schedule ID"
// @Success 204
// @Router /schedules/{id} [delete]
func (h *ScheduleHandler) Deactivate(c *gin.Context) {
	if err := h.service.Deactivate(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// BulkCreate godoc
// @Summary Bulk create schedule entries
// @Tags Schedules
// @Accept json
// @Produce json
// @Param payload body dto.BulkScheduleRequest true "Bulk payload"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /schedules/bulk [post]
func (h *ScheduleHandler) BulkCreate(c *gin.Context) {
	var req dto.BulkScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	result, err := h.service.BulkCreate(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
