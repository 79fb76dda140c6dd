package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-academic-api/internal/dto"
	"github.com/noah-isme/sma-academic-api/internal/models"
	appErrors "github.com/noah-isme/sma-academic-api/pkg/errors"
)

type scheduleServiceMock struct {
	filter    models.ScheduleFilter
	period    models.AcademicPeriod
	created   *models.ScheduleEntry
	createErr error
	check     *models.ConflictResult
	bulk      *dto.BulkScheduleResult
	bulkReq   dto.BulkScheduleRequest
}

func (m *scheduleServiceMock) List(_ context.Context, filter models.ScheduleFilter) ([]models.ScheduleEntry, *models.Pagination, error) {
	m.filter = filter
	return []models.ScheduleEntry{}, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: 0}, nil
}

func (m *scheduleServiceMock) Get(context.Context, string) (*models.ScheduleEntry, error) {
	return nil, appErrors.Clone(appErrors.ErrNotFound, "schedule not found")
}

func (m *scheduleServiceMock) ListByTeacher(_ context.Context, _ string, period models.AcademicPeriod) ([]models.ScheduleEntry, error) {
	m.period = period
	return []models.ScheduleEntry{}, nil
}

func (m *scheduleServiceMock) ListByClassroom(_ context.Context, _ string, period models.AcademicPeriod) ([]models.ScheduleEntry, error) {
	m.period = period
	return []models.ScheduleEntry{}, nil
}

func (m *scheduleServiceMock) Check(context.Context, dto.ScheduleCheckRequest) (*models.ConflictResult, error) {
	return m.check, nil
}

func (m *scheduleServiceMock) Create(context.Context, dto.ScheduleEntryRequest) (*models.ScheduleEntry, error) {
	return m.created, m.createErr
}

func (m *scheduleServiceMock) Update(context.Context, string, dto.ScheduleEntryRequest) (*models.ScheduleEntry, error) {
	return m.created, m.createErr
}

func (m *scheduleServiceMock) Deactivate(context.Context, string) error { return nil }

func (m *scheduleServiceMock) BulkCreate(_ context.Context, req dto.BulkScheduleRequest) (*dto.BulkScheduleResult, error) {
	m.bulkReq = req
	return m.bulk, nil
}

func TestScheduleHandlerListParsesFilters(t *testing.T) {
	mock := &scheduleServiceMock{}
	h := NewScheduleHandler(mock)

	c, w := newGinContext(http.MethodGet, "/schedules?academicYear=2024/2025&semester=2&teacherId=t1&dayOfWeek=tue&includeInactive=true&page=2&limit=5", nil)
	h.List(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "2024/2025", mock.filter.AcademicYear)
	assert.Equal(t, 2, mock.filter.Semester)
	assert.Equal(t, models.Tuesday, mock.filter.DayOfWeek)
	assert.True(t, mock.filter.IncludeInactive)
	assert.Equal(t, 2, decode(t, w).Pagination["page"])
}

func TestScheduleHandlerListRejectsBadDay(t *testing.T) {
	h := NewScheduleHandler(&scheduleServiceMock{})
	c, w := newGinContext(http.MethodGet, "/schedules?dayOfWeek=someday", nil)
	h.List(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestScheduleHandlerTimetableRequiresPeriod(t *testing.T) {
	mock := &scheduleServiceMock{}
	h := NewScheduleHandler(mock)

	c, w := newGinContext(http.MethodGet, "/teachers/t1/schedules", nil)
	c.Params = gin.Params{{Key: "teacherId", Value: "t1"}}
	h.ListByTeacher(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	c, w = newGinContext(http.MethodGet, "/teachers/t1/schedules?academicYear=2024/2025&semester=1", nil)
	c.Params = gin.Params{{Key: "teacherId", Value: "t1"}}
	h.ListByTeacher(c)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.AcademicPeriod{AcademicYear: "2024/2025", Semester: 1}, mock.period)
}

func TestScheduleHandlerCreate(t *testing.T) {
	mock := &scheduleServiceMock{created: &models.ScheduleEntry{ID: "s1", DayOfWeek: models.Monday, StartTime: models.MustClock(8, 0), EndTime: models.MustClock(9, 0)}}
	h := NewScheduleHandler(mock)

	body, _ := json.Marshal(dto.ScheduleEntryRequest{TeacherID: "t1", ClassroomID: "c1", SubjectID: "m", AcademicYear: "2024/2025", Semester: 1, DayOfWeek: "MONDAY", StartTime: "08:00", EndTime: "09:00"})
	c, w := newGinContext(http.MethodPost, "/schedules", body)
	h.Create(c)

	require.Equal(t, http.StatusCreated, w.Code)
	var entry models.ScheduleEntry
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &entry))
	assert.Equal(t, "s1", entry.ID)
	assert.Equal(t, models.MustClock(8, 0), entry.StartTime)
}

func TestScheduleHandlerCreateConflict(t *testing.T) {
	conflict := appErrors.WithDetails(appErrors.Clone(appErrors.ErrConflict, "teacher already scheduled in this period"), []models.ScheduleConflict{{ScheduleID: "s9"}})
	h := NewScheduleHandler(&scheduleServiceMock{createErr: conflict})

	c, w := newGinContext(http.MethodPost, "/schedules", []byte(`{"teacher_id":"t1"}`))
	h.Create(c)

	require.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, appErrors.ErrConflict.Code, errorCode(t, w))
	assert.Contains(t, w.Body.String(), "s9")
}

func TestScheduleHandlerRejectsMalformedJSON(t *testing.T) {
	h := NewScheduleHandler(&scheduleServiceMock{})
	c, w := newGinContext(http.MethodPost, "/schedules/bulk", []byte(`{"items":`))
	h.BulkCreate(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, appErrors.ErrValidation.Code, errorCode(t, w))
}

func TestScheduleHandlerBulkCreate(t *testing.T) {
	mock := &scheduleServiceMock{bulk: &dto.BulkScheduleResult{Created: []models.ScheduleEntry{{ID: "s1"}}, Rejected: []dto.RejectedSchedule{{Index: 1, Reason: "teacher already scheduled in this period"}}}}
	h := NewScheduleHandler(mock)

	c, w := newGinContext(http.MethodPost, "/schedules/bulk", []byte(`{"partial_on_error":true,"items":[{},{}]}`))
	h.BulkCreate(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, mock.bulkReq.PartialOnError)
	assert.Len(t, mock.bulkReq.Items, 2)
	assert.Contains(t, w.Body.String(), `"index":1`)
}

func TestScheduleHandlerGetNotFound(t *testing.T) {
	h := NewScheduleHandler(&scheduleServiceMock{})
	c, w := newGinContext(http.MethodGet, "/schedules/x", nil)
	c.Params = gin.Params{{Key: "id", Value: "x"}}
	h.Get(c)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestScheduleHandlerDeactivate(t *testing.T) {
	h := NewScheduleHandler(&scheduleServiceMock{})
	c, w := newGinContext(http.MethodDelete, "/schedules/s1", nil)
	c.Params = gin.Params{{Key: "id", Value: "s1"}}
	h.Deactivate(c)
	c.Writer.WriteHeaderNow()
	assert.Equal(t, http.StatusNoContent, w.Code)
}
