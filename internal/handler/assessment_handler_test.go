package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-academic-api/internal/dto"
	"github.com/noah-isme/sma-academic-api/internal/middleware"
	"github.com/noah-isme/sma-academic-api/internal/models"
	appErrors "github.com/noah-isme/sma-academic-api/pkg/errors"
)

type assessmentServiceMock struct {
	claims    *models.JWTClaims
	recordReq dto.RecordScoreRequest
	student   string
	deleteErr error
}

func (m *assessmentServiceMock) List(context.Context, models.AssessmentFilter) ([]models.Assessment, *models.Pagination, error) {
	return []models.Assessment{}, &models.Pagination{Page: 1, PageSize: 20}, nil
}

func (m *assessmentServiceMock) Get(_ context.Context, id string) (*models.Assessment, error) {
	return &models.Assessment{ID: id}, nil
}

func (m *assessmentServiceMock) ListScores(context.Context, string) ([]models.StudentAssessmentScore, error) {
	return []models.StudentAssessmentScore{}, nil
}

func (m *assessmentServiceMock) Create(_ context.Context, claims *models.JWTClaims, req dto.CreateAssessmentRequest) (*dto.AssessmentResponse, error) {
	m.claims = claims
	return &dto.AssessmentResponse{Assessment: models.Assessment{ID: "a1", TeacherID: claims.UserID}, PendingScores: 30}, nil
}

func (m *assessmentServiceMock) MaterializePendingScores(_ context.Context, id string) (*dto.MaterializeResult, error) {
	return &dto.MaterializeResult{AssessmentID: id, Created: 2}, nil
}

func (m *assessmentServiceMock) Update(_ context.Context, id string, _ dto.UpdateAssessmentRequest) (*models.Assessment, error) {
	return &models.Assessment{ID: id}, nil
}

func (m *assessmentServiceMock) Delete(context.Context, string) error { return m.deleteErr }

func (m *assessmentServiceMock) RecordScore(_ context.Context, id, student string, req dto.RecordScoreRequest) (*models.StudentAssessmentScore, error) {
	m.student = student
	m.recordReq = req
	return &models.StudentAssessmentScore{AssessmentID: id, StudentID: student, Score: req.Score}, nil
}

func (m *assessmentServiceMock) ClearScore(_ context.Context, id, student string) (*models.StudentAssessmentScore, error) {
	return &models.StudentAssessmentScore{AssessmentID: id, StudentID: student}, nil
}

func TestAssessmentHandlerCreatePassesClaims(t *testing.T) {
	mock := &assessmentServiceMock{}
	h := NewAssessmentHandler(mock)

	c, w := newGinContext(http.MethodPost, "/assessments", []byte(`{"subject_id":"math","classroom_id":"c1","academic_year":"2024/2025","semester":1,"title":"Quiz","kind":"QUIZ","max_score":10,"weight":0.1}`))
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "t1", Role: models.RoleTeacher})
	h.Create(c)

	require.Equal(t, http.StatusCreated, w.Code)
	require.NotNil(t, mock.claims)
	assert.Equal(t, "t1", mock.claims.UserID)
	assert.Contains(t, w.Body.String(), `"pending_scores":30`)
}

func TestAssessmentHandlerRecordScore(t *testing.T) {
	mock := &assessmentServiceMock{}
	h := NewAssessmentHandler(mock)

	c, w := newGinContext(http.MethodPut, "/assessments/a1/scores/st1", []byte(`{"score":87.5,"is_submitted":false}`))
	c.Params = gin.Params{{Key: "id", Value: "a1"}, {Key: "studentId", Value: "st1"}}
	h.RecordScore(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "st1", mock.student)
	require.NotNil(t, mock.recordReq.Score)
	assert.Equal(t, 87.5, *mock.recordReq.Score)
	require.NotNil(t, mock.recordReq.IsSubmitted)
	assert.False(t, *mock.recordReq.IsSubmitted)
}

func TestAssessmentHandlerDeleteLocked(t *testing.T) {
	score := 90.0
	locked := appErrors.WithDetails(appErrors.Clone(appErrors.ErrAssessmentLocked, "assessment with recorded scores cannot be deleted"),
		[]models.StudentAssessmentScore{{StudentID: "st1", Score: &score}})
	h := NewAssessmentHandler(&assessmentServiceMock{deleteErr: locked})

	c, w := newGinContext(http.MethodDelete, "/assessments/a1", nil)
	c.Params = gin.Params{{Key: "id", Value: "a1"}}
	h.Delete(c)

	require.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, appErrors.ErrAssessmentLocked.Code, errorCode(t, w))
	assert.Contains(t, w.Body.String(), "st1")
}

func TestAssessmentHandlerListRejectsBadSemester(t *testing.T) {
	h := NewAssessmentHandler(&assessmentServiceMock{})
	c, w := newGinContext(http.MethodGet, "/assessments?semester=first", nil)
	h.List(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAssessmentHandlerMaterialize(t *testing.T) {
	h := NewAssessmentHandler(&assessmentServiceMock{})
	c, w := newGinContext(http.MethodPost, "/assessments/a1/materialize", nil)
	c.Params = gin.Params{{Key: "id", Value: "a1"}}
	h.Materialize(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"created":2`)
}
