package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-academic-api/internal/dto"
	"github.com/noah-isme/sma-academic-api/internal/models"
	"github.com/noah-isme/sma-academic-api/internal/repository"
	appErrors "github.com/noah-isme/sma-academic-api/pkg/errors"
	"github.com/noah-isme/sma-academic-api/pkg/logger"
	"github.com/noah-isme/sma-academic-api/pkg/validator"
)

type assessmentRepository interface {
	List(ctx context.Context, filter models.AssessmentFilter) ([]models.Assessment, int, error)
	FindByID(ctx context.Context, id string) (*models.Assessment, error)
	Create(ctx context.Context, assessment *models.Assessment) (int64, error)
	MaterializePendingScores(ctx context.Context, assessmentID string) (int64, error)
	UpdateIfUngraded(ctx context.Context, assessment *models.Assessment) ([]models.StudentAssessmentScore, error)
	DeleteIfUngraded(ctx context.Context, id string) ([]models.StudentAssessmentScore, error)
}

type scoreRepository interface {
	ListByAssessment(ctx context.Context, assessmentID string) ([]models.StudentAssessmentScore, error)
	Record(ctx context.Context, assessmentID, studentID string, score *float64, submitted bool) (*models.StudentAssessmentScore, error)
}

// rankingWarmer schedules a background recomputation of a class ranking.
type rankingWarmer interface {
	Enqueue(key string, payload dto.WarmupPayload) (bool, error)
}

// AssessmentService manages assessments and the scores recorded against them.
type AssessmentService struct {
	assessments assessmentRepository
	scores      scoreRepository
	cache       *CacheService
	warmer      rankingWarmer
	metrics     *MetricsService
	validator   *validator.Validator
	logger      *zap.Logger
}

// NewAssessmentService constructs an AssessmentService. cache, warmer and metrics may be nil.
func NewAssessmentService(assessments assessmentRepository, scores scoreRepository, cache *CacheService, warmer rankingWarmer, metrics *MetricsService, validate *validator.Validator, logr *zap.Logger) *AssessmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logr == nil {
		logr = zap.NewNop()
	}
	return &AssessmentService{
		assessments: assessments,
		scores:      scores,
		cache:       cache,
		warmer:      warmer,
		metrics:     metrics,
		validator:   validate,
		logger:      logr,
	}
}

// List returns assessments with pagination metadata.
func (s *AssessmentService) List(ctx context.Context, filter models.AssessmentFilter) ([]models.Assessment, *models.Pagination, error) {
	assessments, total, err := s.assessments.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Internal(err, "failed to list assessments")
	}
	if assessments == nil {
		assessments = []models.Assessment{}
	}
	page, size := pageBounds(filter.Page, filter.PageSize)
	return assessments, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns one assessment.
func (s *AssessmentService) Get(ctx context.Context, id string) (*models.Assessment, error) {
	assessment, err := s.assessments.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "assessment not found")
		}
		return nil, appErrors.Internal(err, "failed to load assessment")
	}
	return assessment, nil
}

// ListScores returns every score row of an assessment.
func (s *AssessmentService) ListScores(ctx context.Context, assessmentID string) ([]models.StudentAssessmentScore, error) {
	if _, err := s.Get(ctx, assessmentID); err != nil {
		return nil, err
	}
	scores, err := s.scores.ListByAssessment(ctx, assessmentID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list scores")
	}
	if scores == nil {
		scores = []models.StudentAssessmentScore{}
	}
	return scores, nil
}

// Create stores an assessment and one pending score per actively enrolled student. Teachers can only
// create assessments they own; the caller becomes the owner when no teacher is given.
func (s *AssessmentService) Create(ctx context.Context, claims *models.JWTClaims, req dto.CreateAssessmentRequest) (*dto.AssessmentResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, invalid(s.validator, err, "invalid assessment payload")
	}

	teacherID := req.TeacherID
	if claims != nil {
		if teacherID == "" {
			teacherID = claims.UserID
		}
		if claims.Role == models.RoleTeacher && teacherID != claims.UserID {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "teachers can only create their own assessments")
		}
	}
	if teacherID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "teacher_id is required")
	}

	assessment := models.Assessment{
		SubjectID:      req.SubjectID,
		ClassroomID:    req.ClassroomID,
		TeacherID:      teacherID,
		Title:          req.Title,
		Kind:           models.AssessmentKind(req.Kind),
		MaxScore:       req.MaxScore,
		Weight:         req.Weight,
		DueDate:        req.DueDate,
		AcademicPeriod: models.AcademicPeriod{AcademicYear: req.AcademicYear, Semester: req.Semester},
	}
	created, err := s.assessments.Create(ctx, &assessment)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to create assessment")
	}

	s.assessmentsChanged(ctx, &assessment)
	logger.WithContext(ctx, s.logger).Info("assessment created",
		zap.String("assessment_id", assessment.ID),
		zap.String("classroom_id", assessment.ClassroomID),
		zap.Int64("pending_scores", created),
	)
	return &dto.AssessmentResponse{Assessment: assessment, PendingScores: created}, nil
}

// MaterializePendingScores adds pending scores for students enrolled after the assessment was created.
func (s *AssessmentService) MaterializePendingScores(ctx context.Context, assessmentID string) (*dto.MaterializeResult, error) {
	if _, err := s.Get(ctx, assessmentID); err != nil {
		return nil, err
	}
	created, err := s.assessments.MaterializePendingScores(ctx, assessmentID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to materialize pending scores")
	}
	return &dto.MaterializeResult{AssessmentID: assessmentID, Created: created}, nil
}

// Update edits an assessment while no score has been recorded for it.
func (s *AssessmentService) Update(ctx context.Context, id string, req dto.UpdateAssessmentRequest) (*models.Assessment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, invalid(s.validator, err, "invalid assessment payload")
	}
	assessment, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	assessment.SubjectID = req.SubjectID
	assessment.Title = req.Title
	assessment.Kind = models.AssessmentKind(req.Kind)
	assessment.MaxScore = req.MaxScore
	assessment.Weight = req.Weight
	assessment.DueDate = req.DueDate

	recorded, err := s.assessments.UpdateIfUngraded(ctx, assessment)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "assessment not found")
		}
		return nil, appErrors.Internal(err, "failed to update assessment")
	}
	if len(recorded) > 0 {
		return nil, lockedError(id, "assessment with recorded scores cannot be edited", recorded)
	}
	s.assessmentsChanged(ctx, assessment)
	return assessment, nil
}

// Delete removes an assessment with its pending scores. Recorded scores block the deletion and are
// returned in the error details.
func (s *AssessmentService) Delete(ctx context.Context, id string) error {
	assessment, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	recorded, err := s.assessments.DeleteIfUngraded(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "assessment not found")
		}
		return appErrors.Internal(err, "failed to delete assessment")
	}
	if len(recorded) > 0 {
		return lockedError(id, "assessment with recorded scores cannot be deleted", recorded)
	}
	s.assessmentsChanged(ctx, assessment)
	logger.WithContext(ctx, s.logger).Info("assessment deleted", zap.String("assessment_id", id))
	return nil
}

// RecordScore stores a student's raw score, which must lie within [0, maxScore].
func (s *AssessmentService) RecordScore(ctx context.Context, assessmentID, studentID string, req dto.RecordScoreRequest) (*models.StudentAssessmentScore, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, invalid(s.validator, err, "invalid score payload")
	}
	assessment, err := s.Get(ctx, assessmentID)
	if err != nil {
		return nil, err
	}

	submitted := true
	if req.IsSubmitted != nil {
		submitted = *req.IsSubmitted
	}
	saved, err := s.record(ctx, assessment, studentID, req.Score, submitted)
	if err != nil {
		return nil, err
	}
	s.metrics.ObserveScoreWrite("record")
	return saved, nil
}

// ClearScore resets a student's score to ungraded.
func (s *AssessmentService) ClearScore(ctx context.Context, assessmentID, studentID string) (*models.StudentAssessmentScore, error) {
	assessment, err := s.Get(ctx, assessmentID)
	if err != nil {
		return nil, err
	}
	saved, err := s.record(ctx, assessment, studentID, nil, false)
	if err != nil {
		return nil, err
	}
	s.metrics.ObserveScoreWrite("clear")
	return saved, nil
}

func (s *AssessmentService) record(ctx context.Context, assessment *models.Assessment, studentID string, score *float64, submitted bool) (*models.StudentAssessmentScore, error) {
	saved, err := s.scores.Record(ctx, assessment.ID, studentID, score, submitted)
	if err != nil {
		var rangeErr *repository.ScoreRangeError
		switch {
		case errors.As(err, &rangeErr):
			return nil, appErrors.WithDetails(
				appErrors.Validation(err, fmt.Sprintf("score must not exceed max score %g", rangeErr.MaxScore)),
				map[string]string{"score": fmt.Sprintf("score must be between 0 and %g", rangeErr.MaxScore)},
			)
		case errors.Is(err, sql.ErrNoRows):
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student is not assessed by this assessment")
		}
		return nil, appErrors.Internal(err, "failed to record score")
	}
	s.gradesChanged(ctx, assessment, studentID)
	return saved, nil
}

// gradesChanged drops the cached reports a score change affects and queues the ranking for
// recomputation. Failures are logged; the score itself is already stored.
func (s *AssessmentService) gradesChanged(ctx context.Context, assessment *models.Assessment, studentID string) {
	_ = s.cache.Invalidate(ctx,
		rankingKey(assessment.ClassroomID, assessment.AcademicPeriod),
		studentPeriodKey(studentID, assessment.AcademicPeriod),
		studentCumulativeKey(studentID),
	)
	if s.warmer == nil {
		return
	}
	key := rankingKey(assessment.ClassroomID, assessment.AcademicPeriod)
	payload := dto.WarmupPayload{ClassroomID: assessment.ClassroomID, Period: assessment.AcademicPeriod}
	if _, err := s.warmer.Enqueue(key, payload); err != nil {
		s.logger.Warn("ranking warm-up not scheduled", zap.String("key", key), zap.Error(err))
	}
}

// assessmentsChanged drops every cached report of the assessment's period. Reports list each subject
// that has an assessment, so adding, moving or removing one changes them even before any score exists.
func (s *AssessmentService) assessmentsChanged(ctx context.Context, assessment *models.Assessment) {
	_ = s.cache.Invalidate(ctx,
		rankingKey(assessment.ClassroomID, assessment.AcademicPeriod),
		studentPeriodKey("*", assessment.AcademicPeriod),
		studentCumulativeKey("*"),
	)
}

func lockedError(assessmentID, message string, recorded []models.StudentAssessmentScore) error {
	domainErr := &models.AssessmentGradedError{Message: message, AssessmentID: assessmentID, Scores: recorded}
	wrapped := appErrors.Wrap(domainErr, appErrors.ErrAssessmentLocked.Code, appErrors.ErrAssessmentLocked.Status, message)
	return appErrors.WithDetails(wrapped, domainErr)
}
