package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-academic-api/internal/dto"
	"github.com/noah-isme/sma-academic-api/internal/models"
	"github.com/noah-isme/sma-academic-api/internal/repository"
	"github.com/noah-isme/sma-academic-api/internal/timetable"
	appErrors "github.com/noah-isme/sma-academic-api/pkg/errors"
	"github.com/noah-isme/sma-academic-api/pkg/logger"
	"github.com/noah-isme/sma-academic-api/pkg/validator"
)

type scheduleRepository interface {
	List(ctx context.Context, filter models.ScheduleFilter) ([]models.ScheduleEntry, int, error)
	FindByID(ctx context.Context, id string) (*models.ScheduleEntry, error)
	ListByTeacher(ctx context.Context, teacherID string, period models.AcademicPeriod) ([]models.ScheduleEntry, error)
	ListByClassroom(ctx context.Context, classroomID string, period models.AcademicPeriod) ([]models.ScheduleEntry, error)
	ConflictCandidates(ctx context.Context, entry models.ScheduleEntry) ([]models.ScheduleEntry, error)
	CreateChecked(ctx context.Context, entry *models.ScheduleEntry, guard repository.ConflictGuard) error
	BulkCreateChecked(ctx context.Context, entries []models.ScheduleEntry, guard repository.ConflictGuard) error
	UpdateChecked(ctx context.Context, entry *models.ScheduleEntry, guard repository.ConflictGuard) error
	Deactivate(ctx context.Context, id string) error
}

// ScheduleService coordinates timetable writes with conflict detection.
type ScheduleService struct {
	repo      scheduleRepository
	cache     *CacheService
	metrics   *MetricsService
	validator *validator.Validator
	cacheTTL  time.Duration
	logger    *zap.Logger
}

// NewScheduleService instantiates ScheduleService. cache and metrics may be nil.
func NewScheduleService(repo scheduleRepository, cache *CacheService, metrics *MetricsService, validate *validator.Validator, cacheTTL time.Duration, logr *zap.Logger) *ScheduleService {
	if validate == nil {
		validate = validator.New()
	}
	if logr == nil {
		logr = zap.NewNop()
	}
	return &ScheduleService{repo: repo, cache: cache, metrics: metrics, validator: validate, cacheTTL: cacheTTL, logger: logr}
}

// List returns schedule entries with pagination metadata.
func (s *ScheduleService) List(ctx context.Context, filter models.ScheduleFilter) ([]models.ScheduleEntry, *models.Pagination, error) {
	if filter.DayOfWeek != "" && !filter.DayOfWeek.Valid() {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "invalid day_of_week")
	}
	entries, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Internal(err, "failed to list schedules")
	}
	page, size := pageBounds(filter.Page, filter.PageSize)
	return nonNilEntries(entries), &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns one schedule entry.
func (s *ScheduleService) Get(ctx context.Context, id string) (*models.ScheduleEntry, error) {
	entry, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "schedule not found")
		}
		return nil, appErrors.Internal(err, "failed to load schedule")
	}
	return entry, nil
}

// ListByTeacher returns the teacher's weekly timetable for a period.
func (s *ScheduleService) ListByTeacher(ctx context.Context, teacherID string, period models.AcademicPeriod) ([]models.ScheduleEntry, error) {
	entries, _, err := loadThrough(ctx, s.cache, teacherTimetableKey(teacherID, period), s.cacheTTL, func() ([]models.ScheduleEntry, error) {
		entries, err := s.repo.ListByTeacher(ctx, teacherID, period)
		return nonNilEntries(entries), err
	})
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list teacher schedules")
	}
	return entries, nil
}

// ListByClassroom returns the classroom's weekly timetable for a period.
func (s *ScheduleService) ListByClassroom(ctx context.Context, classroomID string, period models.AcademicPeriod) ([]models.ScheduleEntry, error) {
	entries, _, err := loadThrough(ctx, s.cache, classroomTimetableKey(classroomID, period), s.cacheTTL, func() ([]models.ScheduleEntry, error) {
		entries, err := s.repo.ListByClassroom(ctx, classroomID, period)
		return nonNilEntries(entries), err
	})
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list classroom schedules")
	}
	return entries, nil
}

// Check runs conflict detection for a proposal without writing anything.
func (s *ScheduleService) Check(ctx context.Context, req dto.ScheduleCheckRequest) (*models.ConflictResult, error) {
	entry, err := s.buildEntry(req.ScheduleEntryRequest)
	if err != nil {
		return nil, err
	}
	entry.ID = req.ExcludeID

	candidates, err := s.repo.ConflictCandidates(ctx, entry)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to check schedule conflicts")
	}
	result := timetable.CheckConflict(entry, candidates)
	s.metrics.ObserveConflictCheck(result)
	return &result, nil
}

// Create stores a new entry unless it collides with an active one.
func (s *ScheduleService) Create(ctx context.Context, req dto.ScheduleEntryRequest) (*models.ScheduleEntry, error) {
	entry, err := s.buildEntry(req)
	if err != nil {
		return nil, err
	}

	if err := s.repo.CreateChecked(ctx, &entry, s.guard); err != nil {
		return nil, s.writeError(err, "failed to create schedule")
	}
	s.invalidate(ctx, entry)
	logger.WithContext(ctx, s.logger).Info("schedule created",
		zap.String("schedule_id", entry.ID),
		zap.String("teacher_id", entry.TeacherID),
		zap.String("classroom_id", entry.ClassroomID),
		zap.Stringer("period", entry.AcademicPeriod),
	)
	return &entry, nil
}

// Update rewrites an active entry, ignoring the entry itself during conflict detection.
func (s *ScheduleService) Update(ctx context.Context, id string, req dto.ScheduleEntryRequest) (*models.ScheduleEntry, error) {
	existing, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !existing.IsActive {
		return nil, appErrors.Clone(appErrors.ErrConflict, "inactive schedule cannot be updated")
	}

	entry, err := s.buildEntry(req)
	if err != nil {
		return nil, err
	}
	entry.ID = existing.ID
	entry.IsActive = true
	entry.CreatedAt = existing.CreatedAt

	if err := s.repo.UpdateChecked(ctx, &entry, s.guard); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "schedule not found")
		}
		return nil, s.writeError(err, "failed to update schedule")
	}
	s.invalidate(ctx, *existing, entry)
	return &entry, nil
}

// Deactivate retires an entry so it no longer takes part in conflict detection.
func (s *ScheduleService) Deactivate(ctx context.Context, id string) error {
	existing, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Deactivate(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "schedule not found")
		}
		return appErrors.Internal(err, "failed to deactivate schedule")
	}
	s.invalidate(ctx, *existing)
	return nil
}

// BulkCreate stores many entries. Every item is checked against persisted entries and the items
// accepted before it. Without PartialOnError the first rejection aborts the batch and nothing is
// written.
func (s *ScheduleService) BulkCreate(ctx context.Context, req dto.BulkScheduleRequest) (*dto.BulkScheduleResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, invalid(s.validator, err, "invalid bulk schedule payload")
	}

	result := &dto.BulkScheduleResult{Created: []models.ScheduleEntry{}, Rejected: []dto.RejectedSchedule{}}
	entries := make([]models.ScheduleEntry, 0, len(req.Items))
	indexes := make([]int, 0, len(req.Items))
	for i, item := range req.Items {
		entry, err := s.buildEntry(item)
		if err != nil {
			if !req.PartialOnError {
				return nil, appErrors.WithDetails(appErrors.FromError(err), dto.RejectedSchedule{Index: i, Reason: err.Error()})
			}
			result.Rejected = append(result.Rejected, dto.RejectedSchedule{Index: i, Reason: err.Error()})
			continue
		}
		entries = append(entries, entry)
		indexes = append(indexes, i)
	}

	if req.PartialOnError {
		for n := range entries {
			entry := entries[n]
			if err := s.repo.CreateChecked(ctx, &entry, s.guard); err != nil {
				rejected, ok := rejection(indexes[n], err)
				if !ok {
					return nil, appErrors.Internal(err, "failed to bulk create schedules")
				}
				result.Rejected = append(result.Rejected, rejected)
				continue
			}
			result.Created = append(result.Created, entry)
		}
	} else if len(entries) > 0 {
		if err := s.repo.BulkCreateChecked(ctx, entries, s.guard); err != nil {
			var item *repository.BatchItemError
			if errors.As(err, &item) && item.Index >= 0 && item.Index < len(indexes) {
				if rejected, ok := rejection(indexes[item.Index], item.Err); ok {
					return nil, appErrors.WithDetails(appErrors.FromError(item.Err), rejected)
				}
			}
			return nil, appErrors.Internal(err, "failed to bulk create schedules")
		}
		result.Created = entries
	}

	s.invalidate(ctx, result.Created...)
	logger.WithContext(ctx, s.logger).Info("bulk schedule processed",
		zap.Int("requested", len(req.Items)),
		zap.Int("created", len(result.Created)),
		zap.Int("rejected", len(result.Rejected)),
	)
	return result, nil
}

// guard runs inside the repository transaction against the freshly loaded candidates.
func (s *ScheduleService) guard(entry models.ScheduleEntry, candidates []models.ScheduleEntry) error {
	result := timetable.CheckConflict(entry, candidates)
	s.metrics.ObserveConflictCheck(result)
	if !result.HasConflict() {
		return nil
	}
	return conflictError(entry, result)
}

func (s *ScheduleService) buildEntry(req dto.ScheduleEntryRequest) (models.ScheduleEntry, error) {
	if err := s.validator.Struct(req); err != nil {
		return models.ScheduleEntry{}, invalid(s.validator, err, "invalid schedule payload")
	}
	day, err := models.ParseDayOfWeek(req.DayOfWeek)
	if err != nil {
		return models.ScheduleEntry{}, appErrors.Validation(err, "invalid day_of_week")
	}
	start, err := models.ParseClockTime(req.StartTime)
	if err != nil {
		return models.ScheduleEntry{}, appErrors.Validation(err, "invalid start_time")
	}
	end, err := models.ParseClockTime(req.EndTime)
	if err != nil {
		return models.ScheduleEntry{}, appErrors.Validation(err, "invalid end_time")
	}
	if _, err := timetable.NewInterval(day, start, end); err != nil {
		return models.ScheduleEntry{}, appErrors.Validation(err, "invalid time range")
	}

	return models.ScheduleEntry{
		TeacherID:      req.TeacherID,
		ClassroomID:    req.ClassroomID,
		SubjectID:      req.SubjectID,
		DayOfWeek:      day,
		StartTime:      start,
		EndTime:        end,
		IsActive:       true,
		AcademicPeriod: models.AcademicPeriod{AcademicYear: req.AcademicYear, Semester: req.Semester},
	}, nil
}

func (s *ScheduleService) writeError(err error, message string) error {
	var appErr *appErrors.Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return appErrors.Internal(err, message)
}

func (s *ScheduleService) invalidate(ctx context.Context, entries ...models.ScheduleEntry) {
	if len(entries) == 0 {
		return
	}
	patterns := make([]string, 0, len(entries)*2)
	for _, entry := range entries {
		patterns = append(patterns,
			teacherTimetableKey(entry.TeacherID, entry.AcademicPeriod),
			classroomTimetableKey(entry.ClassroomID, entry.AcademicPeriod),
		)
	}
	_ = s.cache.Invalidate(ctx, patterns...)
}

func conflictError(entry models.ScheduleEntry, result models.ConflictResult) error {
	domainErr := &models.ScheduleConflictError{
		Message:   conflictMessage(result),
		Proposed:  entry,
		Conflicts: result.Conflicts,
	}
	wrapped := appErrors.Wrap(domainErr, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, "schedule conflict: "+domainErr.Message)
	return appErrors.WithDetails(wrapped, domainErr)
}

func conflictMessage(result models.ConflictResult) string {
	switch {
	case result.HasTeacherConflict && result.HasClassroomConflict:
		return "teacher and classroom already scheduled in this period"
	case result.HasTeacherConflict:
		return "teacher already scheduled in this period"
	default:
		return "classroom already scheduled in this period"
	}
}

// rejection reports a conflict as a bulk rejection; ok is false for any other failure.
func rejection(index int, err error) (dto.RejectedSchedule, bool) {
	var conflict *models.ScheduleConflictError
	if !errors.As(err, &conflict) {
		return dto.RejectedSchedule{}, false
	}
	return dto.RejectedSchedule{Index: index, Reason: conflict.Message, Conflicts: conflict.Conflicts}, true
}

func nonNilEntries(entries []models.ScheduleEntry) []models.ScheduleEntry {
	if entries == nil {
		return []models.ScheduleEntry{}
	}
	return entries
}

func teacherTimetableKey(teacherID string, period models.AcademicPeriod) string {
	return fmt.Sprintf("schedules:teacher:%s:%s", teacherID, period)
}

func classroomTimetableKey(classroomID string, period models.AcademicPeriod) string {
	return fmt.Sprintf("schedules:classroom:%s:%s", classroomID, period)
}
