package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/sma-academic-api/internal/models"
	"github.com/noah-isme/sma-academic-api/pkg/database"
)

const scheduleColumns = "id, teacher_id, classroom_id, subject_id, academic_year, semester, day_of_week, start_time, end_time, is_active, created_at, updated_at"

// maxSerializableAttempts bounds retries of a serialisable transaction that lost a race.
const maxSerializableAttempts = 3

// ConflictGuard inspects the active entries a write would compete with and returns an error to abort
// the write.
type ConflictGuard func(entry models.ScheduleEntry, candidates []models.ScheduleEntry) error

// BatchItemError reports which entry of a batch aborted BulkCreateChecked.
type BatchItemError struct {
	Index int
	Err   error
}

func (e *BatchItemError) Error() string {
	return fmt.Sprintf("batch item %d: %v", e.Index, e.Err)
}

func (e *BatchItemError) Unwrap() error {
	return e.Err
}

// ScheduleRepository provides persistence for schedule entries.
type ScheduleRepository struct {
	db *sqlx.DB
}

// NewScheduleRepository creates a new schedule repository.
func NewScheduleRepository(db *sqlx.DB) *ScheduleRepository {
	return &ScheduleRepository{db: db}
}

// List returns schedule entries with optional filtering and pagination.
func (r *ScheduleRepository) List(ctx context.Context, filter models.ScheduleFilter) ([]models.ScheduleEntry, int, error) {
	base := "FROM schedule_entries WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.AcademicYear != "" {
		conditions = append(conditions, fmt.Sprintf("academic_year = $%d", len(args)+1))
		args = append(args, filter.AcademicYear)
	}
	if filter.Semester != 0 {
		conditions = append(conditions, fmt.Sprintf("semester = $%d", len(args)+1))
		args = append(args, filter.Semester)
	}
	if filter.TeacherID != "" {
		conditions = append(conditions, fmt.Sprintf("teacher_id = $%d", len(args)+1))
		args = append(args, filter.TeacherID)
	}
	if filter.ClassroomID != "" {
		conditions = append(conditions, fmt.Sprintf("classroom_id = $%d", len(args)+1))
		args = append(args, filter.ClassroomID)
	}
	if filter.SubjectID != "" {
		conditions = append(conditions, fmt.Sprintf("subject_id = $%d", len(args)+1))
		args = append(args, filter.SubjectID)
	}
	if filter.DayOfWeek != "" {
		conditions = append(conditions, fmt.Sprintf("day_of_week = $%d", len(args)+1))
		args = append(args, filter.DayOfWeek)
	}
	if !filter.IncludeInactive {
		conditions = append(conditions, "is_active = TRUE")
	}

	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	sortBy := filter.SortBy
	if sortBy == "" {
		sortBy = "day_of_week"
	}
	allowedSorts := map[string]string{
		"day_of_week": dayOrderExpr + ", start_time",
		"start_time":  "start_time",
		"created_at":  "created_at",
	}
	orderExpr, ok := allowedSorts[sortBy]
	if !ok {
		orderExpr = allowedSorts["day_of_week"]
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "ASC"
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s %s ORDER BY %s %s LIMIT %d OFFSET %d", scheduleColumns, base, orderExpr, order, size, offset)
	var entries []models.ScheduleEntry
	if err := r.db.SelectContext(ctx, &entries, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list schedule entries: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count schedule entries: %w", err)
	}

	return entries, total, nil
}

// dayOrderExpr sorts day names Monday first.
const dayOrderExpr = "CASE day_of_week WHEN 'MONDAY' THEN 1 WHEN 'TUESDAY' THEN 2 WHEN 'WEDNESDAY' THEN 3 WHEN 'THURSDAY' THEN 4 WHEN 'FRIDAY' THEN 5 WHEN 'SATURDAY' THEN 6 ELSE 7 END"

// FindByID loads a schedule entry by id.
func (r *ScheduleRepository) FindByID(ctx context.Context, id string) (*models.ScheduleEntry, error) {
	query := fmt.Sprintf("SELECT %s FROM schedule_entries WHERE id = $1", scheduleColumns)
	var entry models.ScheduleEntry
	if err := r.db.GetContext(ctx, &entry, query, id); err != nil {
		return nil, err
	}
	return &entry, nil
}

// ListByTeacher returns the active weekly timetable of a teacher in a period.
func (r *ScheduleRepository) ListByTeacher(ctx context.Context, teacherID string, period models.AcademicPeriod) ([]models.ScheduleEntry, error) {
	query := fmt.Sprintf("SELECT %s FROM schedule_entries WHERE teacher_id = $1 AND academic_year = $2 AND semester = $3 AND is_active = TRUE ORDER BY %s, start_time", scheduleColumns, dayOrderExpr)
	var entries []models.ScheduleEntry
	if err := r.db.SelectContext(ctx, &entries, query, teacherID, period.AcademicYear, period.Semester); err != nil {
		return nil, fmt.Errorf("list schedule entries by teacher: %w", err)
	}
	return entries, nil
}

// ListByClassroom returns the active weekly timetable of a classroom in a period.
func (r *ScheduleRepository) ListByClassroom(ctx context.Context, classroomID string, period models.AcademicPeriod) ([]models.ScheduleEntry, error) {
	query := fmt.Sprintf("SELECT %s FROM schedule_entries WHERE classroom_id = $1 AND academic_year = $2 AND semester = $3 AND is_active = TRUE ORDER BY %s, start_time", scheduleColumns, dayOrderExpr)
	var entries []models.ScheduleEntry
	if err := r.db.SelectContext(ctx, &entries, query, classroomID, period.AcademicYear, period.Semester); err != nil {
		return nil, fmt.Errorf("list schedule entries by classroom: %w", err)
	}
	return entries, nil
}

// ConflictCandidates returns active entries of the same period and day that share the teacher or the
// classroom of entry.
func (r *ScheduleRepository) ConflictCandidates(ctx context.Context, entry models.ScheduleEntry) ([]models.ScheduleEntry, error) {
	return r.conflictCandidates(ctx, r.db, entry)
}

func (r *ScheduleRepository) conflictCandidates(ctx context.Context, q sqlx.QueryerContext, entry models.ScheduleEntry) ([]models.ScheduleEntry, error) {
	query := fmt.Sprintf("SELECT %s FROM schedule_entries WHERE academic_year = $1 AND semester = $2 AND day_of_week = $3 AND is_active = TRUE AND (teacher_id = $4 OR classroom_id = $5)", scheduleColumns)
	var entries []models.ScheduleEntry
	if err := sqlx.SelectContext(ctx, q, &entries, query, entry.AcademicYear, entry.Semester, entry.DayOfWeek, entry.TeacherID, entry.ClassroomID); err != nil {
		return nil, fmt.Errorf("load conflict candidates: %w", err)
	}
	return entries, nil
}

// CreateChecked inserts entry after guard accepted the current conflict candidates. Reading the
// candidates and inserting happen in one serialisable transaction.
func (r *ScheduleRepository) CreateChecked(ctx context.Context, entry *models.ScheduleEntry, guard ConflictGuard) error {
	return r.serializable(ctx, func(tx *sqlx.Tx) error {
		return r.insertChecked(ctx, tx, entry, guard)
	})
}

// BulkCreateChecked inserts every entry in a single serialisable transaction. Each entry is checked
// against persisted entries and the entries inserted before it; the first failure aborts the batch and
// is returned as a *BatchItemError carrying the entry's position.
func (r *ScheduleRepository) BulkCreateChecked(ctx context.Context, entries []models.ScheduleEntry, guard ConflictGuard) error {
	return r.serializable(ctx, func(tx *sqlx.Tx) error {
		for i := range entries {
			if err := r.insertChecked(ctx, tx, &entries[i], guard); err != nil {
				return &BatchItemError{Index: i, Err: err}
			}
		}
		return nil
	})
}

// UpdateChecked rewrites entry after guard accepted the current conflict candidates.
func (r *ScheduleRepository) UpdateChecked(ctx context.Context, entry *models.ScheduleEntry, guard ConflictGuard) error {
	return r.serializable(ctx, func(tx *sqlx.Tx) error {
		candidates, err := r.conflictCandidates(ctx, tx, *entry)
		if err != nil {
			return err
		}
		if guard != nil {
			if err := guard(*entry, candidates); err != nil {
				return err
			}
		}

		entry.UpdatedAt = time.Now().UTC()
		const query = `UPDATE schedule_entries SET teacher_id = :teacher_id, classroom_id = :classroom_id, subject_id = :subject_id, academic_year = :academic_year, semester = :semester, day_of_week = :day_of_week, start_time = :start_time, end_time = :end_time, is_active = :is_active, updated_at = :updated_at WHERE id = :id`
		res, err := sqlx.NamedExecContext(ctx, tx, query, entry)
		if err != nil {
			return fmt.Errorf("update schedule entry: %w", err)
		}
		if affected, err := res.RowsAffected(); err == nil && affected == 0 {
			return sql.ErrNoRows
		}
		return nil
	})
}

// Deactivate marks an entry inactive. Inactive entries never take part in conflict detection.
func (r *ScheduleRepository) Deactivate(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE schedule_entries SET is_active = FALSE, updated_at = $2 WHERE id = $1`, id, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("deactivate schedule entry: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (r *ScheduleRepository) insertChecked(ctx context.Context, tx *sqlx.Tx, entry *models.ScheduleEntry, guard ConflictGuard) error {
	candidates, err := r.conflictCandidates(ctx, tx, *entry)
	if err != nil {
		return err
	}
	if guard != nil {
		if err := guard(*entry, candidates); err != nil {
			return err
		}
	}

	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = now
	}
	entry.UpdatedAt = now
	entry.IsActive = true

	const query = `INSERT INTO schedule_entries (id, teacher_id, classroom_id, subject_id, academic_year, semester, day_of_week, start_time, end_time, is_active, created_at, updated_at) VALUES (:id, :teacher_id, :classroom_id, :subject_id, :academic_year, :semester, :day_of_week, :start_time, :end_time, :is_active, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, tx, query, entry); err != nil {
		return fmt.Errorf("create schedule entry: %w", err)
	}
	return nil
}

// serializable runs fn in a SERIALIZABLE transaction, retrying when PostgreSQL reports a
// serialization failure.
func (r *ScheduleRepository) serializable(ctx context.Context, fn func(*sqlx.Tx) error) error {
	var err error
	for attempt := 0; attempt < maxSerializableAttempts; attempt++ {
		err = database.WithTx(ctx, r.db, sql.LevelSerializable, fn)
		if !isSerializationFailure(err) {
			return err
		}
	}
	return err
}

func isSerializationFailure(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "40001"
}
