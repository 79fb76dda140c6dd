package models

import (
	"fmt"
	"time"
)

// AcademicPeriod scopes schedules and assessments to one semester of an academic year.
type AcademicPeriod struct {
	AcademicYear string `db:"academic_year" json:"academic_year"`
	Semester     int    `db:"semester" json:"semester"`
}

// String renders the period as "2024/2025-S1".
func (p AcademicPeriod) String() string {
	return fmt.Sprintf("%s-S%d", p.AcademicYear, p.Semester)
}

// ScheduleEntry is a recurring weekly class period for a teacher in a classroom.
type ScheduleEntry struct {
	ID          string    `db:"id" json:"id"`
	TeacherID   string    `db:"teacher_id" json:"teacher_id"`
	ClassroomID string    `db:"classroom_id" json:"classroom_id"`
	SubjectID   string    `db:"subject_id" json:"subject_id"`
	DayOfWeek   DayOfWeek `db:"day_of_week" json:"day_of_week"`
	StartTime   ClockTime `db:"start_time" json:"start_time"`
	EndTime     ClockTime `db:"end_time" json:"end_time"`
	IsActive    bool      `db:"is_active" json:"is_active"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
	AcademicPeriod
}

// Period returns the academic period the entry belongs to.
func (e ScheduleEntry) Period() AcademicPeriod {
	return e.AcademicPeriod
}

// ScheduleFilter describes query params for listing schedule entries.
type ScheduleFilter struct {
	AcademicYear    string
	Semester        int
	TeacherID       string
	ClassroomID     string
	SubjectID       string
	DayOfWeek       DayOfWeek
	IncludeInactive bool
	Page            int
	PageSize        int
	SortBy          string
	SortOrder       string
}

// ConflictDimension names the resource two schedule entries compete for.
type ConflictDimension string

const (
	ConflictTeacher   ConflictDimension = "TEACHER"
	ConflictClassroom ConflictDimension = "CLASSROOM"
)

// ScheduleConflict describes one existing entry that collides with a proposal.
type ScheduleConflict struct {
	ScheduleID  string              `json:"schedule_id"`
	TeacherID   string              `json:"teacher_id"`
	ClassroomID string              `json:"classroom_id"`
	SubjectID   string              `json:"subject_id"`
	DayOfWeek   DayOfWeek           `json:"day_of_week"`
	StartTime   ClockTime           `json:"start_time"`
	EndTime     ClockTime           `json:"end_time"`
	Dimensions  []ConflictDimension `json:"dimensions"`
}

// ConflictResult is the outcome of checking a proposed entry against existing ones.
type ConflictResult struct {
	HasTeacherConflict   bool               `json:"has_teacher_conflict"`
	HasClassroomConflict bool               `json:"has_classroom_conflict"`
	ConflictingEntries   []ScheduleEntry    `json:"conflicting_entries"`
	Conflicts            []ScheduleConflict `json:"conflicts"`
}

// HasConflict reports whether any dimension collided.
func (r ConflictResult) HasConflict() bool {
	return r.HasTeacherConflict || r.HasClassroomConflict
}

// ScheduleConflictError is returned when a schedule collides with existing ones.
type ScheduleConflictError struct {
	Message   string             `json:"message"`
	Proposed  ScheduleEntry      `json:"proposed"`
	Conflicts []ScheduleConflict `json:"conflicts"`
}

// Error implements the error interface for conflict errors.
func (e *ScheduleConflictError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return e.Message
}
