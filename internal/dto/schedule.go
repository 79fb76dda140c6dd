package dto

import "github.com/noah-isme/sma-academic-api/internal/models"

// ScheduleEntryRequest proposes a weekly class period. Times use "HH:MM".
type ScheduleEntryRequest struct {
	TeacherID    string `json:"teacher_id" validate:"required"`
	ClassroomID  string `json:"classroom_id" validate:"required"`
	SubjectID    string `json:"subject_id" validate:"required"`
	AcademicYear string `json:"academic_year" validate:"required"`
	Semester     int    `json:"semester" validate:"required,min=1,max=2"`
	DayOfWeek    string `json:"day_of_week" validate:"required"`
	StartTime    string `json:"start_time" validate:"required"`
	EndTime      string `json:"end_time" validate:"required"`
}

// ScheduleCheckRequest runs conflict detection without writing. ExcludeID names an entry being
// edited so it does not collide with itself.
type ScheduleCheckRequest struct {
	ScheduleEntryRequest
	ExcludeID string `json:"exclude_id"`
}

// BulkScheduleRequest creates many entries. Items are validated one by one so a bad item can be
// rejected on its own. With PartialOnError each accepted item is kept even when
// others are rejected; otherwise the first rejection aborts the whole batch.
type BulkScheduleRequest struct {
	Items          []ScheduleEntryRequest `json:"items" validate:"required,min=1,max=200"`
	PartialOnError bool                   `json:"partial_on_error"`
}

// RejectedSchedule reports why one bulk item was not created.
type RejectedSchedule struct {
	Index     int                       `json:"index"`
	Reason    string                    `json:"reason"`
	Conflicts []models.ScheduleConflict `json:"conflicts,omitempty"`
}

// BulkScheduleResult summarises a bulk creation.
type BulkScheduleResult struct {
	Created  []models.ScheduleEntry `json:"created"`
	Rejected []RejectedSchedule     `json:"rejected"`
}
