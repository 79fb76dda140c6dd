package timetable

import "github.com/noah-isme/sma-academic-api/internal/models"

// CheckConflict compares a proposed entry with the existing ones and reports every collision.
//
// Only active entries of the same academic period are considered. An existing entry sharing the
// proposal's ID is the proposal itself (an edit) and is skipped. Teacher and classroom collisions are
// reported independently and an entry colliding on both is listed once.
func CheckConflict(proposed models.ScheduleEntry, existing []models.ScheduleEntry) models.ConflictResult {
	result := models.ConflictResult{
		ConflictingEntries: []models.ScheduleEntry{},
		Conflicts:          []models.ScheduleConflict{},
	}
	target := span(proposed)

	for _, entry := range existing {
		if !entry.IsActive || entry.Period() != proposed.Period() {
			continue
		}
		if proposed.ID != "" && entry.ID == proposed.ID {
			continue
		}
		if !Overlaps(target, span(entry)) {
			continue
		}

		var dims []models.ConflictDimension
		if entry.TeacherID == proposed.TeacherID {
			result.HasTeacherConflict = true
			dims = append(dims, models.ConflictTeacher)
		}
		if entry.ClassroomID == proposed.ClassroomID {
			result.HasClassroomConflict = true
			dims = append(dims, models.ConflictClassroom)
		}
		if len(dims) == 0 {
			continue
		}

		result.ConflictingEntries = append(result.ConflictingEntries, entry)
		result.Conflicts = append(result.Conflicts, describe(entry, dims))
	}
	return result
}

// span reads an entry's interval without re-validating it; persisted entries were validated on write.
func span(entry models.ScheduleEntry) Interval {
	return Interval{day: entry.DayOfWeek, start: entry.StartTime, end: entry.EndTime}
}

func describe(entry models.ScheduleEntry, dims []models.ConflictDimension) models.ScheduleConflict {
	return models.ScheduleConflict{
		ScheduleID:  entry.ID,
		TeacherID:   entry.TeacherID,
		ClassroomID: entry.ClassroomID,
		SubjectID:   entry.SubjectID,
		DayOfWeek:   entry.DayOfWeek,
		StartTime:   entry.StartTime,
		EndTime:     entry.EndTime,
		Dimensions:  dims,
	}
}
