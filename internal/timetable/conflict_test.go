package timetable

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-academic-api/internal/models"
)

var period2425 = models.AcademicPeriod{AcademicYear: "2024/2025", Semester: 1}

func entry(id, teacher, room string, day models.DayOfWeek, start, end models.ClockTime) models.ScheduleEntry {
	return models.ScheduleEntry{
		ID:             id,
		TeacherID:      teacher,
		ClassroomID:    room,
		SubjectID:      "math",
		DayOfWeek:      day,
		StartTime:      start,
		EndTime:        end,
		IsActive:       true,
		AcademicPeriod: period2425,
	}
}

func TestCheckConflictBackToBackSameTeacher(t *testing.T) {
	existing := []models.ScheduleEntry{entry("s1", "t1", "r1", models.Monday, models.MustClock(8, 0), models.MustClock(9, 0))}
	proposed := entry("", "t1", "r2", models.Monday, models.MustClock(9, 0), models.MustClock(10, 0))

	result := CheckConflict(proposed, existing)

	assert.False(t, result.HasTeacherConflict)
	assert.False(t, result.HasClassroomConflict)
	assert.Empty(t, result.ConflictingEntries)
}

func TestCheckConflictSameClassroomDifferentTeachers(t *testing.T) {
	existing := []models.ScheduleEntry{entry("s1", "t1", "r1", models.Monday, models.MustClock(8, 0), models.MustClock(9, 30))}
	proposed := entry("", "t2", "r1", models.Monday, models.MustClock(9, 0), models.MustClock(10, 0))

	result := CheckConflict(proposed, existing)

	assert.True(t, result.HasClassroomConflict)
	assert.False(t, result.HasTeacherConflict)
	require.Len(t, result.ConflictingEntries, 1)
	assert.Equal(t, "s1", result.ConflictingEntries[0].ID)
	assert.Equal(t, []models.ConflictDimension{models.ConflictClassroom}, result.Conflicts[0].Dimensions)
}

func TestCheckConflictReportsEveryCollision(t *testing.T) {
	existing := []models.ScheduleEntry{
		entry("s1", "t1", "r9", models.Monday, models.MustClock(8, 0), models.MustClock(9, 0)),
		entry("s2", "t9", "r1", models.Monday, models.MustClock(8, 30), models.MustClock(9, 30)),
		entry("s3", "t1", "r1", models.Monday, models.MustClock(9, 15), models.MustClock(10, 0)),
		entry("s4", "t1", "r1", models.Tuesday, models.MustClock(8, 0), models.MustClock(10, 0)),
	}
	proposed := entry("", "t1", "r1", models.Monday, models.MustClock(8, 0), models.MustClock(9, 30))

	result := CheckConflict(proposed, existing)

	assert.True(t, result.HasTeacherConflict)
	assert.True(t, result.HasClassroomConflict)
	require.Len(t, result.ConflictingEntries, 3)
	assert.Equal(t, "s1", result.ConflictingEntries[0].ID)
	assert.Equal(t, "s2", result.ConflictingEntries[1].ID)
	assert.Equal(t, "s3", result.ConflictingEntries[2].ID)
	assert.Equal(t, []models.ConflictDimension{models.ConflictTeacher, models.ConflictClassroom}, result.Conflicts[2].Dimensions)
}

func TestCheckConflictExcludesSelf(t *testing.T) {
	self := entry("s1", "t1", "r1", models.Monday, models.MustClock(8, 0), models.MustClock(9, 0))
	edited := self
	edited.EndTime = models.MustClock(9, 30)

	result := CheckConflict(edited, []models.ScheduleEntry{self})

	assert.False(t, result.HasConflict())
	assert.Empty(t, result.ConflictingEntries)
}

func TestCheckConflictSelfExclusionUsesIdentityNotValue(t *testing.T) {
	twin := entry("s2", "t1", "r1", models.Monday, models.MustClock(8, 0), models.MustClock(9, 0))
	proposed := entry("s1", "t1", "r1", models.Monday, models.MustClock(8, 0), models.MustClock(9, 0))

	result := CheckConflict(proposed, []models.ScheduleEntry{twin})

	assert.True(t, result.HasTeacherConflict)
	assert.True(t, result.HasClassroomConflict)
}

func TestCheckConflictIgnoresInactiveAndOtherPeriods(t *testing.T) {
	inactive := entry("s1", "t1", "r1", models.Monday, models.MustClock(8, 0), models.MustClock(9, 0))
	inactive.IsActive = false
	otherSemester := entry("s2", "t1", "r1", models.Monday, models.MustClock(8, 0), models.MustClock(9, 0))
	otherSemester.Semester = 2
	otherYear := entry("s3", "t1", "r1", models.Monday, models.MustClock(8, 0), models.MustClock(9, 0))
	otherYear.AcademicYear = "2023/2024"
	proposed := entry("", "t1", "r1", models.Monday, models.MustClock(8, 0), models.MustClock(9, 0))

	result := CheckConflict(proposed, []models.ScheduleEntry{inactive, otherSemester, otherYear})

	assert.False(t, result.HasConflict())
}

func TestCheckConflictUnrelatedOverlapIsIgnored(t *testing.T) {
	existing := []models.ScheduleEntry{entry("s1", "t2", "r2", models.Monday, models.MustClock(8, 0), models.MustClock(9, 0))}
	proposed := entry("", "t1", "r1", models.Monday, models.MustClock(8, 0), models.MustClock(9, 0))

	result := CheckConflict(proposed, existing)

	assert.False(t, result.HasConflict())
	assert.NotNil(t, result.ConflictingEntries)
}

func TestCheckConflictDoesNotMutateInput(t *testing.T) {
	existing := []models.ScheduleEntry{entry("s1", "t1", "r1", models.Monday, models.MustClock(8, 0), models.MustClock(9, 0))}
	snapshot := append([]models.ScheduleEntry(nil), existing...)
	proposed := entry("", "t1", "r1", models.Monday, models.MustClock(8, 30), models.MustClock(9, 30))

	_ = CheckConflict(proposed, existing)

	assert.Equal(t, snapshot, existing)
}
