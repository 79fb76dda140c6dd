package grading

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-academic-api/internal/models"
)

var (
	odd  = models.AcademicPeriod{AcademicYear: "2024/2025", Semester: 1}
	even = models.AcademicPeriod{AcademicYear: "2024/2025", Semester: 2}
)

func score(v float64) *float64 { return &v }

func record(student, subject string, period models.AcademicPeriod, weight float64, s *float64) models.ScoreRecord {
	return models.ScoreRecord{
		AssessmentID:   subject + "-" + period.String(),
		StudentID:      student,
		SubjectID:      subject,
		ClassroomID:    "x-ipa-1",
		MaxScore:       100,
		Weight:         weight,
		Score:          s,
		IsSubmitted:    s != nil,
		AcademicPeriod: period,
	}
}

func TestSubjectGradeSingleAssessment(t *testing.T) {
	grade, ok := SubjectGrade([]models.ScoreRecord{record("s1", "math", odd, 0.3, score(85))})

	require.True(t, ok)
	assert.Equal(t, 85.0, grade)
	assert.Equal(t, models.LetterB, LetterGrade(grade))
}

func TestSubjectGradeWeightedMean(t *testing.T) {
	grade, ok := SubjectGrade([]models.ScoreRecord{
		record("s1", "math", odd, 0.4, score(80)),
		record("s1", "math", odd, 0.6, score(90)),
	})

	require.True(t, ok)
	assert.Equal(t, 86.0, grade)
}

func TestSubjectGradeRoundsHalfUp(t *testing.T) {
	// 84.985 exactly; half-even or binary float rounding would yield 84.98.
	grade, ok := SubjectGrade([]models.ScoreRecord{
		record("s1", "math", odd, 0.5, score(84.98)),
		record("s1", "math", odd, 0.5, score(84.99)),
	})

	require.True(t, ok)
	assert.Equal(t, 84.99, grade)
}

func TestSubjectGradeSkipsUngraded(t *testing.T) {
	grade, ok := SubjectGrade([]models.ScoreRecord{
		record("s1", "math", odd, 0.5, nil),
		record("s1", "math", odd, 0.2, score(70)),
	})

	require.True(t, ok)
	assert.Equal(t, 70.0, grade)
}

func TestSubjectGradeAbsentIsNotZero(t *testing.T) {
	_, ok := SubjectGrade([]models.ScoreRecord{record("s1", "math", odd, 0.5, nil)})
	assert.False(t, ok)

	_, ok = SubjectGrade(nil)
	assert.False(t, ok)

	grade, ok := SubjectGrade([]models.ScoreRecord{record("s1", "math", odd, 0.5, score(0))})
	assert.True(t, ok)
	assert.Equal(t, 0.0, grade)
}

func TestSubjectGradeStaysWithinScoreBounds(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 500; i++ {
		n := 1 + rng.Intn(6)
		records := make([]models.ScoreRecord, 0, n)
		for j := 0; j < n; j++ {
			weight := float64(1+rng.Intn(100)) / 100
			records = append(records, record("s1", "math", odd, weight, score(float64(rng.Intn(10001))/100)))
		}
		grade, ok := SubjectGrade(records)
		require.True(t, ok)
		require.GreaterOrEqual(t, grade, 0.0)
		require.LessOrEqual(t, grade, 100.0)
	}
}

func TestComputePeriodGPASkipsUngradedSubjects(t *testing.T) {
	gpa := ComputePeriodGPA(odd, []models.ScoreRecord{
		record("s1", "math", odd, 1, score(90)),
		record("s1", "biology", odd, 0.5, score(75.5)),
		record("s1", "physics", odd, 0.5, nil),
	})

	require.True(t, gpa.Graded)
	assert.Equal(t, 82.75, gpa.Value)
	require.Len(t, gpa.Subjects, 3)
	assert.Equal(t, "biology", gpa.Subjects[0].SubjectID)
	assert.False(t, gpa.Subjects[2].Graded)
}

func TestNoDataAndZeroAreDistinguishable(t *testing.T) {
	records := []models.ScoreRecord{
		record("s1", "math", odd, 0.5, nil),
		record("s1", "physics", odd, 0.5, nil),
	}

	gpa := ComputePeriodGPA(odd, records)

	assert.Equal(t, 0.0, gpa.Value)
	assert.False(t, gpa.Graded)
	for _, subject := range gpa.Subjects {
		assert.False(t, subject.Graded, subject.SubjectID)
	}

	failing := ComputePeriodGPA(odd, []models.ScoreRecord{record("s2", "math", odd, 0.5, score(0))})
	assert.Equal(t, 0.0, failing.Value)
	assert.True(t, failing.Graded)
}

func TestComputeCumulativeGPAExcludesEmptyPeriods(t *testing.T) {
	empty := models.AcademicPeriod{AcademicYear: "2025/2026", Semester: 1}
	cumulative := ComputeCumulativeGPA([]models.ScoreRecord{
		record("s1", "math", odd, 1, score(80)),
		record("s1", "math", even, 1, score(90)),
		record("s1", "math", empty, 1, nil),
	})

	require.True(t, cumulative.Graded)
	assert.Equal(t, 85.0, cumulative.Value)
	require.Len(t, cumulative.Periods, 3)
	assert.Equal(t, odd, cumulative.Periods[0].Period)
	assert.Equal(t, even, cumulative.Periods[1].Period)
	assert.False(t, cumulative.Periods[2].Graded)
}

func TestComputeCumulativeGPAWithoutData(t *testing.T) {
	cumulative := ComputeCumulativeGPA(nil)

	assert.False(t, cumulative.Graded)
	assert.Equal(t, 0.0, cumulative.Value)
	assert.Empty(t, cumulative.Periods)
}

func TestLetterGradeBoundaries(t *testing.T) {
	cases := map[float64]models.Letter{
		100:   models.LetterA,
		90:    models.LetterA,
		89.99: models.LetterB,
		80:    models.LetterB,
		79.99: models.LetterC,
		70:    models.LetterC,
		69.99: models.LetterD,
		60:    models.LetterD,
		59.99: models.LetterF,
		0:     models.LetterF,
	}
	for value, want := range cases {
		assert.Equal(t, want, LetterGrade(value), "grade %.2f", value)
	}
	assert.True(t, Passed(60, PassingThreshold))
	assert.False(t, Passed(59.99, PassingThreshold))
}
