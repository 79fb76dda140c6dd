// Package grading turns raw assessment scores into subject grades, GPAs, letter grades and class
// rankings.
//
// All functions are pure and work on snapshots supplied by the caller. Missing data is modelled
// explicitly: a subject with no recorded score has no grade, and a period or cumulative GPA built from
// no grades carries Graded == false rather than relying on a zero sentinel.
package grading

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/sma-academic-api/internal/models"
)

// PassingThreshold is the lowest grade that still passes (a D).
const PassingThreshold = 60.0

// SubjectResult is the weighted final grade of one subject. Grade is meaningful only when Graded.
type SubjectResult struct {
	SubjectID string
	Grade     float64
	Graded    bool
}

// PeriodGPA is the unweighted mean of a student's subject grades within one academic period.
type PeriodGPA struct {
	Period   models.AcademicPeriod
	Value    float64
	Graded   bool
	Subjects []SubjectResult
}

// CumulativeGPA is the mean of the graded period GPAs of a student.
type CumulativeGPA struct {
	Value   float64
	Graded  bool
	Periods []PeriodGPA
}

// SubjectGrade computes Σ(score·weight)/Σ(weight) over the recorded scores, rounded half-up to two
// decimals. The boolean is false when no score has been recorded.
func SubjectGrade(records []models.ScoreRecord) (float64, bool) {
	sum := decimal.Zero
	weights := decimal.Zero
	for _, r := range records {
		if r.Score == nil {
			continue
		}
		w := decimal.NewFromFloat(r.Weight)
		sum = sum.Add(decimal.NewFromFloat(*r.Score).Mul(w))
		weights = weights.Add(w)
	}
	// Weights are validated positive when an assessment is created.
	if !weights.IsPositive() {
		return 0, false
	}
	return round2(sum.Div(weights)), true
}

// SubjectGrades groups records by subject and grades each subject, ordered by subject ID.
func SubjectGrades(records []models.ScoreRecord) []SubjectResult {
	bySubject := make(map[string][]models.ScoreRecord)
	for _, r := range records {
		bySubject[r.SubjectID] = append(bySubject[r.SubjectID], r)
	}
	results := make([]SubjectResult, 0, len(bySubject))
	for subjectID, group := range bySubject {
		grade, ok := SubjectGrade(group)
		results = append(results, SubjectResult{SubjectID: subjectID, Grade: grade, Graded: ok})
	}
	sort.Slice(results, func(i, j int) bool { return results[i].SubjectID < results[j].SubjectID })
	return results
}

// ComputePeriodGPA averages the graded subjects of records that all belong to one period. Subjects
// without a grade are skipped; when none is graded the GPA is 0 with Graded == false.
func ComputePeriodGPA(period models.AcademicPeriod, records []models.ScoreRecord) PeriodGPA {
	subjects := SubjectGrades(records)
	grades := make([]float64, 0, len(subjects))
	for _, s := range subjects {
		if s.Graded {
			grades = append(grades, s.Grade)
		}
	}
	value, ok := mean(grades)
	return PeriodGPA{Period: period, Value: value, Graded: ok, Subjects: subjects}
}

// ComputeCumulativeGPA groups a student's records by academic period, computes every period GPA and
// averages the graded ones. Periods without data are reported but excluded from the mean.
func ComputeCumulativeGPA(records []models.ScoreRecord) CumulativeGPA {
	byPeriod := make(map[models.AcademicPeriod][]models.ScoreRecord)
	for _, r := range records {
		byPeriod[r.AcademicPeriod] = append(byPeriod[r.AcademicPeriod], r)
	}

	periods := make([]PeriodGPA, 0, len(byPeriod))
	for period, group := range byPeriod {
		periods = append(periods, ComputePeriodGPA(period, group))
	}
	sort.Slice(periods, func(i, j int) bool {
		a, b := periods[i].Period, periods[j].Period
		if a.AcademicYear != b.AcademicYear {
			return a.AcademicYear < b.AcademicYear
		}
		return a.Semester < b.Semester
	})

	values := make([]float64, 0, len(periods))
	for _, p := range periods {
		if p.Graded {
			values = append(values, p.Value)
		}
	}
	value, ok := mean(values)
	return CumulativeGPA{Value: value, Graded: ok, Periods: periods}
}

// LetterGrade maps a 0-100 grade onto its band; lower bounds are inclusive.
func LetterGrade(score float64) models.Letter {
	switch {
	case score >= 90:
		return models.LetterA
	case score >= 80:
		return models.LetterB
	case score >= 70:
		return models.LetterC
	case score >= 60:
		return models.LetterD
	default:
		return models.LetterF
	}
}

// Passed reports whether score meets threshold.
func Passed(score, threshold float64) bool {
	return score >= threshold
}

func mean(values []float64) (float64, bool) {
	if len(values) == 0 {
		return 0, false
	}
	sum := decimal.Zero
	for _, v := range values {
		sum = sum.Add(decimal.NewFromFloat(v))
	}
	return round2(sum.Div(decimal.NewFromInt(int64(len(values))))), true
}

// round2 rounds half away from zero, which is half-up for the non-negative grades handled here.
func round2(d decimal.Decimal) float64 {
	return d.Round(2).InexactFloat64()
}
