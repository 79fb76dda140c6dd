package grading

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/sma-academic-api/internal/models"
)

// TieBreak orders two entries with equal GPA; it returns true when a ranks ahead of b.
type TieBreak func(a, b models.RankingEntry) bool

// ByStudentID breaks ties by ascending student ID. It is the default.
func ByStudentID(a, b models.RankingEntry) bool {
	return a.StudentID < b.StudentID
}

type rankConfig struct {
	tieBreak TieBreak
}

// RankOption customises ranking.
type RankOption func(*rankConfig)

// WithTieBreak replaces the secondary ordering used for equal GPAs.
func WithTieBreak(tb TieBreak) RankOption {
	return func(c *rankConfig) {
		if tb != nil {
			c.tieBreak = tb
		}
	}
}

// StudentGPA pairs a student with a computed period GPA.
type StudentGPA struct {
	StudentID string
	GPA       PeriodGPA
}

// Rank orders graded students by GPA descending and assigns ranks 1..n by position; equal GPAs never
// share a rank. Students without graded data are left out.
func Rank(students []StudentGPA, opts ...RankOption) []models.RankingEntry {
	cfg := rankConfig{tieBreak: ByStudentID}
	for _, opt := range opts {
		opt(&cfg)
	}

	entries := make([]models.RankingEntry, 0, len(students))
	for _, s := range students {
		if !s.GPA.Graded {
			continue
		}
		entries = append(entries, models.RankingEntry{
			StudentID:   s.StudentID,
			GPA:         s.GPA.Value,
			LetterGrade: LetterGrade(s.GPA.Value),
		})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].GPA != entries[j].GPA {
			return entries[i].GPA > entries[j].GPA
		}
		return cfg.tieBreak(entries[i], entries[j])
	})
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries
}

// RankClass computes the period GPA of every listed student from records of one period and ranks
// them. It also returns the students left unranked for lack of graded data, in input order.
func RankClass(period models.AcademicPeriod, studentIDs []string, records []models.ScoreRecord, opts ...RankOption) ([]models.RankingEntry, []string) {
	byStudent := make(map[string][]models.ScoreRecord, len(studentIDs))
	for _, r := range records {
		if r.AcademicPeriod != period {
			continue
		}
		byStudent[r.StudentID] = append(byStudent[r.StudentID], r)
	}

	seen := make(map[string]bool, len(studentIDs))
	students := make([]StudentGPA, 0, len(studentIDs))
	unranked := []string{}
	for _, id := range studentIDs {
		if seen[id] {
			continue
		}
		seen[id] = true
		gpa := ComputePeriodGPA(period, byStudent[id])
		if !gpa.Graded {
			unranked = append(unranked, id)
			continue
		}
		students = append(students, StudentGPA{StudentID: id, GPA: gpa})
	}
	return Rank(students, opts...), unranked
}

// Distribution counts ranked students per letter band. Every band is present.
func Distribution(rankings []models.RankingEntry) map[models.Letter]int {
	counts := make(map[models.Letter]int, len(models.Letters))
	for _, l := range models.Letters {
		counts[l] = 0
	}
	for _, r := range rankings {
		counts[r.LetterGrade]++
	}
	return counts
}

// PassFail computes pass and fail proportions of the ranked population as percentages.
func PassFail(rankings []models.RankingEntry, threshold float64) models.PassFailSummary {
	summary := models.PassFailSummary{Threshold: threshold, Total: len(rankings)}
	for _, r := range rankings {
		if Passed(r.GPA, threshold) {
			summary.Passed++
		} else {
			summary.Failed++
		}
	}
	if summary.Total == 0 {
		return summary
	}
	total := decimal.NewFromInt(int64(summary.Total))
	hundred := decimal.NewFromInt(100)
	summary.PassRate = round2(decimal.NewFromInt(int64(summary.Passed)).Mul(hundred).Div(total))
	summary.FailRate = round2(decimal.NewFromInt(int64(summary.Failed)).Mul(hundred).Div(total))
	return summary
}
