package models

// Letter is a letter grade band.
type Letter string

const (
	LetterA Letter = "A"
	LetterB Letter = "B"
	LetterC Letter = "C"
	LetterD Letter = "D"
	LetterF Letter = "F"
)

// Letters lists every band from best to worst.
var Letters = []Letter{LetterA, LetterB, LetterC, LetterD, LetterF}

// RankingEntry is one row of a class ranking.
type RankingEntry struct {
	StudentID   string  `json:"student_id"`
	GPA         float64 `json:"gpa"`
	LetterGrade Letter  `json:"letter_grade"`
	Rank        int     `json:"rank"`
}

// PassFailSummary reports pass/fail counts and percentages over a ranked population.
type PassFailSummary struct {
	Threshold float64 `json:"threshold"`
	Total     int     `json:"total"`
	Passed    int     `json:"passed"`
	Failed    int     `json:"failed"`
	PassRate  float64 `json:"pass_rate"`
	FailRate  float64 `json:"fail_rate"`
}

// SubjectGradeRow is a subject line in a student's period report. FinalGrade is nil when the
// student has no recorded score in the subject.
type SubjectGradeRow struct {
	SubjectID   string   `json:"subject_id"`
	FinalGrade  *float64 `json:"final_grade"`
	LetterGrade *Letter  `json:"letter_grade,omitempty"`
}

// StudentPeriodReport summarises a student's grades in one academic period.
type StudentPeriodReport struct {
	StudentID   string            `json:"student_id"`
	Period      AcademicPeriod    `json:"period"`
	Subjects    []SubjectGradeRow `json:"subjects"`
	GPA         float64           `json:"gpa"`
	Graded      bool              `json:"graded"`
	LetterGrade *Letter           `json:"letter_grade,omitempty"`
	Passed      *bool             `json:"passed,omitempty"`
}

// PeriodGPARow is a per-period line of a cumulative report.
type PeriodGPARow struct {
	Period AcademicPeriod `json:"period"`
	GPA    float64        `json:"gpa"`
	Graded bool           `json:"graded"`
}

// StudentCumulativeReport summarises GPA across every period a student has assessments in.
type StudentCumulativeReport struct {
	StudentID     string         `json:"student_id"`
	Periods       []PeriodGPARow `json:"periods"`
	CumulativeGPA float64        `json:"cumulative_gpa"`
	Graded        bool           `json:"graded"`
}

// ClassRankingReport bundles the ranking of a classroom with its aggregate statistics.
type ClassRankingReport struct {
	ClassroomID  string          `json:"classroom_id"`
	Period       AcademicPeriod  `json:"period"`
	Rankings     []RankingEntry  `json:"rankings"`
	Distribution map[Letter]int  `json:"distribution"`
	PassFail     PassFailSummary `json:"pass_fail"`
	Unranked     []string        `json:"unranked"`
}
