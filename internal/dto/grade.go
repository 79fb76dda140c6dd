package dto

import "github.com/noah-isme/sma-academic-api/internal/models"

// PeriodQuery selects an academic period from query parameters.
type PeriodQuery struct {
	AcademicYear string `form:"academicYear" json:"academic_year" validate:"required"`
	Semester     int    `form:"semester" json:"semester" validate:"required,min=1,max=2"`
}

// Period converts the query into a model value.
func (q PeriodQuery) Period() models.AcademicPeriod {
	return models.AcademicPeriod{AcademicYear: q.AcademicYear, Semester: q.Semester}
}

// WarmupPayload identifies a ranking to recompute in the background.
type WarmupPayload struct {
	ClassroomID string                `json:"classroom_id"`
	Period      models.AcademicPeriod `json:"period"`
}
