package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-academic-api/internal/dto"
	"github.com/noah-isme/sma-academic-api/internal/grading"
	"github.com/noah-isme/sma-academic-api/internal/models"
	appErrors "github.com/noah-isme/sma-academic-api/pkg/errors"
	"github.com/noah-isme/sma-academic-api/pkg/export"
	"github.com/noah-isme/sma-academic-api/pkg/jobs"
)

type scoreRecordRepository interface {
	RecordsForStudent(ctx context.Context, studentID string, period *models.AcademicPeriod) ([]models.ScoreRecord, error)
	RecordsForClassroom(ctx context.Context, classroomID string, period models.AcademicPeriod) ([]models.ScoreRecord, error)
}

type rosterRepository interface {
	ListActiveStudentIDs(ctx context.Context, classroomID string, period models.AcademicPeriod) ([]string, error)
}

// GradeReportConfig tunes report computation.
type GradeReportConfig struct {
	PassingThreshold float64
	CacheTTL         time.Duration
}

// GradeReportService assembles GPA reports and class rankings from recorded scores.
type GradeReportService struct {
	records   scoreRecordRepository
	roster    rosterRepository
	cache     *CacheService
	metrics   *MetricsService
	threshold float64
	cacheTTL  time.Duration
	logger    *zap.Logger
}

// NewGradeReportService constructs a GradeReportService. cache and metrics may be nil.
func NewGradeReportService(records scoreRecordRepository, roster rosterRepository, cache *CacheService, metrics *MetricsService, cfg GradeReportConfig, logger *zap.Logger) *GradeReportService {
	if cfg.PassingThreshold <= 0 {
		cfg.PassingThreshold = grading.PassingThreshold
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GradeReportService{
		records:   records,
		roster:    roster,
		cache:     cache,
		metrics:   metrics,
		threshold: cfg.PassingThreshold,
		cacheTTL:  cfg.CacheTTL,
		logger:    logger,
	}
}

// StudentPeriodReport returns a student's subject grades and GPA for one period. Subjects without any
// recorded score are listed with a null grade.
func (s *GradeReportService) StudentPeriodReport(ctx context.Context, studentID string, period models.AcademicPeriod) (*models.StudentPeriodReport, error) {
	if err := validatePeriod(period); err != nil {
		return nil, err
	}
	report, _, err := loadThrough(ctx, s.cache, studentPeriodKey(studentID, period), s.cacheTTL, func() (*models.StudentPeriodReport, error) {
		records, err := s.records.RecordsForStudent(ctx, studentID, &period)
		if err != nil {
			return nil, err
		}
		return s.periodReport(studentID, period, records), nil
	})
	if err != nil {
		return nil, appErrors.Internal(err, "failed to build student report")
	}
	return report, nil
}

// StudentCumulative returns a student's GPA per period and across all periods.
func (s *GradeReportService) StudentCumulative(ctx context.Context, studentID string) (*models.StudentCumulativeReport, error) {
	report, _, err := loadThrough(ctx, s.cache, studentCumulativeKey(studentID), s.cacheTTL, func() (*models.StudentCumulativeReport, error) {
		records, err := s.records.RecordsForStudent(ctx, studentID, nil)
		if err != nil {
			return nil, err
		}
		cumulative := grading.ComputeCumulativeGPA(records)
		report := &models.StudentCumulativeReport{
			StudentID:     studentID,
			Periods:       make([]models.PeriodGPARow, 0, len(cumulative.Periods)),
			CumulativeGPA: cumulative.Value,
			Graded:        cumulative.Graded,
		}
		for _, p := range cumulative.Periods {
			report.Periods = append(report.Periods, models.PeriodGPARow{Period: p.Period, GPA: p.Value, Graded: p.Graded})
		}
		return report, nil
	})
	if err != nil {
		return nil, appErrors.Internal(err, "failed to build cumulative report")
	}
	return report, nil
}

// ClassRanking ranks the actively enrolled students of a classroom for a period.
func (s *GradeReportService) ClassRanking(ctx context.Context, classroomID string, period models.AcademicPeriod) (*models.ClassRankingReport, error) {
	if err := validatePeriod(period); err != nil {
		return nil, err
	}
	report, _, err := loadThrough(ctx, s.cache, rankingKey(classroomID, period), s.cacheTTL, func() (*models.ClassRankingReport, error) {
		return s.computeRanking(ctx, classroomID, period)
	})
	if err != nil {
		return nil, appErrors.Internal(err, "failed to build class ranking")
	}
	return report, nil
}

// Warm recomputes a class ranking and stores it in the cache.
func (s *GradeReportService) Warm(ctx context.Context, classroomID string, period models.AcademicPeriod) error {
	report, err := s.computeRanking(ctx, classroomID, period)
	if err != nil {
		return err
	}
	return s.cache.Set(ctx, rankingKey(classroomID, period), report, s.cacheTTL)
}

// WarmupHandler adapts Warm to the background queue.
func (s *GradeReportService) WarmupHandler() jobs.Handler[dto.WarmupPayload] {
	return func(ctx context.Context, job jobs.Job[dto.WarmupPayload]) error {
		return s.Warm(ctx, job.Payload.ClassroomID, job.Payload.Period)
	}
}

// ExportClassRanking renders the class ranking as a CSV or PDF file.
func (s *GradeReportService) ExportClassRanking(ctx context.Context, classroomID string, period models.AcademicPeriod, rawFormat string) (*export.File, error) {
	format, err := export.ParseFormat(rawFormat)
	if err != nil {
		return nil, appErrors.Validation(err, "invalid export format")
	}
	report, err := s.ClassRanking(ctx, classroomID, period)
	if err != nil {
		return nil, err
	}

	data := export.Dataset{
		Title:   fmt.Sprintf("Class ranking %s %s", classroomID, period),
		Headers: []string{"Rank", "Student", "GPA", "Letter"},
		Rows:    make([]map[string]string, 0, len(report.Rankings)),
		Notes: []string{
			fmt.Sprintf("Passing threshold: %s", formatGrade(report.PassFail.Threshold)),
			fmt.Sprintf("Passed: %d (%s%%)  Failed: %d (%s%%)", report.PassFail.Passed, formatGrade(report.PassFail.PassRate), report.PassFail.Failed, formatGrade(report.PassFail.FailRate)),
		},
	}
	for _, r := range report.Rankings {
		data.Rows = append(data.Rows, map[string]string{
			"Rank":    strconv.Itoa(r.Rank),
			"Student": r.StudentID,
			"GPA":     formatGrade(r.GPA),
			"Letter":  string(r.LetterGrade),
		})
	}
	if len(report.Unranked) > 0 {
		data.Notes = append(data.Notes, fmt.Sprintf("Not ranked (no recorded scores): %d", len(report.Unranked)))
	}

	file, err := export.Build(format, fmt.Sprintf("ranking-%s-%s", classroomID, period), data)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to render class ranking")
	}
	return file, nil
}

func (s *GradeReportService) computeRanking(ctx context.Context, classroomID string, period models.AcademicPeriod) (*models.ClassRankingReport, error) {
	studentIDs, err := s.roster.ListActiveStudentIDs(ctx, classroomID, period)
	if err != nil {
		return nil, err
	}
	records, err := s.records.RecordsForClassroom(ctx, classroomID, period)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	rankings, unranked := grading.RankClass(period, studentIDs, records)
	report := &models.ClassRankingReport{
		ClassroomID:  classroomID,
		Period:       period,
		Rankings:     rankings,
		Distribution: grading.Distribution(rankings),
		PassFail:     grading.PassFail(rankings, s.threshold),
		Unranked:     unranked,
	}
	s.metrics.ObserveRanking(time.Since(start), len(rankings))
	s.logger.Debug("class ranking computed",
		zap.String("classroom_id", classroomID),
		zap.Stringer("period", period),
		zap.Int("ranked", len(rankings)),
		zap.Int("unranked", len(unranked)),
	)
	return report, nil
}

func (s *GradeReportService) periodReport(studentID string, period models.AcademicPeriod, records []models.ScoreRecord) *models.StudentPeriodReport {
	gpa := grading.ComputePeriodGPA(period, records)
	report := &models.StudentPeriodReport{
		StudentID: studentID,
		Period:    period,
		Subjects:  make([]models.SubjectGradeRow, 0, len(gpa.Subjects)),
		GPA:       gpa.Value,
		Graded:    gpa.Graded,
	}
	for _, subject := range gpa.Subjects {
		row := models.SubjectGradeRow{SubjectID: subject.SubjectID}
		if subject.Graded {
			grade := subject.Grade
			letter := grading.LetterGrade(grade)
			row.FinalGrade = &grade
			row.LetterGrade = &letter
		}
		report.Subjects = append(report.Subjects, row)
	}
	if gpa.Graded {
		letter := grading.LetterGrade(gpa.Value)
		passed := grading.Passed(gpa.Value, s.threshold)
		report.LetterGrade = &letter
		report.Passed = &passed
	}
	return report
}

func validatePeriod(period models.AcademicPeriod) error {
	if period.AcademicYear == "" || period.Semester < 1 || period.Semester > 2 {
		return appErrors.Clone(appErrors.ErrValidation, "academic_year and semester (1 or 2) are required")
	}
	return nil
}

func formatGrade(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func studentPeriodKey(studentID string, period models.AcademicPeriod) string {
	return fmt.Sprintf("grades:student:%s:%s", studentID, period)
}

func studentCumulativeKey(studentID string) string {
	return fmt.Sprintf("grades:student:%s:cumulative", studentID)
}

func rankingKey(classroomID string, period models.AcademicPeriod) string {
	return fmt.Sprintf("grades:ranking:%s:%s", classroomID, period)
}
