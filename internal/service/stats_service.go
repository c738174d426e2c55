package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/pbessa/diario-turma-api/internal/models"
	appErrors "github.com/pbessa/diario-turma-api/pkg/errors"
)

type classLister interface {
	ListByYear(ctx context.Context, year int) ([]models.Class, error)
	FindByID(ctx context.Context, id string) (*models.Class, error)
}

type rosterLister interface {
	ListByClass(ctx context.Context, classID string) ([]models.Student, error)
	FindByID(ctx context.Context, classID, studentID string) (*models.Student, error)
}

type recordReader interface {
	ListByClass(ctx context.Context, classID string) ([]models.DailyRecord, error)
	ListByClassDate(ctx context.Context, classID, date string) ([]models.DailyRecord, error)
	ListByStudent(ctx context.Context, classID, studentID string) (map[string]models.DailyRecord, error)
}

// StatsServiceConfig tunes aggregation behaviour.
type StatsServiceConfig struct {
	CacheTTL       time.Duration
	TrendWindow    int
	ChartSeriesMax int
}

// StatsService computes derived attendance/homework/backpack statistics over
// the record store. It never mutates records; every call re-aggregates from
// the store (optionally short-circuited by the cache, which record writes
// invalidate).
type StatsService struct {
	classes  classLister
	students rosterLister
	records  recordReader
	cache    *CacheService
	metrics  *MetricsService
	logger   *zap.Logger
	now      func() time.Time
	cfg      StatsServiceConfig
}

// StatsServiceParams groups constructor dependencies.
type StatsServiceParams struct {
	Classes  classLister
	Students rosterLister
	Records  recordReader
	Cache    *CacheService
	Metrics  *MetricsService
	Logger   *zap.Logger
	Config   StatsServiceConfig
}

// NewStatsService constructs a StatsService with sane defaults.
func NewStatsService(params StatsServiceParams) *StatsService {
	cfg := params.Config
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 5 * time.Minute
	}
	if cfg.TrendWindow <= 0 {
		cfg.TrendWindow = 30
	}
	if cfg.ChartSeriesMax <= 0 {
		cfg.ChartSeriesMax = 30
	}
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StatsService{
		classes:  params.Classes,
		students: params.Students,
		records:  params.Records,
		cache:    params.Cache,
		metrics:  params.Metrics,
		logger:   logger,
		now:      time.Now,
		cfg:      cfg,
	}
}

// AggregateClass folds one class's full record history into percentages.
// Unknown classes fail with NotFound; a class without students or records
// yields the zero-valued aggregate.
func (s *StatsService) AggregateClass(ctx context.Context, classID string) (*models.ClassStats, error) {
	classID = strings.TrimSpace(classID)
	if classID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "classId is required")
	}
	defer s.observe("class")()

	if _, err := s.classes.FindByID(ctx, classID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, storeErr(err, "failed to load class")
	}

	students, err := s.students.ListByClass(ctx, classID)
	if err != nil {
		return nil, storeErr(err, "failed to load students")
	}
	records, err := s.records.ListByClass(ctx, classID)
	if err != nil {
		return nil, storeErr(err, "failed to load daily records")
	}

	t := foldRecords(records)
	stats := t.stats(len(students))
	return &stats, nil
}

// AggregateYear rolls every class of the year into one summary. Totals come
// from summed raw counts so that differently sized classes carry their real
// weight. A class whose fetch fails is logged and skipped.
func (s *StatsService) AggregateYear(ctx context.Context, year int) (*models.YearStats, error) {
	if year <= 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "year is required")
	}
	cacheKey := fmt.Sprintf("stats:year:%d", year)
	var cached models.YearStats
	if hit, err := s.cache.Get(ctx, cacheKey, &cached); err == nil && hit {
		return &cached, nil
	}
	defer s.observe("year")()

	classes, err := s.classes.ListByYear(ctx, year)
	if err != nil {
		return nil, storeErr(err, "failed to list classes")
	}

	result := &models.YearStats{Year: year, TotalClasses: len(classes), PerClass: []models.ComparisonRow{}}
	var combined tally
	for _, class := range classes {
		if class.Active {
			result.ActiveClasses++
		}
		students, err := s.students.ListByClass(ctx, class.ID)
		if err != nil {
			s.logger.Warn("skipping class in year aggregation", zap.String("class_id", class.ID), zap.Error(err))
			continue
		}
		records, err := s.records.ListByClass(ctx, class.ID)
		if err != nil {
			s.logger.Warn("skipping class in year aggregation", zap.String("class_id", class.ID), zap.Error(err))
			continue
		}
		t := foldRecords(records)
		result.PerClass = append(result.PerClass, models.ComparisonRow{
			ClassID:    class.ID,
			ClassName:  class.Name,
			ClassStats: t.stats(len(students)),
		})
		result.TotalStudents += len(students)
		combined.merge(t)
	}
	sortComparisonRows(result.PerClass)
	result.Totals = combined.stats(result.TotalStudents)

	_ = s.cache.Set(ctx, cacheKey, result, s.cfg.CacheTTL)
	return result, nil
}

// AggregateDay restricts the fold to records dated exactly at date across all
// of the year's classes. No data yields the zero-valued aggregate, not an
// error. TotalStudents counts students with a record that day.
func (s *StatsService) AggregateDay(ctx context.Context, date string, year int) (*models.DailyStats, error) {
	if err := validateDate(date); err != nil {
		return nil, err
	}
	if year <= 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "year is required")
	}
	defer s.observe("day")()

	classes, err := s.classes.ListByYear(ctx, year)
	if err != nil {
		return nil, storeErr(err, "failed to list classes")
	}

	result := &models.DailyStats{Date: date}
	var combined tally
	for _, class := range classes {
		records, err := s.records.ListByClassDate(ctx, class.ID, date)
		if err != nil {
			s.logger.Warn("skipping class in daily aggregation", zap.String("class_id", class.ID), zap.String("date", date), zap.Error(err))
			continue
		}
		if len(records) == 0 {
			continue
		}
		t := foldRecords(records)
		result.PerClass = append(result.PerClass, models.ComparisonRow{
			ClassID:    class.ID,
			ClassName:  class.Name,
			ClassStats: t.stats(t.records),
		})
		combined.merge(t)
	}
	sortComparisonRows(result.PerClass)
	result.ClassStats = combined.stats(combined.records)
	return result, nil
}

// AggregateMonth runs the daily aggregation once per calendar day, skips days
// without data, and averages the remaining days' percentages.
func (s *StatsService) AggregateMonth(ctx context.Context, year, month int) (*models.MonthlyStats, error) {
	if year <= 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "year is required")
	}
	if month < 1 || month > 12 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "month must be between 1 and 12")
	}
	defer s.observe("month")()

	result := &models.MonthlyStats{Year: year, Month: month, DailySeries: []models.DailyStats{}}
	var attendanceSum, homeworkSum, backpackSum int

	daysInMonth := time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
	for day := 1; day <= daysInMonth; day++ {
		date := fmt.Sprintf("%04d-%02d-%02d", year, month, day)
		daily, err := s.AggregateDay(ctx, date, year)
		if err != nil {
			s.logger.Warn("skipping day in monthly aggregation", zap.String("date", date), zap.Error(err))
			continue
		}
		if daily.TotalStudents == 0 {
			continue
		}
		daily.PerClass = nil
		result.DailySeries = append(result.DailySeries, *daily)
		attendanceSum += daily.AttendancePercentage
		homeworkSum += daily.HomeworkPercentage
		backpackSum += daily.BackpackPercentage
	}

	result.TotalDaysWithData = len(result.DailySeries)
	if n := result.TotalDaysWithData; n > 0 {
		result.Averages = models.MonthlyAverages{
			Attendance: clampPercent(roundHalfUp(float64(attendanceSum) / float64(n))),
			Homework:   clampPercent(roundHalfUp(float64(homeworkSum) / float64(n))),
			Backpack:   clampPercent(roundHalfUp(float64(backpackSum) / float64(n))),
		}
	}
	return result, nil
}

// AggregateTrend returns per-day aggregates for the trailing window ending
// today, oldest first. Days without data and days whose fetch fails are
// skipped so one bad day never blanks the whole chart.
func (s *StatsService) AggregateTrend(ctx context.Context) ([]models.DailyStats, error) {
	today := s.now().UTC()
	cacheKey := "stats:trend:" + today.Format(models.DateLayout)
	var cached []models.DailyStats
	if hit, err := s.cache.Get(ctx, cacheKey, &cached); err == nil && hit {
		return cached, nil
	}
	defer s.observe("trend")()

	series := []models.DailyStats{}
	for i := s.cfg.TrendWindow - 1; i >= 0; i-- {
		day := today.AddDate(0, 0, -i)
		daily, err := s.AggregateDay(ctx, day.Format(models.DateLayout), day.Year())
		if err != nil {
			s.logger.Warn("skipping day in trend aggregation", zap.String("date", day.Format(models.DateLayout)), zap.Error(err))
			continue
		}
		if daily.TotalStudents == 0 {
			continue
		}
		daily.PerClass = nil
		series = append(series, *daily)
	}

	_ = s.cache.Set(ctx, cacheKey, series, s.cfg.CacheTTL)
	return series, nil
}

// AggregateStudent folds one student's history and builds the bounded
// chronological chart series.
func (s *StatsService) AggregateStudent(ctx context.Context, classID, studentID string) (*models.StudentStats, error) {
	classID = strings.TrimSpace(classID)
	studentID = strings.TrimSpace(studentID)
	if classID == "" || studentID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "classId and studentId are required")
	}
	defer s.observe("student")()

	if _, err := s.students.FindByID(ctx, classID, studentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, storeErr(err, "failed to load student")
	}

	history, err := s.records.ListByStudent(ctx, classID, studentID)
	if err != nil {
		return nil, storeErr(err, "failed to load daily records")
	}

	dates := make([]string, 0, len(history))
	for date := range history {
		dates = append(dates, date)
	}
	// ISO dates sort chronologically as plain strings.
	sort.Strings(dates)

	stats := &models.StudentStats{Series: []models.ChartPoint{}}
	var presentDays, homeworkDays, backpackDays int
	for _, date := range dates {
		record := history[date]
		point := models.ChartPoint{Date: date}
		if record.IsPresent {
			presentDays++
			point.Present = 1
			if record.BroughtHomework {
				homeworkDays++
				point.Homework = 1
			}
			if record.BroughtBackpack {
				backpackDays++
				point.Backpack = 1
			}
		}
		stats.Series = append(stats.Series, point)
	}

	stats.TotalDays = len(dates)
	stats.PresentDays = presentDays
	stats.AbsentDays = stats.TotalDays - presentDays
	stats.AttendancePercentage = percentOf(presentDays, stats.TotalDays)
	stats.HomeworkPercentage = percentOf(homeworkDays, presentDays)
	stats.BackpackPercentage = percentOf(backpackDays, presentDays)

	// Keep only the most recent points, dropping the oldest first.
	if max := s.cfg.ChartSeriesMax; len(stats.Series) > max {
		stats.Series = stats.Series[len(stats.Series)-max:]
	}
	return stats, nil
}

func (s *StatsService) observe(operation string) func() {
	if s.metrics == nil {
		return func() {}
	}
	start := time.Now()
	return func() {
		s.metrics.ObserveAggregation(operation, time.Since(start))
	}
}

// tally accumulates raw record counts before any percentage math. Homework
// and backpack only count on days the student was marked present.
type tally struct {
	records  int
	present  int
	homework int
	backpack int
}

func (t *tally) add(record models.DailyRecord) {
	t.records++
	if record.IsPresent {
		t.present++
		if record.BroughtHomework {
			t.homework++
		}
		if record.BroughtBackpack {
			t.backpack++
		}
	}
}

func (t *tally) merge(other tally) {
	t.records += other.records
	t.present += other.present
	t.homework += other.homework
	t.backpack += other.backpack
}

func (t tally) stats(totalStudents int) models.ClassStats {
	return models.ClassStats{
		TotalStudents:        totalStudents,
		TotalRecords:         t.records,
		PresentCount:         t.present,
		AttendancePercentage: percentOf(t.present, t.records),
		HomeworkPercentage:   percentOf(t.homework, t.present),
		BackpackPercentage:   percentOf(t.backpack, t.present),
	}
}

func foldRecords(records []models.DailyRecord) tally {
	var t tally
	for _, record := range records {
		t.add(record)
	}
	return t
}

// percentOf divides with half-up rounding and clamps into [0,100] so a write
// race observed mid-aggregation can never produce an out-of-range value.
func percentOf(part, total int) int {
	if total <= 0 {
		return 0
	}
	return clampPercent(roundHalfUp(float64(part) / float64(total) * 100))
}

func roundHalfUp(v float64) int {
	return int(math.Floor(v + 0.5))
}

func clampPercent(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

func storeErr(err error, message string) *appErrors.Error {
	return appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, message)
}
