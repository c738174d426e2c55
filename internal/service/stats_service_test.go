package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/pbessa/diario-turma-api/internal/models"
	appErrors "github.com/pbessa/diario-turma-api/pkg/errors"
)

type fakeClassStore struct {
	classes map[string]*models.Class
	byYear  map[int][]models.Class
	listErr error
	findErr error
}

func (f *fakeClassStore) ListByYear(_ context.Context, year int) ([]models.Class, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.byYear[year], nil
}

func (f *fakeClassStore) FindByID(_ context.Context, id string) (*models.Class, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	class, ok := f.classes[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return class, nil
}

type fakeStudentStore struct {
	byClass map[string][]models.Student
	errs    map[string]error
	findErr error
}

func (f *fakeStudentStore) ListByClass(_ context.Context, classID string) ([]models.Student, error) {
	if err := f.errs[classID]; err != nil {
		return nil, err
	}
	return f.byClass[classID], nil
}

func (f *fakeStudentStore) FindByID(_ context.Context, classID, studentID string) (*models.Student, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	for _, student := range f.byClass[classID] {
		if student.ID == studentID {
			return &student, nil
		}
	}
	return nil, sql.ErrNoRows
}

type fakeRecordStore struct {
	byClass     map[string][]models.DailyRecord
	byClassDate map[string][]models.DailyRecord
	byStudent   map[string]models.DailyRecord
	errs        map[string]error
	studentErr  error
}

func (f *fakeRecordStore) ListByClass(_ context.Context, classID string) ([]models.DailyRecord, error) {
	if err := f.errs[classID]; err != nil {
		return nil, err
	}
	return f.byClass[classID], nil
}

func (f *fakeRecordStore) ListByClassDate(_ context.Context, classID, date string) ([]models.DailyRecord, error) {
	if err := f.errs[classID]; err != nil {
		return nil, err
	}
	return f.byClassDate[classID+"|"+date], nil
}

func (f *fakeRecordStore) ListByStudent(_ context.Context, classID, studentID string) (map[string]models.DailyRecord, error) {
	if f.studentErr != nil {
		return nil, f.studentErr
	}
	return f.byStudent, nil
}

func record(present, homework, backpack bool) models.DailyRecord {
	return models.DailyRecord{IsPresent: present, BroughtHomework: homework, BroughtBackpack: backpack}
}

func students(n int) []models.Student {
	list := make([]models.Student, n)
	for i := range list {
		list[i] = models.Student{ID: fmt.Sprintf("s%d", i+1), Name: fmt.Sprintf("Aluno %d", i+1), Active: true}
	}
	return list
}

func newTestStatsService(classes *fakeClassStore, studs *fakeStudentStore, records *fakeRecordStore) *StatsService {
	return NewStatsService(StatsServiceParams{
		Classes:  classes,
		Students: studs,
		Records:  records,
		Logger:   zap.NewNop(),
	})
}

func TestPercentOf(t *testing.T) {
	assert.Equal(t, 0, percentOf(5, 0), "zero denominator yields zero")
	assert.Equal(t, 0, percentOf(0, 10))
	assert.Equal(t, 100, percentOf(10, 10))
	assert.Equal(t, 100, percentOf(12, 10), "excess clamps to 100")
	assert.Equal(t, 0, percentOf(-1, 10), "negative clamps to 0")
	assert.Equal(t, 67, percentOf(2, 3), "rounds half up")
	assert.Equal(t, 33, percentOf(1, 3))
	assert.Equal(t, 13, percentOf(1, 8), "12.5 rounds up, not to even")
}

func TestAggregateClass(t *testing.T) {
	classes := &fakeClassStore{classes: map[string]*models.Class{
		"c1": {ID: "c1", Name: "Turma A", Active: true},
	}}
	studs := &fakeStudentStore{byClass: map[string][]models.Student{"c1": students(3)}}
	records := &fakeRecordStore{byClass: map[string][]models.DailyRecord{
		"c1": {
			record(true, true, false),
			record(true, false, true),
			record(true, true, true),
			record(false, false, false),
		},
	}}
	svc := newTestStatsService(classes, studs, records)

	stats, err := svc.AggregateClass(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, 3, stats.TotalStudents)
	assert.Equal(t, 4, stats.TotalRecords)
	assert.Equal(t, 3, stats.PresentCount)
	assert.Equal(t, 75, stats.AttendancePercentage)
	// Homework/backpack ratios are taken over present records only.
	assert.Equal(t, 67, stats.HomeworkPercentage)
	assert.Equal(t, 67, stats.BackpackPercentage)
}

func TestAggregateClassAbsentStudentNeverCountsSupplies(t *testing.T) {
	classes := &fakeClassStore{classes: map[string]*models.Class{"c1": {ID: "c1"}}}
	studs := &fakeStudentStore{byClass: map[string][]models.Student{"c1": students(1)}}
	records := &fakeRecordStore{byClass: map[string][]models.DailyRecord{
		// Absent but flagged with homework: the flags must be ignored.
		"c1": {record(false, true, true)},
	}}
	svc := newTestStatsService(classes, studs, records)

	stats, err := svc.AggregateClass(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, 0, stats.PresentCount)
	assert.Equal(t, 0, stats.AttendancePercentage)
	assert.Equal(t, 0, stats.HomeworkPercentage)
	assert.Equal(t, 0, stats.BackpackPercentage)
}

func TestAggregateClassNoRecords(t *testing.T) {
	classes := &fakeClassStore{classes: map[string]*models.Class{"c1": {ID: "c1"}}}
	studs := &fakeStudentStore{byClass: map[string][]models.Student{"c1": students(5)}}
	records := &fakeRecordStore{}
	svc := newTestStatsService(classes, studs, records)

	stats, err := svc.AggregateClass(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, 5, stats.TotalStudents)
	assert.Equal(t, 0, stats.TotalRecords)
	assert.Equal(t, 0, stats.AttendancePercentage)
}

func TestAggregateClassNotFound(t *testing.T) {
	svc := newTestStatsService(&fakeClassStore{}, &fakeStudentStore{}, &fakeRecordStore{})

	_, err := svc.AggregateClass(context.Background(), "missing")
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
}

func TestAggregateClassStoreFailure(t *testing.T) {
	classes := &fakeClassStore{findErr: errors.New("connection refused")}
	svc := newTestStatsService(classes, &fakeStudentStore{}, &fakeRecordStore{})

	_, err := svc.AggregateClass(context.Background(), "c1")
	assert.True(t, appErrors.Is(err, appErrors.ErrStoreUnavailable))
}

func TestAggregateYearSumsCountsNotPercentages(t *testing.T) {
	classes := &fakeClassStore{byYear: map[int][]models.Class{2026: {
		{ID: "c1", Name: "Turma A", Active: true},
		{ID: "c2", Name: "Turma B", Active: true},
	}}}
	studs := &fakeStudentStore{byClass: map[string][]models.Student{
		"c1": students(4),
		"c2": students(6),
	}}
	records := &fakeRecordStore{byClass: map[string][]models.DailyRecord{
		"c1": {record(true, false, false), record(true, false, false), record(true, false, false), record(false, false, false)},
		"c2": {record(true, false, false), record(false, false, false), record(false, false, false), record(false, false, false), record(false, false, false), record(false, false, false)},
	}}
	svc := newTestStatsService(classes, studs, records)

	stats, err := svc.AggregateYear(context.Background(), 2026)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalClasses)
	assert.Equal(t, 10, stats.TotalStudents)
	// 3/4 and 1/6 present combine as 4/10 = 40%, not avg(75, 17) = 46%.
	assert.Equal(t, 40, stats.Totals.AttendancePercentage)
	require.Len(t, stats.PerClass, 2)
	assert.Equal(t, 75, stats.PerClass[0].AttendancePercentage)
	assert.Equal(t, 17, stats.PerClass[1].AttendancePercentage)
}

func TestAggregateYearSkipsFailingClass(t *testing.T) {
	classes := &fakeClassStore{byYear: map[int][]models.Class{2026: {
		{ID: "c1", Name: "Turma A", Active: true},
		{ID: "c2", Name: "Turma B", Active: true},
	}}}
	studs := &fakeStudentStore{byClass: map[string][]models.Student{
		"c1": students(2),
		"c2": students(2),
	}}
	records := &fakeRecordStore{
		byClass: map[string][]models.DailyRecord{"c1": {record(true, true, true)}},
		errs:    map[string]error{"c2": errors.New("timeout")},
	}
	svc := newTestStatsService(classes, studs, records)

	stats, err := svc.AggregateYear(context.Background(), 2026)
	require.NoError(t, err)
	assert.Len(t, stats.PerClass, 1)
	assert.Equal(t, "c1", stats.PerClass[0].ClassID)
	assert.Equal(t, 2, stats.TotalStudents)
}

func TestAggregateYearListFailure(t *testing.T) {
	classes := &fakeClassStore{listErr: errors.New("connection refused")}
	svc := newTestStatsService(classes, &fakeStudentStore{}, &fakeRecordStore{})

	_, err := svc.AggregateYear(context.Background(), 2026)
	assert.True(t, appErrors.Is(err, appErrors.ErrStoreUnavailable))
}

func TestAggregateYearEmpty(t *testing.T) {
	svc := newTestStatsService(&fakeClassStore{}, &fakeStudentStore{}, &fakeRecordStore{})

	stats, err := svc.AggregateYear(context.Background(), 2026)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.TotalClasses)
	assert.Equal(t, 0, stats.Totals.AttendancePercentage)
	assert.Empty(t, stats.PerClass)
}

func TestClassNameOrdering(t *testing.T) {
	rows := []models.ComparisonRow{
		{ClassName: "Turma 10"},
		{ClassName: "Turma 2"},
		{ClassName: "Turma I"},
		{ClassName: "Turma II"},
		{ClassName: "Zeta"},
	}
	sortComparisonRows(rows)

	got := make([]string, len(rows))
	for i, row := range rows {
		got[i] = row.ClassName
	}
	assert.Equal(t, []string{"Turma 2", "Turma 10", "Turma I", "Turma II", "Zeta"}, got)
}

func TestClassNameLess(t *testing.T) {
	assert.True(t, classNameLess("Turma 2", "Turma 10"), "arabic compares numerically")
	assert.True(t, classNameLess("Turma I", "Turma II"), "roman compares numerically")
	assert.True(t, classNameLess("Turma IX", "Turma X"))
	assert.True(t, classNameLess("turma a", "Turma B"), "lexical fallback ignores case")
	assert.False(t, classNameLess("Turma 2", "Turma 2"))
}

func TestAggregateDay(t *testing.T) {
	classes := &fakeClassStore{byYear: map[int][]models.Class{2026: {
		{ID: "c1", Name: "Turma A", Active: true},
		{ID: "c2", Name: "Turma B", Active: true},
	}}}
	records := &fakeRecordStore{byClassDate: map[string][]models.DailyRecord{
		"c1|2026-03-10": {record(true, true, false), record(false, false, false)},
		"c2|2026-03-10": {record(true, false, true)},
	}}
	svc := newTestStatsService(classes, &fakeStudentStore{}, records)

	stats, err := svc.AggregateDay(context.Background(), "2026-03-10", 2026)
	require.NoError(t, err)
	assert.Equal(t, "2026-03-10", stats.Date)
	// Students that day are those with a record.
	assert.Equal(t, 3, stats.TotalStudents)
	assert.Equal(t, 2, stats.PresentCount)
	assert.Equal(t, 67, stats.AttendancePercentage)
	assert.Len(t, stats.PerClass, 2)
}

func TestAggregateDayNoData(t *testing.T) {
	classes := &fakeClassStore{byYear: map[int][]models.Class{2026: {{ID: "c1", Name: "Turma A"}}}}
	svc := newTestStatsService(classes, &fakeStudentStore{}, &fakeRecordStore{})

	stats, err := svc.AggregateDay(context.Background(), "2026-03-10", 2026)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.TotalStudents)
	assert.Equal(t, 0, stats.AttendancePercentage)
	assert.Empty(t, stats.PerClass)
}

func TestAggregateDayInvalidDate(t *testing.T) {
	svc := newTestStatsService(&fakeClassStore{}, &fakeStudentStore{}, &fakeRecordStore{})

	_, err := svc.AggregateDay(context.Background(), "10/03/2026", 2026)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestAggregateDayRecordsDuration(t *testing.T) {
	metrics := NewMetricsService()
	classes := &fakeClassStore{byYear: map[int][]models.Class{2026: {{ID: "c1", Name: "Turma A"}}}}
	svc := NewStatsService(StatsServiceParams{
		Classes:  classes,
		Students: &fakeStudentStore{},
		Records:  &fakeRecordStore{},
		Metrics:  metrics,
		Logger:   zap.NewNop(),
	})

	_, err := svc.AggregateDay(context.Background(), "2026-03-10", 2026)
	require.NoError(t, err)
	assert.Equal(t, 1, testutil.CollectAndCount(metrics.aggregation, "stats_aggregation_duration_seconds"))
}

func TestAggregateMonthAveragesDailyPercentages(t *testing.T) {
	classes := &fakeClassStore{byYear: map[int][]models.Class{2026: {{ID: "c1", Name: "Turma A"}}}}
	records := &fakeRecordStore{byClassDate: map[string][]models.DailyRecord{
		// Two days with data: 100% and 50% attendance average to 75%.
		"c1|2026-03-02": {record(true, true, true), record(true, true, true)},
		"c1|2026-03-03": {record(true, false, false), record(false, false, false)},
	}}
	svc := newTestStatsService(classes, &fakeStudentStore{}, records)

	stats, err := svc.AggregateMonth(context.Background(), 2026, 3)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalDaysWithData)
	assert.Equal(t, 75, stats.Averages.Attendance)
	require.Len(t, stats.DailySeries, 2)
	assert.Equal(t, "2026-03-02", stats.DailySeries[0].Date)
	assert.Equal(t, "2026-03-03", stats.DailySeries[1].Date)
	assert.Nil(t, stats.DailySeries[0].PerClass, "per-class breakdown is stripped from the series")
}

func TestAggregateMonthNoData(t *testing.T) {
	svc := newTestStatsService(&fakeClassStore{}, &fakeStudentStore{}, &fakeRecordStore{})

	stats, err := svc.AggregateMonth(context.Background(), 2026, 2)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.TotalDaysWithData)
	assert.Equal(t, 0, stats.Averages.Attendance)
	assert.Empty(t, stats.DailySeries)
}

func TestAggregateMonthValidation(t *testing.T) {
	svc := newTestStatsService(&fakeClassStore{}, &fakeStudentStore{}, &fakeRecordStore{})

	_, err := svc.AggregateMonth(context.Background(), 2026, 13)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
	_, err = svc.AggregateMonth(context.Background(), 0, 3)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestAggregateTrend(t *testing.T) {
	today := time.Date(2026, 3, 31, 12, 0, 0, 0, time.UTC)
	classes := &fakeClassStore{byYear: map[int][]models.Class{2026: {{ID: "c1", Name: "Turma A"}}}}
	records := &fakeRecordStore{byClassDate: map[string][]models.DailyRecord{
		"c1|2026-03-15": {record(true, false, false)},
		"c1|2026-03-31": {record(true, true, true), record(false, false, false)},
		// Outside the 30-day window, must not appear.
		"c1|2026-02-20": {record(true, false, false)},
	}}
	svc := newTestStatsService(classes, &fakeStudentStore{}, records)
	svc.now = func() time.Time { return today }

	series, err := svc.AggregateTrend(context.Background())
	require.NoError(t, err)
	require.Len(t, series, 2)
	assert.Equal(t, "2026-03-15", series[0].Date, "oldest first")
	assert.Equal(t, "2026-03-31", series[1].Date)
	assert.Equal(t, 50, series[1].AttendancePercentage)
	assert.Nil(t, series[0].PerClass)
}

func TestAggregateTrendWindowCap(t *testing.T) {
	today := time.Date(2026, 6, 30, 0, 0, 0, 0, time.UTC)
	classes := &fakeClassStore{byYear: map[int][]models.Class{2026: {{ID: "c1", Name: "Turma A"}}}}
	byDate := make(map[string][]models.DailyRecord)
	for i := 0; i < 60; i++ {
		date := today.AddDate(0, 0, -i).Format(models.DateLayout)
		byDate["c1|"+date] = []models.DailyRecord{record(true, false, false)}
	}
	svc := newTestStatsService(classes, &fakeStudentStore{}, &fakeRecordStore{byClassDate: byDate})
	svc.now = func() time.Time { return today }

	series, err := svc.AggregateTrend(context.Background())
	require.NoError(t, err)
	require.Len(t, series, 30)
	assert.Equal(t, "2026-06-01", series[0].Date)
	assert.Equal(t, "2026-06-30", series[29].Date)
}

func TestAggregateStudent(t *testing.T) {
	classes := &fakeClassStore{}
	studs := &fakeStudentStore{byClass: map[string][]models.Student{"c1": students(1)}}
	records := &fakeRecordStore{byStudent: map[string]models.DailyRecord{
		"2026-03-02": record(true, true, false),
		"2026-03-03": record(false, false, false),
		"2026-03-01": record(true, false, true),
	}}
	svc := newTestStatsService(classes, studs, records)

	stats, err := svc.AggregateStudent(context.Background(), "c1", "s1")
	require.NoError(t, err)
	assert.Equal(t, 3, stats.TotalDays)
	assert.Equal(t, 2, stats.PresentDays)
	assert.Equal(t, 1, stats.AbsentDays)
	assert.Equal(t, 67, stats.AttendancePercentage)
	assert.Equal(t, 50, stats.HomeworkPercentage)
	assert.Equal(t, 50, stats.BackpackPercentage)

	require.Len(t, stats.Series, 3)
	assert.Equal(t, "2026-03-01", stats.Series[0].Date, "series is chronological")
	assert.Equal(t, models.ChartPoint{Date: "2026-03-01", Present: 1, Backpack: 1}, stats.Series[0])
	assert.Equal(t, models.ChartPoint{Date: "2026-03-03"}, stats.Series[2], "absent day zeroes every point")
}

func TestAggregateStudentSeriesCap(t *testing.T) {
	studs := &fakeStudentStore{byClass: map[string][]models.Student{"c1": students(1)}}
	history := make(map[string]models.DailyRecord)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 45; i++ {
		history[base.AddDate(0, 0, i).Format(models.DateLayout)] = record(true, false, false)
	}
	svc := newTestStatsService(&fakeClassStore{}, studs, &fakeRecordStore{byStudent: history})

	stats, err := svc.AggregateStudent(context.Background(), "c1", "s1")
	require.NoError(t, err)
	// Percentages still cover the full history, only the chart is bounded.
	assert.Equal(t, 45, stats.TotalDays)
	require.Len(t, stats.Series, 30)
	assert.Equal(t, "2026-01-16", stats.Series[0].Date, "oldest points are dropped")
	assert.Equal(t, "2026-02-14", stats.Series[29].Date)
}

func TestAggregateStudentNotFound(t *testing.T) {
	svc := newTestStatsService(&fakeClassStore{}, &fakeStudentStore{}, &fakeRecordStore{})

	_, err := svc.AggregateStudent(context.Background(), "c1", "missing")
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
}

func TestAggregateStudentStoreFailure(t *testing.T) {
	studs := &fakeStudentStore{byClass: map[string][]models.Student{"c1": students(1)}}
	records := &fakeRecordStore{studentErr: errors.New("connection reset")}
	svc := newTestStatsService(&fakeClassStore{}, studs, records)

	_, err := svc.AggregateStudent(context.Background(), "c1", "s1")
	assert.True(t, appErrors.Is(err, appErrors.ErrStoreUnavailable))
}
