package models

// ClassStats aggregates one class's daily records into percentages. All
// percentages are whole numbers in [0,100]; a zero denominator yields 0.
type ClassStats struct {
	TotalStudents        int `json:"totalStudents"`
	TotalRecords         int `json:"totalRecords"`
	PresentCount         int `json:"presentCount"`
	AttendancePercentage int `json:"attendancePercentage"`
	HomeworkPercentage   int `json:"homeworkPercentage"`
	BackpackPercentage   int `json:"backpackPercentage"`
}

// ComparisonRow is one class's aggregate, ordered for side-by-side charting.
type ComparisonRow struct {
	ClassID   string `json:"classId"`
	ClassName string `json:"className"`
	ClassStats
}

// YearStats rolls every class of an academic year into one summary. Totals
// are computed from summed raw counts, never from averaged percentages.
type YearStats struct {
	Year          int             `json:"year"`
	TotalClasses  int             `json:"totalClasses"`
	ActiveClasses int             `json:"activeClasses"`
	TotalStudents int             `json:"totalStudents"`
	Totals        ClassStats      `json:"totals"`
	PerClass      []ComparisonRow `json:"perClass"`
}

// DailyStats is the single-date aggregate across a year's classes.
type DailyStats struct {
	Date string `json:"date"`
	ClassStats
	PerClass []ComparisonRow `json:"perClass,omitempty"`
}

// MonthlyAverages averages the daily percentages of days that carry data.
type MonthlyAverages struct {
	Attendance int `json:"attendance"`
	Homework   int `json:"homework"`
	Backpack   int `json:"backpack"`
}

// MonthlyStats is the calendar-month roll-up of daily aggregates.
type MonthlyStats struct {
	Year              int             `json:"year"`
	Month             int             `json:"month"`
	TotalDaysWithData int             `json:"totalDaysWithData"`
	Averages          MonthlyAverages `json:"averages"`
	DailySeries       []DailyStats    `json:"dailySeries"`
}

// ChartPoint encodes one dated record as 0/1 values for line charts.
type ChartPoint struct {
	Date     string `json:"date"`
	Present  int    `json:"present"`
	Homework int    `json:"homework"`
	Backpack int    `json:"backpack"`
}

// StudentStats summarises one student's full record history plus a bounded
// recent-history series for charting.
type StudentStats struct {
	TotalDays            int          `json:"totalDays"`
	PresentDays          int          `json:"presentDays"`
	AbsentDays           int          `json:"absentDays"`
	AttendancePercentage int          `json:"attendancePercentage"`
	HomeworkPercentage   int          `json:"homeworkPercentage"`
	BackpackPercentage   int          `json:"backpackPercentage"`
	Series               []ChartPoint `json:"series"`
}
