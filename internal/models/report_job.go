package models

import "time"

// ReportType identifies the statistics report to render.
type ReportType string

// ReportFormat identifies the export encoding.
type ReportFormat string

// ReportStatus tracks job lifecycle.
type ReportStatus string

const (
	ReportTypeYear  ReportType = "year_stats"
	ReportTypeMonth ReportType = "month_stats"

	ReportFormatCSV ReportFormat = "csv"
	ReportFormatPDF ReportFormat = "pdf"

	ReportStatusQueued     ReportStatus = "queued"
	ReportStatusProcessing ReportStatus = "processing"
	ReportStatusDone       ReportStatus = "done"
	ReportStatusFailed     ReportStatus = "failed"
)

// ReportJob is one queued statistics export.
type ReportJob struct {
	ID           string       `db:"id" json:"id"`
	Type         ReportType   `db:"type" json:"type"`
	Year         int          `db:"year" json:"year"`
	Month        int          `db:"month" json:"month,omitempty"`
	Format       ReportFormat `db:"format" json:"format"`
	Status       ReportStatus `db:"status" json:"status"`
	Progress     int          `db:"progress" json:"progress"`
	ResultURL    *string      `db:"result_url" json:"resultUrl,omitempty"`
	ErrorMessage *string      `db:"error_message" json:"error,omitempty"`
	CreatedBy    string       `db:"created_by" json:"createdBy"`
	CreatedAt    time.Time    `db:"created_at" json:"createdAt"`
	FinishedAt   *time.Time   `db:"finished_at" json:"finishedAt,omitempty"`
}
