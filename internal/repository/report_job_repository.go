package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/pbessa/diario-turma-api/internal/models"
)

// ReportJobRepository persists statistics export jobs.
type ReportJobRepository struct {
	db *sqlx.DB
}

// NewReportJobRepository constructs the repository.
func NewReportJobRepository(db *sqlx.DB) *ReportJobRepository {
	return &ReportJobRepository{db: db}
}

// UpdateReportJobParams carries the mutable job fields; nil means untouched.
type UpdateReportJobParams struct {
	Status       *models.ReportStatus
	Progress     *int
	ResultURL    *string
	ErrorMessage *string
	FinishedAt   *time.Time
}

// Create inserts the job, assigning an ID when absent.
func (r *ReportJobRepository) Create(ctx context.Context, job *models.ReportJob) error {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO report_jobs (id, type, year, month, format, status, progress, created_by, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	if _, err := r.db.ExecContext(ctx, query, job.ID, job.Type, job.Year, job.Month, job.Format, job.Status, job.Progress, job.CreatedBy, job.CreatedAt); err != nil {
		return fmt.Errorf("create report job: %w", err)
	}
	return nil
}

// GetByID loads one job.
func (r *ReportJobRepository) GetByID(ctx context.Context, id string) (*models.ReportJob, error) {
	const query = `SELECT id, type, year, month, format, status, progress, result_url, error_message, created_by, created_at, finished_at
FROM report_jobs WHERE id = $1`
	var job models.ReportJob
	if err := r.db.GetContext(ctx, &job, query, id); err != nil {
		return nil, err
	}
	return &job, nil
}

// Update patches the mutable job fields.
func (r *ReportJobRepository) Update(ctx context.Context, id string, params UpdateReportJobParams) error {
	const query = `UPDATE report_jobs SET
status = COALESCE($2, status),
progress = COALESCE($3, progress),
result_url = COALESCE($4, result_url),
error_message = COALESCE($5, error_message),
finished_at = COALESCE($6, finished_at)
WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id, params.Status, params.Progress, params.ResultURL, params.ErrorMessage, params.FinishedAt)
	if err != nil {
		return fmt.Errorf("update report job: %w", err)
	}
	return requireRowAffected(result, "report job")
}

// ListQueued returns jobs stuck in the queued state, oldest first. Used on
// startup to requeue work lost to a restart.
func (r *ReportJobRepository) ListQueued(ctx context.Context, limit int) ([]models.ReportJob, error) {
	if limit <= 0 {
		limit = 50
	}
	const query = `SELECT id, type, year, month, format, status, progress, result_url, error_message, created_by, created_at, finished_at
FROM report_jobs WHERE status IN ($1, $2) ORDER BY created_at LIMIT $3`
	jobs := []models.ReportJob{}
	if err := r.db.SelectContext(ctx, &jobs, query, models.ReportStatusQueued, models.ReportStatusProcessing, limit); err != nil {
		return nil, fmt.Errorf("list queued report jobs: %w", err)
	}
	return jobs, nil
}

// ListFinishedBefore returns finished jobs older than the cutoff for cleanup.
func (r *ReportJobRepository) ListFinishedBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.ReportJob, error) {
	if limit <= 0 {
		limit = 100
	}
	const query = `SELECT id, type, year, month, format, status, progress, result_url, error_message, created_by, created_at, finished_at
FROM report_jobs WHERE finished_at IS NOT NULL AND finished_at < $1 ORDER BY finished_at LIMIT $2`
	jobs := []models.ReportJob{}
	if err := r.db.SelectContext(ctx, &jobs, query, cutoff, limit); err != nil {
		return nil, fmt.Errorf("list finished report jobs: %w", err)
	}
	return jobs, nil
}
