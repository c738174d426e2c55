package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/pbessa/diario-turma-api/internal/models"
)

func reportJobColumns() []string {
	return []string{"id", "type", "year", "month", "format", "status", "progress", "result_url", "error_message", "created_by", "created_at", "finished_at"}
}

func TestReportJobRepositoryCreateAssignsID(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewReportJobRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO report_jobs")).
		WithArgs(sqlmock.AnyArg(), models.ReportTypeYear, 2026, 0, models.ReportFormatCSV, models.ReportStatusQueued, 0, "u1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	job := &models.ReportJob{
		Type:      models.ReportTypeYear,
		Year:      2026,
		Format:    models.ReportFormatCSV,
		Status:    models.ReportStatusQueued,
		CreatedBy: "u1",
	}
	err := repo.Create(context.Background(), job)
	require.NoError(t, err)
	require.NotEmpty(t, job.ID)
	require.False(t, job.CreatedAt.IsZero())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReportJobRepositoryUpdatePatchesOnlySetFields(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewReportJobRepository(db)
	status := models.ReportStatusProcessing
	progress := 10
	mock.ExpectExec(regexp.QuoteMeta("UPDATE report_jobs SET")).
		WithArgs("j1", &status, &progress, nil, nil, nil).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Update(context.Background(), "j1", UpdateReportJobParams{Status: &status, Progress: &progress})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReportJobRepositoryUpdateUnknownJob(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewReportJobRepository(db)
	status := models.ReportStatusDone
	mock.ExpectExec(regexp.QuoteMeta("UPDATE report_jobs SET")).
		WithArgs("missing", &status, nil, nil, nil, nil).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Update(context.Background(), "missing", UpdateReportJobParams{Status: &status})
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReportJobRepositoryListQueued(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewReportJobRepository(db)
	rows := sqlmock.NewRows(reportJobColumns()).
		AddRow("j1", models.ReportTypeYear, 2026, 0, models.ReportFormatCSV, models.ReportStatusQueued, 0, nil, nil, "u1", time.Now(), nil)
	mock.ExpectQuery(regexp.QuoteMeta("FROM report_jobs WHERE status IN ($1, $2)")).
		WithArgs(models.ReportStatusQueued, models.ReportStatusProcessing, 50).
		WillReturnRows(rows)

	jobs, err := repo.ListQueued(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	require.Equal(t, "j1", jobs[0].ID)
	require.NoError(t, mock.ExpectationsWereMet())
}
