package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/pbessa/diario-turma-api/internal/models"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func classColumns() []string {
	return []string{"id", "name", "year", "responsible", "description", "max_students", "active", "created_at", "updated_at"}
}

func TestClassRepositoryListByYear(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewClassRepository(db)
	now := time.Now()
	rows := sqlmock.NewRows(classColumns()).
		AddRow("c1", "Turma 2", 2026, "Ana", "", 30, true, now, now).
		AddRow("c2", "Turma 10", 2026, "Bia", "", 30, true, now, now)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, name, year, responsible, description, max_students, active, created_at, updated_at")).
		WithArgs(2026).
		WillReturnRows(rows)

	classes, err := repo.ListByYear(context.Background(), 2026)
	require.NoError(t, err)
	require.Len(t, classes, 2)
	require.Equal(t, "Turma 2", classes[0].Name)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestClassRepositoryListSummariesByYear(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewClassRepository(db)
	now := time.Now()
	rows := sqlmock.NewRows(append(classColumns(), "student_count")).
		AddRow("c1", "Turma 2", 2026, "Ana", "", 30, true, now, now, 25)
	mock.ExpectQuery(regexp.QuoteMeta("COUNT(s.id) AS student_count")).
		WithArgs(2026).
		WillReturnRows(rows)

	summaries, err := repo.ListSummariesByYear(context.Background(), 2026)
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	require.Equal(t, 25, summaries[0].StudentCount)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestClassRepositoryFindByIDNotFound(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewClassRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("FROM classes WHERE id = $1")).
		WithArgs("ghost").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByID(context.Background(), "ghost")
	require.True(t, errors.Is(err, sql.ErrNoRows))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestClassRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewClassRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO classes")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	class := &models.Class{ID: "c1", Name: "Turma 2", Year: 2026, Active: true, CreatedAt: time.Now()}
	require.NoError(t, repo.Create(context.Background(), class))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestClassRepositoryUpdatePatchesYear(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewClassRepository(db)
	year := 2027
	mock.ExpectExec(regexp.QuoteMeta("UPDATE classes SET")).
		WithArgs("c1", nil, &year, nil, nil, nil, nil).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Update(context.Background(), "c1", models.ClassPatch{Year: &year})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestClassRepositoryUpdateMissingRow(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewClassRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE classes SET")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	name := "Turma 3"
	err := repo.Update(context.Background(), "ghost", models.ClassPatch{Name: &name})
	require.True(t, errors.Is(err, sql.ErrNoRows))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestClassRepositoryDeleteCascades(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewClassRepository(db)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM daily_records WHERE class_id = $1")).
		WithArgs("c1").
		WillReturnResult(sqlmock.NewResult(0, 12))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM students WHERE class_id = $1")).
		WithArgs("c1").
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM classes WHERE id = $1")).
		WithArgs("c1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Delete(context.Background(), "c1"))
	require.NoError(t, mock.ExpectationsWereMet())
}
