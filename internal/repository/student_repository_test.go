package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/pbessa/diario-turma-api/internal/models"
)

func studentColumns() []string {
	return []string{"id", "class_id", "name", "active", "created_at"}
}

func TestStudentRepositoryListByClass(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewStudentRepository(db)
	rows := sqlmock.NewRows(studentColumns()).
		AddRow("s1", "c1", "Ana", true, time.Now()).
		AddRow("s2", "c1", "Bruno", false, time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("FROM students WHERE class_id = $1 ORDER BY name")).
		WithArgs("c1").
		WillReturnRows(rows)

	students, err := repo.ListByClass(context.Background(), "c1")
	require.NoError(t, err)
	require.Len(t, students, 2)
	require.Equal(t, "Ana", students[0].Name)
	require.False(t, students[1].Active)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewStudentRepository(db)
	now := time.Now().UTC()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO students")).
		WithArgs("s1", "c1", "Ana", true, now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Create(context.Background(), &models.Student{ID: "s1", ClassID: "c1", Name: "Ana", Active: true, CreatedAt: now})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryUpdateMissingRow(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewStudentRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE students SET")).
		WithArgs("c1", "missing", nil, nil).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Update(context.Background(), "c1", "missing", models.StudentPatch{})
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryDeleteRemovesRecordsFirst(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewStudentRepository(db)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM daily_records WHERE class_id = $1 AND student_id = $2")).
		WithArgs("c1", "s1").
		WillReturnResult(sqlmock.NewResult(0, 4))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM students WHERE class_id = $1 AND id = $2")).
		WithArgs("c1", "s1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.Delete(context.Background(), "c1", "s1")
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryDeleteUnknownStudentRollsBack(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewStudentRepository(db)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM daily_records")).
		WithArgs("c1", "missing").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM students")).
		WithArgs("c1", "missing").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.Delete(context.Background(), "c1", "missing")
	require.True(t, errors.Is(err, sql.ErrNoRows))
	require.NoError(t, mock.ExpectationsWereMet())
}
