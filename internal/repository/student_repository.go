package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/pbessa/diario-turma-api/internal/models"
)

// StudentRepository manages persistence for class rosters.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs a new student repository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

// ListByClass returns every student registered in the class.
func (r *StudentRepository) ListByClass(ctx context.Context, classID string) ([]models.Student, error) {
	const query = `SELECT id, class_id, name, active, created_at FROM students WHERE class_id = $1 ORDER BY name`
	students := []models.Student{}
	if err := r.db.SelectContext(ctx, &students, query, classID); err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}
	return students, nil
}

// FindByID returns one student scoped to its class.
func (r *StudentRepository) FindByID(ctx context.Context, classID, studentID string) (*models.Student, error) {
	const query = `SELECT id, class_id, name, active, created_at FROM students WHERE class_id = $1 AND id = $2`
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, classID, studentID); err != nil {
		return nil, err
	}
	return &student, nil
}

// Create inserts a student into a class roster.
func (r *StudentRepository) Create(ctx context.Context, student *models.Student) error {
	const query = `INSERT INTO students (id, class_id, name, active, created_at) VALUES ($1, $2, $3, $4, $5)`
	if _, err := r.db.ExecContext(ctx, query, student.ID, student.ClassID, student.Name, student.Active, student.CreatedAt); err != nil {
		return fmt.Errorf("create student: %w", err)
	}
	return nil
}

// Update edits a student's name or status.
func (r *StudentRepository) Update(ctx context.Context, classID, studentID string, patch models.StudentPatch) error {
	const query = `UPDATE students SET
name = COALESCE($3, name),
active = COALESCE($4, active)
WHERE class_id = $1 AND id = $2`
	result, err := r.db.ExecContext(ctx, query, classID, studentID, patch.Name, patch.Active)
	if err != nil {
		return fmt.Errorf("update student: %w", err)
	}
	return requireRowAffected(result, "student")
}

// Delete removes a student and their daily records.
func (r *StudentRepository) Delete(ctx context.Context, classID, studentID string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete student: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `DELETE FROM daily_records WHERE class_id = $1 AND student_id = $2`, classID, studentID); err != nil {
		return fmt.Errorf("delete student records: %w", err)
	}
	result, err := tx.ExecContext(ctx, `DELETE FROM students WHERE class_id = $1 AND id = $2`, classID, studentID)
	if err != nil {
		return fmt.Errorf("delete student: %w", err)
	}
	if err := requireRowAffected(result, "student"); err != nil {
		return err
	}
	return tx.Commit()
}

// requireRowAffected converts a zero-row write into sql.ErrNoRows so services
// can map it onto their NotFound taxonomy.
func requireRowAffected(result sql.Result, entity string) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected for %s: %w", entity, err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
