package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/pbessa/diario-turma-api/internal/models"
)

// ClassRepository manages persistence for classes (turmas).
type ClassRepository struct {
	db *sqlx.DB
}

// NewClassRepository constructs a new class repository.
func NewClassRepository(db *sqlx.DB) *ClassRepository {
	return &ClassRepository{db: db}
}

// ListByYear returns all classes registered for one academic year.
func (r *ClassRepository) ListByYear(ctx context.Context, year int) ([]models.Class, error) {
	const query = `SELECT id, name, year, responsible, description, max_students, active, created_at, updated_at
FROM classes WHERE year = $1 ORDER BY created_at`
	classes := []models.Class{}
	if err := r.db.SelectContext(ctx, &classes, query, year); err != nil {
		return nil, fmt.Errorf("list classes: %w", err)
	}
	return classes, nil
}

// ListSummariesByYear returns the year's classes with roster counts attached.
func (r *ClassRepository) ListSummariesByYear(ctx context.Context, year int) ([]models.ClassSummary, error) {
	const query = `SELECT c.id, c.name, c.year, c.responsible, c.description, c.max_students, c.active, c.created_at, c.updated_at,
COUNT(s.id) AS student_count
FROM classes c LEFT JOIN students s ON s.class_id = c.id
WHERE c.year = $1
GROUP BY c.id ORDER BY c.created_at`
	summaries := []models.ClassSummary{}
	if err := r.db.SelectContext(ctx, &summaries, query, year); err != nil {
		return nil, fmt.Errorf("list class summaries: %w", err)
	}
	return summaries, nil
}

// FindByID returns a class record by ID.
func (r *ClassRepository) FindByID(ctx context.Context, id string) (*models.Class, error) {
	const query = `SELECT id, name, year, responsible, description, max_students, active, created_at, updated_at
FROM classes WHERE id = $1`
	var class models.Class
	if err := r.db.GetContext(ctx, &class, query, id); err != nil {
		return nil, err
	}
	return &class, nil
}

// Create inserts a new class row.
func (r *ClassRepository) Create(ctx context.Context, class *models.Class) error {
	const query = `INSERT INTO classes (id, name, year, responsible, description, max_students, active, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)`
	if _, err := r.db.ExecContext(ctx, query,
		class.ID, class.Name, class.Year, class.Responsible, class.Description,
		class.MaxStudents, class.Active, class.CreatedAt,
	); err != nil {
		return fmt.Errorf("create class: %w", err)
	}
	return nil
}

// Update applies a partial edit; nil patch fields keep their stored value.
func (r *ClassRepository) Update(ctx context.Context, id string, patch models.ClassPatch) error {
	const query = `UPDATE classes SET
name = COALESCE($2, name),
year = COALESCE($3, year),
responsible = COALESCE($4, responsible),
description = COALESCE($5, description),
max_students = COALESCE($6, max_students),
active = COALESCE($7, active),
updated_at = now()
WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id, patch.Name, patch.Year, patch.Responsible, patch.Description, patch.MaxStudents, patch.Active)
	if err != nil {
		return fmt.Errorf("update class: %w", err)
	}
	return requireRowAffected(result, "class")
}

// Delete removes a class together with its students and their daily records.
// The store has no ON DELETE CASCADE, so the cascade is explicit.
func (r *ClassRepository) Delete(ctx context.Context, id string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete class: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `DELETE FROM daily_records WHERE class_id = $1`, id); err != nil {
		return fmt.Errorf("delete class records: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM students WHERE class_id = $1`, id); err != nil {
		return fmt.Errorf("delete class students: %w", err)
	}
	result, err := tx.ExecContext(ctx, `DELETE FROM classes WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete class: %w", err)
	}
	if err := requireRowAffected(result, "class"); err != nil {
		return err
	}
	return tx.Commit()
}
