package models

import "time"

// Class represents a teaching group (turma) scoped to an academic year.
type Class struct {
	ID          string    `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Year        int       `db:"year" json:"year"`
	Responsible string    `db:"responsible" json:"responsible,omitempty"`
	Description string    `db:"description" json:"description,omitempty"`
	MaxStudents int       `db:"max_students" json:"maxStudents"`
	Active      bool      `db:"active" json:"active"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time `db:"updated_at" json:"updatedAt"`
}

// ClassSummary extends Class with its roster size for dashboard listings.
type ClassSummary struct {
	Class
	StudentCount int `db:"student_count" json:"studentCount"`
}

// ClassPatch carries optional fields for partial class updates.
type ClassPatch struct {
	Name        *string `json:"name,omitempty"`
	Year        *int    `json:"year,omitempty"`
	Responsible *string `json:"responsible,omitempty"`
	Description *string `json:"description,omitempty"`
	MaxStudents *int    `json:"maxStudents,omitempty"`
	Active      *bool   `json:"active,omitempty"`
}
