package models

import "time"

// Student belongs to exactly one class. Re-parenting is not supported.
type Student struct {
	ID        string    `db:"id" json:"id"`
	ClassID   string    `db:"class_id" json:"classId"`
	Name      string    `db:"name" json:"name"`
	Active    bool      `db:"active" json:"active"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// StudentPatch carries optional fields for name/status edits.
type StudentPatch struct {
	Name   *string `json:"name,omitempty"`
	Active *bool   `json:"active,omitempty"`
}
