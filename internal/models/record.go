package models

import "time"

// DateLayout is the calendar-date wire format used for record keys.
const DateLayout = "2006-01-02"

// DailyRecord holds one student's flags for one calendar date. A missing
// record means attendance was not taken that day, which is distinct from an
// explicit IsPresent=false.
type DailyRecord struct {
	ClassID          string    `db:"class_id" json:"classId"`
	StudentID        string    `db:"student_id" json:"studentId"`
	Date             string    `db:"record_date" json:"date"`
	IsPresent        bool      `db:"is_present" json:"isPresent"`
	BroughtHomework  bool      `db:"brought_homework" json:"broughtHomework"`
	BroughtBackpack  bool      `db:"brought_backpack" json:"broughtBackpack"`
	UpdatedAt        time.Time `db:"updated_at" json:"updatedAt"`
}

// DailyRecordPatch is a merge write: nil fields keep their stored value, and
// a first write starts from an all-false baseline.
type DailyRecordPatch struct {
	IsPresent       *bool `json:"isPresent,omitempty"`
	BroughtHomework *bool `json:"broughtHomework,omitempty"`
	BroughtBackpack *bool `json:"broughtBackpack,omitempty"`
}

// Record field identifiers accepted by the toggle operation.
const (
	FieldPresent  = "isPresent"
	FieldHomework = "broughtHomework"
	FieldBackpack = "broughtBackpack"
)

// RosterEntry pairs a student with their record for one date, nil when
// attendance has not been taken for them yet.
type RosterEntry struct {
	StudentID   string       `json:"studentId"`
	StudentName string       `json:"studentName"`
	Record      *DailyRecord `json:"record,omitempty"`
}
