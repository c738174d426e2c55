package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/pbessa/diario-turma-api/internal/models"
)

// RecordRepository is the record-store adapter for per-student daily records.
// Legacy rows written before the presence flag existed carry a NULL
// is_present; they are normalized to present=true here, because the old
// client only created a row for students who showed up that day.
type RecordRepository struct {
	db *sqlx.DB
}

// NewRecordRepository constructs the repository.
func NewRecordRepository(db *sqlx.DB) *RecordRepository {
	return &RecordRepository{db: db}
}

type recordRow struct {
	ClassID         string       `db:"class_id"`
	StudentID       string       `db:"student_id"`
	Date            string       `db:"record_date"`
	IsPresent       sql.NullBool `db:"is_present"`
	BroughtHomework sql.NullBool `db:"brought_homework"`
	BroughtBackpack sql.NullBool `db:"brought_backpack"`
	UpdatedAt       time.Time    `db:"updated_at"`
}

func (row recordRow) normalize() models.DailyRecord {
	record := models.DailyRecord{
		ClassID:         row.ClassID,
		StudentID:       row.StudentID,
		Date:            row.Date,
		IsPresent:       true,
		BroughtHomework: row.BroughtHomework.Bool,
		BroughtBackpack: row.BroughtBackpack.Bool,
		UpdatedAt:       row.UpdatedAt,
	}
	if row.IsPresent.Valid {
		record.IsPresent = row.IsPresent.Bool
	}
	return record
}

const recordColumns = `class_id, student_id, to_char(record_date, 'YYYY-MM-DD') AS record_date, is_present, brought_homework, brought_backpack, updated_at`

// Get returns one record, or nil when attendance was not taken that day.
func (r *RecordRepository) Get(ctx context.Context, classID, studentID, date string) (*models.DailyRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM daily_records WHERE class_id = $1 AND student_id = $2 AND record_date = $3`, recordColumns)
	var row recordRow
	if err := r.db.GetContext(ctx, &row, query, classID, studentID, date); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get daily record: %w", err)
	}
	record := row.normalize()
	return &record, nil
}

// ListByStudent returns one student's full history keyed by date.
func (r *RecordRepository) ListByStudent(ctx context.Context, classID, studentID string) (map[string]models.DailyRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM daily_records WHERE class_id = $1 AND student_id = $2`, recordColumns)
	var rows []recordRow
	if err := r.db.SelectContext(ctx, &rows, query, classID, studentID); err != nil {
		return nil, fmt.Errorf("list student records: %w", err)
	}
	records := make(map[string]models.DailyRecord, len(rows))
	for _, row := range rows {
		records[row.Date] = row.normalize()
	}
	return records, nil
}

// ListByClass returns every record of the class across all dates.
func (r *RecordRepository) ListByClass(ctx context.Context, classID string) ([]models.DailyRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM daily_records WHERE class_id = $1 ORDER BY record_date`, recordColumns)
	return r.selectRecords(ctx, query, classID)
}

// ListByClassDate returns the class's records for a single date.
func (r *RecordRepository) ListByClassDate(ctx context.Context, classID, date string) ([]models.DailyRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM daily_records WHERE class_id = $1 AND record_date = $2`, recordColumns)
	return r.selectRecords(ctx, query, classID, date)
}

func (r *RecordRepository) selectRecords(ctx context.Context, query string, args ...interface{}) ([]models.DailyRecord, error) {
	var rows []recordRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list daily records: %w", err)
	}
	records := make([]models.DailyRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, row.normalize())
	}
	return records, nil
}

// Upsert merges the patch into the stored record and returns the result.
// Unset patch fields keep their prior value; a first write starts from an
// all-false baseline.
func (r *RecordRepository) Upsert(ctx context.Context, classID, studentID, date string, patch models.DailyRecordPatch) (*models.DailyRecord, error) {
	query := fmt.Sprintf(`INSERT INTO daily_records (class_id, student_id, record_date, is_present, brought_homework, brought_backpack, updated_at)
VALUES ($1, $2, $3, COALESCE($4, false), COALESCE($5, false), COALESCE($6, false), now())
ON CONFLICT (class_id, student_id, record_date) DO UPDATE SET
is_present = COALESCE($4, COALESCE(daily_records.is_present, true)),
brought_homework = COALESCE($5, COALESCE(daily_records.brought_homework, false)),
brought_backpack = COALESCE($6, COALESCE(daily_records.brought_backpack, false)),
updated_at = now()
RETURNING %s`, recordColumns)
	var row recordRow
	if err := r.db.GetContext(ctx, &row, query, classID, studentID, date, patch.IsPresent, patch.BroughtHomework, patch.BroughtBackpack); err != nil {
		return nil, fmt.Errorf("upsert daily record: %w", err)
	}
	record := row.normalize()
	return &record, nil
}

// ListRoster returns the class roster for one date, pairing each student with
// their record if attendance was already taken.
func (r *RecordRepository) ListRoster(ctx context.Context, classID, date string) ([]models.RosterEntry, error) {
	const query = `SELECT s.id, s.name,
d.class_id, d.student_id, to_char(d.record_date, 'YYYY-MM-DD') AS record_date, d.is_present, d.brought_homework, d.brought_backpack, d.updated_at
FROM students s
LEFT JOIN daily_records d ON d.class_id = s.class_id AND d.student_id = s.id AND d.record_date = $2
WHERE s.class_id = $1 ORDER BY s.name`
	rows, err := r.db.QueryxContext(ctx, query, classID, date)
	if err != nil {
		return nil, fmt.Errorf("list roster: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	entries := []models.RosterEntry{}
	for rows.Next() {
		var (
			studentID, studentName string
			classID                sql.NullString
			recStudentID           sql.NullString
			recordDate             sql.NullString
			isPresent              sql.NullBool
			homework               sql.NullBool
			backpack               sql.NullBool
			updatedAt              sql.NullTime
		)
		if err := rows.Scan(&studentID, &studentName, &classID, &recStudentID, &recordDate, &isPresent, &homework, &backpack, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan roster row: %w", err)
		}
		entry := models.RosterEntry{StudentID: studentID, StudentName: studentName}
		if recordDate.Valid {
			record := recordRow{
				ClassID:         classID.String,
				StudentID:       recStudentID.String,
				Date:            recordDate.String,
				IsPresent:       isPresent,
				BroughtHomework: homework,
				BroughtBackpack: backpack,
				UpdatedAt:       updatedAt.Time,
			}.normalize()
			entry.Record = &record
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate roster rows: %w", err)
	}
	return entries, nil
}
