package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/pbessa/diario-turma-api/internal/models"
	appErrors "github.com/pbessa/diario-turma-api/pkg/errors"
)

type recordRepository interface {
	Get(ctx context.Context, classID, studentID, date string) (*models.DailyRecord, error)
	Upsert(ctx context.Context, classID, studentID, date string, patch models.DailyRecordPatch) (*models.DailyRecord, error)
	ListRoster(ctx context.Context, classID, date string) ([]models.RosterEntry, error)
}

type studentFinder interface {
	FindByID(ctx context.Context, classID, studentID string) (*models.Student, error)
}

// SaveRecordRequest carries the flags to write. Nil flags keep whatever the
// stored record already says; a first write fills the gaps with false.
type SaveRecordRequest struct {
	IsPresent       *bool `json:"isPresent"`
	BroughtHomework *bool `json:"broughtHomework"`
	BroughtBackpack *bool `json:"broughtBackpack"`
}

// RecordService owns the daily attendance records: the roster view teachers
// mark from, merge-style saves and single-flag toggles.
type RecordService struct {
	repo     recordRepository
	students studentFinder
	cache    *CacheService
	logger   *zap.Logger
}

// NewRecordService constructs RecordService.
func NewRecordService(repo recordRepository, students studentFinder, cache *CacheService, logger *zap.Logger) *RecordService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RecordService{repo: repo, students: students, cache: cache, logger: logger}
}

// Roster returns every student of the class with that day's record, if any.
func (s *RecordService) Roster(ctx context.Context, classID, date string) ([]models.RosterEntry, error) {
	if err := validateDate(date); err != nil {
		return nil, err
	}
	roster, err := s.repo.ListRoster(ctx, classID, date)
	if err != nil {
		return nil, storeErr(err, "failed to load roster")
	}
	return roster, nil
}

// Get returns the student's record for the date, or nil when none exists.
// A missing record reads as an absence, so this is not an error.
func (s *RecordService) Get(ctx context.Context, classID, studentID, date string) (*models.DailyRecord, error) {
	if err := validateDate(date); err != nil {
		return nil, err
	}
	if err := s.ensureStudent(ctx, classID, studentID); err != nil {
		return nil, err
	}
	record, err := s.repo.Get(ctx, classID, studentID, date)
	if err != nil {
		return nil, storeErr(err, "failed to load record")
	}
	return record, nil
}

// Save merges the request into the stored record. Flags the caller leaves nil
// survive, so two teachers marking different flags never clobber each other.
func (s *RecordService) Save(ctx context.Context, classID, studentID, date string, req SaveRecordRequest) (*models.DailyRecord, error) {
	if err := validateDate(date); err != nil {
		return nil, err
	}
	if req.IsPresent == nil && req.BroughtHomework == nil && req.BroughtBackpack == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "at least one flag is required")
	}
	if err := s.ensureStudent(ctx, classID, studentID); err != nil {
		return nil, err
	}

	patch := models.DailyRecordPatch{
		IsPresent:       req.IsPresent,
		BroughtHomework: req.BroughtHomework,
		BroughtBackpack: req.BroughtBackpack,
	}
	record, err := s.repo.Upsert(ctx, classID, studentID, date, patch)
	if err != nil {
		return nil, storeErr(err, "failed to save record")
	}
	s.invalidateStats(ctx)
	return record, nil
}

// Toggle flips one flag for the student's record at date. Without a stored
// record the flag starts from false, so the first toggle turns it on.
func (s *RecordService) Toggle(ctx context.Context, classID, studentID, date, field string) (*models.DailyRecord, error) {
	if err := validateDate(date); err != nil {
		return nil, err
	}
	if err := s.ensureStudent(ctx, classID, studentID); err != nil {
		return nil, err
	}

	current, err := s.repo.Get(ctx, classID, studentID, date)
	if err != nil {
		return nil, storeErr(err, "failed to load record")
	}

	var stored models.DailyRecord
	if current != nil {
		stored = *current
	}

	var patch models.DailyRecordPatch
	switch field {
	case models.FieldPresent:
		patch.IsPresent = boolPtr(!stored.IsPresent)
	case models.FieldHomework:
		patch.BroughtHomework = boolPtr(!stored.BroughtHomework)
	case models.FieldBackpack:
		patch.BroughtBackpack = boolPtr(!stored.BroughtBackpack)
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown record field")
	}

	record, err := s.repo.Upsert(ctx, classID, studentID, date, patch)
	if err != nil {
		return nil, storeErr(err, "failed to save record")
	}
	s.invalidateStats(ctx)
	return record, nil
}

func (s *RecordService) ensureStudent(ctx context.Context, classID, studentID string) error {
	if _, err := s.students.FindByID(ctx, classID, studentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return storeErr(err, "failed to load student")
	}
	return nil
}

func (s *RecordService) invalidateStats(ctx context.Context) {
	if err := s.cache.Invalidate(ctx, "stats:*"); err != nil {
		s.logger.Warn("failed to invalidate stats cache", zap.Error(err))
	}
}

func validateDate(date string) error {
	if _, err := time.Parse(models.DateLayout, date); err != nil {
		return appErrors.Clone(appErrors.ErrValidation, "invalid date format, expected YYYY-MM-DD")
	}
	return nil
}

func boolPtr(v bool) *bool { return &v }
