package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pbessa/diario-turma-api/internal/models"
	appErrors "github.com/pbessa/diario-turma-api/pkg/errors"
)

type classRepository interface {
	ListByYear(ctx context.Context, year int) ([]models.Class, error)
	ListSummariesByYear(ctx context.Context, year int) ([]models.ClassSummary, error)
	FindByID(ctx context.Context, id string) (*models.Class, error)
	Create(ctx context.Context, class *models.Class) error
	Update(ctx context.Context, id string, patch models.ClassPatch) error
	Delete(ctx context.Context, id string) error
}

// CreateClassRequest captures creation payload.
type CreateClassRequest struct {
	Name        string `json:"name" validate:"required"`
	Year        int    `json:"year" validate:"required,gte=2000,lte=2100"`
	Responsible string `json:"responsible"`
	Description string `json:"description"`
	MaxStudents int    `json:"maxStudents" validate:"gte=0"`
}

// UpdateClassRequest carries the fields to change; nil fields are untouched.
type UpdateClassRequest struct {
	Name        *string `json:"name" validate:"omitempty,min=1"`
	Year        *int    `json:"year" validate:"omitempty,gte=2000,lte=2100"`
	Responsible *string `json:"responsible"`
	Description *string `json:"description"`
	MaxStudents *int    `json:"maxStudents" validate:"omitempty,gte=0"`
	Active      *bool   `json:"active"`
}

// ClassService coordinates class CRUD and keeps derived statistics caches
// coherent after every write.
type ClassService struct {
	repo      classRepository
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewClassService constructs ClassService.
func NewClassService(repo classRepository, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *ClassService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ClassService{repo: repo, cache: cache, validator: validate, logger: logger, now: time.Now}
}

// ListByYear returns the year's classes with student counts, in display order.
func (s *ClassService) ListByYear(ctx context.Context, year int) ([]models.ClassSummary, error) {
	if year <= 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "year is required")
	}
	summaries, err := s.repo.ListSummariesByYear(ctx, year)
	if err != nil {
		return nil, storeErr(err, "failed to list classes")
	}
	sortClassSummaries(summaries)
	return summaries, nil
}

// Get returns one class.
func (s *ClassService) Get(ctx context.Context, id string) (*models.Class, error) {
	class, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, storeErr(err, "failed to load class")
	}
	return class, nil
}

// Create adds a new class. New classes start active.
func (s *ClassService) Create(ctx context.Context, req CreateClassRequest) (*models.Class, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid class payload")
	}

	now := s.now().UTC()
	class := &models.Class{
		ID:          uuid.NewString(),
		Name:        req.Name,
		Year:        req.Year,
		Responsible: req.Responsible,
		Description: req.Description,
		MaxStudents: req.MaxStudents,
		Active:      true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Create(ctx, class); err != nil {
		return nil, storeErr(err, "failed to create class")
	}
	s.invalidateStats(ctx)
	return class, nil
}

// Update applies a partial update and returns the stored class.
func (s *ClassService) Update(ctx context.Context, id string, req UpdateClassRequest) (*models.Class, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid class payload")
	}

	patch := models.ClassPatch{
		Name:        req.Name,
		Year:        req.Year,
		Responsible: req.Responsible,
		Description: req.Description,
		MaxStudents: req.MaxStudents,
		Active:      req.Active,
	}
	if err := s.repo.Update(ctx, id, patch); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, storeErr(err, "failed to update class")
	}
	s.invalidateStats(ctx)
	return s.Get(ctx, id)
}

// Delete removes the class along with its students and records.
func (s *ClassService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return storeErr(err, "failed to delete class")
	}
	s.invalidateStats(ctx)
	return nil
}

func (s *ClassService) invalidateStats(ctx context.Context) {
	if err := s.cache.Invalidate(ctx, "stats:*"); err != nil {
		s.logger.Warn("failed to invalidate stats cache", zap.Error(err))
	}
}
