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

type studentRepository interface {
	ListByClass(ctx context.Context, classID string) ([]models.Student, error)
	FindByID(ctx context.Context, classID, studentID string) (*models.Student, error)
	Create(ctx context.Context, student *models.Student) error
	Update(ctx context.Context, classID, studentID string, patch models.StudentPatch) error
	Delete(ctx context.Context, classID, studentID string) error
}

type classFinder interface {
	FindByID(ctx context.Context, id string) (*models.Class, error)
}

// CreateStudentRequest captures enrollment payload.
type CreateStudentRequest struct {
	Name string `json:"name" validate:"required"`
}

// UpdateStudentRequest carries the fields to change; nil fields are untouched.
type UpdateStudentRequest struct {
	Name   *string `json:"name" validate:"omitempty,min=1"`
	Active *bool   `json:"active"`
}

// StudentService coordinates per-class student rosters.
type StudentService struct {
	repo      studentRepository
	classes   classFinder
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewStudentService constructs StudentService.
func NewStudentService(repo studentRepository, classes classFinder, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *StudentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StudentService{repo: repo, classes: classes, cache: cache, validator: validate, logger: logger, now: time.Now}
}

// ListByClass returns the class roster in alphabetical order.
func (s *StudentService) ListByClass(ctx context.Context, classID string) ([]models.Student, error) {
	if err := s.ensureClass(ctx, classID); err != nil {
		return nil, err
	}
	students, err := s.repo.ListByClass(ctx, classID)
	if err != nil {
		return nil, storeErr(err, "failed to list students")
	}
	return students, nil
}

// Get returns one student of the class.
func (s *StudentService) Get(ctx context.Context, classID, studentID string) (*models.Student, error) {
	student, err := s.repo.FindByID(ctx, classID, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, storeErr(err, "failed to load student")
	}
	return student, nil
}

// Create enrolls a student into the class.
func (s *StudentService) Create(ctx context.Context, classID string, req CreateStudentRequest) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}
	if err := s.ensureClass(ctx, classID); err != nil {
		return nil, err
	}

	student := &models.Student{
		ID:        uuid.NewString(),
		ClassID:   classID,
		Name:      req.Name,
		Active:    true,
		CreatedAt: s.now().UTC(),
	}
	if err := s.repo.Create(ctx, student); err != nil {
		return nil, storeErr(err, "failed to create student")
	}
	s.invalidateStats(ctx)
	return student, nil
}

// Update applies a partial update and returns the stored student.
func (s *StudentService) Update(ctx context.Context, classID, studentID string, req UpdateStudentRequest) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}

	patch := models.StudentPatch{Name: req.Name, Active: req.Active}
	if err := s.repo.Update(ctx, classID, studentID, patch); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, storeErr(err, "failed to update student")
	}
	s.invalidateStats(ctx)
	return s.Get(ctx, classID, studentID)
}

// Delete removes the student and their daily records.
func (s *StudentService) Delete(ctx context.Context, classID, studentID string) error {
	if err := s.repo.Delete(ctx, classID, studentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return storeErr(err, "failed to delete student")
	}
	s.invalidateStats(ctx)
	return nil
}

func (s *StudentService) ensureClass(ctx context.Context, classID string) error {
	if _, err := s.classes.FindByID(ctx, classID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return storeErr(err, "failed to load class")
	}
	return nil
}

func (s *StudentService) invalidateStats(ctx context.Context) {
	if err := s.cache.Invalidate(ctx, "stats:*"); err != nil {
		s.logger.Warn("failed to invalidate stats cache", zap.Error(err))
	}
}
