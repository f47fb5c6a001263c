package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/ustozhub/ustozhub-api/internal/models"
	appErrors "github.com/ustozhub/ustozhub-api/pkg/errors"
)

type teacherRepository interface {
	List(ctx context.Context, filter models.TeacherFilter) ([]models.Teacher, int, error)
	FindByID(ctx context.Context, id string) (*models.Teacher, error)
	FindByUserID(ctx context.Context, userID string) (*models.Teacher, error)
	ExistsByEmail(ctx context.Context, email, excludeID string) (bool, error)
	Create(ctx context.Context, teacher *models.Teacher) error
	Update(ctx context.Context, teacher *models.Teacher) error
	UpdateVerification(ctx context.Context, id string, status models.VerificationStatus) error
	Deactivate(ctx context.Context, id string) error
}

// CreateTeacherRequest is the payload for registering a teacher profile.
type CreateTeacherRequest struct {
	UserID         string  `json:"user_id" validate:"required"`
	Email          string  `json:"email" validate:"required,email"`
	FullName       string  `json:"full_name" validate:"required,min=2"`
	Bio            *string `json:"bio"`
	Phone          *string `json:"phone"`
	Timezone       string  `json:"timezone"`
	MinNoticeHours int     `json:"min_notice_hours" validate:"min=0,max=168"`
	MaxAdvanceDays int     `json:"max_advance_days" validate:"min=0,max=365"`
	HourlyRate     int64   `json:"hourly_rate" validate:"min=0"`
	Currency       string  `json:"currency"`
}

// UpdateTeacherRequest is the payload for editing a teacher profile.
type UpdateTeacherRequest struct {
	Email          string  `json:"email" validate:"omitempty,email"`
	FullName       string  `json:"full_name" validate:"omitempty,min=2"`
	Bio            *string `json:"bio"`
	Phone          *string `json:"phone"`
	Timezone       string  `json:"timezone"`
	MinNoticeHours *int    `json:"min_notice_hours" validate:"omitempty,min=0,max=168"`
	MaxAdvanceDays *int    `json:"max_advance_days" validate:"omitempty,min=0,max=365"`
	HourlyRate     *int64  `json:"hourly_rate" validate:"omitempty,min=0"`
	Currency       string  `json:"currency"`
	Active         *bool   `json:"active"`
}

// Profile policy defaults applied when a registration omits them.
const (
	defaultMinNoticeHours = 12
	defaultMaxAdvanceDays = 30
	defaultCurrency       = "UZS"
)

// TeacherService manages teacher profiles and their verification state.
type TeacherService struct {
	repo            teacherRepository
	validator       *validator.Validate
	logger          *zap.Logger
	defaultTimezone string
}

// NewTeacherService wires teacher profile dependencies.
func NewTeacherService(repo teacherRepository, validate *validator.Validate, logger *zap.Logger, defaultTimezone string) *TeacherService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if defaultTimezone == "" {
		defaultTimezone = "Asia/Tashkent"
	}
	return &TeacherService{repo: repo, validator: validate, logger: logger, defaultTimezone: defaultTimezone}
}

// List returns teacher profiles matching the filter.
func (s *TeacherService) List(ctx context.Context, filter models.TeacherFilter) ([]models.Teacher, int, error) {
	teachers, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list teachers")
	}
	if teachers == nil {
		teachers = []models.Teacher{}
	}
	return teachers, total, nil
}

// Get returns a teacher profile by ID.
func (s *TeacherService) Get(ctx context.Context, id string) (*models.Teacher, error) {
	teacher, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher")
	}
	return teacher, nil
}

// GetByUser returns the teacher profile owned by a user account.
func (s *TeacherService) GetByUser(ctx context.Context, userID string) (*models.Teacher, error) {
	teacher, err := s.repo.FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "teacher profile not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher")
	}
	return teacher, nil
}

// Create registers a new teacher profile in PENDING verification state.
func (s *TeacherService) Create(ctx context.Context, req CreateTeacherRequest) (*models.Teacher, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid teacher payload")
	}

	exists, err := s.repo.ExistsByEmail(ctx, req.Email, "")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check teacher email")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "email is already registered")
	}

	teacher := &models.Teacher{
		UserID:             req.UserID,
		Email:              req.Email,
		FullName:           req.FullName,
		Bio:                req.Bio,
		Phone:              req.Phone,
		Timezone:           req.Timezone,
		MinNoticeHours:     req.MinNoticeHours,
		MaxAdvanceDays:     req.MaxAdvanceDays,
		HourlyRate:         req.HourlyRate,
		Currency:           req.Currency,
		VerificationStatus: models.VerificationPending,
		Active:             true,
	}
	if teacher.Timezone == "" {
		teacher.Timezone = s.defaultTimezone
	}
	if teacher.MinNoticeHours == 0 {
		teacher.MinNoticeHours = defaultMinNoticeHours
	}
	if teacher.MaxAdvanceDays == 0 {
		teacher.MaxAdvanceDays = defaultMaxAdvanceDays
	}
	if teacher.Currency == "" {
		teacher.Currency = defaultCurrency
	}
	if err := validTimezone(teacher.Timezone); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "timezone must be a valid IANA zone name")
	}

	if err := s.repo.Create(ctx, teacher); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create teacher")
	}
	return teacher, nil
}

// Update edits a teacher profile.
func (s *TeacherService) Update(ctx context.Context, id string, req UpdateTeacherRequest) (*models.Teacher, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid teacher payload")
	}

	teacher, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Email != "" && req.Email != teacher.Email {
		exists, err := s.repo.ExistsByEmail(ctx, req.Email, id)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check teacher email")
		}
		if exists {
			return nil, appErrors.Clone(appErrors.ErrConflict, "email is already registered")
		}
		teacher.Email = req.Email
	}
	if req.FullName != "" {
		teacher.FullName = req.FullName
	}
	if req.Bio != nil {
		teacher.Bio = req.Bio
	}
	if req.Phone != nil {
		teacher.Phone = req.Phone
	}
	if req.Timezone != "" {
		if err := validTimezone(req.Timezone); err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "timezone must be a valid IANA zone name")
		}
		teacher.Timezone = req.Timezone
	}
	if req.MinNoticeHours != nil {
		teacher.MinNoticeHours = *req.MinNoticeHours
	}
	if req.MaxAdvanceDays != nil {
		teacher.MaxAdvanceDays = *req.MaxAdvanceDays
	}
	if req.HourlyRate != nil {
		teacher.HourlyRate = *req.HourlyRate
	}
	if req.Currency != "" {
		teacher.Currency = req.Currency
	}
	if req.Active != nil {
		teacher.Active = *req.Active
	}

	if err := s.repo.Update(ctx, teacher); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update teacher")
	}
	return teacher, nil
}

// SetVerification moves a profile through the moderation workflow.
func (s *TeacherService) SetVerification(ctx context.Context, id string, status models.VerificationStatus) (*models.Teacher, error) {
	switch status {
	case models.VerificationPending, models.VerificationApproved, models.VerificationRejected:
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown verification status")
	}

	teacher, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.repo.UpdateVerification(ctx, id, status); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update verification status")
	}
	teacher.VerificationStatus = status
	return teacher, nil
}

// OwnerUserID resolves the user account owning a teacher profile. Used by
// the ownership middleware on teacher-scoped routes.
func (s *TeacherService) OwnerUserID(ctx context.Context, teacherID string) (string, error) {
	teacher, err := s.Get(ctx, teacherID)
	if err != nil {
		return "", err
	}
	return teacher.UserID, nil
}

func validTimezone(name string) error {
	_, err := time.LoadLocation(name)
	return err
}

// Deactivate retires a teacher profile without deleting its history.
func (s *TeacherService) Deactivate(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Deactivate(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to deactivate teacher")
	}
	return nil
}
