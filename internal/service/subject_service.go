package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/ustozhub/ustozhub-api/internal/models"
	appErrors "github.com/ustozhub/ustozhub-api/pkg/errors"
)

type subjectRepository interface {
	ListByTeacher(ctx context.Context, teacherID string) ([]models.SubjectOffering, error)
	FindByID(ctx context.Context, id string) (*models.SubjectOffering, error)
	Create(ctx context.Context, offering *models.SubjectOffering) error
	Update(ctx context.Context, offering *models.SubjectOffering) error
	Deactivate(ctx context.Context, id string) error
}

// SaveOfferingRequest is the payload for creating or updating an offering.
type SaveOfferingRequest struct {
	Subject     string  `json:"subject" validate:"required,min=2"`
	Level       *string `json:"level"`
	Description *string `json:"description"`
	HourlyRate  *int64  `json:"hourly_rate" validate:"omitempty,min=0"`
	Active      *bool   `json:"active"`
}

// SubjectService manages the subjects a teacher offers.
type SubjectService struct {
	offerings subjectRepository
	teachers  availabilityTeacherReader
	validator *validator.Validate
	logger    *zap.Logger
}

// NewSubjectService wires subject offering dependencies.
func NewSubjectService(offerings subjectRepository, teachers availabilityTeacherReader, validate *validator.Validate, logger *zap.Logger) *SubjectService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SubjectService{offerings: offerings, teachers: teachers, validator: validate, logger: logger}
}

// ListByTeacher returns a teacher's subject offerings.
func (s *SubjectService) ListByTeacher(ctx context.Context, teacherID string) ([]models.SubjectOffering, error) {
	if err := s.ensureTeacher(ctx, teacherID); err != nil {
		return nil, err
	}
	offerings, err := s.offerings.ListByTeacher(ctx, teacherID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list subject offerings")
	}
	if offerings == nil {
		offerings = []models.SubjectOffering{}
	}
	return offerings, nil
}

// Create adds an offering for a teacher.
func (s *SubjectService) Create(ctx context.Context, teacherID string, req SaveOfferingRequest) (*models.SubjectOffering, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid offering payload")
	}
	if err := s.ensureTeacher(ctx, teacherID); err != nil {
		return nil, err
	}

	offering := &models.SubjectOffering{
		TeacherID:   teacherID,
		Subject:     req.Subject,
		Level:       req.Level,
		Description: req.Description,
		Active:      true,
	}
	if req.HourlyRate != nil {
		offering.HourlyRate = *req.HourlyRate
	}
	if req.Active != nil {
		offering.Active = *req.Active
	}

	if err := s.offerings.Create(ctx, offering); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create subject offering")
	}
	return offering, nil
}

// Update edits an offering owned by the teacher.
func (s *SubjectService) Update(ctx context.Context, teacherID, offeringID string, req SaveOfferingRequest) (*models.SubjectOffering, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid offering payload")
	}

	offering, err := s.loadOwned(ctx, teacherID, offeringID)
	if err != nil {
		return nil, err
	}

	offering.Subject = req.Subject
	if req.Level != nil {
		offering.Level = req.Level
	}
	if req.Description != nil {
		offering.Description = req.Description
	}
	if req.HourlyRate != nil {
		offering.HourlyRate = *req.HourlyRate
	}
	if req.Active != nil {
		offering.Active = *req.Active
	}

	if err := s.offerings.Update(ctx, offering); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update subject offering")
	}
	return offering, nil
}

// Deactivate retires an offering without deleting booking history.
func (s *SubjectService) Deactivate(ctx context.Context, teacherID, offeringID string) error {
	if _, err := s.loadOwned(ctx, teacherID, offeringID); err != nil {
		return err
	}
	if err := s.offerings.Deactivate(ctx, offeringID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to deactivate subject offering")
	}
	return nil
}

func (s *SubjectService) ensureTeacher(ctx context.Context, teacherID string) error {
	if s.teachers == nil {
		return nil
	}
	if _, err := s.teachers.FindByID(ctx, teacherID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher")
	}
	return nil
}

func (s *SubjectService) loadOwned(ctx context.Context, teacherID, offeringID string) (*models.SubjectOffering, error) {
	offering, err := s.offerings.FindByID(ctx, offeringID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "subject offering not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subject offering")
	}
	if offering.TeacherID != teacherID {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "subject offering not found")
	}
	return offering, nil
}
