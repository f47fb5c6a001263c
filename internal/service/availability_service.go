package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/ustozhub/ustozhub-api/internal/models"
	appErrors "github.com/ustozhub/ustozhub-api/pkg/errors"
	"github.com/ustozhub/ustozhub-api/pkg/timeutil"
)

type availabilityRuleRepository interface {
	ListByTeacher(ctx context.Context, teacherID string) ([]models.AvailabilityRule, error)
	FindByID(ctx context.Context, id string) (*models.AvailabilityRule, error)
	ListSameKey(ctx context.Context, rule *models.AvailabilityRule, excludeID string) ([]models.AvailabilityRule, error)
	Create(ctx context.Context, rule *models.AvailabilityRule) error
	Update(ctx context.Context, rule *models.AvailabilityRule) error
	Delete(ctx context.Context, id string) error
}

type availabilityTeacherReader interface {
	FindByID(ctx context.Context, id string) (*models.Teacher, error)
}

type slotInvalidator interface {
	InvalidateTeacher(ctx context.Context, teacherID string)
}

// SaveRuleRequest is the payload for creating or updating an availability
// rule. Weekday is required for recurring rules, Date for one-off rules.
type SaveRuleRequest struct {
	Type      models.RuleType `json:"type" validate:"required,oneof=recurring one_off"`
	Weekday   *int            `json:"weekday" validate:"omitempty,min=0,max=6"`
	Date      *time.Time      `json:"date"`
	StartTime string          `json:"start_time" validate:"required"`
	EndTime   string          `json:"end_time" validate:"required"`
	IsOpen    *bool           `json:"is_open"`
}

// AvailabilityService manages a teacher's availability rules.
type AvailabilityService struct {
	rules     availabilityRuleRepository
	teachers  availabilityTeacherReader
	slots     slotInvalidator
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewAvailabilityService wires availability dependencies.
func NewAvailabilityService(
	rules availabilityRuleRepository,
	teachers availabilityTeacherReader,
	slots slotInvalidator,
	validate *validator.Validate,
	logger *zap.Logger,
) *AvailabilityService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AvailabilityService{
		rules:     rules,
		teachers:  teachers,
		slots:     slots,
		validator: validate,
		logger:    logger,
		now:       time.Now,
	}
}

// ListByTeacher returns the teacher's rules, recurring first.
func (s *AvailabilityService) ListByTeacher(ctx context.Context, teacherID string) ([]models.AvailabilityRule, error) {
	if _, err := s.loadTeacher(ctx, teacherID); err != nil {
		return nil, err
	}
	rules, err := s.rules.ListByTeacher(ctx, teacherID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list availability rules")
	}
	if rules == nil {
		rules = []models.AvailabilityRule{}
	}
	return rules, nil
}

// Create validates and stores a new rule, then invalidates cached slots.
func (s *AvailabilityService) Create(ctx context.Context, teacherID string, req SaveRuleRequest) (*models.AvailabilityRule, error) {
	teacher, err := s.loadTeacher(ctx, teacherID)
	if err != nil {
		return nil, err
	}

	rule := &models.AvailabilityRule{
		TeacherID: teacherID,
		Type:      req.Type,
		Weekday:   req.Weekday,
		Date:      req.Date,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
		IsOpen:    true,
	}
	if req.IsOpen != nil {
		rule.IsOpen = *req.IsOpen
	}

	if err := s.validateRule(req, teacher); err != nil {
		return nil, err
	}
	if err := s.ensureNoConflict(ctx, rule, ""); err != nil {
		return nil, err
	}

	if err := s.rules.Create(ctx, rule); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create availability rule")
	}
	s.invalidate(ctx, teacherID)
	return rule, nil
}

// Update applies the payload to an existing rule, re-running the same
// checks with the rule itself excluded from the conflict query.
func (s *AvailabilityService) Update(ctx context.Context, teacherID, ruleID string, req SaveRuleRequest) (*models.AvailabilityRule, error) {
	teacher, err := s.loadTeacher(ctx, teacherID)
	if err != nil {
		return nil, err
	}

	existing, err := s.loadOwnedRule(ctx, teacherID, ruleID)
	if err != nil {
		return nil, err
	}

	if err := s.validateRule(req, teacher); err != nil {
		return nil, err
	}

	existing.Type = req.Type
	existing.Weekday = req.Weekday
	existing.Date = req.Date
	existing.StartTime = req.StartTime
	existing.EndTime = req.EndTime
	if req.IsOpen != nil {
		existing.IsOpen = *req.IsOpen
	}

	if err := s.ensureNoConflict(ctx, existing, ruleID); err != nil {
		return nil, err
	}

	if err := s.rules.Update(ctx, existing); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update availability rule")
	}
	s.invalidate(ctx, teacherID)
	return existing, nil
}

// Delete removes a rule owned by the teacher.
func (s *AvailabilityService) Delete(ctx context.Context, teacherID, ruleID string) error {
	if _, err := s.loadOwnedRule(ctx, teacherID, ruleID); err != nil {
		return err
	}
	if err := s.rules.Delete(ctx, ruleID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete availability rule")
	}
	s.invalidate(ctx, teacherID)
	return nil
}

func (s *AvailabilityService) loadTeacher(ctx context.Context, teacherID string) (*models.Teacher, error) {
	teacher, err := s.teachers.FindByID(ctx, teacherID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher")
	}
	return teacher, nil
}

func (s *AvailabilityService) loadOwnedRule(ctx context.Context, teacherID, ruleID string) (*models.AvailabilityRule, error) {
	rule, err := s.rules.FindByID(ctx, ruleID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "availability rule not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load availability rule")
	}
	if rule.TeacherID != teacherID {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "availability rule not found")
	}
	return rule, nil
}

func (s *AvailabilityService) validateRule(req SaveRuleRequest, teacher *models.Teacher) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid availability rule payload")
	}

	start, err := timeutil.ParseClock(req.StartTime)
	if err != nil {
		return appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	end, err := timeutil.ParseClock(req.EndTime)
	if err != nil {
		return appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	if !start.Before(end) {
		return appErrors.Clone(appErrors.ErrValidation, "start_time must be before end_time")
	}

	switch req.Type {
	case models.RuleRecurring:
		if req.Weekday == nil {
			return appErrors.Clone(appErrors.ErrValidation, "weekday is required for recurring rules")
		}
		if req.Date != nil {
			return appErrors.Clone(appErrors.ErrValidation, "recurring rules must not carry a date")
		}
	case models.RuleOneOff:
		if req.Date == nil {
			return appErrors.Clone(appErrors.ErrValidation, "date is required for one-off rules")
		}
		if req.Weekday != nil {
			return appErrors.Clone(appErrors.ErrValidation, "one-off rules must not carry a weekday")
		}
		loc, locErr := time.LoadLocation(teacher.Timezone)
		if locErr != nil {
			loc = time.UTC
		}
		today := timeutil.StartOfDay(s.now(), loc)
		ruleDay := timeutil.Clock{}.At(*req.Date, loc)
		if ruleDay.Before(today) {
			return appErrors.Clone(appErrors.ErrPastDate, "one-off rule date is in the past")
		}
	}
	return nil
}

// ensureNoConflict rejects rules whose time-of-day interval intersects an
// existing rule with the same type and key. Adjacent intervals are fine.
func (s *AvailabilityService) ensureNoConflict(ctx context.Context, rule *models.AvailabilityRule, excludeID string) error {
	siblings, err := s.rules.ListSameKey(ctx, rule, excludeID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check rule conflicts")
	}

	start, _ := timeutil.ParseClock(rule.StartTime)
	end, _ := timeutil.ParseClock(rule.EndTime)
	for _, sibling := range siblings {
		sibStart, err := timeutil.ParseClock(sibling.StartTime)
		if err != nil {
			continue
		}
		sibEnd, err := timeutil.ParseClock(sibling.EndTime)
		if err != nil {
			continue
		}
		if timeutil.ClockOverlaps(start, end, sibStart, sibEnd) {
			return appErrors.Clone(appErrors.ErrScheduleConflict,
				fmt.Sprintf("rule overlaps existing rule %s (%s-%s)", sibling.ID, sibling.StartTime, sibling.EndTime))
		}
	}
	return nil
}

func (s *AvailabilityService) invalidate(ctx context.Context, teacherID string) {
	if s.slots != nil {
		s.slots.InvalidateTeacher(ctx, teacherID)
	}
}
