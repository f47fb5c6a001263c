package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ustozhub/ustozhub-api/internal/models"
	appErrors "github.com/ustozhub/ustozhub-api/pkg/errors"
)

type mockRuleRepo struct {
	items   map[string]*models.AvailabilityRule
	created []*models.AvailabilityRule
	deleted []string
}

func (m *mockRuleRepo) ListByTeacher(ctx context.Context, teacherID string) ([]models.AvailabilityRule, error) {
	var rules []models.AvailabilityRule
	for _, rule := range m.items {
		if rule.TeacherID == teacherID {
			rules = append(rules, *rule)
		}
	}
	return rules, nil
}

func (m *mockRuleRepo) FindByID(ctx context.Context, id string) (*models.AvailabilityRule, error) {
	if rule, ok := m.items[id]; ok {
		cp := *rule
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockRuleRepo) ListSameKey(ctx context.Context, rule *models.AvailabilityRule, excludeID string) ([]models.AvailabilityRule, error) {
	var matches []models.AvailabilityRule
	for _, other := range m.items {
		if other.ID == excludeID || other.TeacherID != rule.TeacherID || other.Type != rule.Type {
			continue
		}
		switch rule.Type {
		case models.RuleRecurring:
			if rule.Weekday != nil && other.Weekday != nil && *rule.Weekday == *other.Weekday {
				matches = append(matches, *other)
			}
		case models.RuleOneOff:
			if rule.Date != nil && other.Date != nil && rule.Date.Equal(*other.Date) {
				matches = append(matches, *other)
			}
		}
	}
	return matches, nil
}

func (m *mockRuleRepo) Create(ctx context.Context, rule *models.AvailabilityRule) error {
	if m.items == nil {
		m.items = make(map[string]*models.AvailabilityRule)
	}
	if rule.ID == "" {
		rule.ID = "generated"
	}
	cp := *rule
	m.items[rule.ID] = &cp
	m.created = append(m.created, &cp)
	return nil
}

func (m *mockRuleRepo) Update(ctx context.Context, rule *models.AvailabilityRule) error {
	cp := *rule
	m.items[rule.ID] = &cp
	return nil
}

func (m *mockRuleRepo) Delete(ctx context.Context, id string) error {
	delete(m.items, id)
	m.deleted = append(m.deleted, id)
	return nil
}

type mockInvalidator struct {
	teachers []string
}

func (m *mockInvalidator) InvalidateTeacher(ctx context.Context, teacherID string) {
	m.teachers = append(m.teachers, teacherID)
}

func newAvailabilityFixture(repo *mockRuleRepo) (*AvailabilityService, *mockInvalidator) {
	teachers := &mockSlotTeacherReader{items: map[string]*models.Teacher{
		"t1": approvedTeacher("Asia/Tashkent"),
	}}
	invalidator := &mockInvalidator{}
	service := NewAvailabilityService(repo, teachers, invalidator, validator.New(), zap.NewNop())
	return service, invalidator
}

func TestAvailabilityServiceCreateRecurring(t *testing.T) {
	repo := &mockRuleRepo{}
	service, invalidator := newAvailabilityFixture(repo)

	monday := 1
	rule, err := service.Create(context.Background(), "t1", SaveRuleRequest{
		Type:      models.RuleRecurring,
		Weekday:   &monday,
		StartTime: "09:00",
		EndTime:   "11:00",
	})
	require.NoError(t, err)
	assert.True(t, rule.IsOpen)
	assert.Len(t, repo.created, 1)
	assert.Equal(t, []string{"t1"}, invalidator.teachers)
}

func TestAvailabilityServiceCreateOverlapConflict(t *testing.T) {
	monday := 1
	repo := &mockRuleRepo{items: map[string]*models.AvailabilityRule{
		"r1": {ID: "r1", TeacherID: "t1", Type: models.RuleRecurring, Weekday: &monday, StartTime: "09:00", EndTime: "11:00", IsOpen: true},
	}}
	service, _ := newAvailabilityFixture(repo)

	_, err := service.Create(context.Background(), "t1", SaveRuleRequest{
		Type:      models.RuleRecurring,
		Weekday:   &monday,
		StartTime: "10:00",
		EndTime:   "12:00",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrScheduleConflict.Code, appErrors.FromError(err).Code)
}

// Back-to-back ranges share only a boundary instant and do not conflict.
func TestAvailabilityServiceCreateAdjacentAllowed(t *testing.T) {
	monday := 1
	repo := &mockRuleRepo{items: map[string]*models.AvailabilityRule{
		"r1": {ID: "r1", TeacherID: "t1", Type: models.RuleRecurring, Weekday: &monday, StartTime: "09:00", EndTime: "10:00", IsOpen: true},
	}}
	service, _ := newAvailabilityFixture(repo)

	_, err := service.Create(context.Background(), "t1", SaveRuleRequest{
		Type:      models.RuleRecurring,
		Weekday:   &monday,
		StartTime: "10:00",
		EndTime:   "11:00",
	})
	require.NoError(t, err)
}

func TestAvailabilityServiceCreatePastOneOff(t *testing.T) {
	repo := &mockRuleRepo{}
	service, _ := newAvailabilityFixture(repo)
	service.now = func() time.Time { return time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC) }

	past := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	_, err := service.Create(context.Background(), "t1", SaveRuleRequest{
		Type:      models.RuleOneOff,
		Date:      &past,
		StartTime: "09:00",
		EndTime:   "11:00",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrPastDate.Code, appErrors.FromError(err).Code)
}

func TestAvailabilityServiceCreateInvalidTimes(t *testing.T) {
	repo := &mockRuleRepo{}
	service, _ := newAvailabilityFixture(repo)
	monday := 1

	cases := []struct {
		name       string
		start, end string
	}{
		{"malformed start", "9am", "11:00"},
		{"out of range", "25:00", "26:00"},
		{"inverted", "11:00", "09:00"},
		{"empty interval", "09:00", "09:00"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := service.Create(context.Background(), "t1", SaveRuleRequest{
				Type:      models.RuleRecurring,
				Weekday:   &monday,
				StartTime: tc.start,
				EndTime:   tc.end,
			})
			require.Error(t, err)
			assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
		})
	}
}

func TestAvailabilityServiceCreateMissingKey(t *testing.T) {
	repo := &mockRuleRepo{}
	service, _ := newAvailabilityFixture(repo)

	_, err := service.Create(context.Background(), "t1", SaveRuleRequest{
		Type:      models.RuleRecurring,
		StartTime: "09:00",
		EndTime:   "11:00",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

// Updating a rule excludes itself from the conflict check, so shrinking or
// shifting inside its own window succeeds.
func TestAvailabilityServiceUpdateSelfExcluded(t *testing.T) {
	monday := 1
	repo := &mockRuleRepo{items: map[string]*models.AvailabilityRule{
		"r1": {ID: "r1", TeacherID: "t1", Type: models.RuleRecurring, Weekday: &monday, StartTime: "09:00", EndTime: "11:00", IsOpen: true},
	}}
	service, invalidator := newAvailabilityFixture(repo)

	updated, err := service.Update(context.Background(), "t1", "r1", SaveRuleRequest{
		Type:      models.RuleRecurring,
		Weekday:   &monday,
		StartTime: "09:30",
		EndTime:   "11:30",
	})
	require.NoError(t, err)
	assert.Equal(t, "09:30", updated.StartTime)
	assert.Contains(t, invalidator.teachers, "t1")
}

func TestAvailabilityServiceDeleteForeignRule(t *testing.T) {
	monday := 1
	repo := &mockRuleRepo{items: map[string]*models.AvailabilityRule{
		"r1": {ID: "r1", TeacherID: "other", Type: models.RuleRecurring, Weekday: &monday, StartTime: "09:00", EndTime: "11:00"},
	}}
	service, _ := newAvailabilityFixture(repo)

	err := service.Delete(context.Background(), "t1", "r1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
	assert.Empty(t, repo.deleted)
}
