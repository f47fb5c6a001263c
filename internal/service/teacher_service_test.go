package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ustozhub/ustozhub-api/internal/models"
	appErrors "github.com/ustozhub/ustozhub-api/pkg/errors"
)

type mockTeacherRepo struct {
	items        map[string]*models.Teacher
	emailIndex   map[string]string
	deactivated  []string
	verification map[string]models.VerificationStatus
}

func (m *mockTeacherRepo) List(ctx context.Context, filter models.TeacherFilter) ([]models.Teacher, int, error) {
	var list []models.Teacher
	for _, teacher := range m.items {
		list = append(list, *teacher)
	}
	return list, len(list), nil
}

func (m *mockTeacherRepo) FindByID(ctx context.Context, id string) (*models.Teacher, error) {
	if teacher, ok := m.items[id]; ok {
		cp := *teacher
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockTeacherRepo) FindByUserID(ctx context.Context, userID string) (*models.Teacher, error) {
	for _, teacher := range m.items {
		if teacher.UserID == userID {
			cp := *teacher
			return &cp, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockTeacherRepo) ExistsByEmail(ctx context.Context, email, excludeID string) (bool, error) {
	if owner, ok := m.emailIndex[email]; ok {
		if excludeID == "" || owner != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockTeacherRepo) Create(ctx context.Context, teacher *models.Teacher) error {
	if m.items == nil {
		m.items = make(map[string]*models.Teacher)
	}
	if teacher.ID == "" {
		teacher.ID = "generated"
	}
	cp := *teacher
	m.items[teacher.ID] = &cp
	return nil
}

func (m *mockTeacherRepo) Update(ctx context.Context, teacher *models.Teacher) error {
	cp := *teacher
	m.items[teacher.ID] = &cp
	return nil
}

func (m *mockTeacherRepo) UpdateVerification(ctx context.Context, id string, status models.VerificationStatus) error {
	if m.verification == nil {
		m.verification = make(map[string]models.VerificationStatus)
	}
	m.verification[id] = status
	if teacher, ok := m.items[id]; ok {
		teacher.VerificationStatus = status
	}
	return nil
}

func (m *mockTeacherRepo) Deactivate(ctx context.Context, id string) error {
	m.deactivated = append(m.deactivated, id)
	if teacher, ok := m.items[id]; ok {
		teacher.Active = false
	}
	return nil
}

func newTeacherService(repo *mockTeacherRepo) *TeacherService {
	return NewTeacherService(repo, validator.New(), zap.NewNop(), "Asia/Tashkent")
}

func TestTeacherServiceCreateDefaults(t *testing.T) {
	repo := &mockTeacherRepo{}
	service := newTeacherService(repo)

	teacher, err := service.Create(context.Background(), CreateTeacherRequest{
		UserID:   "u1",
		Email:    "teach@example.com",
		FullName: "Teacher One",
	})
	require.NoError(t, err)
	assert.Equal(t, models.VerificationPending, teacher.VerificationStatus)
	assert.Equal(t, "Asia/Tashkent", teacher.Timezone)
	assert.Equal(t, defaultMinNoticeHours, teacher.MinNoticeHours)
	assert.Equal(t, defaultMaxAdvanceDays, teacher.MaxAdvanceDays)
	assert.Equal(t, defaultCurrency, teacher.Currency)
	assert.True(t, teacher.Active)
}

func TestTeacherServiceCreateDuplicateEmail(t *testing.T) {
	repo := &mockTeacherRepo{emailIndex: map[string]string{"teach@example.com": "another"}}
	service := newTeacherService(repo)

	_, err := service.Create(context.Background(), CreateTeacherRequest{
		UserID:   "u1",
		Email:    "teach@example.com",
		FullName: "Teacher One",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestTeacherServiceCreateBadTimezone(t *testing.T) {
	service := newTeacherService(&mockTeacherRepo{})

	_, err := service.Create(context.Background(), CreateTeacherRequest{
		UserID:   "u1",
		Email:    "teach@example.com",
		FullName: "Teacher One",
		Timezone: "Mars/Olympus",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestTeacherServiceUpdatePolicy(t *testing.T) {
	repo := &mockTeacherRepo{items: map[string]*models.Teacher{
		"t1": {ID: "t1", UserID: "u1", Email: "teach@example.com", FullName: "Teacher One", Timezone: "Asia/Tashkent", Active: true},
	}}
	service := newTeacherService(repo)

	notice := 24
	advance := 60
	updated, err := service.Update(context.Background(), "t1", UpdateTeacherRequest{
		MinNoticeHours: &notice,
		MaxAdvanceDays: &advance,
	})
	require.NoError(t, err)
	assert.Equal(t, 24, updated.MinNoticeHours)
	assert.Equal(t, 60, updated.MaxAdvanceDays)
}

func TestTeacherServiceSetVerification(t *testing.T) {
	repo := &mockTeacherRepo{items: map[string]*models.Teacher{
		"t1": {ID: "t1", VerificationStatus: models.VerificationPending},
	}}
	service := newTeacherService(repo)

	teacher, err := service.SetVerification(context.Background(), "t1", models.VerificationApproved)
	require.NoError(t, err)
	assert.Equal(t, models.VerificationApproved, teacher.VerificationStatus)
	assert.Equal(t, models.VerificationApproved, repo.verification["t1"])

	_, err = service.SetVerification(context.Background(), "t1", models.VerificationStatus("BANANA"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestTeacherServiceDeactivate(t *testing.T) {
	repo := &mockTeacherRepo{items: map[string]*models.Teacher{
		"t1": {ID: "t1", Active: true},
	}}
	service := newTeacherService(repo)

	require.NoError(t, service.Deactivate(context.Background(), "t1"))
	assert.Equal(t, []string{"t1"}, repo.deactivated)

	err := service.Deactivate(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
