package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ustozhub/ustozhub-api/internal/dto"
	"github.com/ustozhub/ustozhub-api/internal/models"
	appErrors "github.com/ustozhub/ustozhub-api/pkg/errors"
	"github.com/ustozhub/ustozhub-api/pkg/jobs"
	"github.com/ustozhub/ustozhub-api/pkg/payments"
)

type mockBookingRepo struct {
	items    map[string]*models.Booking
	blocking []models.Booking
	created  []*models.Booking
	statuses map[string]models.BookingStatus
}

func (m *mockBookingRepo) FindByID(ctx context.Context, id string) (*models.Booking, error) {
	if booking, ok := m.items[id]; ok {
		cp := *booking
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockBookingRepo) LockBlockingInRange(ctx context.Context, tx *sqlx.Tx, teacherID string, from, to time.Time) ([]models.Booking, error) {
	return m.blocking, nil
}

func (m *mockBookingRepo) CreateWithTx(ctx context.Context, tx *sqlx.Tx, booking *models.Booking) error {
	if m.items == nil {
		m.items = make(map[string]*models.Booking)
	}
	cp := *booking
	m.items[booking.ID] = &cp
	m.created = append(m.created, &cp)
	return nil
}

func (m *mockBookingRepo) UpdateStatus(ctx context.Context, id string, status models.BookingStatus) error {
	if m.statuses == nil {
		m.statuses = make(map[string]models.BookingStatus)
	}
	m.statuses[id] = status
	if booking, ok := m.items[id]; ok {
		booking.Status = status
	}
	return nil
}

func (m *mockBookingRepo) List(ctx context.Context, filter models.BookingFilter) ([]models.Booking, int, error) {
	var list []models.Booking
	for _, booking := range m.items {
		list = append(list, *booking)
	}
	return list, len(list), nil
}

type mockSlotGenerator struct {
	offered     []dto.Slot
	invalidated []string
}

func (m *mockSlotGenerator) Generate(ctx context.Context, query dto.SlotQuery) (*dto.SlotsResponse, error) {
	return &dto.SlotsResponse{Slots: m.offered, Duration: query.Duration}, nil
}

func (m *mockSlotGenerator) InvalidateTeacher(ctx context.Context, teacherID string) {
	m.invalidated = append(m.invalidated, teacherID)
}

type mockPaymentProvider struct {
	captured []payments.Charge
	refunded []string
}

func (m *mockPaymentProvider) Capture(ctx context.Context, charge payments.Charge) error {
	m.captured = append(m.captured, charge)
	return nil
}

func (m *mockPaymentProvider) Refund(ctx context.Context, bookingID string) error {
	m.refunded = append(m.refunded, bookingID)
	return nil
}

type mockQueue struct {
	enqueued []jobs.Job
}

func (m *mockQueue) Enqueue(job jobs.Job) error {
	m.enqueued = append(m.enqueued, job)
	return nil
}

type bookingFixture struct {
	service  *BookingService
	repo     *mockBookingRepo
	slots    *mockSlotGenerator
	payments *mockPaymentProvider
	queue    *mockQueue
	mock     sqlmock.Sqlmock
	cleanup  func()
}

func newBookingFixture(t *testing.T, repo *mockBookingRepo, slots *mockSlotGenerator) *bookingFixture {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	sqlxDB := sqlx.NewDb(db, "sqlmock")

	teachers := &mockSlotTeacherReader{items: map[string]*models.Teacher{"t1": {
		ID:                 "t1",
		Email:              "teacher@example.com",
		Timezone:           "Asia/Tashkent",
		MinNoticeHours:     12,
		MaxAdvanceDays:     30,
		HourlyRate:         150000,
		Currency:           "UZS",
		VerificationStatus: models.VerificationApproved,
		Active:             true,
	}}}
	provider := &mockPaymentProvider{}
	queue := &mockQueue{}

	service := NewBookingService(repo, teachers, slots, provider, queue, sqlxDB, validator.New(), zap.NewNop())
	return &bookingFixture{
		service:  service,
		repo:     repo,
		slots:    slots,
		payments: provider,
		queue:    queue,
		mock:     mock,
		cleanup:  func() { db.Close() },
	}
}

func TestBookingServiceCreate(t *testing.T) {
	startAt := time.Date(2025, 6, 2, 4, 0, 0, 0, time.UTC)
	slots := &mockSlotGenerator{offered: []dto.Slot{{
		StartAt:  startAt,
		EndAt:    startAt.Add(time.Hour),
		Duration: 60,
	}}}
	repo := &mockBookingRepo{}
	fx := newBookingFixture(t, repo, slots)
	defer fx.cleanup()
	fx.service.now = func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) }

	fx.mock.ExpectBegin()
	fx.mock.ExpectCommit()

	booking, err := fx.service.Create(context.Background(), "s1", CreateBookingRequest{
		TeacherID: "t1",
		StartAt:   startAt,
		Duration:  60,
	})
	require.NoError(t, err)
	assert.Equal(t, models.BookingPending, booking.Status)
	assert.Equal(t, startAt, booking.StartAt)
	assert.Equal(t, startAt.Add(time.Hour), booking.EndAt)
	assert.Equal(t, int64(150000), booking.Price)
	assert.Len(t, repo.created, 1)
	assert.Equal(t, []string{"t1"}, fx.slots.invalidated)
	require.Len(t, fx.queue.enqueued, 1)
	assert.Equal(t, JobBookingCreated, fx.queue.enqueued[0].Type)
	assert.NoError(t, fx.mock.ExpectationsWereMet())
}

// A blocking booking found under the row lock aborts the insert even when
// the pre-check saw a free slot.
func TestBookingServiceCreateConflictUnderLock(t *testing.T) {
	startAt := time.Date(2025, 6, 2, 4, 0, 0, 0, time.UTC)
	slots := &mockSlotGenerator{offered: []dto.Slot{{
		StartAt:  startAt,
		EndAt:    startAt.Add(time.Hour),
		Duration: 60,
	}}}
	repo := &mockBookingRepo{blocking: []models.Booking{{
		ID:      "existing",
		StartAt: startAt.Add(30 * time.Minute),
		EndAt:   startAt.Add(90 * time.Minute),
		Status:  models.BookingPending,
	}}}
	fx := newBookingFixture(t, repo, slots)
	defer fx.cleanup()
	fx.service.now = func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) }

	fx.mock.ExpectBegin()
	fx.mock.ExpectRollback()

	_, err := fx.service.Create(context.Background(), "s1", CreateBookingRequest{
		TeacherID: "t1",
		StartAt:   startAt,
		Duration:  60,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrScheduleConflict.Code, appErrors.FromError(err).Code)
	assert.Empty(t, repo.created)
	assert.NoError(t, fx.mock.ExpectationsWereMet())
}

func TestBookingServiceCreateUnofferedSlot(t *testing.T) {
	startAt := time.Date(2025, 6, 2, 4, 0, 0, 0, time.UTC)
	fx := newBookingFixture(t, &mockBookingRepo{}, &mockSlotGenerator{})
	defer fx.cleanup()
	fx.service.now = func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) }

	_, err := fx.service.Create(context.Background(), "s1", CreateBookingRequest{
		TeacherID: "t1",
		StartAt:   startAt,
		Duration:  60,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrScheduleConflict.Code, appErrors.FromError(err).Code)
}

func TestBookingServiceCreatePastStart(t *testing.T) {
	fx := newBookingFixture(t, &mockBookingRepo{}, &mockSlotGenerator{})
	defer fx.cleanup()
	fx.service.now = func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) }

	_, err := fx.service.Create(context.Background(), "s1", CreateBookingRequest{
		TeacherID: "t1",
		StartAt:   time.Date(2025, 5, 30, 9, 0, 0, 0, time.UTC),
		Duration:  60,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrPastDate.Code, appErrors.FromError(err).Code)
}

func TestBookingServiceConfirmCapturesPayment(t *testing.T) {
	repo := &mockBookingRepo{items: map[string]*models.Booking{
		"b1": {ID: "b1", TeacherID: "t1", StudentID: "s1", Status: models.BookingPending, Price: 150000, Currency: "UZS"},
	}}
	fx := newBookingFixture(t, repo, &mockSlotGenerator{})
	defer fx.cleanup()

	booking, err := fx.service.Transition(context.Background(), "b1", models.BookingConfirmed)
	require.NoError(t, err)
	assert.Equal(t, models.BookingConfirmed, booking.Status)
	require.Len(t, fx.payments.captured, 1)
	assert.Equal(t, int64(150000), fx.payments.captured[0].Amount)
}

func TestBookingServiceCancelConfirmedRefunds(t *testing.T) {
	repo := &mockBookingRepo{items: map[string]*models.Booking{
		"b1": {ID: "b1", TeacherID: "t1", StudentID: "s1", Status: models.BookingConfirmed},
	}}
	fx := newBookingFixture(t, repo, &mockSlotGenerator{})
	defer fx.cleanup()

	booking, err := fx.service.Transition(context.Background(), "b1", models.BookingCancelled)
	require.NoError(t, err)
	assert.Equal(t, models.BookingCancelled, booking.Status)
	assert.Equal(t, []string{"b1"}, fx.payments.refunded)
	assert.Equal(t, []string{"t1"}, fx.slots.invalidated)
	require.Len(t, fx.queue.enqueued, 1)
	assert.Equal(t, JobBookingCancelled, fx.queue.enqueued[0].Type)
}

func TestBookingServiceIllegalTransition(t *testing.T) {
	repo := &mockBookingRepo{items: map[string]*models.Booking{
		"b1": {ID: "b1", Status: models.BookingCompleted},
	}}
	fx := newBookingFixture(t, repo, &mockSlotGenerator{})
	defer fx.cleanup()

	cases := []models.BookingStatus{
		models.BookingPending,
		models.BookingConfirmed,
		models.BookingCancelled,
	}
	for _, target := range cases {
		_, err := fx.service.Transition(context.Background(), "b1", target)
		require.Error(t, err)
		assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
	}
}
