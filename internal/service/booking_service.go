package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/ustozhub/ustozhub-api/internal/dto"
	"github.com/ustozhub/ustozhub-api/internal/models"
	appErrors "github.com/ustozhub/ustozhub-api/pkg/errors"
	"github.com/ustozhub/ustozhub-api/pkg/jobs"
	"github.com/ustozhub/ustozhub-api/pkg/payments"
	"github.com/ustozhub/ustozhub-api/pkg/timeutil"
)

// Notification job types emitted by the booking lifecycle.
const (
	JobBookingCreated   = "booking.created"
	JobBookingCancelled = "booking.cancelled"
)

type bookingRepository interface {
	FindByID(ctx context.Context, id string) (*models.Booking, error)
	LockBlockingInRange(ctx context.Context, tx *sqlx.Tx, teacherID string, from, to time.Time) ([]models.Booking, error)
	CreateWithTx(ctx context.Context, tx *sqlx.Tx, booking *models.Booking) error
	UpdateStatus(ctx context.Context, id string, status models.BookingStatus) error
	List(ctx context.Context, filter models.BookingFilter) ([]models.Booking, int, error)
}

type bookingTeacherReader interface {
	FindByID(ctx context.Context, id string) (*models.Teacher, error)
}

type bookingSlotGenerator interface {
	Generate(ctx context.Context, query dto.SlotQuery) (*dto.SlotsResponse, error)
	InvalidateTeacher(ctx context.Context, teacherID string)
}

type bookingPaymentProvider interface {
	Capture(ctx context.Context, charge payments.Charge) error
	Refund(ctx context.Context, bookingID string) error
}

type txProvider interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

type jobEnqueuer interface {
	Enqueue(job jobs.Job) error
}

// CreateBookingRequest is the payload for reserving a slot. StartAt must
// exactly match a generated slot start.
type CreateBookingRequest struct {
	TeacherID         string    `json:"teacher_id" validate:"required"`
	StartAt           time.Time `json:"start_at" validate:"required"`
	Duration          int       `json:"duration" validate:"required"`
	SubjectOfferingID *string   `json:"subject_offering_id"`
	Note              *string   `json:"note"`
}

// BookingService reserves, confirms and cancels lessons.
type BookingService struct {
	bookings  bookingRepository
	teachers  bookingTeacherReader
	slots     bookingSlotGenerator
	payments  bookingPaymentProvider
	queue     jobEnqueuer
	tx        txProvider
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewBookingService wires booking dependencies.
func NewBookingService(
	bookings bookingRepository,
	teachers bookingTeacherReader,
	slots bookingSlotGenerator,
	payments bookingPaymentProvider,
	queue jobEnqueuer,
	tx txProvider,
	validate *validator.Validate,
	logger *zap.Logger,
) *BookingService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BookingService{
		bookings:  bookings,
		teachers:  teachers,
		slots:     slots,
		payments:  payments,
		queue:     queue,
		tx:        tx,
		validator: validate,
		logger:    logger,
		now:       time.Now,
	}
}

// Create reserves a slot for a student. The offered-slot check runs first;
// then the availability re-check and the insert share one transaction that
// locks the teacher's active bookings in the window, so two concurrent
// requests for overlapping windows cannot both commit.
func (s *BookingService) Create(ctx context.Context, studentID string, req CreateBookingRequest) (*models.Booking, error) {
	if studentID == "" {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "student identity missing")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid booking payload")
	}

	teacher, err := s.teachers.FindByID(ctx, req.TeacherID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher")
	}
	if !teacher.Active || teacher.VerificationStatus != models.VerificationApproved {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
	}

	now := s.now()
	if req.StartAt.Before(now) {
		return nil, appErrors.Clone(appErrors.ErrPastDate, "booking start is in the past")
	}

	startAt := req.StartAt.UTC()
	endAt := startAt.Add(time.Duration(req.Duration) * time.Minute)

	if err := s.ensureSlotOffered(ctx, teacher, startAt, req.Duration, now); err != nil {
		return nil, err
	}

	booking := &models.Booking{
		ID:                uuid.NewString(),
		TeacherID:         req.TeacherID,
		StudentID:         studentID,
		SubjectOfferingID: req.SubjectOfferingID,
		StartAt:           startAt,
		EndAt:             endAt,
		Status:            models.BookingPending,
		Price:             teacher.HourlyRate * int64(req.Duration) / 60,
		Currency:          teacher.Currency,
		Note:              req.Note,
	}

	if err := s.insertSerialized(ctx, booking); err != nil {
		return nil, err
	}

	s.slots.InvalidateTeacher(ctx, req.TeacherID)
	s.enqueueNotification(JobBookingCreated, booking)
	return booking, nil
}

// insertSerialized locks the teacher's blocking bookings in the window,
// re-checks for overlap under the lock and inserts.
func (s *BookingService) insertSerialized(ctx context.Context, booking *models.Booking) error {
	if s.tx == nil {
		return appErrors.Clone(appErrors.ErrInternal, "transaction provider missing")
	}

	tx, err := s.tx.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin booking transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var blocking []models.Booking
	blocking, err = s.bookings.LockBlockingInRange(ctx, tx, booking.TeacherID, booking.StartAt, booking.EndAt)
	if err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to lock bookings")
		return err
	}
	for _, other := range blocking {
		if timeutil.Overlaps(booking.StartAt, booking.EndAt, other.StartAt, other.EndAt) {
			err = appErrors.Clone(appErrors.ErrScheduleConflict, "slot is no longer available")
			return err
		}
	}

	if err = s.bookings.CreateWithTx(ctx, tx, booking); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create booking")
		return err
	}
	if err = tx.Commit(); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit booking")
		return err
	}
	return nil
}

// ensureSlotOffered regenerates the day's slots under the same clock and
// requires the requested start to be one of them.
func (s *BookingService) ensureSlotOffered(ctx context.Context, teacher *models.Teacher, startAt time.Time, duration int, now time.Time) error {
	loc, err := time.LoadLocation(teacher.Timezone)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "invalid teacher timezone")
	}
	day := timeutil.StartOfDay(startAt, loc)

	offered, err := s.slots.Generate(ctx, dto.SlotQuery{
		TeacherID: teacher.ID,
		StartDate: day,
		EndDate:   day,
		Duration:  duration,
		Now:       now,
	})
	if err != nil {
		return err
	}
	for _, slot := range offered.Slots {
		if slot.StartAt.Equal(startAt) {
			return nil
		}
	}
	return appErrors.Clone(appErrors.ErrScheduleConflict, "requested slot is not offered")
}

// Get returns a booking by ID.
func (s *BookingService) Get(ctx context.Context, id string) (*models.Booking, error) {
	booking, err := s.bookings.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "booking not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load booking")
	}
	return booking, nil
}

// List returns bookings matching the filter with a total count.
func (s *BookingService) List(ctx context.Context, filter models.BookingFilter) ([]models.Booking, int, error) {
	bookings, total, err := s.bookings.List(ctx, filter)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list bookings")
	}
	if bookings == nil {
		bookings = []models.Booking{}
	}
	return bookings, total, nil
}

// legalTransitions maps each status to the states it may move to.
var legalTransitions = map[models.BookingStatus][]models.BookingStatus{
	models.BookingPending:   {models.BookingConfirmed, models.BookingCancelled},
	models.BookingConfirmed: {models.BookingCompleted, models.BookingCancelled},
}

// Transition moves a booking through its lifecycle. Confirming captures
// payment; cancelling a confirmed booking refunds it and frees the window.
func (s *BookingService) Transition(ctx context.Context, id string, target models.BookingStatus) (*models.Booking, error) {
	booking, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if !transitionAllowed(booking.Status, target) {
		return nil, appErrors.Clone(appErrors.ErrConflict,
			fmt.Sprintf("cannot move booking from %s to %s", booking.Status, target))
	}

	if target == models.BookingConfirmed && s.payments != nil {
		charge := payments.Charge{
			BookingID: booking.ID,
			StudentID: booking.StudentID,
			Amount:    booking.Price,
			Currency:  booking.Currency,
		}
		if err := s.payments.Capture(ctx, charge); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "payment capture failed")
		}
	}
	if target == models.BookingCancelled && booking.Status == models.BookingConfirmed && s.payments != nil {
		if err := s.payments.Refund(ctx, booking.ID); err != nil {
			s.logger.Error("payment refund failed", zap.String("booking_id", booking.ID), zap.Error(err))
		}
	}

	if err := s.bookings.UpdateStatus(ctx, id, target); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update booking status")
	}
	booking.Status = target

	if target == models.BookingCancelled {
		s.slots.InvalidateTeacher(ctx, booking.TeacherID)
		s.enqueueNotification(JobBookingCancelled, booking)
	}
	return booking, nil
}

func transitionAllowed(from, to models.BookingStatus) bool {
	for _, allowed := range legalTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

func (s *BookingService) enqueueNotification(jobType string, booking *models.Booking) {
	if s.queue == nil {
		return
	}
	err := s.queue.Enqueue(jobs.Job{
		ID:      uuid.NewString(),
		Type:    jobType,
		Payload: booking,
	})
	if err != nil {
		s.logger.Warn("failed to enqueue booking notification",
			zap.String("type", jobType), zap.String("booking_id", booking.ID), zap.Error(err))
	}
}
