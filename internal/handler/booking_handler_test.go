package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ustozhub/ustozhub-api/internal/middleware"
	"github.com/ustozhub/ustozhub-api/internal/models"
	"github.com/ustozhub/ustozhub-api/internal/service"
	appErrors "github.com/ustozhub/ustozhub-api/pkg/errors"
	"github.com/ustozhub/ustozhub-api/pkg/export"
)

type bookingServiceMock struct {
	booking    *models.Booking
	bookings   []models.Booking
	err        error
	studentID  string
	lastFilter models.BookingFilter
	transition models.BookingStatus
}

func (m *bookingServiceMock) Create(ctx context.Context, studentID string, req service.CreateBookingRequest) (*models.Booking, error) {
	m.studentID = studentID
	if m.err != nil {
		return nil, m.err
	}
	return m.booking, nil
}

func (m *bookingServiceMock) Get(ctx context.Context, id string) (*models.Booking, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.booking, nil
}

func (m *bookingServiceMock) List(ctx context.Context, filter models.BookingFilter) ([]models.Booking, int, error) {
	m.lastFilter = filter
	if m.err != nil {
		return nil, 0, m.err
	}
	return m.bookings, len(m.bookings), nil
}

func (m *bookingServiceMock) Transition(ctx context.Context, id string, target models.BookingStatus) (*models.Booking, error) {
	m.transition = target
	if m.err != nil {
		return nil, m.err
	}
	booking := *m.booking
	booking.Status = target
	return &booking, nil
}

func newBookingContext(t *testing.T, method, target string, body interface{}) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, target, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	return c, w
}

func sampleBooking() *models.Booking {
	startAt := time.Date(2025, 6, 2, 4, 0, 0, 0, time.UTC)
	return &models.Booking{
		ID:        "b1",
		TeacherID: "t1",
		StudentID: "s1",
		StartAt:   startAt,
		EndAt:     startAt.Add(time.Hour),
		Status:    models.BookingPending,
		Price:     150000,
		Currency:  "UZS",
	}
}

func TestBookingHandlerCreateUsesClaimsIdentity(t *testing.T) {
	mock := &bookingServiceMock{booking: sampleBooking()}
	handler := NewBookingHandler(mock, nil, export.NewCSVExporter())

	c, w := newBookingContext(t, http.MethodPost, "/bookings", service.CreateBookingRequest{
		TeacherID: "t1",
		StartAt:   time.Date(2025, 6, 2, 4, 0, 0, 0, time.UTC),
		Duration:  60,
	})
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "s1", Role: models.RoleStudent})

	handler.Create(c)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "s1", mock.studentID)
}

func TestBookingHandlerCreateConflict(t *testing.T) {
	mock := &bookingServiceMock{err: appErrors.Clone(appErrors.ErrScheduleConflict, "slot is no longer available")}
	handler := NewBookingHandler(mock, nil, export.NewCSVExporter())

	c, w := newBookingContext(t, http.MethodPost, "/bookings", service.CreateBookingRequest{
		TeacherID: "t1",
		StartAt:   time.Date(2025, 6, 2, 4, 0, 0, 0, time.UTC),
		Duration:  60,
	})
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "s1", Role: models.RoleStudent})

	handler.Create(c)
	require.Equal(t, http.StatusConflict, w.Code)

	var envelope struct {
		Error *appErrors.Error `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.NotNil(t, envelope.Error)
	assert.Equal(t, appErrors.ErrScheduleConflict.Code, envelope.Error.Code)
}

func TestBookingHandlerListScopesStudents(t *testing.T) {
	mock := &bookingServiceMock{bookings: []models.Booking{*sampleBooking()}}
	handler := NewBookingHandler(mock, nil, export.NewCSVExporter())

	c, w := newBookingContext(t, http.MethodGet, "/bookings?studentId=someone-else", nil)
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "s1", Role: models.RoleStudent})

	handler.List(c)
	require.Equal(t, http.StatusOK, w.Code)
	// Students cannot list another student's bookings regardless of query.
	assert.Equal(t, "s1", mock.lastFilter.StudentID)
}

func TestBookingHandlerListBadStatus(t *testing.T) {
	handler := NewBookingHandler(&bookingServiceMock{}, nil, export.NewCSVExporter())

	c, w := newBookingContext(t, http.MethodGet, "/bookings?status=BANANA", nil)
	handler.List(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestBookingHandlerUpdateStatus(t *testing.T) {
	mock := &bookingServiceMock{booking: sampleBooking()}
	handler := NewBookingHandler(mock, nil, export.NewCSVExporter())

	c, w := newBookingContext(t, http.MethodPatch, "/bookings/b1/status", UpdateBookingStatusRequest{
		Status: models.BookingConfirmed,
	})
	c.Params = gin.Params{{Key: "id", Value: "b1"}}

	handler.UpdateStatus(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.BookingConfirmed, mock.transition)
}

func TestBookingHandlerGetForeignBookingHidden(t *testing.T) {
	mock := &bookingServiceMock{booking: sampleBooking()}
	handler := NewBookingHandler(mock, nil, export.NewCSVExporter())

	c, w := newBookingContext(t, http.MethodGet, "/bookings/b1", nil)
	c.Params = gin.Params{{Key: "id", Value: "b1"}}
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "intruder", Role: models.RoleStudent})

	handler.Get(c)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestBookingHandlerExportCSV(t *testing.T) {
	mock := &bookingServiceMock{bookings: []models.Booking{*sampleBooking()}}
	handler := NewBookingHandler(mock, nil, export.NewCSVExporter())

	c, w := newBookingContext(t, http.MethodGet, "/bookings/export", nil)
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "admin", Role: models.RoleAdmin})

	handler.ExportCSV(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "bookings-")

	lines := strings.Split(strings.TrimSpace(w.Body.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "ID,Teacher,Student,Start,End,Status,Price,Currency", strings.TrimSpace(lines[0]))
	assert.Contains(t, lines[1], "b1")
	assert.Contains(t, lines[1], "150000")
}
