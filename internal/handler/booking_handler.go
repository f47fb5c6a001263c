package handler

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ustozhub/ustozhub-api/internal/models"
	"github.com/ustozhub/ustozhub-api/internal/service"
	appErrors "github.com/ustozhub/ustozhub-api/pkg/errors"
	"github.com/ustozhub/ustozhub-api/pkg/export"
	"github.com/ustozhub/ustozhub-api/pkg/response"
)

type bookingService interface {
	Create(ctx context.Context, studentID string, req service.CreateBookingRequest) (*models.Booking, error)
	Get(ctx context.Context, id string) (*models.Booking, error)
	List(ctx context.Context, filter models.BookingFilter) ([]models.Booking, int, error)
	Transition(ctx context.Context, id string, target models.BookingStatus) (*models.Booking, error)
}

// BookingHandler wires the booking lifecycle to HTTP routes.
type BookingHandler struct {
	bookings bookingService
	metrics  *service.MetricsService
	csv      *export.CSVExporter
}

// NewBookingHandler constructs a new BookingHandler.
func NewBookingHandler(bookings bookingService, metrics *service.MetricsService, csv *export.CSVExporter) *BookingHandler {
	return &BookingHandler{bookings: bookings, metrics: metrics, csv: csv}
}

// Create godoc
// @Summary Book a slot
// @Tags Bookings
// @Accept json
// @Produce json
// @Param payload body service.CreateBookingRequest true "Booking payload"
// @Success 201 {object} response.Envelope
// @Router /bookings [post]
func (h *BookingHandler) Create(c *gin.Context) {
	var req service.CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid booking payload"))
		return
	}

	var studentID string
	if claims := claimsFromContext(c); claims != nil {
		studentID = claims.UserID
	}

	booking, err := h.bookings.Create(c.Request.Context(), studentID, req)
	if err != nil {
		h.metrics.RecordBookingOutcome(appErrors.FromError(err).Code)
		response.Error(c, err)
		return
	}
	h.metrics.RecordBookingOutcome("created")
	response.Created(c, booking)
}

// Get godoc
// @Summary Get booking detail
// @Tags Bookings
// @Produce json
// @Param id path string true "Booking ID"
// @Success 200 {object} response.Envelope
// @Router /bookings/{id} [get]
func (h *BookingHandler) Get(c *gin.Context) {
	booking, err := h.bookings.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	if claims := claimsFromContext(c); claims != nil && claims.Role == models.RoleStudent && booking.StudentID != claims.UserID {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "booking not found"))
		return
	}
	response.JSON(c, http.StatusOK, booking, nil)
}

// List godoc
// @Summary List bookings
// @Tags Bookings
// @Produce json
// @Param teacherId query string false "Filter by teacher"
// @Param status query string false "Filter by status"
// @Param from query string false "Window start (YYYY-MM-DD)"
// @Param to query string false "Window end (YYYY-MM-DD)"
// @Param page query int false "Page number"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /bookings [get]
func (h *BookingHandler) List(c *gin.Context) {
	filter, err := h.parseFilter(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	bookings, total, err := h.bookings.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, bookings, &models.Pagination{
		Page:       filter.Page,
		PageSize:   filter.PageSize,
		TotalCount: total,
	})
}

// UpdateStatus godoc
// @Summary Transition a booking
// @Tags Bookings
// @Accept json
// @Produce json
// @Param id path string true "Booking ID"
// @Param payload body handler.UpdateBookingStatusRequest true "Target status"
// @Success 200 {object} response.Envelope
// @Router /bookings/{id}/status [patch]
func (h *BookingHandler) UpdateStatus(c *gin.Context) {
	var req UpdateBookingStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid status payload"))
		return
	}

	booking, err := h.bookings.Transition(c.Request.Context(), c.Param("id"), req.Status)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, booking, nil)
}

// ExportCSV godoc
// @Summary Export bookings as CSV
// @Tags Bookings
// @Produce text/csv
// @Param teacherId query string false "Filter by teacher"
// @Param status query string false "Filter by status"
// @Success 200 {string} string "CSV payload"
// @Router /bookings/export [get]
func (h *BookingHandler) ExportCSV(c *gin.Context) {
	if h.csv == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "csv exporter unavailable"))
		return
	}

	filter, err := h.parseFilter(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	filter.Page = 0
	filter.PageSize = 0

	bookings, _, err := h.bookings.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	dataset := export.Dataset{
		Headers: []string{"ID", "Teacher", "Student", "Start", "End", "Status", "Price", "Currency"},
	}
	for _, booking := range bookings {
		dataset.Rows = append(dataset.Rows, map[string]string{
			"ID":       booking.ID,
			"Teacher":  booking.TeacherID,
			"Student":  booking.StudentID,
			"Start":    booking.StartAt.UTC().Format(time.RFC3339),
			"End":      booking.EndAt.UTC().Format(time.RFC3339),
			"Status":   string(booking.Status),
			"Price":    strconv.FormatInt(booking.Price, 10),
			"Currency": booking.Currency,
		})
	}

	payload, err := h.csv.Render(dataset)
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv"))
		return
	}

	filename := fmt.Sprintf("bookings-%s.csv", time.Now().UTC().Format(dateLayout))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "text/csv", payload)
}

// UpdateBookingStatusRequest carries the target lifecycle status.
type UpdateBookingStatusRequest struct {
	Status models.BookingStatus `json:"status" binding:"required"`
}

// parseFilter builds a booking filter from query parameters. Students are
// always scoped to their own bookings.
func (h *BookingHandler) parseFilter(c *gin.Context) (models.BookingFilter, error) {
	filter := models.BookingFilter{
		TeacherID: c.Query("teacherId"),
	}
	if raw := c.Query("status"); raw != "" {
		status := models.BookingStatus(raw)
		switch status {
		case models.BookingPending, models.BookingConfirmed, models.BookingCompleted, models.BookingCancelled:
			filter.Status = &status
		default:
			return filter, appErrors.Clone(appErrors.ErrValidation, "unknown booking status")
		}
	}
	if raw := c.Query("from"); raw != "" {
		from, err := time.Parse(dateLayout, raw)
		if err != nil {
			return filter, appErrors.Clone(appErrors.ErrValidation, "from must be YYYY-MM-DD")
		}
		filter.From = &from
	}
	if raw := c.Query("to"); raw != "" {
		to, err := time.Parse(dateLayout, raw)
		if err != nil {
			return filter, appErrors.Clone(appErrors.ErrValidation, "to must be YYYY-MM-DD")
		}
		filter.To = &to
	}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}

	if claims := claimsFromContext(c); claims != nil && claims.Role == models.RoleStudent {
		filter.StudentID = claims.UserID
	} else {
		filter.StudentID = c.Query("studentId")
	}
	return filter, nil
}
