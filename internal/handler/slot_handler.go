package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ustozhub/ustozhub-api/internal/dto"
	"github.com/ustozhub/ustozhub-api/internal/middleware"
	"github.com/ustozhub/ustozhub-api/internal/service"
	"github.com/ustozhub/ustozhub-api/pkg/config"
	appErrors "github.com/ustozhub/ustozhub-api/pkg/errors"
	"github.com/ustozhub/ustozhub-api/pkg/response"
)

const dateLayout = "2006-01-02"

type slotGenerator interface {
	Generate(ctx context.Context, query dto.SlotQuery) (*dto.SlotsResponse, error)
}

// SlotHandler serves derived bookable slots.
type SlotHandler struct {
	slots   slotGenerator
	metrics *service.MetricsService
	cfg     config.BookingConfig
}

// NewSlotHandler constructs a new SlotHandler.
func NewSlotHandler(slots slotGenerator, metrics *service.MetricsService, cfg config.BookingConfig) *SlotHandler {
	if cfg.DefaultDuration <= 0 {
		cfg.DefaultDuration = 60
	}
	if cfg.DefaultTimezone == "" {
		cfg.DefaultTimezone = "Asia/Tashkent"
	}
	return &SlotHandler{slots: slots, metrics: metrics, cfg: cfg}
}

// List godoc
// @Summary List bookable slots for a teacher
// @Tags Slots
// @Produce json
// @Param id path string true "Teacher ID"
// @Param startDate query string true "Range start (YYYY-MM-DD)"
// @Param endDate query string true "Range end (YYYY-MM-DD)"
// @Param duration query int false "Lesson duration in minutes (30/60/90/120)"
// @Param timezone query string false "Display timezone (IANA name)"
// @Param subjectOfferingId query string false "Restrict to one subject offering"
// @Success 200 {object} response.Envelope
// @Router /teachers/{id}/slots [get]
func (h *SlotHandler) List(c *gin.Context) {
	startDate, err := time.Parse(dateLayout, c.Query("startDate"))
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "startDate must be YYYY-MM-DD"))
		return
	}
	endDate, err := time.Parse(dateLayout, c.Query("endDate"))
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "endDate must be YYYY-MM-DD"))
		return
	}

	duration := h.cfg.DefaultDuration
	if raw := c.Query("duration"); raw != "" {
		duration, err = strconv.Atoi(raw)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "duration must be an integer"))
			return
		}
	}

	displayZone := c.DefaultQuery("timezone", h.cfg.DefaultTimezone)
	loc, err := time.LoadLocation(displayZone)
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "timezone must be a valid IANA zone name"))
		return
	}

	started := time.Now()
	slots, err := h.slots.Generate(c.Request.Context(), dto.SlotQuery{
		TeacherID:         c.Param("id"),
		StartDate:         startDate,
		EndDate:           endDate,
		Duration:          duration,
		SubjectOfferingID: c.Query("subjectOfferingId"),
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, slots.Cached)
	h.metrics.RecordCacheOperation(slots.Cached)
	if !slots.Cached {
		h.metrics.ObserveSlotGeneration(time.Since(started))
	}

	// Generation runs in the teacher's zone; the payload is rendered in
	// the caller's requested zone.
	rendered := make([]dto.Slot, len(slots.Slots))
	for i, slot := range slots.Slots {
		rendered[i] = dto.Slot{
			StartAt:   slot.StartAt.In(loc),
			EndAt:     slot.EndAt.In(loc),
			Duration:  slot.Duration,
			Available: slot.Available,
		}
	}

	response.JSON(c, http.StatusOK, dto.SlotsResponse{
		Slots:    rendered,
		Timezone: displayZone,
		Duration: slots.Duration,
		Teacher:  slots.Teacher,
	}, nil, middleware.ExtractMeta(c))
}
