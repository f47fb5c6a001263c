package handler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ustozhub/ustozhub-api/internal/service"
	appErrors "github.com/ustozhub/ustozhub-api/pkg/errors"
	"github.com/ustozhub/ustozhub-api/pkg/response"
)

// ScheduleHandler serves the per-day calendar view and its PDF export.
type ScheduleHandler struct {
	schedules *service.ScheduleService
}

// NewScheduleHandler constructs a new ScheduleHandler.
func NewScheduleHandler(schedules *service.ScheduleService) *ScheduleHandler {
	return &ScheduleHandler{schedules: schedules}
}

// Get godoc
// @Summary Get a teacher's schedule over a date range
// @Tags Schedule
// @Produce json
// @Param id path string true "Teacher ID"
// @Param startDate query string true "Range start (YYYY-MM-DD)"
// @Param endDate query string true "Range end (YYYY-MM-DD)"
// @Param format query string false "Set to pdf for a printable export"
// @Success 200 {object} response.Envelope
// @Router /teachers/{id}/schedule [get]
func (h *ScheduleHandler) Get(c *gin.Context) {
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

	if c.Query("format") == "pdf" {
		payload, err := h.schedules.ExportPDF(c.Request.Context(), c.Param("id"), startDate, endDate)
		if err != nil {
			response.Error(c, err)
			return
		}
		filename := fmt.Sprintf("schedule-%s.pdf", startDate.Format(dateLayout))
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
		c.Data(http.StatusOK, "application/pdf", payload)
		return
	}

	schedule, err := h.schedules.GetRange(c.Request.Context(), c.Param("id"), startDate, endDate)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, schedule, nil)
}
