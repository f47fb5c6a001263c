package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ustozhub/ustozhub-api/internal/service"
	appErrors "github.com/ustozhub/ustozhub-api/pkg/errors"
	"github.com/ustozhub/ustozhub-api/pkg/response"
)

// AvailabilityHandler manages a teacher's availability rules over HTTP.
type AvailabilityHandler struct {
	availability *service.AvailabilityService
}

// NewAvailabilityHandler constructs a new AvailabilityHandler.
func NewAvailabilityHandler(availability *service.AvailabilityService) *AvailabilityHandler {
	return &AvailabilityHandler{availability: availability}
}

// List godoc
// @Summary List availability rules
// @Tags Availability
// @Produce json
// @Param id path string true "Teacher ID"
// @Success 200 {object} response.Envelope
// @Router /teachers/{id}/availability [get]
func (h *AvailabilityHandler) List(c *gin.Context) {
	rules, err := h.availability.ListByTeacher(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rules, nil)
}

// Create godoc
// @Summary Create availability rule
// @Tags Availability
// @Accept json
// @Produce json
// @Param id path string true "Teacher ID"
// @Param payload body service.SaveRuleRequest true "Rule payload"
// @Success 201 {object} response.Envelope
// @Router /teachers/{id}/availability [post]
func (h *AvailabilityHandler) Create(c *gin.Context) {
	var req service.SaveRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid rule payload"))
		return
	}
	rule, err := h.availability.Create(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, rule)
}

// Update godoc
// @Summary Update availability rule
// @Tags Availability
// @Accept json
// @Produce json
// @Param id path string true "Teacher ID"
// @Param rid path string true "Rule ID"
// @Param payload body service.SaveRuleRequest true "Rule payload"
// @Success 200 {object} response.Envelope
// @Router /teachers/{id}/availability/{rid} [put]
func (h *AvailabilityHandler) Update(c *gin.Context) {
	var req service.SaveRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid rule payload"))
		return
	}
	rule, err := h.availability.Update(c.Request.Context(), c.Param("id"), c.Param("rid"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rule, nil)
}

// Delete godoc
// @Summary Delete availability rule
// @Tags Availability
// @Param id path string true "Teacher ID"
// @Param rid path string true "Rule ID"
// @Success 204
// @Router /teachers/{id}/availability/{rid} [delete]
func (h *AvailabilityHandler) Delete(c *gin.Context) {
	if err := h.availability.Delete(c.Request.Context(), c.Param("id"), c.Param("rid")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
