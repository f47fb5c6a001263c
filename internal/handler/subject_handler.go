package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ustozhub/ustozhub-api/internal/service"
	appErrors "github.com/ustozhub/ustozhub-api/pkg/errors"
	"github.com/ustozhub/ustozhub-api/pkg/response"
)

// SubjectHandler manages a teacher's subject offerings over HTTP.
type SubjectHandler struct {
	subjects *service.SubjectService
}

// NewSubjectHandler constructs a new SubjectHandler.
func NewSubjectHandler(subjects *service.SubjectService) *SubjectHandler {
	return &SubjectHandler{subjects: subjects}
}

// List godoc
// @Summary List subject offerings
// @Tags Subjects
// @Produce json
// @Param id path string true "Teacher ID"
// @Success 200 {object} response.Envelope
// @Router /teachers/{id}/offerings [get]
func (h *SubjectHandler) List(c *gin.Context) {
	offerings, err := h.subjects.ListByTeacher(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, offerings, nil)
}

// Create godoc
// @Summary Create subject offering
// @Tags Subjects
// @Accept json
// @Produce json
// @Param id path string true "Teacher ID"
// @Param payload body service.SaveOfferingRequest true "Offering payload"
// @Success 201 {object} response.Envelope
// @Router /teachers/{id}/offerings [post]
func (h *SubjectHandler) Create(c *gin.Context) {
	var req service.SaveOfferingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid offering payload"))
		return
	}
	offering, err := h.subjects.Create(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, offering)
}

// Update godoc
// @Summary Update subject offering
// @Tags Subjects
// @Accept json
// @Produce json
// @Param id path string true "Teacher ID"
// @Param oid path string true "Offering ID"
// @Param payload body service.SaveOfferingRequest true "Offering payload"
// @Success 200 {object} response.Envelope
// @Router /teachers/{id}/offerings/{oid} [put]
func (h *SubjectHandler) Update(c *gin.Context) {
	var req service.SaveOfferingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid offering payload"))
		return
	}
	offering, err := h.subjects.Update(c.Request.Context(), c.Param("id"), c.Param("oid"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, offering, nil)
}

// Delete godoc
// @Summary Deactivate subject offering
// @Tags Subjects
// @Param id path string true "Teacher ID"
// @Param oid path string true "Offering ID"
// @Success 204
// @Router /teachers/{id}/offerings/{oid} [delete]
func (h *SubjectHandler) Delete(c *gin.Context) {
	if err := h.subjects.Deactivate(c.Request.Context(), c.Param("id"), c.Param("oid")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
