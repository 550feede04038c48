package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/slotline/slotline-api/internal/service"
	appErrors "github.com/slotline/slotline-api/pkg/errors"
	"github.com/slotline/slotline-api/pkg/response"
)

// AvailabilityHandler manages availability rule, exception and resolution endpoints.
type AvailabilityHandler struct {
	service *service.AvailabilityService
}

// NewAvailabilityHandler constructs handler.
func NewAvailabilityHandler(svc *service.AvailabilityService) *AvailabilityHandler {
	return &AvailabilityHandler{service: svc}
}

// Resolve godoc
// @Summary Resolve bookable windows for a provider on a date
// @Tags Availability
// @Produce json
// @Param id path string true "Provider ID"
// @Param date query string false "Date (YYYY-MM-DD, defaults to today)"
// @Success 200 {object} response.Envelope
// @Router /providers/{id}/availability [get]
func (h *AvailabilityHandler) Resolve(c *gin.Context) {
	date, err := dateQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	windows, err := h.service.Resolve(c.Request.Context(), c.Param("id"), date)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, windows, nil)
}

// WeeklySchedule godoc
// @Summary Full rule and exception view for a provider
// @Tags Availability
// @Produce json
// @Param id path string true "Provider ID"
// @Success 200 {object} response.Envelope
// @Router /providers/{id}/schedule [get]
func (h *AvailabilityHandler) WeeklySchedule(c *gin.Context) {
	schedule, err := h.service.WeeklySchedule(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, schedule, nil)
}

// CreateRule godoc
// @Summary Create availability rule
// @Tags Availability
// @Accept json
// @Produce json
// @Param id path string true "Provider ID"
// @Param payload body service.RulePayload true "Rule payload"
// @Success 201 {object} response.Envelope
// @Router /providers/{id}/availability/rules [post]
func (h *AvailabilityHandler) CreateRule(c *gin.Context) {
	var req service.RulePayload
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	rule, err := h.service.CreateRule(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, rule)
}

// UpdateRule godoc
// @Summary Update availability rule
// @Tags Availability
// @Accept json
// @Produce json
// @Param id path string true "Rule ID"
// @Param payload body service.RulePayload true "Rule payload"
// @Success 200 {object} response.Envelope
// @Router /availability/rules/{id} [put]
func (h *AvailabilityHandler) UpdateRule(c *gin.Context) {
	var req service.RulePayload
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	rule, err := h.service.UpdateRule(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rule, nil)
}

// DeleteRule godoc
// @Summary Delete availability rule
// @Tags Availability
// @Produce json
// @Param id path string true "Rule ID"
// @Success 204
// @Router /availability/rules/{id} [delete]
func (h *AvailabilityHandler) DeleteRule(c *gin.Context) {
	if err := h.service.DeleteRule(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// CreateException godoc
// @Summary Create availability exception
// @Tags Availability
// @Accept json
// @Produce json
// @Param id path string true "Provider ID"
// @Param payload body service.ExceptionPayload true "Exception payload"
// @Success 201 {object} response.Envelope
// @Router /providers/{id}/availability/exceptions [post]
func (h *AvailabilityHandler) CreateException(c *gin.Context) {
	var req service.ExceptionPayload
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	exc, err := h.service.CreateException(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, exc)
}
