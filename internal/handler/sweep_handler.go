package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/slotline/slotline-api/internal/service"
	appErrors "github.com/slotline/slotline-api/pkg/errors"
	"github.com/slotline/slotline-api/pkg/response"
)

// SweepHandler exposes manual triggers for the daily lifecycle sweeps.
type SweepHandler struct {
	lifecycle *service.LifecycleService
	assigner  *service.AssignmentService
}

// NewSweepHandler constructs handler.
func NewSweepHandler(lifecycle *service.LifecycleService, assigner *service.AssignmentService) *SweepHandler {
	return &SweepHandler{lifecycle: lifecycle, assigner: assigner}
}

// RunDailyRequest selects the sweep target.
type RunDailyRequest struct {
	Date       string  `json:"date,omitempty"`
	ProviderID *string `json:"provider_id,omitempty"`
}

// RunDaily godoc
// @Summary Run the daily queue creation sweep
// @Tags Sweeps
// @Accept json
// @Produce json
// @Param payload body RunDailyRequest false "Sweep target"
// @Success 200 {object} response.Envelope
// @Router /admin/sweeps/daily [post]
func (h *SweepHandler) RunDaily(c *gin.Context) {
	var req RunDailyRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	date := time.Now().UTC()
	if req.Date != "" {
		parsed, err := time.Parse("2006-01-02", req.Date)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "date must be in YYYY-MM-DD format"))
			return
		}
		date = parsed
	}

	if req.ProviderID != nil {
		queues, result, err := h.lifecycle.CreateForProvider(c.Request.Context(), *req.ProviderID, date)
		if err != nil {
			response.Error(c, err)
			return
		}
		response.JSON(c, http.StatusOK, gin.H{"queues": queues, "result": result}, nil)
		return
	}

	report, err := h.lifecycle.CreateForAllProviders(c.Request.Context(), date)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, nil)
}

// ClosePastRequest optionally overrides the close cutoff.
type ClosePastRequest struct {
	Before string `json:"before,omitempty"`
}

// ClosePast godoc
// @Summary Close all active queues dated before the cutoff
// @Tags Sweeps
// @Accept json
// @Produce json
// @Param payload body ClosePastRequest false "Cutoff override"
// @Success 200 {object} response.Envelope
// @Router /admin/sweeps/close-past [post]
func (h *SweepHandler) ClosePast(c *gin.Context) {
	var req ClosePastRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	cutoff := time.Now().UTC()
	if req.Before != "" {
		parsed, err := time.Parse("2006-01-02", req.Before)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "before must be in YYYY-MM-DD format"))
			return
		}
		cutoff = parsed
	}

	closed, err := h.lifecycle.ClosePast(c.Request.Context(), cutoff)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"closed": closed}, nil)
}

// AssignAppointment godoc
// @Summary Assign an appointment to its daily queue
// @Tags Sweeps
// @Produce json
// @Param id path string true "Appointment ID"
// @Success 200 {object} response.Envelope
// @Router /appointments/{id}/assign [post]
func (h *SweepHandler) AssignAppointment(c *gin.Context) {
	queue, appointment, err := h.assigner.AssignByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"appointment": appointment, "queue": queue}, nil)
}
