package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/slotline/slotline-api/internal/models"
	"github.com/slotline/slotline-api/internal/service"
	appErrors "github.com/slotline/slotline-api/pkg/errors"
	"github.com/slotline/slotline-api/pkg/response"
)

// QueueHandler manages daily queue endpoints.
type QueueHandler struct {
	service *service.QueueService
}

// NewQueueHandler constructs handler.
func NewQueueHandler(svc *service.QueueService) *QueueHandler {
	return &QueueHandler{service: svc}
}

// GetOrCreateQueueRequest is the request body for ensuring a daily queue.
type GetOrCreateQueueRequest struct {
	ServiceName       string `json:"service_name" binding:"required"`
	Date              string `json:"date" binding:"required"`
	MaxSize           *int   `json:"max_size,omitempty"`
	EstimatedWaitTime *int   `json:"estimated_wait_time,omitempty"`
}

// GetOrCreate godoc
// @Summary Get or create the daily queue for a provider service
// @Tags Queues
// @Accept json
// @Produce json
// @Param id path string true "Provider ID"
// @Param payload body GetOrCreateQueueRequest true "Queue key"
// @Success 200 {object} response.Envelope
// @Router /providers/{id}/queues [post]
func (h *QueueHandler) GetOrCreate(c *gin.Context) {
	var req GetOrCreateQueueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "date must be in YYYY-MM-DD format"))
		return
	}

	var settings *service.QueueSettings
	if req.MaxSize != nil || req.EstimatedWaitTime != nil {
		settings = &service.QueueSettings{MaxSize: req.MaxSize, EstimatedWaitTime: req.EstimatedWaitTime}
	}
	queue, err := h.service.GetOrCreate(c.Request.Context(), c.Param("id"), req.ServiceName, date, settings)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, queue, nil)
}

// Get godoc
// @Summary Get a queue by id
// @Tags Queues
// @Produce json
// @Param id path string true "Queue ID"
// @Success 200 {object} response.Envelope
// @Router /queues/{id} [get]
func (h *QueueHandler) Get(c *gin.Context) {
	queue, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, queue, nil)
}

// ListDaily godoc
// @Summary List a provider's queues for a date
// @Tags Queues
// @Produce json
// @Param id path string true "Provider ID"
// @Param date query string false "Date (YYYY-MM-DD, defaults to today)"
// @Success 200 {object} response.Envelope
// @Router /providers/{id}/queues [get]
func (h *QueueHandler) ListDaily(c *gin.Context) {
	date, err := dateQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	queues, err := h.service.ListDaily(c.Request.Context(), c.Param("id"), date)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, queues, nil)
}

// UpdateQueueStatusRequest carries a pause or resume request.
type UpdateQueueStatusRequest struct {
	Status models.QueueStatus `json:"status" binding:"required"`
}

// SetStatus godoc
// @Summary Pause or resume a queue
// @Tags Queues
// @Accept json
// @Produce json
// @Param id path string true "Queue ID"
// @Param payload body UpdateQueueStatusRequest true "Target status"
// @Success 200 {object} response.Envelope
// @Router /queues/{id}/status [patch]
func (h *QueueHandler) SetStatus(c *gin.Context) {
	var req UpdateQueueStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	queue, err := h.service.SetStatus(c.Request.Context(), c.Param("id"), req.Status)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, queue, nil)
}
