package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/slotline/slotline-api/internal/models"
	"github.com/slotline/slotline-api/internal/service"
	appErrors "github.com/slotline/slotline-api/pkg/errors"
	"github.com/slotline/slotline-api/pkg/response"
)

// EntryHandler manages walk-in queue entry endpoints.
type EntryHandler struct {
	service *service.EntryService
}

// NewEntryHandler constructs handler.
func NewEntryHandler(svc *service.EntryService) *EntryHandler {
	return &EntryHandler{service: svc}
}

// Join godoc
// @Summary Join a queue as a walk-in client
// @Tags Entries
// @Accept json
// @Produce json
// @Param id path string true "Queue ID"
// @Param payload body service.JoinPayload true "Client details"
// @Success 201 {object} response.Envelope
// @Router /queues/{id}/entries [post]
func (h *EntryHandler) Join(c *gin.Context) {
	var req service.JoinPayload
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	entry, err := h.service.Join(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, entry)
}

// List godoc
// @Summary List a queue's entries in position order
// @Tags Entries
// @Produce json
// @Param id path string true "Queue ID"
// @Success 200 {object} response.Envelope
// @Router /queues/{id}/entries [get]
func (h *EntryHandler) List(c *gin.Context) {
	entries, err := h.service.List(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, nil)
}

// Get godoc
// @Summary Get a queue entry
// @Tags Entries
// @Produce json
// @Param id path string true "Entry ID"
// @Success 200 {object} response.Envelope
// @Router /entries/{id} [get]
func (h *EntryHandler) Get(c *gin.Context) {
	entry, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entry, nil)
}

// TransitionEntryRequest carries a status transition request.
type TransitionEntryRequest struct {
	Status models.QueueEntryStatus `json:"status" binding:"required"`
}

// Transition godoc
// @Summary Move an entry through its lifecycle
// @Tags Entries
// @Accept json
// @Produce json
// @Param id path string true "Entry ID"
// @Param payload body TransitionEntryRequest true "Target status"
// @Success 200 {object} response.Envelope
// @Router /entries/{id}/status [patch]
func (h *EntryHandler) Transition(c *gin.Context) {
	var req TransitionEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	entry, err := h.service.Transition(c.Request.Context(), c.Param("id"), req.Status)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entry, nil)
}
