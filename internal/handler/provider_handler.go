package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/slotline/slotline-api/internal/service"
	"github.com/slotline/slotline-api/pkg/response"
)

// ProviderHandler serves the provider directory.
type ProviderHandler struct {
	service *service.ProviderService
}

// NewProviderHandler constructs handler.
func NewProviderHandler(svc *service.ProviderService) *ProviderHandler {
	return &ProviderHandler{service: svc}
}

// List godoc
// @Summary List active providers
// @Tags Providers
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /providers [get]
func (h *ProviderHandler) List(c *gin.Context) {
	providers, err := h.service.ListActive(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, providers, nil)
}

// Get godoc
// @Summary Get a provider
// @Tags Providers
// @Produce json
// @Param id path string true "Provider ID"
// @Success 200 {object} response.Envelope
// @Router /providers/{id} [get]
func (h *ProviderHandler) Get(c *gin.Context) {
	provider, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, provider, nil)
}
