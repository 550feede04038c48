package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	appErrors "github.com/slotline/slotline-api/pkg/errors"
	"github.com/slotline/slotline-api/pkg/response"
)

// AuthHandler exposes token introspection endpoints. Tokens are issued
// by the identity platform, so there is no login flow here.
type AuthHandler struct{}

// NewAuthHandler constructs handler.
func NewAuthHandler() *AuthHandler {
	return &AuthHandler{}
}

// Me godoc
// @Summary Return the claims of the calling token
// @Tags Auth
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /auth/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{
		"user_id":         claims.UserID,
		"organization_id": claims.OrganizationID,
		"role":            claims.Role,
	}, nil)
}
