package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/slotline/slotline-api/internal/middleware"
	"github.com/slotline/slotline-api/internal/models"
	appErrors "github.com/slotline/slotline-api/pkg/errors"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.JWTClaims)
	if !ok {
		return nil
	}
	return claims
}

// dateQuery reads a "date" query parameter in YYYY-MM-DD form, falling
// back to today (UTC) when absent.
func dateQuery(c *gin.Context) (time.Time, error) {
	raw := c.Query("date")
	if raw == "" {
		now := time.Now().UTC()
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC), nil
	}
	date, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, appErrors.Clone(appErrors.ErrValidation, "date must be in YYYY-MM-DD format")
	}
	return date, nil
}
