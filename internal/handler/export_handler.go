package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/slotline/slotline-api/internal/service"
	"github.com/slotline/slotline-api/pkg/response"
)

// ExportHandler serves day-sheet downloads.
type ExportHandler struct {
	service *service.ExportService
}

// NewExportHandler constructs handler.
func NewExportHandler(svc *service.ExportService) *ExportHandler {
	return &ExportHandler{service: svc}
}

// DaySheet godoc
// @Summary Download a provider's day sheet
// @Tags Exports
// @Produce text/csv
// @Produce application/pdf
// @Param id path string true "Provider ID"
// @Param date query string false "Date (YYYY-MM-DD, defaults to today)"
// @Param format query string false "csv or pdf (default csv)"
// @Success 200
// @Router /providers/{id}/day-sheet [get]
func (h *ExportHandler) DaySheet(c *gin.Context) {
	date, err := dateQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	format := service.DaySheetFormat(c.DefaultQuery("format", "csv"))

	sheet, err := h.service.DaySheet(c.Request.Context(), c.Param("id"), date, format)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+sheet.Filename+`"`)
	c.Data(200, sheet.ContentType, sheet.Payload)
}
