package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/controle-mandatos/mandatos-api/internal/dto"
	appErrors "github.com/controle-mandatos/mandatos-api/pkg/errors"
	"github.com/controle-mandatos/mandatos-api/pkg/response"
)

type reportService interface {
	Rows(ctx context.Context, query dto.ReportQuery) ([]dto.ReportRow, error)
	Render(ctx context.Context, query dto.ReportQuery) (body []byte, contentType, filename string, err error)
}

// ReportHandler exposes the occupancy report as JSON or as a downloadable
// CSV/PDF file.
type ReportHandler struct {
	service reportService
}

// NewReportHandler constructs the handler.
func NewReportHandler(service reportService) *ReportHandler {
	return &ReportHandler{service: service}
}

// Occupancy godoc
// @Summary Current and historical occupancy rows
// @Tags Reports
// @Produce json
// @Param organization_id query int false "Restrict to one organization"
// @Success 200 {object} response.Envelope
// @Router /reports/occupancy [get]
func (h *ReportHandler) Occupancy(c *gin.Context) {
	var query dto.ReportQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid report query"))
		return
	}
	rows, err := h.service.Rows(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rows, nil)
}

// Export godoc
// @Summary Download the occupancy report
// @Tags Reports
// @Produce text/csv
// @Produce application/pdf
// @Param organization_id query int false "Restrict to one organization"
// @Param format query string false "csv (default) or pdf"
// @Success 200 {file} file
// @Router /reports/occupancy/export [get]
func (h *ReportHandler) Export(c *gin.Context) {
	var query dto.ReportQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid report query"))
		return
	}
	body, contentType, filename, err := h.service.Render(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, filename, contentType, body)
}
