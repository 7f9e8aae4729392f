package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/controle-mandatos/mandatos-api/internal/models"
	"github.com/controle-mandatos/mandatos-api/pkg/response"
)

type historyQueryService interface {
	List(ctx context.Context, filter models.HistoryFilter) ([]models.HistoryEntry, *models.Pagination, error)
}

// HistoryHandler exposes the append-only audit trail.
type HistoryHandler struct {
	service historyQueryService
}

// NewHistoryHandler constructs the handler.
func NewHistoryHandler(service historyQueryService) *HistoryHandler {
	return &HistoryHandler{service: service}
}

// List godoc
// @Summary List history entries, newest first
// @Tags History
// @Produce json
// @Param operation query string false "Operation kind"
// @Param entity query string false "Target entity"
// @Success 200 {object} response.Envelope
// @Router /history [get]
func (h *HistoryHandler) List(c *gin.Context) {
	page, pageSize := pageParams(c)
	filter := models.HistoryFilter{Page: page, PageSize: pageSize}
	if raw := strings.ToUpper(strings.TrimSpace(c.Query("operation"))); raw != "" {
		operation := models.HistoryOperation(raw)
		filter.Operation = &operation
	}
	if raw := strings.ToUpper(strings.TrimSpace(c.Query("entity"))); raw != "" {
		entity := models.TargetEntity(raw)
		filter.Entity = &entity
	}
	entries, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, pagination)
}
