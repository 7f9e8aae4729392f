package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/controle-mandatos/mandatos-api/internal/dto"
	appErrors "github.com/controle-mandatos/mandatos-api/pkg/errors"
	"github.com/controle-mandatos/mandatos-api/pkg/response"
)

type searchService interface {
	Search(ctx context.Context, query dto.SearchQuery) (*dto.SearchResult, error)
}

// SearchHandler exposes the grouped registry search.
type SearchHandler struct {
	service searchService
}

// NewSearchHandler constructs the handler.
func NewSearchHandler(service searchService) *SearchHandler {
	return &SearchHandler{service: service}
}

// Search godoc
// @Summary Search people, organizations and positions by name
// @Tags Search
// @Produce json
// @Param q query string true "Name fragment"
// @Param active query bool false "Filter by activity"
// @Param open_term query bool false "Only people with (or without) an open term"
// @Success 200 {object} response.Envelope
// @Router /search [get]
func (h *SearchHandler) Search(c *gin.Context) {
	var query dto.SearchQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid search query"))
		return
	}
	result, err := h.service.Search(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
