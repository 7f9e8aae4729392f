package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/controle-mandatos/mandatos-api/internal/dto"
	"github.com/controle-mandatos/mandatos-api/internal/models"
	appErrors "github.com/controle-mandatos/mandatos-api/pkg/errors"
	"github.com/controle-mandatos/mandatos-api/pkg/response"
)

type directiveService interface {
	Create(ctx context.Context, req dto.CreateDirectiveRequest, actorID string) (*models.Directive, error)
	Get(ctx context.Context, id int64) (*models.Directive, error)
	List(ctx context.Context, filter models.DirectiveFilter) ([]models.Directive, *models.Pagination, error)
	Update(ctx context.Context, id int64, req dto.UpdateDirectiveRequest, actorID string) (*models.Directive, error)
	Delete(ctx context.Context, id int64, actorID string) error
}

// DirectiveHandler exposes REST endpoints for directives.
type DirectiveHandler struct {
	service directiveService
}

// NewDirectiveHandler constructs the handler.
func NewDirectiveHandler(service directiveService) *DirectiveHandler {
	return &DirectiveHandler{service: service}
}

// Create godoc
// @Summary Register a directive
// @Tags Directives
// @Accept json
// @Produce json
// @Param payload body dto.CreateDirectiveRequest true "Directive payload"
// @Success 201 {object} response.Envelope
// @Router /directives [post]
func (h *DirectiveHandler) Create(c *gin.Context) {
	var req dto.CreateDirectiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid directive payload"))
		return
	}
	directive, err := h.service.Create(c.Request.Context(), req, actorID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, directive)
}

// List godoc
// @Summary List directives
// @Tags Directives
// @Produce json
// @Param number query int false "Directive number"
// @Success 200 {object} response.Envelope
// @Router /directives [get]
func (h *DirectiveHandler) List(c *gin.Context) {
	page, pageSize := pageParams(c)
	filter := models.DirectiveFilter{
		Page:      page,
		PageSize:  pageSize,
		SortBy:    c.Query("sort_by"),
		SortOrder: c.Query("sort_order"),
	}
	if raw, ok := c.GetQuery("number"); ok {
		if number, err := strconv.Atoi(raw); err == nil && number > 0 {
			filter.Number = &number
		}
	}
	directives, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, directives, pagination)
}

// Get godoc
// @Summary Fetch a directive
// @Tags Directives
// @Produce json
// @Param id path int true "Directive id"
// @Success 200 {object} response.Envelope
// @Router /directives/{id} [get]
func (h *DirectiveHandler) Get(c *gin.Context) {
	id, err := idParam(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	directive, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, directive, nil)
}

// Update godoc
// @Summary Update a directive
// @Tags Directives
// @Accept json
// @Produce json
// @Param id path int true "Directive id"
// @Param payload body dto.UpdateDirectiveRequest true "Changes"
// @Success 200 {object} response.Envelope
// @Router /directives/{id} [put]
func (h *DirectiveHandler) Update(c *gin.Context) {
	id, err := idParam(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.UpdateDirectiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid directive payload"))
		return
	}
	directive, err := h.service.Update(c.Request.Context(), id, req, actorID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, directive, nil)
}

// Delete godoc
// @Summary Permanently remove a directive
// @Tags Directives
// @Param id path int true "Directive id"
// @Success 204
// @Router /directives/{id} [delete]
func (h *DirectiveHandler) Delete(c *gin.Context) {
	id, err := idParam(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.service.Delete(c.Request.Context(), id, actorID(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
