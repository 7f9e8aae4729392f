package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/controle-mandatos/mandatos-api/internal/dto"
	"github.com/controle-mandatos/mandatos-api/internal/models"
	appErrors "github.com/controle-mandatos/mandatos-api/pkg/errors"
	"github.com/controle-mandatos/mandatos-api/pkg/response"
)

type positionService interface {
	Create(ctx context.Context, req dto.CreatePositionRequest, actorID string) (*models.Position, error)
	Get(ctx context.Context, id int64) (*models.Position, error)
	List(ctx context.Context, filter models.PositionFilter) ([]models.Position, *models.Pagination, error)
	Update(ctx context.Context, id int64, req dto.UpdatePositionRequest, actorID string) (*models.Position, error)
	Deactivate(ctx context.Context, id int64, actorID string) (*models.Position, error)
	Reactivate(ctx context.Context, id int64, actorID string) (*models.Position, error)
	Delete(ctx context.Context, id int64, actorID string) error
}

// PositionHandler exposes REST endpoints for positions.
type PositionHandler struct {
	service positionService
}

// NewPositionHandler constructs the handler.
func NewPositionHandler(service positionService) *PositionHandler {
	return &PositionHandler{service: service}
}

// Create godoc
// @Summary Register a position
// @Tags Positions
// @Accept json
// @Produce json
// @Param payload body dto.CreatePositionRequest true "Position payload"
// @Success 201 {object} response.Envelope
// @Router /positions [post]
func (h *PositionHandler) Create(c *gin.Context) {
	var req dto.CreatePositionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid position payload"))
		return
	}
	position, err := h.service.Create(c.Request.Context(), req, actorID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, position)
}

// List godoc
// @Summary List positions
// @Tags Positions
// @Produce json
// @Param organization_id query int false "Owning organization"
// @Success 200 {object} response.Envelope
// @Router /positions [get]
func (h *PositionHandler) List(c *gin.Context) {
	page, pageSize := pageParams(c)
	filter := models.PositionFilter{
		OrganizationID: int64Query(c, "organization_id"),
		Active:         boolQuery(c, "active"),
		Search:         strings.TrimSpace(c.Query("q")),
		Page:           page,
		PageSize:       pageSize,
		SortBy:         c.Query("sort_by"),
		SortOrder:      c.Query("sort_order"),
	}
	positions, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, positions, pagination)
}

// Get godoc
// @Summary Fetch a position
// @Tags Positions
// @Produce json
// @Param id path int true "Position id"
// @Success 200 {object} response.Envelope
// @Router /positions/{id} [get]
func (h *PositionHandler) Get(c *gin.Context) {
	id, err := idParam(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	position, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, position, nil)
}

// Update godoc
// @Summary Update a position
// @Tags Positions
// @Accept json
// @Produce json
// @Param id path int true "Position id"
// @Param payload body dto.UpdatePositionRequest true "Changes"
// @Success 200 {object} response.Envelope
// @Router /positions/{id} [put]
func (h *PositionHandler) Update(c *gin.Context) {
	id, err := idParam(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.UpdatePositionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid position payload"))
		return
	}
	position, err := h.service.Update(c.Request.Context(), id, req, actorID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, position, nil)
}

// Deactivate godoc
// @Summary Soft-delete a position
// @Tags Positions
// @Param id path int true "Position id"
// @Success 200 {object} response.Envelope
// @Router /positions/{id}/deactivate [post]
func (h *PositionHandler) Deactivate(c *gin.Context) {
	h.setActive(c, false)
}

// Reactivate godoc
// @Summary Restore a soft-deleted position
// @Tags Positions
// @Param id path int true "Position id"
// @Success 200 {object} response.Envelope
// @Router /positions/{id}/reactivate [post]
func (h *PositionHandler) Reactivate(c *gin.Context) {
	h.setActive(c, true)
}

func (h *PositionHandler) setActive(c *gin.Context, active bool) {
	id, err := idParam(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var position *models.Position
	if active {
		position, err = h.service.Reactivate(c.Request.Context(), id, actorID(c))
	} else {
		position, err = h.service.Deactivate(c.Request.Context(), id, actorID(c))
	}
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, position, nil)
}

// Delete godoc
// @Summary Permanently remove a position
// @Tags Positions
// @Param id path int true "Position id"
// @Success 204
// @Router /positions/{id} [delete]
func (h *PositionHandler) Delete(c *gin.Context) {
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
