package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/controle-mandatos/mandatos-api/internal/dto"
	"github.com/controle-mandatos/mandatos-api/internal/models"
	appErrors "github.com/controle-mandatos/mandatos-api/pkg/errors"
	"github.com/controle-mandatos/mandatos-api/pkg/response"
)

type occupationService interface {
	Create(ctx context.Context, req dto.CreateOccupationRequest, actorID string) (*models.Occupation, error)
	Get(ctx context.Context, id int64) (*models.Occupation, error)
	List(ctx context.Context, filter models.OccupationFilter) ([]models.Occupation, *models.Pagination, error)
	Update(ctx context.Context, id int64, req dto.UpdateOccupationRequest, actorID string) (*models.Occupation, error)
	Delete(ctx context.Context, id int64, actorID string) error
}

type successionService interface {
	NextSuccessor(ctx context.Context, occupationID int64) (*dto.SuccessorSuggestion, error)
	Finalize(ctx context.Context, occupationID int64, req dto.FinalizeOccupationRequest, actorID string) (*dto.FinalizeOccupationResponse, error)
}

// OccupationHandler exposes REST endpoints for terms, including the
// finalize-and-promote flow.
type OccupationHandler struct {
	service    occupationService
	succession successionService
}

// NewOccupationHandler constructs the handler.
func NewOccupationHandler(service occupationService, succession successionService) *OccupationHandler {
	return &OccupationHandler{service: service, succession: succession}
}

// Create godoc
// @Summary Open a term
// @Tags Occupations
// @Accept json
// @Produce json
// @Param payload body dto.CreateOccupationRequest true "Occupation payload"
// @Success 201 {object} response.Envelope
// @Router /occupations [post]
func (h *OccupationHandler) Create(c *gin.Context) {
	var req dto.CreateOccupationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid occupation payload"))
		return
	}
	occupation, err := h.service.Create(c.Request.Context(), req, actorID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, occupation)
}

// List godoc
// @Summary List occupations
// @Tags Occupations
// @Produce json
// @Param person_id query int false "Filter by person"
// @Param position_id query int false "Filter by position"
// @Param open query bool false "Only open terms"
// @Success 200 {object} response.Envelope
// @Router /occupations [get]
func (h *OccupationHandler) List(c *gin.Context) {
	page, pageSize := pageParams(c)
	filter := models.OccupationFilter{
		PersonID:    int64Query(c, "person_id"),
		PositionID:  int64Query(c, "position_id"),
		DirectiveID: int64Query(c, "directive_id"),
		Page:        page,
		PageSize:    pageSize,
		SortBy:      c.Query("sort_by"),
		SortOrder:   c.Query("sort_order"),
	}
	if open := boolQuery(c, "open"); open != nil && *open {
		filter.OpenOnly = true
	}
	occupations, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, occupations, pagination)
}

// Get godoc
// @Summary Fetch an occupation
// @Tags Occupations
// @Produce json
// @Param id path int true "Occupation id"
// @Success 200 {object} response.Envelope
// @Router /occupations/{id} [get]
func (h *OccupationHandler) Get(c *gin.Context) {
	id, err := idParam(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	occupation, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, occupation, nil)
}

// Update godoc
// @Summary Update an occupation
// @Tags Occupations
// @Accept json
// @Produce json
// @Param id path int true "Occupation id"
// @Param payload body dto.UpdateOccupationRequest true "Changes"
// @Success 200 {object} response.Envelope
// @Router /occupations/{id} [put]
func (h *OccupationHandler) Update(c *gin.Context) {
	id, err := idParam(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.UpdateOccupationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid occupation payload"))
		return
	}
	occupation, err := h.service.Update(c.Request.Context(), id, req, actorID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, occupation, nil)
}

// Delete godoc
// @Summary Remove an occupation
// @Tags Occupations
// @Param id path int true "Occupation id"
// @Success 204
// @Router /occupations/{id} [delete]
func (h *OccupationHandler) Delete(c *gin.Context) {
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

// Finalize godoc
// @Summary Close a term and promote the substitution chain
// @Tags Occupations
// @Accept json
// @Produce json
// @Param id path int true "Occupation id"
// @Param payload body dto.FinalizeOccupationRequest true "End date, definitive flag and successor window"
// @Success 200 {object} response.Envelope
// @Router /occupations/{id}/finalize [put]
func (h *OccupationHandler) Finalize(c *gin.Context) {
	id, err := idParam(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.FinalizeOccupationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid finalize payload"))
		return
	}
	result, err := h.succession.Finalize(c.Request.Context(), id, req, actorID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// NextSuccessor godoc
// @Summary Preview who steps in once an occupation ends
// @Tags Occupations
// @Produce json
// @Param id path int true "Occupation id"
// @Success 200 {object} response.Envelope
// @Router /occupations/{id}/next-successor [get]
func (h *OccupationHandler) NextSuccessor(c *gin.Context) {
	id, err := idParam(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	suggestion, err := h.succession.NextSuccessor(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, suggestion, nil)
}
