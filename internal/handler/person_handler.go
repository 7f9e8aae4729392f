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

type personService interface {
	Create(ctx context.Context, req dto.CreatePersonRequest, actorID string) (*models.Person, error)
	Get(ctx context.Context, id int64) (*models.Person, error)
	List(ctx context.Context, filter models.PersonFilter) ([]models.Person, *models.Pagination, error)
	Update(ctx context.Context, id int64, req dto.UpdatePersonRequest, actorID string) (*models.Person, error)
	Deactivate(ctx context.Context, id int64, actorID string) (*models.Person, error)
	Reactivate(ctx context.Context, id int64, actorID string) (*models.Person, error)
	Delete(ctx context.Context, id int64, actorID string) error
}

// PersonHandler exposes REST endpoints for the people registry.
type PersonHandler struct {
	service personService
}

// NewPersonHandler constructs the handler.
func NewPersonHandler(service personService) *PersonHandler {
	return &PersonHandler{service: service}
}

// Create godoc
// @Summary Register a person
// @Tags People
// @Accept json
// @Produce json
// @Param payload body dto.CreatePersonRequest true "Person payload"
// @Success 201 {object} response.Envelope
// @Router /people [post]
func (h *PersonHandler) Create(c *gin.Context) {
	var req dto.CreatePersonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid person payload"))
		return
	}
	person, err := h.service.Create(c.Request.Context(), req, actorID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, person)
}

// List godoc
// @Summary List people
// @Tags People
// @Produce json
// @Param active query bool false "Filter by activity"
// @Param q query string false "Name fragment"
// @Success 200 {object} response.Envelope
// @Router /people [get]
func (h *PersonHandler) List(c *gin.Context) {
	page, pageSize := pageParams(c)
	filter := models.PersonFilter{
		Active:    boolQuery(c, "active"),
		Search:    strings.TrimSpace(c.Query("q")),
		Page:      page,
		PageSize:  pageSize,
		SortBy:    c.Query("sort_by"),
		SortOrder: c.Query("sort_order"),
	}
	people, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, people, pagination)
}

// Get godoc
// @Summary Fetch a person
// @Tags People
// @Produce json
// @Param id path int true "Person id"
// @Success 200 {object} response.Envelope
// @Router /people/{id} [get]
func (h *PersonHandler) Get(c *gin.Context) {
	id, err := idParam(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	person, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, person, nil)
}

// Update godoc
// @Summary Update a person
// @Tags People
// @Accept json
// @Produce json
// @Param id path int true "Person id"
// @Param payload body dto.UpdatePersonRequest true "Changes"
// @Success 200 {object} response.Envelope
// @Router /people/{id} [put]
func (h *PersonHandler) Update(c *gin.Context) {
	id, err := idParam(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.UpdatePersonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid person payload"))
		return
	}
	person, err := h.service.Update(c.Request.Context(), id, req, actorID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, person, nil)
}

// Deactivate godoc
// @Summary Soft-delete a person
// @Tags People
// @Produce json
// @Param id path int true "Person id"
// @Success 200 {object} response.Envelope
// @Router /people/{id}/deactivate [post]
func (h *PersonHandler) Deactivate(c *gin.Context) {
	h.setActive(c, false)
}

// Reactivate godoc
// @Summary Restore a soft-deleted person
// @Tags People
// @Produce json
// @Param id path int true "Person id"
// @Success 200 {object} response.Envelope
// @Router /people/{id}/reactivate [post]
func (h *PersonHandler) Reactivate(c *gin.Context) {
	h.setActive(c, true)
}

func (h *PersonHandler) setActive(c *gin.Context, active bool) {
	id, err := idParam(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var person *models.Person
	if active {
		person, err = h.service.Reactivate(c.Request.Context(), id, actorID(c))
	} else {
		person, err = h.service.Deactivate(c.Request.Context(), id, actorID(c))
	}
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, person, nil)
}

// Delete godoc
// @Summary Permanently remove a person
// @Tags People
// @Param id path int true "Person id"
// @Success 204
// @Router /people/{id} [delete]
func (h *PersonHandler) Delete(c *gin.Context) {
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
