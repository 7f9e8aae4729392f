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

type organizationService interface {
	Create(ctx context.Context, req dto.CreateOrganizationRequest, actorID string) (*models.Organization, error)
	Get(ctx context.Context, id int64) (*models.Organization, error)
	List(ctx context.Context, filter models.OrganizationFilter) ([]models.Organization, *models.Pagination, error)
	Update(ctx context.Context, id int64, req dto.UpdateOrganizationRequest, actorID string) (*models.Organization, error)
	Deactivate(ctx context.Context, id int64, actorID string) (*models.Organization, error)
	Reactivate(ctx context.Context, id int64, actorID string) (*models.Organization, error)
	Delete(ctx context.Context, id int64, actorID string) error
}

// OrganizationHandler exposes REST endpoints for organizations.
type OrganizationHandler struct {
	service organizationService
}

// NewOrganizationHandler constructs the handler.
func NewOrganizationHandler(service organizationService) *OrganizationHandler {
	return &OrganizationHandler{service: service}
}

// Create godoc
// @Summary Register an organization
// @Tags Organizations
// @Accept json
// @Produce json
// @Param payload body dto.CreateOrganizationRequest true "Organization payload"
// @Success 201 {object} response.Envelope
// @Router /organizations [post]
func (h *OrganizationHandler) Create(c *gin.Context) {
	var req dto.CreateOrganizationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid organization payload"))
		return
	}
	org, err := h.service.Create(c.Request.Context(), req, actorID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, org)
}

// List godoc
// @Summary List organizations
// @Tags Organizations
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /organizations [get]
func (h *OrganizationHandler) List(c *gin.Context) {
	page, pageSize := pageParams(c)
	filter := models.OrganizationFilter{
		Active:    boolQuery(c, "active"),
		Search:    strings.TrimSpace(c.Query("q")),
		Page:      page,
		PageSize:  pageSize,
		SortBy:    c.Query("sort_by"),
		SortOrder: c.Query("sort_order"),
	}
	orgs, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, orgs, pagination)
}

// Get godoc
// @Summary Fetch an organization
// @Tags Organizations
// @Produce json
// @Param id path int true "Organization id"
// @Success 200 {object} response.Envelope
// @Router /organizations/{id} [get]
func (h *OrganizationHandler) Get(c *gin.Context) {
	id, err := idParam(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	org, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, org, nil)
}

// Update godoc
// @Summary Update an organization
// @Tags Organizations
// @Accept json
// @Produce json
// @Param id path int true "Organization id"
// @Param payload body dto.UpdateOrganizationRequest true "Changes"
// @Success 200 {object} response.Envelope
// @Router /organizations/{id} [put]
func (h *OrganizationHandler) Update(c *gin.Context) {
	id, err := idParam(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.UpdateOrganizationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid organization payload"))
		return
	}
	org, err := h.service.Update(c.Request.Context(), id, req, actorID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, org, nil)
}

// Deactivate godoc
// @Summary Soft-delete an organization
// @Tags Organizations
// @Param id path int true "Organization id"
// @Success 200 {object} response.Envelope
// @Router /organizations/{id}/deactivate [post]
func (h *OrganizationHandler) Deactivate(c *gin.Context) {
	h.setActive(c, false)
}

// Reactivate godoc
// @Summary Restore a soft-deleted organization
// @Tags Organizations
// @Param id path int true "Organization id"
// @Success 200 {object} response.Envelope
// @Router /organizations/{id}/reactivate [post]
func (h *OrganizationHandler) Reactivate(c *gin.Context) {
	h.setActive(c, true)
}

func (h *OrganizationHandler) setActive(c *gin.Context, active bool) {
	id, err := idParam(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var org *models.Organization
	if active {
		org, err = h.service.Reactivate(c.Request.Context(), id, actorID(c))
	} else {
		org, err = h.service.Deactivate(c.Request.Context(), id, actorID(c))
	}
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, org, nil)
}

// Delete godoc
// @Summary Permanently remove an organization
// @Tags Organizations
// @Param id path int true "Organization id"
// @Success 204
// @Router /organizations/{id} [delete]
func (h *OrganizationHandler) Delete(c *gin.Context) {
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
