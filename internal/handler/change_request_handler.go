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

type changeRequestService interface {
	Submit(ctx context.Context, req dto.CreateChangeRequestRequest, userID string) (*models.ChangeRequest, error)
	Get(ctx context.Context, id int64) (*models.ChangeRequest, error)
	List(ctx context.Context, filter models.ChangeRequestFilter) ([]models.ChangeRequest, *models.Pagination, error)
	Approve(ctx context.Context, id int64, req dto.DecideChangeRequestRequest, reviewerID string) (*models.ChangeRequest, error)
	Refuse(ctx context.Context, id int64, req dto.DecideChangeRequestRequest, reviewerID string) (*models.ChangeRequest, error)
}

// ChangeRequestHandler exposes the review workflow for proposed mutations.
type ChangeRequestHandler struct {
	service changeRequestService
}

// NewChangeRequestHandler constructs the handler.
func NewChangeRequestHandler(service changeRequestService) *ChangeRequestHandler {
	return &ChangeRequestHandler{service: service}
}

// Submit godoc
// @Summary Submit a mutation for review
// @Tags ChangeRequests
// @Accept json
// @Produce json
// @Param payload body dto.CreateChangeRequestRequest true "Proposed mutation"
// @Success 201 {object} response.Envelope
// @Router /change-requests [post]
func (h *ChangeRequestHandler) Submit(c *gin.Context) {
	var req dto.CreateChangeRequestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid change request payload"))
		return
	}
	request, err := h.service.Submit(c.Request.Context(), req, actorID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, request)
}

// List godoc
// @Summary List change requests
// @Tags ChangeRequests
// @Produce json
// @Param status query string false "PENDING, APPROVED or REFUSED"
// @Param entity query string false "Target entity"
// @Success 200 {object} response.Envelope
// @Router /change-requests [get]
func (h *ChangeRequestHandler) List(c *gin.Context) {
	page, pageSize := pageParams(c)
	filter := models.ChangeRequestFilter{
		Page:      page,
		PageSize:  pageSize,
		SortBy:    c.Query("sort_by"),
		SortOrder: c.Query("sort_order"),
	}
	if raw := strings.ToUpper(strings.TrimSpace(c.Query("status"))); raw != "" {
		status := models.ChangeStatus(raw)
		filter.Status = &status
	}
	if raw := strings.ToUpper(strings.TrimSpace(c.Query("entity"))); raw != "" {
		entity := models.TargetEntity(raw)
		filter.Entity = &entity
	}
	if raw := strings.ToUpper(strings.TrimSpace(c.Query("operation"))); raw != "" {
		operation := models.OperationKind(raw)
		filter.Operation = &operation
	}
	requests, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, requests, pagination)
}

// Get godoc
// @Summary Fetch a change request
// @Tags ChangeRequests
// @Produce json
// @Param id path int true "Change request id"
// @Success 200 {object} response.Envelope
// @Router /change-requests/{id} [get]
func (h *ChangeRequestHandler) Get(c *gin.Context) {
	id, err := idParam(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	request, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, request, nil)
}

// Decide godoc
// @Summary Approve or refuse a pending change request
// @Tags ChangeRequests
// @Accept json
// @Produce json
// @Param id path int true "Change request id"
// @Param payload body dto.DecideChangeRequestRequest true "Decision"
// @Success 200 {object} response.Envelope
// @Router /change-requests/{id}/decide [post]
func (h *ChangeRequestHandler) Decide(c *gin.Context) {
	id, err := idParam(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.DecideChangeRequestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid decision payload"))
		return
	}
	if req.Approve == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "approve is required"))
		return
	}
	decision := h.service.Refuse
	if *req.Approve {
		decision = h.service.Approve
	}
	request, err := decision(c.Request.Context(), id, req, actorID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, request, nil)
}
