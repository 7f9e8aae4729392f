package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/controle-mandatos/mandatos-api/internal/dto"
	appErrors "github.com/controle-mandatos/mandatos-api/pkg/errors"
	"github.com/controle-mandatos/mandatos-api/pkg/response"
)

type eligibilityService interface {
	Check(ctx context.Context, req dto.EligibilityRequest) (*dto.EligibilityResult, error)
}

// EligibilityHandler exposes the eligibility evaluator.
type EligibilityHandler struct {
	service eligibilityService
}

// NewEligibilityHandler constructs the handler.
func NewEligibilityHandler(service eligibilityService) *EligibilityHandler {
	return &EligibilityHandler{service: service}
}

// Check godoc
// @Summary Evaluate whether a person may assume a position
// @Tags Eligibility
// @Produce json
// @Param person_id query int true "Candidate person"
// @Param position_id query int true "Target position"
// @Param start_date query string true "Term start (YYYY-MM-DD)"
// @Param end_date query string false "Term end (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /eligibility [get]
func (h *EligibilityHandler) Check(c *gin.Context) {
	var req dto.EligibilityRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid eligibility query"))
		return
	}
	verdict, err := h.service.Check(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, verdict, nil)
}
