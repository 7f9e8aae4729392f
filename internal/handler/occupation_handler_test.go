package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/controle-mandatos/mandatos-api/internal/dto"
	"github.com/controle-mandatos/mandatos-api/internal/models"
	appErrors "github.com/controle-mandatos/mandatos-api/pkg/errors"
)

type occupationServiceMock struct {
	createResp *models.Occupation
	createErr  error
	listResp   []models.Occupation
	lastFilter models.OccupationFilter
}

func (m *occupationServiceMock) Create(ctx context.Context, req dto.CreateOccupationRequest, actorID string) (*models.Occupation, error) {
	return m.createResp, m.createErr
}

func (m *occupationServiceMock) Get(ctx context.Context, id int64) (*models.Occupation, error) {
	return m.createResp, m.createErr
}

func (m *occupationServiceMock) List(ctx context.Context, filter models.OccupationFilter) ([]models.Occupation, *models.Pagination, error) {
	m.lastFilter = filter
	return m.listResp, models.NewPagination(filter.Page, filter.PageSize, int64(len(m.listResp))), nil
}

func (m *occupationServiceMock) Update(ctx context.Context, id int64, req dto.UpdateOccupationRequest, actorID string) (*models.Occupation, error) {
	return m.createResp, m.createErr
}

func (m *occupationServiceMock) Delete(ctx context.Context, id int64, actorID string) error {
	return m.createErr
}

type successionServiceMock struct {
	suggestion   *dto.SuccessorSuggestion
	suggestErr   error
	finalizeResp *dto.FinalizeOccupationResponse
	finalizeErr  error
	finalizedID  int64
	lastRequest  dto.FinalizeOccupationRequest
}

func (m *successionServiceMock) NextSuccessor(ctx context.Context, occupationID int64) (*dto.SuccessorSuggestion, error) {
	return m.suggestion, m.suggestErr
}

func (m *successionServiceMock) Finalize(ctx context.Context, occupationID int64, req dto.FinalizeOccupationRequest, actorID string) (*dto.FinalizeOccupationResponse, error) {
	m.finalizedID = occupationID
	m.lastRequest = req
	return m.finalizeResp, m.finalizeErr
}

func TestOccupationHandlerCreateBlockedByEligibility(t *testing.T) {
	mockSvc := &occupationServiceMock{
		createErr: appErrors.Clone(appErrors.ErrInvalidState, "appointment not allowed: person is inactive"),
	}
	handler := NewOccupationHandler(mockSvc, &successionServiceMock{})

	payload, _ := json.Marshal(dto.CreateOccupationRequest{PersonID: 1, PositionID: 2, StartDate: "2026-01-01"})
	c, w := testContext(t, http.MethodPost, "/occupations", payload)

	handler.Create(c)
	require.Equal(t, http.StatusConflict, w.Code)
}

func TestOccupationHandlerListOpenFilter(t *testing.T) {
	mockSvc := &occupationServiceMock{}
	handler := NewOccupationHandler(mockSvc, &successionServiceMock{})

	c, w := testContext(t, http.MethodGet, "/occupations?position_id=4&open=true", nil)

	handler.List(c)
	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, mockSvc.lastFilter.PositionID)
	assert.Equal(t, int64(4), *mockSvc.lastFilter.PositionID)
	assert.True(t, mockSvc.lastFilter.OpenOnly)
}

func TestOccupationHandlerFinalize(t *testing.T) {
	mockSuccession := &successionServiceMock{
		finalizeResp: &dto.FinalizeOccupationResponse{
			Finalized:  &models.Occupation{ID: 7},
			Succession: []dto.SuccessionStep{{FromPositionID: 6, ToPositionID: 5, PersonID: 9, PersonName: "Ana Lima", OccupationID: 12}},
		},
	}
	handler := NewOccupationHandler(&occupationServiceMock{}, mockSuccession)

	successorStart := "2026-07-01"
	payload, _ := json.Marshal(dto.FinalizeOccupationRequest{EndDate: "2026-06-30", SuccessorStart: &successorStart})
	c, w := testContext(t, http.MethodPut, "/occupations/7/finalize", payload)
	c.Params = gin.Params{{Key: "id", Value: "7"}}

	handler.Finalize(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(7), mockSuccession.finalizedID)
	assert.Equal(t, "2026-06-30", mockSuccession.lastRequest.EndDate)
	require.NotNil(t, mockSuccession.lastRequest.SuccessorStart)
	assert.Equal(t, successorStart, *mockSuccession.lastRequest.SuccessorStart)
}

func TestOccupationHandlerFinalizeAlreadyClosed(t *testing.T) {
	mockSuccession := &successionServiceMock{
		finalizeErr: appErrors.Clone(appErrors.ErrInvalidState, "occupation is already finalized"),
	}
	handler := NewOccupationHandler(&occupationServiceMock{}, mockSuccession)

	payload, _ := json.Marshal(dto.FinalizeOccupationRequest{EndDate: "2026-06-30", Definitive: true})
	c, w := testContext(t, http.MethodPut, "/occupations/7/finalize", payload)
	c.Params = gin.Params{{Key: "id", Value: "7"}}

	handler.Finalize(c)
	require.Equal(t, http.StatusConflict, w.Code)
}

func TestOccupationHandlerNextSuccessor(t *testing.T) {
	mockSuccession := &successionServiceMock{
		suggestion: &dto.SuccessorSuggestion{
			PositionID: 6, PositionName: "Vice Director",
			PersonID: 9, PersonName: "Ana Lima",
			OccupationID: 11, SuggestedStart: "2026-07-01",
		},
	}
	handler := NewOccupationHandler(&occupationServiceMock{}, mockSuccession)

	c, w := testContext(t, http.MethodGet, "/occupations/7/next-successor", nil)
	c.Params = gin.Params{{Key: "id", Value: "7"}}

	handler.NextSuccessor(c)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestOccupationHandlerNextSuccessorVacantChain(t *testing.T) {
	mockSuccession := &successionServiceMock{
		suggestErr: appErrors.Clone(appErrors.ErrNotFound, "substitute position is vacant"),
	}
	handler := NewOccupationHandler(&occupationServiceMock{}, mockSuccession)

	c, w := testContext(t, http.MethodGet, "/occupations/7/next-successor", nil)
	c.Params = gin.Params{{Key: "id", Value: "7"}}

	handler.NextSuccessor(c)
	require.Equal(t, http.StatusNotFound, w.Code)
}
