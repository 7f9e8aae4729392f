package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/controle-mandatos/mandatos-api/internal/dto"
	"github.com/controle-mandatos/mandatos-api/internal/middleware"
	"github.com/controle-mandatos/mandatos-api/internal/models"
	appErrors "github.com/controle-mandatos/mandatos-api/pkg/errors"
)

type personServiceMock struct {
	createResp  *models.Person
	createErr   error
	getResp     *models.Person
	getErr      error
	listResp    []models.Person
	deleteErr   error
	lastActor   string
	lastFilter  models.PersonFilter
	setActive   []bool
	deleteCalls int
}

func (m *personServiceMock) Create(ctx context.Context, req dto.CreatePersonRequest, actorID string) (*models.Person, error) {
	m.lastActor = actorID
	return m.createResp, m.createErr
}

func (m *personServiceMock) Get(ctx context.Context, id int64) (*models.Person, error) {
	return m.getResp, m.getErr
}

func (m *personServiceMock) List(ctx context.Context, filter models.PersonFilter) ([]models.Person, *models.Pagination, error) {
	m.lastFilter = filter
	return m.listResp, models.NewPagination(filter.Page, filter.PageSize, int64(len(m.listResp))), nil
}

func (m *personServiceMock) Update(ctx context.Context, id int64, req dto.UpdatePersonRequest, actorID string) (*models.Person, error) {
	return m.getResp, m.getErr
}

func (m *personServiceMock) Deactivate(ctx context.Context, id int64, actorID string) (*models.Person, error) {
	m.setActive = append(m.setActive, false)
	return m.getResp, m.getErr
}

func (m *personServiceMock) Reactivate(ctx context.Context, id int64, actorID string) (*models.Person, error) {
	m.setActive = append(m.setActive, true)
	return m.getResp, m.getErr
}

func (m *personServiceMock) Delete(ctx context.Context, id int64, actorID string) error {
	m.deleteCalls++
	return m.deleteErr
}

func testContext(t *testing.T, method, target string, body []byte) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	var reader *bytes.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, target, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "user-1", Role: models.RoleAdmin})
	return c, w
}

func TestPersonHandlerCreate(t *testing.T) {
	mockSvc := &personServiceMock{createResp: &models.Person{ID: 1, Name: "Joana Prado", Active: true}}
	handler := NewPersonHandler(mockSvc)

	payload, _ := json.Marshal(dto.CreatePersonRequest{Name: "Joana Prado"})
	c, w := testContext(t, http.MethodPost, "/people", payload)

	handler.Create(c)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "user-1", mockSvc.lastActor)
}

func TestPersonHandlerCreateInvalidBody(t *testing.T) {
	handler := NewPersonHandler(&personServiceMock{})

	c, w := testContext(t, http.MethodPost, "/people", []byte(`{"name":`))

	handler.Create(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPersonHandlerListPassesFilter(t *testing.T) {
	mockSvc := &personServiceMock{listResp: []models.Person{{ID: 1, Name: "Joana Prado"}}}
	handler := NewPersonHandler(mockSvc)

	c, w := testContext(t, http.MethodGet, "/people?active=true&q=joana&page=2&page_size=10", nil)

	handler.List(c)
	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, mockSvc.lastFilter.Active)
	assert.True(t, *mockSvc.lastFilter.Active)
	assert.Equal(t, "joana", mockSvc.lastFilter.Search)
	assert.Equal(t, 2, mockSvc.lastFilter.Page)
	assert.Equal(t, 10, mockSvc.lastFilter.PageSize)
}

func TestPersonHandlerGetRejectsBadID(t *testing.T) {
	handler := NewPersonHandler(&personServiceMock{})

	c, w := testContext(t, http.MethodGet, "/people/abc", nil)
	c.Params = gin.Params{{Key: "id", Value: "abc"}}

	handler.Get(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPersonHandlerDeleteBlockedByReferences(t *testing.T) {
	mockSvc := &personServiceMock{deleteErr: appErrors.Clone(appErrors.ErrReferential, "person holds 2 occupations")}
	handler := NewPersonHandler(mockSvc)

	c, w := testContext(t, http.MethodDelete, "/people/3", nil)
	c.Params = gin.Params{{Key: "id", Value: "3"}}

	handler.Delete(c)
	require.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, 1, mockSvc.deleteCalls)
}

func TestPersonHandlerDeactivateThenReactivate(t *testing.T) {
	mockSvc := &personServiceMock{getResp: &models.Person{ID: 3, Name: "Joana Prado"}}
	handler := NewPersonHandler(mockSvc)

	c, w := testContext(t, http.MethodPost, "/people/3/deactivate", nil)
	c.Params = gin.Params{{Key: "id", Value: "3"}}
	handler.Deactivate(c)
	require.Equal(t, http.StatusOK, w.Code)

	c, w = testContext(t, http.MethodPost, "/people/3/reactivate", nil)
	c.Params = gin.Params{{Key: "id", Value: "3"}}
	handler.Reactivate(c)
	require.Equal(t, http.StatusOK, w.Code)

	assert.Equal(t, []bool{false, true}, mockSvc.setActive)
}
