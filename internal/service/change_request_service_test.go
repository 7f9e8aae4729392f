package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/controle-mandatos/mandatos-api/internal/dto"
	"github.com/controle-mandatos/mandatos-api/internal/models"
	"github.com/controle-mandatos/mandatos-api/internal/repository"
	appErrors "github.com/controle-mandatos/mandatos-api/pkg/errors"
)

type changeRequestStoreStub struct {
	requests map[int64]*models.ChangeRequest
	nextID   int64
}

func newChangeRequestStoreStub() *changeRequestStoreStub {
	return &changeRequestStoreStub{requests: make(map[int64]*models.ChangeRequest), nextID: 1}
}

func (s *changeRequestStoreStub) Create(_ context.Context, request *models.ChangeRequest) error {
	request.ID = s.nextID
	s.nextID++
	request.Status = models.ChangePending
	s.requests[request.ID] = request
	return nil
}

func (s *changeRequestStoreStub) GetByID(_ context.Context, id int64) (*models.ChangeRequest, error) {
	if request, ok := s.requests[id]; ok {
		copy := *request
		return &copy, nil
	}
	return nil, sql.ErrNoRows
}

func (s *changeRequestStoreStub) List(context.Context, models.ChangeRequestFilter) ([]models.ChangeRequest, int64, error) {
	result := make([]models.ChangeRequest, 0, len(s.requests))
	for _, request := range s.requests {
		result = append(result, *request)
	}
	return result, int64(len(result)), nil
}

func (s *changeRequestStoreStub) Decide(_ context.Context, params repository.DecideParams) error {
	request, ok := s.requests[params.ID]
	if !ok || request.Status != models.ChangePending {
		return sql.ErrNoRows
	}
	request.Status = params.Status
	request.DecidedBy = &params.DecidedBy
	request.DecidedAt = &params.DecidedAt
	if params.Note != nil {
		request.Note = params.Note
	}
	return nil
}

func (s *changeRequestStoreStub) Reopen(_ context.Context, id int64) error {
	request, ok := s.requests[id]
	if !ok {
		return sql.ErrNoRows
	}
	request.Status = models.ChangePending
	request.DecidedBy = nil
	request.DecidedAt = nil
	return nil
}

func (s *changeRequestStoreStub) CountPending(context.Context) (int64, error) {
	var count int64
	for _, request := range s.requests {
		if request.Status == models.ChangePending {
			count++
		}
	}
	return count, nil
}

func submitPersonCreate(t *testing.T, svc *ChangeRequestService) *models.ChangeRequest {
	t.Helper()
	request, err := svc.Submit(context.Background(), dto.CreateChangeRequestRequest{
		Operation: models.OperationCreate,
		Entity:    models.TargetPerson,
		Payload:   []byte(`{"name":"Maria Souza"}`),
	}, "editor-1")
	require.NoError(t, err)
	require.Equal(t, models.ChangePending, request.Status)
	return request
}

func TestChangeRequestApproveAppliesPayload(t *testing.T) {
	repo := newChangeRequestStoreStub()
	applied := 0
	appliers := map[models.TargetEntity]ChangeApplier{
		models.TargetPerson: ChangeApplierFunc(func(context.Context, *models.ChangeRequest, string) error {
			applied++
			return nil
		}),
	}
	svc := NewChangeRequestService(repo, appliers, nil, nil)
	request := submitPersonCreate(t, svc)

	decided, err := svc.Approve(context.Background(), request.ID, dto.DecideChangeRequestRequest{}, "reviewer-1")
	require.NoError(t, err)
	require.Equal(t, models.ChangeApproved, decided.Status)
	require.Equal(t, 1, applied)
	require.NotNil(t, decided.DecidedAt)
}

func TestChangeRequestRefuseSkipsApplier(t *testing.T) {
	repo := newChangeRequestStoreStub()
	appliers := map[models.TargetEntity]ChangeApplier{
		models.TargetPerson: ChangeApplierFunc(func(context.Context, *models.ChangeRequest, string) error {
			t.Fatal("applier must not run on refusal")
			return nil
		}),
	}
	svc := NewChangeRequestService(repo, appliers, nil, nil)
	request := submitPersonCreate(t, svc)

	note := "duplicate submission"
	decided, err := svc.Refuse(context.Background(), request.ID, dto.DecideChangeRequestRequest{Note: &note}, "reviewer-1")
	require.NoError(t, err)
	require.Equal(t, models.ChangeRefused, decided.Status)
	require.Equal(t, &note, decided.Note)
}

func TestChangeRequestDecisionsAreTerminal(t *testing.T) {
	repo := newChangeRequestStoreStub()
	svc := NewChangeRequestService(repo, nil, nil, nil)
	request := submitPersonCreate(t, svc)

	_, err := svc.Refuse(context.Background(), request.ID, dto.DecideChangeRequestRequest{}, "reviewer-1")
	require.NoError(t, err)

	_, err = svc.Approve(context.Background(), request.ID, dto.DecideChangeRequestRequest{}, "reviewer-2")
	require.Error(t, err)
	require.Equal(t, appErrors.ErrInvalidState.Code, appErrors.FromError(err).Code)

	_, err = svc.Refuse(context.Background(), request.ID, dto.DecideChangeRequestRequest{}, "reviewer-2")
	require.Error(t, err)
	require.Equal(t, appErrors.ErrInvalidState.Code, appErrors.FromError(err).Code)
}

func TestChangeRequestFailedApplierReopensRequest(t *testing.T) {
	repo := newChangeRequestStoreStub()
	appliers := map[models.TargetEntity]ChangeApplier{
		models.TargetPerson: ChangeApplierFunc(func(context.Context, *models.ChangeRequest, string) error {
			return errors.New("downstream failure")
		}),
	}
	svc := NewChangeRequestService(repo, appliers, nil, nil)
	request := submitPersonCreate(t, svc)

	_, err := svc.Approve(context.Background(), request.ID, dto.DecideChangeRequestRequest{}, "reviewer-1")
	require.Error(t, err)

	stored, err := svc.Get(context.Background(), request.ID)
	require.NoError(t, err)
	require.Equal(t, models.ChangePending, stored.Status)
	require.Nil(t, stored.DecidedBy)
	require.Nil(t, stored.DecidedAt)
}

// contestedChangeRequestStore reports the request as pending on load but
// fails the decide, the way a concurrent reviewer winning the transition
// looks to the loser.
type contestedChangeRequestStore struct {
	*changeRequestStoreStub
}

func (s *contestedChangeRequestStore) Decide(context.Context, repository.DecideParams) error {
	return sql.ErrNoRows
}

func TestChangeRequestLostApproveRaceNeverApplies(t *testing.T) {
	repo := &contestedChangeRequestStore{changeRequestStoreStub: newChangeRequestStoreStub()}
	applied := 0
	appliers := map[models.TargetEntity]ChangeApplier{
		models.TargetPerson: ChangeApplierFunc(func(context.Context, *models.ChangeRequest, string) error {
			applied++
			return nil
		}),
	}
	svc := NewChangeRequestService(repo, appliers, nil, nil)
	request := submitPersonCreate(t, svc)

	_, err := svc.Approve(context.Background(), request.ID, dto.DecideChangeRequestRequest{}, "reviewer-2")
	require.Error(t, err)
	require.Equal(t, appErrors.ErrInvalidState.Code, appErrors.FromError(err).Code)
	require.Zero(t, applied)
}

func TestChangeRequestSubmitValidatesShape(t *testing.T) {
	svc := NewChangeRequestService(newChangeRequestStoreStub(), nil, nil, nil)

	_, err := svc.Submit(context.Background(), dto.CreateChangeRequestRequest{
		Operation: "ARCHIVE",
		Entity:    models.TargetPerson,
		Payload:   []byte(`{}`),
	}, "editor-1")
	require.Error(t, err)
	require.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	_, err = svc.Submit(context.Background(), dto.CreateChangeRequestRequest{
		Operation: models.OperationUpdate,
		Entity:    models.TargetPerson,
		Payload:   []byte(`{}`),
	}, "editor-1")
	require.Error(t, err)
	require.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}
