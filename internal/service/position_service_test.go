package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/controle-mandatos/mandatos-api/internal/dto"
	"github.com/controle-mandatos/mandatos-api/internal/models"
	appErrors "github.com/controle-mandatos/mandatos-api/pkg/errors"
)

type positionRepoStub struct {
	positions   map[int64]*models.Position
	nextID      int64
	occupations map[int64]int64
	substitutes map[int64]int64
}

func newPositionRepoStub() *positionRepoStub {
	return &positionRepoStub{
		positions:   make(map[int64]*models.Position),
		nextID:      1,
		occupations: make(map[int64]int64),
		substitutes: make(map[int64]int64),
	}
}

func (s *positionRepoStub) Create(_ context.Context, position *models.Position) error {
	position.ID = s.nextID
	s.nextID++
	position.Active = true
	s.positions[position.ID] = position
	return nil
}

func (s *positionRepoStub) GetByID(_ context.Context, id int64) (*models.Position, error) {
	if position, ok := s.positions[id]; ok {
		copy := *position
		return &copy, nil
	}
	return nil, sql.ErrNoRows
}

func (s *positionRepoStub) List(context.Context, models.PositionFilter) ([]models.Position, int64, error) {
	return nil, 0, nil
}

func (s *positionRepoStub) Update(_ context.Context, position *models.Position) error {
	if _, ok := s.positions[position.ID]; !ok {
		return sql.ErrNoRows
	}
	s.positions[position.ID] = position
	return nil
}

func (s *positionRepoStub) SetActive(_ context.Context, id int64, active bool) error {
	position, ok := s.positions[id]
	if !ok {
		return sql.ErrNoRows
	}
	position.Active = active
	return nil
}

func (s *positionRepoStub) Delete(_ context.Context, id int64) error {
	if _, ok := s.positions[id]; !ok {
		return sql.ErrNoRows
	}
	delete(s.positions, id)
	return nil
}

func (s *positionRepoStub) CountOccupations(_ context.Context, id int64) (int64, error) {
	return s.occupations[id], nil
}

func (s *positionRepoStub) CountSubstitutes(_ context.Context, id int64) (int64, error) {
	return s.substitutes[id], nil
}

type orgLookupStub struct {
	orgs map[int64]*models.Organization
}

func (s *orgLookupStub) GetByID(_ context.Context, id int64) (*models.Organization, error) {
	if org, ok := s.orgs[id]; ok {
		return org, nil
	}
	return nil, sql.ErrNoRows
}

func newPositionFixture() (*PositionService, *positionRepoStub) {
	repo := newPositionRepoStub()
	orgs := &orgLookupStub{orgs: map[int64]*models.Organization{
		1: {ID: 1, Name: "Health Council", Active: true},
		2: {ID: 2, Name: "Dissolved Board", Active: false},
	}}
	return NewPositionService(repo, orgs, nil, nil, nil), repo
}

func TestPositionCreateRejectsInactiveOrganization(t *testing.T) {
	svc, _ := newPositionFixture()

	_, err := svc.Create(context.Background(), dto.CreatePositionRequest{
		Name: "Director", OrganizationID: 2,
	}, "user-1")
	require.Error(t, err)
	require.Equal(t, appErrors.ErrInvalidState.Code, appErrors.FromError(err).Code)
}

func TestPositionSubstituteMustShareOrganization(t *testing.T) {
	svc, repo := newPositionFixture()
	repo.positions[50] = &models.Position{ID: 50, Name: "Outside Seat", OrganizationID: 9, Active: true}

	principalID := int64(50)
	_, err := svc.Create(context.Background(), dto.CreatePositionRequest{
		Name: "Vice Director", OrganizationID: 1, SubstituteOf: &principalID,
	}, "user-1")
	require.Error(t, err)
	require.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestPositionSubstituteCycleIsRejected(t *testing.T) {
	svc, repo := newPositionFixture()
	// 20 substitutes 10; relinking 10 under 20 would close the loop
	repo.positions[10] = &models.Position{ID: 10, Name: "Director", OrganizationID: 1, Active: true}
	directorID := int64(10)
	repo.positions[20] = &models.Position{ID: 20, Name: "Vice Director", OrganizationID: 1, Active: true, SubstituteOf: &directorID}

	principalID := int64(20)
	_, err := svc.Update(context.Background(), 10, dto.UpdatePositionRequest{SubstituteOf: &principalID}, "user-1")
	require.Error(t, err)
	require.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestPositionDeleteBlockedByReferences(t *testing.T) {
	svc, repo := newPositionFixture()
	repo.positions[10] = &models.Position{ID: 10, Name: "Director", OrganizationID: 1, Active: true}
	repo.occupations[10] = 3

	err := svc.Delete(context.Background(), 10, "user-1")
	require.Error(t, err)
	require.Equal(t, appErrors.ErrReferential.Code, appErrors.FromError(err).Code)
}

func TestPositionDeactivateTwiceIsInvalidState(t *testing.T) {
	svc, repo := newPositionFixture()
	repo.positions[10] = &models.Position{ID: 10, Name: "Director", OrganizationID: 1, Active: true}

	_, err := svc.Deactivate(context.Background(), 10, "user-1")
	require.NoError(t, err)

	_, err = svc.Deactivate(context.Background(), 10, "user-1")
	require.Error(t, err)
	require.Equal(t, appErrors.ErrInvalidState.Code, appErrors.FromError(err).Code)
}
