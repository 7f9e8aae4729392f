package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/controle-mandatos/mandatos-api/internal/dto"
	"github.com/controle-mandatos/mandatos-api/internal/models"
	"github.com/controle-mandatos/mandatos-api/internal/repository"
	appErrors "github.com/controle-mandatos/mandatos-api/pkg/errors"
)

type occupationRepoStub struct {
	occupations map[int64]*models.Occupation
	nextID      int64
	deleteErr   error
}

func newOccupationRepoStub() *occupationRepoStub {
	return &occupationRepoStub{occupations: make(map[int64]*models.Occupation), nextID: 1}
}

func (s *occupationRepoStub) Create(_ context.Context, occupation *models.Occupation) error {
	occupation.ID = s.nextID
	occupation.TermNumber = 1
	s.nextID++
	s.occupations[occupation.ID] = occupation
	return nil
}

func (s *occupationRepoStub) GetByID(_ context.Context, id int64) (*models.Occupation, error) {
	if occupation, ok := s.occupations[id]; ok {
		copy := *occupation
		return &copy, nil
	}
	return nil, sql.ErrNoRows
}

func (s *occupationRepoStub) List(context.Context, models.OccupationFilter) ([]models.Occupation, int64, error) {
	result := make([]models.Occupation, 0, len(s.occupations))
	for _, occupation := range s.occupations {
		result = append(result, *occupation)
	}
	return result, int64(len(result)), nil
}

func (s *occupationRepoStub) Update(_ context.Context, occupation *models.Occupation) error {
	if _, ok := s.occupations[occupation.ID]; !ok {
		return sql.ErrNoRows
	}
	s.occupations[occupation.ID] = occupation
	return nil
}

func (s *occupationRepoStub) Delete(_ context.Context, id int64, _ int) error {
	if s.deleteErr != nil {
		return s.deleteErr
	}
	if _, ok := s.occupations[id]; !ok {
		return sql.ErrNoRows
	}
	delete(s.occupations, id)
	return nil
}

type directiveStoreStub struct {
	directives map[int64]*models.Directive
}

func (s *directiveStoreStub) GetByID(_ context.Context, id int64) (*models.Directive, error) {
	if directive, ok := s.directives[id]; ok {
		return directive, nil
	}
	return nil, sql.ErrNoRows
}

type eligibilityCheckerStub struct {
	result dto.EligibilityResult
}

func (s *eligibilityCheckerStub) Check(context.Context, dto.EligibilityRequest) (*dto.EligibilityResult, error) {
	copy := s.result
	return &copy, nil
}

func TestOccupationCreateBlockedWhenIneligible(t *testing.T) {
	checker := &eligibilityCheckerStub{result: dto.EligibilityResult{
		Eligible: false,
		Reasons:  []string{ReasonTermLimit},
	}}
	svc := NewOccupationService(newOccupationRepoStub(), &directiveStoreStub{}, checker, nil, nil, 2, nil, nil)

	_, err := svc.Create(context.Background(), dto.CreateOccupationRequest{
		PersonID: 1, PositionID: 10, StartDate: "2025-01-01",
	}, "user-1")
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	require.Equal(t, appErrors.ErrInvalidState.Code, appErr.Code)
	require.Contains(t, appErr.Message, ReasonTermLimit)
}

func TestOccupationCreateRecordsHistoryAndInvalidatesCaches(t *testing.T) {
	checker := &eligibilityCheckerStub{result: dto.EligibilityResult{Eligible: true}}
	history := &historyStub{}
	cache := &cacheStub{}
	svc := NewOccupationService(newOccupationRepoStub(), &directiveStoreStub{}, checker, history, cache, 2, nil, nil)

	occupation, err := svc.Create(context.Background(), dto.CreateOccupationRequest{
		PersonID: 1, PositionID: 10, StartDate: "2025-01-01",
	}, "user-1")
	require.NoError(t, err)
	require.Equal(t, int64(1), occupation.ID)
	require.Len(t, history.entries, 1)
	require.Equal(t, models.HistoryCreate, history.entries[0].Operation)
	require.ElementsMatch(t, []string{"eligibility:*", "search:*"}, cache.patterns)
}

func TestOccupationCreateRejectsInvertedDates(t *testing.T) {
	checker := &eligibilityCheckerStub{result: dto.EligibilityResult{Eligible: true}}
	svc := NewOccupationService(newOccupationRepoStub(), &directiveStoreStub{}, checker, nil, nil, 2, nil, nil)

	end := "2024-01-01"
	_, err := svc.Create(context.Background(), dto.CreateOccupationRequest{
		PersonID: 1, PositionID: 10, StartDate: "2025-01-01", EndDate: &end,
	}, "user-1")
	require.Error(t, err)
	require.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestOccupationCreateRequiresKnownDirective(t *testing.T) {
	checker := &eligibilityCheckerStub{result: dto.EligibilityResult{Eligible: true}}
	svc := NewOccupationService(newOccupationRepoStub(), &directiveStoreStub{}, checker, nil, nil, 2, nil, nil)

	directiveID := int64(99)
	_, err := svc.Create(context.Background(), dto.CreateOccupationRequest{
		PersonID: 1, PositionID: 10, StartDate: "2025-01-01", DirectiveID: &directiveID,
	}, "user-1")
	require.Error(t, err)
	require.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestOccupationUpdateClearEndDateReopensTerm(t *testing.T) {
	checker := &eligibilityCheckerStub{result: dto.EligibilityResult{Eligible: true}}
	repo := newOccupationRepoStub()
	svc := NewOccupationService(repo, &directiveStoreStub{}, checker, nil, nil, 2, nil, nil)

	end := "2025-06-30"
	created, err := svc.Create(context.Background(), dto.CreateOccupationRequest{
		PersonID: 1, PositionID: 10, StartDate: "2025-01-01", EndDate: &end,
	}, "user-1")
	require.NoError(t, err)
	require.NotNil(t, created.EndDate)

	updated, err := svc.Update(context.Background(), created.ID, dto.UpdateOccupationRequest{ClearEndDate: true}, "user-1")
	require.NoError(t, err)
	require.Nil(t, updated.EndDate)
	require.True(t, updated.Open())
}

func TestOccupationDeleteMergingRunsIsValidationError(t *testing.T) {
	checker := &eligibilityCheckerStub{result: dto.EligibilityResult{Eligible: true}}
	repo := newOccupationRepoStub()
	repo.occupations[8] = &models.Occupation{ID: 8, PersonID: 9, PositionID: 10, StartDate: day("2021-01-01")}
	repo.deleteErr = repository.ErrTermLimitExceeded
	svc := NewOccupationService(repo, &directiveStoreStub{}, checker, nil, nil, 2, nil, nil)

	err := svc.Delete(context.Background(), 8, "user-1")
	require.Error(t, err)
	require.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	// the term stays in place
	require.Contains(t, repo.occupations, int64(8))
}

func TestOccupationDeleteUnknownIsNotFound(t *testing.T) {
	checker := &eligibilityCheckerStub{result: dto.EligibilityResult{Eligible: true}}
	svc := NewOccupationService(newOccupationRepoStub(), &directiveStoreStub{}, checker, nil, nil, 2, nil, nil)

	err := svc.Delete(context.Background(), 42, "user-1")
	require.Error(t, err)
	require.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
