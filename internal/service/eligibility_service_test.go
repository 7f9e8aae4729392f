package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/controle-mandatos/mandatos-api/internal/dto"
	"github.com/controle-mandatos/mandatos-api/internal/models"
	appErrors "github.com/controle-mandatos/mandatos-api/pkg/errors"
)

type personStoreStub struct {
	people map[int64]*models.Person
}

func (s *personStoreStub) GetByID(_ context.Context, id int64) (*models.Person, error) {
	if person, ok := s.people[id]; ok {
		copy := *person
		return &copy, nil
	}
	return nil, sql.ErrNoRows
}

type positionStoreStub struct {
	positions map[int64]*models.Position
}

func (s *positionStoreStub) GetByID(_ context.Context, id int64) (*models.Position, error) {
	if position, ok := s.positions[id]; ok {
		copy := *position
		return &copy, nil
	}
	return nil, sql.ErrNoRows
}

type organizationStoreStub struct {
	organizations map[int64]*models.Organization
}

func (s *organizationStoreStub) GetByID(_ context.Context, id int64) (*models.Organization, error) {
	if organization, ok := s.organizations[id]; ok {
		copy := *organization
		return &copy, nil
	}
	return nil, sql.ErrNoRows
}

type occupationStoreStub struct {
	byPosition  []models.Occupation
	overlapping map[int64][]models.Occupation
}

func (s *occupationStoreStub) ListByPosition(context.Context, int64) ([]models.Occupation, error) {
	return s.byPosition, nil
}

func (s *occupationStoreStub) ListOverlapping(_ context.Context, positionID int64, _ time.Time, _ *time.Time) ([]models.Occupation, error) {
	return s.overlapping[positionID], nil
}

func day(value string) time.Time {
	parsed, err := time.Parse("2006-01-02", value)
	if err != nil {
		panic(err)
	}
	return parsed
}

func newEligibilityFixture(occupations *occupationStoreStub) *EligibilityService {
	people := &personStoreStub{people: map[int64]*models.Person{
		1: {ID: 1, Name: "Maria Souza", Active: true},
		2: {ID: 2, Name: "Pedro Silva", Active: false},
	}}
	directorID := int64(10)
	positions := &positionStoreStub{positions: map[int64]*models.Position{
		10: {ID: 10, Name: "Director", OrganizationID: 1, Active: true, Exclusive: true},
		11: {ID: 11, Name: "Advisor", OrganizationID: 1, Active: true, Exclusive: false},
		12: {ID: 12, Name: "Retired Seat", OrganizationID: 2, Active: false, Exclusive: true},
		13: {ID: 13, Name: "Board Chair", OrganizationID: 2, Active: true, Exclusive: true},
		14: {ID: 14, Name: "Deputy Director", OrganizationID: 1, Active: true, Exclusive: false, SubstituteOf: &directorID},
	}}
	organizations := &organizationStoreStub{organizations: map[int64]*models.Organization{
		1: {ID: 1, Name: "City Council", Active: true},
		2: {ID: 2, Name: "Dissolved Board", Active: false},
	}}
	return NewEligibilityService(people, positions, organizations, occupations, nil, EligibilityConfig{TermLimit: 2}, nil, nil)
}

func TestEligibilityCheckAllClear(t *testing.T) {
	svc := newEligibilityFixture(&occupationStoreStub{})

	result, err := svc.Check(context.Background(), dto.EligibilityRequest{
		PersonID: 1, PositionID: 10, StartDate: "2025-01-01",
	})
	require.NoError(t, err)
	require.True(t, result.Eligible)
	require.Empty(t, result.Reasons)
}

func TestEligibilityCheckCollectsEveryReason(t *testing.T) {
	occupations := &occupationStoreStub{
		overlapping: map[int64][]models.Occupation{
			12: {{ID: 1, PersonID: 9, PositionID: 12, StartDate: day("2024-01-01")}},
		},
		byPosition: []models.Occupation{
			{ID: 2, PersonID: 2, PositionID: 12, StartDate: day("2021-01-01"), TermNumber: 1},
			{ID: 3, PersonID: 2, PositionID: 12, StartDate: day("2023-01-01"), TermNumber: 2},
		},
	}
	svc := newEligibilityFixture(occupations)

	result, err := svc.Check(context.Background(), dto.EligibilityRequest{
		PersonID: 2, PositionID: 12, StartDate: "2025-01-01",
	})
	require.NoError(t, err)
	require.False(t, result.Eligible)
	require.Equal(t, []string{ReasonPersonInactive, ReasonPositionInactive, ReasonOrganizationInactive, ReasonPositionOccupied, ReasonTermLimit}, result.Reasons)
}

func TestEligibilityCheckInactiveOrganizationBlocks(t *testing.T) {
	svc := newEligibilityFixture(&occupationStoreStub{})

	result, err := svc.Check(context.Background(), dto.EligibilityRequest{
		PersonID: 1, PositionID: 13, StartDate: "2025-01-01",
	})
	require.NoError(t, err)
	require.False(t, result.Eligible)
	require.Equal(t, []string{ReasonOrganizationInactive}, result.Reasons)
}

func TestEligibilityCheckSharedPositionIgnoresOccupancy(t *testing.T) {
	occupations := &occupationStoreStub{
		overlapping: map[int64][]models.Occupation{
			11: {{ID: 1, PersonID: 9, PositionID: 11, StartDate: day("2024-01-01")}},
		},
	}
	svc := newEligibilityFixture(occupations)

	result, err := svc.Check(context.Background(), dto.EligibilityRequest{
		PersonID: 1, PositionID: 11, StartDate: "2025-01-01",
	})
	require.NoError(t, err)
	require.True(t, result.Eligible)
}

func TestEligibilityCheckExclusivePositionBlocksOwnSecondTerm(t *testing.T) {
	occupations := &occupationStoreStub{
		overlapping: map[int64][]models.Occupation{
			10: {{ID: 1, PersonID: 1, PositionID: 10, StartDate: day("2024-01-01")}},
		},
	}
	svc := newEligibilityFixture(occupations)

	// the candidate already holds the open term; a second one must not open
	result, err := svc.Check(context.Background(), dto.EligibilityRequest{
		PersonID: 1, PositionID: 10, StartDate: "2025-01-01",
	})
	require.NoError(t, err)
	require.False(t, result.Eligible)
	require.Contains(t, result.Reasons, ReasonPositionOccupied)
}

func TestEligibilityCheckTermStreakResetsOnInterruption(t *testing.T) {
	end1 := day("2021-12-31")
	end2 := day("2022-12-31")
	end3 := day("2024-12-31")
	occupations := &occupationStoreStub{
		byPosition: []models.Occupation{
			{ID: 1, PersonID: 1, PositionID: 10, StartDate: day("2021-01-01"), EndDate: &end1, TermNumber: 1},
			{ID: 2, PersonID: 1, PositionID: 10, StartDate: day("2022-01-01"), EndDate: &end2, TermNumber: 2},
			// another person interrupts the streak
			{ID: 3, PersonID: 9, PositionID: 10, StartDate: day("2023-01-01"), EndDate: &end3, TermNumber: 1},
		},
	}
	svc := newEligibilityFixture(occupations)

	result, err := svc.Check(context.Background(), dto.EligibilityRequest{
		PersonID: 1, PositionID: 10, StartDate: "2025-01-01",
	})
	require.NoError(t, err)
	require.True(t, result.Eligible)
}

func TestEligibilityCheckTermLimitBlocksThirdConsecutive(t *testing.T) {
	end1 := day("2021-12-31")
	end2 := day("2023-12-31")
	occupations := &occupationStoreStub{
		byPosition: []models.Occupation{
			{ID: 1, PersonID: 1, PositionID: 10, StartDate: day("2020-01-01"), EndDate: &end1, TermNumber: 1},
			{ID: 2, PersonID: 1, PositionID: 10, StartDate: day("2022-01-01"), EndDate: &end2, TermNumber: 2},
		},
	}
	svc := newEligibilityFixture(occupations)

	result, err := svc.Check(context.Background(), dto.EligibilityRequest{
		PersonID: 1, PositionID: 10, StartDate: "2024-01-01",
	})
	require.NoError(t, err)
	require.False(t, result.Eligible)
	require.Contains(t, result.Reasons, ReasonTermLimit)
}

func TestEligibilityCheckBackfilledTermCannotBridgeRuns(t *testing.T) {
	end1 := day("2020-12-31")
	end3 := day("2022-12-31")
	// terms before and after the candidate window belong to the same person;
	// inserting between them would make a run of three
	occupations := &occupationStoreStub{
		byPosition: []models.Occupation{
			{ID: 1, PersonID: 1, PositionID: 11, StartDate: day("2020-01-01"), EndDate: &end1, TermNumber: 1},
			{ID: 2, PersonID: 1, PositionID: 11, StartDate: day("2022-01-01"), EndDate: &end3, TermNumber: 2},
		},
	}
	svc := newEligibilityFixture(occupations)

	end := "2021-12-31"
	result, err := svc.Check(context.Background(), dto.EligibilityRequest{
		PersonID: 1, PositionID: 11, StartDate: "2021-01-01", EndDate: &end,
	})
	require.NoError(t, err)
	require.False(t, result.Eligible)
	require.Contains(t, result.Reasons, ReasonTermLimit)
}

func TestEligibilityCheckSubstituteNeedsHeldPrincipal(t *testing.T) {
	svc := newEligibilityFixture(&occupationStoreStub{})

	result, err := svc.Check(context.Background(), dto.EligibilityRequest{
		PersonID: 1, PositionID: 14, StartDate: "2025-01-01",
	})
	require.NoError(t, err)
	require.False(t, result.Eligible)
	require.Equal(t, []string{ReasonPrincipalVacant}, result.Reasons)
}

func TestEligibilityCheckSubstituteWithHeldPrincipalIsEligible(t *testing.T) {
	occupations := &occupationStoreStub{
		overlapping: map[int64][]models.Occupation{
			10: {{ID: 1, PersonID: 9, PositionID: 10, StartDate: day("2024-01-01")}},
		},
	}
	svc := newEligibilityFixture(occupations)

	result, err := svc.Check(context.Background(), dto.EligibilityRequest{
		PersonID: 1, PositionID: 14, StartDate: "2025-01-01",
	})
	require.NoError(t, err)
	require.True(t, result.Eligible)
}

func TestEligibilityCheckUnknownPersonIsNotFound(t *testing.T) {
	svc := newEligibilityFixture(&occupationStoreStub{})

	_, err := svc.Check(context.Background(), dto.EligibilityRequest{
		PersonID: 99, PositionID: 10, StartDate: "2025-01-01",
	})
	require.Error(t, err)
	require.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestEligibilityCheckRejectsInvertedWindow(t *testing.T) {
	svc := newEligibilityFixture(&occupationStoreStub{})

	end := "2024-01-01"
	_, err := svc.Check(context.Background(), dto.EligibilityRequest{
		PersonID: 1, PositionID: 10, StartDate: "2025-01-01", EndDate: &end,
	})
	require.Error(t, err)
	require.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}
