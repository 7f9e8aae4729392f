package service

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/controle-mandatos/mandatos-api/internal/dto"
	"github.com/controle-mandatos/mandatos-api/internal/models"
	appErrors "github.com/controle-mandatos/mandatos-api/pkg/errors"
)

// Eligibility reasons reported to callers. The evaluator collects every
// violated rule instead of stopping at the first one.
const (
	ReasonPersonInactive       = "person is inactive"
	ReasonPositionInactive     = "position is inactive"
	ReasonOrganizationInactive = "organization is inactive"
	ReasonPositionOccupied     = "position is occupied for the requested period"
	ReasonTermLimit            = "consecutive term limit exceeded"
	ReasonPrincipalVacant      = "principal position is vacant on the start date"
)

type eligibilityPersonStore interface {
	GetByID(ctx context.Context, id int64) (*models.Person, error)
}

type eligibilityPositionStore interface {
	GetByID(ctx context.Context, id int64) (*models.Position, error)
}

type eligibilityOrganizationStore interface {
	GetByID(ctx context.Context, id int64) (*models.Organization, error)
}

type eligibilityOccupationStore interface {
	ListByPosition(ctx context.Context, positionID int64) ([]models.Occupation, error)
	ListOverlapping(ctx context.Context, positionID int64, start time.Time, end *time.Time) ([]models.Occupation, error)
}

type verdictCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// EligibilityConfig tunes the evaluator.
type EligibilityConfig struct {
	TermLimit    int
	CacheEnabled bool
	CacheTTL     time.Duration
}

// EligibilityService answers whether a person may assume a position.
type EligibilityService struct {
	people        eligibilityPersonStore
	positions     eligibilityPositionStore
	organizations eligibilityOrganizationStore
	occupations   eligibilityOccupationStore
	cache         verdictCache
	cfg           EligibilityConfig
	validate      *validator.Validate
	logger        *zap.Logger
}

// NewEligibilityService constructs the service.
func NewEligibilityService(
	people eligibilityPersonStore,
	positions eligibilityPositionStore,
	organizations eligibilityOrganizationStore,
	occupations eligibilityOccupationStore,
	cache verdictCache,
	cfg EligibilityConfig,
	validate *validator.Validate,
	logger *zap.Logger,
) *EligibilityService {
	if cfg.TermLimit <= 0 {
		cfg.TermLimit = 2
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EligibilityService{
		people:        people,
		positions:     positions,
		organizations: organizations,
		occupations:   occupations,
		cache:         cache,
		cfg:           cfg,
		validate:      validate,
		logger:        logger,
	}
}

// Check evaluates every rule for the candidate appointment. Unknown person or
// position ids are errors, not reasons.
func (s *EligibilityService) Check(ctx context.Context, req dto.EligibilityRequest) (*dto.EligibilityResult, error) {
	if err := validateStruct(s.validate, req); err != nil {
		return nil, err
	}
	start, err := parseDate("start_date", req.StartDate)
	if err != nil {
		return nil, err
	}
	end, err := parseOptionalDate("end_date", req.EndDate)
	if err != nil {
		return nil, err
	}
	if end != nil && end.Before(start) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "end_date must not precede start_date")
	}

	cacheKey := s.cacheKey(req)
	if s.cache != nil && s.cfg.CacheEnabled {
		var cached dto.EligibilityResult
		if err := s.cache.Get(ctx, cacheKey, &cached); err == nil {
			return &cached, nil
		}
	}

	person, err := s.people.GetByID(ctx, req.PersonID)
	if err != nil {
		return nil, mapStoreError(err, "failed to load person")
	}
	position, err := s.positions.GetByID(ctx, req.PositionID)
	if err != nil {
		return nil, mapStoreError(err, "failed to load position")
	}

	organization, err := s.organizations.GetByID(ctx, position.OrganizationID)
	if err != nil {
		return nil, mapStoreError(err, "failed to load organization")
	}

	reasons := make([]string, 0, 4)
	if !person.Active {
		reasons = append(reasons, ReasonPersonInactive)
	}
	if !position.Active {
		reasons = append(reasons, ReasonPositionInactive)
	}
	if !organization.Active {
		reasons = append(reasons, ReasonOrganizationInactive)
	}
	if position.Exclusive {
		occupied, err := s.windowOccupied(ctx, position.ID, start, end)
		if err != nil {
			return nil, err
		}
		if occupied {
			reasons = append(reasons, ReasonPositionOccupied)
		}
	}
	overLimit, err := s.exceedsTermLimit(ctx, position.ID, person.ID, start)
	if err != nil {
		return nil, err
	}
	if overLimit {
		reasons = append(reasons, ReasonTermLimit)
	}
	if position.SubstituteOf != nil {
		covered, err := s.principalCovered(ctx, *position.SubstituteOf, start)
		if err != nil {
			return nil, err
		}
		if !covered {
			reasons = append(reasons, ReasonPrincipalVacant)
		}
	}

	result := &dto.EligibilityResult{Eligible: len(reasons) == 0, Reasons: reasons}
	if s.cache != nil && s.cfg.CacheEnabled {
		if err := s.cache.Set(ctx, cacheKey, result, s.cfg.CacheTTL); err != nil {
			s.logger.Warn("eligibility cache write failed", zap.Error(err))
		}
	}
	return result, nil
}

// windowOccupied reports whether any occupation of the position intersects
// the candidate window. The candidate's own terms count too: an exclusive
// position never carries two overlapping occupations, whoever holds them.
func (s *EligibilityService) windowOccupied(ctx context.Context, positionID int64, start time.Time, end *time.Time) (bool, error) {
	overlapping, err := s.occupations.ListOverlapping(ctx, positionID, start, end)
	if err != nil {
		return false, mapStoreError(err, "failed to inspect position occupancy")
	}
	return len(overlapping) > 0, nil
}

// exceedsTermLimit counts the consecutive run the candidate term would join:
// the person's terms immediately before the start plus their terms right
// after it, so a backfilled term cannot bridge two runs past the limit.
// Another person's term in between resets the streak.
func (s *EligibilityService) exceedsTermLimit(ctx context.Context, positionID, personID int64, start time.Time) (bool, error) {
	occupations, err := s.occupations.ListByPosition(ctx, positionID)
	if err != nil {
		return false, mapStoreError(err, "failed to load position terms")
	}
	before, after := 0, 0
	for _, occupation := range occupations {
		if occupation.StartDate.Before(start) {
			if occupation.PersonID == personID {
				before++
			} else {
				before = 0
			}
			continue
		}
		if occupation.PersonID != personID {
			break
		}
		after++
	}
	return before+1+after > s.cfg.TermLimit, nil
}

// principalCovered reports whether the principal position has an occupation
// in effect on the candidate start date. Substitute positions may only be
// filled while their principal is held.
func (s *EligibilityService) principalCovered(ctx context.Context, principalID int64, start time.Time) (bool, error) {
	covering, err := s.occupations.ListOverlapping(ctx, principalID, start, &start)
	if err != nil {
		return false, mapStoreError(err, "failed to inspect principal occupancy")
	}
	return len(covering) > 0, nil
}

func (s *EligibilityService) cacheKey(req dto.EligibilityRequest) string {
	end := "open"
	if req.EndDate != nil {
		end = *req.EndDate
	}
	return fmt.Sprintf("eligibility:%d:%d:%s:%s", req.PersonID, req.PositionID, req.StartDate, end)
}
