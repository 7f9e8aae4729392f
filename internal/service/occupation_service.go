package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/controle-mandatos/mandatos-api/internal/dto"
	"github.com/controle-mandatos/mandatos-api/internal/models"
	"github.com/controle-mandatos/mandatos-api/internal/repository"
	appErrors "github.com/controle-mandatos/mandatos-api/pkg/errors"
)

type occupationStore interface {
	Create(ctx context.Context, occupation *models.Occupation) error
	GetByID(ctx context.Context, id int64) (*models.Occupation, error)
	List(ctx context.Context, filter models.OccupationFilter) ([]models.Occupation, int64, error)
	Update(ctx context.Context, occupation *models.Occupation) error
	Delete(ctx context.Context, id int64, termLimit int) error
}

type occupationDirectiveStore interface {
	GetByID(ctx context.Context, id int64) (*models.Directive, error)
}

type eligibilityChecker interface {
	Check(ctx context.Context, req dto.EligibilityRequest) (*dto.EligibilityResult, error)
}

// OccupationService manages terms. Every create runs through the
// eligibility evaluator; updates and deletes renumber the affected position.
type OccupationService struct {
	repo        occupationStore
	directives  occupationDirectiveStore
	eligibility eligibilityChecker
	history     historyEmitter
	cache       cacheInvalidator
	termLimit   int
	validate    *validator.Validate
	logger      *zap.Logger
}

// NewOccupationService constructs the service.
func NewOccupationService(
	repo occupationStore,
	directives occupationDirectiveStore,
	eligibility eligibilityChecker,
	history historyEmitter,
	cache cacheInvalidator,
	termLimit int,
	validate *validator.Validate,
	logger *zap.Logger,
) *OccupationService {
	if termLimit <= 0 {
		termLimit = 2
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OccupationService{
		repo:        repo,
		directives:  directives,
		eligibility: eligibility,
		history:     history,
		cache:       cache,
		termLimit:   termLimit,
		validate:    validate,
		logger:      logger,
	}
}

// Create opens or backfills a term after the eligibility evaluator clears it.
func (s *OccupationService) Create(ctx context.Context, req dto.CreateOccupationRequest, actorID string) (*models.Occupation, error) {
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
	if req.DirectiveID != nil {
		if _, err := s.directives.GetByID(ctx, *req.DirectiveID); err != nil {
			return nil, mapStoreError(err, "failed to load directive")
		}
	}

	verdict, err := s.eligibility.Check(ctx, dto.EligibilityRequest{
		PersonID:   req.PersonID,
		PositionID: req.PositionID,
		StartDate:  req.StartDate,
		EndDate:    req.EndDate,
	})
	if err != nil {
		return nil, err
	}
	if !verdict.Eligible {
		return nil, appErrors.Clone(appErrors.ErrInvalidState,
			fmt.Sprintf("appointment not allowed: %s", strings.Join(verdict.Reasons, "; ")))
	}

	occupation := &models.Occupation{
		PersonID:    req.PersonID,
		PositionID:  req.PositionID,
		DirectiveID: req.DirectiveID,
		StartDate:   start,
		EndDate:     end,
		Notes:       req.Notes,
	}
	if err := s.repo.Create(ctx, occupation); err != nil {
		return nil, mapStoreError(err, "failed to create occupation")
	}
	s.emit(models.HistoryCreate, occupation.ID,
		fmt.Sprintf("occupation opened for person %d in position %d starting %s",
			occupation.PersonID, occupation.PositionID, formatDate(start)), actorID)
	s.invalidateCaches(ctx)
	return occupation, nil
}

// Get fetches one occupation.
func (s *OccupationService) Get(ctx context.Context, id int64) (*models.Occupation, error) {
	occupation, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, mapStoreError(err, "failed to load occupation")
	}
	return occupation, nil
}

// List returns the paginated registry.
func (s *OccupationService) List(ctx context.Context, filter models.OccupationFilter) ([]models.Occupation, *models.Pagination, error) {
	occupations, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, mapStoreError(err, "failed to list occupations")
	}
	return occupations, models.NewPagination(filter.Page, filter.PageSize, total), nil
}

// Update adjusts dates, directive or notes of an existing term.
func (s *OccupationService) Update(ctx context.Context, id int64, req dto.UpdateOccupationRequest, actorID string) (*models.Occupation, error) {
	if err := validateStruct(s.validate, req); err != nil {
		return nil, err
	}
	occupation, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, mapStoreError(err, "failed to load occupation")
	}
	if req.DirectiveID != nil {
		if _, err := s.directives.GetByID(ctx, *req.DirectiveID); err != nil {
			return nil, mapStoreError(err, "failed to load directive")
		}
		occupation.DirectiveID = req.DirectiveID
	}
	if req.StartDate != nil {
		start, err := parseDate("start_date", *req.StartDate)
		if err != nil {
			return nil, err
		}
		occupation.StartDate = start
	}
	switch {
	case req.ClearEndDate:
		occupation.EndDate = nil
	case req.EndDate != nil:
		end, err := parseDate("end_date", *req.EndDate)
		if err != nil {
			return nil, err
		}
		occupation.EndDate = &end
	}
	if occupation.EndDate != nil && occupation.EndDate.Before(occupation.StartDate) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "end_date must not precede start_date")
	}
	if req.Notes != nil {
		occupation.Notes = req.Notes
	}
	if err := s.repo.Update(ctx, occupation); err != nil {
		return nil, mapStoreError(err, "failed to update occupation")
	}
	s.emit(models.HistoryUpdate, occupation.ID, fmt.Sprintf("occupation %d updated", occupation.ID), actorID)
	s.invalidateCaches(ctx)
	return occupation, nil
}

// Delete removes a term; remaining terms of the position are renumbered. The
// removal is refused when it would merge two runs of the same person into one
// longer than the configured limit.
func (s *OccupationService) Delete(ctx context.Context, id int64, actorID string) error {
	occupation, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return mapStoreError(err, "failed to load occupation")
	}
	if err := s.repo.Delete(ctx, id, s.termLimit); err != nil {
		if errors.Is(err, repository.ErrTermLimitExceeded) {
			return appErrors.Clone(appErrors.ErrValidation, "removal would merge consecutive terms past the limit")
		}
		return mapStoreError(err, "failed to delete occupation")
	}
	s.emit(models.HistoryDelete, id,
		fmt.Sprintf("occupation of person %d in position %d removed", occupation.PersonID, occupation.PositionID), actorID)
	s.invalidateCaches(ctx)
	return nil
}

func (s *OccupationService) invalidateCaches(ctx context.Context) {
	if s.cache == nil {
		return
	}
	for _, pattern := range []string{"eligibility:*", "search:*"} {
		if err := s.cache.DeleteByPattern(ctx, pattern); err != nil {
			s.logger.Warn("cache invalidation failed", zap.String("pattern", pattern), zap.Error(err))
		}
	}
}

func (s *OccupationService) emit(operation models.HistoryOperation, id int64, summary, actorID string) {
	if s.history == nil {
		return
	}
	s.history.Record(&models.HistoryEntry{
		Operation: operation,
		Entity:    models.TargetOccupation,
		EntityID:  &id,
		Summary:   summary,
		ActorID:   optionalString(actorID),
	})
}
