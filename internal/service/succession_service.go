package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/controle-mandatos/mandatos-api/internal/dto"
	"github.com/controle-mandatos/mandatos-api/internal/models"
	"github.com/controle-mandatos/mandatos-api/internal/repository"
	appErrors "github.com/controle-mandatos/mandatos-api/pkg/errors"
)

// cascadeNote annotates occupations opened for promoted substitutes.
const cascadeNote = "automatic substitution"

type successionOccupationStore interface {
	GetByID(ctx context.Context, id int64) (*models.Occupation, error)
	FindSuccessorCandidate(ctx context.Context, positionID, excludePersonID int64, notBefore *time.Time) (*models.Occupation, error)
	FinalizeCascade(ctx context.Context, params repository.FinalizeParams) (*models.Occupation, []repository.PromotionRecord, error)
}

type successionPositionStore interface {
	FindSubstitute(ctx context.Context, principalID int64) (*models.Position, error)
}

type successionPersonStore interface {
	GetByID(ctx context.Context, id int64) (*models.Person, error)
}

type cacheInvalidator interface {
	DeleteByPattern(ctx context.Context, pattern string) error
}

type cascadeObserver interface {
	ObserveCascadeDepth(depth int)
}

// SuccessionService resolves who steps in when a position is vacated and
// drives the atomic finalize-and-promote flow.
type SuccessionService struct {
	occupations successionOccupationStore
	positions   successionPositionStore
	people      successionPersonStore
	history     historyEmitter
	cache       cacheInvalidator
	metrics     cascadeObserver
	validate    *validator.Validate
	logger      *zap.Logger
}

// NewSuccessionService constructs the service.
func NewSuccessionService(
	occupations successionOccupationStore,
	positions successionPositionStore,
	people successionPersonStore,
	history historyEmitter,
	cache cacheInvalidator,
	metrics cascadeObserver,
	validate *validator.Validate,
	logger *zap.Logger,
) *SuccessionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SuccessionService{
		occupations: occupations,
		positions:   positions,
		people:      people,
		history:     history,
		cache:       cache,
		metrics:     metrics,
		validate:    validate,
		logger:      logger,
	}
}

// NextSuccessor resolves who steps in once the given occupation ends: the
// holder of the most recent still-open or upcoming term on the substitute
// position, excluding the outgoing person. The suggested window is the
// successor occupation's own start and end. Vacant chains yield not found.
func (s *SuccessionService) NextSuccessor(ctx context.Context, occupationID int64) (*dto.SuccessorSuggestion, error) {
	ending, err := s.occupations.GetByID(ctx, occupationID)
	if err != nil {
		return nil, mapStoreError(err, "failed to load occupation")
	}
	substitute, err := s.positions.FindSubstitute(ctx, ending.PositionID)
	if err != nil {
		return nil, mapStoreError(err, "failed to resolve substitute position")
	}
	if substitute == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "position has no substitute configured")
	}
	candidate, err := s.occupations.FindSuccessorCandidate(ctx, substitute.ID, ending.PersonID, ending.EndDate)
	if err != nil {
		return nil, mapStoreError(err, "failed to inspect substitute occupancy")
	}
	if candidate == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "substitute position is vacant")
	}
	person, err := s.people.GetByID(ctx, candidate.PersonID)
	if err != nil {
		return nil, mapStoreError(err, "failed to load successor")
	}
	suggestion := &dto.SuccessorSuggestion{
		PositionID:     substitute.ID,
		PositionName:   substitute.Name,
		PersonID:       person.ID,
		PersonName:     person.Name,
		OccupationID:   candidate.ID,
		SuggestedStart: formatDate(candidate.StartDate),
	}
	if candidate.EndDate != nil {
		end := formatDate(*candidate.EndDate)
		suggestion.SuggestedEnd = &end
	}
	return suggestion, nil
}

// Finalize closes an open occupation and, unless the termination is
// definitive, promotes the substitution chain in one transaction. Either the
// whole cascade lands or none of it does.
func (s *SuccessionService) Finalize(ctx context.Context, occupationID int64, req dto.FinalizeOccupationRequest, actorID string) (*dto.FinalizeOccupationResponse, error) {
	if err := validateStruct(s.validate, req); err != nil {
		return nil, err
	}
	endDate, err := parseDate("end_date", req.EndDate)
	if err != nil {
		return nil, err
	}
	successorStart, err := parseOptionalDate("successor_start", req.SuccessorStart)
	if err != nil {
		return nil, err
	}
	successorEnd, err := parseOptionalDate("successor_end", req.SuccessorEnd)
	if err != nil {
		return nil, err
	}
	if !req.Definitive && successorStart == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "successor_start is required unless the termination is definitive")
	}
	if successorStart != nil && successorEnd != nil && successorEnd.Before(*successorStart) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "successor_end must not precede successor_start")
	}

	finalized, promotions, err := s.occupations.FinalizeCascade(ctx, repository.FinalizeParams{
		OccupationID:   occupationID,
		EndDate:        endDate,
		DirectiveID:    req.DirectiveID,
		Definitive:     req.Definitive,
		SuccessorStart: successorStart,
		SuccessorEnd:   successorEnd,
		CascadeNote:    cascadeNote,
	})
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrAlreadyFinalized):
			return nil, appErrors.Clone(appErrors.ErrInvalidState, "occupation is already finalized")
		case errors.Is(err, repository.ErrEndBeforeStart):
			return nil, appErrors.Clone(appErrors.ErrValidation, "end_date must not precede the occupation start")
		default:
			return nil, mapStoreError(err, "failed to finalize occupation")
		}
	}

	s.emit(models.HistoryFinalize, finalized.ID,
		fmt.Sprintf("occupation %d finalized on %s", finalized.ID, formatDate(endDate)), actorID)
	steps := make([]dto.SuccessionStep, 0, len(promotions))
	for _, promotion := range promotions {
		steps = append(steps, dto.SuccessionStep{
			FromPositionID: promotion.FromPositionID,
			ToPositionID:   promotion.ToPositionID,
			PersonID:       promotion.PersonID,
			PersonName:     promotion.PersonName,
			OccupationID:   promotion.OccupationID,
		})
		s.emit(models.HistoryCreate, promotion.OccupationID,
			fmt.Sprintf("%s assumed position %d by automatic substitution", promotion.PersonName, promotion.ToPositionID), actorID)
	}
	if s.metrics != nil {
		s.metrics.ObserveCascadeDepth(len(steps))
	}
	s.invalidateCaches(ctx)
	return &dto.FinalizeOccupationResponse{Finalized: finalized, Succession: steps}, nil
}

func (s *SuccessionService) invalidateCaches(ctx context.Context) {
	if s.cache == nil {
		return
	}
	for _, pattern := range []string{"eligibility:*", "search:*"} {
		if err := s.cache.DeleteByPattern(ctx, pattern); err != nil {
			s.logger.Warn("cache invalidation failed", zap.String("pattern", pattern), zap.Error(err))
		}
	}
}

func (s *SuccessionService) emit(operation models.HistoryOperation, id int64, summary, actorID string) {
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
