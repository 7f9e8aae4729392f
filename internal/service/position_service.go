package service

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/controle-mandatos/mandatos-api/internal/dto"
	"github.com/controle-mandatos/mandatos-api/internal/models"
	appErrors "github.com/controle-mandatos/mandatos-api/pkg/errors"
)

type positionStore interface {
	Create(ctx context.Context, position *models.Position) error
	GetByID(ctx context.Context, id int64) (*models.Position, error)
	List(ctx context.Context, filter models.PositionFilter) ([]models.Position, int64, error)
	Update(ctx context.Context, position *models.Position) error
	SetActive(ctx context.Context, id int64, active bool) error
	Delete(ctx context.Context, id int64) error
	CountOccupations(ctx context.Context, id int64) (int64, error)
	CountSubstitutes(ctx context.Context, id int64) (int64, error)
}

type positionOrganizationStore interface {
	GetByID(ctx context.Context, id int64) (*models.Organization, error)
}

// PositionService manages positions and their substitution links.
type PositionService struct {
	repo     positionStore
	orgs     positionOrganizationStore
	history  historyEmitter
	validate *validator.Validate
	logger   *zap.Logger
}

// NewPositionService constructs the service.
func NewPositionService(repo positionStore, orgs positionOrganizationStore, history historyEmitter, validate *validator.Validate, logger *zap.Logger) *PositionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PositionService{repo: repo, orgs: orgs, history: history, validate: validate, logger: logger}
}

// Create registers a position inside an active organization.
func (s *PositionService) Create(ctx context.Context, req dto.CreatePositionRequest, actorID string) (*models.Position, error) {
	if err := validateStruct(s.validate, req); err != nil {
		return nil, err
	}
	org, err := s.orgs.GetByID(ctx, req.OrganizationID)
	if err != nil {
		return nil, mapStoreError(err, "failed to load organization")
	}
	if !org.Active {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "organization is inactive")
	}
	position := &models.Position{
		Name:           req.Name,
		OrganizationID: req.OrganizationID,
		Exclusive:      req.Exclusive,
	}
	if req.SubstituteOf != nil {
		if err := s.checkSubstituteLink(ctx, 0, *req.SubstituteOf, req.OrganizationID); err != nil {
			return nil, err
		}
		position.SubstituteOf = req.SubstituteOf
	}
	if err := s.repo.Create(ctx, position); err != nil {
		return nil, mapStoreError(err, "failed to create position")
	}
	s.emit(models.HistoryCreate, position.ID, fmt.Sprintf("position %q registered in %q", position.Name, org.Name), actorID)
	return position, nil
}

// Get fetches one position.
func (s *PositionService) Get(ctx context.Context, id int64) (*models.Position, error) {
	position, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, mapStoreError(err, "failed to load position")
	}
	return position, nil
}

// List returns the paginated registry.
func (s *PositionService) List(ctx context.Context, filter models.PositionFilter) ([]models.Position, *models.Pagination, error) {
	positions, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, mapStoreError(err, "failed to list positions")
	}
	return positions, models.NewPagination(filter.Page, filter.PageSize, total), nil
}

// Update changes position fields, revalidating the substitution link.
func (s *PositionService) Update(ctx context.Context, id int64, req dto.UpdatePositionRequest, actorID string) (*models.Position, error) {
	if err := validateStruct(s.validate, req); err != nil {
		return nil, err
	}
	position, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, mapStoreError(err, "failed to load position")
	}
	if req.Name != nil {
		position.Name = *req.Name
	}
	if req.Exclusive != nil {
		position.Exclusive = *req.Exclusive
	}
	switch {
	case req.ClearSubstitute:
		position.SubstituteOf = nil
	case req.SubstituteOf != nil:
		if err := s.checkSubstituteLink(ctx, id, *req.SubstituteOf, position.OrganizationID); err != nil {
			return nil, err
		}
		position.SubstituteOf = req.SubstituteOf
	}
	if err := s.repo.Update(ctx, position); err != nil {
		return nil, mapStoreError(err, "failed to update position")
	}
	s.emit(models.HistoryUpdate, position.ID, fmt.Sprintf("position %q updated", position.Name), actorID)
	return position, nil
}

// Deactivate soft-deletes a position.
func (s *PositionService) Deactivate(ctx context.Context, id int64, actorID string) (*models.Position, error) {
	return s.setActive(ctx, id, false, actorID)
}

// Reactivate restores a soft-deleted position.
func (s *PositionService) Reactivate(ctx context.Context, id int64, actorID string) (*models.Position, error) {
	return s.setActive(ctx, id, true, actorID)
}

func (s *PositionService) setActive(ctx context.Context, id int64, active bool, actorID string) (*models.Position, error) {
	position, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, mapStoreError(err, "failed to load position")
	}
	if position.Active == active {
		if active {
			return nil, appErrors.Clone(appErrors.ErrInvalidState, "position is already active")
		}
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "position is already inactive")
	}
	if err := s.repo.SetActive(ctx, id, active); err != nil {
		return nil, mapStoreError(err, "failed to change position activity")
	}
	position.Active = active
	operation := models.HistoryDeactivate
	verb := "deactivated"
	if active {
		operation = models.HistoryReactivate
		verb = "reactivated"
	}
	s.emit(operation, position.ID, fmt.Sprintf("position %q %s", position.Name, verb), actorID)
	return position, nil
}

// Delete removes a position permanently. Positions with occupations or with
// substitutes pointing at them cannot be removed.
func (s *PositionService) Delete(ctx context.Context, id int64, actorID string) error {
	position, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return mapStoreError(err, "failed to load position")
	}
	occupations, err := s.repo.CountOccupations(ctx, id)
	if err != nil {
		return mapStoreError(err, "failed to check position occupations")
	}
	if occupations > 0 {
		return appErrors.Clone(appErrors.ErrReferential,
			fmt.Sprintf("position has %d occupation(s); remove them first", occupations))
	}
	substitutes, err := s.repo.CountSubstitutes(ctx, id)
	if err != nil {
		return mapStoreError(err, "failed to check position substitutes")
	}
	if substitutes > 0 {
		return appErrors.Clone(appErrors.ErrReferential,
			fmt.Sprintf("%d position(s) substitute this one; detach them first", substitutes))
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return mapStoreError(err, "failed to delete position")
	}
	s.emit(models.HistoryDelete, id, fmt.Sprintf("position %q removed", position.Name), actorID)
	return nil
}

// checkSubstituteLink verifies the principal exists, stays in the same
// organization and that following substitute_of upward never loops back to
// the position being linked.
func (s *PositionService) checkSubstituteLink(ctx context.Context, positionID, principalID, organizationID int64) error {
	if positionID != 0 && principalID == positionID {
		return appErrors.Clone(appErrors.ErrValidation, "position cannot substitute itself")
	}
	seen := map[int64]bool{}
	current := principalID
	for {
		if seen[current] {
			return appErrors.Clone(appErrors.ErrValidation, "substitution chain contains a cycle")
		}
		seen[current] = true
		principal, err := s.repo.GetByID(ctx, current)
		if err != nil {
			return mapStoreError(err, "failed to load principal position")
		}
		if principal.OrganizationID != organizationID {
			return appErrors.Clone(appErrors.ErrValidation, "substitute and principal must share the organization")
		}
		if principal.SubstituteOf == nil {
			return nil
		}
		if *principal.SubstituteOf == positionID && positionID != 0 {
			return appErrors.Clone(appErrors.ErrValidation, "substitution chain contains a cycle")
		}
		current = *principal.SubstituteOf
	}
}

func (s *PositionService) emit(operation models.HistoryOperation, id int64, summary, actorID string) {
	if s.history == nil {
		return
	}
	s.history.Record(&models.HistoryEntry{
		Operation: operation,
		Entity:    models.TargetPosition,
		EntityID:  &id,
		Summary:   summary,
		ActorID:   optionalString(actorID),
	})
}
