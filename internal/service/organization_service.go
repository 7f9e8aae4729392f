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

type organizationStore interface {
	Create(ctx context.Context, org *models.Organization) error
	GetByID(ctx context.Context, id int64) (*models.Organization, error)
	List(ctx context.Context, filter models.OrganizationFilter) ([]models.Organization, int64, error)
	Update(ctx context.Context, org *models.Organization) error
	SetActive(ctx context.Context, id int64, active bool) error
	Delete(ctx context.Context, id int64) error
	CountPositions(ctx context.Context, id int64) (int64, error)
}

// OrganizationService manages the organization registry.
type OrganizationService struct {
	repo     organizationStore
	history  historyEmitter
	validate *validator.Validate
	logger   *zap.Logger
}

// NewOrganizationService constructs the service.
func NewOrganizationService(repo organizationStore, history historyEmitter, validate *validator.Validate, logger *zap.Logger) *OrganizationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OrganizationService{repo: repo, history: history, validate: validate, logger: logger}
}

// Create registers an organization.
func (s *OrganizationService) Create(ctx context.Context, req dto.CreateOrganizationRequest, actorID string) (*models.Organization, error) {
	if err := validateStruct(s.validate, req); err != nil {
		return nil, err
	}
	org := &models.Organization{Name: req.Name}
	if err := s.repo.Create(ctx, org); err != nil {
		return nil, mapStoreError(err, "failed to create organization")
	}
	s.emit(models.HistoryCreate, org.ID, fmt.Sprintf("organization %q registered", org.Name), actorID)
	return org, nil
}

// Get fetches one organization.
func (s *OrganizationService) Get(ctx context.Context, id int64) (*models.Organization, error) {
	org, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, mapStoreError(err, "failed to load organization")
	}
	return org, nil
}

// List returns the paginated registry.
func (s *OrganizationService) List(ctx context.Context, filter models.OrganizationFilter) ([]models.Organization, *models.Pagination, error) {
	orgs, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, mapStoreError(err, "failed to list organizations")
	}
	return orgs, models.NewPagination(filter.Page, filter.PageSize, total), nil
}

// Update renames an organization.
func (s *OrganizationService) Update(ctx context.Context, id int64, req dto.UpdateOrganizationRequest, actorID string) (*models.Organization, error) {
	if err := validateStruct(s.validate, req); err != nil {
		return nil, err
	}
	org, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, mapStoreError(err, "failed to load organization")
	}
	if req.Name != nil {
		org.Name = *req.Name
	}
	if err := s.repo.Update(ctx, org); err != nil {
		return nil, mapStoreError(err, "failed to update organization")
	}
	s.emit(models.HistoryUpdate, org.ID, fmt.Sprintf("organization %q updated", org.Name), actorID)
	return org, nil
}

// Deactivate soft-deletes an organization; its positions stay untouched.
func (s *OrganizationService) Deactivate(ctx context.Context, id int64, actorID string) (*models.Organization, error) {
	return s.setActive(ctx, id, false, actorID)
}

// Reactivate restores a soft-deleted organization.
func (s *OrganizationService) Reactivate(ctx context.Context, id int64, actorID string) (*models.Organization, error) {
	return s.setActive(ctx, id, true, actorID)
}

func (s *OrganizationService) setActive(ctx context.Context, id int64, active bool, actorID string) (*models.Organization, error) {
	org, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, mapStoreError(err, "failed to load organization")
	}
	if org.Active == active {
		if active {
			return nil, appErrors.Clone(appErrors.ErrInvalidState, "organization is already active")
		}
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "organization is already inactive")
	}
	if err := s.repo.SetActive(ctx, id, active); err != nil {
		return nil, mapStoreError(err, "failed to change organization activity")
	}
	org.Active = active
	operation := models.HistoryDeactivate
	verb := "deactivated"
	if active {
		operation = models.HistoryReactivate
		verb = "reactivated"
	}
	s.emit(operation, org.ID, fmt.Sprintf("organization %q %s", org.Name, verb), actorID)
	return org, nil
}

// Delete removes an organization permanently. Organizations still owning
// positions cannot be removed.
func (s *OrganizationService) Delete(ctx context.Context, id int64, actorID string) error {
	org, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return mapStoreError(err, "failed to load organization")
	}
	references, err := s.repo.CountPositions(ctx, id)
	if err != nil {
		return mapStoreError(err, "failed to check organization references")
	}
	if references > 0 {
		return appErrors.Clone(appErrors.ErrReferential,
			fmt.Sprintf("organization has %d position(s); remove them first", references))
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return mapStoreError(err, "failed to delete organization")
	}
	s.emit(models.HistoryDelete, id, fmt.Sprintf("organization %q removed", org.Name), actorID)
	return nil
}

func (s *OrganizationService) emit(operation models.HistoryOperation, id int64, summary, actorID string) {
	if s.history == nil {
		return
	}
	s.history.Record(&models.HistoryEntry{
		Operation: operation,
		Entity:    models.TargetOrganization,
		EntityID:  &id,
		Summary:   summary,
		ActorID:   optionalString(actorID),
	})
}
