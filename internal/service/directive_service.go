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

type directiveStore interface {
	Create(ctx context.Context, directive *models.Directive) error
	GetByID(ctx context.Context, id int64) (*models.Directive, error)
	List(ctx context.Context, filter models.DirectiveFilter) ([]models.Directive, int64, error)
	Update(ctx context.Context, directive *models.Directive) error
	Delete(ctx context.Context, id int64) error
	CountOccupations(ctx context.Context, id int64) (int64, error)
}

// DirectiveService manages directives. Directives have no activity flag, so
// only hard deletion applies and it is blocked while occupations cite them.
type DirectiveService struct {
	repo     directiveStore
	history  historyEmitter
	validate *validator.Validate
	logger   *zap.Logger
}

// NewDirectiveService constructs the service.
func NewDirectiveService(repo directiveStore, history historyEmitter, validate *validator.Validate, logger *zap.Logger) *DirectiveService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DirectiveService{repo: repo, history: history, validate: validate, logger: logger}
}

// Create registers a directive.
func (s *DirectiveService) Create(ctx context.Context, req dto.CreateDirectiveRequest, actorID string) (*models.Directive, error) {
	if err := validateStruct(s.validate, req); err != nil {
		return nil, err
	}
	date, err := parseDate("date", req.Date)
	if err != nil {
		return nil, err
	}
	directive := &models.Directive{Number: req.Number, Date: date, Notes: req.Notes}
	if err := s.repo.Create(ctx, directive); err != nil {
		return nil, mapStoreError(err, "failed to create directive")
	}
	s.emit(models.HistoryCreate, directive.ID, fmt.Sprintf("directive %d/%d registered", directive.Number, directive.Date.Year()), actorID)
	return directive, nil
}

// Get fetches one directive.
func (s *DirectiveService) Get(ctx context.Context, id int64) (*models.Directive, error) {
	directive, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, mapStoreError(err, "failed to load directive")
	}
	return directive, nil
}

// List returns the paginated registry.
func (s *DirectiveService) List(ctx context.Context, filter models.DirectiveFilter) ([]models.Directive, *models.Pagination, error) {
	directives, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, mapStoreError(err, "failed to list directives")
	}
	return directives, models.NewPagination(filter.Page, filter.PageSize, total), nil
}

// Update changes directive fields.
func (s *DirectiveService) Update(ctx context.Context, id int64, req dto.UpdateDirectiveRequest, actorID string) (*models.Directive, error) {
	if err := validateStruct(s.validate, req); err != nil {
		return nil, err
	}
	directive, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, mapStoreError(err, "failed to load directive")
	}
	if req.Number != nil {
		directive.Number = *req.Number
	}
	if req.Date != nil {
		date, err := parseDate("date", *req.Date)
		if err != nil {
			return nil, err
		}
		directive.Date = date
	}
	if req.Notes != nil {
		directive.Notes = req.Notes
	}
	if err := s.repo.Update(ctx, directive); err != nil {
		return nil, mapStoreError(err, "failed to update directive")
	}
	s.emit(models.HistoryUpdate, directive.ID, fmt.Sprintf("directive %d/%d updated", directive.Number, directive.Date.Year()), actorID)
	return directive, nil
}

// Delete removes a directive permanently unless occupations cite it.
func (s *DirectiveService) Delete(ctx context.Context, id int64, actorID string) error {
	directive, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return mapStoreError(err, "failed to load directive")
	}
	references, err := s.repo.CountOccupations(ctx, id)
	if err != nil {
		return mapStoreError(err, "failed to check directive references")
	}
	if references > 0 {
		return appErrors.Clone(appErrors.ErrReferential,
			fmt.Sprintf("directive is cited by %d occupation(s)", references))
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return mapStoreError(err, "failed to delete directive")
	}
	s.emit(models.HistoryDelete, id, fmt.Sprintf("directive %d/%d removed", directive.Number, directive.Date.Year()), actorID)
	return nil
}

func (s *DirectiveService) emit(operation models.HistoryOperation, id int64, summary, actorID string) {
	if s.history == nil {
		return
	}
	s.history.Record(&models.HistoryEntry{
		Operation: operation,
		Entity:    models.TargetDirective,
		EntityID:  &id,
		Summary:   summary,
		ActorID:   optionalString(actorID),
	})
}
