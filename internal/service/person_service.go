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

type personStore interface {
	Create(ctx context.Context, person *models.Person) error
	GetByID(ctx context.Context, id int64) (*models.Person, error)
	List(ctx context.Context, filter models.PersonFilter) ([]models.Person, int64, error)
	Update(ctx context.Context, person *models.Person) error
	SetActive(ctx context.Context, id int64, active bool) error
	Delete(ctx context.Context, id int64) error
	CountOccupations(ctx context.Context, id int64) (int64, error)
}

// PersonService manages the people registry.
type PersonService struct {
	repo     personStore
	history  historyEmitter
	validate *validator.Validate
	logger   *zap.Logger
}

// NewPersonService constructs the service.
func NewPersonService(repo personStore, history historyEmitter, validate *validator.Validate, logger *zap.Logger) *PersonService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PersonService{repo: repo, history: history, validate: validate, logger: logger}
}

// Create registers a person.
func (s *PersonService) Create(ctx context.Context, req dto.CreatePersonRequest, actorID string) (*models.Person, error) {
	if err := validateStruct(s.validate, req); err != nil {
		return nil, err
	}
	person := &models.Person{Name: req.Name}
	if err := s.repo.Create(ctx, person); err != nil {
		return nil, mapStoreError(err, "failed to create person")
	}
	s.emit(models.HistoryCreate, person.ID, fmt.Sprintf("person %q registered", person.Name), actorID)
	return person, nil
}

// Get fetches one person.
func (s *PersonService) Get(ctx context.Context, id int64) (*models.Person, error) {
	person, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, mapStoreError(err, "failed to load person")
	}
	return person, nil
}

// List returns the paginated registry.
func (s *PersonService) List(ctx context.Context, filter models.PersonFilter) ([]models.Person, *models.Pagination, error) {
	people, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, mapStoreError(err, "failed to list people")
	}
	return people, models.NewPagination(filter.Page, filter.PageSize, total), nil
}

// Update renames a person.
func (s *PersonService) Update(ctx context.Context, id int64, req dto.UpdatePersonRequest, actorID string) (*models.Person, error) {
	if err := validateStruct(s.validate, req); err != nil {
		return nil, err
	}
	person, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, mapStoreError(err, "failed to load person")
	}
	if req.Name != nil {
		person.Name = *req.Name
	}
	if err := s.repo.Update(ctx, person); err != nil {
		return nil, mapStoreError(err, "failed to update person")
	}
	s.emit(models.HistoryUpdate, person.ID, fmt.Sprintf("person %q updated", person.Name), actorID)
	return person, nil
}

// Deactivate soft-deletes a person; occupations stay untouched.
func (s *PersonService) Deactivate(ctx context.Context, id int64, actorID string) (*models.Person, error) {
	return s.setActive(ctx, id, false, actorID)
}

// Reactivate restores a soft-deleted person.
func (s *PersonService) Reactivate(ctx context.Context, id int64, actorID string) (*models.Person, error) {
	return s.setActive(ctx, id, true, actorID)
}

func (s *PersonService) setActive(ctx context.Context, id int64, active bool, actorID string) (*models.Person, error) {
	person, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, mapStoreError(err, "failed to load person")
	}
	if person.Active == active {
		if active {
			return nil, appErrors.Clone(appErrors.ErrInvalidState, "person is already active")
		}
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "person is already inactive")
	}
	if err := s.repo.SetActive(ctx, id, active); err != nil {
		return nil, mapStoreError(err, "failed to change person activity")
	}
	person.Active = active
	operation := models.HistoryDeactivate
	verb := "deactivated"
	if active {
		operation = models.HistoryReactivate
		verb = "reactivated"
	}
	s.emit(operation, person.ID, fmt.Sprintf("person %q %s", person.Name, verb), actorID)
	return person, nil
}

// Delete removes a person permanently. People referenced by occupations
// cannot be removed.
func (s *PersonService) Delete(ctx context.Context, id int64, actorID string) error {
	person, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return mapStoreError(err, "failed to load person")
	}
	references, err := s.repo.CountOccupations(ctx, id)
	if err != nil {
		return mapStoreError(err, "failed to check person references")
	}
	if references > 0 {
		return appErrors.Clone(appErrors.ErrReferential,
			fmt.Sprintf("person has %d occupation(s); remove them first", references))
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return mapStoreError(err, "failed to delete person")
	}
	s.emit(models.HistoryDelete, id, fmt.Sprintf("person %q removed", person.Name), actorID)
	return nil
}

func (s *PersonService) emit(operation models.HistoryOperation, id int64, summary, actorID string) {
	if s.history == nil {
		return
	}
	s.history.Record(&models.HistoryEntry{
		Operation: operation,
		Entity:    models.TargetPerson,
		EntityID:  &id,
		Summary:   summary,
		ActorID:   optionalString(actorID),
	})
}
