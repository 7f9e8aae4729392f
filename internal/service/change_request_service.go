package service

import (
	"context"
	"database/sql"
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

type changeRequestStore interface {
	Create(ctx context.Context, request *models.ChangeRequest) error
	GetByID(ctx context.Context, id int64) (*models.ChangeRequest, error)
	List(ctx context.Context, filter models.ChangeRequestFilter) ([]models.ChangeRequest, int64, error)
	Decide(ctx context.Context, params repository.DecideParams) error
	Reopen(ctx context.Context, id int64) error
	CountPending(ctx context.Context) (int64, error)
}

// ChangeApplier executes an approved request against its entity store.
type ChangeApplier interface {
	Apply(ctx context.Context, request *models.ChangeRequest, actorID string) error
}

// ChangeApplierFunc allows plain functions as appliers.
type ChangeApplierFunc func(ctx context.Context, request *models.ChangeRequest, actorID string) error

// Apply implements ChangeApplier.
func (f ChangeApplierFunc) Apply(ctx context.Context, request *models.ChangeRequest, actorID string) error {
	return f(ctx, request, actorID)
}

// ChangeRequestService runs the propose-review workflow. Approval applies
// the payload through the registered applier for the target entity; both
// decisions are terminal.
type ChangeRequestService struct {
	repo     changeRequestStore
	appliers map[models.TargetEntity]ChangeApplier
	validate *validator.Validate
	logger   *zap.Logger
}

// NewChangeRequestService constructs the service.
func NewChangeRequestService(repo changeRequestStore, appliers map[models.TargetEntity]ChangeApplier, validate *validator.Validate, logger *zap.Logger) *ChangeRequestService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if appliers == nil {
		appliers = make(map[models.TargetEntity]ChangeApplier)
	}
	return &ChangeRequestService{repo: repo, appliers: appliers, validate: validate, logger: logger}
}

// Submit stores a new pending request.
func (s *ChangeRequestService) Submit(ctx context.Context, req dto.CreateChangeRequestRequest, userID string) (*models.ChangeRequest, error) {
	if err := validateStruct(s.validate, req); err != nil {
		return nil, err
	}
	if !req.Operation.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "operation must be CREATE, UPDATE or DELETE")
	}
	if !req.Entity.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown target entity")
	}
	if req.Operation != models.OperationCreate && req.TargetID == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "target_id is required for updates and deletes")
	}
	request := &models.ChangeRequest{
		Operation:   req.Operation,
		Entity:      req.Entity,
		TargetID:    req.TargetID,
		Payload:     append([]byte(nil), req.Payload...),
		RequestedBy: userID,
		Note:        req.Note,
	}
	if err := s.repo.Create(ctx, request); err != nil {
		return nil, mapStoreError(err, "failed to create change request")
	}
	return request, nil
}

// Get fetches one request.
func (s *ChangeRequestService) Get(ctx context.Context, id int64) (*models.ChangeRequest, error) {
	request, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, mapStoreError(err, "failed to load change request")
	}
	return request, nil
}

// List returns paginated requests.
func (s *ChangeRequestService) List(ctx context.Context, filter models.ChangeRequestFilter) ([]models.ChangeRequest, *models.Pagination, error) {
	requests, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, mapStoreError(err, "failed to list change requests")
	}
	return requests, models.NewPagination(filter.Page, filter.PageSize, total), nil
}

// Approve closes the request and applies its payload. The reviewer first has
// to win the pending-to-approved transition, so racing approvals apply the
// payload at most once. When the applier fails afterwards the request is
// reopened for a retry or refusal.
func (s *ChangeRequestService) Approve(ctx context.Context, id int64, req dto.DecideChangeRequestRequest, reviewerID string) (*models.ChangeRequest, error) {
	request, err := s.loadPending(ctx, id)
	if err != nil {
		return nil, err
	}
	applier := s.appliers[request.Entity]
	if applier == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation,
			fmt.Sprintf("no applier registered for entity %s", request.Entity))
	}
	decided, err := s.decide(ctx, request, models.ChangeApproved, req.Note, reviewerID)
	if err != nil {
		return nil, err
	}
	if err := applier.Apply(ctx, request, reviewerID); err != nil {
		if reopenErr := s.repo.Reopen(ctx, request.ID); reopenErr != nil {
			s.logger.Error("failed to reopen change request after apply failure",
				zap.Int64("change_request_id", request.ID), zap.Error(reopenErr))
		}
		return nil, err
	}
	return decided, nil
}

// Refuse closes the request without touching the target entity.
func (s *ChangeRequestService) Refuse(ctx context.Context, id int64, req dto.DecideChangeRequestRequest, reviewerID string) (*models.ChangeRequest, error) {
	request, err := s.loadPending(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.decide(ctx, request, models.ChangeRefused, req.Note, reviewerID)
}

// CountPending reports the review backlog.
func (s *ChangeRequestService) CountPending(ctx context.Context) (int64, error) {
	count, err := s.repo.CountPending(ctx)
	if err != nil {
		return 0, mapStoreError(err, "failed to count pending change requests")
	}
	return count, nil
}

func (s *ChangeRequestService) loadPending(ctx context.Context, id int64) (*models.ChangeRequest, error) {
	request, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, mapStoreError(err, "failed to load change request")
	}
	if request.Status != models.ChangePending {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "change request is already decided")
	}
	return request, nil
}

func (s *ChangeRequestService) decide(ctx context.Context, request *models.ChangeRequest, status models.ChangeStatus, note *string, reviewerID string) (*models.ChangeRequest, error) {
	now := time.Now().UTC()
	err := s.repo.Decide(ctx, repository.DecideParams{
		ID:        request.ID,
		Status:    status,
		DecidedBy: reviewerID,
		DecidedAt: now,
		Note:      note,
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrInvalidState, "change request was decided concurrently")
		}
		return nil, mapStoreError(err, "failed to decide change request")
	}
	request.Status = status
	request.DecidedBy = &reviewerID
	request.DecidedAt = &now
	if note != nil {
		request.Note = note
	}
	return request, nil
}
