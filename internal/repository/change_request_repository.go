package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/controle-mandatos/mandatos-api/internal/models"
)

// ChangeRequestRepository persists the review workflow.
type ChangeRequestRepository struct {
	db *sqlx.DB
}

// NewChangeRequestRepository constructs the repository.
func NewChangeRequestRepository(db *sqlx.DB) *ChangeRequestRepository {
	return &ChangeRequestRepository{db: db}
}

const changeRequestColumns = `id, operation, entity, target_id, payload, status, requested_by, decided_by, decided_at, note, created_at, updated_at`

// Create inserts a new pending change request.
func (r *ChangeRequestRepository) Create(ctx context.Context, request *models.ChangeRequest) error {
	now := time.Now().UTC()
	request.Status = models.ChangePending
	request.CreatedAt = now
	request.UpdatedAt = now
	const query = `INSERT INTO change_requests (operation, entity, target_id, payload, status, requested_by, note, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) RETURNING id`
	if err := r.db.GetContext(ctx, &request.ID, query,
		request.Operation, request.Entity, request.TargetID, request.Payload,
		request.Status, request.RequestedBy, request.Note, request.CreatedAt, request.UpdatedAt); err != nil {
		return fmt.Errorf("create change request: %w", err)
	}
	return nil
}

// GetByID fetches a change request by identifier.
func (r *ChangeRequestRepository) GetByID(ctx context.Context, id int64) (*models.ChangeRequest, error) {
	var request models.ChangeRequest
	if err := r.db.GetContext(ctx, &request,
		`SELECT `+changeRequestColumns+` FROM change_requests WHERE id = $1`, id); err != nil {
		return nil, err
	}
	return &request, nil
}

// List returns change requests matching the filter alongside the total count.
func (r *ChangeRequestRepository) List(ctx context.Context, filter models.ChangeRequestFilter) ([]models.ChangeRequest, int64, error) {
	conditions := make([]string, 0, 3)
	args := make([]interface{}, 0, 3)
	if filter.Status != nil {
		args = append(args, *filter.Status)
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.Entity != nil {
		args = append(args, *filter.Entity)
		conditions = append(conditions, fmt.Sprintf("entity = $%d", len(args)))
	}
	if filter.Operation != nil {
		args = append(args, *filter.Operation)
		conditions = append(conditions, fmt.Sprintf("operation = $%d", len(args)))
	}
	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	var total int64
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM change_requests"+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count change requests: %w", err)
	}

	query := "SELECT " + changeRequestColumns + " FROM change_requests" + where +
		orderClause(filter.SortBy, filter.SortOrder, map[string]string{"created_at": "created_at", "decided_at": "decided_at"}, "created_at DESC") +
		limitClause(filter.Page, filter.PageSize)
	var requests []models.ChangeRequest
	if err := r.db.SelectContext(ctx, &requests, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list change requests: %w", err)
	}
	return requests, total, nil
}

// DecideParams records the reviewer verdict on a pending request.
type DecideParams struct {
	ID        int64
	Status    models.ChangeStatus
	DecidedBy string
	DecidedAt time.Time
	Note      *string
}

// Decide marks a pending request approved or refused. The status guard makes
// decisions terminal: a second reviewer racing on the same request gets
// sql.ErrNoRows back.
func (r *ChangeRequestRepository) Decide(ctx context.Context, params DecideParams) error {
	setParts := []string{
		"status = :status",
		"decided_by = :decided_by",
		"decided_at = :decided_at",
		"updated_at = :decided_at",
	}
	if params.Note != nil {
		setParts = append(setParts, "note = :note")
	}
	query := fmt.Sprintf("UPDATE change_requests SET %s WHERE id = :id AND status = '%s'",
		strings.Join(setParts, ", "), models.ChangePending)
	result, err := r.db.NamedExecContext(ctx, query, map[string]interface{}{
		"id":         params.ID,
		"status":     params.Status,
		"decided_by": params.DecidedBy,
		"decided_at": params.DecidedAt,
		"note":       params.Note,
	})
	if err != nil {
		return fmt.Errorf("decide change request: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check change request rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Reopen puts a decided request back to pending and clears the reviewer
// verdict. Used when an approved payload fails to apply.
func (r *ChangeRequestRepository) Reopen(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE change_requests SET status = $1, decided_by = NULL, decided_at = NULL, updated_at = $2 WHERE id = $3`,
		models.ChangePending, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("reopen change request: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check reopened rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// CountPending reports how many requests await review.
func (r *ChangeRequestRepository) CountPending(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.GetContext(ctx, &count,
		`SELECT COUNT(*) FROM change_requests WHERE status = $1`, models.ChangePending); err != nil {
		return 0, fmt.Errorf("count pending change requests: %w", err)
	}
	return count, nil
}
