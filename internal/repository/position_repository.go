package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/controle-mandatos/mandatos-api/internal/models"
)

// PositionRepository persists positions.
type PositionRepository struct {
	db *sqlx.DB
}

// NewPositionRepository constructs the repository.
func NewPositionRepository(db *sqlx.DB) *PositionRepository {
	return &PositionRepository{db: db}
}

// Create inserts a new position row.
func (r *PositionRepository) Create(ctx context.Context, position *models.Position) error {
	now := time.Now().UTC()
	position.Active = true
	position.CreatedAt = now
	position.UpdatedAt = now
	const query = `INSERT INTO positions (name, organization_id, active, exclusive, substitute_of, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`
	if err := r.db.GetContext(ctx, &position.ID, query,
		position.Name, position.OrganizationID, position.Active, position.Exclusive,
		position.SubstituteOf, position.CreatedAt, position.UpdatedAt); err != nil {
		return fmt.Errorf("create position: %w", err)
	}
	return nil
}

// GetByID fetches a position by identifier.
func (r *PositionRepository) GetByID(ctx context.Context, id int64) (*models.Position, error) {
	const query = `SELECT id, name, organization_id, active, exclusive, substitute_of, created_at, updated_at
	FROM positions WHERE id = $1`
	var position models.Position
	if err := r.db.GetContext(ctx, &position, query, id); err != nil {
		return nil, err
	}
	return &position, nil
}

// List returns positions matching the filter alongside the total row count.
func (r *PositionRepository) List(ctx context.Context, filter models.PositionFilter) ([]models.Position, int64, error) {
	conditions := make([]string, 0, 3)
	args := make([]interface{}, 0, 3)
	if filter.OrganizationID != nil {
		args = append(args, *filter.OrganizationID)
		conditions = append(conditions, fmt.Sprintf("organization_id = $%d", len(args)))
	}
	if filter.Active != nil {
		args = append(args, *filter.Active)
		conditions = append(conditions, fmt.Sprintf("active = $%d", len(args)))
	}
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		conditions = append(conditions, fmt.Sprintf("name ILIKE $%d", len(args)))
	}
	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	var total int64
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM positions"+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count positions: %w", err)
	}

	query := `SELECT id, name, organization_id, active, exclusive, substitute_of, created_at, updated_at FROM positions` + where +
		orderClause(filter.SortBy, filter.SortOrder, map[string]string{"name": "name", "created_at": "created_at"}, "name ASC") +
		limitClause(filter.Page, filter.PageSize)
	var positions []models.Position
	if err := r.db.SelectContext(ctx, &positions, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list positions: %w", err)
	}
	return positions, total, nil
}

// Update persists mutable position columns.
func (r *PositionRepository) Update(ctx context.Context, position *models.Position) error {
	position.UpdatedAt = time.Now().UTC()
	const query = `UPDATE positions SET name = :name, exclusive = :exclusive, substitute_of = :substitute_of,
	updated_at = :updated_at WHERE id = :id`
	result, err := r.db.NamedExecContext(ctx, query, position)
	if err != nil {
		return fmt.Errorf("update position: %w", err)
	}
	return requireRowsAffected(result)
}

// SetActive flips the soft-delete flag.
func (r *PositionRepository) SetActive(ctx context.Context, id int64, active bool) error {
	const query = `UPDATE positions SET active = $1, updated_at = $2 WHERE id = $3`
	result, err := r.db.ExecContext(ctx, query, active, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("set position active: %w", err)
	}
	return requireRowsAffected(result)
}

// Delete removes the row permanently.
func (r *PositionRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM positions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete position: %w", err)
	}
	return requireRowsAffected(result)
}

// FindSubstitute returns the position registered as substitute for the given
// principal, or nil when none exists.
func (r *PositionRepository) FindSubstitute(ctx context.Context, principalID int64) (*models.Position, error) {
	const query = `SELECT id, name, organization_id, active, exclusive, substitute_of, created_at, updated_at
	FROM positions WHERE substitute_of = $1 ORDER BY id LIMIT 1`
	var position models.Position
	if err := r.db.GetContext(ctx, &position, query, principalID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find substitute position: %w", err)
	}
	return &position, nil
}

// CountOccupations reports how many occupations reference the position.
func (r *PositionRepository) CountOccupations(ctx context.Context, id int64) (int64, error) {
	var count int64
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM occupations WHERE position_id = $1`, id); err != nil {
		return 0, fmt.Errorf("count position occupations: %w", err)
	}
	return count, nil
}

// CountSubstitutes reports how many positions point at this one as principal.
func (r *PositionRepository) CountSubstitutes(ctx context.Context, id int64) (int64, error) {
	var count int64
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM positions WHERE substitute_of = $1`, id); err != nil {
		return 0, fmt.Errorf("count position substitutes: %w", err)
	}
	return count, nil
}
