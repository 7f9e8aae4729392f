package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/controle-mandatos/mandatos-api/internal/models"
)

// DirectiveRepository persists directives.
type DirectiveRepository struct {
	db *sqlx.DB
}

// NewDirectiveRepository constructs the repository.
func NewDirectiveRepository(db *sqlx.DB) *DirectiveRepository {
	return &DirectiveRepository{db: db}
}

// Create inserts a new directive row.
func (r *DirectiveRepository) Create(ctx context.Context, directive *models.Directive) error {
	now := time.Now().UTC()
	directive.CreatedAt = now
	directive.UpdatedAt = now
	const query = `INSERT INTO directives (number, date, notes, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5) RETURNING id`
	if err := r.db.GetContext(ctx, &directive.ID, query,
		directive.Number, directive.Date, directive.Notes, directive.CreatedAt, directive.UpdatedAt); err != nil {
		return fmt.Errorf("create directive: %w", err)
	}
	return nil
}

// GetByID fetches a directive by identifier.
func (r *DirectiveRepository) GetByID(ctx context.Context, id int64) (*models.Directive, error) {
	const query = `SELECT id, number, date, notes, created_at, updated_at FROM directives WHERE id = $1`
	var directive models.Directive
	if err := r.db.GetContext(ctx, &directive, query, id); err != nil {
		return nil, err
	}
	return &directive, nil
}

// List returns directives matching the filter alongside the total row count.
func (r *DirectiveRepository) List(ctx context.Context, filter models.DirectiveFilter) ([]models.Directive, int64, error) {
	conditions := make([]string, 0, 1)
	args := make([]interface{}, 0, 1)
	if filter.Number != nil {
		args = append(args, *filter.Number)
		conditions = append(conditions, fmt.Sprintf("number = $%d", len(args)))
	}
	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	var total int64
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM directives"+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count directives: %w", err)
	}

	query := "SELECT id, number, date, notes, created_at, updated_at FROM directives" + where +
		orderClause(filter.SortBy, filter.SortOrder, map[string]string{"number": "number", "date": "date"}, "date DESC, number DESC") +
		limitClause(filter.Page, filter.PageSize)
	var directives []models.Directive
	if err := r.db.SelectContext(ctx, &directives, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list directives: %w", err)
	}
	return directives, total, nil
}

// Update persists mutable directive columns.
func (r *DirectiveRepository) Update(ctx context.Context, directive *models.Directive) error {
	directive.UpdatedAt = time.Now().UTC()
	const query = `UPDATE directives SET number = :number, date = :date, notes = :notes, updated_at = :updated_at
	WHERE id = :id`
	result, err := r.db.NamedExecContext(ctx, query, directive)
	if err != nil {
		return fmt.Errorf("update directive: %w", err)
	}
	return requireRowsAffected(result)
}

// Delete removes the row permanently.
func (r *DirectiveRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM directives WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete directive: %w", err)
	}
	return requireRowsAffected(result)
}

// CountOccupations reports how many occupations cite the directive.
func (r *DirectiveRepository) CountOccupations(ctx context.Context, id int64) (int64, error) {
	var count int64
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM occupations WHERE directive_id = $1`, id); err != nil {
		return 0, fmt.Errorf("count directive occupations: %w", err)
	}
	return count, nil
}
