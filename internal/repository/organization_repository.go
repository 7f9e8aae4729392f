package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/controle-mandatos/mandatos-api/internal/models"
)

// OrganizationRepository persists organizations.
type OrganizationRepository struct {
	db *sqlx.DB
}

// NewOrganizationRepository constructs the repository.
func NewOrganizationRepository(db *sqlx.DB) *OrganizationRepository {
	return &OrganizationRepository{db: db}
}

// Create inserts a new organization row.
func (r *OrganizationRepository) Create(ctx context.Context, org *models.Organization) error {
	now := time.Now().UTC()
	org.Active = true
	org.CreatedAt = now
	org.UpdatedAt = now
	const query = `INSERT INTO organizations (name, active, created_at, updated_at)
	VALUES ($1, $2, $3, $4) RETURNING id`
	if err := r.db.GetContext(ctx, &org.ID, query, org.Name, org.Active, org.CreatedAt, org.UpdatedAt); err != nil {
		return fmt.Errorf("create organization: %w", err)
	}
	return nil
}

// GetByID fetches an organization by identifier.
func (r *OrganizationRepository) GetByID(ctx context.Context, id int64) (*models.Organization, error) {
	const query = `SELECT id, name, active, created_at, updated_at FROM organizations WHERE id = $1`
	var org models.Organization
	if err := r.db.GetContext(ctx, &org, query, id); err != nil {
		return nil, err
	}
	return &org, nil
}

// List returns organizations matching the filter alongside the total row count.
func (r *OrganizationRepository) List(ctx context.Context, filter models.OrganizationFilter) ([]models.Organization, int64, error) {
	conditions := make([]string, 0, 2)
	args := make([]interface{}, 0, 2)
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
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM organizations"+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count organizations: %w", err)
	}

	query := "SELECT id, name, active, created_at, updated_at FROM organizations" + where +
		orderClause(filter.SortBy, filter.SortOrder, map[string]string{"name": "name", "created_at": "created_at"}, "name ASC") +
		limitClause(filter.Page, filter.PageSize)
	var orgs []models.Organization
	if err := r.db.SelectContext(ctx, &orgs, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list organizations: %w", err)
	}
	return orgs, total, nil
}

// Update persists mutable organization columns.
func (r *OrganizationRepository) Update(ctx context.Context, org *models.Organization) error {
	org.UpdatedAt = time.Now().UTC()
	const query = `UPDATE organizations SET name = :name, updated_at = :updated_at WHERE id = :id`
	result, err := r.db.NamedExecContext(ctx, query, org)
	if err != nil {
		return fmt.Errorf("update organization: %w", err)
	}
	return requireRowsAffected(result)
}

// SetActive flips the soft-delete flag.
func (r *OrganizationRepository) SetActive(ctx context.Context, id int64, active bool) error {
	const query = `UPDATE organizations SET active = $1, updated_at = $2 WHERE id = $3`
	result, err := r.db.ExecContext(ctx, query, active, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("set organization active: %w", err)
	}
	return requireRowsAffected(result)
}

// Delete removes the row permanently.
func (r *OrganizationRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM organizations WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete organization: %w", err)
	}
	return requireRowsAffected(result)
}

// CountPositions reports how many positions belong to the organization.
func (r *OrganizationRepository) CountPositions(ctx context.Context, id int64) (int64, error) {
	var count int64
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM positions WHERE organization_id = $1`, id); err != nil {
		return 0, fmt.Errorf("count organization positions: %w", err)
	}
	return count, nil
}
