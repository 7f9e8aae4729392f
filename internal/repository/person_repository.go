package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/controle-mandatos/mandatos-api/internal/models"
)

// PersonRepository persists people.
type PersonRepository struct {
	db *sqlx.DB
}

// NewPersonRepository constructs the repository.
func NewPersonRepository(db *sqlx.DB) *PersonRepository {
	return &PersonRepository{db: db}
}

// Create inserts a new person row.
func (r *PersonRepository) Create(ctx context.Context, person *models.Person) error {
	now := time.Now().UTC()
	person.Active = true
	person.CreatedAt = now
	person.UpdatedAt = now
	const query = `INSERT INTO people (name, active, created_at, updated_at)
	VALUES ($1, $2, $3, $4) RETURNING id`
	if err := r.db.GetContext(ctx, &person.ID, query, person.Name, person.Active, person.CreatedAt, person.UpdatedAt); err != nil {
		return fmt.Errorf("create person: %w", err)
	}
	return nil
}

// GetByID fetches a person by identifier.
func (r *PersonRepository) GetByID(ctx context.Context, id int64) (*models.Person, error) {
	const query = `SELECT id, name, active, created_at, updated_at FROM people WHERE id = $1`
	var person models.Person
	if err := r.db.GetContext(ctx, &person, query, id); err != nil {
		return nil, err
	}
	return &person, nil
}

// List returns people matching the filter alongside the total row count.
func (r *PersonRepository) List(ctx context.Context, filter models.PersonFilter) ([]models.Person, int64, error) {
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
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM people"+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count people: %w", err)
	}

	query := "SELECT id, name, active, created_at, updated_at FROM people" + where +
		orderClause(filter.SortBy, filter.SortOrder, map[string]string{"name": "name", "created_at": "created_at"}, "name ASC") +
		limitClause(filter.Page, filter.PageSize)
	var people []models.Person
	if err := r.db.SelectContext(ctx, &people, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list people: %w", err)
	}
	return people, total, nil
}

// Update persists mutable person columns.
func (r *PersonRepository) Update(ctx context.Context, person *models.Person) error {
	person.UpdatedAt = time.Now().UTC()
	const query = `UPDATE people SET name = :name, updated_at = :updated_at WHERE id = :id`
	result, err := r.db.NamedExecContext(ctx, query, person)
	if err != nil {
		return fmt.Errorf("update person: %w", err)
	}
	return requireRowsAffected(result)
}

// SetActive flips the soft-delete flag.
func (r *PersonRepository) SetActive(ctx context.Context, id int64, active bool) error {
	const query = `UPDATE people SET active = $1, updated_at = $2 WHERE id = $3`
	result, err := r.db.ExecContext(ctx, query, active, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("set person active: %w", err)
	}
	return requireRowsAffected(result)
}

// Delete removes the row permanently.
func (r *PersonRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM people WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete person: %w", err)
	}
	return requireRowsAffected(result)
}

// CountOccupations reports how many occupations reference the person.
func (r *PersonRepository) CountOccupations(ctx context.Context, id int64) (int64, error) {
	var count int64
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM occupations WHERE person_id = $1`, id); err != nil {
		return 0, fmt.Errorf("count person occupations: %w", err)
	}
	return count, nil
}
