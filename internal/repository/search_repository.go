package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/controle-mandatos/mandatos-api/internal/dto"
)

// SearchRepository runs the grouped free-text lookup across people,
// organizations and positions.
type SearchRepository struct {
	db *sqlx.DB
}

// NewSearchRepository constructs the repository.
func NewSearchRepository(db *sqlx.DB) *SearchRepository {
	return &SearchRepository{db: db}
}

const searchLimit = 25

// SearchPeople matches people by name. When openTerm is set, only people
// currently holding (true) or not holding (false) an open occupation match.
func (r *SearchRepository) SearchPeople(ctx context.Context, term string, active, openTerm *bool) ([]dto.PersonHit, error) {
	query := `SELECT p.id, p.name, p.active,
	COALESCE(array_agg(pos.name ORDER BY pos.name) FILTER (WHERE o.id IS NOT NULL), '{}') AS positions
	FROM people p
	LEFT JOIN occupations o ON o.person_id = p.id AND o.end_date IS NULL
	LEFT JOIN positions pos ON pos.id = o.position_id
	WHERE p.name ILIKE $1`
	args := []interface{}{"%" + term + "%"}
	if active != nil {
		args = append(args, *active)
		query += fmt.Sprintf(" AND p.active = $%d", len(args))
	}
	query += " GROUP BY p.id, p.name, p.active"
	if openTerm != nil {
		if *openTerm {
			query += " HAVING COUNT(o.id) > 0"
		} else {
			query += " HAVING COUNT(o.id) = 0"
		}
	}
	query += fmt.Sprintf(" ORDER BY p.name LIMIT %d", searchLimit)

	rows, err := r.db.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("search people: %w", err)
	}
	defer rows.Close()

	hits := make([]dto.PersonHit, 0, searchLimit)
	for rows.Next() {
		var hit dto.PersonHit
		var positions pq.StringArray
		if err := rows.Scan(&hit.ID, &hit.Name, &hit.Active, &positions); err != nil {
			return nil, fmt.Errorf("scan person hit: %w", err)
		}
		hit.Positions = positions
		hits = append(hits, hit)
	}
	return hits, rows.Err()
}

// SearchOrganizations matches organizations by name.
func (r *SearchRepository) SearchOrganizations(ctx context.Context, term string, active *bool) ([]dto.OrganizationHit, error) {
	query := `SELECT id, name, active FROM organizations WHERE name ILIKE $1`
	args := []interface{}{"%" + term + "%"}
	if active != nil {
		args = append(args, *active)
		query += fmt.Sprintf(" AND active = $%d", len(args))
	}
	query += fmt.Sprintf(" ORDER BY name LIMIT %d", searchLimit)

	var hits []dto.OrganizationHit
	if err := r.db.SelectContext(ctx, &hits, query, args...); err != nil {
		return nil, fmt.Errorf("search organizations: %w", err)
	}
	return hits, nil
}

// SearchPositions matches positions by name, carrying the current occupant.
func (r *SearchRepository) SearchPositions(ctx context.Context, term string, active *bool) ([]dto.PositionHit, error) {
	query := `SELECT pos.id, pos.name, org.name AS organization, pos.active, per.name AS occupant
	FROM positions pos
	JOIN organizations org ON org.id = pos.organization_id
	LEFT JOIN occupations o ON o.position_id = pos.id AND o.end_date IS NULL
	LEFT JOIN people per ON per.id = o.person_id
	WHERE pos.name ILIKE $1`
	args := []interface{}{"%" + term + "%"}
	if active != nil {
		args = append(args, *active)
		query += fmt.Sprintf(" AND pos.active = $%d", len(args))
	}
	query += fmt.Sprintf(" ORDER BY pos.name LIMIT %d", searchLimit)

	rows, err := r.db.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("search positions: %w", err)
	}
	defer rows.Close()

	hits := make([]dto.PositionHit, 0, searchLimit)
	for rows.Next() {
		var hit dto.PositionHit
		if err := rows.Scan(&hit.ID, &hit.Name, &hit.Organization, &hit.Active, &hit.Occupant); err != nil {
			return nil, fmt.Errorf("scan position hit: %w", err)
		}
		hits = append(hits, hit)
	}
	return hits, rows.Err()
}
