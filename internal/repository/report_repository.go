package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// ReportRepository reads the denormalized occupancy rows used by exports.
type ReportRepository struct {
	db *sqlx.DB
}

// NewReportRepository constructs the repository.
func NewReportRepository(db *sqlx.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

// OccupancyRow is one joined occupation line for the report.
type OccupancyRow struct {
	Organization string     `db:"organization"`
	Position     string     `db:"position"`
	Exclusive    bool       `db:"exclusive"`
	Person       string     `db:"person"`
	StartDate    time.Time  `db:"start_date"`
	EndDate      *time.Time `db:"end_date"`
	TermNumber   int        `db:"term_number"`
}

// ListOccupancy returns every occupation joined to its position, person and
// organization, optionally scoped to one organization.
func (r *ReportRepository) ListOccupancy(ctx context.Context, organizationID *int64) ([]OccupancyRow, error) {
	query := `SELECT org.name AS organization, pos.name AS position, pos.exclusive,
	per.name AS person, o.start_date, o.end_date, o.term_number
	FROM occupations o
	JOIN positions pos ON pos.id = o.position_id
	JOIN organizations org ON org.id = pos.organization_id
	JOIN people per ON per.id = o.person_id`
	args := make([]interface{}, 0, 1)
	if organizationID != nil {
		args = append(args, *organizationID)
		query += " WHERE org.id = $1"
	}
	query += " ORDER BY org.name, pos.name, o.start_date, o.id"

	var occupancyRows []OccupancyRow
	if err := r.db.SelectContext(ctx, &occupancyRows, query, args...); err != nil {
		return nil, fmt.Errorf("list occupancy rows: %w", err)
	}
	return occupancyRows, nil
}
