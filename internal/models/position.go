package models

import "time"

// Position is a role inside an organization that people occupy for a term.
// Exclusive positions admit at most one open-ended occupation at a time.
// SubstituteOf links a substitute position to the principal position it
// covers; the chain must stay within one organization and must not cycle.
type Position struct {
	ID             int64     `db:"id" json:"id"`
	Name           string    `db:"name" json:"name"`
	OrganizationID int64     `db:"organization_id" json:"organization_id"`
	Active         bool      `db:"active" json:"active"`
	Exclusive      bool      `db:"exclusive" json:"exclusive"`
	SubstituteOf   *int64    `db:"substitute_of" json:"substitute_of,omitempty"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// PositionFilter captures filtering criteria for listing positions.
type PositionFilter struct {
	OrganizationID *int64
	Active         *bool
	Search         string
	Page           int
	PageSize       int
	SortBy         string
	SortOrder      string
}
