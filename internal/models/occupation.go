package models

import "time"

// Occupation records one term of a person in a position. A nil EndDate means
// the term is still open. TermNumber counts consecutive terms of the same
// person in the position; it restarts at 1 when another person interrupts
// the sequence.
type Occupation struct {
	ID          int64      `db:"id" json:"id"`
	PersonID    int64      `db:"person_id" json:"person_id"`
	PositionID  int64      `db:"position_id" json:"position_id"`
	DirectiveID *int64     `db:"directive_id" json:"directive_id,omitempty"`
	StartDate   time.Time  `db:"start_date" json:"start_date"`
	EndDate     *time.Time `db:"end_date" json:"end_date,omitempty"`
	TermNumber  int        `db:"term_number" json:"term_number"`
	Notes       *string    `db:"notes" json:"notes,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updated_at"`
}

// Open reports whether the occupation has no end date yet.
func (o *Occupation) Open() bool {
	return o.EndDate == nil
}

// OccupationFilter captures filtering criteria for listing occupations.
type OccupationFilter struct {
	PersonID    *int64
	PositionID  *int64
	DirectiveID *int64
	OpenOnly    bool
	Page        int
	PageSize    int
	SortBy      string
	SortOrder   string
}
