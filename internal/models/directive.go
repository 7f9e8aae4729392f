package models

import "time"

// Directive is the administrative act (portaria) that may back an occupation.
type Directive struct {
	ID        int64     `db:"id" json:"id"`
	Number    int       `db:"number" json:"number"`
	Date      time.Time `db:"date" json:"date"`
	Notes     *string   `db:"notes" json:"notes,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// DirectiveFilter captures filtering criteria for listing directives.
type DirectiveFilter struct {
	Number    *int
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
