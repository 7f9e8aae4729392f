package dto

// SearchQuery is the bound query string of the grouped search endpoint.
// Active narrows by entity activity; OpenTerm keeps only people currently
// holding an open occupation (true) or holding none (false).
type SearchQuery struct {
	Term     string `form:"q" validate:"required,min=2"`
	Active   *bool  `form:"active"`
	OpenTerm *bool  `form:"open_term"`
}

// PersonHit is a person match with its current open positions.
type PersonHit struct {
	ID        int64    `json:"id"`
	Name      string   `json:"name"`
	Active    bool     `json:"active"`
	Positions []string `json:"positions"`
}

// OrganizationHit is an organization match.
type OrganizationHit struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Active bool   `json:"active"`
}

// PositionHit is a position match with its current occupant, when any.
type PositionHit struct {
	ID           int64   `json:"id"`
	Name         string  `json:"name"`
	Organization string  `json:"organization"`
	Active       bool    `json:"active"`
	Occupant     *string `json:"occupant,omitempty"`
}

// SearchResult groups matches by entity kind.
type SearchResult struct {
	People        []PersonHit       `json:"people"`
	Organizations []OrganizationHit `json:"organizations"`
	Positions     []PositionHit     `json:"positions"`
}
