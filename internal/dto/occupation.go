package dto

import "github.com/controle-mandatos/mandatos-api/internal/models"

// CreateOccupationRequest is the payload for opening or backfilling a term.
type CreateOccupationRequest struct {
	PersonID    int64   `json:"person_id" validate:"required,gt=0"`
	PositionID  int64   `json:"position_id" validate:"required,gt=0"`
	DirectiveID *int64  `json:"directive_id" validate:"omitempty,gt=0"`
	StartDate   string  `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate     *string `json:"end_date" validate:"omitempty,datetime=2006-01-02"`
	Notes       *string `json:"notes" validate:"omitempty,max=1000"`
}

// UpdateOccupationRequest is the payload for adjusting an existing term.
// ClearEndDate reopens a closed term.
type UpdateOccupationRequest struct {
	DirectiveID  *int64  `json:"directive_id" validate:"omitempty,gt=0"`
	StartDate    *string `json:"start_date" validate:"omitempty,datetime=2006-01-02"`
	EndDate      *string `json:"end_date" validate:"omitempty,datetime=2006-01-02"`
	ClearEndDate bool    `json:"clear_end_date"`
	Notes        *string `json:"notes" validate:"omitempty,max=1000"`
}

// FinalizeOccupationRequest closes an open term on the given date. A
// definitive termination ends the line with no successor; otherwise
// SuccessorStart is required and, together with SuccessorEnd, fixes the
// window of the promoted substitute's term.
type FinalizeOccupationRequest struct {
	EndDate        string  `json:"end_date" validate:"required,datetime=2006-01-02"`
	Definitive     bool    `json:"definitive"`
	SuccessorStart *string `json:"successor_start" validate:"omitempty,datetime=2006-01-02"`
	SuccessorEnd   *string `json:"successor_end" validate:"omitempty,datetime=2006-01-02"`
	DirectiveID    *int64  `json:"directive_id" validate:"omitempty,gt=0"`
}

// SuccessionStep records one hop of an automatic substitution cascade: the
// occupant of FromPosition assumed ToPosition.
type SuccessionStep struct {
	FromPositionID int64  `json:"from_position_id"`
	ToPositionID   int64  `json:"to_position_id"`
	PersonID       int64  `json:"person_id"`
	PersonName     string `json:"person_name"`
	OccupationID   int64  `json:"occupation_id"`
}

// FinalizeOccupationResponse reports the closed term and any substitutions
// that were promoted as a result.
type FinalizeOccupationResponse struct {
	Finalized  *models.Occupation `json:"finalized"`
	Succession []SuccessionStep   `json:"succession"`
}

// SuccessorSuggestion identifies the person next in line for the position an
// ending occupation is about to vacate, along with the suggested term window
// taken from the successor's own occupation.
type SuccessorSuggestion struct {
	PositionID     int64   `json:"position_id"`
	PositionName   string  `json:"position_name"`
	PersonID       int64   `json:"person_id"`
	PersonName     string  `json:"person_name"`
	OccupationID   int64   `json:"occupation_id"`
	SuggestedStart string  `json:"suggested_start"`
	SuggestedEnd   *string `json:"suggested_end,omitempty"`
}
