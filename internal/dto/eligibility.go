package dto

// EligibilityRequest asks whether a person may assume a position for the
// given window. EndDate is optional for open-ended terms.
type EligibilityRequest struct {
	PersonID   int64   `json:"person_id" form:"person_id" validate:"required,gt=0"`
	PositionID int64   `json:"position_id" form:"position_id" validate:"required,gt=0"`
	StartDate  string  `json:"start_date" form:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate    *string `json:"end_date" form:"end_date" validate:"omitempty,datetime=2006-01-02"`
}

// EligibilityResult is the evaluator verdict with every violated rule.
type EligibilityResult struct {
	Eligible bool     `json:"eligible"`
	Reasons  []string `json:"reasons"`
}
