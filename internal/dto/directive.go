package dto

// CreateDirectiveRequest is the payload for registering a directive.
type CreateDirectiveRequest struct {
	Number int     `json:"number" validate:"required,gt=0"`
	Date   string  `json:"date" validate:"required,datetime=2006-01-02"`
	Notes  *string `json:"notes" validate:"omitempty,max=1000"`
}

// UpdateDirectiveRequest is the payload for changing a directive.
type UpdateDirectiveRequest struct {
	Number *int    `json:"number" validate:"omitempty,gt=0"`
	Date   *string `json:"date" validate:"omitempty,datetime=2006-01-02"`
	Notes  *string `json:"notes" validate:"omitempty,max=1000"`
}
