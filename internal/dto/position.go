package dto

// CreatePositionRequest is the payload for registering a position.
type CreatePositionRequest struct {
	Name           string `json:"name" validate:"required,min=2,max=255"`
	OrganizationID int64  `json:"organization_id" validate:"required,gt=0"`
	Exclusive      bool   `json:"exclusive"`
	SubstituteOf   *int64 `json:"substitute_of" validate:"omitempty,gt=0"`
}

// UpdatePositionRequest is the payload for changing a position. Setting
// ClearSubstitute detaches the position from its principal.
type UpdatePositionRequest struct {
	Name            *string `json:"name" validate:"omitempty,min=2,max=255"`
	Exclusive       *bool   `json:"exclusive"`
	SubstituteOf    *int64  `json:"substitute_of" validate:"omitempty,gt=0"`
	ClearSubstitute bool    `json:"clear_substitute"`
}
