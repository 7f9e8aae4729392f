package dto

// CreatePersonRequest is the payload for registering a person.
type CreatePersonRequest struct {
	Name string `json:"name" validate:"required,min=2,max=255"`
}

// UpdatePersonRequest is the payload for renaming a person.
type UpdatePersonRequest struct {
	Name *string `json:"name" validate:"omitempty,min=2,max=255"`
}
