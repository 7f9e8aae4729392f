package dto

// CreateOrganizationRequest is the payload for registering an organization.
type CreateOrganizationRequest struct {
	Name string `json:"name" validate:"required,min=2,max=255"`
}

// UpdateOrganizationRequest is the payload for renaming an organization.
type UpdateOrganizationRequest struct {
	Name *string `json:"name" validate:"omitempty,min=2,max=255"`
}
