package dto

import (
	"encoding/json"

	"github.com/controle-mandatos/mandatos-api/internal/models"
)

// CreateChangeRequestRequest submits a mutation for review.
type CreateChangeRequestRequest struct {
	Operation models.OperationKind `json:"operation" validate:"required"`
	Entity    models.TargetEntity  `json:"entity" validate:"required"`
	TargetID  *int64               `json:"target_id" validate:"omitempty,gt=0"`
	Payload   json.RawMessage      `json:"payload" validate:"required"`
	Note      *string              `json:"note" validate:"omitempty,max=1000"`
}

// DecideChangeRequestRequest resolves a pending request. Approve selects the
// terminal status; the note is attached to the decision either way.
type DecideChangeRequestRequest struct {
	Approve *bool   `json:"approve" validate:"required"`
	Note    *string `json:"note" validate:"omitempty,max=1000"`
}
