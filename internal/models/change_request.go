package models

import (
	"encoding/json"
	"time"
)

// OperationKind is the kind of mutation a change request carries.
type OperationKind string

const (
	OperationCreate OperationKind = "CREATE"
	OperationUpdate OperationKind = "UPDATE"
	OperationDelete OperationKind = "DELETE"
)

// Valid reports whether the operation kind is one of the known values.
func (k OperationKind) Valid() bool {
	switch k {
	case OperationCreate, OperationUpdate, OperationDelete:
		return true
	}
	return false
}

// TargetEntity names the entity table a change request targets.
type TargetEntity string

const (
	TargetPerson       TargetEntity = "PERSON"
	TargetOrganization TargetEntity = "ORGANIZATION"
	TargetPosition     TargetEntity = "POSITION"
	TargetDirective    TargetEntity = "DIRECTIVE"
	TargetOccupation   TargetEntity = "OCCUPATION"
)

// Valid reports whether the target entity is one of the known values.
func (t TargetEntity) Valid() bool {
	switch t {
	case TargetPerson, TargetOrganization, TargetPosition, TargetDirective, TargetOccupation:
		return true
	}
	return false
}

// ChangeStatus is the review state of a change request.
type ChangeStatus string

const (
	ChangePending  ChangeStatus = "PENDING"
	ChangeApproved ChangeStatus = "APPROVED"
	ChangeRefused  ChangeStatus = "REFUSED"
)

// ChangeRequest is a proposed mutation awaiting review. Approved and refused
// requests are terminal; only pending requests can be decided.
type ChangeRequest struct {
	ID          int64           `db:"id" json:"id"`
	Operation   OperationKind   `db:"operation" json:"operation"`
	Entity      TargetEntity    `db:"entity" json:"entity"`
	TargetID    *int64          `db:"target_id" json:"target_id,omitempty"`
	Payload     json.RawMessage `db:"payload" json:"payload"`
	Status      ChangeStatus    `db:"status" json:"status"`
	RequestedBy string          `db:"requested_by" json:"requested_by"`
	DecidedBy   *string         `db:"decided_by" json:"decided_by,omitempty"`
	DecidedAt   *time.Time      `db:"decided_at" json:"decided_at,omitempty"`
	Note        *string         `db:"note" json:"note,omitempty"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time       `db:"updated_at" json:"updated_at"`
}

// ChangeRequestFilter captures filtering criteria for listing change requests.
type ChangeRequestFilter struct {
	Status    *ChangeStatus
	Entity    *TargetEntity
	Operation *OperationKind
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
