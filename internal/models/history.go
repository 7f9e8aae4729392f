package models

import "time"

// HistoryOperation classifies an entry in the change history log.
type HistoryOperation string

const (
	HistoryCreate     HistoryOperation = "CREATE"
	HistoryUpdate     HistoryOperation = "UPDATE"
	HistoryDelete     HistoryOperation = "DELETE"
	HistoryDeactivate HistoryOperation = "DEACTIVATE"
	HistoryReactivate HistoryOperation = "REACTIVATE"
	HistoryFinalize   HistoryOperation = "FINALIZE"
)

// HistoryEntry is one line of the audit trail. Entries are append only.
type HistoryEntry struct {
	ID        string           `db:"id" json:"id"`
	Operation HistoryOperation `db:"operation" json:"operation"`
	Entity    TargetEntity     `db:"entity" json:"entity"`
	EntityID  *int64           `db:"entity_id" json:"entity_id,omitempty"`
	Summary   string           `db:"summary" json:"summary"`
	ActorID   *string          `db:"actor_id" json:"actor_id,omitempty"`
	CreatedAt time.Time        `db:"created_at" json:"created_at"`
}

// HistoryFilter captures filtering criteria for listing history entries.
type HistoryFilter struct {
	Operation *HistoryOperation
	Entity    *TargetEntity
	Page      int
	PageSize  int
}
