package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/controle-mandatos/mandatos-api/internal/models"
)

// HistoryRepository persists the append-only audit trail.
type HistoryRepository struct {
	db *sqlx.DB
}

// NewHistoryRepository constructs the repository.
func NewHistoryRepository(db *sqlx.DB) *HistoryRepository {
	return &HistoryRepository{db: db}
}

// Create appends an entry.
func (r *HistoryRepository) Create(ctx context.Context, entry *models.HistoryEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO history_entries (id, operation, entity, entity_id, summary, actor_id, created_at)
	VALUES (:id, :operation, :entity, :entity_id, :summary, :actor_id, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, entry); err != nil {
		return fmt.Errorf("create history entry: %w", err)
	}
	return nil
}

// List returns entries matching the filter, newest first, with the total.
func (r *HistoryRepository) List(ctx context.Context, filter models.HistoryFilter) ([]models.HistoryEntry, int64, error) {
	conditions := make([]string, 0, 2)
	args := make([]interface{}, 0, 2)
	if filter.Operation != nil {
		args = append(args, *filter.Operation)
		conditions = append(conditions, fmt.Sprintf("operation = $%d", len(args)))
	}
	if filter.Entity != nil {
		args = append(args, *filter.Entity)
		conditions = append(conditions, fmt.Sprintf("entity = $%d", len(args)))
	}
	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	var total int64
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM history_entries"+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count history entries: %w", err)
	}

	query := `SELECT id, operation, entity, entity_id, summary, actor_id, created_at FROM history_entries` +
		where + " ORDER BY created_at DESC, id DESC" + limitClause(filter.Page, filter.PageSize)
	var entries []models.HistoryEntry
	if err := r.db.SelectContext(ctx, &entries, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list history entries: %w", err)
	}
	return entries, total, nil
}
