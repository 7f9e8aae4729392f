package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/controle-mandatos/mandatos-api/internal/models"
	appErrors "github.com/controle-mandatos/mandatos-api/pkg/errors"
	"github.com/controle-mandatos/mandatos-api/pkg/jobs"
)

type historyStore interface {
	Create(ctx context.Context, entry *models.HistoryEntry) error
	List(ctx context.Context, filter models.HistoryFilter) ([]models.HistoryEntry, int64, error)
}

// historyEmitter is what the domain services need to leave an audit trail.
type historyEmitter interface {
	Record(entry *models.HistoryEntry)
}

// HistoryService appends audit entries through a background queue so request
// latency never waits on the trail, and serves the paginated log.
type HistoryService struct {
	repo   historyStore
	queue  *jobs.Queue
	logger *zap.Logger
}

// NewHistoryService constructs the service and its worker queue. Call Start
// before recording and Stop on shutdown.
func NewHistoryService(repo historyStore, cfg jobs.QueueConfig, logger *zap.Logger) *HistoryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &HistoryService{repo: repo, logger: logger}
	cfg.Logger = logger
	svc.queue = jobs.NewQueue("history", svc.handleJob, cfg)
	return svc
}

// Start launches the queue workers.
func (s *HistoryService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop drains the queue workers.
func (s *HistoryService) Stop() {
	s.queue.Stop()
}

func (s *HistoryService) handleJob(ctx context.Context, job jobs.Job) error {
	entry, ok := job.Payload.(*models.HistoryEntry)
	if !ok {
		return fmt.Errorf("unexpected history payload %T", job.Payload)
	}
	return s.repo.Create(ctx, entry)
}

// Record enqueues an entry for asynchronous persistence. If the queue is not
// running the write happens inline; the trail is not optional.
func (s *HistoryService) Record(entry *models.HistoryEntry) {
	if entry == nil {
		return
	}
	entry.CreatedAt = time.Now().UTC()
	if err := s.queue.Enqueue(jobs.Job{Type: "history.append", Payload: entry}); err != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.repo.Create(ctx, entry); err != nil {
			s.logger.Error("history write failed", zap.Error(err), zap.String("summary", entry.Summary))
		}
	}
}

// List returns the paginated audit trail, newest first.
func (s *HistoryService) List(ctx context.Context, filter models.HistoryFilter) ([]models.HistoryEntry, *models.Pagination, error) {
	entries, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list history")
	}
	return entries, models.NewPagination(filter.Page, filter.PageSize, total), nil
}
