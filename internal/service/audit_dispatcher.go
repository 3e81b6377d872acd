package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/financial-coach-api/internal/models"
	"github.com/noah-isme/financial-coach-api/pkg/jobs"
)

const auditWriteTimeout = 3 * time.Second

// AuditDispatcher hands audit entries to a background worker pool so request
// latency does not include the audit insert. Entries are dropped, with a
// warning, when the buffer is full.
type AuditDispatcher struct {
	writer auditLogger
	queue  *jobs.Queue[*models.AuditLog]
	logger *zap.Logger
}

// NewAuditDispatcher wraps writer with a queue configured by cfg.
func NewAuditDispatcher(writer auditLogger, cfg jobs.Config) *AuditDispatcher {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	d := &AuditDispatcher{writer: writer, logger: cfg.Logger}
	d.queue = jobs.New("audit", d.write, cfg)
	return d
}

// Start launches the workers.
func (d *AuditDispatcher) Start(ctx context.Context) {
	d.queue.Start(ctx)
}

// Stop flushes buffered entries.
func (d *AuditDispatcher) Stop(ctx context.Context) error {
	return d.queue.Stop(ctx)
}

// CreateAuditLog enqueues the entry. It satisfies the same contract as the
// audit repository.
func (d *AuditDispatcher) CreateAuditLog(_ context.Context, log *models.AuditLog) error {
	if log == nil {
		return nil
	}
	if log.ID == "" {
		log.ID = uuid.NewString()
	}
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now().UTC()
	}
	if err := d.queue.Enqueue(log.ID, log); err != nil {
		if errors.Is(err, jobs.ErrQueueFull) {
			d.logger.Warn("audit entry dropped", zap.String("action", log.Action), zap.String("resource", log.Resource))
		}
		return err
	}
	return nil
}

func (d *AuditDispatcher) write(ctx context.Context, job jobs.Job[*models.AuditLog]) error {
	ctx, cancel := context.WithTimeout(ctx, auditWriteTimeout)
	defer cancel()
	return d.writer.CreateAuditLog(ctx, job.Payload)
}
