package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/student-records/internal/models"
	"github.com/noah-isme/student-records/pkg/jobs"
)

// JobPersistSnapshot is the job kind carrying a SnapshotPayload.
const JobPersistSnapshot = "persist_snapshot"

// SnapshotPayload is a versioned copy of the store contents.
type SnapshotPayload struct {
	Version uint64
	Records []models.StudentRecord
}

type snapshotRepository interface {
	LoadAll(ctx context.Context) ([]models.StudentRecord, error)
	ReplaceAll(ctx context.Context, records []models.StudentRecord) error
}

// SnapshotPersister writes store snapshots to the database. Snapshots older than
// the last one written are skipped, so retries and parallel workers never regress the table.
type SnapshotPersister struct {
	repo    snapshotRepository
	metrics *MetricsService
	logger  *zap.Logger

	mu        sync.Mutex
	persisted uint64
}

// NewSnapshotPersister constructs a persister.
func NewSnapshotPersister(repo snapshotRepository, metrics *MetricsService, logger *zap.Logger) *SnapshotPersister {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SnapshotPersister{repo: repo, metrics: metrics, logger: logger}
}

// Restore loads the persisted records for bootstrapping the store.
func (p *SnapshotPersister) Restore(ctx context.Context) ([]models.StudentRecord, error) {
	records, err := p.repo.LoadAll(ctx)
	if err != nil {
		return nil, err
	}
	p.logger.Info("restored students from database", zap.Int("count", len(records)))
	return records, nil
}

// Handle is the jobs.Handler for JobPersistSnapshot.
func (p *SnapshotPersister) Handle(ctx context.Context, job jobs.Job) error {
	payload, ok := job.Payload.(SnapshotPayload)
	if !ok {
		return fmt.Errorf("unexpected payload %T for job %s", job.Payload, job.Kind)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if payload.Version <= p.persisted {
		p.logger.Debug("skipping stale snapshot", zap.Uint64("version", payload.Version), zap.Uint64("persisted", p.persisted))
		return nil
	}

	start := time.Now()
	if err := p.repo.ReplaceAll(ctx, payload.Records); err != nil {
		return err
	}
	p.metrics.ObservePersist(time.Since(start))
	p.persisted = payload.Version
	p.logger.Debug("snapshot persisted", zap.Uint64("version", payload.Version), zap.Int("records", len(payload.Records)))
	return nil
}

// OnGiveUp is the queue hook for abandoned jobs.
func (p *SnapshotPersister) OnGiveUp(job jobs.Job, err error) {
	p.metrics.RecordPersistFailure()
	p.logger.Error("snapshot not persisted", zap.String("job_id", job.ID), zap.Error(err))
}
