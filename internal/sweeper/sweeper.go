package sweeper

import (
	"context"
	"time"

	"github.com/lthibault/jitterbug/v2"
	"github.com/talentsight/analysis-engine/internal/store"
	"github.com/talentsight/analysis-engine/pkg/metrics"
	"go.uber.org/zap"
)

// Sweeper evicts aged files and jobs on a jittered interval. Eviction is
// best-effort: a failed item is logged and retried on the next cycle.
type Sweeper struct {
	store        store.Store
	interval     time.Duration
	retentionAge time.Duration
	log          *zap.SugaredLogger
}

func New(s store.Store, interval, retentionAge time.Duration) *Sweeper {
	return &Sweeper{
		store:        s,
		interval:     interval,
		retentionAge: retentionAge,
		log:          zap.S().Named("sweeper"),
	}
}

// Run sweeps on the configured interval until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := jitterbug.New(s.interval, &jitterbug.Norm{Stdev: s.interval / 10})
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("sweeper stopped")
			return
		case <-ticker.C:
			s.RunOnce(ctx)
		}
	}
}

// RunOnce performs one retention sweep. Jobs go first so files they
// referenced become evictable in the same cycle.
func (s *Sweeper) RunOnce(ctx context.Context) {
	cutoff := time.Now().UTC().Add(-s.retentionAge)
	s.sweepJobs(ctx, cutoff)
	s.sweepFiles(ctx, cutoff)
}

func (s *Sweeper) sweepJobs(ctx context.Context, cutoff time.Time) {
	jobs, err := s.store.Job().ListCreatedBefore(ctx, cutoff)
	if err != nil {
		s.log.Errorw("failed to list aged jobs", "error", err)
		return
	}

	for _, job := range jobs {
		if !job.Status.Terminal() {
			// A job aged past retention is stuck. Force the terminal
			// transition so its file stops counting as active, then evict it
			// like any other aged job.
			if _, err := s.store.Job().MarkFailed(ctx, job.ID, "evicted: job exceeded retention age"); err != nil {
				s.log.Errorw("failed to fail stale job", "job_id", job.ID, "status", job.Status, "error", err)
				continue
			}
			s.log.Warnw("failed stale job", "job_id", job.ID, "status", job.Status, "created_at", job.CreatedAt)
		}
		if err := s.store.Result().DeleteByJob(ctx, job.ID); err != nil {
			s.log.Errorw("failed to evict job results", "job_id", job.ID, "error", err)
			continue
		}
		if err := s.store.Job().Delete(ctx, job.ID); err != nil {
			s.log.Errorw("failed to evict job", "job_id", job.ID, "error", err)
			continue
		}
		metrics.IncreaseEvictionsMetric("job")
		s.log.Infow("evicted aged job", "job_id", job.ID, "status", job.Status, "created_at", job.CreatedAt)
	}
}

func (s *Sweeper) sweepFiles(ctx context.Context, cutoff time.Time) {
	active, err := s.store.Job().ActiveFileIDs(ctx)
	if err != nil {
		s.log.Errorw("failed to resolve active files", "error", err)
		return
	}

	files, err := s.store.File().ListUploadedBefore(ctx, cutoff)
	if err != nil {
		s.log.Errorw("failed to list aged files", "error", err)
		return
	}

	for _, file := range files {
		if _, ok := active[file.ID]; ok {
			continue
		}
		if err := s.store.File().Delete(ctx, file.ID); err != nil {
			s.log.Errorw("failed to evict file", "file_id", file.ID, "error", err)
			continue
		}
		metrics.IncreaseEvictionsMetric("file")
		s.log.Infow("evicted aged file", "file_id", file.ID, "filename", file.Filename, "uploaded_at", file.UploadedAt)
	}
}
