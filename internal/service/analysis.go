package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/talentsight/analysis-engine/internal/events"
	"github.com/talentsight/analysis-engine/internal/orchestrator"
	"github.com/talentsight/analysis-engine/internal/scoring"
	"github.com/talentsight/analysis-engine/internal/store"
	"github.com/talentsight/analysis-engine/internal/store/model"
	"github.com/thoas/go-funk"
	"go.uber.org/zap"
)

// AnalysisService is the job-facing API: it validates and creates jobs,
// hands them to the orchestrator, and exposes results and progress streams.
type AnalysisService struct {
	store store.Store
	orch  *orchestrator.Orchestrator
	hub   *events.Hub
	log   *zap.SugaredLogger
}

func NewAnalysisService(s store.Store, orch *orchestrator.Orchestrator, hub *events.Hub) *AnalysisService {
	return &AnalysisService{
		store: s,
		orch:  orch,
		hub:   hub,
		log:   zap.S().Named("analysis_service"),
	}
}

// CreateJob registers a pending job against an existing file. The config is
// validated up front so the record loop never meets an unknown dimension.
func (s *AnalysisService) CreateJob(ctx context.Context, fileID uuid.UUID, cfg model.JobConfig) (*model.Job, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	if _, err := s.store.File().Get(ctx, fileID); err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return nil, NewErrFileNotFound(fileID)
		}
		return nil, err
	}

	rawConfig, err := json.Marshal(cfg)
	if err != nil {
		return nil, err
	}

	job, err := s.store.Job().Create(ctx, model.Job{
		ID:     uuid.New(),
		FileID: fileID,
		Config: rawConfig,
	})
	if err != nil {
		s.log.Errorw("failed to create job", "file_id", fileID, "error", err)
		return nil, err
	}

	s.log.Infow("job created", "job_id", job.ID, "file_id", fileID)
	return job, nil
}

// StartJob kicks off processing for a pending job. Concurrent starts of the
// same job resolve to exactly one run; losers get ErrInvalidTransition.
func (s *AnalysisService) StartJob(ctx context.Context, id uuid.UUID) (*model.Job, error) {
	job, err := s.orch.Start(ctx, id)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrRecordNotFound):
			return nil, NewErrJobNotFound(id)
		case errors.Is(err, store.ErrInvalidTransition):
			status := "unknown"
			if job != nil {
				status = string(job.Status)
			}
			return job, NewErrInvalidTransition(id, status)
		}
		return job, err
	}
	return job, nil
}

func (s *AnalysisService) GetJob(ctx context.Context, id uuid.UUID) (*model.Job, error) {
	job, err := s.store.Job().Get(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return nil, NewErrJobNotFound(id)
		}
		return nil, err
	}
	return job, nil
}

func (s *AnalysisService) ListJobs(ctx context.Context) (model.JobList, error) {
	return s.store.Job().List(ctx)
}

// CancelJob forces a non-terminal job to failed. Cancelling a terminal job
// is an invalid transition.
func (s *AnalysisService) CancelJob(ctx context.Context, id uuid.UUID, reason string) (*model.Job, error) {
	if reason == "" {
		reason = "cancelled by operator"
	}
	job, err := s.orch.Cancel(ctx, id, reason)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrRecordNotFound):
			return nil, NewErrJobNotFound(id)
		case errors.Is(err, store.ErrInvalidTransition):
			status := "unknown"
			if job != nil {
				status = string(job.Status)
			}
			return job, NewErrInvalidTransition(id, status)
		}
		return job, err
	}
	return job, nil
}

// ListResults pages through a job's results in processing order.
func (s *AnalysisService) ListResults(ctx context.Context, jobID uuid.UUID, offset, limit int) (model.ResultList, error) {
	if _, err := s.store.Job().Get(ctx, jobID); err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return nil, NewErrJobNotFound(jobID)
		}
		return nil, err
	}
	return s.store.Result().List(ctx, jobID, offset, limit)
}

// SubscribeProgress attaches a live progress stream to a job. The first
// event on the stream is always the connected snapshot.
func (s *AnalysisService) SubscribeProgress(jobID uuid.UUID) *events.Subscription {
	return s.hub.Subscribe(jobID)
}

func (s *AnalysisService) UnsubscribeProgress(sub *events.Subscription) {
	s.hub.Unsubscribe(sub)
}

func validateConfig(cfg model.JobConfig) error {
	if cfg.SampleSize < 0 {
		return NewErrInvalidJobConfig(fmt.Sprintf("sample size must not be negative, got %d", cfg.SampleSize))
	}
	if cfg.TextMix < 0 || cfg.TextMix > 1 {
		return NewErrInvalidJobConfig(fmt.Sprintf("text mix must be within [0, 1], got %g", cfg.TextMix))
	}
	known := scoring.Dimensions()
	for _, name := range cfg.Dimensions {
		if !funk.ContainsString(known, name) {
			return NewErrInvalidJobConfig(fmt.Sprintf("unknown dimension %q", name))
		}
	}
	return nil
}

// StoreSnapshotter backs the hub's join-time snapshots with job rows.
type StoreSnapshotter struct {
	store store.Store
}

func NewStoreSnapshotter(s store.Store) *StoreSnapshotter {
	return &StoreSnapshotter{store: s}
}

// Make sure we conform to Snapshotter interface
var _ events.Snapshotter = (*StoreSnapshotter)(nil)

func (s *StoreSnapshotter) Snapshot(jobID uuid.UUID) (int, int, bool) {
	job, err := s.store.Job().Get(context.Background(), jobID)
	if err != nil {
		return 0, 0, false
	}
	return job.ProcessedRows, job.TotalRows, true
}
