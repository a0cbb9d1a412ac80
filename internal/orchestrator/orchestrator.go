package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/talentsight/analysis-engine/internal/events"
	"github.com/talentsight/analysis-engine/internal/scoring"
	"github.com/talentsight/analysis-engine/internal/store"
	"github.com/talentsight/analysis-engine/internal/store/model"
	"github.com/talentsight/analysis-engine/pkg/metrics"
	"go.uber.org/zap"
)

// Options tune the orchestrator without changing its contract.
type Options struct {
	// TextMix is the engine-wide text/quantitative blend ratio. A job's own
	// config may override it.
	TextMix float64
	// RecomputePercentiles re-ranks every result of a job once it
	// completes, replacing the incremental running-rank values.
	RecomputePercentiles bool
	// JobTimeout bounds one job run. Zero disables the bound: stuck jobs
	// then resolve only through Cancel or retention eviction.
	JobTimeout time.Duration
}

// Orchestrator owns the job state machine. It is the only component that
// mutates job status; observers read through the store.
//
// Each started job runs on its own goroutine. Records are scored and
// persisted strictly in file order within a job; jobs do not interfere with
// each other.
type Orchestrator struct {
	store store.Store
	hub   *events.Hub
	opts  Options
	log   *zap.SugaredLogger

	// score produces one record's result. Tests swap it to exercise
	// record-level failure handling.
	score scoreFunc

	mu      sync.Mutex
	running map[uuid.UUID]context.CancelCauseFunc
	wg      sync.WaitGroup
}

type scoreFunc func(ctx context.Context, jobID uuid.UUID, uid string, row map[string]string, textColumns, quantColumns []string, cfg model.JobConfig, mix float64) (*model.Result, *scoring.Composite, error)

func New(s store.Store, hub *events.Hub, opts Options) *Orchestrator {
	o := &Orchestrator{
		store:   s,
		hub:     hub,
		opts:    opts,
		log:     zap.S().Named("orchestrator"),
		running: make(map[uuid.UUID]context.CancelCauseFunc),
	}
	o.score = o.scoreRecord
	return o
}

// Start claims a pending job and launches its record loop. Exactly one of
// any number of concurrent Start calls wins the pending -> processing
// transition; the rest get store.ErrInvalidTransition and no second loop is
// ever spawned.
func (o *Orchestrator) Start(ctx context.Context, jobID uuid.UUID) (*model.Job, error) {
	job, err := o.store.Job().Get(ctx, jobID)
	if err != nil {
		return nil, err
	}

	cfg, err := job.DecodeConfig()
	if err != nil {
		return nil, fmt.Errorf("decoding job config: %w", err)
	}

	file, err := o.store.File().Get(ctx, job.FileID)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			// Source vanished before the job ran: fatal for the job, not
			// for the caller.
			return o.failJob(ctx, jobID, "source file no longer exists")
		}
		return nil, err
	}

	rows, err := file.DecodeRows()
	if err != nil {
		return o.failJob(ctx, jobID, fmt.Sprintf("corrupted file payload: %v", err))
	}

	roles, err := file.ColumnRoles()
	if err != nil {
		return o.failJob(ctx, jobID, fmt.Sprintf("corrupted column classification: %v", err))
	}

	total := len(rows)
	if cfg.SampleSize > 0 && cfg.SampleSize < total {
		total = cfg.SampleSize
	}

	claimed, err := o.store.Job().MarkProcessing(ctx, jobID, total)
	if err != nil {
		return claimed, err
	}
	metrics.IncreaseJobStateMetric(string(model.JobStatusProcessing))
	metrics.UpdateRunningJobsMetric(1)
	o.log.Infow("job started", "job_id", jobID, "file_id", job.FileID, "total", total)

	jobCtx, cancel := context.WithCancelCause(context.Background())
	o.mu.Lock()
	o.running[jobID] = cancel
	o.mu.Unlock()

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		defer func() {
			metrics.UpdateRunningJobsMetric(-1)
			o.mu.Lock()
			delete(o.running, jobID)
			o.mu.Unlock()
			cancel(nil)
		}()

		runCtx := jobCtx
		if o.opts.JobTimeout > 0 {
			var cancelTimeout context.CancelFunc
			runCtx, cancelTimeout = context.WithTimeout(jobCtx, o.opts.JobTimeout)
			defer cancelTimeout()
		}

		o.run(runCtx, claimed, cfg, rows[:total], roles)
	}()

	return claimed, nil
}

// Cancel forces a non-terminal job to failed with a cancellation reason. A
// running record loop is interrupted at its next suspension point; the
// terminal transition itself happens here so pending jobs resolve too.
func (o *Orchestrator) Cancel(ctx context.Context, jobID uuid.UUID, reason string) (*model.Job, error) {
	o.mu.Lock()
	cancel, isRunning := o.running[jobID]
	o.mu.Unlock()
	if isRunning {
		cancel(errors.New(reason))
	}

	job, err := o.store.Job().MarkFailed(ctx, jobID, fmt.Sprintf("cancelled: %s", reason))
	if err != nil {
		if errors.Is(err, store.ErrInvalidTransition) && isRunning {
			// The record loop beat us to the terminal transition.
			return job, nil
		}
		return job, err
	}

	metrics.IncreaseJobStateMetric(string(model.JobStatusFailed))
	o.publishTerminal(job, events.EventFailed, job.Error)
	return job, nil
}

// Shutdown waits for outstanding job goroutines to finish, or until ctx
// expires.
func (o *Orchestrator) Shutdown(ctx context.Context) error {
	o.mu.Lock()
	for _, cancel := range o.running {
		cancel(errors.New("engine shutting down"))
	}
	o.mu.Unlock()

	done := make(chan struct{})
	go func() {
		o.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// run is the per-job record loop. Scoring failures skip the record and keep
// going; storage failures are fatal for the job.
func (o *Orchestrator) run(ctx context.Context, job *model.Job, cfg model.JobConfig, rows []map[string]string, roles map[string]model.ColumnRole) {
	jobID := job.ID
	total := len(rows)
	textColumns, quantColumns, uidColumn := planColumns(cfg, roles)

	mix := o.opts.TextMix
	if cfg.TextMix > 0 {
		mix = cfg.TextMix
	}

	var scoreSum float64
	var scored int

	for i, row := range rows {
		select {
		case <-ctx.Done():
			reason := "cancelled"
			if cause := context.Cause(ctx); cause != nil && !errors.Is(cause, context.Canceled) {
				reason = cause.Error()
			} else if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				reason = "job timeout exceeded"
			}
			o.finishFailed(jobID, reason)
			return
		default:
		}

		uid := subjectID(row, uidColumn, i)

		result, composite, err := o.score(ctx, jobID, uid, row, textColumns, quantColumns, cfg, mix)
		if err != nil {
			// One dirty record must not sink the batch: count it as skipped
			// and move on.
			o.log.Warnw("record skipped", "job_id", jobID, "uid", uid, "row", i, "error", err)
			metrics.IncreaseRecordsMetric("skipped")
			if err := o.store.Job().IncrementProgress(ctx, jobID); err != nil {
				o.finishFailed(jobID, fmt.Sprintf("updating progress: %v", err))
				return
			}
			o.publishProgress(jobID, i+1, total, uid, 0)
			continue
		}

		// The result row and the progress counter move together: observers
		// never see a counter ahead of the persisted results.
		txCtx, err := o.store.NewTransactionContext(ctx)
		if err != nil {
			o.finishFailed(jobID, fmt.Sprintf("opening transaction: %v", err))
			return
		}
		if _, err := o.store.Result().Create(txCtx, *result); err != nil {
			_, _ = store.Rollback(txCtx)
			o.finishFailed(jobID, fmt.Sprintf("persisting result: %v", err))
			return
		}
		if err := o.store.Job().IncrementProgress(txCtx, jobID); err != nil {
			_, _ = store.Rollback(txCtx)
			o.finishFailed(jobID, fmt.Sprintf("updating progress: %v", err))
			return
		}
		if _, err := store.Commit(txCtx); err != nil {
			o.finishFailed(jobID, fmt.Sprintf("committing result: %v", err))
			return
		}

		metrics.IncreaseRecordsMetric("processed")
		scoreSum += composite.Score
		scored++
		o.publishProgress(jobID, i+1, total, uid, composite.Score)
	}

	average := 0.0
	if scored > 0 {
		average = scoreSum / float64(scored)
	}

	if o.opts.RecomputePercentiles {
		if err := o.recomputePercentiles(context.Background(), jobID); err != nil {
			o.finishFailed(jobID, fmt.Sprintf("recomputing percentiles: %v", err))
			return
		}
	}

	job, err := o.store.Job().MarkCompleted(context.Background(), jobID, average)
	if err != nil {
		// Cancel won the race to a terminal state; its event already went out.
		if errors.Is(err, store.ErrInvalidTransition) {
			return
		}
		o.log.Errorw("failed to finalize job", "job_id", jobID, "error", err)
		return
	}

	metrics.IncreaseJobStateMetric(string(model.JobStatusCompleted))
	o.log.Infow("job completed", "job_id", jobID, "processed", job.ProcessedRows, "average", average)
	o.publishTerminal(job, events.EventCompleted, "")
}

func (o *Orchestrator) scoreRecord(ctx context.Context, jobID uuid.UUID, uid string, row map[string]string, textColumns, quantColumns []string, cfg model.JobConfig, mix float64) (*model.Result, *scoring.Composite, error) {
	text := collectText(row, textColumns)

	textScores, err := scoring.ScoreTextAll(text, cfg.Dimensions)
	if err != nil {
		return nil, nil, err
	}
	quant := scoring.AnalyzeQuantitative(row, quantColumns)

	prior, err := o.store.Result().Scores(ctx, jobID)
	if err != nil {
		return nil, nil, err
	}

	composite := scoring.Combine(textScores, quant, prior, scoring.CombineOptions{TextMix: mix})

	details := map[string]any{
		"text_scores":    textScores,
		"quant_analysis": quant,
		"text_score":     composite.TextScore,
		"quant_score":    composite.QuantScore,
		"grade_label":    composite.GradeLabel,
	}
	if cfg.EnableFeedback {
		details["feedback"] = scoring.GenerateFeedback(composite, textScores)
	}
	rawDetails, err := json.Marshal(details)
	if err != nil {
		return nil, nil, err
	}

	dimScores := make(map[string]float64, len(textScores))
	for name, ts := range textScores {
		dimScores[name] = ts.Score
	}
	rawDimScores, err := json.Marshal(dimScores)
	if err != nil {
		return nil, nil, err
	}

	return &model.Result{
		ID:              uuid.New(),
		JobID:           jobID,
		UID:             uid,
		HybridScore:     composite.Score,
		Grade:           composite.Grade,
		Percentile:      composite.Percentile,
		Confidence:      composite.Confidence,
		DimensionScores: rawDimScores,
		Details:         rawDetails,
		CreatedAt:       time.Now().UTC(),
	}, &composite, nil
}

// recomputePercentiles replaces the incremental running ranks with ranks
// against the job's full result set.
func (o *Orchestrator) recomputePercentiles(ctx context.Context, jobID uuid.UUID) error {
	results, err := o.store.Result().List(ctx, jobID, 0, 0)
	if err != nil {
		return err
	}
	if len(results) < 2 {
		return nil
	}

	scores := make([]float64, len(results))
	for i, r := range results {
		scores[i] = r.HybridScore
	}

	for i, r := range results {
		peers := make([]float64, 0, len(scores)-1)
		peers = append(peers, scores[:i]...)
		peers = append(peers, scores[i+1:]...)
		percentile := scoring.RankPercentile(r.HybridScore, peers)
		if percentile == r.Percentile {
			continue
		}
		if err := o.store.Result().UpdatePercentile(ctx, r.ID, percentile); err != nil {
			return err
		}
	}
	return nil
}

func (o *Orchestrator) finishFailed(jobID uuid.UUID, detail string) {
	job, err := o.store.Job().MarkFailed(context.Background(), jobID, detail)
	if err != nil {
		if errors.Is(err, store.ErrInvalidTransition) {
			return
		}
		o.log.Errorw("failed to mark job failed", "job_id", jobID, "error", err)
		return
	}
	metrics.IncreaseJobStateMetric(string(model.JobStatusFailed))
	o.log.Warnw("job failed", "job_id", jobID, "error", detail)
	o.publishTerminal(job, events.EventError, detail)
}

// failJob handles fatal conditions detected before the record loop spawns.
func (o *Orchestrator) failJob(ctx context.Context, jobID uuid.UUID, detail string) (*model.Job, error) {
	job, err := o.store.Job().MarkFailed(ctx, jobID, detail)
	if err != nil {
		return job, err
	}
	metrics.IncreaseJobStateMetric(string(model.JobStatusFailed))
	o.publishTerminal(job, events.EventError, detail)
	return job, fmt.Errorf("job %s failed: %s", jobID, detail)
}

func (o *Orchestrator) publishProgress(jobID uuid.UUID, processed, total int, uid string, score float64) {
	percent := 0.0
	if total > 0 {
		percent = float64(processed) / float64(total) * 100
	}
	o.hub.Publish(jobID, events.Event{
		Type:      events.EventProgress,
		Processed: processed,
		Total:     total,
		Percent:   percent,
		UID:       uid,
		Score:     score,
	})
}

func (o *Orchestrator) publishTerminal(job *model.Job, eventType events.EventType, detail string) {
	event := events.Event{
		Type:      eventType,
		Processed: job.ProcessedRows,
		Total:     job.TotalRows,
		Percent:   job.Percent(),
		Error:     detail,
	}
	if job.AverageScore != nil {
		event.AverageScore = *job.AverageScore
	}
	o.hub.Publish(job.ID, event)
}

// planColumns resolves which columns feed which scorer. Job config wins;
// the file's column classification is the fallback.
func planColumns(cfg model.JobConfig, roles map[string]model.ColumnRole) (textColumns, quantColumns []string, uidColumn string) {
	for col, role := range roles {
		switch role {
		case model.ColumnRoleUID:
			uidColumn = col
		case model.ColumnRoleText:
			textColumns = append(textColumns, col)
		case model.ColumnRoleQuantitative:
			quantColumns = append(quantColumns, col)
		}
	}
	if len(cfg.QuantColumns) > 0 {
		quantColumns = cfg.QuantColumns
	}
	// Deterministic iteration for map-sourced column lists.
	sort.Strings(textColumns)
	sort.Strings(quantColumns)
	return textColumns, quantColumns, uidColumn
}

func collectText(row map[string]string, textColumns []string) string {
	var parts []string
	for _, col := range textColumns {
		if v, ok := row[col]; ok && !scoring.IsNullLike(v) {
			parts = append(parts, v)
		}
	}
	return strings.Join(parts, " ")
}

func subjectID(row map[string]string, uidColumn string, index int) string {
	if uidColumn != "" {
		if v, ok := row[uidColumn]; ok && !scoring.IsNullLike(v) {
			return v
		}
	}
	return fmt.Sprintf("row_%d", index+1)
}
