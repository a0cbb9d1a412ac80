package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/talentsight/analysis-engine/internal/store/model"
	"gorm.io/gorm"
)

type Job interface {
	Create(ctx context.Context, job model.Job) (*model.Job, error)
	Get(ctx context.Context, id uuid.UUID) (*model.Job, error)
	List(ctx context.Context) (model.JobList, error)
	// MarkProcessing performs the guarded pending -> processing transition
	// and fixes the job's total. Exactly one concurrent caller wins; the
	// rest get ErrInvalidTransition.
	MarkProcessing(ctx context.Context, id uuid.UUID, total int) (*model.Job, error)
	// MarkCompleted performs the guarded processing -> completed transition
	// and stores the aggregate summary.
	MarkCompleted(ctx context.Context, id uuid.UUID, averageScore float64) (*model.Job, error)
	// MarkFailed forces any non-terminal job to failed with an error detail.
	MarkFailed(ctx context.Context, id uuid.UUID, detail string) (*model.Job, error)
	// IncrementProgress advances the processed counter of a processing job
	// by one, never past the total.
	IncrementProgress(ctx context.Context, id uuid.UUID) error
	// ActiveFileIDs returns the set of files referenced by non-terminal
	// jobs. The sweeper must not evict those.
	ActiveFileIDs(ctx context.Context) (map[uuid.UUID]struct{}, error)
	ListCreatedBefore(ctx context.Context, cutoff time.Time) (model.JobList, error)
	Delete(ctx context.Context, id uuid.UUID) error
	InitialMigration() error
}

type JobStore struct {
	db *gorm.DB
}

// Make sure we conform to Job interface
var _ Job = (*JobStore)(nil)

func NewJobStore(db *gorm.DB) Job {
	return &JobStore{db: db}
}

func (s *JobStore) InitialMigration() error {
	return s.db.AutoMigrate(&model.Job{})
}

func (s *JobStore) Create(ctx context.Context, job model.Job) (*model.Job, error) {
	job.Status = model.JobStatusPending
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now().UTC()
	}
	result := s.getDB(ctx).Create(&job)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			return nil, ErrDuplicateKey
		}
		return nil, result.Error
	}
	return &job, nil
}

func (s *JobStore) Get(ctx context.Context, id uuid.UUID) (*model.Job, error) {
	job := model.Job{ID: id}
	result := s.getDB(ctx).First(&job)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, result.Error
	}
	return &job, nil
}

func (s *JobStore) List(ctx context.Context) (model.JobList, error) {
	var jobs model.JobList
	result := s.getDB(ctx).Order("created_at").Find(&jobs)
	if result.Error != nil {
		return nil, result.Error
	}
	return jobs, nil
}

func (s *JobStore) MarkProcessing(ctx context.Context, id uuid.UUID, total int) (*model.Job, error) {
	now := time.Now().UTC()
	return s.guardedUpdate(ctx, id, []model.JobStatus{model.JobStatusPending}, map[string]any{
		"status":     model.JobStatusProcessing,
		"total_rows": total,
		"started_at": &now,
	})
}

func (s *JobStore) MarkCompleted(ctx context.Context, id uuid.UUID, averageScore float64) (*model.Job, error) {
	now := time.Now().UTC()
	return s.guardedUpdate(ctx, id, []model.JobStatus{model.JobStatusProcessing}, map[string]any{
		"status":        model.JobStatusCompleted,
		"average_score": averageScore,
		"finished_at":   &now,
	})
}

func (s *JobStore) MarkFailed(ctx context.Context, id uuid.UUID, detail string) (*model.Job, error) {
	now := time.Now().UTC()
	return s.guardedUpdate(ctx, id, []model.JobStatus{model.JobStatusPending, model.JobStatusProcessing}, map[string]any{
		"status":      model.JobStatusFailed,
		"error":       detail,
		"finished_at": &now,
	})
}

// guardedUpdate applies updates only when the job is in one of the expected
// source states. The single UPDATE statement makes the transition atomic:
// losers of a race observe zero affected rows.
func (s *JobStore) guardedUpdate(ctx context.Context, id uuid.UUID, from []model.JobStatus, updates map[string]any) (*model.Job, error) {
	db := s.getDB(ctx)
	result := db.Model(&model.Job{}).
		Where("id = ? AND status IN ?", id, from).
		Updates(updates)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		job := model.Job{ID: id}
		if err := db.First(&job).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrRecordNotFound
			}
			return nil, err
		}
		return &job, ErrInvalidTransition
	}

	job := model.Job{ID: id}
	if err := db.First(&job).Error; err != nil {
		return nil, err
	}
	return &job, nil
}

func (s *JobStore) IncrementProgress(ctx context.Context, id uuid.UUID) error {
	result := s.getDB(ctx).Model(&model.Job{}).
		Where("id = ? AND status = ? AND processed_rows < total_rows", id, model.JobStatusProcessing).
		Update("processed_rows", gorm.Expr("processed_rows + 1"))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrInvalidTransition
	}
	return nil
}

func (s *JobStore) ActiveFileIDs(ctx context.Context) (map[uuid.UUID]struct{}, error) {
	var ids []uuid.UUID
	result := s.getDB(ctx).Model(&model.Job{}).
		Where("status IN ?", []model.JobStatus{model.JobStatusPending, model.JobStatusProcessing}).
		Distinct().
		Pluck("file_id", &ids)
	if result.Error != nil {
		return nil, result.Error
	}
	active := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		active[id] = struct{}{}
	}
	return active, nil
}

func (s *JobStore) ListCreatedBefore(ctx context.Context, cutoff time.Time) (model.JobList, error) {
	var jobs model.JobList
	result := s.getDB(ctx).Where("created_at < ?", cutoff).Order("created_at").Find(&jobs)
	if result.Error != nil {
		return nil, result.Error
	}
	return jobs, nil
}

func (s *JobStore) Delete(ctx context.Context, id uuid.UUID) error {
	result := s.getDB(ctx).Unscoped().Delete(&model.Job{ID: id})
	if result.Error != nil && !errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return result.Error
	}
	return nil
}

func (s *JobStore) getDB(ctx context.Context) *gorm.DB {
	tx := FromContext(ctx)
	if tx != nil {
		return tx
	}
	return s.db
}
