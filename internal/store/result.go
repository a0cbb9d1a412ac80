package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/talentsight/analysis-engine/internal/store/model"
	"gorm.io/gorm"
)

type Result interface {
	// Create appends one result row. Callers run it inside a transaction
	// context together with Job.IncrementProgress so the append and the
	// counter bump land atomically.
	Create(ctx context.Context, result model.Result) (*model.Result, error)
	List(ctx context.Context, jobID uuid.UUID, offset, limit int) (model.ResultList, error)
	// Scores returns the composite scores of a job's results in append
	// order. The combiner ranks a new score against them.
	Scores(ctx context.Context, jobID uuid.UUID) ([]float64, error)
	Count(ctx context.Context, jobID uuid.UUID) (int64, error)
	UpdatePercentile(ctx context.Context, id uuid.UUID, percentile float64) error
	DeleteByJob(ctx context.Context, jobID uuid.UUID) error
	InitialMigration() error
}

type ResultStore struct {
	db *gorm.DB
}

// Make sure we conform to Result interface
var _ Result = (*ResultStore)(nil)

func NewResultStore(db *gorm.DB) Result {
	return &ResultStore{db: db}
}

func (s *ResultStore) InitialMigration() error {
	return s.db.AutoMigrate(&model.Result{})
}

func (s *ResultStore) Create(ctx context.Context, result model.Result) (*model.Result, error) {
	res := s.getDB(ctx).Create(&result)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
			return nil, ErrDuplicateKey
		}
		return nil, res.Error
	}
	return &result, nil
}

func (s *ResultStore) List(ctx context.Context, jobID uuid.UUID, offset, limit int) (model.ResultList, error) {
	var results model.ResultList
	q := s.getDB(ctx).Where("job_id = ?", jobID).Order("created_at, id")
	if offset > 0 {
		q = q.Offset(offset)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (s *ResultStore) Scores(ctx context.Context, jobID uuid.UUID) ([]float64, error) {
	var scores []float64
	result := s.getDB(ctx).Model(&model.Result{}).
		Where("job_id = ?", jobID).
		Order("created_at, id").
		Pluck("hybrid_score", &scores)
	if result.Error != nil {
		return nil, result.Error
	}
	return scores, nil
}

func (s *ResultStore) Count(ctx context.Context, jobID uuid.UUID) (int64, error) {
	var count int64
	result := s.getDB(ctx).Model(&model.Result{}).Where("job_id = ?", jobID).Count(&count)
	if result.Error != nil {
		return 0, result.Error
	}
	return count, nil
}

func (s *ResultStore) UpdatePercentile(ctx context.Context, id uuid.UUID, percentile float64) error {
	result := s.getDB(ctx).Model(&model.Result{}).Where("id = ?", id).Update("percentile", percentile)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrRecordNotFound
	}
	return nil
}

func (s *ResultStore) DeleteByJob(ctx context.Context, jobID uuid.UUID) error {
	result := s.getDB(ctx).Unscoped().Where("job_id = ?", jobID).Delete(&model.Result{})
	return result.Error
}

func (s *ResultStore) getDB(ctx context.Context) *gorm.DB {
	tx := FromContext(ctx)
	if tx != nil {
		return tx
	}
	return s.db
}
