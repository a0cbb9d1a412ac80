package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/talentsight/analysis-engine/internal/store/model"
	"gorm.io/gorm"
)

type File interface {
	Create(ctx context.Context, file model.File) (*model.File, error)
	Get(ctx context.Context, id uuid.UUID) (*model.File, error)
	List(ctx context.Context) ([]model.File, error)
	ListUploadedBefore(ctx context.Context, cutoff time.Time) ([]model.File, error)
	Delete(ctx context.Context, id uuid.UUID) error
	InitialMigration() error
}

type FileStore struct {
	db *gorm.DB
}

// Make sure we conform to File interface
var _ File = (*FileStore)(nil)

func NewFileStore(db *gorm.DB) File {
	return &FileStore{db: db}
}

func (s *FileStore) InitialMigration() error {
	return s.db.AutoMigrate(&model.File{})
}

func (s *FileStore) Create(ctx context.Context, file model.File) (*model.File, error) {
	if file.UploadedAt.IsZero() {
		file.UploadedAt = time.Now().UTC()
	}
	result := s.getDB(ctx).Create(&file)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			return nil, ErrDuplicateKey
		}
		return nil, result.Error
	}
	return &file, nil
}

func (s *FileStore) Get(ctx context.Context, id uuid.UUID) (*model.File, error) {
	file := model.File{ID: id}
	result := s.getDB(ctx).First(&file)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, result.Error
	}
	return &file, nil
}

func (s *FileStore) List(ctx context.Context) ([]model.File, error) {
	var files []model.File
	result := s.getDB(ctx).Order("uploaded_at").Find(&files)
	if result.Error != nil {
		return nil, result.Error
	}
	return files, nil
}

func (s *FileStore) ListUploadedBefore(ctx context.Context, cutoff time.Time) ([]model.File, error) {
	var files []model.File
	result := s.getDB(ctx).Where("uploaded_at < ?", cutoff).Order("uploaded_at").Find(&files)
	if result.Error != nil {
		return nil, result.Error
	}
	return files, nil
}

func (s *FileStore) Delete(ctx context.Context, id uuid.UUID) error {
	result := s.getDB(ctx).Unscoped().Delete(&model.File{ID: id})
	if result.Error != nil && !errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return result.Error
	}
	return nil
}

func (s *FileStore) getDB(ctx context.Context) *gorm.DB {
	tx := FromContext(ctx)
	if tx != nil {
		return tx
	}
	return s.db
}
