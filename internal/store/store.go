package store

import (
	"context"

	"gorm.io/gorm"
)

type Store interface {
	NewTransactionContext(ctx context.Context) (context.Context, error)
	File() File
	Job() Job
	Result() Result
	InitialMigration() error
	Close() error
}

type DataStore struct {
	db     *gorm.DB
	file   File
	job    Job
	result Result
}

func NewStore(db *gorm.DB) Store {
	return &DataStore{
		file:   NewFileStore(db),
		job:    NewJobStore(db),
		result: NewResultStore(db),
		db:     db,
	}
}

func (s *DataStore) NewTransactionContext(ctx context.Context) (context.Context, error) {
	return newTransactionContext(ctx, s.db)
}

func (s *DataStore) File() File {
	return s.file
}

func (s *DataStore) Job() Job {
	return s.job
}

func (s *DataStore) Result() Result {
	return s.result
}

func (s *DataStore) InitialMigration() error {
	if err := s.file.InitialMigration(); err != nil {
		return err
	}
	if err := s.job.InitialMigration(); err != nil {
		return err
	}
	return s.result.InitialMigration()
}

func (s *DataStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
