package service

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	"github.com/talentsight/analysis-engine/internal/store"
	"github.com/talentsight/analysis-engine/internal/store/model"
	"go.uber.org/zap"
)

// FileService is the ingestion collaborator's entry point: it registers
// already-decoded tabular data. Spreadsheet parsing happens upstream.
type FileService struct {
	store store.Store
	log   *zap.SugaredLogger
}

func NewFileService(s store.Store) *FileService {
	return &FileService{
		store: s,
		log:   zap.S().Named("file_service"),
	}
}

// CreateFile stores one decoded table. rows preserve source-file order;
// columns classify each column for the scoring pipeline.
func (s *FileService) CreateFile(ctx context.Context, filename string, rows []map[string]string, columns map[string]model.ColumnRole) (*model.File, error) {
	if len(rows) == 0 {
		return nil, NewErrEmptyFile(filename)
	}

	rawRows, err := json.Marshal(rows)
	if err != nil {
		return nil, err
	}
	rawColumns, err := json.Marshal(columns)
	if err != nil {
		return nil, err
	}

	file, err := s.store.File().Create(ctx, model.File{
		ID:        uuid.New(),
		Filename:  filename,
		TotalRows: len(rows),
		Columns:   rawColumns,
		Rows:      rawRows,
	})
	if err != nil {
		s.log.Errorw("failed to store file", "filename", filename, "error", err)
		return nil, err
	}

	s.log.Infow("file stored", "file_id", file.ID, "filename", filename, "rows", file.TotalRows)
	return file, nil
}

func (s *FileService) GetFile(ctx context.Context, id uuid.UUID) (*model.File, error) {
	file, err := s.store.File().Get(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return nil, NewErrFileNotFound(id)
		}
		return nil, err
	}
	return file, nil
}

func (s *FileService) ListFiles(ctx context.Context) ([]model.File, error) {
	return s.store.File().List(ctx)
}
