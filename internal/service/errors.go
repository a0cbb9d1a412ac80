package service

import (
	"fmt"

	"github.com/google/uuid"
)

type ErrResourceNotFound struct {
	error
}

func NewErrResourceNotFound(id uuid.UUID, resourceType string) *ErrResourceNotFound {
	return &ErrResourceNotFound{fmt.Errorf("%s %s not found", resourceType, id)}
}

func NewErrFileNotFound(id uuid.UUID) *ErrResourceNotFound {
	return NewErrResourceNotFound(id, "file")
}

func NewErrJobNotFound(id uuid.UUID) *ErrResourceNotFound {
	return NewErrResourceNotFound(id, "job")
}

type ErrInvalidJobConfig struct {
	error
}

func NewErrInvalidJobConfig(message string) *ErrInvalidJobConfig {
	return &ErrInvalidJobConfig{fmt.Errorf("invalid job configuration: %s", message)}
}

type ErrInvalidTransition struct {
	error
}

func NewErrInvalidTransition(id uuid.UUID, status string) *ErrInvalidTransition {
	return &ErrInvalidTransition{fmt.Errorf("job %s cannot transition from status %q", id, status)}
}

type ErrEmptyFile struct {
	error
}

func NewErrEmptyFile(filename string) *ErrEmptyFile {
	return &ErrEmptyFile{fmt.Errorf("file %q contains no rows", filename)}
}
