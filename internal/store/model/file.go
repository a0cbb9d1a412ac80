package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// ColumnRole classifies one uploaded column for the scoring pipeline.
type ColumnRole string

const (
	ColumnRoleUID          ColumnRole = "uid"
	ColumnRoleText         ColumnRole = "text"
	ColumnRoleQuantitative ColumnRole = "quantitative"
)

// File holds one uploaded table. Rows is the raw tabular payload as a JSON
// array of column->value objects; the store owns it exclusively and a File is
// immutable after creation except for deletion.
type File struct {
	ID         uuid.UUID `gorm:"primaryKey;"`
	Filename   string    `gorm:"not null"`
	TotalRows  int       `gorm:"not null"`
	Columns    []byte    `gorm:"type:jsonb"`
	Rows       []byte    `gorm:"type:jsonb"`
	UploadedAt time.Time
	Jobs       []Job `gorm:"constraint:OnDelete:CASCADE;"`
}

func (f File) String() string {
	val, _ := json.Marshal(struct {
		ID        uuid.UUID
		Filename  string
		TotalRows int
	}{f.ID, f.Filename, f.TotalRows})
	return string(val)
}

// ColumnRoles decodes the column classification payload.
func (f *File) ColumnRoles() (map[string]ColumnRole, error) {
	roles := map[string]ColumnRole{}
	if len(f.Columns) == 0 {
		return roles, nil
	}
	if err := json.Unmarshal(f.Columns, &roles); err != nil {
		return nil, err
	}
	return roles, nil
}

// DecodeRows decodes the raw tabular payload into row objects, preserving
// file order.
func (f *File) DecodeRows() ([]map[string]string, error) {
	var rows []map[string]string
	if len(f.Rows) == 0 {
		return rows, nil
	}
	if err := json.Unmarshal(f.Rows, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}
