package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// JobStatus is the analysis job lifecycle state. Transitions only move
// forward: pending -> processing -> completed | failed.
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// Terminal reports whether the status admits no further processing.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// JobConfig is the caller-supplied analysis configuration, stored as jsonb
// on the job row.
type JobConfig struct {
	SampleSize     int      `json:"sample_size"`
	Dimensions     []string `json:"dimensions,omitempty"`
	QuantColumns   []string `json:"quant_columns,omitempty"`
	EnableFeedback bool     `json:"enable_feedback"`
	// TextMix overrides the engine-wide text/quantitative blend ratio when
	// non-zero.
	TextMix float64 `json:"text_mix,omitempty"`
}

// Job is one batch-analysis run over a subset of rows from one file. The
// orchestrator exclusively owns status mutation; everyone else only reads.
type Job struct {
	ID            uuid.UUID `gorm:"primaryKey;"`
	FileID        uuid.UUID `gorm:"not null;index"`
	Config        []byte    `gorm:"type:jsonb"`
	Status        JobStatus `gorm:"type:VARCHAR(16);not null;default:pending;index"`
	ProcessedRows int       `gorm:"not null;default:0"`
	TotalRows     int       `gorm:"not null;default:0"`
	Error         string
	AverageScore  *float64
	CreatedAt     time.Time
	StartedAt     *time.Time
	FinishedAt    *time.Time
	Results       []Result `gorm:"constraint:OnDelete:CASCADE;"`
}

type JobList []Job

func (j Job) String() string {
	val, _ := json.Marshal(struct {
		ID        uuid.UUID
		FileID    uuid.UUID
		Status    JobStatus
		Processed int
		Total     int
	}{j.ID, j.FileID, j.Status, j.ProcessedRows, j.TotalRows})
	return string(val)
}

// DecodeConfig decodes the stored analysis configuration.
func (j *Job) DecodeConfig() (JobConfig, error) {
	var cfg JobConfig
	if len(j.Config) == 0 {
		return cfg, nil
	}
	err := json.Unmarshal(j.Config, &cfg)
	return cfg, err
}

// Percent is the derived progress percentage.
func (j *Job) Percent() float64 {
	if j.TotalRows == 0 {
		return 0
	}
	return float64(j.ProcessedRows) / float64(j.TotalRows) * 100
}
