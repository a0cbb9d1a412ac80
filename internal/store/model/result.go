package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Result is one scored record. Results are append-only: created once per
// processed row, never mutated or reordered afterwards.
type Result struct {
	ID              uuid.UUID `gorm:"primaryKey;"`
	JobID           uuid.UUID `gorm:"not null;index"`
	UID             string    `gorm:"not null"`
	HybridScore     float64   `gorm:"not null"`
	Grade           string    `gorm:"type:VARCHAR(16)"`
	Percentile      float64
	Confidence      float64
	DimensionScores []byte `gorm:"type:jsonb"`
	Details         []byte `gorm:"type:jsonb"`
	CreatedAt       time.Time
}

type ResultList []Result

func (r Result) String() string {
	val, _ := json.Marshal(struct {
		ID    uuid.UUID
		JobID uuid.UUID
		UID   string
		Score float64
		Grade string
	}{r.ID, r.JobID, r.UID, r.HybridScore, r.Grade})
	return string(val)
}

// DecodeDimensionScores decodes the per-dimension score mapping.
func (r *Result) DecodeDimensionScores() (map[string]float64, error) {
	scores := map[string]float64{}
	if len(r.DimensionScores) == 0 {
		return scores, nil
	}
	if err := json.Unmarshal(r.DimensionScores, &scores); err != nil {
		return nil, err
	}
	return scores, nil
}
