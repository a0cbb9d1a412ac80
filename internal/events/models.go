package events

import (
	"time"

	"github.com/google/uuid"
)

// EventType discriminates the progress stream payloads.
type EventType string

const (
	// EventConnected is synthesized for a subscriber at join time with the
	// job's current snapshot, so late joiners do not start blind.
	EventConnected EventType = "connected"
	EventProgress  EventType = "progress"
	EventCompleted EventType = "completed"
	EventFailed    EventType = "failed"
	EventError     EventType = "error"
)

// Event is one message on a job's progress stream.
type Event struct {
	Type      EventType `json:"type"`
	JobID     uuid.UUID `json:"job_id"`
	Processed int       `json:"processed"`
	Total     int       `json:"total"`
	Percent   float64   `json:"percent"`
	Timestamp time.Time `json:"timestamp"`

	// Progress-specific fields.
	UID   string  `json:"uid,omitempty"`
	Score float64 `json:"score,omitempty"`

	// Terminal-event fields.
	AverageScore float64 `json:"average_score,omitempty"`
	Error        string  `json:"error,omitempty"`
}
