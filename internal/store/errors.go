package store

import "errors"

var (
	ErrRecordNotFound = errors.New("record not found")
	ErrDuplicateKey   = errors.New("already exists")

	// ErrInvalidTransition is returned by guarded status updates when the
	// job is not in the expected source state. The state machine only moves
	// forward; callers must treat this as a contract violation, never retry.
	ErrInvalidTransition = errors.New("invalid job status transition")
)
