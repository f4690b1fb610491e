package domain

import "errors"

var (
	// ErrValidation marks malformed input: a missing match snapshot or an
	// empty player list. Ingestion rejects the entire batch.
	ErrValidation = errors.New("validation failed")

	// ErrStorageUnavailable marks a transient backing-store fault. Callers
	// retry with backoff before treating it as fatal.
	ErrStorageUnavailable = errors.New("storage unavailable")

	// ErrNotFound is returned by read paths when no aggregate exists yet for
	// a key.
	ErrNotFound = errors.New("not found")
)
