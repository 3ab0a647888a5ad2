package storage

import "errors"

// Common storage errors.
var (
	// ErrNotFound is returned when a session does not exist in the bucket.
	ErrNotFound = errors.New("session not found")
)
