package repository

import "errors"

var (
	// ErrNotFound is returned when no record has the requested key.
	ErrNotFound = errors.New("record not found")

	// ErrConflict is returned when a uniqueness rule would be violated
	// (username, or task title within one owner at creation).
	ErrConflict = errors.New("record already exists")

	// ErrStale is returned by a conditional write whose precondition no longer
	// holds, e.g. a reminder that was moved, already notified or deleted.
	ErrStale = errors.New("record changed concurrently")
)
