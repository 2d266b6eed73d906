package store

import "errors"

// Sentinel errors. All of them are recoverable at the request boundary;
// handlers map them onto the structured API error envelope.
var (
	// ErrNotFound covers comments or reports that do not exist or are
	// already gone (including soft-deleted comments for mutating calls).
	ErrNotFound = errors.New("not found")

	// ErrNotOwner is returned when the caller is not the author of the
	// comment being edited or deleted.
	ErrNotOwner = errors.New("not the author")

	// ErrInvalidThreadDepth rejects a reply whose parent is itself a reply.
	ErrInvalidThreadDepth = errors.New("replies cannot be nested")

	// ErrConflict signals that a concurrent mutation invalidated an
	// assumption (e.g. a report left the OPEN state); callers retry.
	ErrConflict = errors.New("conflicting state")

	// ErrValidation rejects missing required text or unknown violation tags.
	ErrValidation = errors.New("invalid input")
)
