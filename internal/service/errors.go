package service

import "errors"

// Error taxonomy surfaced to the transport layer. Anything else is an
// internal failure, logged with operation context and returned as-is.
var (
	// ErrNotFound: entity absent or excluded by soft delete.
	ErrNotFound = errors.New("not found")
	// ErrUnauthorized: caller is not a participant, or not the sender of
	// the message being mutated.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrInvalidOperation: structurally invalid request, e.g. a reply
	// target from another conversation or an empty search query.
	ErrInvalidOperation = errors.New("invalid operation")
)
