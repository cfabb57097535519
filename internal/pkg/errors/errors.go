package errors

import "errors"

var (
	// ErrNotFound is a generic sentinel for missing resources.
	ErrNotFound = errors.New("not found")
	// ErrInvalidArgument is a generic sentinel for invalid input.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrIllegalState signals an operation on a row whose status forbids it,
	// e.g. applying a queue row that is still pending.
	ErrIllegalState = errors.New("illegal state")
	// ErrVersionConflict signals an optimistic-lock failure: the record was
	// mutated concurrently and the caller should retry.
	ErrVersionConflict = errors.New("version conflict")
	// ErrSourceInUse signals an attempt to delete a source that still has
	// records referencing it.
	ErrSourceInUse = errors.New("source in use")
	// ErrUnauthorized is a generic sentinel for auth failures.
	ErrUnauthorized = errors.New("unauthorized")
)
