package core

import "errors"

// Common errors.
var (
	// ErrInvalidArgument marks caller misuse: missing identifiers, unknown
	// decisions, malformed namespaces.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrNotInitialized is returned when a Coordinator is used before
	// Initialize.
	ErrNotInitialized = errors.New("coordinator is not initialized")

	// ErrNamespaceMismatch is returned when an operation names a namespace
	// other than the one the Coordinator owns.
	ErrNamespaceMismatch = errors.New("namespace does not match coordinator")

	ErrReadOnly = errors.New("store is in read-only mode")
)
