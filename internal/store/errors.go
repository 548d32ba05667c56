package store

import "errors"

// Sentinel errors returned by store implementations. Services translate
// these into the domain error taxonomy at the boundary.
var (
	// ErrNotFound indicates the requested row does not exist.
	ErrNotFound = errors.New("store: not found")

	// ErrConflict indicates a uniqueness rule would be violated, e.g. a slot
	// already reserved by a different holder.
	ErrConflict = errors.New("store: conflict")
)
