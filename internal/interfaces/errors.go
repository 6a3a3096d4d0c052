package interfaces

import "errors"

// Storage sentinel errors shared across implementations
var (
	// ErrNotFound is returned when a requested record does not exist
	ErrNotFound = errors.New("record not found")

	// ErrDuplicate is returned when a uniqueness constraint would be violated
	// (source URL hash, posting per manuscript, tracking per posting)
	ErrDuplicate = errors.New("record already exists")
)
