package storage

import "errors"

// Sentinel errors surfaced per the storage error taxonomy (spec §7):
// I/O errors, constraint violations, schema-version regressions and
// dimension drift are all storage errors; none are retried.
var (
	ErrNotReady          = errors.New("storage: database is not ready")
	ErrClosed            = errors.New("storage: database is closed")
	ErrDimensionMismatch = errors.New("storage: embedding dimension does not match stored element count")
	ErrSchemaRegression  = errors.New("storage: on-disk schema version is newer than the binary's target version")
	ErrInvalidNode       = errors.New("storage: node fails an invariant (confidence/importance out of [0,1])")
)

// ErrNotFound is a sentinel for a missing row. Per spec §7, get on an
// unknown id returns empty, not an error: the getters return nil, nil,
// and no function in this package returns ErrNotFound.
var ErrNotFound = errors.New("storage: not found")
