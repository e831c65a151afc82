package storage

import "errors"

// Errors shared by the run-scoped stores.
var (
	// ErrNotFound means the requested run or account row is not stored.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateKey means the run (or a trade_id within it) is already
	// stored. Runs are written once and never updated.
	ErrDuplicateKey = errors.New("duplicate key: run already stored")

	// ErrInvalidInput rejects writes without a run id or account id.
	ErrInvalidInput = errors.New("invalid input")
)
