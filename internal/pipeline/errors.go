package pipeline

import "errors"

var (
	// ErrStoreRead is returned when the Frontier cannot read the graph store.
	// The crawl cannot make progress without it, so the pipeline stops.
	ErrStoreRead = errors.New("graph store read failed")

	// ErrStoreUnavailable is returned when persistence failed for
	// MaxStoreFailures consecutive batches.
	ErrStoreUnavailable = errors.New("graph store unavailable")
)
