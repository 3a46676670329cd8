package manifest

import "errors"

var (
	// ErrRunNotFound is returned when a run ID does not exist or no run
	// has been recorded yet.
	ErrRunNotFound = errors.New("manifest: run not found")

	// ErrInvalidRun is returned when a run lacks its scenario name.
	ErrInvalidRun = errors.New("manifest: invalid run")
)
