package telemetry

import "errors"

// Domain errors for the telemetry package.
var (
	// ErrInvalidConfig is returned when a telemetry document has the wrong shape.
	ErrInvalidConfig = errors.New("telemetry: invalid config")

	// ErrNoDataPoints is returned when a telemetry document has no data_points section.
	ErrNoDataPoints = errors.New("telemetry: no data points")
)
