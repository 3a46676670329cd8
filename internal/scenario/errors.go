package scenario

import "errors"

// Domain errors for the scenario package.
var (
	// ErrInvalidScenario is returned when a scenario file cannot be decoded
	// or lacks required fields.
	ErrInvalidScenario = errors.New("scenario: invalid")

	// ErrValidationFailed is returned by Report.Err when hierarchy rules are broken.
	ErrValidationFailed = errors.New("scenario: validation failed")
)
