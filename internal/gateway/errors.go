package gateway

import "errors"

var (
	// ErrNoTransport is returned when a Publisher has no MQTT transport.
	ErrNoTransport = errors.New("gateway: no transport")

	// ErrPartialPublish is returned when some messages of a batch failed.
	// The wrapped message names how many.
	ErrPartialPublish = errors.New("gateway: some messages failed")
)
