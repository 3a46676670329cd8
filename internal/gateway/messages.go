package gateway

// connectMessage is the v1/gateway/connect payload.
type connectMessage struct {
	Device string `json:"device"`
	Type   string `json:"type,omitempty"`
}

// disconnectMessage is the v1/gateway/disconnect payload.
type disconnectMessage struct {
	Device string `json:"device"`
}

// telemetryRecord is one timestamped sample in a v1/gateway/telemetry
// payload. TS is milliseconds since the Unix epoch.
type telemetryRecord struct {
	TS     int64          `json:"ts"`
	Values map[string]any `json:"values"`
}

type telemetryBatchEntry struct {
	device string
	values map[string]any
}
