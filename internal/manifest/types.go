package manifest

import "time"

// Run is one rendering of a scenario.
type Run struct {
	ID          string     `json:"id"`
	Scenario    string     `json:"scenario"`
	Environment string     `json:"environment,omitempty"`
	Seed        uint64     `json:"seed,omitempty"`
	StartedAt   time.Time  `json:"started_at"`
	FinishedAt  *time.Time `json:"finished_at,omitempty"`
}

// Entity is a resolved asset or device stored against a run.
type Entity struct {
	RunID      string         `json:"run_id"`
	Seq        int            `json:"seq"`
	Name       string         `json:"name"`
	Level      string         `json:"level"`
	Type       string         `json:"type"`
	Label      string         `json:"label,omitempty"`
	Parent     string         `json:"parent,omitempty"`
	Attributes map[string]any `json:"attributes"`

	// Error is the resolution failure message, empty on success.
	Error string `json:"error,omitempty"`
}
