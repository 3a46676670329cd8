package influxdb

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/athena68/tb-performance-tests/internal/infrastructure/config"
)

// testConfig points at a local development InfluxDB.
func testConfig() config.InfluxDBConfig {
	return config.InfluxDBConfig{
		Enabled:       true,
		URL:           "http://127.0.0.1:8086",
		Token:         "tbattrs-dev-token",
		Org:           "tbattrs",
		Bucket:        "telemetry",
		BatchSize:     100,
		FlushInterval: 1,
	}
}

// connectOrSkip connects to the local InfluxDB or skips the test.
func connectOrSkip(t *testing.T) *Client {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping InfluxDB test in short mode")
	}
	client, err := Connect(testConfig())
	if err != nil {
		t.Skip("InfluxDB not available, skipping integration test")
	}
	return client
}

func TestConnect_Disabled(t *testing.T) {
	cfg := testConfig()
	cfg.Enabled = false

	if _, err := Connect(cfg); !errors.Is(err, ErrDisabled) {
		t.Errorf("Connect() error = %v, want ErrDisabled", err)
	}
}

func TestBatchSettings(t *testing.T) {
	tests := []struct {
		name                string
		batch, flush         int
		wantBatch, wantFlush uint
	}{
		{"configured", 500, 2, 500, 2},
		{"zero uses defaults", 0, 0, defaultBatchSize, defaultFlushInterval},
		{"negative uses defaults", -1, -5, defaultBatchSize, defaultFlushInterval},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			cfg.BatchSize, cfg.FlushInterval = tt.batch, tt.flush
			batch, flush := batchSettings(cfg)
			if batch != tt.wantBatch || flush != tt.wantFlush {
				t.Errorf("batchSettings() = %d, %d, want %d, %d", batch, flush, tt.wantBatch, tt.wantFlush)
			}
		})
	}
}

func TestTelemetryPoint(t *testing.T) {
	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	p := telemetryPoint("DW00000001", "EBMPAPST_FFU", map[string]any{
		"speed":     1450,
		"vibration": 1.2,
		"status":    "running",
		"alarm":     false,
		"ignored":   []any{1, 2},
		"missing":   nil,
	}, ts)
	if p == nil {
		t.Fatal("telemetryPoint() = nil")
	}

	if p.Name() != MeasurementTelemetry || !p.Time().Equal(ts) {
		t.Errorf("point = %s at %v", p.Name(), p.Time())
	}

	tags := map[string]string{}
	for _, tag := range p.TagList() {
		tags[tag.Key] = tag.Value
	}
	if tags["device"] != "DW00000001" || tags["device_type"] != "EBMPAPST_FFU" {
		t.Errorf("tags = %v", tags)
	}

	fields := map[string]any{}
	for _, f := range p.FieldList() {
		fields[f.Key] = f.Value
	}
	want := map[string]any{"speed": float64(1450), "vibration": 1.2, "status": "running", "alarm": false}
	if len(fields) != len(want) {
		t.Fatalf("fields = %v, want %v", fields, want)
	}
	for k, v := range want {
		if fields[k] != v {
			t.Errorf("field %s = %v (%T), want %v", k, fields[k], fields[k], v)
		}
	}
}

func TestTelemetryPoint_NoFields(t *testing.T) {
	// Offline devices publish nothing.
	if p := telemetryPoint("DW00000009", "", map[string]any{}, time.Now()); p != nil {
		t.Errorf("telemetryPoint() = %v, want nil", p)
	}
}

func TestRunPoint(t *testing.T) {
	p := runPoint("Cleanroom Fab", "", 19, 2, time.Now())

	if len(p.TagList()) != 1 {
		t.Errorf("empty environment should not be tagged: %v", p.TagList())
	}
	fields := map[string]any{}
	for _, f := range p.FieldList() {
		fields[f.Key] = f.Value
	}
	if fields["entities"] != int64(19) || fields["failed"] != int64(2) {
		t.Errorf("fields = %v", fields)
	}
}

func TestWrite_NotConnected(t *testing.T) {
	var c Client

	// Must not panic without a write API.
	c.WriteTelemetry("DW00000001", "EBMPAPST_FFU", map[string]any{"speed": 1}, time.Now())
	c.WriteRun("fab", "dev", 1, 0, time.Now())
	c.Flush()

	if err := c.HealthCheck(context.Background()); !errors.Is(err, ErrNotConnected) {
		t.Errorf("HealthCheck() error = %v, want ErrNotConnected", err)
	}
	if err := c.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

func TestWriteTelemetry_Integration(t *testing.T) {
	client := connectOrSkip(t)
	defer client.Close() //nolint:errcheck // Test cleanup

	var mu sync.Mutex
	var writeErr error
	client.SetOnError(func(err error) {
		mu.Lock()
		writeErr = err
		mu.Unlock()
	})

	client.WriteTelemetry("DW00000001", "EBMPAPST_FFU", map[string]any{"speed": 1450}, time.Now())
	client.WriteRun("test", "dev", 1, 0, time.Now())
	client.Flush()
	time.Sleep(100 * time.Millisecond)

	if err := client.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}
	mu.Lock()
	defer mu.Unlock()
	if writeErr != nil {
		t.Errorf("write error = %v", writeErr)
	}
}
