package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Measurement names written by tbattrs.
const (
	MeasurementTelemetry = "device_telemetry"
	MeasurementRun       = "render_runs"
)

// WriteTelemetry records one telemetry sample of a device. Each data point
// becomes a field; the device name and type are tags. Non-numeric values
// other than strings and booleans are skipped.
//
// Example:
//
//	client.WriteTelemetry("DW00000001", "EBMPAPST_FFU",
//	    map[string]any{"speed": 1450, "vibration": 1.2}, time.Now())
func (c *Client) WriteTelemetry(device, deviceType string, values map[string]any, ts time.Time) {
	if !c.IsConnected() {
		return
	}
	if p := telemetryPoint(device, deviceType, values, ts); p != nil {
		c.writeAPI.WritePoint(p)
	}
}

// WriteRun records the outcome of a plan run.
func (c *Client) WriteRun(scenario, environment string, entities, failed int, ts time.Time) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(runPoint(scenario, environment, entities, failed, ts))
}

// telemetryPoint builds the point for WriteTelemetry, or nil when no value
// can be stored as a field.
func telemetryPoint(device, deviceType string, values map[string]any, ts time.Time) *write.Point {
	fields := make(map[string]any, len(values))
	for k, v := range values {
		if f, ok := fieldValue(v); ok {
			fields[k] = f
		}
	}
	if len(fields) == 0 {
		return nil
	}

	tags := map[string]string{"device": device}
	if deviceType != "" {
		tags["device_type"] = deviceType
	}
	return write.NewPoint(MeasurementTelemetry, tags, fields, ts)
}

func runPoint(scenario, environment string, entities, failed int, ts time.Time) *write.Point {
	tags := map[string]string{"scenario": scenario}
	if environment != "" {
		tags["environment"] = environment
	}
	return write.NewPoint(MeasurementRun, tags,
		map[string]any{"entities": int64(entities), "failed": int64(failed)}, ts)
}

// fieldValue normalises a generated value into an InfluxDB field type.
// Integers are stored as float64 so a data point keeps one field type even
// when successive samples round differently.
func fieldValue(v any) (any, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	case bool, string:
		return n, true
	default:
		return nil, false
	}
}
