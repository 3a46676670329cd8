// Package influxdb mirrors generated device telemetry into InfluxDB v2.
//
// ThingsBoard receives telemetry over MQTT; this package writes the same
// samples to an InfluxDB bucket so load tests can be compared against what
// the platform stored. It wraps the official influxdb-client-go v2 library.
//
// # Usage
//
//	client, err := influxdb.Connect(cfg.InfluxDB)
//	if errors.Is(err, influxdb.ErrDisabled) {
//	    // mirroring is optional
//	}
//	defer client.Close()
//
//	client.WriteTelemetry("DW00000001", "EBMPAPST_FFU", values, time.Now())
//
// # Error Handling
//
// Writes are non-blocking and batched (batch_size, flush_interval);
// failures are delivered to the SetOnError callback. Connection and health
// check errors are returned directly.
package influxdb
