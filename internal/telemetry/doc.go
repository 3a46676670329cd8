// Package telemetry turns telemetry definition documents into generated
// data point values for synthetic devices.
//
// A telemetry document lists data points with their unit and bounds, plus
// optional generation rules and groups of special devices (alarm, vibration
// warning, stopped, offline) whose values are forced after generation.
//
// Each device draws from its own random stream seeded from a hash of the
// device name, so two generators with the same seed produce the same
// sequence for the same device regardless of device order.
//
// # Thread Safety
//
// Generator is safe for concurrent use. Config is read-only after FromDocument.
package telemetry
