// Package logging provides structured logging for tbattrs.
//
// This package wraps Go's standard log/slog package to provide
// consistent, structured logging across the tool.
//
// # Features
//
//   - JSON output for pipelines (machine-parsable)
//   - Text output for terminals (human-readable)
//   - Default fields (service, version) on all log entries
//   - Level-based filtering (debug, info, warn, error)
//
// # Configuration
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "text"     # json, text
//	  output: "stderr"   # stdout, stderr, discard
//
// # Usage
//
//	logger := logging.New(cfg.Logging, "1.0.0")
//	logger.Info("plan complete", "entities", 42)
//
// Never log gateway access tokens or InfluxDB tokens.
package logging
