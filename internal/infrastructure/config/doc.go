// Package config handles loading and validating tbattrs configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Overriding with environment variables (TBATTRS_*, TB_ENV)
//   - Validation of required fields
//   - Default value handling
//
// Security Considerations:
//   - The gateway access token and InfluxDB token should be set via environment variables
//   - The config file should have restricted permissions (0600)
//
// Usage:
//
//	cfg, err := config.LoadOrDefault("configs/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Attributes.Environment)
package config
