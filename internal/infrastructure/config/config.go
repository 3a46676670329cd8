package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for the tbattrs tool.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Attributes AttributesConfig `yaml:"attributes"`
	Database   DatabaseConfig   `yaml:"database"`
	MQTT       MQTTConfig       `yaml:"mqtt"`
	InfluxDB   InfluxDBConfig   `yaml:"influxdb"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// AttributesConfig locates the definition documents and tunes resolution.
type AttributesConfig struct {
	// Dir is the root of the asset/device definition tree
	// (assets/<type>.yaml, devices/<type>.yaml, <environment>/...).
	Dir string `yaml:"dir"`

	// TelemetryDir is the root of the telemetry definition tree.
	TelemetryDir string `yaml:"telemetry_dir"`

	// Environment selects overlay documents (dev, staging, prod).
	// Empty means base documents only.
	Environment string `yaml:"environment"`

	// Seed makes random draws reproducible. 0 seeds from the process.
	Seed uint64 `yaml:"seed"`

	// LegacyRandom enables whole-template sniffing for {random}.
	LegacyRandom bool `yaml:"legacy_random"`
}

// DatabaseConfig contains SQLite settings for the render manifest.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// MQTTConfig contains ThingsBoard gateway broker connection settings.
type MQTTConfig struct {
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
// ThingsBoard authenticates gateways by access token passed as the username.
type MQTTAuthConfig struct {
	AccessToken string `yaml:"access_token"`
	Password    string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
}

// InfluxDBConfig contains InfluxDB connection settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: TBATTRS_SECTION_KEY
// For example: TBATTRS_ATTRIBUTES_DIR, TBATTRS_MQTT_HOST.
// TB_ENV selects the attribute environment when TBATTRS_ATTRIBUTES_ENVIRONMENT is unset.
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// LoadOrDefault behaves like Load but falls back to defaults plus
// environment overrides when the file does not exist.
func LoadOrDefault(path string) (*Config, error) {
	if path != "" {
		cfg, err := Load(path)
		if err == nil || !errors.Is(err, fs.ErrNotExist) {
			return cfg, err
		}
	}

	cfg := Default()
	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Attributes: AttributesConfig{
			Dir:          "./configs/attributes",
			TelemetryDir: "./configs/telemetry",
		},
		Database: DatabaseConfig{
			Path:        "./data/manifest.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "tbattrs-gateway",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
		},
		InfluxDB: InfluxDBConfig{
			BatchSize:     100,
			FlushInterval: 10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: TBATTRS_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// Attributes
	if v := os.Getenv("TBATTRS_ATTRIBUTES_DIR"); v != "" {
		cfg.Attributes.Dir = v
	}
	if v := os.Getenv("TBATTRS_TELEMETRY_DIR"); v != "" {
		cfg.Attributes.TelemetryDir = v
	}
	if v := os.Getenv("TB_ENV"); v != "" {
		cfg.Attributes.Environment = v
	}
	if v := os.Getenv("TBATTRS_ATTRIBUTES_ENVIRONMENT"); v != "" {
		cfg.Attributes.Environment = v
	}
	if v := os.Getenv("TBATTRS_ATTRIBUTES_SEED"); v != "" {
		if seed, err := strconv.ParseUint(v, 10, 64); err == nil {
			cfg.Attributes.Seed = seed
		}
	}

	// Database
	if v := os.Getenv("TBATTRS_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// MQTT
	if v := os.Getenv("TBATTRS_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("TBATTRS_MQTT_ACCESS_TOKEN"); v != "" {
		cfg.MQTT.Auth.AccessToken = v
	}

	// InfluxDB
	if v := os.Getenv("TBATTRS_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}

	// Logging
	if v := os.Getenv("TBATTRS_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	if c.Attributes.Dir == "" {
		errs = append(errs, "attributes.dir is required")
	}
	if c.Attributes.TelemetryDir == "" {
		errs = append(errs, "attributes.telemetry_dir is required")
	}
	if strings.ContainsAny(c.Attributes.Environment, `/\`) {
		errs = append(errs, "attributes.environment must be a plain name")
	}

	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}
	if c.MQTT.Broker.Port < 1 || c.MQTT.Broker.Port > 65535 {
		errs = append(errs, "mqtt.broker.port must be between 1 and 65535")
	}

	if c.InfluxDB.Enabled && c.InfluxDB.URL == "" {
		errs = append(errs, "influxdb.url is required when influxdb is enabled")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}
