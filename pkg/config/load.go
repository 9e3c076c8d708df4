package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// LoadConfig loads configuration from a YAML file at the specified path.
// It applies default values, validates the configuration, and returns any
// errors. The configuration is not modified by environment variables; use
// LoadConfigWithEnvOverrides for that functionality.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	cfg.ApplyDefaults()

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration from a YAML file and applies
// environment variable overrides. Environment variables follow the naming
// convention VESTIBULE_SECTION_FIELD (e.g., VESTIBULE_ADMIN_LISTEN_ADDRESS).
// Environment variables always take precedence over file-based configuration.
//
// The loading sequence is:
// 1. Load YAML from file
// 2. Apply default values
// 3. Apply environment variable overrides
// 4. Validate final configuration
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed after environment overrides: %w", err)
	}

	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides to the
// configuration. Environment variables use the format VESTIBULE_SECTION_FIELD.
// Per-host settings are file-only; overrides cover the scalar sections.
func applyEnvOverrides(cfg *Config) {
	// Server overrides
	if val := os.Getenv("VESTIBULE_SERVER_READ_HEADER_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Server.ReadHeaderTimeout = d
		}
	}
	if val := os.Getenv("VESTIBULE_SERVER_READ_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Server.ReadTimeout = d
		}
	}
	if val := os.Getenv("VESTIBULE_SERVER_WRITE_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Server.WriteTimeout = d
		}
	}
	if val := os.Getenv("VESTIBULE_SERVER_IDLE_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Server.IdleTimeout = d
		}
	}
	if val := os.Getenv("VESTIBULE_SERVER_HANDSHAKE_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Server.HandshakeTimeout = d
		}
	}
	if val := os.Getenv("VESTIBULE_SERVER_DRAIN_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Server.DrainTimeout = d
		}
	}
	if val := os.Getenv("VESTIBULE_SERVER_MAX_HEADER_BYTES"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			cfg.Server.MaxHeaderBytes = i
		}
	}

	// Access log overrides
	if val := os.Getenv("VESTIBULE_ACCESS_LOG_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.AccessLog.Enabled = &b
		}
	}
	if val := os.Getenv("VESTIBULE_ACCESS_LOG_BACKEND"); val != "" {
		cfg.AccessLog.Backend = val
	}
	if val := os.Getenv("VESTIBULE_ACCESS_LOG_SQLITE_PATH"); val != "" {
		cfg.AccessLog.SQLite.Path = val
	}
	if val := os.Getenv("VESTIBULE_ACCESS_LOG_BUFFER_SIZE"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			cfg.AccessLog.BufferSize = i
		}
	}
	if val := os.Getenv("VESTIBULE_ACCESS_LOG_RETENTION_DAYS"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			cfg.AccessLog.Retention.Days = i
		}
	}
	if val := os.Getenv("VESTIBULE_ACCESS_LOG_RETENTION_SCHEDULE"); val != "" {
		cfg.AccessLog.Retention.Schedule = val
	}

	// Telemetry overrides
	if val := os.Getenv("VESTIBULE_TELEMETRY_LOGGING_LEVEL"); val != "" {
		cfg.Telemetry.Logging.Level = val
	}
	if val := os.Getenv("VESTIBULE_TELEMETRY_LOGGING_FORMAT"); val != "" {
		cfg.Telemetry.Logging.Format = val
	}
	if val := os.Getenv("VESTIBULE_TELEMETRY_LOGGING_OUTPUT"); val != "" {
		cfg.Telemetry.Logging.Output = val
	}
	if val := os.Getenv("VESTIBULE_TELEMETRY_METRICS_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Telemetry.Metrics.Enabled = b
		}
	}
	if val := os.Getenv("VESTIBULE_TELEMETRY_TRACING_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Telemetry.Tracing.Enabled = b
		}
	}
	if val := os.Getenv("VESTIBULE_TELEMETRY_TRACING_ENDPOINT"); val != "" {
		cfg.Telemetry.Tracing.Endpoint = val
	}
	if val := os.Getenv("VESTIBULE_TELEMETRY_TRACING_SAMPLE_RATIO"); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			cfg.Telemetry.Tracing.SampleRatio = f
		}
	}

	// Rate limit overrides
	if val := os.Getenv("VESTIBULE_LIMITS_RATE_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Limits.Rate.Enabled = b
		}
	}
	if val := os.Getenv("VESTIBULE_LIMITS_RATE_REQUESTS_PER_SECOND"); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			cfg.Limits.Rate.RequestsPerSecond = f
		}
	}
	if val := os.Getenv("VESTIBULE_LIMITS_RATE_BURST"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			cfg.Limits.Rate.Burst = i
		}
	}

	// Admin overrides
	if val := os.Getenv("VESTIBULE_ADMIN_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Admin.Enabled = b
		}
	}
	if val := os.Getenv("VESTIBULE_ADMIN_LISTEN_ADDRESS"); val != "" {
		cfg.Admin.ListenAddress = val
	}
}
