package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "WEBSERV_"

// LoadConfig loads configuration from the YAML file at path, applies
// defaults and validates the result. Environment variables are not
// consulted; use LoadConfigWithEnvOverrides for that.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration from path and then applies
// WEBSERV_SECTION_FIELD environment overrides, for example
// WEBSERV_SERVER_SITE_FILE or WEBSERV_TELEMETRY_LOGGING_LEVEL.
// Environment variables take precedence over the file.
//
// A missing file is not an error: defaults plus overrides are returned.
// An empty path means "no file".
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	var cfg *Config
	if path == "" {
		cfg = Default()
	} else {
		loaded, err := LoadConfig(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			cfg = Default()
		case err != nil:
			return nil, err
		default:
			cfg = loaded
		}
	}

	applyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed after environment overrides: %w", err)
	}
	return cfg, nil
}

// applyEnvOverrides applies WEBSERV_* overrides. Values that fail to parse
// are ignored.
func applyEnvOverrides(cfg *Config) {
	// Server overrides
	envString("SERVER_SITE_FILE", &cfg.Server.SiteFile)
	envInt("SERVER_READ_CHUNK_SIZE", &cfg.Server.ReadChunkSize)
	envInt("SERVER_LISTEN_BACKLOG", &cfg.Server.ListenBacklog)
	envInt("SERVER_MAX_HEADER_BYTES", &cfg.Server.MaxHeaderBytes)
	envDuration("SERVER_WRITE_TIMEOUT", &cfg.Server.WriteTimeout)
	envDuration("SERVER_SHUTDOWN_TIMEOUT", &cfg.Server.ShutdownTimeout)

	// CGI overrides
	envDuration("CGI_TIMEOUT", &cfg.CGI.Timeout)
	if val := os.Getenv(EnvPrefix + "CGI_MAX_OUTPUT_BYTES"); val != "" {
		if n, err := strconv.ParseInt(val, 10, 64); err == nil {
			cfg.CGI.MaxOutputBytes = n
		}
	}

	// Access log overrides
	envBool("ACCESS_LOG_ENABLED", &cfg.AccessLog.Enabled)
	envString("ACCESS_LOG_BACKEND", &cfg.AccessLog.Backend)
	envString("ACCESS_LOG_PATH", &cfg.AccessLog.Path)
	envInt("ACCESS_LOG_BUFFER_SIZE", &cfg.AccessLog.BufferSize)
	envInt("ACCESS_LOG_RETENTION_DAYS", &cfg.AccessLog.Retention.Days)
	envString("ACCESS_LOG_RETENTION_SCHEDULE", &cfg.AccessLog.Retention.Schedule)

	// Telemetry overrides
	envString("TELEMETRY_LOGGING_LEVEL", &cfg.Telemetry.Logging.Level)
	envString("TELEMETRY_LOGGING_FORMAT", &cfg.Telemetry.Logging.Format)
	envBool("TELEMETRY_METRICS_ENABLED", &cfg.Telemetry.Metrics.Enabled)
	envString("TELEMETRY_METRICS_PATH", &cfg.Telemetry.Metrics.Path)
	envBool("TELEMETRY_TRACING_ENABLED", &cfg.Telemetry.Tracing.Enabled)
	envString("TELEMETRY_TRACING_ENDPOINT", &cfg.Telemetry.Tracing.Endpoint)
	envString("TELEMETRY_TRACING_SAMPLER", &cfg.Telemetry.Tracing.Sampler)
	if val := os.Getenv(EnvPrefix + "TELEMETRY_TRACING_SAMPLE_RATIO"); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			cfg.Telemetry.Tracing.SampleRatio = f
		}
	}
	envString("TELEMETRY_TRACING_SERVICE_NAME", &cfg.Telemetry.Tracing.ServiceName)
	envBool("TELEMETRY_TRACING_INSECURE", &cfg.Telemetry.Tracing.Insecure)

	// Admin overrides
	envBool("ADMIN_ENABLED", &cfg.Admin.Enabled)
	envString("ADMIN_LISTEN_ADDRESS", &cfg.Admin.ListenAddress)
	if val := os.Getenv(EnvPrefix + "ADMIN_AUTH_TOKEN"); val != "" {
		cfg.Admin.AuthTokens = []string{val}
	}

	// Watch overrides
	envBool("WATCH_ENABLED", &cfg.Watch.Enabled)
	envDuration("WATCH_DEBOUNCE", &cfg.Watch.Debounce)
}

func envString(key string, dst *string) {
	if val := os.Getenv(EnvPrefix + key); val != "" {
		*dst = val
	}
}

func envInt(key string, dst *int) {
	if val := os.Getenv(EnvPrefix + key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			*dst = i
		}
	}
}

func envBool(key string, dst *bool) {
	if val := os.Getenv(EnvPrefix + key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			*dst = b
		}
	}
}

func envDuration(key string, dst *time.Duration) {
	if val := os.Getenv(EnvPrefix + key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			*dst = d
		}
	}
}
