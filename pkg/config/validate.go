package config

import (
	"fmt"
	"net"
	"strings"

	"github.com/robfig/cron/v3"
)

// FieldError represents a validation error for a specific configuration field.
type FieldError struct {
	// Field is the dotted path to the field (e.g., "server.read_chunk_size").
	Field string

	// Message is a human-readable error message.
	Message string
}

// Error returns the error message for this field error.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError collects every FieldError found in a configuration.
type ValidationError struct {
	Errors []FieldError
}

// Error returns a formatted string containing all validation errors.
func (e ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "configuration validation failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration validation failed: %s", e.Errors[0].Error())
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "configuration validation failed with %d errors:\n", len(e.Errors))
	for _, err := range e.Errors {
		fmt.Fprintf(&sb, "  - %s\n", err.Error())
	}
	return sb.String()
}

// Validate checks the whole configuration and returns a ValidationError
// holding every problem found, or nil.
func Validate(cfg *Config) error {
	var errs []FieldError

	errs = append(errs, validateServer(&cfg.Server)...)
	errs = append(errs, validateCGI(&cfg.CGI)...)
	errs = append(errs, validateAccessLog(&cfg.AccessLog)...)
	errs = append(errs, validateTelemetry(&cfg.Telemetry)...)
	errs = append(errs, validateAdmin(&cfg.Admin)...)

	if cfg.Watch.Debounce < 0 {
		errs = append(errs, FieldError{Field: "watch.debounce", Message: "debounce must be non-negative"})
	}

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}
	return nil
}

func validateServer(cfg *ServerConfig) []FieldError {
	var errs []FieldError

	if cfg.SiteFile == "" {
		errs = append(errs, FieldError{Field: "server.site_file", Message: "site file is required"})
	}
	if cfg.ReadChunkSize <= 0 {
		errs = append(errs, FieldError{Field: "server.read_chunk_size", Message: "read chunk size must be positive"})
	}
	if cfg.ListenBacklog <= 0 {
		errs = append(errs, FieldError{Field: "server.listen_backlog", Message: "listen backlog must be positive"})
	}
	if cfg.MaxHeaderBytes <= 0 {
		errs = append(errs, FieldError{Field: "server.max_header_bytes", Message: "max header bytes must be positive"})
	}
	if cfg.MaxHeaderBytes > 10*1024*1024 {
		errs = append(errs, FieldError{Field: "server.max_header_bytes", Message: "max header bytes exceeds reasonable limit (10MB)"})
	}
	if cfg.WriteTimeout < 0 {
		errs = append(errs, FieldError{Field: "server.write_timeout", Message: "write timeout must be non-negative"})
	}
	if cfg.ShutdownTimeout < 0 {
		errs = append(errs, FieldError{Field: "server.shutdown_timeout", Message: "shutdown timeout must be non-negative"})
	}
	return errs
}

func validateCGI(cfg *CGIConfig) []FieldError {
	var errs []FieldError

	if cfg.Timeout < 0 {
		errs = append(errs, FieldError{Field: "cgi.timeout", Message: "timeout must be non-negative"})
	}
	if cfg.MaxOutputBytes <= 0 {
		errs = append(errs, FieldError{Field: "cgi.max_output_bytes", Message: "max output bytes must be positive"})
	}
	for ext := range cfg.Interpreters {
		if strings.TrimPrefix(ext, ".") == "" {
			errs = append(errs, FieldError{Field: "cgi.interpreters", Message: "empty extension"})
		}
	}
	return errs
}

func validateAccessLog(cfg *AccessLogConfig) []FieldError {
	var errs []FieldError
	if !cfg.Enabled {
		return nil
	}

	switch cfg.Backend {
	case "sqlite", "sqlite-pure":
		if cfg.Path == "" {
			errs = append(errs, FieldError{Field: "access_log.path", Message: "path is required for sqlite backends"})
		}
	case "memory":
	default:
		errs = append(errs, FieldError{
			Field:   "access_log.backend",
			Message: fmt.Sprintf("invalid backend %q: must be 'sqlite', 'sqlite-pure' or 'memory'", cfg.Backend),
		})
	}
	if cfg.BufferSize <= 0 {
		errs = append(errs, FieldError{Field: "access_log.buffer_size", Message: "buffer size must be positive"})
	}
	if cfg.Retention.Days < 0 {
		errs = append(errs, FieldError{Field: "access_log.retention.days", Message: "retention days must be non-negative"})
	}
	if cfg.Retention.Days > 0 {
		if _, err := cron.ParseStandard(cfg.Retention.Schedule); err != nil {
			errs = append(errs, FieldError{
				Field:   "access_log.retention.schedule",
				Message: fmt.Sprintf("invalid cron expression %q: %v", cfg.Retention.Schedule, err),
			})
		}
	}
	return errs
}

func validateTelemetry(cfg *TelemetryConfig) []FieldError {
	var errs []FieldError

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(cfg.Logging.Level)] {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.level",
			Message: fmt.Sprintf("invalid logging level %q: must be 'debug', 'info', 'warn', or 'error'", cfg.Logging.Level),
		})
	}
	if cfg.Logging.Format != "json" && cfg.Logging.Format != "text" {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.format",
			Message: fmt.Sprintf("invalid logging format %q: must be 'json' or 'text'", cfg.Logging.Format),
		})
	}

	if cfg.Metrics.Enabled && !strings.HasPrefix(cfg.Metrics.Path, "/") {
		errs = append(errs, FieldError{Field: "telemetry.metrics.path", Message: "metrics path must start with '/'"})
	}

	if cfg.Tracing.Enabled && cfg.Tracing.Endpoint == "" {
		errs = append(errs, FieldError{
			Field:   "telemetry.tracing.endpoint",
			Message: "tracing endpoint is required when tracing is enabled",
		})
	}
	switch cfg.Tracing.Sampler {
	case "always", "never", "ratio", "parent_ratio":
	default:
		errs = append(errs, FieldError{
			Field:   "telemetry.tracing.sampler",
			Message: fmt.Sprintf("invalid sampler %q", cfg.Tracing.Sampler),
		})
	}
	if cfg.Tracing.SampleRatio < 0 || cfg.Tracing.SampleRatio > 1.0 {
		errs = append(errs, FieldError{
			Field:   "telemetry.tracing.sample_ratio",
			Message: "sample ratio must be between 0.0 and 1.0",
		})
	}
	return errs
}

func validateAdmin(cfg *AdminConfig) []FieldError {
	var errs []FieldError
	if !cfg.Enabled {
		return nil
	}
	if _, _, err := net.SplitHostPort(cfg.ListenAddress); err != nil {
		errs = append(errs, FieldError{
			Field:   "admin.listen_address",
			Message: fmt.Sprintf("invalid listen address %q: %v", cfg.ListenAddress, err),
		})
	}
	if !strings.HasPrefix(cfg.LivenessPath, "/") {
		errs = append(errs, FieldError{Field: "admin.liveness_path", Message: "path must start with '/'"})
	}
	if !strings.HasPrefix(cfg.ReadinessPath, "/") {
		errs = append(errs, FieldError{Field: "admin.readiness_path", Message: "path must start with '/'"})
	}
	if cfg.LivenessPath == cfg.ReadinessPath {
		errs = append(errs, FieldError{Field: "admin.readiness_path", Message: "liveness and readiness paths must differ"})
	}
	for i, tok := range cfg.AuthTokens {
		if strings.TrimSpace(tok) == "" {
			errs = append(errs, FieldError{Field: fmt.Sprintf("admin.auth_tokens[%d]", i), Message: "token must not be empty"})
		}
	}
	return errs
}
