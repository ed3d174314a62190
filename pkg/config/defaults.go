package config

import "time"

// Default values for configuration fields.
const (
	// Server defaults
	DefaultSiteFile        = "webserv.conf"
	DefaultReadChunkSize   = 8192
	DefaultListenBacklog   = 128
	DefaultMaxHeaderBytes  = 64 << 10
	DefaultWriteTimeout    = 30 * time.Second
	DefaultShutdownTimeout = 10 * time.Second

	// CGI defaults
	DefaultCGITimeout        = 30 * time.Second
	DefaultCGIMaxOutputBytes = int64(16 << 20)

	// Access log defaults
	DefaultAccessLogBackend      = "sqlite"
	DefaultAccessLogPath         = "data/access.db"
	DefaultAccessLogBufferSize   = 1024
	DefaultAccessLogWriteTimeout = 5 * time.Second
	DefaultRetentionDays         = 30
	DefaultRetentionSchedule     = "0 3 * * *"

	// Telemetry defaults
	DefaultLoggingLevel       = "info"
	DefaultLoggingFormat      = "text"
	DefaultMetricsPath        = "/metrics"
	DefaultMetricsNamespace   = "webserv"
	DefaultTracingEndpoint    = "localhost:4317"
	DefaultTracingSampler     = "parent_ratio"
	DefaultTracingSampleRatio = 0.1
	DefaultTracingServiceName = "webserv"
	DefaultTracingTimeout     = 10 * time.Second

	// Admin defaults
	DefaultAdminListenAddress = "127.0.0.1:9100"
	DefaultLivenessPath       = "/health"
	DefaultReadinessPath      = "/ready"

	// Watch defaults
	DefaultWatchDebounce = 100 * time.Millisecond
)

// Default returns a Config with every default applied. It is what `run` uses
// when no webserv.yaml exists.
func Default() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults fills every zero-valued field with its default.
// It is idempotent. Booleans keep their zero value: every optional surface
// is off unless the file turns it on.
func ApplyDefaults(cfg *Config) {
	// Server defaults
	if cfg.Server.SiteFile == "" {
		cfg.Server.SiteFile = DefaultSiteFile
	}
	if cfg.Server.ReadChunkSize == 0 {
		cfg.Server.ReadChunkSize = DefaultReadChunkSize
	}
	if cfg.Server.ListenBacklog == 0 {
		cfg.Server.ListenBacklog = DefaultListenBacklog
	}
	if cfg.Server.MaxHeaderBytes == 0 {
		cfg.Server.MaxHeaderBytes = DefaultMaxHeaderBytes
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = DefaultWriteTimeout
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = DefaultShutdownTimeout
	}

	// CGI defaults
	if cfg.CGI.Timeout == 0 {
		cfg.CGI.Timeout = DefaultCGITimeout
	}
	if cfg.CGI.MaxOutputBytes == 0 {
		cfg.CGI.MaxOutputBytes = DefaultCGIMaxOutputBytes
	}

	// Access log defaults
	if cfg.AccessLog.Backend == "" {
		cfg.AccessLog.Backend = DefaultAccessLogBackend
	}
	if cfg.AccessLog.Path == "" {
		cfg.AccessLog.Path = DefaultAccessLogPath
	}
	if cfg.AccessLog.BufferSize == 0 {
		cfg.AccessLog.BufferSize = DefaultAccessLogBufferSize
	}
	if cfg.AccessLog.WriteTimeout == 0 {
		cfg.AccessLog.WriteTimeout = DefaultAccessLogWriteTimeout
	}
	if cfg.AccessLog.Retention.Days == 0 {
		cfg.AccessLog.Retention.Days = DefaultRetentionDays
	}
	if cfg.AccessLog.Retention.Schedule == "" {
		cfg.AccessLog.Retention.Schedule = DefaultRetentionSchedule
	}

	// Telemetry defaults
	if cfg.Telemetry.Logging.Level == "" {
		cfg.Telemetry.Logging.Level = DefaultLoggingLevel
	}
	if cfg.Telemetry.Logging.Format == "" {
		cfg.Telemetry.Logging.Format = DefaultLoggingFormat
	}
	if cfg.Telemetry.Metrics.Path == "" {
		cfg.Telemetry.Metrics.Path = DefaultMetricsPath
	}
	if cfg.Telemetry.Metrics.Namespace == "" {
		cfg.Telemetry.Metrics.Namespace = DefaultMetricsNamespace
	}
	if cfg.Telemetry.Tracing.Endpoint == "" {
		cfg.Telemetry.Tracing.Endpoint = DefaultTracingEndpoint
	}
	if cfg.Telemetry.Tracing.Sampler == "" {
		cfg.Telemetry.Tracing.Sampler = DefaultTracingSampler
	}
	if cfg.Telemetry.Tracing.SampleRatio == 0 {
		cfg.Telemetry.Tracing.SampleRatio = DefaultTracingSampleRatio
	}
	if cfg.Telemetry.Tracing.ServiceName == "" {
		cfg.Telemetry.Tracing.ServiceName = DefaultTracingServiceName
	}
	if cfg.Telemetry.Tracing.Timeout == 0 {
		cfg.Telemetry.Tracing.Timeout = DefaultTracingTimeout
	}

	// Admin defaults
	if cfg.Admin.ListenAddress == "" {
		cfg.Admin.ListenAddress = DefaultAdminListenAddress
	}
	if cfg.Admin.LivenessPath == "" {
		cfg.Admin.LivenessPath = DefaultLivenessPath
	}
	if cfg.Admin.ReadinessPath == "" {
		cfg.Admin.ReadinessPath = DefaultReadinessPath
	}

	// Watch defaults
	if cfg.Watch.Debounce == 0 {
		cfg.Watch.Debounce = DefaultWatchDebounce
	}
}
