package config

import "time"

// Config is the root of webserv.yaml, the process configuration. Virtual
// servers and locations live in the nginx-style site file; this file only
// carries runtime tuning and the observability surfaces around the server.
type Config struct {
	// Server tunes the event loop and names the site file.
	Server ServerConfig `yaml:"server"`

	// CGI controls script execution limits and the interpreter table.
	CGI CGIConfig `yaml:"cgi"`

	// AccessLog configures persistent per-request records.
	AccessLog AccessLogConfig `yaml:"access_log"`

	// Telemetry contains logging, metrics and tracing configuration.
	Telemetry TelemetryConfig `yaml:"telemetry"`

	// Admin configures the side listener serving metrics and health probes.
	Admin AdminConfig `yaml:"admin"`

	// Watch configures hot reload of the site file.
	Watch WatchConfig `yaml:"watch"`
}

// ServerConfig contains event loop tuning.
type ServerConfig struct {
	// SiteFile is the path of the nginx-style site file.
	// Default: "webserv.conf"
	SiteFile string `yaml:"site_file"`

	// ReadChunkSize is the number of bytes read per readiness event.
	// Default: 8192
	ReadChunkSize int `yaml:"read_chunk_size"`

	// ListenBacklog is the accept queue length passed to listen(2).
	// Default: 128
	ListenBacklog int `yaml:"listen_backlog"`

	// MaxHeaderBytes bounds the request line plus headers. Larger heads
	// are answered with 431.
	// Default: 65536
	MaxHeaderBytes int `yaml:"max_header_bytes"`

	// WriteTimeout bounds the time spent writing one response.
	// Default: 30s
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// ShutdownTimeout bounds graceful shutdown.
	// Default: 10s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// CGIConfig contains CGI execution settings.
type CGIConfig struct {
	// Timeout is the wall-clock limit for one script. Scripts running longer
	// are killed and answered with 504.
	// Default: 30s
	Timeout time.Duration `yaml:"timeout"`

	// MaxOutputBytes bounds the captured stdout of a script.
	// Default: 16777216 (16 MiB)
	MaxOutputBytes int64 `yaml:"max_output_bytes"`

	// Interpreters maps a file extension to the program that runs it.
	// An empty value executes the script directly. When unset, the built-in
	// table (.py, .pl, .sh, .rb, .php, .cgi) is used.
	Interpreters map[string]string `yaml:"interpreters"`
}

// AccessLogConfig contains access log settings.
type AccessLogConfig struct {
	// Enabled turns on access records.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Backend selects the storage backend.
	// Options: "sqlite" (cgo), "sqlite-pure", "memory"
	// Default: "sqlite"
	Backend string `yaml:"backend"`

	// Path is the database file for the sqlite backends.
	// Default: "data/access.db"
	Path string `yaml:"path"`

	// BufferSize is the capacity of the asynchronous write queue. Records
	// are dropped, never blocking the event loop, when it is full.
	// Default: 1024
	BufferSize int `yaml:"buffer_size"`

	// WriteTimeout bounds one storage write.
	// Default: 5s
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// Retention contains pruning settings.
	Retention RetentionConfig `yaml:"retention"`
}

// RetentionConfig contains access log retention settings.
type RetentionConfig struct {
	// Days is the age after which records are pruned. 0 keeps records forever.
	// Default: 30
	Days int `yaml:"days"`

	// Schedule is the cron expression driving the pruner.
	// Default: "0 3 * * *"
	Schedule string `yaml:"schedule"`
}

// TelemetryConfig contains observability configuration.
type TelemetryConfig struct {
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
	Tracing TracingConfig `yaml:"tracing"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level.
	// Options: "debug", "info", "warn", "error"
	// Default: "info"
	Level string `yaml:"level"`

	// Format controls the log output format.
	// Options: "json", "text"
	// Default: "text"
	Format string `yaml:"format"`

	// AddSource includes file and line in log entries.
	AddSource bool `yaml:"add_source"`
}

// MetricsConfig contains Prometheus settings.
type MetricsConfig struct {
	// Enabled registers the collector and exposes it on the admin listener.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Path is the HTTP path of the metrics endpoint.
	// Default: "/metrics"
	Path string `yaml:"path"`

	// Namespace is the metric name prefix.
	// Default: "webserv"
	Namespace string `yaml:"namespace"`
}

// TracingConfig contains OpenTelemetry settings.
type TracingConfig struct {
	// Enabled turns on span export.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Endpoint is the OTLP gRPC collector address.
	// Default: "localhost:4317"
	Endpoint string `yaml:"endpoint"`

	// Sampler determines the sampling strategy.
	// Options: "always", "never", "ratio", "parent_ratio"
	// Default: "parent_ratio"
	Sampler string `yaml:"sampler"`

	// SampleRatio is the fraction of traces sampled by the ratio samplers.
	// Default: 0.1
	SampleRatio float64 `yaml:"sample_ratio"`

	// ServiceName is reported as the service.name resource attribute.
	// Default: "webserv"
	ServiceName string `yaml:"service_name"`

	// Insecure disables TLS towards the collector.
	Insecure bool `yaml:"insecure"`

	// Timeout bounds one export.
	// Default: 10s
	Timeout time.Duration `yaml:"timeout"`
}

// AdminConfig configures the admin listener.
type AdminConfig struct {
	// Enabled starts the admin listener.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// ListenAddress is the address of the admin listener. It must not
	// collide with a site listener.
	// Default: "127.0.0.1:9100"
	ListenAddress string `yaml:"listen_address"`

	// LivenessPath is the path of the liveness probe.
	// Default: "/health"
	LivenessPath string `yaml:"liveness_path"`

	// ReadinessPath is the path of the readiness probe.
	// Default: "/ready"
	ReadinessPath string `yaml:"readiness_path"`

	// AuthTokens guards /accesslog with bearer tokens. Empty leaves it open.
	AuthTokens []string `yaml:"auth_tokens"`
}

// WatchConfig configures site file hot reload.
type WatchConfig struct {
	// Enabled turns on the file watcher.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Debounce coalesces bursts of file events.
	// Default: 100ms
	Debounce time.Duration `yaml:"debounce"`
}
