package telemetry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"mercator-hq/webserv/pkg/config"
	"mercator-hq/webserv/pkg/telemetry/health"
	"mercator-hq/webserv/pkg/telemetry/logging"
	"mercator-hq/webserv/pkg/telemetry/metrics"
	"mercator-hq/webserv/pkg/telemetry/tracing"
)

// Telemetry owns the process-wide observability components.
type Telemetry struct {
	logger  *slog.Logger
	metrics *metrics.Collector
	tracer  *tracing.Tracer
	health  *health.Checker
}

// New configures the default logger, the tracer and, when enabled, the
// metrics collector. The health checker always exists.
func New(cfg config.TelemetryConfig, version string) (*Telemetry, error) {
	logger, err := logging.Setup(logging.FromConfig(cfg.Logging))
	if err != nil {
		return nil, fmt.Errorf("failed to set up logging: %w", err)
	}

	tracer, err := tracing.New(cfg.Tracing, version)
	if err != nil {
		return nil, fmt.Errorf("failed to set up tracing: %w", err)
	}

	t := &Telemetry{
		logger: logger,
		tracer: tracer,
		health: health.New(2 * time.Second),
	}
	if cfg.Metrics.Enabled {
		t.metrics = metrics.NewCollector(cfg.Metrics, nil)
	}
	return t, nil
}

// Logger returns the configured logger.
func (t *Telemetry) Logger() *slog.Logger { return t.logger }

// Metrics returns the collector, or nil when metrics are disabled.
func (t *Telemetry) Metrics() *metrics.Collector { return t.metrics }

// Tracer returns the tracer.
func (t *Telemetry) Tracer() *tracing.Tracer { return t.tracer }

// Health returns the health checker.
func (t *Telemetry) Health() *health.Checker { return t.health }

// Shutdown flushes pending spans.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	if err := t.tracer.Shutdown(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("failed to shut down tracer: %w", err)
	}
	return nil
}
