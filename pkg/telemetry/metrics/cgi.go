package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// CGIMetrics tracks script executions.
type CGIMetrics struct {
	executions *prometheus.CounterVec
	duration   *prometheus.HistogramVec
}

// NewCGIMetrics creates and registers CGI metrics.
func NewCGIMetrics(namespace string, registry *prometheus.Registry) *CGIMetrics {
	cm := &CGIMetrics{
		executions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "cgi",
				Name:      "executions_total",
				Help:      "CGI script runs by extension and resulting status",
			},
			[]string{"extension", "status"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "cgi",
				Name:      "duration_seconds",
				Help:      "Wall-clock duration of CGI script runs",
				Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			},
			[]string{"extension"},
		),
	}
	registry.MustRegister(cm.executions, cm.duration)
	return cm
}

// Record observes one run.
func (cm *CGIMetrics) Record(ext, status string, d time.Duration) {
	cm.executions.WithLabelValues(ext, status).Inc()
	cm.duration.WithLabelValues(ext).Observe(d.Seconds())
}
