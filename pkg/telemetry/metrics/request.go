package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// RequestMetrics tracks answered HTTP requests.
type RequestMetrics struct {
	total        *prometheus.CounterVec
	duration     *prometheus.HistogramVec
	responseSize prometheus.Histogram
	requestSize  prometheus.Histogram
}

// NewRequestMetrics creates and registers request metrics.
func NewRequestMetrics(namespace string, registry *prometheus.Registry) *RequestMetrics {
	rm := &RequestMetrics{
		total: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Total number of answered HTTP requests",
			},
			[]string{"method", "status", "server"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "Time from a complete request to a written response",
				Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 30},
			},
			[]string{"method"},
		),
		responseSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "response_size_bytes",
			Help:      "Size of serialized responses in bytes",
			Buckets:   prometheus.ExponentialBuckets(256, 4, 10),
		}),
		requestSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_size_bytes",
			Help:      "Size of framed requests in bytes",
			Buckets:   prometheus.ExponentialBuckets(256, 4, 10),
		}),
	}

	registry.MustRegister(rm.total, rm.duration, rm.responseSize, rm.requestSize)
	return rm
}

// Record observes one request.
func (rm *RequestMetrics) Record(method, status, server string, d time.Duration, in, out int) {
	rm.total.WithLabelValues(method, status, server).Inc()
	rm.duration.WithLabelValues(method).Observe(d.Seconds())
	rm.requestSize.Observe(float64(in))
	rm.responseSize.Observe(float64(out))
}
