package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// SiteMetrics tracks site file reloads.
type SiteMetrics struct {
	reloads    *prometheus.CounterVec
	lastReload prometheus.Gauge
}

// NewSiteMetrics creates and registers reload metrics.
func NewSiteMetrics(namespace string, registry *prometheus.Registry) *SiteMetrics {
	sm := &SiteMetrics{
		reloads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "site",
				Name:      "reloads_total",
				Help:      "Site file reload attempts by result",
			},
			[]string{"result"},
		),
		lastReload: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "site",
			Name:      "last_reload_timestamp_seconds",
			Help:      "Unix time of the last successful site reload",
		}),
	}
	registry.MustRegister(sm.reloads, sm.lastReload)
	return sm
}

// Record observes a reload attempt finished at now.
func (sm *SiteMetrics) Record(err error, now time.Time) {
	if err != nil {
		sm.reloads.WithLabelValues("error").Inc()
		return
	}
	sm.reloads.WithLabelValues("success").Inc()
	sm.lastReload.Set(float64(now.Unix()))
}
