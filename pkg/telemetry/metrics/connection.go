package metrics

import "github.com/prometheus/client_golang/prometheus"

// ConnectionMetrics tracks client sockets.
type ConnectionMetrics struct {
	active       prometheus.Gauge
	total        prometheus.Counter
	acceptErrors prometheus.Counter
}

// NewConnectionMetrics creates and registers connection metrics.
func NewConnectionMetrics(namespace string, registry *prometheus.Registry) *ConnectionMetrics {
	cm := &ConnectionMetrics{
		active: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connections_active",
			Help:      "Client connections currently open",
		}),
		total: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "connections_total",
			Help:      "Client connections accepted",
		}),
		acceptErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "accept_errors_total",
			Help:      "Failed accept or registration attempts",
		}),
	}
	registry.MustRegister(cm.active, cm.total, cm.acceptErrors)
	return cm
}

func (cm *ConnectionMetrics) Opened() {
	cm.active.Inc()
	cm.total.Inc()
}

func (cm *ConnectionMetrics) Closed() { cm.active.Dec() }

func (cm *ConnectionMetrics) AcceptFailed() { cm.acceptErrors.Inc() }
