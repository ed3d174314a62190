package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"mercator-hq/webserv/pkg/cgi"
	"mercator-hq/webserv/pkg/config"
	"mercator-hq/webserv/pkg/httpwire"
	"mercator-hq/webserv/pkg/server"
)

// maxServerLabels bounds the distinct values of the server label.
const maxServerLabels = 256

// Collector owns a registry and every webserv metric.
type Collector struct {
	namespace string
	registry  *prometheus.Registry

	requests *RequestMetrics
	conns    *ConnectionMetrics
	cgi      *CGIMetrics
	site     *SiteMetrics

	servers *CardinalityLimiter
}

var (
	_ server.RequestObserver    = (*Collector)(nil)
	_ server.ConnectionObserver = (*Collector)(nil)
	_ cgi.Observer              = (*Collector)(nil)
)

// NewCollector registers all metrics on registry, or on a fresh registry
// when nil. Go runtime and process collectors are registered too.
func NewCollector(cfg config.MetricsConfig, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	ns := cfg.Namespace
	if ns == "" {
		ns = config.DefaultMetricsNamespace
	}

	c := &Collector{
		namespace: ns,
		registry:  registry,
		requests:  NewRequestMetrics(ns, registry),
		conns:     NewConnectionMetrics(ns, registry),
		cgi:       NewCGIMetrics(ns, registry),
		site:      NewSiteMetrics(ns, registry),
		servers:   NewCardinalityLimiter(maxServerLabels),
	}
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return c
}

// ObserveRequest records one answered request.
func (c *Collector) ObserveRequest(ev *server.RequestEvent) {
	method := ev.Method
	if httpwire.ParseMethod(method) == httpwire.MethodUnknown {
		method = "OTHER"
	}
	srv := ev.ServerName
	if !c.servers.Allow(srv) {
		srv = "other"
	}
	c.requests.Record(method, strconv.Itoa(ev.Status), srv, ev.Duration, ev.BytesIn, ev.BytesOut)
}

// ConnectionOpened implements server.ConnectionObserver.
func (c *Collector) ConnectionOpened() { c.conns.Opened() }

// ConnectionClosed implements server.ConnectionObserver.
func (c *Collector) ConnectionClosed() { c.conns.Closed() }

// AcceptFailed implements server.ConnectionObserver.
func (c *Collector) AcceptFailed() { c.conns.AcceptFailed() }

// ObserveCGI implements cgi.Observer.
func (c *Collector) ObserveCGI(ext string, status int, d time.Duration) {
	if ext == "" {
		ext = "none"
	}
	c.cgi.Record(ext, strconv.Itoa(status), d)
}

// RecordReload records the outcome of a site file reload. Its signature
// matches sitewatch.Options.OnReload.
func (c *Collector) RecordReload(err error) {
	c.site.Record(err, time.Now())
}

// RegisterGaugeFunc exposes an externally owned value, such as the access
// log drop counter.
func (c *Collector) RegisterGaugeFunc(name, help string, fn func() float64) {
	c.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: c.namespace,
		Name:      name,
		Help:      help,
	}, fn))
}

// Registry returns the registry backing the collector.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// CardinalityLimiter admits at most a fixed number of distinct label values.
type CardinalityLimiter struct {
	max     int
	mu      sync.RWMutex
	current map[string]struct{}
}

// NewCardinalityLimiter creates a limiter admitting max values.
func NewCardinalityLimiter(max int) *CardinalityLimiter {
	return &CardinalityLimiter{max: max, current: make(map[string]struct{})}
}

// Allow reports whether value is, or can become, one of the admitted values.
func (cl *CardinalityLimiter) Allow(value string) bool {
	cl.mu.RLock()
	_, ok := cl.current[value]
	cl.mu.RUnlock()
	if ok {
		return true
	}

	cl.mu.Lock()
	defer cl.mu.Unlock()
	if _, ok := cl.current[value]; ok {
		return true
	}
	if len(cl.current) >= cl.max {
		return false
	}
	cl.current[value] = struct{}{}
	return true
}

// Count returns the number of admitted values.
func (cl *CardinalityLimiter) Count() int {
	cl.mu.RLock()
	defer cl.mu.RUnlock()
	return len(cl.current)
}
