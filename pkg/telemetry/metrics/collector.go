package metrics

import (
	"time"

	"atrium-hq/vestibule/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector owns every Prometheus metric family the server exports. It
// manages registration on a private registry and provides the recording
// interface used by the listeners and the request middleware.
//
// A nil Collector is valid and records nothing.
type Collector struct {
	config   *config.MetricsConfig
	registry *prometheus.Registry

	requestMetrics    *RequestMetrics
	connectionMetrics *ConnectionMetrics
}

// NewCollector creates a metrics collector with the specified
// configuration. If registry is nil, a fresh private registry is used.
//
// Example:
//
//	cfg := &config.MetricsConfig{Enabled: true}
//	collector := metrics.NewCollector(cfg, nil)
func NewCollector(cfg *config.MetricsConfig, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	if cfg.Namespace == "" {
		cfg.Namespace = "atrium"
	}
	if cfg.Subsystem == "" {
		cfg.Subsystem = "vestibule"
	}
	if len(cfg.RequestDurationBuckets) == 0 {
		// Front-end latencies: static files in single-digit ms, proxied
		// upstreams up to tens of seconds.
		cfg.RequestDurationBuckets = []float64{0.001, 0.005, 0.025, 0.1, 0.25, 0.5, 1.0, 2.5, 10.0, 30.0}
	}

	return &Collector{
		config:            cfg,
		registry:          registry,
		requestMetrics:    NewRequestMetrics(cfg, registry),
		connectionMetrics: NewConnectionMetrics(cfg, registry),
	}
}

// enabled reports whether this collector should record anything.
func (c *Collector) enabled() bool {
	return c != nil && c.config != nil && c.config.Enabled
}

// Registry returns the underlying Prometheus registry.
func (c *Collector) Registry() *prometheus.Registry {
	if c == nil {
		return nil
	}
	return c.registry
}

// RecordRequest records a completed request against its virtual host.
// status is the numeric response class as a string, e.g. "200".
func (c *Collector) RecordRequest(host, method, status string, duration time.Duration, responseBytes int64) {
	if !c.enabled() {
		return
	}
	c.requestMetrics.Record(host, method, status, duration, responseBytes)
}

// ConnectionAccepted counts a connection handed to a listener's HTTP
// server.
func (c *Collector) ConnectionAccepted(listener string) {
	if !c.enabled() {
		return
	}
	c.connectionMetrics.Accepted(listener)
}

// ConnectionClosed counts a connection leaving a listener.
func (c *Collector) ConnectionClosed(listener string) {
	if !c.enabled() {
		return
	}
	c.connectionMetrics.Closed(listener)
}

// HandshakeFailure counts a rejected TLS handshake on a listener.
func (c *Collector) HandshakeFailure(listener string) {
	if !c.enabled() {
		return
	}
	c.connectionMetrics.HandshakeFailed(listener)
}

// ListenerUp flips the up gauge for a listener's accept loop.
func (c *Collector) ListenerUp(listener string, up bool) {
	if !c.enabled() {
		return
	}
	c.connectionMetrics.SetUp(listener, up)
}
