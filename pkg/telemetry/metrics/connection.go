package metrics

import (
	"atrium-hq/vestibule/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// ConnectionMetrics tracks per-listener connection activity.
//
// Metrics:
//   - atrium_vestibule_connections_accepted_total: accepted connections
//   - atrium_vestibule_active_connections: currently open connections
//   - atrium_vestibule_handshake_failures_total: rejected TLS handshakes
//   - atrium_vestibule_listener_up: 1 while the accept loop runs
type ConnectionMetrics struct {
	accepted          *prometheus.CounterVec
	active            *prometheus.GaugeVec
	handshakeFailures *prometheus.CounterVec
	up                *prometheus.GaugeVec
}

// NewConnectionMetrics creates and registers connection metrics with the
// provided registry.
func NewConnectionMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *ConnectionMetrics {
	cm := &ConnectionMetrics{
		accepted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "connections_accepted_total",
				Help:      "Total connections accepted per listener",
			},
			[]string{"listener"},
		),

		active: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "active_connections",
				Help:      "Currently open connections per listener",
			},
			[]string{"listener"},
		),

		handshakeFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "handshake_failures_total",
				Help:      "TLS handshakes rejected per listener",
			},
			[]string{"listener"},
		),

		up: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "listener_up",
				Help:      "Whether the listener accept loop is running (1) or not (0)",
			},
			[]string{"listener"},
		),
	}

	registry.MustRegister(
		cm.accepted,
		cm.active,
		cm.handshakeFailures,
		cm.up,
	)

	return cm
}

// Accepted counts an accepted connection and raises the active gauge.
func (cm *ConnectionMetrics) Accepted(listener string) {
	cm.accepted.WithLabelValues(listener).Inc()
	cm.active.WithLabelValues(listener).Inc()
}

// Closed lowers the active gauge.
func (cm *ConnectionMetrics) Closed(listener string) {
	cm.active.WithLabelValues(listener).Dec()
}

// HandshakeFailed counts a rejected TLS handshake.
func (cm *ConnectionMetrics) HandshakeFailed(listener string) {
	cm.handshakeFailures.WithLabelValues(listener).Inc()
}

// SetUp records whether the listener's accept loop is running.
func (cm *ConnectionMetrics) SetUp(listener string, up bool) {
	v := 0.0
	if up {
		v = 1.0
	}
	cm.up.WithLabelValues(listener).Set(v)
}
