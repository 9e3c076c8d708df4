package metrics

import (
	"time"

	"atrium-hq/vestibule/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// RequestMetrics tracks per-virtual-host request processing.
//
// Metrics:
//   - atrium_vestibule_requests_total: request count by host, method, status
//   - atrium_vestibule_request_duration_seconds: duration histogram
//   - atrium_vestibule_response_bytes_total: response body bytes by host
type RequestMetrics struct {
	requestsTotal      *prometheus.CounterVec
	requestDuration    *prometheus.HistogramVec
	responseBytesTotal *prometheus.CounterVec
}

// NewRequestMetrics creates and registers request metrics with the
// provided registry.
func NewRequestMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *RequestMetrics {
	rm := &RequestMetrics{
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "requests_total",
				Help:      "Total number of HTTP requests routed to virtual hosts",
			},
			[]string{"host", "method", "status"},
		),

		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "request_duration_seconds",
				Help:      "Duration of HTTP requests in seconds",
				Buckets:   cfg.RequestDurationBuckets,
			},
			[]string{"host", "method"},
		),

		responseBytesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "response_bytes_total",
				Help:      "Total response body bytes written per virtual host",
			},
			[]string{"host"},
		),
	}

	registry.MustRegister(
		rm.requestsTotal,
		rm.requestDuration,
		rm.responseBytesTotal,
	)

	return rm
}

// Record records a completed request.
func (rm *RequestMetrics) Record(host, method, status string, duration time.Duration, responseBytes int64) {
	rm.requestsTotal.WithLabelValues(host, method, status).Inc()
	rm.requestDuration.WithLabelValues(host, method).Observe(duration.Seconds())
	if responseBytes > 0 {
		rm.responseBytesTotal.WithLabelValues(host).Add(float64(responseBytes))
	}
}
