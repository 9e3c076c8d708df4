// Package metrics provides Prometheus metrics for Atrium Vestibule.
//
// The Collector registers every metric family on a private registry and
// exposes it through a promhttp handler, typically mounted on the admin
// listener at /metrics.
//
// # Metric Families
//
// Request metrics (per virtual host):
//   - atrium_vestibule_requests_total{host, method, status}
//   - atrium_vestibule_request_duration_seconds{host, method}
//   - atrium_vestibule_response_bytes_total{host}
//
// Connection metrics (per listener):
//   - atrium_vestibule_connections_accepted_total{listener}
//   - atrium_vestibule_active_connections{listener}
//   - atrium_vestibule_handshake_failures_total{listener}
//   - atrium_vestibule_listener_up{listener}
//
// All recording methods are safe on a nil *Collector and on a collector
// whose configuration disables metrics, so call sites never need a guard.
package metrics
