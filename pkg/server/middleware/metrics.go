package middleware

import (
	"net/http"
	"strconv"
	"time"

	"atrium-hq/vestibule/pkg/telemetry/metrics"
)

// MetricsMiddleware records per-host request metrics. The host label
// comes from the RouteInfo the dispatcher fills in; requests that match
// no virtual host are labeled "unknown" so refused traffic stays
// visible without unbounded label cardinality.
//
// Example usage:
//
//	handler = MetricsMiddleware(collector)(handler)
func MetricsMiddleware(collector *metrics.Collector) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			r, info := ensureRouteInfo(r)
			rw := newResponseWriter(w)

			next.ServeHTTP(rw, r)

			host := info.Host
			if host == "" {
				host = "unknown"
			}
			collector.RecordRequest(
				host,
				r.Method,
				strconv.Itoa(rw.statusCode),
				time.Since(start),
				rw.bytes,
			)
		})
	}
}
