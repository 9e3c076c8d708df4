// Package middleware provides HTTP middleware for cross-cutting
// concerns on the virtual-host listeners.
//
// # Middleware Chain
//
// Middleware is chained in a fixed order around the dispatcher:
//
//	handler = Recovery(RequestID(Logging(Metrics(Tracing(AccessLog(RateLimit(dispatcher)))))))
//
// Order (outermost to innermost):
//  1. Recovery: recover from panics, return 500
//  2. RequestID: generate and propagate X-Request-ID
//  3. Logging: structured request/response logs
//  4. Metrics: per-host Prometheus metrics
//  5. Tracing: one span per request
//  6. AccessLog: persist one record per request
//  7. RateLimit: per-client-IP token bucket
//
// # Route Info
//
// The dispatcher resolves the virtual host after the middleware has
// already run its pre-request half, so host and route labels flow back
// through a mutable RouteInfo struct placed in the request context by
// the Metrics and AccessLog middleware.
package middleware
