package middleware

import (
	"context"
	"net/http"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

// Context keys for storing values in request context.
const (
	// RequestIDKey stores the unique request ID.
	RequestIDKey contextKey = "request_id"

	// StartTimeKey stores the request start time for latency calculation.
	StartTimeKey contextKey = "start_time"

	// RouteInfoKey stores the mutable RouteInfo written by the
	// dispatcher.
	RouteInfoKey contextKey = "route_info"
)

// RouteInfo carries routing results from the dispatcher back out to the
// surrounding middleware. The dispatcher fills it in while handling the
// request; the struct must not be shared across requests.
type RouteInfo struct {
	// Host is the virtual host that served the request, empty when no
	// host matched.
	Host string

	// Port is the listener port the request arrived on.
	Port uint16

	// Route is the matched path pattern, empty when no route matched.
	Route string
}

// WithRouteInfo returns a context carrying a fresh RouteInfo.
func WithRouteInfo(ctx context.Context) (context.Context, *RouteInfo) {
	info := &RouteInfo{}
	return context.WithValue(ctx, RouteInfoKey, info), info
}

// RouteInfoFromContext returns the RouteInfo for this request, or nil
// when no metrics or access log middleware is installed.
func RouteInfoFromContext(ctx context.Context) *RouteInfo {
	info, _ := ctx.Value(RouteInfoKey).(*RouteInfo)
	return info
}

// ensureRouteInfo reuses an existing RouteInfo when an outer middleware
// already installed one, so metrics and access logging share a struct.
func ensureRouteInfo(r *http.Request) (*http.Request, *RouteInfo) {
	if info := RouteInfoFromContext(r.Context()); info != nil {
		return r, info
	}
	ctx, info := WithRouteInfo(r.Context())
	return r.WithContext(ctx), info
}
