package tracing

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Custom attribute keys use the "vestibule.*" namespace; HTTP attributes
// follow OpenTelemetry semantic conventions.
const (
	// AttrVirtualHost is the hostname of the virtual host that served
	// the request.
	AttrVirtualHost = "vestibule.virtual_host"

	// AttrListener is the listener key the request arrived on.
	AttrListener = "vestibule.listener"

	// AttrRoute is the path pattern the request matched.
	AttrRoute = "vestibule.route"

	// AttrRequestID is the request correlation ID.
	AttrRequestID = "vestibule.request_id"
)

// SetRequestAttributes sets the standard HTTP attributes on a span.
func SetRequestAttributes(span trace.Span, method, path, host string) {
	span.SetAttributes(
		attribute.String("http.method", method),
		attribute.String("http.target", path),
		attribute.String("http.host", host),
	)
}

// SetResponseAttributes records the response status on a span and sets
// the span status: 5xx responses mark the span as failed.
func SetResponseAttributes(span trace.Span, statusCode int) {
	span.SetAttributes(attribute.Int("http.status_code", statusCode))
	if statusCode >= 500 {
		span.SetStatus(codes.Error, "")
	} else {
		span.SetStatus(codes.Ok, "")
	}
}

// SetError records an error on the span and marks it failed.
func SetError(span trace.Span, err error) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
