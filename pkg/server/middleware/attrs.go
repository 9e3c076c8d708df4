package middleware

import (
	"go.opentelemetry.io/otel/attribute"

	"atrium-hq/vestibule/pkg/telemetry/tracing"
)

// requestIDAttr builds the span attribute for the request ID.
func requestIDAttr(requestID string) attribute.KeyValue {
	return attribute.String(tracing.AttrRequestID, requestID)
}

// hostAttrs builds span attributes from dispatcher routing results.
func hostAttrs(info *RouteInfo) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String(tracing.AttrVirtualHost, info.Host),
	}
	if info.Route != "" {
		attrs = append(attrs, attribute.String(tracing.AttrRoute, info.Route))
	}
	return attrs
}
