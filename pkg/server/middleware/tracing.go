package middleware

import (
	"fmt"
	"net/http"

	"go.opentelemetry.io/otel/trace"

	"atrium-hq/vestibule/pkg/telemetry/tracing"
)

// TracingMiddleware opens one span per request, linked to any trace
// context the client propagated via W3C traceparent headers. The
// resolved virtual host and route are attached once the dispatcher has
// filled them in.
//
// Example usage:
//
//	handler = TracingMiddleware(tracer)(handler)
func TracingMiddleware(tracer *tracing.Tracer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if tracer == nil || !tracer.Enabled() {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := tracing.ExtractHTTP(r.Context(), r.Header)

			ctx, span := tracer.Start(ctx, fmt.Sprintf("%s %s", r.Method, r.URL.Path),
				trace.WithSpanKind(trace.SpanKindServer),
			)
			defer span.End()

			tracing.SetRequestAttributes(span, r.Method, r.URL.Path, r.Host)
			if requestID := GetRequestID(ctx); requestID != "" {
				span.SetAttributes(requestIDAttr(requestID))
			}

			r, info := ensureRouteInfo(r.WithContext(ctx))
			rw := newResponseWriter(w)

			next.ServeHTTP(rw, r)

			if info.Host != "" {
				span.SetAttributes(hostAttrs(info)...)
			}
			tracing.SetResponseAttributes(span, rw.statusCode)
		})
	}
}
