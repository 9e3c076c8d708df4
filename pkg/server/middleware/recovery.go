package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
)

const panicBody = `<!DOCTYPE html>
<html>
<head><title>500 Internal Server Error</title></head>
<body>
<h1>500 Internal Server Error</h1>
</body>
</html>
`

// RecoveryMiddleware recovers from panics in HTTP handlers and returns
// a 500 response. The panic is logged with its stack trace; no internal
// detail reaches the client.
//
// Example usage:
//
//	handler = RecoveryMiddleware(handler)
func RecoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				requestID := GetRequestID(r.Context())
				stack := debug.Stack()

				slog.ErrorContext(r.Context(), "panic in handler",
					"error", err,
					"request_id", requestID,
					"method", r.Method,
					"host", r.Host,
					"path", r.URL.Path,
					"stack", string(stack),
				)

				w.Header().Set("Content-Type", "text/html; charset=utf-8")
				w.WriteHeader(http.StatusInternalServerError)
				fmt.Fprint(w, panicBody)
			}
		}()

		next.ServeHTTP(w, r)
	})
}
