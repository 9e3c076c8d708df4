package middleware

import (
	"net"
	"net/http"
	"time"

	"atrium-hq/vestibule/pkg/accesslog"
	"atrium-hq/vestibule/pkg/accesslog/recorder"
)

// AccessLogMiddleware persists one record per request through the async
// recorder. A nil recorder disables access logging.
//
// Example usage:
//
//	handler = AccessLogMiddleware(rec)(handler)
func AccessLogMiddleware(rec *recorder.Recorder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if rec == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			r, info := ensureRouteInfo(r)
			rw := newResponseWriter(w)

			next.ServeHTTP(rw, r)

			remoteIP := r.RemoteAddr
			if host, _, err := net.SplitHostPort(remoteIP); err == nil {
				remoteIP = host
			}

			var listener string
			if addr, ok := r.Context().Value(http.LocalAddrContextKey).(net.Addr); ok {
				listener = addr.String()
			}

			rec.Record(&accesslog.Record{
				RequestID:     GetRequestID(r.Context()),
				Time:          start,
				Host:          info.Host,
				Port:          info.Port,
				Route:         info.Route,
				Listener:      listener,
				Method:        r.Method,
				Path:          r.URL.Path,
				Query:         r.URL.RawQuery,
				Proto:         r.Proto,
				TLS:           r.TLS != nil,
				RemoteIP:      remoteIP,
				UserAgent:     r.UserAgent(),
				Referer:       r.Referer(),
				Status:        rw.statusCode,
				ResponseBytes: rw.bytes,
				Duration:      time.Since(start),
			})
		})
	}
}
