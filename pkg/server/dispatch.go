package server

import (
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"

	"atrium-hq/vestibule/pkg/server/middleware"
	"atrium-hq/vestibule/pkg/vhost"
)

// fallbackHostname is used when a request carries no usable host
// information at all (no Host header, no URI authority).
const fallbackHostname = "localhost"

// notFoundBody is the builtin response for requests whose hostname
// matches no registered virtual host. Per-host 404 pages do not apply
// here: without a host match there is no host to take a page from.
const notFoundBody = `<!DOCTYPE html>
<html>
<head><title>404 Not Found</title></head>
<body>
<h1>404 Not Found</h1>
<p>Virtual host not found.</p>
</body>
</html>
`

// Dispatcher routes each request to its virtual host and then to the
// host's path handler. It is the shared http.Handler behind every
// listener.
type Dispatcher struct {
	registry *vhost.Registry
	logger   *slog.Logger
}

// NewDispatcher creates a dispatcher over a frozen (or about to be
// frozen) registry.
func NewDispatcher(registry *vhost.Registry, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		registry: registry,
		logger:   logger.With("component", "server.dispatcher"),
	}
}

// ServeHTTP resolves the request's virtual host, applies the host's
// default headers, and hands the request to the longest-prefix path
// handler. Unknown hosts get the builtin 404; known hosts with no
// matching route get the host's own 404 page.
func (d *Dispatcher) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	port := requestPort(r)
	info := middleware.RouteInfoFromContext(r.Context())
	if info != nil {
		info.Port = port
	}

	var (
		vh  *vhost.VirtualHost
		err error
	)
	if r.TLS != nil {
		// The handshake already committed to an identity; route by the
		// SNI name so the Host header cannot cross hosts on a shared
		// port. An empty name resolves to the same default host the
		// handshake used.
		vh, err = d.registry.ResolveTLSHost(r.TLS.ServerName, port)
	} else {
		vh, err = d.registry.ResolveHost(requestHostname(r), port)
	}
	if err != nil {
		d.logger.Debug("no virtual host for request",
			"host", r.Host,
			"port", port,
			"path", r.URL.Path,
		)
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, notFoundBody)
		return
	}

	if info != nil {
		info.Host = vh.Hostname()
	}

	for name, value := range vh.Headers() {
		w.Header().Set(name, value)
	}

	handler, pattern, ok := vh.Router().Resolve(r.URL.Path)
	if !ok {
		vh.ServeStatus(w, http.StatusNotFound)
		return
	}
	if info != nil {
		info.Route = pattern
	}
	handler.ServeHTTP(w, r)
}

// requestHostname extracts the hostname used for routing: the Host
// header with any :port suffix stripped, else the request URI's
// authority, else "localhost".
func requestHostname(r *http.Request) string {
	host := r.Host
	if host == "" {
		host = r.URL.Host
	}
	if host == "" {
		return fallbackHostname
	}
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	// Bracketed IPv6 literals without a port still carry brackets.
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	if host == "" {
		return fallbackHostname
	}
	return strings.ToLower(host)
}

// requestPort recovers the local port the request arrived on, preferring
// the connection's local address over anything the client sent.
func requestPort(r *http.Request) uint16 {
	if addr, ok := r.Context().Value(http.LocalAddrContextKey).(net.Addr); ok {
		switch a := addr.(type) {
		case *net.TCPAddr:
			return uint16(a.Port)
		case *net.UDPAddr:
			return uint16(a.Port)
		}
	}
	// Fall back to the Host header's explicit port.
	if _, p, err := net.SplitHostPort(r.Host); err == nil {
		var port uint16
		if _, err := fmt.Sscanf(p, "%d", &port); err == nil {
			return port
		}
	}
	if r.TLS != nil {
		return 443
	}
	return 80
}
