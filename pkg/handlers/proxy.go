package handlers

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httputil"
	"net/url"
	"time"

	"atrium-hq/vestibule/pkg/telemetry/tracing"
)

const badGatewayBody = `<!DOCTYPE html>
<html>
<head><title>502 Bad Gateway</title></head>
<body>
<h1>502 Bad Gateway</h1>
</body>
</html>
`

// ProxyConfig configures a reverse proxy handler.
type ProxyConfig struct {
	// Target is the upstream base URL, e.g. "http://127.0.0.1:8080".
	// The full request path is appended to the target's path.
	Target string

	// FlushInterval controls response streaming; negative flushes
	// immediately. Default: 100ms.
	FlushInterval time.Duration

	// ErrorPage renders 502 responses, typically the owning virtual
	// host's status pages. Nil falls back to the built-in page.
	ErrorPage ErrorPage
}

// Proxy forwards requests to an upstream. The client's Host header is
// replaced with the target's, trace context is propagated via W3C
// headers, and upstream failures surface as 502.
type Proxy struct {
	target *url.URL
	proxy  *httputil.ReverseProxy
	logger *slog.Logger
}

// NewProxy creates a reverse proxy handler for the target URL.
func NewProxy(config ProxyConfig) (*Proxy, error) {
	if config.Target == "" {
		return nil, errors.New("proxy handler: target is required")
	}
	target, err := url.Parse(config.Target)
	if err != nil {
		return nil, fmt.Errorf("proxy handler: invalid target %q: %w", config.Target, err)
	}
	if target.Scheme != "http" && target.Scheme != "https" {
		return nil, fmt.Errorf("proxy handler: target %q must be http or https", config.Target)
	}

	flushInterval := config.FlushInterval
	if flushInterval == 0 {
		flushInterval = 100 * time.Millisecond
	}

	logger := slog.Default().With("component", "handlers.proxy", "target", target.String())

	p := &Proxy{
		target: target,
		logger: logger,
	}
	p.proxy = &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.SetURL(target)
			pr.SetXForwarded()
			pr.Out.Host = target.Host
			tracing.InjectHTTP(pr.In.Context(), pr.Out.Header)
		},
		FlushInterval: flushInterval,
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			logger.Warn("upstream request failed",
				"method", r.Method,
				"path", r.URL.Path,
				"error", err,
			)
			if config.ErrorPage != nil {
				config.ErrorPage(w, http.StatusBadGateway)
				return
			}
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			w.WriteHeader(http.StatusBadGateway)
			fmt.Fprint(w, badGatewayBody)
		},
	}

	return p, nil
}

// Target returns the upstream base URL.
func (p *Proxy) Target() *url.URL {
	return p.target
}

// ServeHTTP forwards the request upstream.
func (p *Proxy) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	p.proxy.ServeHTTP(w, r)
}
