package vhost

import (
	"fmt"
	"net/http"
	"strings"
	"sync/atomic"

	"atrium-hq/vestibule/pkg/security/tls"
)

// HostConfig describes a virtual host to be constructed with New.
type HostConfig struct {
	// Hostname is the DNS name this host serves. Required.
	// Matching is case-insensitive.
	Hostname string

	// Port is the TCP/UDP port this host serves on. Required.
	Port uint16

	// Identity is the optional TLS identity. A host without an identity
	// serves plaintext only; a host with one serves TLS on its port.
	Identity *tls.Identity

	// Default marks this host as the fallback for SNI names on its port
	// that have no exact match. At most one TLS-bearing default host is
	// allowed per port; the registry enforces this at registration.
	Default bool

	// Headers are set on every response from this host before the
	// handler runs.
	Headers map[string]string

	// StatusPages maps status codes to HTML bodies served for
	// router-level outcomes (404 from the path router, 500 from panic
	// recovery, 502 from proxy upstream failures). Codes without an
	// entry fall back to a built-in minimal page.
	StatusPages map[int][]byte
}

// VirtualHost is a logical site identified by (hostname, port). It owns a
// PathRouter and an optional TLS identity. The identity is held behind an
// atomic pointer so certificate hot reload can swap it without locking the
// handshake path.
type VirtualHost struct {
	hostname    string
	port        uint16
	defaultHost bool
	router      *PathRouter
	headers     map[string]string
	statusPages map[int][]byte
	identity    atomic.Pointer[tls.Identity]
}

// New creates a virtual host from the given configuration.
func New(cfg HostConfig) (*VirtualHost, error) {
	hostname := strings.ToLower(strings.TrimSpace(cfg.Hostname))
	if hostname == "" {
		return nil, fmt.Errorf("virtual host hostname must not be empty")
	}
	if cfg.Port == 0 {
		return nil, fmt.Errorf("virtual host %q port must not be zero", hostname)
	}

	vh := &VirtualHost{
		hostname:    hostname,
		port:        cfg.Port,
		defaultHost: cfg.Default,
		router:      NewPathRouter(),
		headers:     cfg.Headers,
		statusPages: cfg.StatusPages,
	}
	if cfg.Identity != nil {
		vh.identity.Store(cfg.Identity)
	}
	return vh, nil
}

// Hostname returns the lowercased hostname of this host.
func (vh *VirtualHost) Hostname() string { return vh.hostname }

// Port returns the port this host serves on.
func (vh *VirtualHost) Port() uint16 { return vh.port }

// IsDefault reports whether this host is the SNI fallback for its port.
func (vh *VirtualHost) IsDefault() bool { return vh.defaultHost }

// Router returns the host's path router.
func (vh *VirtualHost) Router() *PathRouter { return vh.router }

// Identity returns the current TLS identity, or nil for a plaintext host.
func (vh *VirtualHost) Identity() *tls.Identity {
	return vh.identity.Load()
}

// SetIdentity atomically replaces the host's TLS identity. Used by
// certificate hot reload; in-flight handshakes keep the identity they
// already resolved.
func (vh *VirtualHost) SetIdentity(identity *tls.Identity) {
	vh.identity.Store(identity)
}

// Headers returns the response headers applied to every response from
// this host.
func (vh *VirtualHost) Headers() map[string]string { return vh.headers }

// ServeStatus writes the host's status page for the given code, falling
// back to a built-in minimal HTML page when none is configured.
func (vh *VirtualHost) ServeStatus(w http.ResponseWriter, code int) {
	body, ok := vh.statusPages[code]
	if !ok {
		body = defaultStatusPage(code)
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(code)
	_, _ = w.Write(body)
}

// defaultStatusPage renders the built-in minimal HTML error page.
func defaultStatusPage(code int) []byte {
	text := http.StatusText(code)
	if text == "" {
		text = "Error"
	}
	return []byte(fmt.Sprintf(
		"<!DOCTYPE html>\n<html><head><title>%d %s</title></head><body><h1>%d %s</h1></body></html>\n",
		code, text, code, text,
	))
}
