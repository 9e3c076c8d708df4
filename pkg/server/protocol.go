package server

import (
	"fmt"
	"net"
	"strconv"
	"strings"
)

// Protocol selects the HTTP engine a listener speaks.
type Protocol int

const (
	// HTTP1 serves HTTP/1.1 over TCP, with TLS when the port has a
	// TLS-bearing virtual host.
	HTTP1 Protocol = iota

	// HTTP2 serves HTTP/2 over TLS (ALPN "h2") or cleartext h2c on
	// plaintext ports, falling back to HTTP/1.1 per connection.
	HTTP2

	// HTTP3 serves HTTP/3 over QUIC on UDP. Requires a TLS-bearing
	// virtual host on the port.
	HTTP3
)

// String returns the configuration name of the protocol.
func (p Protocol) String() string {
	switch p {
	case HTTP1:
		return "http1"
	case HTTP2:
		return "http2"
	case HTTP3:
		return "http3"
	default:
		return fmt.Sprintf("protocol(%d)", int(p))
	}
}

// ParseProtocol parses a configuration protocol name.
func ParseProtocol(s string) (Protocol, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "http1", "http/1", "http/1.1":
		return HTTP1, nil
	case "http2", "h2", "http/2":
		return HTTP2, nil
	case "http3", "h3", "http/3":
		return HTTP3, nil
	default:
		return 0, fmt.Errorf("unknown protocol %q (expected http1, http2, or http3)", s)
	}
}

// ListenerSpec describes one network listener: the bind address, port, and
// protocol. A spec is immutable once its listener starts. Two specs with
// the same (interface, port) key are a configuration error.
type ListenerSpec struct {
	// Interface is the bind address. Empty means all interfaces.
	Interface string

	// Port is the TCP or UDP port to bind.
	Port uint16

	// Protocol selects the HTTP engine.
	Protocol Protocol
}

// Key returns the (interface, port) uniqueness key of the spec.
func (s ListenerSpec) Key() string {
	return net.JoinHostPort(s.Interface, strconv.Itoa(int(s.Port)))
}

// Addr returns the address to bind, defaulting to all interfaces.
func (s ListenerSpec) Addr() string {
	iface := s.Interface
	if iface == "" {
		iface = "0.0.0.0"
	}
	return net.JoinHostPort(iface, strconv.Itoa(int(s.Port)))
}

// String returns a loggable description of the spec.
func (s ListenerSpec) String() string {
	return fmt.Sprintf("%s/%s", s.Addr(), s.Protocol)
}
