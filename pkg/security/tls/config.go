package tls

import (
	"crypto/tls"
)

// CertificateResolver selects the TLS identity for a handshake from the
// client's SNI server name and the listener port. It is the capability
// boundary between the routing core and the TLS engine: returning an error
// makes the engine abort the handshake instead of presenting an arbitrary
// certificate.
type CertificateResolver interface {
	ResolveSNI(serverName string, port uint16) (*Identity, error)
}

// ServerConfig builds the crypto/tls configuration for one listener port.
// Certificate selection happens per connection inside GetConfigForClient,
// which runs on the client hello, before the handshake signs or encrypts
// anything. The per-connection config carries the resolved identity's
// certificate and, when the identity declares client CAs, requires and
// verifies a client certificate.
//
// nextProtos is the ALPN protocol list the listener advertises
// (e.g. "h2", "http/1.1", "h3").
func ServerConfig(resolver CertificateResolver, port uint16, nextProtos []string) *tls.Config {
	return &tls.Config{
		MinVersion: tls.VersionTLS13,
		NextProtos: nextProtos,
		GetConfigForClient: func(hello *tls.ClientHelloInfo) (*tls.Config, error) {
			identity, err := resolver.ResolveSNI(hello.ServerName, port)
			if err != nil {
				// Fail closed: the handshake aborts and the client
				// gets a TLS alert, not a guessed certificate.
				return nil, err
			}

			cfg := &tls.Config{
				MinVersion:   tls.VersionTLS13,
				NextProtos:   nextProtos,
				Certificates: []tls.Certificate{*identity.Certificate()},
			}
			if identity.MutualTLS() {
				cfg.ClientCAs = identity.ClientCAs()
				cfg.ClientAuth = tls.RequireAndVerifyClientCert
			}
			return cfg, nil
		},
	}
}
