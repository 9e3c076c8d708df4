// Package tls provides the TLS identities and handshake configuration used
// by Vestibule virtual hosts.
//
// An Identity bundles a certificate chain, its private key, and an optional
// client CA set for mutual TLS. Identities are immutable after
// construction; certificate hot reload builds a fresh Identity and swaps
// the pointer on the owning virtual host.
//
// ServerConfig builds the crypto/tls configuration for a listener port. It
// resolves the certificate through a CertificateResolver during the client
// hello, before the handshake encrypts any application data; a resolver
// error fails the handshake closed.
package tls
