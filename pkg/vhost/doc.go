// Package vhost implements the virtual-host routing core of Vestibule.
//
// A VirtualHost is a logical site identified by (hostname, port) with its
// own path router, optional TLS identity, response headers, and status
// pages. The Registry indexes virtual hosts by (hostname, port), resolves
// plaintext requests by Host header, and resolves TLS handshakes by SNI
// server name. The registry is populated during configuration and frozen
// before serving begins, so lookups on the hot path take no locks.
package vhost
