// Package server implements Vestibule's listeners and lifecycle
// supervision.
//
// A Listener binds one (interface, port, protocol) triple and feeds
// accepted connections to the HTTP engine bound to the host dispatcher.
// TLS listeners perform an eager per-connection handshake with certificate
// selection driven by the virtual-host registry's SNI resolution; a failed
// handshake closes that single connection and never stops the accept loop.
//
// The Supervisor owns the configured listeners and drives the
// Idle → Starting → Running → Stopping → Stopped lifecycle: all-or-nothing
// concurrent startup, and an idempotent Stop that drains every listener
// under a shared deadline.
package server
