package vhost

import (
	"errors"
	"fmt"
)

// ErrRegistryFrozen is returned by Registry.Register after the registry has
// been frozen by the server lifecycle. Hosts must be registered before the
// server starts.
var ErrRegistryFrozen = errors.New("registry is frozen: hosts cannot be registered after the server has started")

// DuplicatePathError is returned when a pattern is registered twice on the
// same path router.
type DuplicatePathError struct {
	Pattern string
}

func (e *DuplicatePathError) Error() string {
	return fmt.Sprintf("path pattern %q is already registered", e.Pattern)
}

// DuplicateHostError is returned when a virtual host with the same
// (hostname, port) key is already present in the registry.
type DuplicateHostError struct {
	Hostname string
	Port     uint16
}

func (e *DuplicateHostError) Error() string {
	return fmt.Sprintf("virtual host %s:%d is already registered", e.Hostname, e.Port)
}

// UnknownHostError is returned when no virtual host owns the requested
// (hostname, port). Callers must map it to a client-facing 404, never treat
// it as an internal failure.
type UnknownHostError struct {
	Hostname string
	Port     uint16
}

func (e *UnknownHostError) Error() string {
	return fmt.Sprintf("no virtual host registered for %s:%d", e.Hostname, e.Port)
}

// NoIdentityError is returned by SNI resolution when no certificate can be
// selected for the requested server name. Returning it from the TLS
// callback fails the handshake closed instead of presenting an arbitrary
// certificate.
type NoIdentityError struct {
	ServerName string
	Port       uint16
}

func (e *NoIdentityError) Error() string {
	if e.ServerName == "" {
		return fmt.Sprintf("no certificate for connection without SNI on port %d", e.Port)
	}
	return fmt.Sprintf("no certificate for server name %q on port %d", e.ServerName, e.Port)
}
