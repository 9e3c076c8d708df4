package vhost

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"atrium-hq/vestibule/pkg/security/tls"
)

// hostKey identifies a virtual host inside the registry.
type hostKey struct {
	hostname string
	port     uint16
}

// Registry indexes virtual hosts by (hostname, port) and resolves SNI
// server names to TLS identities during the handshake.
//
// The registry follows a single-writer-then-many-readers discipline:
// Register is called during configuration, Freeze is called by the server
// when it transitions to Starting, and every lookup after that runs
// lock-free on an immutable index.
type Registry struct {
	mu       sync.Mutex
	hosts    map[hostKey]*VirtualHost
	defaults map[uint16]*VirtualHost
	frozen   atomic.Bool
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		hosts:    make(map[hostKey]*VirtualHost),
		defaults: make(map[uint16]*VirtualHost),
	}
}

// Register adds a virtual host to the registry.
// It fails with DuplicateHostError when the (hostname, port) key is
// already present and with ErrRegistryFrozen after Freeze has been called.
// A failed call leaves the registry unchanged.
func (r *Registry) Register(vh *VirtualHost) error {
	if vh == nil {
		return fmt.Errorf("virtual host must not be nil")
	}
	if r.frozen.Load() {
		return ErrRegistryFrozen
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	key := hostKey{hostname: vh.Hostname(), port: vh.Port()}
	if _, exists := r.hosts[key]; exists {
		return &DuplicateHostError{Hostname: vh.Hostname(), Port: vh.Port()}
	}

	if vh.IsDefault() && vh.Identity() != nil {
		if existing, ok := r.defaults[vh.Port()]; ok {
			return fmt.Errorf("port %d already has default TLS host %q", vh.Port(), existing.Hostname())
		}
	}

	r.hosts[key] = vh
	if vh.IsDefault() && vh.Identity() != nil {
		r.defaults[vh.Port()] = vh
	}
	return nil
}

// Freeze marks the registry read-only. Called once by the server when it
// starts; further Register calls fail with ErrRegistryFrozen.
func (r *Registry) Freeze() {
	r.frozen.Store(true)
}

// Frozen reports whether the registry has been frozen.
func (r *Registry) Frozen() bool {
	return r.frozen.Load()
}

// ResolveHost resolves a plaintext request by Host header. Only an exact
// (hostname, port) match is accepted; anything else is UnknownHostError,
// which the dispatcher turns into a 404 response.
func (r *Registry) ResolveHost(hostname string, port uint16) (*VirtualHost, error) {
	key := hostKey{hostname: strings.ToLower(hostname), port: port}
	if vh, ok := r.hosts[key]; ok {
		return vh, nil
	}
	return nil, &UnknownHostError{Hostname: hostname, Port: port}
}

// ResolveTLSHost resolves the virtual host for a completed TLS connection
// using the negotiated SNI name. It mirrors the ResolveSNI fallback (exact
// match, then the port's default TLS host) so the certificate the client
// saw and the router that serves it always belong to the same host.
func (r *Registry) ResolveTLSHost(serverName string, port uint16) (*VirtualHost, error) {
	key := hostKey{hostname: strings.ToLower(serverName), port: port}
	if vh, ok := r.hosts[key]; ok && vh.Identity() != nil {
		return vh, nil
	}
	if vh, ok := r.defaults[port]; ok {
		return vh, nil
	}
	return nil, &UnknownHostError{Hostname: serverName, Port: port}
}

// ResolveSNI selects the TLS identity for a handshake. Exact
// (serverName, port) match first; otherwise the port's declared default
// TLS host; otherwise a NoIdentityError so the handshake fails closed
// instead of guessing a certificate. This runs inside the TLS engine's
// client-hello callback, strictly before any application data is
// encrypted.
func (r *Registry) ResolveSNI(serverName string, port uint16) (*tls.Identity, error) {
	key := hostKey{hostname: strings.ToLower(serverName), port: port}
	if vh, ok := r.hosts[key]; ok {
		if identity := vh.Identity(); identity != nil {
			return identity, nil
		}
	}
	if vh, ok := r.defaults[port]; ok {
		return vh.Identity(), nil
	}
	return nil, &NoIdentityError{ServerName: serverName, Port: port}
}

// HostsOnPort returns the virtual hosts registered on the given port,
// sorted by hostname.
func (r *Registry) HostsOnPort(port uint16) []*VirtualHost {
	var hosts []*VirtualHost
	for key, vh := range r.hosts {
		if key.port == port {
			hosts = append(hosts, vh)
		}
	}
	sort.Slice(hosts, func(i, j int) bool { return hosts[i].Hostname() < hosts[j].Hostname() })
	return hosts
}

// TLSOnPort reports whether any host on the port declares a TLS identity.
// A listener on such a port terminates TLS and rejects plaintext.
func (r *Registry) TLSOnPort(port uint16) bool {
	for key, vh := range r.hosts {
		if key.port == port && vh.Identity() != nil {
			return true
		}
	}
	return false
}

// Hosts returns all registered virtual hosts sorted by (hostname, port).
func (r *Registry) Hosts() []*VirtualHost {
	hosts := make([]*VirtualHost, 0, len(r.hosts))
	for _, vh := range r.hosts {
		hosts = append(hosts, vh)
	}
	sort.Slice(hosts, func(i, j int) bool {
		if hosts[i].Hostname() != hosts[j].Hostname() {
			return hosts[i].Hostname() < hosts[j].Hostname()
		}
		return hosts[i].Port() < hosts[j].Port()
	})
	return hosts
}

// Len returns the number of registered virtual hosts.
func (r *Registry) Len() int {
	return len(r.hosts)
}
