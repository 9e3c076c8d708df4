package vhost

import (
	"errors"
	"net/http/httptest"
	"testing"

	"atrium-hq/vestibule/internal/testcert"
	"atrium-hq/vestibule/pkg/security/tls"
)

func testIdentity(t *testing.T, hosts ...string) *tls.Identity {
	t.Helper()
	certPEM, keyPEM := testcert.Generate(t, hosts...)
	id, err := tls.NewIdentityFromPEM(certPEM, keyPEM, nil)
	if err != nil {
		t.Fatalf("failed to build identity: %v", err)
	}
	return id
}

func mustHost(t *testing.T, cfg HostConfig) *VirtualHost {
	t.Helper()
	vh, err := New(cfg)
	if err != nil {
		t.Fatalf("New(%s:%d) error = %v", cfg.Hostname, cfg.Port, err)
	}
	return vh
}

func TestRegistryRegisterAndResolve(t *testing.T) {
	r := NewRegistry()

	a := mustHost(t, HostConfig{Hostname: "A.Example.COM", Port: 8080})
	b := mustHost(t, HostConfig{Hostname: "b.example.com", Port: 8080})
	c := mustHost(t, HostConfig{Hostname: "a.example.com", Port: 9090})

	for _, vh := range []*VirtualHost{a, b, c} {
		if err := r.Register(vh); err != nil {
			t.Fatalf("Register(%s:%d) error = %v", vh.Hostname(), vh.Port(), err)
		}
	}

	// Hostname matching is case-insensitive.
	got, err := r.ResolveHost("a.EXAMPLE.com", 8080)
	if err != nil {
		t.Fatalf("ResolveHost error = %v", err)
	}
	if got != a {
		t.Errorf("ResolveHost returned %s, want a.example.com", got.Hostname())
	}

	// Same hostname on a different port is a different host.
	got, err = r.ResolveHost("a.example.com", 9090)
	if err != nil {
		t.Fatalf("ResolveHost error = %v", err)
	}
	if got != c {
		t.Errorf("ResolveHost(9090) returned wrong host")
	}

	// Unknown (hostname, port) pairs fail with UnknownHostError.
	_, err = r.ResolveHost("a.example.com", 7070)
	var unknown *UnknownHostError
	if !errors.As(err, &unknown) {
		t.Errorf("ResolveHost unknown port error = %v, want UnknownHostError", err)
	}
}

func TestRegistryDuplicateHost(t *testing.T) {
	r := NewRegistry()

	if err := r.Register(mustHost(t, HostConfig{Hostname: "example.com", Port: 8080})); err != nil {
		t.Fatal(err)
	}

	err := r.Register(mustHost(t, HostConfig{Hostname: "EXAMPLE.com", Port: 8080}))
	var dup *DuplicateHostError
	if !errors.As(err, &dup) {
		t.Fatalf("Register duplicate error = %v, want DuplicateHostError", err)
	}
	if r.Len() != 1 {
		t.Errorf("Len() = %d after failed registration, want 1", r.Len())
	}
}

func TestRegistryFreeze(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(mustHost(t, HostConfig{Hostname: "example.com", Port: 8080})); err != nil {
		t.Fatal(err)
	}

	r.Freeze()
	if !r.Frozen() {
		t.Fatal("Frozen() = false after Freeze")
	}

	err := r.Register(mustHost(t, HostConfig{Hostname: "other.com", Port: 8080}))
	if !errors.Is(err, ErrRegistryFrozen) {
		t.Errorf("Register after Freeze error = %v, want ErrRegistryFrozen", err)
	}

	// Lookups still work after freeze.
	if _, err := r.ResolveHost("example.com", 8080); err != nil {
		t.Errorf("ResolveHost after Freeze error = %v", err)
	}
}

func TestRegistryResolveSNI(t *testing.T) {
	r := NewRegistry()

	idA := testIdentity(t, "a.example.com")
	idB := testIdentity(t, "b.example.com")

	a := mustHost(t, HostConfig{Hostname: "a.example.com", Port: 8443, Identity: idA})
	b := mustHost(t, HostConfig{Hostname: "b.example.com", Port: 8443, Identity: idB, Default: true})
	plain := mustHost(t, HostConfig{Hostname: "plain.example.com", Port: 8080})

	for _, vh := range []*VirtualHost{a, b, plain} {
		if err := r.Register(vh); err != nil {
			t.Fatal(err)
		}
	}

	// Exact SNI match selects that host's identity.
	id, err := r.ResolveSNI("a.example.com", 8443)
	if err != nil {
		t.Fatalf("ResolveSNI error = %v", err)
	}
	if id != idA {
		t.Error("ResolveSNI(a.example.com) returned wrong identity")
	}

	// Unmatched SNI falls back to the port's default TLS host.
	id, err = r.ResolveSNI("unknown.example.com", 8443)
	if err != nil {
		t.Fatalf("ResolveSNI fallback error = %v", err)
	}
	if id != idB {
		t.Error("ResolveSNI fallback returned wrong identity")
	}

	// Missing SNI also uses the default.
	if _, err := r.ResolveSNI("", 8443); err != nil {
		t.Errorf("ResolveSNI empty server name error = %v", err)
	}

	// A port with no TLS hosts fails closed.
	_, err = r.ResolveSNI("plain.example.com", 8080)
	var noID *NoIdentityError
	if !errors.As(err, &noID) {
		t.Errorf("ResolveSNI plaintext port error = %v, want NoIdentityError", err)
	}
}

func TestRegistryResolveSNIFailsClosedWithoutDefault(t *testing.T) {
	r := NewRegistry()

	id := testIdentity(t, "only.example.com")
	if err := r.Register(mustHost(t, HostConfig{Hostname: "only.example.com", Port: 8443, Identity: id})); err != nil {
		t.Fatal(err)
	}

	// No default host on the port: unmatched SNI must fail, not guess.
	if _, err := r.ResolveSNI("other.example.com", 8443); err == nil {
		t.Error("ResolveSNI with no default expected error, got nil")
	}
	if _, err := r.ResolveSNI("", 8443); err == nil {
		t.Error("ResolveSNI without SNI and no default expected error, got nil")
	}
}

func TestRegistryRejectsSecondDefaultTLSHost(t *testing.T) {
	r := NewRegistry()

	idA := testIdentity(t, "a.example.com")
	idB := testIdentity(t, "b.example.com")

	if err := r.Register(mustHost(t, HostConfig{Hostname: "a.example.com", Port: 8443, Identity: idA, Default: true})); err != nil {
		t.Fatal(err)
	}

	err := r.Register(mustHost(t, HostConfig{Hostname: "b.example.com", Port: 8443, Identity: idB, Default: true}))
	if err == nil {
		t.Fatal("Register second default TLS host expected error, got nil")
	}

	// A default on a different port is fine.
	idC := testIdentity(t, "c.example.com")
	if err := r.Register(mustHost(t, HostConfig{Hostname: "c.example.com", Port: 9443, Identity: idC, Default: true})); err != nil {
		t.Errorf("Register default on other port error = %v", err)
	}
}

func TestRegistryResolveTLSHost(t *testing.T) {
	r := NewRegistry()

	idA := testIdentity(t, "a.example.com")
	idB := testIdentity(t, "b.example.com")

	a := mustHost(t, HostConfig{Hostname: "a.example.com", Port: 8443, Identity: idA})
	b := mustHost(t, HostConfig{Hostname: "b.example.com", Port: 8443, Identity: idB, Default: true})
	for _, vh := range []*VirtualHost{a, b} {
		if err := r.Register(vh); err != nil {
			t.Fatal(err)
		}
	}

	got, err := r.ResolveTLSHost("a.example.com", 8443)
	if err != nil || got != a {
		t.Errorf("ResolveTLSHost exact = %v, %v; want a, nil", got, err)
	}

	// The routing fallback mirrors the SNI fallback so certificate and
	// router always come from the same host.
	got, err = r.ResolveTLSHost("unknown.example.com", 8443)
	if err != nil || got != b {
		t.Errorf("ResolveTLSHost fallback = %v, %v; want b, nil", got, err)
	}
}

func TestRegistryTLSOnPort(t *testing.T) {
	r := NewRegistry()

	id := testIdentity(t, "secure.example.com")
	if err := r.Register(mustHost(t, HostConfig{Hostname: "secure.example.com", Port: 8443, Identity: id})); err != nil {
		t.Fatal(err)
	}
	if err := r.Register(mustHost(t, HostConfig{Hostname: "plain.example.com", Port: 8080})); err != nil {
		t.Fatal(err)
	}

	if !r.TLSOnPort(8443) {
		t.Error("TLSOnPort(8443) = false, want true")
	}
	if r.TLSOnPort(8080) {
		t.Error("TLSOnPort(8080) = true, want false")
	}
}

func TestVirtualHostServeStatus(t *testing.T) {
	vh := mustHost(t, HostConfig{
		Hostname:    "example.com",
		Port:        8080,
		StatusPages: map[int][]byte{404: []byte("<html>custom not found</html>")},
	})

	// Configured page.
	rec := httptest.NewRecorder()
	vh.ServeStatus(rec, 404)
	if rec.Code != 404 {
		t.Errorf("status = %d, want 404", rec.Code)
	}
	if got := rec.Body.String(); got != "<html>custom not found</html>" {
		t.Errorf("body = %q, want custom page", got)
	}

	// Built-in fallback for unconfigured codes.
	rec = httptest.NewRecorder()
	vh.ServeStatus(rec, 502)
	if rec.Code != 502 {
		t.Errorf("status = %d, want 502", rec.Code)
	}
	if rec.Body.Len() == 0 {
		t.Error("fallback page is empty")
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/html; charset=utf-8" {
		t.Errorf("Content-Type = %q", ct)
	}
}

func TestVirtualHostIdentitySwap(t *testing.T) {
	id1 := testIdentity(t, "example.com")
	id2 := testIdentity(t, "example.com")

	vh := mustHost(t, HostConfig{Hostname: "example.com", Port: 8443, Identity: id1})
	if vh.Identity() != id1 {
		t.Fatal("initial identity not set")
	}

	vh.SetIdentity(id2)
	if vh.Identity() != id2 {
		t.Error("SetIdentity did not swap the identity")
	}
}
