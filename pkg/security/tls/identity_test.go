package tls

import (
	"crypto/tls"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"atrium-hq/vestibule/internal/testcert"
)

func TestNewIdentityFromPEM(t *testing.T) {
	certPEM, keyPEM := testcert.Generate(t, "example.com", "www.example.com")

	id, err := NewIdentityFromPEM(certPEM, keyPEM, nil)
	if err != nil {
		t.Fatalf("NewIdentityFromPEM error = %v", err)
	}

	if id.MutualTLS() {
		t.Error("MutualTLS() = true without client CAs")
	}
	if id.ClientCAs() != nil {
		t.Error("ClientCAs() != nil without client CAs")
	}

	leaf := id.Leaf()
	if leaf == nil {
		t.Fatal("Leaf() = nil")
	}
	found := false
	for _, name := range leaf.DNSNames {
		if name == "www.example.com" {
			found = true
		}
	}
	if !found {
		t.Errorf("leaf DNS names = %v, want www.example.com included", leaf.DNSNames)
	}
}

func TestNewIdentityFromPEMWithClientCA(t *testing.T) {
	certPEM, keyPEM := testcert.Generate(t, "example.com")
	caPEM, _ := testcert.Generate(t, "client-ca")

	id, err := NewIdentityFromPEM(certPEM, keyPEM, caPEM)
	if err != nil {
		t.Fatalf("NewIdentityFromPEM error = %v", err)
	}

	if !id.MutualTLS() {
		t.Error("MutualTLS() = false with client CAs")
	}
	if id.ClientCAs() == nil {
		t.Error("ClientCAs() = nil with client CAs")
	}
}

func TestNewIdentityFromPEMRejectsGarbage(t *testing.T) {
	certPEM, keyPEM := testcert.Generate(t, "example.com")

	tests := []struct {
		name string
		cert []byte
		key  []byte
	}{
		{"empty cert", nil, keyPEM},
		{"empty key", certPEM, nil},
		{"garbage cert", []byte("not pem"), keyPEM},
		{"garbage key", certPEM, []byte("not pem")},
		{"swapped", keyPEM, certPEM},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewIdentityFromPEM(tt.cert, tt.key, nil); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestLoadIdentity(t *testing.T) {
	certPEM, keyPEM := testcert.Generate(t, "example.com")

	dir := t.TempDir()
	certFile := filepath.Join(dir, "cert.pem")
	keyFile := filepath.Join(dir, "key.pem")
	if err := os.WriteFile(certFile, certPEM, 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(keyFile, keyPEM, 0o600); err != nil {
		t.Fatal(err)
	}

	id, err := LoadIdentity(certFile, keyFile, "")
	if err != nil {
		t.Fatalf("LoadIdentity error = %v", err)
	}
	if id.Certificate() == nil {
		t.Error("Certificate() = nil")
	}

	if _, err := LoadIdentity(filepath.Join(dir, "missing.pem"), keyFile, ""); err == nil {
		t.Error("LoadIdentity with missing cert file expected error, got nil")
	}
}

// staticResolver resolves every SNI name to a fixed identity, or fails
// when the identity is nil.
type staticResolver struct {
	id *Identity
}

func (r staticResolver) ResolveSNI(serverName string, port uint16) (*Identity, error) {
	if r.id == nil {
		return nil, &failedResolve{name: serverName}
	}
	return r.id, nil
}

type failedResolve struct{ name string }

func (e *failedResolve) Error() string { return "no identity for " + e.name }

func TestServerConfig(t *testing.T) {
	certPEM, keyPEM := testcert.Generate(t, "example.com")
	id, err := NewIdentityFromPEM(certPEM, keyPEM, nil)
	if err != nil {
		t.Fatal(err)
	}

	cfg := ServerConfig(staticResolver{id: id}, 8443, []string{"h2", "http/1.1"})

	if cfg.MinVersion != tls.VersionTLS13 {
		t.Errorf("MinVersion = %x, want TLS 1.3", cfg.MinVersion)
	}
	if len(cfg.NextProtos) != 2 || cfg.NextProtos[0] != "h2" {
		t.Errorf("NextProtos = %v", cfg.NextProtos)
	}

	perConn, err := cfg.GetConfigForClient(&tls.ClientHelloInfo{ServerName: "example.com"})
	if err != nil {
		t.Fatalf("GetConfigForClient error = %v", err)
	}
	if len(perConn.Certificates) != 1 {
		t.Fatalf("per-connection config has %d certificates, want 1", len(perConn.Certificates))
	}
	if perConn.ClientAuth != tls.NoClientCert {
		t.Errorf("ClientAuth = %v without client CAs", perConn.ClientAuth)
	}
}

func TestServerConfigFailsClosed(t *testing.T) {
	cfg := ServerConfig(staticResolver{}, 8443, []string{"http/1.1"})

	_, err := cfg.GetConfigForClient(&tls.ClientHelloInfo{ServerName: "unknown.example.com"})
	if err == nil {
		t.Fatal("GetConfigForClient expected error for unresolved name, got nil")
	}
	if !strings.Contains(err.Error(), "unknown.example.com") {
		t.Errorf("error %q does not name the server name", err)
	}
}

func TestServerConfigMutualTLS(t *testing.T) {
	certPEM, keyPEM := testcert.Generate(t, "example.com")
	caPEM, _ := testcert.Generate(t, "client-ca")

	id, err := NewIdentityFromPEM(certPEM, keyPEM, caPEM)
	if err != nil {
		t.Fatal(err)
	}

	cfg := ServerConfig(staticResolver{id: id}, 8443, []string{"http/1.1"})
	perConn, err := cfg.GetConfigForClient(&tls.ClientHelloInfo{ServerName: "example.com"})
	if err != nil {
		t.Fatal(err)
	}

	if perConn.ClientAuth != tls.RequireAndVerifyClientCert {
		t.Errorf("ClientAuth = %v, want RequireAndVerifyClientCert", perConn.ClientAuth)
	}
	if perConn.ClientCAs == nil {
		t.Error("ClientCAs = nil for mutual TLS identity")
	}
}
