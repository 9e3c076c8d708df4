package tls

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"atrium-hq/vestibule/internal/testcert"
)

func writeIdentityFiles(t *testing.T, dir string, hosts ...string) (certFile, keyFile string) {
	t.Helper()
	certPEM, keyPEM := testcert.Generate(t, hosts...)
	certFile = filepath.Join(dir, "cert.pem")
	keyFile = filepath.Join(dir, "key.pem")
	if err := os.WriteFile(certFile, certPEM, 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(keyFile, keyPEM, 0o600); err != nil {
		t.Fatal(err)
	}
	return certFile, keyFile
}

func TestNewReloaderRequiresFilesAndCallback(t *testing.T) {
	if _, err := NewReloader(ReloaderConfig{}, func(*Identity) {}); err == nil {
		t.Error("NewReloader without files expected error, got nil")
	}
	if _, err := NewReloader(ReloaderConfig{CertFile: "a", KeyFile: "b"}, nil); err == nil {
		t.Error("NewReloader without callback expected error, got nil")
	}
}

func TestReloaderSwapsOnFileChange(t *testing.T) {
	dir := t.TempDir()
	certFile, keyFile := writeIdentityFiles(t, dir, "example.com")

	var mu sync.Mutex
	var swapped *Identity
	swap := func(id *Identity) {
		mu.Lock()
		swapped = id
		mu.Unlock()
	}

	rl, err := NewReloader(ReloaderConfig{
		CertFile:         certFile,
		KeyFile:          keyFile,
		DebounceInterval: 20 * time.Millisecond,
	}, swap)
	if err != nil {
		t.Fatal(err)
	}
	defer rl.Stop()

	if err := rl.Start(context.Background()); err != nil {
		t.Fatal(err)
	}

	// Rotate the certificate the way renewal tooling does: rewrite both
	// files in place.
	certPEM, keyPEM := testcert.Generate(t, "renewed.example.com")
	if err := os.WriteFile(certFile, certPEM, 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(keyFile, keyPEM, 0o600); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		mu.Lock()
		id := swapped
		mu.Unlock()
		if id != nil {
			if got := id.Leaf().DNSNames[0]; got != "renewed.example.com" {
				t.Fatalf("reloaded identity serves %q, want renewed.example.com", got)
			}
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("swap callback never ran after file change")
}

func TestReloaderKeepsIdentityOnBrokenReload(t *testing.T) {
	dir := t.TempDir()
	certFile, keyFile := writeIdentityFiles(t, dir, "example.com")

	var mu sync.Mutex
	calls := 0
	swap := func(id *Identity) {
		mu.Lock()
		calls++
		mu.Unlock()
	}

	rl, err := NewReloader(ReloaderConfig{
		CertFile:         certFile,
		KeyFile:          keyFile,
		DebounceInterval: 20 * time.Millisecond,
	}, swap)
	if err != nil {
		t.Fatal(err)
	}
	defer rl.Stop()

	if err := rl.Start(context.Background()); err != nil {
		t.Fatal(err)
	}

	// A half-written certificate must not reach the swap callback.
	if err := os.WriteFile(certFile, []byte("garbage"), 0o644); err != nil {
		t.Fatal(err)
	}

	time.Sleep(300 * time.Millisecond)
	mu.Lock()
	got := calls
	mu.Unlock()
	if got != 0 {
		t.Errorf("swap ran %d times for a broken certificate, want 0", got)
	}
}

func TestReloaderStopIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	certFile, keyFile := writeIdentityFiles(t, dir, "example.com")

	rl, err := NewReloader(ReloaderConfig{CertFile: certFile, KeyFile: keyFile}, func(*Identity) {})
	if err != nil {
		t.Fatal(err)
	}
	if err := rl.Start(context.Background()); err != nil {
		t.Fatal(err)
	}

	if err := rl.Stop(); err != nil {
		t.Errorf("Stop() error = %v", err)
	}
	if err := rl.Stop(); err != nil {
		t.Errorf("second Stop() error = %v", err)
	}
}
