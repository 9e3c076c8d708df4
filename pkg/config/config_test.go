package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const validYAML = `
server:
  listeners:
    - interface: 127.0.0.1
      port: 8080
      protocol: http1
    - interface: 127.0.0.1
      port: 8443
      protocol: http2
  read_timeout: 15s

hosts:
  - hostname: www.example.com
    port: 8080
    routes:
      - path: /
        handler: static
        directory: ./public
  - hostname: api.example.com
    port: 8443
    default: true
    tls:
      cert_file: certs/api.crt
      key_file: certs/api.key
    routes:
      - path: /
        handler: proxy
        target: http://127.0.0.1:3000

access_log:
  backend: memory

telemetry:
  logging:
    level: debug
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadConfig(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, validYAML))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if len(cfg.Server.Listeners) != 2 {
		t.Fatalf("listeners = %d", len(cfg.Server.Listeners))
	}
	if cfg.Server.Listeners[1].Protocol != "http2" {
		t.Errorf("listener protocol = %q", cfg.Server.Listeners[1].Protocol)
	}
	if cfg.Server.ReadTimeout != 15*time.Second {
		t.Errorf("read timeout = %v, want the file value", cfg.Server.ReadTimeout)
	}

	if len(cfg.Hosts) != 2 {
		t.Fatalf("hosts = %d", len(cfg.Hosts))
	}
	api := cfg.Hosts[1]
	if !api.Default || api.TLS == nil || api.TLS.CertFile != "certs/api.crt" {
		t.Errorf("api host = %+v", api)
	}
	if api.Routes[0].Handler != "proxy" || api.Routes[0].Target != "http://127.0.0.1:3000" {
		t.Errorf("api route = %+v", api.Routes[0])
	}
}

func TestLoadConfigAppliesDefaults(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, validYAML))
	if err != nil {
		t.Fatal(err)
	}

	// Unset fields pick up defaults; set fields keep file values.
	if cfg.Server.ReadHeaderTimeout != DefaultReadHeaderTimeout {
		t.Errorf("read header timeout = %v", cfg.Server.ReadHeaderTimeout)
	}
	if cfg.Server.ReadTimeout != 15*time.Second {
		t.Errorf("read timeout overridden to %v", cfg.Server.ReadTimeout)
	}
	if cfg.AccessLog.Backend != "memory" {
		t.Errorf("backend = %q", cfg.AccessLog.Backend)
	}
	if cfg.AccessLog.Enabled == nil || !*cfg.AccessLog.Enabled {
		t.Error("access log should default to enabled")
	}
	if cfg.AccessLog.Retention.Schedule != DefaultRetentionSchedule {
		t.Errorf("retention schedule = %q", cfg.AccessLog.Retention.Schedule)
	}
	if cfg.Telemetry.Logging.Level != "debug" {
		t.Errorf("log level = %q, want the file value", cfg.Telemetry.Logging.Level)
	}
	if cfg.Telemetry.Logging.Format != DefaultLogFormat {
		t.Errorf("log format = %q", cfg.Telemetry.Logging.Format)
	}
	if cfg.Telemetry.Metrics.Namespace != DefaultMetricsNamespace {
		t.Errorf("metrics namespace = %q", cfg.Telemetry.Metrics.Namespace)
	}
	if cfg.Admin.ListenAddress != DefaultAdminListenAddress {
		t.Errorf("admin address = %q", cfg.Admin.ListenAddress)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("LoadConfig on a missing file = nil error")
	}
}

func TestLoadConfigBadYAML(t *testing.T) {
	if _, err := LoadConfig(writeConfig(t, "hosts: [unclosed")); err == nil {
		t.Fatal("LoadConfig on malformed YAML = nil error")
	}
}

func TestLoadConfigCollectsAllErrors(t *testing.T) {
	broken := `
server:
  listeners:
    - port: 0
      protocol: spdy

hosts:
  - hostname: ""
    port: 8080
    routes:
      - path: api
        handler: teapot
`
	_, err := LoadConfig(writeConfig(t, broken))
	if err == nil {
		t.Fatal("LoadConfig = nil error for a broken config")
	}

	var verr ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("error %T does not unwrap to ValidationError", err)
	}
	if len(verr.Errors) < 4 {
		t.Errorf("collected %d errors, want port, protocol, hostname, path, and handler all reported:\n%v",
			len(verr.Errors), verr)
	}

	fields := make(map[string]bool)
	for _, fe := range verr.Errors {
		fields[fe.Field] = true
	}
	for _, want := range []string{
		"server.listeners[0].port",
		"server.listeners[0].protocol",
		"hosts[0].hostname",
		"hosts[0].routes[0].handler",
	} {
		if !fields[want] {
			t.Errorf("missing error for field %s in %v", want, verr)
		}
	}
}

func TestValidateCrossCutting(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(cfg *Config)
		wantSub string
	}{
		{
			"two default TLS hosts on a port",
			func(cfg *Config) {
				cfg.Hosts[0].TLS = &TLSConfig{CertFile: "a.crt", KeyFile: "a.key"}
				cfg.Hosts[0].Port = 8443
				cfg.Hosts[0].Default = true
			},
			"default TLS hosts",
		},
		{
			"mixed TLS and plaintext on a port",
			func(cfg *Config) {
				cfg.Hosts[0].Port = 8443
			},
			"mixes TLS and plaintext",
		},
		{
			"http3 without TLS hosts",
			func(cfg *Config) {
				cfg.Server.Listeners[0].Protocol = "http3"
			},
			"http3 requires",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := LoadConfig(writeConfig(t, validYAML))
			if err != nil {
				t.Fatal(err)
			}
			tt.mutate(cfg)

			err = Validate(cfg)
			if err == nil {
				t.Fatal("Validate = nil error")
			}
			if !strings.Contains(err.Error(), tt.wantSub) {
				t.Errorf("error %q does not mention %q", err, tt.wantSub)
			}
		})
	}
}

func TestValidateDuplicateHosts(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, validYAML))
	if err != nil {
		t.Fatal(err)
	}
	// Same (hostname, port), different case.
	dup := cfg.Hosts[0]
	dup.Hostname = "WWW.EXAMPLE.COM"
	cfg.Hosts = append(cfg.Hosts, dup)

	if err := Validate(cfg); err == nil || !strings.Contains(err.Error(), "duplicate virtual host") {
		t.Errorf("Validate = %v, want a duplicate host error", err)
	}
}

func TestValidateProxyTarget(t *testing.T) {
	for _, target := range []string{"", "127.0.0.1:3000", "ftp://host", "http://"} {
		cfg, err := LoadConfig(writeConfig(t, validYAML))
		if err != nil {
			t.Fatal(err)
		}
		cfg.Hosts[1].Routes[0].Target = target
		if err := Validate(cfg); err == nil {
			t.Errorf("Validate with target %q = nil error", target)
		}
	}
}

func TestValidateRetentionSchedule(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, validYAML))
	if err != nil {
		t.Fatal(err)
	}
	cfg.AccessLog.Retention.Schedule = "61 25 * * *"
	if err := Validate(cfg); err == nil || !strings.Contains(err.Error(), "cron") {
		t.Errorf("Validate = %v, want a cron error", err)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("VESTIBULE_SERVER_READ_TIMEOUT", "45s")
	t.Setenv("VESTIBULE_ACCESS_LOG_BACKEND", "memory")
	t.Setenv("VESTIBULE_ACCESS_LOG_ENABLED", "false")
	t.Setenv("VESTIBULE_TELEMETRY_LOGGING_LEVEL", "error")
	t.Setenv("VESTIBULE_ADMIN_LISTEN_ADDRESS", "127.0.0.1:9191")

	cfg, err := LoadConfigWithEnvOverrides(writeConfig(t, validYAML))
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Server.ReadTimeout != 45*time.Second {
		t.Errorf("read timeout = %v, want the env value over the file's 15s", cfg.Server.ReadTimeout)
	}
	if cfg.AccessLog.Backend != "memory" {
		t.Errorf("backend = %q", cfg.AccessLog.Backend)
	}
	if cfg.AccessLog.Enabled == nil || *cfg.AccessLog.Enabled {
		t.Error("access log still enabled despite env override")
	}
	if cfg.Telemetry.Logging.Level != "error" {
		t.Errorf("log level = %q", cfg.Telemetry.Logging.Level)
	}
	if cfg.Admin.ListenAddress != "127.0.0.1:9191" {
		t.Errorf("admin address = %q", cfg.Admin.ListenAddress)
	}
}

func TestEnvOverridesValidated(t *testing.T) {
	t.Setenv("VESTIBULE_TELEMETRY_LOGGING_LEVEL", "shout")

	_, err := LoadConfigWithEnvOverrides(writeConfig(t, validYAML))
	if err == nil {
		t.Fatal("invalid env override passed validation")
	}
}

func TestApplyDefaultsRateBurst(t *testing.T) {
	cfg := &Config{}
	cfg.Limits.Rate.Enabled = true
	cfg.Limits.Rate.RequestsPerSecond = 10
	cfg.ApplyDefaults()

	if cfg.Limits.Rate.Burst != 20 {
		t.Errorf("burst = %d, want 2x the rate", cfg.Limits.Rate.Burst)
	}
	if cfg.Limits.Rate.IdleTTL != DefaultRateLimitIdleTTL {
		t.Errorf("idle TTL = %v", cfg.Limits.Rate.IdleTTL)
	}

	low := &Config{}
	low.Limits.Rate.Enabled = true
	low.Limits.Rate.RequestsPerSecond = 0.2
	low.ApplyDefaults()
	if low.Limits.Rate.Burst < 1 {
		t.Errorf("burst = %d, want at least 1", low.Limits.Rate.Burst)
	}
}
