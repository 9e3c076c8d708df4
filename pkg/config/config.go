package config

import "time"

// Config is the root configuration structure for Atrium Vestibule.
// It contains the listener set, the virtual host definitions, access
// logging, telemetry, rate limits, and the admin surface.
type Config struct {
	// Server contains listener specs and connection-level timeouts
	// shared by every listener.
	Server ServerConfig `yaml:"server"`

	// Hosts defines the virtual hosts. Each entry is keyed by its
	// (hostname, port) pair; duplicates are a validation error.
	Hosts []HostConfig `yaml:"hosts"`

	// AccessLog contains configuration for per-request access log
	// recording, storage, and retention.
	AccessLog AccessLogConfig `yaml:"access_log"`

	// Telemetry contains configuration for observability: logging,
	// metrics, and distributed tracing.
	Telemetry TelemetryConfig `yaml:"telemetry"`

	// Limits contains request rate limiting configuration.
	Limits LimitsConfig `yaml:"limits"`

	// Admin configures the operational listener serving metrics and
	// health endpoints, separate from tenant traffic.
	Admin AdminConfig `yaml:"admin"`
}

// ServerConfig contains the listener set and shared connection limits.
type ServerConfig struct {
	// Listeners is the set of sockets the server binds. At least one
	// listener is required; (interface, port) pairs must be unique.
	Listeners []ListenerConfig `yaml:"listeners"`

	// ReadHeaderTimeout is the maximum duration for reading request
	// headers. Default: 10s
	ReadHeaderTimeout time.Duration `yaml:"read_header_timeout"`

	// ReadTimeout is the maximum duration for reading the entire
	// request, including the body. Default: 30s
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// WriteTimeout is the maximum duration before timing out writes of
	// the response. Default: 30s
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// IdleTimeout is the maximum time to wait for the next request on a
	// keep-alive connection. Default: 120s
	IdleTimeout time.Duration `yaml:"idle_timeout"`

	// HandshakeTimeout bounds the TLS handshake on newly accepted
	// connections. Default: 10s
	HandshakeTimeout time.Duration `yaml:"handshake_timeout"`

	// DrainTimeout is how long graceful shutdown waits for in-flight
	// requests before force-closing connections. Default: 30s
	DrainTimeout time.Duration `yaml:"drain_timeout"`

	// MaxHeaderBytes limits the size of request headers.
	// Default: 1048576 (1MB)
	MaxHeaderBytes int `yaml:"max_header_bytes"`
}

// ListenerConfig describes one socket to bind.
type ListenerConfig struct {
	// Interface is the address to bind. Empty means all interfaces
	// ("0.0.0.0").
	Interface string `yaml:"interface"`

	// Port is the port to bind. Required, non-zero.
	Port uint16 `yaml:"port"`

	// Protocol selects the HTTP version served on this socket:
	// "http1", "http2", or "http3". http3 listens on UDP and requires
	// at least one TLS-bearing virtual host on the port.
	// Default: "http1"
	Protocol string `yaml:"protocol"`
}

// HostConfig describes one virtual host.
type HostConfig struct {
	// Hostname is the exact hostname this host serves. Matching is
	// case-insensitive; no wildcards. Required.
	Hostname string `yaml:"hostname"`

	// Port ties the host to a listener port. Required, non-zero.
	Port uint16 `yaml:"port"`

	// Default marks this host as the SNI fallback for its port: clients
	// that send no SNI reach it. At most one TLS-bearing host per port
	// may be default.
	Default bool `yaml:"default"`

	// TLS holds the host's certificate identity. A host with TLS makes
	// its whole port a TLS port.
	TLS *TLSConfig `yaml:"tls"`

	// Headers are set on every response served by this host.
	Headers map[string]string `yaml:"headers"`

	// StatusPages maps status codes to HTML files served as error
	// bodies, e.g. {404: "./pages/404.html"}.
	StatusPages map[int]string `yaml:"status_pages"`

	// Routes are the host's path patterns. Longest prefix wins; exact
	// duplicates are a validation error.
	Routes []RouteConfig `yaml:"routes"`
}

// TLSConfig holds a virtual host's certificate identity.
type TLSConfig struct {
	// CertFile is the PEM certificate chain, leaf first. Required.
	CertFile string `yaml:"cert_file"`

	// KeyFile is the PEM private key. Required.
	KeyFile string `yaml:"key_file"`

	// ClientCAFile enables mutual TLS: clients must present a
	// certificate signed by one of these CAs.
	ClientCAFile string `yaml:"client_ca_file"`

	// Reload watches the certificate files and hot-swaps the identity
	// when they change. Default: false
	Reload bool `yaml:"reload"`

	// ReloadDebounce coalesces bursts of file events into one reload.
	// Default: 250ms
	ReloadDebounce time.Duration `yaml:"reload_debounce"`
}

// RouteConfig describes one path pattern on a virtual host.
type RouteConfig struct {
	// Path is the pattern, e.g. "/" or "/api". Prefix matching on
	// segment boundaries; "/api" matches "/api" and "/api/v1" but not
	// "/apiary". Required.
	Path string `yaml:"path"`

	// Handler selects the handler type: "static", "proxy", or
	// "status". Required.
	Handler string `yaml:"handler"`

	// Directory is the filesystem root for static handlers.
	Directory string `yaml:"directory"`

	// IndexFiles are tried in order when a static request resolves to a
	// directory.
	IndexFiles []string `yaml:"index_files"`

	// Target is the upstream base URL for proxy handlers.
	Target string `yaml:"target"`

	// FlushInterval controls proxy response streaming.
	// Default: 100ms
	FlushInterval time.Duration `yaml:"flush_interval"`

	// Status is the fixed response code for status handlers.
	Status int `yaml:"status"`

	// BodyFile is an optional HTML file served by status handlers.
	BodyFile string `yaml:"body_file"`
}

// AccessLogConfig contains access log recording configuration.
type AccessLogConfig struct {
	// Enabled turns per-request access logging on. Default: true
	Enabled *bool `yaml:"enabled"`

	// Backend selects the store: "sqlite" or "memory".
	// Default: "sqlite"
	Backend string `yaml:"backend"`

	// BufferSize is the async write buffer; full buffers drop records
	// rather than blocking requests. Default: 1000
	BufferSize int `yaml:"buffer_size"`

	// WriteTimeout bounds a single storage write. Default: 5s
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// SQLite configures the sqlite backend.
	SQLite SQLiteConfig `yaml:"sqlite"`

	// MemoryMaxRecords bounds the memory backend. Default: 10000
	MemoryMaxRecords int `yaml:"memory_max_records"`

	// Retention configures scheduled pruning.
	Retention RetentionConfig `yaml:"retention"`
}

// SQLiteConfig configures the sqlite access log backend.
type SQLiteConfig struct {
	// Path is the database file. Default: "data/access.db"
	Path string `yaml:"path"`

	// MaxOpenConns is the connection pool cap. Default: 10
	MaxOpenConns int `yaml:"max_open_conns"`

	// MaxIdleConns is the idle connection cap. Default: 5
	MaxIdleConns int `yaml:"max_idle_conns"`

	// WALMode enables write-ahead logging. Default: true
	WALMode *bool `yaml:"wal_mode"`

	// BusyTimeout is how long to wait on a locked database.
	// Default: 5s
	BusyTimeout time.Duration `yaml:"busy_timeout"`
}

// RetentionConfig configures access log pruning.
type RetentionConfig struct {
	// Days is the retention period; 0 keeps records forever.
	// Default: 30
	Days int `yaml:"days"`

	// Schedule is a cron expression for pruning runs.
	// Default: "0 3 * * *" (daily at 3 AM)
	Schedule string `yaml:"schedule"`

	// MaxRecords caps the total record count; 0 means unlimited.
	MaxRecords int64 `yaml:"max_records"`
}

// TelemetryConfig groups the observability sections.
type TelemetryConfig struct {
	// Logging configures the process-wide structured logger.
	Logging LoggingConfig `yaml:"logging"`

	// Metrics configures Prometheus metrics.
	Metrics MetricsConfig `yaml:"metrics"`

	// Tracing configures OpenTelemetry tracing.
	Tracing TracingConfig `yaml:"tracing"`
}

// LoggingConfig configures the structured logger.
type LoggingConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error".
	// Default: "info"
	Level string `yaml:"level"`

	// Format is "json" or "text". Default: "json"
	Format string `yaml:"format"`

	// Output is "stdout", "stderr", or a file path.
	// Default: "stdout"
	Output string `yaml:"output"`

	// AddSource includes file:line in log records. Default: false
	AddSource bool `yaml:"add_source"`
}

// MetricsConfig configures Prometheus metrics.
type MetricsConfig struct {
	// Enabled turns metrics collection on. Default: true
	Enabled bool `yaml:"enabled"`

	// Namespace is the metric name prefix. Default: "atrium"
	Namespace string `yaml:"namespace"`

	// Subsystem is the second metric name component.
	// Default: "vestibule"
	Subsystem string `yaml:"subsystem"`

	// RequestDurationBuckets overrides the histogram buckets for
	// request durations, in seconds.
	RequestDurationBuckets []float64 `yaml:"request_duration_buckets"`
}

// TracingConfig configures OpenTelemetry tracing over OTLP gRPC.
type TracingConfig struct {
	// Enabled turns tracing on. Default: false
	Enabled bool `yaml:"enabled"`

	// ServiceName identifies this process in traces.
	// Default: "atrium-vestibule"
	ServiceName string `yaml:"service_name"`

	// Endpoint is the OTLP gRPC collector address, host:port.
	// Default: "localhost:4317"
	Endpoint string `yaml:"endpoint"`

	// Insecure disables TLS to the collector. Default: true
	Insecure bool `yaml:"insecure"`

	// Timeout bounds span export calls. Default: 10s
	Timeout time.Duration `yaml:"timeout"`

	// Sampler is "always", "never", or "ratio". Default: "always"
	Sampler string `yaml:"sampler"`

	// SampleRatio is the sampled fraction for the ratio sampler, in
	// [0, 1].
	SampleRatio float64 `yaml:"sample_ratio"`
}

// LimitsConfig contains rate limiting configuration.
type LimitsConfig struct {
	// Rate configures the per-client-IP token bucket applied across
	// all virtual hosts.
	Rate RateLimitConfig `yaml:"rate"`
}

// RateLimitConfig configures the per-client rate limiter.
type RateLimitConfig struct {
	// Enabled turns rate limiting on. Default: false
	Enabled bool `yaml:"enabled"`

	// RequestsPerSecond is the steady-state rate per client IP.
	RequestsPerSecond float64 `yaml:"requests_per_second"`

	// Burst is the token bucket size per client IP.
	// Default: 2x requests_per_second, minimum 1
	Burst int `yaml:"burst"`

	// IdleTTL is how long an idle client's bucket is kept.
	// Default: 10m
	IdleTTL time.Duration `yaml:"idle_ttl"`
}

// AdminConfig configures the operational listener.
type AdminConfig struct {
	// Enabled serves /metrics, /health, /ready, and /version on the
	// admin address. Default: false
	Enabled bool `yaml:"enabled"`

	// ListenAddress is the admin socket. Default: "127.0.0.1:9090"
	ListenAddress string `yaml:"listen_address"`
}
