package config

import "time"

// Default values applied by ApplyDefaults when fields are unset.
const (
	DefaultReadHeaderTimeout = 10 * time.Second
	DefaultReadTimeout       = 30 * time.Second
	DefaultWriteTimeout      = 30 * time.Second
	DefaultIdleTimeout       = 120 * time.Second
	DefaultHandshakeTimeout  = 10 * time.Second
	DefaultDrainTimeout      = 30 * time.Second
	DefaultMaxHeaderBytes    = 1 << 20

	DefaultProtocol = "http1"

	DefaultReloadDebounce = 250 * time.Millisecond

	DefaultFlushInterval = 100 * time.Millisecond

	DefaultAccessLogBackend      = "sqlite"
	DefaultAccessLogBufferSize   = 1000
	DefaultAccessLogWriteTimeout = 5 * time.Second
	DefaultSQLitePath            = "data/access.db"
	DefaultSQLiteMaxOpenConns    = 10
	DefaultSQLiteMaxIdleConns    = 5
	DefaultSQLiteBusyTimeout     = 5 * time.Second
	DefaultMemoryMaxRecords      = 10000
	DefaultRetentionDays         = 30
	DefaultRetentionSchedule     = "0 3 * * *"

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"
	DefaultLogOutput = "stdout"

	DefaultMetricsNamespace = "atrium"
	DefaultMetricsSubsystem = "vestibule"

	DefaultTracingServiceName = "atrium-vestibule"
	DefaultTracingEndpoint    = "localhost:4317"
	DefaultTracingTimeout     = 10 * time.Second
	DefaultTracingSampler     = "always"

	DefaultRateLimitIdleTTL = 10 * time.Minute

	DefaultAdminListenAddress = "127.0.0.1:9090"
)

func boolPtr(b bool) *bool { return &b }

// ApplyDefaults fills in default values for unset fields. It is called
// by LoadConfig after parsing and before validation, so validation sees
// the effective configuration.
func (c *Config) ApplyDefaults() {
	c.Server.applyDefaults()

	for i := range c.Hosts {
		c.Hosts[i].applyDefaults()
	}

	c.AccessLog.applyDefaults()
	c.Telemetry.applyDefaults()
	c.Limits.applyDefaults()
	c.Admin.applyDefaults()
}

func (s *ServerConfig) applyDefaults() {
	if s.ReadHeaderTimeout == 0 {
		s.ReadHeaderTimeout = DefaultReadHeaderTimeout
	}
	if s.ReadTimeout == 0 {
		s.ReadTimeout = DefaultReadTimeout
	}
	if s.WriteTimeout == 0 {
		s.WriteTimeout = DefaultWriteTimeout
	}
	if s.IdleTimeout == 0 {
		s.IdleTimeout = DefaultIdleTimeout
	}
	if s.HandshakeTimeout == 0 {
		s.HandshakeTimeout = DefaultHandshakeTimeout
	}
	if s.DrainTimeout == 0 {
		s.DrainTimeout = DefaultDrainTimeout
	}
	if s.MaxHeaderBytes == 0 {
		s.MaxHeaderBytes = DefaultMaxHeaderBytes
	}
	for i := range s.Listeners {
		if s.Listeners[i].Protocol == "" {
			s.Listeners[i].Protocol = DefaultProtocol
		}
	}
}

func (h *HostConfig) applyDefaults() {
	if h.TLS != nil && h.TLS.ReloadDebounce == 0 {
		h.TLS.ReloadDebounce = DefaultReloadDebounce
	}
	for i := range h.Routes {
		r := &h.Routes[i]
		if r.Handler == "proxy" && r.FlushInterval == 0 {
			r.FlushInterval = DefaultFlushInterval
		}
	}
}

func (a *AccessLogConfig) applyDefaults() {
	if a.Enabled == nil {
		a.Enabled = boolPtr(true)
	}
	if a.Backend == "" {
		a.Backend = DefaultAccessLogBackend
	}
	if a.BufferSize == 0 {
		a.BufferSize = DefaultAccessLogBufferSize
	}
	if a.WriteTimeout == 0 {
		a.WriteTimeout = DefaultAccessLogWriteTimeout
	}
	if a.SQLite.Path == "" {
		a.SQLite.Path = DefaultSQLitePath
	}
	if a.SQLite.MaxOpenConns == 0 {
		a.SQLite.MaxOpenConns = DefaultSQLiteMaxOpenConns
	}
	if a.SQLite.MaxIdleConns == 0 {
		a.SQLite.MaxIdleConns = DefaultSQLiteMaxIdleConns
	}
	if a.SQLite.WALMode == nil {
		a.SQLite.WALMode = boolPtr(true)
	}
	if a.SQLite.BusyTimeout == 0 {
		a.SQLite.BusyTimeout = DefaultSQLiteBusyTimeout
	}
	if a.MemoryMaxRecords == 0 {
		a.MemoryMaxRecords = DefaultMemoryMaxRecords
	}
	if a.Retention.Days == 0 {
		a.Retention.Days = DefaultRetentionDays
	}
	if a.Retention.Schedule == "" {
		a.Retention.Schedule = DefaultRetentionSchedule
	}
}

func (t *TelemetryConfig) applyDefaults() {
	if t.Logging.Level == "" {
		t.Logging.Level = DefaultLogLevel
	}
	if t.Logging.Format == "" {
		t.Logging.Format = DefaultLogFormat
	}
	if t.Logging.Output == "" {
		t.Logging.Output = DefaultLogOutput
	}
	if t.Metrics.Namespace == "" {
		t.Metrics.Namespace = DefaultMetricsNamespace
	}
	if t.Metrics.Subsystem == "" {
		t.Metrics.Subsystem = DefaultMetricsSubsystem
	}
	if t.Tracing.ServiceName == "" {
		t.Tracing.ServiceName = DefaultTracingServiceName
	}
	if t.Tracing.Endpoint == "" {
		t.Tracing.Endpoint = DefaultTracingEndpoint
	}
	if t.Tracing.Timeout == 0 {
		t.Tracing.Timeout = DefaultTracingTimeout
	}
	if t.Tracing.Sampler == "" {
		t.Tracing.Sampler = DefaultTracingSampler
	}
}

func (l *LimitsConfig) applyDefaults() {
	if l.Rate.Enabled {
		if l.Rate.Burst == 0 {
			l.Rate.Burst = int(2 * l.Rate.RequestsPerSecond)
			if l.Rate.Burst < 1 {
				l.Rate.Burst = 1
			}
		}
		if l.Rate.IdleTTL == 0 {
			l.Rate.IdleTTL = DefaultRateLimitIdleTTL
		}
	}
}

func (a *AdminConfig) applyDefaults() {
	if a.ListenAddress == "" {
		a.ListenAddress = DefaultAdminListenAddress
	}
}
