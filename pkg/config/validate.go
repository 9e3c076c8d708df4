package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/robfig/cron/v3"
)

// FieldError represents a validation error for a specific configuration field.
type FieldError struct {
	// Field is the dotted path to the configuration field (e.g., "server.listeners[0].port").
	Field string

	// Message is a human-readable error message.
	Message string
}

// Error returns the error message for this field error.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError represents one or more validation errors in a configuration.
// It implements the error interface and provides access to all field errors.
type ValidationError struct {
	// Errors contains all validation errors found in the configuration.
	Errors []FieldError
}

// Error returns a formatted string containing all validation errors.
func (e ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "configuration validation failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration validation failed: %s", e.Errors[0].Error())
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("configuration validation failed with %d errors:\n", len(e.Errors)))
	for _, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", err.Error()))
	}
	return sb.String()
}

// Validate validates the entire configuration and returns a ValidationError
// if any validation rules fail. It returns nil if the configuration is valid.
// All validation errors are collected and returned together.
func Validate(cfg *Config) error {
	var errs []FieldError

	errs = append(errs, validateServer(&cfg.Server)...)
	errs = append(errs, validateHosts(cfg.Hosts)...)
	errs = append(errs, validateCrossCutting(cfg)...)
	errs = append(errs, validateAccessLog(&cfg.AccessLog)...)
	errs = append(errs, validateTelemetry(&cfg.Telemetry)...)
	errs = append(errs, validateLimits(&cfg.Limits)...)
	errs = append(errs, validateAdmin(&cfg.Admin)...)

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}

	return nil
}

// validateServer validates the listener set and connection timeouts.
func validateServer(cfg *ServerConfig) []FieldError {
	var errs []FieldError

	if len(cfg.Listeners) == 0 {
		errs = append(errs, FieldError{
			Field:   "server.listeners",
			Message: "at least one listener is required",
		})
	}

	seen := make(map[string]bool)
	for i, ln := range cfg.Listeners {
		field := fmt.Sprintf("server.listeners[%d]", i)

		if ln.Port == 0 {
			errs = append(errs, FieldError{
				Field:   field + ".port",
				Message: "port is required and must be non-zero",
			})
		}

		switch ln.Protocol {
		case "http1", "http2", "http3":
		default:
			errs = append(errs, FieldError{
				Field:   field + ".protocol",
				Message: fmt.Sprintf("protocol must be one of http1, http2, http3 (got %q)", ln.Protocol),
			})
		}

		key := fmt.Sprintf("%s:%d", ln.Interface, ln.Port)
		if seen[key] {
			errs = append(errs, FieldError{
				Field:   field,
				Message: fmt.Sprintf("duplicate listener for %s", key),
			})
		}
		seen[key] = true
	}

	timeouts := []struct {
		name  string
		value int64
	}{
		{"read_header_timeout", int64(cfg.ReadHeaderTimeout)},
		{"read_timeout", int64(cfg.ReadTimeout)},
		{"write_timeout", int64(cfg.WriteTimeout)},
		{"idle_timeout", int64(cfg.IdleTimeout)},
		{"handshake_timeout", int64(cfg.HandshakeTimeout)},
		{"drain_timeout", int64(cfg.DrainTimeout)},
	}
	for _, t := range timeouts {
		if t.value < 0 {
			errs = append(errs, FieldError{
				Field:   "server." + t.name,
				Message: "timeout must be positive",
			})
		}
	}

	if cfg.MaxHeaderBytes < 0 {
		errs = append(errs, FieldError{
			Field:   "server.max_header_bytes",
			Message: "must be positive",
		})
	}

	return errs
}

// validateHosts validates each virtual host and checks for duplicate
// (hostname, port) keys.
func validateHosts(hosts []HostConfig) []FieldError {
	var errs []FieldError

	if len(hosts) == 0 {
		errs = append(errs, FieldError{
			Field:   "hosts",
			Message: "at least one virtual host is required",
		})
	}

	seen := make(map[string]bool)
	for i, h := range hosts {
		field := fmt.Sprintf("hosts[%d]", i)

		if h.Hostname == "" {
			errs = append(errs, FieldError{
				Field:   field + ".hostname",
				Message: "hostname is required",
			})
		}
		if h.Port == 0 {
			errs = append(errs, FieldError{
				Field:   field + ".port",
				Message: "port is required and must be non-zero",
			})
		}

		key := fmt.Sprintf("%s:%d", strings.ToLower(h.Hostname), h.Port)
		if seen[key] {
			errs = append(errs, FieldError{
				Field:   field,
				Message: fmt.Sprintf("duplicate virtual host %s", key),
			})
		}
		seen[key] = true

		if h.TLS != nil {
			if h.TLS.CertFile == "" {
				errs = append(errs, FieldError{
					Field:   field + ".tls.cert_file",
					Message: "cert file is required when tls is configured",
				})
			}
			if h.TLS.KeyFile == "" {
				errs = append(errs, FieldError{
					Field:   field + ".tls.key_file",
					Message: "key file is required when tls is configured",
				})
			}
		}

		errs = append(errs, validateRoutes(field, h.Routes)...)
	}

	return errs
}

// validateRoutes validates one host's route table.
func validateRoutes(hostField string, routes []RouteConfig) []FieldError {
	var errs []FieldError

	if len(routes) == 0 {
		errs = append(errs, FieldError{
			Field:   hostField + ".routes",
			Message: "at least one route is required",
		})
	}

	seen := make(map[string]bool)
	for i, r := range routes {
		field := fmt.Sprintf("%s.routes[%d]", hostField, i)

		if r.Path == "" {
			errs = append(errs, FieldError{
				Field:   field + ".path",
				Message: "path is required",
			})
		} else if !strings.HasPrefix(r.Path, "/") {
			errs = append(errs, FieldError{
				Field:   field + ".path",
				Message: "path must start with /",
			})
		}

		if seen[r.Path] {
			errs = append(errs, FieldError{
				Field:   field + ".path",
				Message: fmt.Sprintf("duplicate route path %q", r.Path),
			})
		}
		seen[r.Path] = true

		switch r.Handler {
		case "static":
			if r.Directory == "" {
				errs = append(errs, FieldError{
					Field:   field + ".directory",
					Message: "directory is required for static handlers",
				})
			}
		case "proxy":
			if r.Target == "" {
				errs = append(errs, FieldError{
					Field:   field + ".target",
					Message: "target is required for proxy handlers",
				})
			} else if u, err := url.Parse(r.Target); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
				errs = append(errs, FieldError{
					Field:   field + ".target",
					Message: fmt.Sprintf("target must be a valid http or https URL (got %q)", r.Target),
				})
			}
		case "status":
			if r.Status < 100 || r.Status > 599 {
				errs = append(errs, FieldError{
					Field:   field + ".status",
					Message: fmt.Sprintf("status must be a valid HTTP status code (got %d)", r.Status),
				})
			}
		default:
			errs = append(errs, FieldError{
				Field:   field + ".handler",
				Message: fmt.Sprintf("handler must be one of static, proxy, status (got %q)", r.Handler),
			})
		}
	}

	return errs
}

// validateCrossCutting checks rules spanning listeners and hosts: the
// per-port default host, TLS consistency per port, and HTTP/3 listener
// requirements.
func validateCrossCutting(cfg *Config) []FieldError {
	var errs []FieldError

	tlsOnPort := make(map[uint16]bool)
	plainOnPort := make(map[uint16]bool)
	defaultTLSOnPort := make(map[uint16]int)
	for _, h := range cfg.Hosts {
		if h.TLS != nil {
			tlsOnPort[h.Port] = true
			if h.Default {
				defaultTLSOnPort[h.Port]++
			}
		} else {
			plainOnPort[h.Port] = true
		}
	}

	for port, n := range defaultTLSOnPort {
		if n > 1 {
			errs = append(errs, FieldError{
				Field:   "hosts",
				Message: fmt.Sprintf("port %d has %d default TLS hosts; at most one is allowed", port, n),
			})
		}
	}

	// A port is either all-TLS or all-plaintext; a listener cannot
	// serve both on one socket.
	for port := range tlsOnPort {
		if plainOnPort[port] {
			errs = append(errs, FieldError{
				Field:   "hosts",
				Message: fmt.Sprintf("port %d mixes TLS and plaintext virtual hosts", port),
			})
		}
	}

	for i, ln := range cfg.Server.Listeners {
		if ln.Protocol == "http3" && !tlsOnPort[ln.Port] {
			errs = append(errs, FieldError{
				Field:   fmt.Sprintf("server.listeners[%d]", i),
				Message: fmt.Sprintf("http3 requires at least one TLS virtual host on port %d", ln.Port),
			})
		}
	}

	return errs
}

// validateAccessLog validates access log configuration.
func validateAccessLog(cfg *AccessLogConfig) []FieldError {
	var errs []FieldError

	switch cfg.Backend {
	case "sqlite", "memory":
	default:
		errs = append(errs, FieldError{
			Field:   "access_log.backend",
			Message: fmt.Sprintf("backend must be sqlite or memory (got %q)", cfg.Backend),
		})
	}

	if cfg.BufferSize < 0 {
		errs = append(errs, FieldError{
			Field:   "access_log.buffer_size",
			Message: "must be positive",
		})
	}

	if cfg.Retention.Days < 0 {
		errs = append(errs, FieldError{
			Field:   "access_log.retention.days",
			Message: "must not be negative",
		})
	}
	if cfg.Retention.Schedule != "" {
		if _, err := cron.ParseStandard(cfg.Retention.Schedule); err != nil {
			errs = append(errs, FieldError{
				Field:   "access_log.retention.schedule",
				Message: fmt.Sprintf("invalid cron expression: %v", err),
			})
		}
	}

	return errs
}

// validateTelemetry validates telemetry configuration.
func validateTelemetry(cfg *TelemetryConfig) []FieldError {
	var errs []FieldError

	switch cfg.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.level",
			Message: fmt.Sprintf("level must be one of debug, info, warn, error (got %q)", cfg.Logging.Level),
		})
	}

	switch cfg.Logging.Format {
	case "json", "text", "console":
	default:
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.format",
			Message: fmt.Sprintf("format must be json or text (got %q)", cfg.Logging.Format),
		})
	}

	if cfg.Tracing.Enabled {
		switch cfg.Tracing.Sampler {
		case "always", "never", "ratio":
		default:
			errs = append(errs, FieldError{
				Field:   "telemetry.tracing.sampler",
				Message: fmt.Sprintf("sampler must be one of always, never, ratio (got %q)", cfg.Tracing.Sampler),
			})
		}
		if cfg.Tracing.Sampler == "ratio" && (cfg.Tracing.SampleRatio < 0 || cfg.Tracing.SampleRatio > 1) {
			errs = append(errs, FieldError{
				Field:   "telemetry.tracing.sample_ratio",
				Message: "sample ratio must be between 0.0 and 1.0",
			})
		}
		if cfg.Tracing.Endpoint == "" {
			errs = append(errs, FieldError{
				Field:   "telemetry.tracing.endpoint",
				Message: "endpoint is required when tracing is enabled",
			})
		}
	}

	return errs
}

// validateLimits validates rate limiting configuration.
func validateLimits(cfg *LimitsConfig) []FieldError {
	var errs []FieldError

	if cfg.Rate.Enabled {
		if cfg.Rate.RequestsPerSecond <= 0 {
			errs = append(errs, FieldError{
				Field:   "limits.rate.requests_per_second",
				Message: "must be greater than zero when rate limiting is enabled",
			})
		}
		if cfg.Rate.Burst < 0 {
			errs = append(errs, FieldError{
				Field:   "limits.rate.burst",
				Message: "must not be negative",
			})
		}
	}

	return errs
}

// validateAdmin validates the admin listener configuration.
func validateAdmin(cfg *AdminConfig) []FieldError {
	var errs []FieldError

	if cfg.Enabled && cfg.ListenAddress == "" {
		errs = append(errs, FieldError{
			Field:   "admin.listen_address",
			Message: "listen address is required when the admin listener is enabled",
		})
	}

	return errs
}
