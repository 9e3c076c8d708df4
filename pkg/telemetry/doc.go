// Package telemetry provides observability for Atrium Vestibule.
//
// # Components
//
//   - logging: structured logging via log/slog
//   - metrics: Prometheus metrics collection
//   - tracing: OpenTelemetry distributed tracing
//   - health: liveness and readiness endpoints
//
// # Usage
//
//	logger, _ := logging.Setup(cfg.Telemetry.Logging)
//
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
//	collector.RecordRequest("example.com", "GET", "200", duration, bytes)
//
//	tracer, _ := tracing.New(&cfg.Telemetry.Tracing)
//	ctx, span := tracer.Start(ctx, "request")
//	defer span.End()
//
// Metrics and health endpoints are served from the admin listener, kept
// separate from the virtual-host listeners so operational surfaces never
// collide with tenant traffic.
package telemetry
