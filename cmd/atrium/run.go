package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"atrium-hq/vestibule/pkg/accesslog"
	"atrium-hq/vestibule/pkg/accesslog/recorder"
	"atrium-hq/vestibule/pkg/accesslog/retention"
	"atrium-hq/vestibule/pkg/accesslog/storage"
	"atrium-hq/vestibule/pkg/cli"
	"atrium-hq/vestibule/pkg/config"
	"atrium-hq/vestibule/pkg/handlers"
	sectls "atrium-hq/vestibule/pkg/security/tls"
	"atrium-hq/vestibule/pkg/server"
	"atrium-hq/vestibule/pkg/server/middleware"
	"atrium-hq/vestibule/pkg/telemetry/health"
	"atrium-hq/vestibule/pkg/telemetry/logging"
	"atrium-hq/vestibule/pkg/telemetry/metrics"
	"atrium-hq/vestibule/pkg/telemetry/tracing"
	"atrium-hq/vestibule/pkg/vhost"
)

var runFlags struct {
	logLevel string
	dryRun   bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the Vestibule server",
	Long: `Start the Vestibule server with the specified configuration.

The server binds every configured listener, loads the virtual host table,
and dispatches requests by (hostname, port) and longest path prefix.
Startup is all-or-nothing: if any listener fails to bind, every
already-bound socket is released and the process exits.

Examples:
  # Start with default config
  atrium run

  # Start with custom config
  atrium run --config /etc/atrium/config.yaml

  # Validate config without starting the server
  atrium run --dry-run`,
	RunE: runServer,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVar(&runFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	runCmd.Flags().BoolVar(&runFlags.dryRun, "dry-run", false, "validate config without starting server")
}

func runServer(cmd *cobra.Command, args []string) error {
	// Load configuration
	if err := config.Initialize(cfgFile); err != nil {
		return cli.NewConfigError("", fmt.Sprintf("failed to load config: %v", err))
	}
	cfg := config.GetConfig()

	// Apply flag overrides
	if runFlags.logLevel != "" {
		cfg.Telemetry.Logging.Level = runFlags.logLevel
	}
	if verbose {
		cfg.Telemetry.Logging.Level = "debug"
	}

	logger, err := logging.Setup(cfg.Telemetry.Logging)
	if err != nil {
		return cli.NewConfigError("telemetry.logging", err.Error())
	}

	status := cli.NewStatus(os.Stdout)

	if runFlags.dryRun {
		status.Step("Configuration valid")
		return nil
	}

	printBanner(status, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Build the virtual host table
	registry, reloaders, err := buildRegistry(cfg)
	if err != nil {
		return cli.NewCommandError("run", err)
	}
	for _, rl := range reloaders {
		if err := rl.Start(ctx); err != nil {
			return cli.NewCommandError("run", fmt.Errorf("certificate reload: %w", err))
		}
		defer rl.Stop()
	}
	status.Step("Virtual hosts loaded (%d hosts)", registry.Len())

	// Access log recording
	var accessRecorder *recorder.Recorder
	var store accesslog.Store
	if *cfg.AccessLog.Enabled {
		store, err = buildAccessLogStore(cfg)
		if err != nil {
			return cli.NewCommandError("run", err)
		}
		defer store.Close()

		accessRecorder = recorder.New(store, &recorder.Config{
			Enabled:      true,
			AsyncBuffer:  cfg.AccessLog.BufferSize,
			WriteTimeout: cfg.AccessLog.WriteTimeout,
		})
		defer accessRecorder.Close()

		if cfg.AccessLog.Retention.Schedule != "" {
			pruner := retention.NewPruner(store, &retention.Config{
				RetentionDays: cfg.AccessLog.Retention.Days,
				PruneSchedule: cfg.AccessLog.Retention.Schedule,
				MaxRecords:    cfg.AccessLog.Retention.MaxRecords,
			})
			if err := pruner.Scheduler().Start(ctx); err != nil {
				slog.Warn("failed to start retention scheduler", "error", err)
			} else {
				defer pruner.Scheduler().Stop()
			}
		}

		status.Step("Access log initialized (%s)", cfg.AccessLog.Backend)
	}

	// Telemetry
	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
	tracer, err := tracing.New(&cfg.Telemetry.Tracing)
	if err != nil {
		return cli.NewCommandError("run", fmt.Errorf("tracing init: %w", err))
	}
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		_ = tracer.Shutdown(shutdownCtx)
	}()

	// Request pipeline: dispatcher wrapped in the middleware chain
	handler := buildHandler(cfg, registry, collector, tracer, accessRecorder, logger)

	specs, err := listenerSpecs(cfg)
	if err != nil {
		return cli.NewCommandError("run", err)
	}

	opts := server.Options{
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
		MaxHeaderBytes:    cfg.Server.MaxHeaderBytes,
		HandshakeTimeout:  cfg.Server.HandshakeTimeout,
		DrainTimeout:      cfg.Server.DrainTimeout,
		Logger:            logger,
		Monitor:           collector,
	}

	sup, err := server.NewSupervisor(registry, specs, handler, opts)
	if err != nil {
		return cli.NewCommandError("run", err)
	}

	// Admin listener (metrics, health, version)
	if cfg.Admin.Enabled {
		adminSrv := buildAdminServer(cfg, collector, sup, store)
		go func() {
			if err := adminSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				slog.Error("admin listener failed", "error", err)
			}
		}()
		defer func() {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()
			_ = adminSrv.Shutdown(shutdownCtx)
		}()
	}

	errChan := make(chan error, 1)
	go func() {
		errChan <- sup.Run(ctx)
	}()

	if err := waitForRunning(sup, errChan, 10*time.Second); err != nil {
		return cli.NewCommandError("run", err)
	}

	status.Blank()
	for _, ln := range sup.Listeners() {
		status.Step("Listening on %s", ln.Spec())
	}
	if cfg.Admin.Enabled {
		status.Step("Admin endpoints: http://%s/metrics http://%s/health",
			cfg.Admin.ListenAddress, cfg.Admin.ListenAddress)
	}
	status.Blank()
	status.Info("Press Ctrl+C to stop")

	sigChan := cli.NotifyShutdown()

	select {
	case err := <-errChan:
		if err != nil {
			return cli.NewCommandError("run", err)
		}
		return nil
	case sig := <-sigChan:
		status.Blank()
		status.Info("Received signal %s, shutting down gracefully...", sig)
		cancel()
		if err := <-errChan; err != nil {
			slog.Error("shutdown failed", "error", err)
			return cli.NewCommandError("run", err)
		}
		status.Step("Server stopped")
		return nil
	}
}

// buildRegistry constructs the virtual host registry from configuration:
// TLS identities, per-host headers, status pages, and route tables.
func buildRegistry(cfg *config.Config) (*vhost.Registry, []*sectls.Reloader, error) {
	registry := vhost.NewRegistry()
	var reloaders []*sectls.Reloader

	for i := range cfg.Hosts {
		hc := &cfg.Hosts[i]

		var identity *sectls.Identity
		if hc.TLS != nil {
			var err error
			identity, err = sectls.LoadIdentity(hc.TLS.CertFile, hc.TLS.KeyFile, hc.TLS.ClientCAFile)
			if err != nil {
				return nil, nil, fmt.Errorf("host %s:%d: %w", hc.Hostname, hc.Port, err)
			}
		}

		statusPages, err := loadStatusPages(hc.StatusPages)
		if err != nil {
			return nil, nil, fmt.Errorf("host %s:%d: %w", hc.Hostname, hc.Port, err)
		}

		vh, err := vhost.New(vhost.HostConfig{
			Hostname:    hc.Hostname,
			Port:        hc.Port,
			Identity:    identity,
			Default:     hc.Default,
			Headers:     hc.Headers,
			StatusPages: statusPages,
		})
		if err != nil {
			return nil, nil, err
		}

		for _, rc := range hc.Routes {
			handler, err := buildRouteHandler(rc, vh.ServeStatus)
			if err != nil {
				return nil, nil, fmt.Errorf("host %s:%d route %q: %w", hc.Hostname, hc.Port, rc.Path, err)
			}
			if err := vh.Router().Register(rc.Path, handler); err != nil {
				return nil, nil, fmt.Errorf("host %s:%d: %w", hc.Hostname, hc.Port, err)
			}
		}

		if err := registry.Register(vh); err != nil {
			return nil, nil, err
		}

		if hc.TLS != nil && hc.TLS.Reload {
			rl, err := sectls.NewReloader(sectls.ReloaderConfig{
				CertFile:         hc.TLS.CertFile,
				KeyFile:          hc.TLS.KeyFile,
				CAFile:           hc.TLS.ClientCAFile,
				DebounceInterval: hc.TLS.ReloadDebounce,
			}, vh.SetIdentity)
			if err != nil {
				return nil, nil, fmt.Errorf("host %s:%d: %w", hc.Hostname, hc.Port, err)
			}
			reloaders = append(reloaders, rl)
		}
	}

	return registry, reloaders, nil
}

// buildRouteHandler constructs the handler for one route entry. Handler
// errors render through the owning host's status pages.
func buildRouteHandler(rc config.RouteConfig, errorPage handlers.ErrorPage) (http.Handler, error) {
	switch rc.Handler {
	case "static":
		return handlers.NewStatic(handlers.StaticConfig{
			Directory:   rc.Directory,
			StripPrefix: rc.Path,
			IndexFiles:  rc.IndexFiles,
			ErrorPage:   errorPage,
		})
	case "proxy":
		return handlers.NewProxy(handlers.ProxyConfig{
			Target:        rc.Target,
			FlushInterval: rc.FlushInterval,
			ErrorPage:     errorPage,
		})
	case "status":
		var body []byte
		if rc.BodyFile != "" {
			var err error
			body, err = os.ReadFile(rc.BodyFile)
			if err != nil {
				return nil, fmt.Errorf("status body file: %w", err)
			}
		}
		return handlers.NewStatus(rc.Status, body)
	default:
		return nil, fmt.Errorf("unknown handler type %q", rc.Handler)
	}
}

// loadStatusPages reads per-host error page files into memory.
func loadStatusPages(pages map[int]string) (map[int][]byte, error) {
	if len(pages) == 0 {
		return nil, nil
	}
	out := make(map[int][]byte, len(pages))
	for code, path := range pages {
		body, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("status page %d: %w", code, err)
		}
		out[code] = body
	}
	return out, nil
}

// buildHandler wraps the dispatcher in the middleware chain, outermost
// first: recovery, request ID, logging, metrics, tracing, access log,
// rate limiting.
func buildHandler(
	cfg *config.Config,
	registry *vhost.Registry,
	collector *metrics.Collector,
	tracer *tracing.Tracer,
	accessRecorder *recorder.Recorder,
	logger *slog.Logger,
) http.Handler {
	var handler http.Handler = server.NewDispatcher(registry, logger)

	if cfg.Limits.Rate.Enabled {
		handler = middleware.RateLimitMiddleware(middleware.RateLimitConfig{
			Enabled:           true,
			RequestsPerSecond: cfg.Limits.Rate.RequestsPerSecond,
			Burst:             cfg.Limits.Rate.Burst,
			IdleTTL:           cfg.Limits.Rate.IdleTTL,
		})(handler)
	}
	handler = middleware.AccessLogMiddleware(accessRecorder)(handler)
	handler = middleware.TracingMiddleware(tracer)(handler)
	handler = middleware.MetricsMiddleware(collector)(handler)
	handler = middleware.LoggingMiddleware(handler)
	handler = middleware.RequestIDMiddleware(handler)
	handler = middleware.RecoveryMiddleware(handler)

	return handler
}

// buildAccessLogStore creates the configured access log backend.
func buildAccessLogStore(cfg *config.Config) (accesslog.Store, error) {
	switch cfg.AccessLog.Backend {
	case "sqlite":
		return storage.NewSQLiteStore(&storage.SQLiteConfig{
			Path:         cfg.AccessLog.SQLite.Path,
			MaxOpenConns: cfg.AccessLog.SQLite.MaxOpenConns,
			MaxIdleConns: cfg.AccessLog.SQLite.MaxIdleConns,
			WALMode:      *cfg.AccessLog.SQLite.WALMode,
			BusyTimeout:  cfg.AccessLog.SQLite.BusyTimeout,
		})
	case "memory":
		return storage.NewMemoryStore(cfg.AccessLog.MemoryMaxRecords), nil
	default:
		return nil, fmt.Errorf("unsupported access log backend: %s", cfg.AccessLog.Backend)
	}
}

// buildAdminServer assembles the operational mux: Prometheus metrics,
// liveness/readiness checks, and version info on a loopback-default
// address separate from tenant traffic.
func buildAdminServer(cfg *config.Config, collector *metrics.Collector, sup *server.Supervisor, store accesslog.Store) *http.Server {
	checker := health.New(2 * time.Second)
	checker.Register("listeners", func(ctx context.Context) error {
		if state := sup.State(); state != server.SupervisorRunning {
			return fmt.Errorf("server not running (state %s)", state)
		}
		return nil
	})
	if store != nil {
		checker.Register("accesslog", store.Ping)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", collector.Handler())
	health.HTTPMiddleware(mux, checker, Version, GitCommit, BuildDate)

	return &http.Server{
		Addr:              cfg.Admin.ListenAddress,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// listenerSpecs converts configured listeners into server specs.
func listenerSpecs(cfg *config.Config) ([]server.ListenerSpec, error) {
	specs := make([]server.ListenerSpec, 0, len(cfg.Server.Listeners))
	for _, lc := range cfg.Server.Listeners {
		proto, err := server.ParseProtocol(lc.Protocol)
		if err != nil {
			return nil, err
		}
		specs = append(specs, server.ListenerSpec{
			Interface: lc.Interface,
			Port:      lc.Port,
			Protocol:  proto,
		})
	}
	return specs, nil
}

// waitForRunning blocks until the supervisor reaches Running, the run
// goroutine fails, or the timeout expires.
func waitForRunning(sup *server.Supervisor, errChan <-chan error, timeout time.Duration) error {
	deadline := time.After(timeout)
	tick := time.NewTicker(10 * time.Millisecond)
	defer tick.Stop()
	for {
		select {
		case err := <-errChan:
			if err == nil {
				err = fmt.Errorf("server exited before start completed")
			}
			return err
		case <-deadline:
			return fmt.Errorf("server failed to reach running state within %s", timeout)
		case <-tick.C:
			if sup.State() == server.SupervisorRunning {
				return nil
			}
		}
	}
}

func printBanner(status *cli.Status, cfg *config.Config) {
	status.Info("Atrium Vestibule v%s", Version)
	status.Info("Loading configuration from: %s", cfgFile)
	status.Step("Configuration loaded")

	slog.Debug("configuration summary",
		"listeners", len(cfg.Server.Listeners),
		"hosts", len(cfg.Hosts),
		"access_log", *cfg.AccessLog.Enabled,
		"metrics", cfg.Telemetry.Metrics.Enabled,
		"tracing", cfg.Telemetry.Tracing.Enabled,
	)
}
