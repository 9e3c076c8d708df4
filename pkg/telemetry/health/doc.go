// Package health provides health check endpoints for Atrium Vestibule.
//
// # Overview
//
// The health package implements liveness and readiness endpoints for
// Kubernetes and other orchestration systems, along with a version
// information endpoint. Checks are registered per component and served
// from the admin listener.
//
// # Endpoints
//
//   - /health: Liveness - indicates if the process is running
//   - /ready: Readiness - indicates if the system can serve traffic
//   - /version: Build information - version, commit, build time
//
// # Usage
//
//	checker := health.New(5 * time.Second)
//
//	checker.Register("listeners", func(ctx context.Context) error {
//	    if supervisor.State() != server.SupervisorRunning {
//	        return errors.New("server not running")
//	    }
//	    return nil
//	})
//
//	mux := http.NewServeMux()
//	health.HTTPMiddleware(mux, checker, version, commit, buildTime)
//
// # Liveness vs Readiness
//
// Liveness (/health) only verifies the process is alive and always
// returns 200 while it is. Readiness (/ready) runs every registered
// component check and returns 503 if any fails, which keeps traffic off
// the instance until all listeners accept and the access log store
// responds.
//
// Common component checks:
//   - config: configuration loaded and valid
//   - listeners: every accept loop is running
//   - accesslog: access log store reachable (disabled when logging is off)
package health
