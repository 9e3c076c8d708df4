package health

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Check statuses reported on the admin listener.
const (
	StatusOK        = "ok"
	StatusReady     = "ready"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
)

// CheckFunc checks one dependency of the front end: the listener
// supervisor, the access log store. It returns nil when the dependency
// is serving.
type CheckFunc func(ctx context.Context) error

// CheckResult is the outcome of a single check.
type CheckResult struct {
	Status   string        `json:"status"`
	Message  string        `json:"message,omitempty"`
	Duration time.Duration `json:"duration_ms,omitempty"`
}

// HealthStatus aggregates check results for one readiness or
// liveness response.
type HealthStatus struct {
	Status    string                 `json:"status"`
	Checks    map[string]CheckResult `json:"checks,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

// Checker runs registered checks and aggregates them into the
// liveness and readiness responses served on the admin listener.
type Checker struct {
	mu      sync.RWMutex
	checks  map[string]CheckFunc
	timeout time.Duration
}

// New creates a Checker. Each check is cut off after timeout; zero
// means 5 seconds.
func New(timeout time.Duration) *Checker {
	if timeout == 0 {
		timeout = 5 * time.Second
	}
	return &Checker{
		checks:  make(map[string]CheckFunc),
		timeout: timeout,
	}
}

// Register adds a named check, replacing any check with the same name.
func (c *Checker) Register(name string, check CheckFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checks[name] = check
}

// Unregister removes a check.
func (c *Checker) Unregister(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.checks, name)
}

// Names returns the registered check names, sorted.
func (c *Checker) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.checks))
	for name := range c.checks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Liveness reports that the process is up. It runs no checks; a hung
// dependency must not make the orchestrator restart the process.
func (c *Checker) Liveness() HealthStatus {
	return HealthStatus{
		Status:    StatusOK,
		Timestamp: time.Now(),
	}
}

// Readiness runs every registered check concurrently and aggregates
// the results. Any failure degrades the overall status, which
// the readiness endpoint maps to 503.
func (c *Checker) Readiness(ctx context.Context) HealthStatus {
	c.mu.RLock()
	names := make([]string, 0, len(c.checks))
	funcs := make([]CheckFunc, 0, len(c.checks))
	for name, fn := range c.checks {
		names = append(names, name)
		funcs = append(funcs, fn)
	}
	c.mu.RUnlock()

	status := HealthStatus{
		Status:    StatusReady,
		Checks:    make(map[string]CheckResult, len(names)),
		Timestamp: time.Now(),
	}
	if len(names) == 0 {
		return status
	}

	results := make([]CheckResult, len(names))
	var wg sync.WaitGroup
	for i := range funcs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = c.run(ctx, funcs[i])
		}(i)
	}
	wg.Wait()

	for i, name := range names {
		status.Checks[name] = results[i]
		if results[i].Status == StatusUnhealthy {
			status.Status = StatusDegraded
		}
	}
	return status
}

// run executes one check under the configured timeout.
func (c *Checker) run(ctx context.Context, check CheckFunc) CheckResult {
	checkCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	done := make(chan error, 1)
	go func() {
		done <- check(checkCtx)
	}()

	select {
	case err := <-done:
		result := CheckResult{Status: StatusOK, Duration: time.Since(start)}
		if err != nil {
			result.Status = StatusUnhealthy
			result.Message = err.Error()
		}
		return result
	case <-checkCtx.Done():
		return CheckResult{
			Status:   StatusUnhealthy,
			Message:  "check timed out",
			Duration: time.Since(start),
		}
	}
}
