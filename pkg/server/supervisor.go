package server

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	sectls "atrium-hq/vestibule/pkg/security/tls"
	"atrium-hq/vestibule/pkg/vhost"
)

// SupervisorState tracks the supervisor through its lifecycle.
type SupervisorState int32

const (
	SupervisorIdle SupervisorState = iota
	SupervisorStarting
	SupervisorRunning
	SupervisorStopping
	SupervisorStopped
)

// String returns the lifecycle state name.
func (s SupervisorState) String() string {
	switch s {
	case SupervisorIdle:
		return "idle"
	case SupervisorStarting:
		return "starting"
	case SupervisorRunning:
		return "running"
	case SupervisorStopping:
		return "stopping"
	case SupervisorStopped:
		return "stopped"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Supervisor owns the full set of listeners and drives them through a
// shared lifecycle. Startup is all-or-nothing: every listener binds, or
// every already-bound socket is released and Start fails. The virtual
// host registry is frozen on Start; after that, lookups are lock-free.
type Supervisor struct {
	registry *vhost.Registry
	handler  http.Handler
	specs    []ListenerSpec
	opts     Options
	logger   *slog.Logger

	state     atomic.Int32
	listeners []*Listener

	serveErr  chan error
	serveWG   sync.WaitGroup
	stopOnce  sync.Once
	stopErr   error
	stoppedCh chan struct{}
}

// NewSupervisor builds a supervisor over the given registry and listener
// specs. The handler, typically the middleware-wrapped Dispatcher, is
// shared by every listener. Specs must be non-empty and unique by
// (interface, port).
func NewSupervisor(registry *vhost.Registry, specs []ListenerSpec, handler http.Handler, opts Options) (*Supervisor, error) {
	if len(specs) == 0 {
		return nil, ErrNoListeners
	}
	seen := make(map[string]struct{}, len(specs))
	for _, spec := range specs {
		key := spec.Key()
		if _, dup := seen[key]; dup {
			return nil, &DuplicateListenerError{Key: key}
		}
		seen[key] = struct{}{}
	}

	opts = opts.withDefaults()
	return &Supervisor{
		registry:  registry,
		handler:   handler,
		specs:     specs,
		opts:      opts,
		logger:    opts.Logger.With("component", "server.supervisor"),
		serveErr:  make(chan error, len(specs)),
		stoppedCh: make(chan struct{}),
	}, nil
}

// State returns the supervisor's lifecycle state.
func (s *Supervisor) State() SupervisorState {
	return SupervisorState(s.state.Load())
}

// Listeners returns the supervisor's listeners. Addresses are final once
// Start has returned, including kernel-assigned ports.
func (s *Supervisor) Listeners() []*Listener {
	out := make([]*Listener, len(s.listeners))
	copy(out, s.listeners)
	return out
}

// Start freezes the registry, binds every listener concurrently, and
// launches the accept loops. If any bind fails, every bound socket is
// closed and the error reports the failing listener; no accept loop runs.
func (s *Supervisor) Start(ctx context.Context) error {
	if !s.state.CompareAndSwap(int32(SupervisorIdle), int32(SupervisorStarting)) {
		return fmt.Errorf("supervisor: start called in state %s: %w", s.State(), ErrAlreadyStarted)
	}

	s.registry.Freeze()

	s.listeners = make([]*Listener, len(s.specs))
	for i, spec := range s.specs {
		s.listeners[i] = NewListener(spec, s.handler, s.tlsConfigFor(spec), s.opts)
	}

	g, _ := errgroup.WithContext(ctx)
	for _, ln := range s.listeners {
		g.Go(ln.Bind)
	}
	if err := g.Wait(); err != nil {
		// Consume stopOnce so a later Stop sees the shutdown as done
		// instead of closing stoppedCh a second time.
		s.stopOnce.Do(func() {
			for _, ln := range s.listeners {
				_ = ln.Close()
			}
			s.state.Store(int32(SupervisorStopped))
			close(s.stoppedCh)
		})
		return fmt.Errorf("server start failed: %w", err)
	}

	for _, ln := range s.listeners {
		s.serveWG.Add(1)
		go func(ln *Listener) {
			defer s.serveWG.Done()
			if err := ln.Serve(); err != nil {
				s.serveErr <- fmt.Errorf("listener %s: %w", ln.Spec(), err)
			}
		}(ln)
	}

	s.state.Store(int32(SupervisorRunning))
	s.logger.Info("server started",
		"listeners", len(s.listeners),
		"hosts", s.registry.Len(),
	)
	return nil
}

// Stop drains every listener concurrently and waits for the accept loops
// to exit. It is idempotent: concurrent and repeated calls share one
// shutdown and return its result.
func (s *Supervisor) Stop(ctx context.Context) error {
	s.stopOnce.Do(func() {
		prev := s.state.Swap(int32(SupervisorStopping))
		if SupervisorState(prev) == SupervisorIdle {
			s.state.Store(int32(SupervisorStopped))
			close(s.stoppedCh)
			return
		}
		s.logger.Info("server stopping", "listeners", len(s.listeners))

		var g errgroup.Group
		for _, ln := range s.listeners {
			g.Go(func() error { return ln.Drain(ctx) })
		}
		s.stopErr = g.Wait()
		s.serveWG.Wait()

		s.state.Store(int32(SupervisorStopped))
		close(s.stoppedCh)
		s.logger.Info("server stopped")
	})
	<-s.stoppedCh
	return s.stopErr
}

// Run starts the server and blocks until the context is cancelled or an
// accept loop fails, then drains within the configured drain timeout.
func (s *Supervisor) Run(ctx context.Context) error {
	if err := s.Start(ctx); err != nil {
		return err
	}

	var cause error
	select {
	case <-ctx.Done():
	case cause = <-s.serveErr:
		s.logger.Error("accept loop failed", "error", cause)
	}

	drainCtx, cancel := context.WithTimeout(context.Background(), s.opts.DrainTimeout)
	defer cancel()
	if err := s.Stop(drainCtx); err != nil && cause == nil {
		cause = err
	}
	return cause
}

// tlsConfigFor decides TLS for a spec: any virtual host with an identity
// on the spec's port makes the whole port TLS. ALPN advertises h2 only
// where the listener speaks HTTP/2.
func (s *Supervisor) tlsConfigFor(spec ListenerSpec) *tls.Config {
	if !s.registry.TLSOnPort(spec.Port) {
		return nil
	}
	var protos []string
	switch spec.Protocol {
	case HTTP2:
		protos = []string{"h2", "http/1.1"}
	case HTTP3:
		protos = []string{"h3"}
	default:
		protos = []string{"http/1.1"}
	}
	return sectls.ServerConfig(s.registry, spec.Port, protos)
}
