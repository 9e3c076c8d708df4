package server

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/quic-go/quic-go/http3"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
)

// ListenerState tracks a listener through its lifecycle.
type ListenerState int32

const (
	ListenerCreated ListenerState = iota
	ListenerBound
	ListenerAccepting
	ListenerDraining
	ListenerClosed
)

// String returns the lifecycle state name.
func (s ListenerState) String() string {
	switch s {
	case ListenerCreated:
		return "created"
	case ListenerBound:
		return "bound"
	case ListenerAccepting:
		return "accepting"
	case ListenerDraining:
		return "draining"
	case ListenerClosed:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Monitor receives listener-level connection events. Implemented by the
// telemetry metrics collector; a nil monitor disables reporting.
type Monitor interface {
	ConnectionAccepted(listener string)
	ConnectionClosed(listener string)
	HandshakeFailure(listener string)
	ListenerUp(listener string, up bool)
}

// Options carries the per-connection limits every listener enforces.
// Zero values fall back to the defaults below.
type Options struct {
	// ReadHeaderTimeout bounds reading a request's header.
	// Default: 10s.
	ReadHeaderTimeout time.Duration

	// ReadTimeout bounds reading an entire request including the body.
	// Default: 30s.
	ReadTimeout time.Duration

	// WriteTimeout bounds writing a response. Default: 30s.
	WriteTimeout time.Duration

	// IdleTimeout bounds keep-alive waits between requests.
	// Default: 120s.
	IdleTimeout time.Duration

	// MaxHeaderBytes limits request header size. Default: 1MB.
	MaxHeaderBytes int

	// HandshakeTimeout bounds the eager TLS handshake per connection.
	// Default: 10s.
	HandshakeTimeout time.Duration

	// DrainTimeout bounds graceful shutdown when Run stops on context
	// cancellation. Default: 30s.
	DrainTimeout time.Duration

	// Logger is the base logger. Default: slog.Default().
	Logger *slog.Logger

	// Monitor receives connection events. Optional.
	Monitor Monitor
}

// withDefaults fills unset options.
func (o Options) withDefaults() Options {
	if o.ReadHeaderTimeout <= 0 {
		o.ReadHeaderTimeout = 10 * time.Second
	}
	if o.ReadTimeout <= 0 {
		o.ReadTimeout = 30 * time.Second
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = 30 * time.Second
	}
	if o.IdleTimeout <= 0 {
		o.IdleTimeout = 120 * time.Second
	}
	if o.MaxHeaderBytes <= 0 {
		o.MaxHeaderBytes = 1 << 20
	}
	if o.HandshakeTimeout <= 0 {
		o.HandshakeTimeout = 10 * time.Second
	}
	if o.DrainTimeout <= 0 {
		o.DrainTimeout = 30 * time.Second
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}

// Listener binds one (interface, port, protocol) triple and runs its
// accept loop. TLS is decided by the supervisor: a non-nil tlsConfig makes
// the listener terminate TLS with an eager per-connection handshake.
//
// State machine: Created → Bound → Accepting → Draining → Closed.
type Listener struct {
	spec      ListenerSpec
	handler   http.Handler
	tlsConfig *tls.Config
	opts      Options
	logger    *slog.Logger

	state             atomic.Int32
	handshakeFailures atomic.Uint64

	tcp        net.Listener
	udp        net.PacketConn
	httpServer *http.Server
	h3Server   *http3.Server
}

// NewListener creates a listener for the given spec. tlsConfig is nil for
// plaintext ports. The handler receives every request accepted by this
// listener.
func NewListener(spec ListenerSpec, handler http.Handler, tlsConfig *tls.Config, opts Options) *Listener {
	opts = opts.withDefaults()
	return &Listener{
		spec:      spec,
		handler:   handler,
		tlsConfig: tlsConfig,
		opts:      opts,
		logger: opts.Logger.With(
			"component", "server.listener",
			"listener", spec.String(),
		),
	}
}

// Spec returns the listener's immutable spec.
func (l *Listener) Spec() ListenerSpec { return l.spec }

// State returns the listener's lifecycle state.
func (l *Listener) State() ListenerState {
	return ListenerState(l.state.Load())
}

// HandshakeFailures returns the count of TLS handshakes this listener has
// rejected.
func (l *Listener) HandshakeFailures() uint64 {
	return l.handshakeFailures.Load()
}

// TLS reports whether the listener terminates TLS.
func (l *Listener) TLS() bool { return l.tlsConfig != nil }

// Addr returns the bound address, or nil before Bind. With port 0 this is
// the kernel-assigned address.
func (l *Listener) Addr() net.Addr {
	if l.tcp != nil {
		return l.tcp.Addr()
	}
	if l.udp != nil {
		return l.udp.LocalAddr()
	}
	return nil
}

// Port returns the actual bound port, or the spec port before Bind.
func (l *Listener) Port() uint16 {
	switch addr := l.Addr().(type) {
	case *net.TCPAddr:
		return uint16(addr.Port)
	case *net.UDPAddr:
		return uint16(addr.Port)
	default:
		return l.spec.Port
	}
}

// Bind claims the (interface, port) pair: TCP for HTTP1/HTTP2, UDP for
// HTTP3. Failure is a BindError, fatal to this listener and (during
// supervisor startup) to the whole server start.
func (l *Listener) Bind() error {
	if !l.state.CompareAndSwap(int32(ListenerCreated), int32(ListenerBound)) {
		return fmt.Errorf("listener %s: bind called in state %s", l.spec, l.State())
	}

	if l.spec.Protocol == HTTP3 {
		if l.tlsConfig == nil {
			l.state.Store(int32(ListenerClosed))
			return fmt.Errorf("listener %s: http3 requires a TLS-bearing virtual host on port %d", l.spec, l.spec.Port)
		}
		conn, err := net.ListenPacket("udp", l.spec.Addr())
		if err != nil {
			l.state.Store(int32(ListenerClosed))
			return &BindError{Spec: l.spec, Err: err}
		}
		l.udp = conn
	} else {
		ln, err := net.Listen("tcp", l.spec.Addr())
		if err != nil {
			l.state.Store(int32(ListenerClosed))
			return &BindError{Spec: l.spec, Err: err}
		}
		l.tcp = ln
	}

	l.logger.Debug("listener bound", "addr", l.Addr().String())
	return nil
}

// Serve runs the accept loop until Drain or Close. It returns nil on
// graceful shutdown; any other return is an accept-loop failure.
//
// The protocol server is published before the state moves to Accepting,
// so a Drain that observes Accepting always finds a server to shut down.
func (l *Listener) Serve() error {
	var run func() error
	if l.spec.Protocol == HTTP3 {
		run = l.setupHTTP3()
	} else {
		var err error
		if run, err = l.setupTCP(); err != nil {
			return err
		}
	}

	if !l.state.CompareAndSwap(int32(ListenerBound), int32(ListenerAccepting)) {
		return fmt.Errorf("listener %s: serve called in state %s", l.spec, l.State())
	}

	if l.opts.Monitor != nil {
		l.opts.Monitor.ListenerUp(l.spec.String(), true)
		defer l.opts.Monitor.ListenerUp(l.spec.String(), false)
	}
	l.logger.Info("listener accepting",
		"addr", l.Addr().String(),
		"protocol", l.spec.Protocol.String(),
		"tls", l.TLS(),
	)
	return run()
}

// setupTCP builds the HTTP/1.1 or HTTP/2 server over the bound TCP
// listener and returns its accept loop.
func (l *Listener) setupTCP() (func() error, error) {
	handler := l.handler
	if l.spec.Protocol == HTTP2 && l.tlsConfig == nil {
		// Cleartext HTTP/2 with an HTTP/1.1 fallback.
		handler = h2c.NewHandler(handler, &http2.Server{})
	}

	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: l.opts.ReadHeaderTimeout,
		ReadTimeout:       l.opts.ReadTimeout,
		WriteTimeout:      l.opts.WriteTimeout,
		IdleTimeout:       l.opts.IdleTimeout,
		MaxHeaderBytes:    l.opts.MaxHeaderBytes,
		ErrorLog:          slog.NewLogLogger(l.logger.Handler(), slog.LevelDebug),
	}
	if l.opts.Monitor != nil {
		name := l.spec.String()
		srv.ConnState = func(_ net.Conn, state http.ConnState) {
			switch state {
			case http.StateNew:
				l.opts.Monitor.ConnectionAccepted(name)
			case http.StateClosed, http.StateHijacked:
				l.opts.Monitor.ConnectionClosed(name)
			}
		}
	}

	ln := l.tcp
	if l.tlsConfig != nil {
		srv.TLSConfig = l.tlsConfig
		if err := http2.ConfigureServer(srv, &http2.Server{}); err != nil {
			return nil, fmt.Errorf("listener %s: http2 setup failed: %w", l.spec, err)
		}
		ln = newHandshakeListener(l.tcp, l.tlsConfig, l.opts.HandshakeTimeout, func(err error) {
			l.handshakeFailures.Add(1)
			if l.opts.Monitor != nil {
				l.opts.Monitor.HandshakeFailure(l.spec.String())
			}
			l.logger.Debug("tls handshake failed", "error", err)
		})
	}
	l.httpServer = srv

	return func() error {
		err := srv.Serve(ln)
		if errors.Is(err, http.ErrServerClosed) || errors.Is(err, net.ErrClosed) {
			return nil
		}
		return err
	}, nil
}

// setupHTTP3 builds the HTTP/3 server over the bound UDP socket and
// returns its accept loop.
func (l *Listener) setupHTTP3() func() error {
	srv := &http3.Server{
		Handler:        l.handler,
		TLSConfig:      http3.ConfigureTLSConfig(l.tlsConfig),
		MaxHeaderBytes: l.opts.MaxHeaderBytes,
		IdleTimeout:    l.opts.IdleTimeout,
	}
	l.h3Server = srv

	return func() error {
		err := srv.Serve(l.udp)
		// The http3 server reports graceful shutdown with http.ErrServerClosed.
		if errors.Is(err, http.ErrServerClosed) || errors.Is(err, net.ErrClosed) {
			return nil
		}
		return err
	}
}

// Drain stops accepting immediately and waits for in-flight connections
// to finish. When the context deadline elapses first, remaining
// connections are forcibly closed. The listener always reaches Closed.
func (l *Listener) Drain(ctx context.Context) error {
	state := l.State()
	switch state {
	case ListenerClosed, ListenerDraining:
		return nil
	case ListenerCreated:
		l.state.Store(int32(ListenerClosed))
		return nil
	case ListenerBound:
		return l.Close()
	}

	l.state.Store(int32(ListenerDraining))
	defer l.state.Store(int32(ListenerClosed))

	var err error
	switch {
	case l.h3Server != nil:
		if err = l.h3Server.Shutdown(ctx); err != nil {
			err = l.h3Server.Close()
		}
		_ = l.udp.Close()
	case l.httpServer != nil:
		if err = l.httpServer.Shutdown(ctx); err != nil {
			// Deadline elapsed; force-close lingering connections.
			closeErr := l.httpServer.Close()
			if closeErr != nil {
				err = closeErr
			}
		}
	}

	l.logger.Info("listener drained", "forced", err != nil)
	return err
}

// Close releases the bound socket without draining. Used to unwind a
// partially started server when another listener fails to bind.
func (l *Listener) Close() error {
	l.state.Store(int32(ListenerClosed))

	var err error
	if l.tcp != nil {
		err = l.tcp.Close()
	}
	if l.udp != nil {
		if closeErr := l.udp.Close(); err == nil {
			err = closeErr
		}
	}
	return err
}
