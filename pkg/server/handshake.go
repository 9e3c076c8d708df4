package server

import (
	"context"
	"crypto/tls"
	"errors"
	"net"
	"sync"
	"time"
)

// handshakeListener wraps a TCP listener and performs the TLS handshake
// eagerly, each handshake on its own goroutine, before handing the
// connection to the HTTP engine. This keeps certificate resolution (and
// its failures) out of the engine's serve path: a failed handshake closes
// that one connection, reports it through onFailure, and never blocks the
// accept loop or other connections.
type handshakeListener struct {
	inner     net.Listener
	config    *tls.Config
	timeout   time.Duration
	onFailure func(error)

	conns     chan net.Conn
	done      chan struct{}
	closeOnce sync.Once
}

// newHandshakeListener starts the wrapping accept loop.
func newHandshakeListener(inner net.Listener, config *tls.Config, timeout time.Duration, onFailure func(error)) *handshakeListener {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	hl := &handshakeListener{
		inner:     inner,
		config:    config,
		timeout:   timeout,
		onFailure: onFailure,
		conns:     make(chan net.Conn),
		done:      make(chan struct{}),
	}
	go hl.acceptLoop()
	return hl
}

// acceptLoop accepts raw connections and spawns a handshake goroutine per
// connection. It exits when the inner listener is closed.
func (hl *handshakeListener) acceptLoop() {
	for {
		conn, err := hl.inner.Accept()
		if err != nil {
			select {
			case <-hl.done:
				return
			default:
			}
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				continue
			}
			// Inner listener gone; stop delivering connections.
			hl.Close()
			return
		}
		go hl.handshake(conn)
	}
}

// handshake drives the TLS handshake for one raw connection. The
// registry's SNI resolution runs inside the config's client-hello
// callback; resolution failure (or a plaintext client on a TLS port)
// surfaces here as a handshake error and closes only this connection.
func (hl *handshakeListener) handshake(raw net.Conn) {
	tlsConn := tls.Server(raw, hl.config)

	ctx, cancel := context.WithTimeout(context.Background(), hl.timeout)
	defer cancel()

	if err := tlsConn.HandshakeContext(ctx); err != nil {
		_ = raw.Close()
		if hl.onFailure != nil {
			hl.onFailure(err)
		}
		return
	}

	select {
	case hl.conns <- tlsConn:
	case <-hl.done:
		_ = tlsConn.Close()
	}
}

// Accept returns the next connection with a completed handshake.
func (hl *handshakeListener) Accept() (net.Conn, error) {
	select {
	case conn := <-hl.conns:
		return conn, nil
	case <-hl.done:
		return nil, net.ErrClosed
	}
}

// Close stops the wrapper and the inner listener.
func (hl *handshakeListener) Close() error {
	var err error
	hl.closeOnce.Do(func() {
		close(hl.done)
		err = hl.inner.Close()
	})
	return err
}

// Addr returns the inner listener's address.
func (hl *handshakeListener) Addr() net.Addr {
	return hl.inner.Addr()
}
