package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// ShutdownSignals are the signals that trigger a graceful stop of the
// atrium process.
var ShutdownSignals = []os.Signal{os.Interrupt, syscall.SIGTERM}

// ShutdownContext derives a context from parent that is canceled when
// the process receives one of ShutdownSignals. The stop function
// releases the signal registration; a second signal after stop kills
// the process with the default disposition.
func ShutdownContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, ShutdownSignals...)
}

// NotifyShutdown returns a channel that receives shutdown signals
// delivered to the process. Used by the run command to log which
// signal started the drain.
func NotifyShutdown() <-chan os.Signal {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, ShutdownSignals...)
	return ch
}
