package cli

import (
	"context"
	"os"
	"syscall"
	"testing"
	"time"
)

func TestShutdownContext(t *testing.T) {
	ctx, stop := ShutdownContext(context.Background())
	defer stop()

	select {
	case <-ctx.Done():
		t.Fatal("context canceled before any signal")
	default:
	}

	// Cancellation through the parent must propagate too.
	parent, cancel := context.WithCancel(context.Background())
	child, childStop := ShutdownContext(parent)
	defer childStop()
	cancel()

	select {
	case <-child.Done():
	case <-time.After(time.Second):
		t.Fatal("parent cancellation did not reach the shutdown context")
	}
}

func TestShutdownContextReceivesSignal(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping signal delivery in short mode")
	}

	ctx, stop := ShutdownContext(context.Background())
	defer stop()

	p, err := os.FindProcess(os.Getpid())
	if err != nil {
		t.Fatalf("FindProcess() failed: %v", err)
	}
	if err := p.Signal(syscall.SIGTERM); err != nil {
		t.Fatalf("Signal() failed: %v", err)
	}

	select {
	case <-ctx.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("SIGTERM did not cancel the shutdown context")
	}
}

func TestNotifyShutdown(t *testing.T) {
	ch := NotifyShutdown()
	if ch == nil {
		t.Fatal("NotifyShutdown() returned nil channel")
	}

	select {
	case sig := <-ch:
		t.Fatalf("unexpected signal before delivery: %v", sig)
	case <-time.After(10 * time.Millisecond):
	}

	if testing.Short() {
		return
	}

	p, err := os.FindProcess(os.Getpid())
	if err != nil {
		t.Fatalf("FindProcess() failed: %v", err)
	}
	if err := p.Signal(syscall.SIGTERM); err != nil {
		t.Fatalf("Signal() failed: %v", err)
	}

	select {
	case sig := <-ch:
		if sig != syscall.SIGTERM {
			t.Errorf("expected SIGTERM, got %v", sig)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("signal not delivered to channel")
	}
}
