package tls

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Reloader watches an identity's source files and rebuilds the identity
// when they change, so certificate renewal (e.g. Let's Encrypt) works
// without a server restart. A rebuilt identity is handed to the swap
// callback as a fresh immutable pointer; a broken reload keeps the last
// good identity and logs the failure.
type Reloader struct {
	certFile string
	keyFile  string
	caFile   string
	swap     func(*Identity)

	watcher  *fsnotify.Watcher
	debounce *debouncer
	logger   *slog.Logger

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// ReloaderConfig configures a certificate reloader.
type ReloaderConfig struct {
	// CertFile and KeyFile are the PEM files backing the identity.
	CertFile string
	KeyFile  string

	// CAFile is the optional client CA file.
	CAFile string

	// DebounceInterval is the quiet period after a file event before the
	// reload runs, preventing reload storms while files are being
	// written. Default: 250ms.
	DebounceInterval time.Duration
}

// NewReloader creates a reloader that calls swap with each successfully
// rebuilt identity.
func NewReloader(cfg ReloaderConfig, swap func(*Identity)) (*Reloader, error) {
	if cfg.CertFile == "" || cfg.KeyFile == "" {
		return nil, fmt.Errorf("certificate and key files are required for reloading")
	}
	if swap == nil {
		return nil, fmt.Errorf("swap callback must not be nil")
	}

	interval := cfg.DebounceInterval
	if interval <= 0 {
		interval = 250 * time.Millisecond
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	return &Reloader{
		certFile: cfg.CertFile,
		keyFile:  cfg.KeyFile,
		caFile:   cfg.CAFile,
		swap:     swap,
		watcher:  watcher,
		debounce: newDebouncer(interval),
		logger:   slog.Default().With("component", "tls.reloader"),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}, nil
}

// Start begins watching the identity's source files in the background.
// It watches the parent directories rather than the files themselves so
// atomic renames (the usual certificate rotation pattern) are observed.
func (r *Reloader) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return fmt.Errorf("reloader already running")
	}
	r.running = true
	r.mu.Unlock()

	dirs := map[string]struct{}{
		filepath.Dir(r.certFile): {},
		filepath.Dir(r.keyFile):  {},
	}
	if r.caFile != "" {
		dirs[filepath.Dir(r.caFile)] = struct{}{}
	}
	for dir := range dirs {
		if err := r.watcher.Add(dir); err != nil {
			return fmt.Errorf("failed to watch %q: %w", dir, err)
		}
	}

	r.logger.Info("certificate reloader started",
		"cert_file", r.certFile,
		"key_file", r.keyFile,
	)

	go r.loop(ctx)
	return nil
}

// loop processes file events until the context is cancelled or Stop is
// called.
func (r *Reloader) loop(ctx context.Context) {
	defer close(r.doneCh)

	for {
		select {
		case <-ctx.Done():
			return

		case <-r.stopCh:
			return

		case event, ok := <-r.watcher.Events:
			if !ok {
				return
			}
			if !r.relevant(event) {
				continue
			}
			r.debounce.trigger(func() {
				r.reload()
			})

		case err, ok := <-r.watcher.Errors:
			if !ok {
				return
			}
			// Keep watching despite watcher errors.
			r.logger.Error("certificate watcher error", "error", err)
		}
	}
}

// relevant reports whether the event touches one of the identity's files.
func (r *Reloader) relevant(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
		return false
	}
	name := filepath.Clean(event.Name)
	return name == filepath.Clean(r.certFile) ||
		name == filepath.Clean(r.keyFile) ||
		(r.caFile != "" && name == filepath.Clean(r.caFile))
}

// reload rebuilds the identity from disk and swaps it in on success.
func (r *Reloader) reload() {
	identity, err := LoadIdentity(r.certFile, r.keyFile, r.caFile)
	if err != nil {
		r.logger.Error("certificate reload failed, keeping current identity",
			"error", err,
			"cert_file", r.certFile,
		)
		return
	}

	r.swap(identity)

	days, warning := CheckCertificateExpiration(identity.Leaf())
	if warning != "" {
		r.logger.Warn("certificate reloaded but expiring soon",
			"subject", identity.Leaf().Subject.CommonName,
			"expires_in_days", days,
		)
	} else {
		r.logger.Info("certificate reloaded",
			"subject", identity.Leaf().Subject.CommonName,
			"expires_in_days", days,
		)
	}
}

// Stop stops the reloader and releases the underlying watcher.
func (r *Reloader) Stop() error {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return nil
	}
	r.running = false
	r.mu.Unlock()

	close(r.stopCh)
	<-r.doneCh
	r.debounce.stop()
	return r.watcher.Close()
}

// debouncer coalesces bursts of file events into one reload.
type debouncer struct {
	interval time.Duration
	mu       sync.Mutex
	timer    *time.Timer
	stopped  bool
}

func newDebouncer(interval time.Duration) *debouncer {
	return &debouncer{interval: interval}
}

// trigger schedules the callback after the quiet period, resetting the
// timer if another event arrives first.
func (d *debouncer) trigger(callback func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.interval, callback)
}

func (d *debouncer) stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
	}
}
