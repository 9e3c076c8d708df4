// Package recorder provides asynchronous access log recording.
//
// Records are enqueued on a buffered channel and written to storage by a
// background worker, so request handling never blocks on storage
// latency. When the buffer is full the record is dropped and counted
// rather than stalling the request path.
package recorder

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"atrium-hq/vestibule/pkg/accesslog"
)

// Config contains configuration for the access log recorder.
type Config struct {
	// Enabled enables access log recording.
	Enabled bool

	// AsyncBuffer is the size of the async write channel buffer.
	// Default: 1000
	AsyncBuffer int

	// WriteTimeout is the timeout for writing a record to storage.
	// Default: 5 seconds
	WriteTimeout time.Duration
}

// DefaultConfig returns the default recorder configuration.
func DefaultConfig() *Config {
	return &Config{
		Enabled:      true,
		AsyncBuffer:  1000,
		WriteTimeout: 5 * time.Second,
	}
}

// Recorder writes access log records to storage asynchronously.
// A nil Recorder is valid and records nothing.
type Recorder struct {
	store      accesslog.Store
	config     *Config
	recordChan chan *accesslog.Record
	dropped    atomic.Uint64
	wg         sync.WaitGroup
	done       chan struct{}
	closeOnce  sync.Once
	logger     *slog.Logger
}

// New creates a recorder over the given store and starts its background
// worker.
func New(store accesslog.Store, config *Config) *Recorder {
	if config == nil {
		config = DefaultConfig()
	}
	if config.AsyncBuffer <= 0 {
		config.AsyncBuffer = 1000
	}
	if config.WriteTimeout <= 0 {
		config.WriteTimeout = 5 * time.Second
	}

	r := &Recorder{
		store:      store,
		config:     config,
		recordChan: make(chan *accesslog.Record, config.AsyncBuffer),
		done:       make(chan struct{}),
		logger:     slog.Default().With("component", "accesslog.recorder"),
	}

	r.wg.Add(1)
	go r.worker()

	r.logger.Info("access log recorder initialized",
		"async_buffer", config.AsyncBuffer,
		"write_timeout", config.WriteTimeout,
	)

	return r
}

// Record assigns the record an ID and enqueues it for async writing. It
// never blocks: when the buffer is full the record is dropped and the
// drop counter incremented.
func (r *Recorder) Record(record *accesslog.Record) {
	if r == nil || !r.config.Enabled {
		return
	}
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.Time.IsZero() {
		record.Time = time.Now()
	}

	select {
	case r.recordChan <- record:
	default:
		dropped := r.dropped.Add(1)
		if dropped == 1 || dropped%1000 == 0 {
			r.logger.Warn("access log buffer full, dropping records",
				"dropped_total", dropped,
				"channel_capacity", r.config.AsyncBuffer,
			)
		}
	}
}

// Dropped returns the number of records dropped because the buffer was
// full.
func (r *Recorder) Dropped() uint64 {
	if r == nil {
		return 0
	}
	return r.dropped.Load()
}

// Close drains the channel and waits for pending writes to complete.
func (r *Recorder) Close() error {
	if r == nil {
		return nil
	}
	r.closeOnce.Do(func() {
		r.logger.Info("shutting down access log recorder")
		close(r.done)
		r.wg.Wait()
		r.logger.Info("access log recorder shut down", "dropped_total", r.dropped.Load())
	})
	return nil
}

// worker drains the record channel and writes to storage.
func (r *Recorder) worker() {
	defer r.wg.Done()

	for {
		select {
		case record := <-r.recordChan:
			r.writeRecord(record)

		case <-r.done:
			// Drain remaining records before exit.
			for {
				select {
				case record := <-r.recordChan:
					r.writeRecord(record)
				default:
					return
				}
			}
		}
	}
}

// writeRecord writes a single record to storage.
func (r *Recorder) writeRecord(record *accesslog.Record) {
	ctx, cancel := context.WithTimeout(context.Background(), r.config.WriteTimeout)
	defer cancel()

	if err := r.store.Insert(ctx, record); err != nil {
		r.logger.Error("failed to store access log record",
			"record_id", record.ID,
			"host", record.Host,
			"error", err,
		)
		return
	}

	r.logger.Debug("access log record written",
		"record_id", record.ID,
		"host", record.Host,
		"status", record.Status,
	)
}
