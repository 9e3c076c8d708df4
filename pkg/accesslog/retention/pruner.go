// Package retention enforces an age-based retention policy on the
// access log, pruning on a cron schedule.
package retention

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"atrium-hq/vestibule/pkg/accesslog"
)

// Config contains configuration for the retention pruner.
type Config struct {
	// RetentionDays is the number of days to retain access log records.
	// 0 means keep records forever (no pruning).
	RetentionDays int

	// PruneSchedule is a cron expression for scheduling pruning.
	// Example: "0 3 * * *" (daily at 3 AM)
	PruneSchedule string

	// MaxRecords is the maximum number of records to keep.
	// 0 means unlimited.
	MaxRecords int64
}

// DefaultConfig returns the default retention configuration.
func DefaultConfig() *Config {
	return &Config{
		RetentionDays: 30,
		PruneSchedule: "0 3 * * *",
		MaxRecords:    0,
	}
}

// Pruner enforces retention policy on access log records.
type Pruner struct {
	store     accesslog.Store
	config    *Config
	logger    *slog.Logger
	scheduler *Scheduler
}

// NewPruner creates a retention pruner over the given store.
func NewPruner(store accesslog.Store, config *Config) *Pruner {
	if config == nil {
		config = DefaultConfig()
	}

	pruner := &Pruner{
		store:  store,
		config: config,
		logger: slog.Default().With("component", "accesslog.retention"),
	}
	pruner.scheduler = NewScheduler(pruner)

	return pruner
}

// Scheduler returns the pruner's cron scheduler.
func (p *Pruner) Scheduler() *Scheduler {
	return p.scheduler
}

// Prune deletes records older than the retention period, then trims to
// MaxRecords when a count cap is configured. Returns the total number of
// records deleted.
func (p *Pruner) Prune(ctx context.Context) (int64, error) {
	var totalDeleted int64

	if p.config.RetentionDays > 0 {
		cutoff := time.Now().AddDate(0, 0, -p.config.RetentionDays)
		deleted, err := p.store.DeleteBefore(ctx, cutoff)
		if err != nil {
			return totalDeleted, fmt.Errorf("prune by age failed: %w", err)
		}
		totalDeleted += deleted
		p.logger.Info("pruned records by age",
			"deleted_count", deleted,
			"retention_days", p.config.RetentionDays,
		)
	}

	if p.config.MaxRecords > 0 {
		deleted, err := p.pruneByCount(ctx)
		if err != nil {
			return totalDeleted, fmt.Errorf("prune by count failed: %w", err)
		}
		totalDeleted += deleted
	}

	if totalDeleted > 0 {
		p.logger.Info("access log pruning completed",
			"total_deleted", totalDeleted,
			"retention_days", p.config.RetentionDays,
			"max_records", p.config.MaxRecords,
		)
	}

	return totalDeleted, nil
}

// pruneByCount deletes the oldest records once the total exceeds
// MaxRecords, using the record at the excess boundary as the cutoff.
func (p *Pruner) pruneByCount(ctx context.Context) (int64, error) {
	count, err := p.store.Count(ctx, &accesslog.Query{})
	if err != nil {
		return 0, fmt.Errorf("failed to count records: %w", err)
	}
	if count <= p.config.MaxRecords {
		return 0, nil
	}

	excess := count - p.config.MaxRecords

	// Records come back newest first; the oldest excess records start at
	// offset MaxRecords.
	boundary, err := p.store.Query(ctx, &accesslog.Query{
		Limit:  1,
		Offset: int(p.config.MaxRecords),
	})
	if err != nil {
		return 0, fmt.Errorf("failed to find count cutoff: %w", err)
	}
	if len(boundary) == 0 {
		return 0, nil
	}

	cutoff := boundary[0].Time.Add(time.Microsecond)
	deleted, err := p.store.DeleteBefore(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	p.logger.Info("pruned records by count",
		"deleted_count", deleted,
		"excess", excess,
		"max_records", p.config.MaxRecords,
	)
	return deleted, nil
}
