package scheduler

import (
	"context"
	"time"

	"efficity_backend/platform/logger"
)

const (
	defaultExportCleanupInterval = time.Hour
	defaultExportRetention       = 30 * 24 * time.Hour
)

// ExportPruner removes exports older than a cutoff.
type ExportPruner interface {
	PruneOlderThan(ctx context.Context, cutoff time.Time) (int, error)
}

// ExportCleanup periodically removes expired export workbooks and their
// metadata so the bucket does not grow unbounded.
type ExportCleanup struct {
	pruner    ExportPruner
	log       *logger.Logger
	interval  time.Duration
	retention time.Duration
}

func NewExportCleanup(pruner ExportPruner, log *logger.Logger, interval, retention time.Duration) *ExportCleanup {
	if interval <= 0 {
		interval = defaultExportCleanupInterval
	}
	if retention <= 0 {
		retention = defaultExportRetention
	}

	return &ExportCleanup{
		pruner:    pruner,
		log:       log,
		interval:  interval,
		retention: retention,
	}
}

func (c *ExportCleanup) Run(ctx context.Context) {
	if c == nil || c.pruner == nil {
		return
	}

	c.cleanup(ctx)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.cleanup(ctx)
		}
	}
}

func (c *ExportCleanup) cleanup(ctx context.Context) {
	cutoff := time.Now().UTC().Add(-c.retention)
	pruned, err := c.pruner.PruneOlderThan(ctx, cutoff)
	if err != nil {
		c.log.Warn("export cleanup failed", "error", err)
		return
	}
	if pruned > 0 {
		c.log.Info("old exports pruned", "count", pruned)
	}
}
