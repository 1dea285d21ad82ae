package coordinator

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"pricetracker/internal/catalog"
	"pricetracker/internal/refresher"
)

// Refresher runs one refresh pass over the whole catalog
type Refresher interface {
	RefreshAll(ctx context.Context) ([]catalog.TrackedProduct, refresher.Summary, error)
}

// Coordinator runs refresh passes on a schedule. The staleness policy inside
// the refresher decides what a pass actually fetches, so the interval only
// bounds how soon after midnight prices are picked up.
type Coordinator struct {
	refresher Refresher
	interval  time.Duration
	logger    *slog.Logger
}

// New creates a new Coordinator running r every interval
func New(r Refresher, interval time.Duration, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{
		refresher: r,
		interval:  interval,
		logger:    logger,
	}
}

// RunOnce executes a single refresh pass
func (c *Coordinator) RunOnce(ctx context.Context) (refresher.Summary, error) {
	if c.refresher == nil {
		return refresher.Summary{}, fmt.Errorf("no refresher configured")
	}

	_, summary, err := c.refresher.RefreshAll(ctx)
	if err != nil {
		return summary, fmt.Errorf("refresh pass failed: %w", err)
	}
	return summary, nil
}

// Run executes a pass immediately and then every interval until ctx is
// canceled. A failed pass is logged and the schedule continues.
func (c *Coordinator) Run(ctx context.Context) error {
	if c.refresher == nil {
		return fmt.Errorf("no refresher configured")
	}
	if c.interval <= 0 {
		return fmt.Errorf("refresh interval must be positive, got %s", c.interval)
	}

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	c.logger.Info("refresh scheduler started", "interval", c.interval)
	c.pass(ctx)

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("refresh scheduler stopping", "reason", ctx.Err())
			return nil
		case <-ticker.C:
			c.pass(ctx)
		}
	}
}

func (c *Coordinator) pass(ctx context.Context) {
	if _, err := c.RunOnce(ctx); err != nil {
		c.logger.Error("scheduled price refresh failed", "error", err)
	}
}
