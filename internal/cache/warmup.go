package cache

import (
	"context"
	"time"

	"github.com/MichalZG/gaia-targets/internal/visibility"
)

// Start runs the background maintenance loop: an initial warmup, then on
// every sweep tick it evicts expired entries and re-warms once the UTC hour
// has rolled over. Blocks until ctx is cancelled.
func (c *ResultCache) Start(ctx context.Context) {
	c.warmup(ctx)

	ticker := c.clock.NewTicker(c.config.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("cache worker stopped")
			return
		case <-ticker.Chan():
			c.tick(ctx)
		}
	}
}

func (c *ResultCache) tick(ctx context.Context) {
	c.evictExpired()

	if c.clock.Now().Unix()/3600 != c.lastWarm.Load() {
		c.warmup(ctx)
	}
}

// WarmRequests returns the views kept warm at now: the default dashboard
// view (today at the default hour) and the current-hour view streamed to
// live clients.
func (c *ResultCache) WarmRequests(now time.Time) []visibility.Request {
	now = now.UTC()
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	reqs := []visibility.Request{{
		Longitude: c.config.WarmLongitude,
		Latitude:  c.config.WarmLatitude,
		Base:      day.Add(time.Duration(c.config.WarmHour) * time.Hour),
	}}
	if current := now.Truncate(time.Hour); !current.Equal(reqs[0].Base) {
		reqs = append(reqs, visibility.Request{
			Longitude: c.config.WarmLongitude,
			Latitude:  c.config.WarmLatitude,
			Base:      current,
		})
	}
	return reqs
}

// Ready reports whether the first warmup pass has finished.
func (c *ResultCache) Ready() (bool, string) {
	if c.warmed.Load() {
		return true, ""
	}
	return false, "result cache warming up"
}

// warmup precomputes the default views.
func (c *ResultCache) warmup(ctx context.Context) {
	now := c.clock.Now()
	c.lastWarm.Store(now.Unix() / 3600)

	start := c.clock.Now()
	var warmed int
	for _, req := range c.WarmRequests(now) {
		if ctx.Err() != nil {
			return
		}
		if _, err := c.Compute(ctx, req); err != nil {
			c.logger.Warn("cache warmup failed",
				"base", req.Base.Format(time.RFC3339),
				"error", err,
			)
			continue
		}
		warmed++
	}
	c.warmed.Store(true)

	c.logger.Info("cache warmup complete",
		"warmed", warmed,
		"duration_ms", c.clock.Since(start).Milliseconds(),
	)
}
