// Package cache provides an in-memory cache of visibility results in front
// of the visibility engine.
//
// Entries are keyed by observer location (rounded to 1e-6 degrees) and base
// instant. A background worker evicts entries older than the TTL and keeps
// the default dashboard views warm across hour boundaries. Concurrent misses
// for the same key share one computation.
package cache

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/singleflight"

	"github.com/MichalZG/gaia-targets/internal/metrics"
	"github.com/MichalZG/gaia-targets/internal/visibility"
)

// Config holds cache configuration loaded from environment variables.
type Config struct {
	MaxEntries    int           // Entry cap, oldest evicted first (default: 1024)
	TTL           time.Duration // Entries older than this are evicted (default: 1h)
	SweepInterval time.Duration // Eviction/warmup loop period (default: 1m)

	// Default dashboard view kept warm by the background worker.
	WarmLongitude float64
	WarmLatitude  float64
	WarmHour      int
}

type key struct {
	lon, lat int64 // microdegrees
	base     int64 // unix seconds
}

func (k key) String() string {
	return fmt.Sprintf("%d:%d:%d", k.lon, k.lat, k.base)
}

func keyFor(req visibility.Request) key {
	return key{
		lon:  int64(math.Round(req.Longitude * 1e6)),
		lat:  int64(math.Round(req.Latitude * 1e6)),
		base: req.Base.Unix(),
	}
}

// Requests whose coordinates agree to the microdegree share an entry. The
// computed rows are identical at that resolution, but the observer echoed
// back must be the caller's own, so hits for a different raw location get a
// copy carrying the requested coordinates.
type entry struct {
	result     *visibility.Result
	req        visibility.Request
	computedAt time.Time
}

// forRequest returns e's result as seen by req.
func (e *entry) forRequest(req visibility.Request) *visibility.Result {
	if e.req.Longitude == req.Longitude && e.req.Latitude == req.Latitude {
		return e.result
	}
	res := *e.result
	res.Observer.Longitude = req.Longitude
	res.Observer.Latitude = req.Latitude
	return &res
}

// ResultCache wraps a visibility.Computer. It implements visibility.Computer
// itself, so handlers do not know whether they are talking to a cache.
// Safe for concurrent use by multiple goroutines.
type ResultCache struct {
	mu      sync.RWMutex
	entries map[key]*entry

	next   visibility.Computer
	config Config
	clock  clockwork.Clock
	logger *slog.Logger
	group  singleflight.Group

	lastWarm atomic.Int64 // unix hour of the last warmup
	warmed   atomic.Bool

	hits      atomic.Int64
	misses    atomic.Int64
	evictions atomic.Int64
}

// NewResultCache creates a cache in front of next.
func NewResultCache(config Config, next visibility.Computer, clock clockwork.Clock, logger *slog.Logger) *ResultCache {
	if config.MaxEntries < 1 {
		config.MaxEntries = 1024
	}
	if config.TTL <= 0 {
		config.TTL = time.Hour
	}
	if config.SweepInterval <= 0 {
		config.SweepInterval = time.Minute
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	logger = logger.With("component", "cache")

	logger.Info("cache initialized",
		"max_entries", config.MaxEntries,
		"ttl_seconds", config.TTL.Seconds(),
		"sweep_interval_seconds", config.SweepInterval.Seconds(),
	)

	return &ResultCache{
		entries: make(map[key]*entry),
		next:    next,
		config:  config,
		clock:   clock,
		logger:  logger,
	}
}

// Get returns the cached result for req, or nil if absent or expired.
func (c *ResultCache) Get(req visibility.Request) *visibility.Result {
	k := keyFor(req)

	c.mu.RLock()
	e, ok := c.entries[k]
	c.mu.RUnlock()

	if ok && c.clock.Since(e.computedAt) < c.config.TTL {
		c.hits.Add(1)
		metrics.RecordCacheLookup(true)
		return e.forRequest(req)
	}

	c.misses.Add(1)
	metrics.RecordCacheLookup(false)
	return nil
}

// Compute returns the cached result for req or computes and stores it.
// Errors are passed through and never cached. The shared computation is
// detached from ctx cancellation so one departing caller does not fail the
// others waiting on the same key.
func (c *ResultCache) Compute(ctx context.Context, req visibility.Request) (*visibility.Result, error) {
	if res := c.Get(req); res != nil {
		return res, nil
	}

	k := keyFor(req)
	v, err, _ := c.group.Do(k.String(), func() (any, error) {
		res, err := c.next.Compute(context.WithoutCancel(ctx), req)
		if err != nil {
			return nil, err
		}
		return c.put(k, req, res), nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*entry).forRequest(req), nil
}

// put stores a result, evicting the oldest entry when the cache is full.
func (c *ResultCache) put(k key, req visibility.Request, res *visibility.Result) *entry {
	now := c.clock.Now()
	var evicted int

	c.mu.Lock()
	if _, exists := c.entries[k]; !exists && len(c.entries) >= c.config.MaxEntries {
		var oldestKey key
		var oldest time.Time
		for ek, e := range c.entries {
			if oldest.IsZero() || e.computedAt.Before(oldest) {
				oldestKey, oldest = ek, e.computedAt
			}
		}
		delete(c.entries, oldestKey)
		evicted = 1
	}
	e := &entry{result: res, req: req, computedAt: now}
	c.entries[k] = e
	count := len(c.entries)
	c.mu.Unlock()

	if evicted > 0 {
		c.evictions.Add(int64(evicted))
		metrics.RecordCacheEvictions(evicted)
	}
	metrics.SetCacheEntries(count)
	return e
}

// evictExpired removes entries older than the TTL.
func (c *ResultCache) evictExpired() int {
	cutoff := c.clock.Now().Add(-c.config.TTL)
	var removed int

	c.mu.Lock()
	for k, e := range c.entries {
		if !e.computedAt.After(cutoff) {
			delete(c.entries, k)
			removed++
		}
	}
	count := len(c.entries)
	c.mu.Unlock()

	if removed > 0 {
		c.evictions.Add(int64(removed))
		metrics.RecordCacheEvictions(removed)
		metrics.SetCacheEntries(count)
		c.logger.Debug("cache eviction", "entries_removed", removed)
	}
	return removed
}

// Stats holds cache statistics for the stats endpoint.
type Stats struct {
	Entries    int       `json:"entries"`
	MaxEntries int       `json:"max_entries"`
	Oldest     time.Time `json:"oldest_computed_at"`
	Newest     time.Time `json:"newest_computed_at"`
	Hits       int64     `json:"hits"`
	Misses     int64     `json:"misses"`
	Evictions  int64     `json:"evictions"`
}

// Stats returns current cache statistics.
func (c *ResultCache) Stats() Stats {
	c.mu.RLock()
	s := Stats{Entries: len(c.entries), MaxEntries: c.config.MaxEntries}
	for _, e := range c.entries {
		if s.Oldest.IsZero() || e.computedAt.Before(s.Oldest) {
			s.Oldest = e.computedAt
		}
		if e.computedAt.After(s.Newest) {
			s.Newest = e.computedAt
		}
	}
	c.mu.RUnlock()

	s.Hits = c.hits.Load()
	s.Misses = c.misses.Load()
	s.Evictions = c.evictions.Load()
	return s
}
