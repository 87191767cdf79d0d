package restrictions

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"testdrive/internal/platform/metrics"
)

// Fetcher retrieves one restrictions snapshot from the external service.
type Fetcher interface {
	Fetch(ctx context.Context) (*Restrictions, error)
}

// cacheKey is the single-flight group key. Restrictions are dealership-wide,
// so the cache holds exactly one entry.
const cacheKey = "restrictions"

// Cache serves restrictions snapshots with a TTL, collapsing concurrent
// misses into one upstream call. The clock is injected so expiry is testable
// without sleeping.
type Cache struct {
	fetcher Fetcher
	ttl     time.Duration
	now     func() time.Time
	metrics *metrics.Metrics

	group singleflight.Group

	mu        sync.RWMutex
	snapshot  *Restrictions
	fetchedAt time.Time
}

// Option configures the Cache.
type Option func(*Cache)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// WithMetrics records hit/miss/error counters.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Cache) { c.metrics = m }
}

// NewCache builds a cache around the given fetcher.
func NewCache(fetcher Fetcher, ttl time.Duration, opts ...Option) *Cache {
	c := &Cache{
		fetcher: fetcher,
		ttl:     ttl,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the cached snapshot, refreshing it when expired. A failed
// refresh never falls back to stale or empty data: the position being
// processed must fail hard rather than silently pass the geofence check.
func (c *Cache) Get(ctx context.Context) (*Restrictions, error) {
	c.mu.RLock()
	snapshot, fetchedAt := c.snapshot, c.fetchedAt
	c.mu.RUnlock()

	if snapshot != nil && c.now().Sub(fetchedAt) < c.ttl {
		c.hit()
		return snapshot, nil
	}

	c.miss()
	value, err, _ := c.group.Do(cacheKey, func() (any, error) {
		// Re-check under the flight: a concurrent caller may have
		// refreshed while this one waited on the group.
		c.mu.RLock()
		snapshot, fetchedAt := c.snapshot, c.fetchedAt
		c.mu.RUnlock()
		if snapshot != nil && c.now().Sub(fetchedAt) < c.ttl {
			return snapshot, nil
		}

		fresh, err := c.fetcher.Fetch(ctx)
		if err != nil {
			if c.metrics != nil {
				c.metrics.RestrictionsFetchErrors.Inc()
			}
			return nil, err
		}

		c.mu.Lock()
		c.snapshot = fresh
		c.fetchedAt = c.now()
		c.mu.Unlock()
		return fresh, nil
	})
	if err != nil {
		return nil, err
	}
	return value.(*Restrictions), nil
}

// Invalidate drops the cached snapshot so the next read refreshes.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	c.snapshot = nil
	c.mu.Unlock()
}

func (c *Cache) hit() {
	if c.metrics != nil {
		c.metrics.RestrictionsCacheHits.Inc()
	}
}

func (c *Cache) miss() {
	if c.metrics != nil {
		c.metrics.RestrictionsCacheMisses.Inc()
	}
}
