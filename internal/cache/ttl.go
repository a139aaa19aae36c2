package cache

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

// Stats is a point-in-time view of cache activity.
type Stats struct {
	Hits      uint64 `json:"hits"`
	Misses    uint64 `json:"misses"`
	Size      int    `json:"size"`
	Evictions uint64 `json:"evictions"`
}

type entry struct {
	value     any
	createdAt time.Time
	expiresAt time.Time
}

// TTLCache is an in-process key/value store where every entry expires.
// An entry is never returned after its expiry; expired entries are dropped
// on read and by a periodic sweep.
type TTLCache struct {
	mu        sync.Mutex
	entries   map[string]entry
	now       func() time.Time
	hits      uint64
	misses    uint64
	evictions uint64

	group singleflight.Group
}

type Option func(*TTLCache)

// WithClock replaces the wall clock, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(c *TTLCache) {
		if now != nil {
			c.now = now
		}
	}
}

func NewTTLCache(opts ...Option) *TTLCache {
	c := &TTLCache{
		entries: make(map[string]entry),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *TTLCache) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		c.misses++
		return nil, false
	}
	if !c.now().Before(e.expiresAt) {
		delete(c.entries, key)
		c.evictions++
		c.misses++
		return nil, false
	}
	c.hits++
	return e.value, true
}

// Set stores value under key. A non-positive ttl removes the key instead.
func (c *TTLCache) Set(key string, value any, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ttl <= 0 {
		delete(c.entries, key)
		return
	}
	now := c.now()
	c.entries[key] = entry{value: value, createdAt: now, expiresAt: now.Add(ttl)}
}

func (c *TTLCache) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// InvalidatePrefix drops every key starting with prefix and reports how many
// were removed.
func (c *TTLCache) InvalidatePrefix(prefix string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for key := range c.entries {
		if strings.HasPrefix(key, prefix) {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}

func (c *TTLCache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{
		Hits:      c.hits,
		Misses:    c.misses,
		Size:      len(c.entries),
		Evictions: c.evictions,
	}
}

// Sweep removes all expired entries and returns the number evicted.
func (c *TTLCache) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	evicted := 0
	for key, e := range c.entries {
		if !now.Before(e.expiresAt) {
			delete(c.entries, key)
			evicted++
		}
	}
	c.evictions += uint64(evicted)
	return evicted
}

// StartJanitor sweeps expired entries every interval until ctx is done.
func (c *TTLCache) StartJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := c.Sweep(); n > 0 {
				log.Debug().Int("evicted", n).Msg("cache sweep")
			}
		}
	}
}

// GetOrLoad returns the cached value for key or runs loader to produce it.
// Concurrent misses on the same key share a single loader call. The shared
// load is detached from the caller's cancellation so one impatient caller
// cannot fail the others; each caller still stops waiting when its own ctx
// ends. Errors are not cached.
func (c *TTLCache) GetOrLoad(ctx context.Context, key string, ttl time.Duration, loader func(context.Context) (any, error)) (any, error) {
	if v, ok := c.Get(key); ok {
		return v, nil
	}

	loadCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(key, func() (any, error) {
		if v, ok := c.peek(key); ok {
			return v, nil
		}
		v, err := loader(loadCtx)
		if err != nil {
			return nil, err
		}
		c.Set(key, v, ttl)
		return v, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		return res.Val, res.Err
	}
}

// peek reads without touching the hit/miss counters.
func (c *TTLCache) peek(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok || !c.now().Before(e.expiresAt) {
		return nil, false
	}
	return e.value, true
}

// Load is the typed form of GetOrLoad.
func Load[T any](ctx context.Context, c *TTLCache, key string, ttl time.Duration, loader func(context.Context) (T, error)) (T, error) {
	var zero T
	v, err := c.GetOrLoad(ctx, key, ttl, func(ctx context.Context) (any, error) {
		return loader(ctx)
	})
	if err != nil {
		return zero, err
	}
	typed, ok := v.(T)
	if !ok {
		c.Invalidate(key)
		return loader(ctx)
	}
	return typed, nil
}
