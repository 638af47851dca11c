package services

import (
	"context"
	"log"
	"sync"
	"time"
)

// PageCache stores rendered responses by key for a limited time.
type PageCache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Clear(ctx context.Context) error
}

type cacheEntry struct {
	value     []byte
	expiresAt time.Time
}

// MemoryCache is a process-local PageCache. Expired entries are dropped on
// read, swept by Set once the oldest deadline has passed and by Run.
type MemoryCache struct {
	mu        sync.RWMutex
	entries   map[string]cacheEntry
	now       func() time.Time
	nextSweep time.Time
}

func NewMemoryCache() *MemoryCache {
	return NewMemoryCacheWithClock(time.Now)
}

func NewMemoryCacheWithClock(now func() time.Time) *MemoryCache {
	return &MemoryCache{entries: make(map[string]cacheEntry), now: now}
}

var _ PageCache = (*MemoryCache)(nil)

func (c *MemoryCache) Get(_ context.Context, key string) ([]byte, bool) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if !c.now().Before(entry.expiresAt) {
		c.mu.Lock()
		if cur, ok := c.entries[key]; ok && !c.now().Before(cur.expiresAt) {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		return nil, false
	}
	return entry.value, true
}

func (c *MemoryCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	stored := make([]byte, len(value))
	copy(stored, value)

	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	if !c.nextSweep.IsZero() && !now.Before(c.nextSweep) {
		c.purgeLocked(now)
	}
	expiresAt := now.Add(ttl)
	c.entries[key] = cacheEntry{value: stored, expiresAt: expiresAt}
	if c.nextSweep.IsZero() || expiresAt.Before(c.nextSweep) {
		c.nextSweep = expiresAt
	}
	return nil
}

func (c *MemoryCache) Clear(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]cacheEntry)
	c.nextSweep = time.Time{}
	return nil
}

// Purge drops expired entries and returns how many were removed.
func (c *MemoryCache) Purge() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.purgeLocked(c.now())
}

func (c *MemoryCache) purgeLocked(now time.Time) int {
	removed := 0
	var next time.Time
	for key, entry := range c.entries {
		if !now.Before(entry.expiresAt) {
			delete(c.entries, key)
			removed++
			continue
		}
		if next.IsZero() || entry.expiresAt.Before(next) {
			next = entry.expiresAt
		}
	}
	c.nextSweep = next
	return removed
}

// Run purges expired entries every interval until ctx is done.
func (c *MemoryCache) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := c.Purge(); removed > 0 {
				log.Printf("DEBUG: purged %d expired page cache entries", removed)
			}
		}
	}
}

func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
