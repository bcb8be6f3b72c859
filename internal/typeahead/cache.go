package typeahead

import (
	"context"
	"sync"
	"time"

	. "waiverdesk/internal/models"
)

const DefaultCacheTTL = 120 * time.Second

// Cache memoizes suggestion lookups by normalized query. Implementations must
// replace entries atomically and must never hand out memory they keep.
type Cache interface {
	Get(ctx context.Context, key string) ([]SearchCandidate, bool, error)
	Set(ctx context.Context, key string, candidates []SearchCandidate) error
	Clear(ctx context.Context) error
}

type cacheEntry struct {
	candidates []SearchCandidate
	storedAt   time.Time
}

// MemoryCache is an in-process TTL cache. Expired entries are evicted lazily
// on Get; there is no size bound.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]cacheEntry
	ttl     time.Duration
	clock   Clock
}

func NewMemoryCache(ttl time.Duration, clock Clock) *MemoryCache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if clock == nil {
		clock = RealClock{}
	}

	return &MemoryCache{
		entries: make(map[string]cacheEntry),
		ttl:     ttl,
		clock:   clock,
	}
}

func (c *MemoryCache) Get(_ context.Context, key string) ([]SearchCandidate, bool, error) {
	key = NormalizeQuery(key)

	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return nil, false, nil
	}

	if c.clock.Now().Sub(entry.storedAt) > c.ttl {
		delete(c.entries, key)
		return nil, false, nil
	}

	return CloneCandidates(entry.candidates), true, nil
}

func (c *MemoryCache) Set(_ context.Context, key string, candidates []SearchCandidate) error {
	key = NormalizeQuery(key)
	entry := cacheEntry{
		candidates: CloneCandidates(candidates),
		storedAt:   c.clock.Now(),
	}
	if entry.candidates == nil {
		entry.candidates = []SearchCandidate{}
	}

	c.mu.Lock()
	c.entries[key] = entry
	c.mu.Unlock()

	return nil
}

func (c *MemoryCache) Clear(_ context.Context) error {
	c.mu.Lock()
	c.entries = make(map[string]cacheEntry)
	c.mu.Unlock()

	return nil
}

// Len counts stored entries, expired ones included until they are next read.
func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
