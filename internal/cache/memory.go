package cache

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/trackwell/attribution-service/internal/models"
)

type memoryEntry struct {
	rc      *models.RateContext
	expires time.Time
}

// MemoryRateCache is the in-process fallback used when Redis is not
// configured.
type MemoryRateCache struct {
	mu    sync.RWMutex
	ttl   time.Duration
	store map[uuid.UUID]memoryEntry
}

func NewMemoryRateCache(ttl time.Duration) *MemoryRateCache {
	return &MemoryRateCache{
		ttl:   ttl,
		store: make(map[uuid.UUID]memoryEntry),
	}
}

func (c *MemoryRateCache) Get(_ context.Context, linkID uuid.UUID) (*models.RateContext, bool) {
	c.mu.RLock()
	entry, ok := c.store[linkID]
	c.mu.RUnlock()
	if !ok || time.Now().After(entry.expires) {
		return nil, false
	}
	return entry.rc, true
}

func (c *MemoryRateCache) Set(_ context.Context, linkID uuid.UUID, rc *models.RateContext) {
	c.mu.Lock()
	defer c.mu.Unlock()
	// Opportunistically drop expired entries so the map does not grow without
	// bound on a long-running process.
	if len(c.store) > 0 && len(c.store)%1024 == 0 {
		now := time.Now()
		for k, v := range c.store {
			if now.After(v.expires) {
				delete(c.store, k)
			}
		}
	}
	c.store[linkID] = memoryEntry{rc: rc, expires: time.Now().Add(c.ttl)}
}
