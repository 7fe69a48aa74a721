package cache

import (
	"context"
	"errors"
	"sync"
	"time"

	"diag-storefront/internal/domain"
)

type CatalogCache interface {
	Get(ctx context.Context, kind domain.ItemType) ([]domain.CatalogEntry, error)
	Set(ctx context.Context, kind domain.ItemType, entries []domain.CatalogEntry) error
	Delete(ctx context.Context, kind domain.ItemType) error
}

var ErrCacheMiss = errors.New("cache miss")

type memEntry struct {
	entries []domain.CatalogEntry
	expires time.Time
}

// MemoryCache is the fallback when no Redis address is configured.
type MemoryCache struct {
	ttl time.Duration
	now func() time.Time

	mu sync.RWMutex
	m  map[domain.ItemType]memEntry
}

func NewMemoryCache(ttl time.Duration) *MemoryCache {
	return &MemoryCache{ttl: ttl, now: time.Now, m: make(map[domain.ItemType]memEntry)}
}

func (c *MemoryCache) Get(_ context.Context, kind domain.ItemType) ([]domain.CatalogEntry, error) {
	c.mu.RLock()
	e, ok := c.m[kind]
	c.mu.RUnlock()
	if !ok || !c.now().Before(e.expires) {
		return nil, ErrCacheMiss
	}
	return append([]domain.CatalogEntry(nil), e.entries...), nil
}

func (c *MemoryCache) Set(_ context.Context, kind domain.ItemType, entries []domain.CatalogEntry) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m[kind] = memEntry{entries: append([]domain.CatalogEntry(nil), entries...), expires: c.now().Add(c.ttl)}
	return nil
}

func (c *MemoryCache) Delete(_ context.Context, kind domain.ItemType) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.m, kind)
	return nil
}
