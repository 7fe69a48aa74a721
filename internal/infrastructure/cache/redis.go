package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"diag-storefront/internal/domain"

	"github.com/redis/go-redis/v9"
)

func NewRedisCache(client *redis.Client, baseTTL time.Duration) *RedisCache {
	return &RedisCache{
		client:  client,
		baseTTL: baseTTL,
	}
}

type RedisCache struct {
	client  *redis.Client
	baseTTL time.Duration
}

func (r RedisCache) Get(ctx context.Context, kind domain.ItemType) ([]domain.CatalogEntry, error) {
	data, err := r.client.Get(ctx, cacheKey(kind)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}
	var entries []domain.CatalogEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("unmarshal catalog failed: %w", err)
	}
	return entries, nil
}

func (r RedisCache) Set(ctx context.Context, kind domain.ItemType, entries []domain.CatalogEntry) error {
	raw, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("marshal catalog failed: %w", err)
	}
	// spread expiry so product and test listings don't refetch together
	jitter := time.Duration(rand.Int63n(int64(r.baseTTL/5) + 1))
	if err := r.client.Set(ctx, cacheKey(kind), raw, r.baseTTL+jitter).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (r RedisCache) Delete(ctx context.Context, kind domain.ItemType) error {
	if err := r.client.Del(ctx, cacheKey(kind)).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

func cacheKey(kind domain.ItemType) string {
	return fmt.Sprintf("catalog:%s", kind)
}
