package catalog

import (
	"context"
	"errors"
	"fmt"

	"diag-storefront/internal/domain"
	"diag-storefront/internal/infrastructure/cache"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

var ErrNotInCatalog = errors.New("item not in catalog")

type Fetcher interface {
	ListProducts(ctx context.Context) ([]domain.CatalogEntry, error)
	ListTests(ctx context.Context) ([]domain.CatalogEntry, error)
}

// Service serves catalog listings through a cache; concurrent misses for the
// same listing share one upstream fetch.
type Service struct {
	api   Fetcher
	cache cache.CatalogCache
	log   *zap.Logger
	group singleflight.Group
}

func NewService(api Fetcher, c cache.CatalogCache, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{api: api, cache: c, log: log}
}

func (s *Service) List(ctx context.Context, kind domain.ItemType) ([]domain.CatalogEntry, error) {
	if entries, err := s.cache.Get(ctx, kind); err == nil {
		return entries, nil
	} else if !errors.Is(err, cache.ErrCacheMiss) {
		s.log.Warn("catalog cache read failed", zap.String("kind", string(kind)), zap.Error(err))
	}
	v, err, _ := s.group.Do(string(kind), func() (any, error) {
		entries, err := s.fetch(ctx, kind)
		if err != nil {
			return nil, err
		}
		if err := s.cache.Set(ctx, kind, entries); err != nil {
			s.log.Warn("catalog cache write failed", zap.String("kind", string(kind)), zap.Error(err))
		}
		return entries, nil
	})
	if err != nil {
		return nil, fmt.Errorf("list %s catalog: %w", kind, err)
	}
	return v.([]domain.CatalogEntry), nil
}

func (s *Service) Lookup(ctx context.Context, id int64, kind domain.ItemType) (domain.CatalogEntry, error) {
	entries, err := s.List(ctx, kind)
	if err != nil {
		return domain.CatalogEntry{}, err
	}
	for _, e := range entries {
		if e.ID == id {
			return e, nil
		}
	}
	return domain.CatalogEntry{}, ErrNotInCatalog
}

func (s *Service) Invalidate(ctx context.Context) error {
	return errors.Join(s.cache.Delete(ctx, domain.ItemProduct), s.cache.Delete(ctx, domain.ItemTest))
}

func (s *Service) fetch(ctx context.Context, kind domain.ItemType) ([]domain.CatalogEntry, error) {
	switch kind {
	case domain.ItemProduct:
		return s.api.ListProducts(ctx)
	case domain.ItemTest:
		return s.api.ListTests(ctx)
	}
	return nil, fmt.Errorf("unknown catalog kind %q", kind)
}
