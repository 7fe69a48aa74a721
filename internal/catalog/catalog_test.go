package catalog

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"diag-storefront/internal/domain"
	"diag-storefront/internal/infrastructure/cache"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFetcher struct {
	calls   atomic.Int32
	delay   time.Duration
	err     error
	entries []domain.CatalogEntry
}

func (f *fakeFetcher) ListProducts(context.Context) ([]domain.CatalogEntry, error) {
	f.calls.Add(1)
	time.Sleep(f.delay)
	return f.entries, f.err
}

func (f *fakeFetcher) ListTests(ctx context.Context) ([]domain.CatalogEntry, error) {
	return f.ListProducts(ctx)
}

func TestLookup_FindsByID(t *testing.T) {
	f := &fakeFetcher{entries: []domain.CatalogEntry{{ID: 7, Name: "Thyroid", Price: 800, DiscountedPrice: 650}}}
	s := NewService(f, cache.NewMemoryCache(time.Minute), nil)

	e, err := s.Lookup(context.Background(), 7, domain.ItemTest)
	require.NoError(t, err)
	assert.Equal(t, domain.SelectedItem{ID: 7, Name: "Thyroid", Price: 800, DiscountedPrice: 650, Type: domain.ItemTest}, e.Select(domain.ItemTest))

	_, err = s.Lookup(context.Background(), 8, domain.ItemTest)
	assert.ErrorIs(t, err, ErrNotInCatalog)
	assert.Equal(t, int32(1), f.calls.Load())
}

func TestList_ConcurrentMissesShareFetch(t *testing.T) {
	f := &fakeFetcher{delay: 50 * time.Millisecond, entries: []domain.CatalogEntry{{ID: 1}}}
	s := NewService(f, cache.NewMemoryCache(time.Minute), nil)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.List(context.Background(), domain.ItemProduct)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), f.calls.Load())
}

func TestList_ErrorNotCached(t *testing.T) {
	f := &fakeFetcher{err: errors.New("upstream down")}
	s := NewService(f, cache.NewMemoryCache(time.Minute), nil)

	_, err := s.List(context.Background(), domain.ItemProduct)
	assert.Error(t, err)

	f.err = nil
	f.entries = []domain.CatalogEntry{{ID: 3}}
	got, err := s.List(context.Background(), domain.ItemProduct)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestInvalidate_ForcesRefetch(t *testing.T) {
	f := &fakeFetcher{entries: []domain.CatalogEntry{{ID: 1}}}
	s := NewService(f, cache.NewMemoryCache(time.Minute), nil)
	ctx := context.Background()

	_, err := s.List(ctx, domain.ItemProduct)
	require.NoError(t, err)
	_, err = s.List(ctx, domain.ItemProduct)
	require.NoError(t, err)
	assert.Equal(t, int32(1), f.calls.Load())

	require.NoError(t, s.Invalidate(ctx))
	_, err = s.List(ctx, domain.ItemProduct)
	require.NoError(t, err)
	assert.Equal(t, int32(2), f.calls.Load())
}
