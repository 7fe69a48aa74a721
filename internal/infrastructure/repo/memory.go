package repo

import (
	"context"
	"sort"
	"sync"

	"diag-storefront/internal/domain"
)

type MemoryReceiptRepo struct {
	mu sync.RWMutex
	m  map[string]*domain.BookingReceipt
}

func NewMemoryReceiptRepo() *MemoryReceiptRepo {
	return &MemoryReceiptRepo{m: make(map[string]*domain.BookingReceipt)}
}

func (r *MemoryReceiptRepo) PutReceipt(_ context.Context, rc *domain.BookingReceipt) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *rc
	r.m[rc.ID] = &cp
	return nil
}

func (r *MemoryReceiptRepo) GetReceipt(_ context.Context, id string) (*domain.BookingReceipt, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rc, ok := r.m[id]
	if !ok {
		return nil, false
	}
	cp := *rc
	return &cp, true
}

func (r *MemoryReceiptRepo) ListReceipts(_ context.Context, userID string, page, pageSize int) ([]domain.BookingReceipt, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	all := make([]domain.BookingReceipt, 0, len(r.m))
	for _, rc := range r.m {
		if userID != "" && rc.UserID != userID {
			continue
		}
		all = append(all, *rc)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	total := len(all)
	start, end := pageBounds(page, pageSize, total)
	return all[start:end], total, nil
}

func pageBounds(page, pageSize, total int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	start := (page - 1) * pageSize
	if start > total {
		start = total
	}
	end := start + pageSize
	if end > total {
		end = total
	}
	return start, end
}
