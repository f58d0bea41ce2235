package sale

import (
	"context"
	"sync"
)

// MemoryRepository appends sales to an in-process slice.
type MemoryRepository struct {
	mu    sync.RWMutex
	sales []Record
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{}
}

func (r *MemoryRepository) SaveSale(ctx context.Context, rec Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sales = append(r.sales, rec)
	return nil
}

func (r *MemoryRepository) ListSales(ctx context.Context) ([]Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Record, len(r.sales))
	copy(out, r.sales)
	return out, nil
}
