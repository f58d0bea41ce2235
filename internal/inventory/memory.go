package inventory

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"
)

// MemoryRepository keeps products in process memory. Useful for tests, the demo
// driver and running the service without a database.
type MemoryRepository struct {
	mu    sync.RWMutex
	data  map[string]Product
	order []string
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{data: make(map[string]Product)}
}

func (r *MemoryRepository) FindByCode(ctx context.Context, code string) (Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.data[code]
	if !ok {
		return Product{}, ErrNotFound
	}
	return p, nil
}

func (r *MemoryRepository) Save(ctx context.Context, p Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.data[p.Code]; !ok {
		r.order = append(r.order, p.Code)
	}
	r.data[p.Code] = p
	return nil
}

// ListAll returns products in the order they were first saved.
func (r *MemoryRepository) ListAll(ctx context.Context) ([]Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Product, 0, len(r.order))
	for _, code := range r.order {
		out = append(out, r.data[code])
	}
	return out, nil
}

// SeedDemoData loads a small hardware-store catalog.
func (r *MemoryRepository) SeedDemoData(ctx context.Context) error {
	for _, p := range DemoProducts() {
		if err := r.Save(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

func DemoProducts() []Product {
	return []Product{
		NewProduct("H001", "Martillo 16 oz mango fibra", decimal.RequireFromString("9.50"), 25, "Pasillo 1 - Herramientas de mano"),
		NewProduct("D001", "Taladro eléctrico 600W", decimal.RequireFromString("49.90"), 10, "Pasillo 2 - Herramientas eléctricas"),
		NewProduct("T001", `Caja de tornillos 1/4" x 100 und`, decimal.RequireFromString("5.20"), 40, "Pasillo 3 - Tornillería"),
		NewProduct("P001", "Galón de pintura blanca interior", decimal.RequireFromString("18.00"), 15, "Pasillo 4 - Pinturas"),
	}
}
