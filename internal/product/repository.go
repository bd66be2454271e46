package product

import (
	"context"
	"errors"
	"sync"
)

var (
	ErrNotFound     = errors.New("product not found")
	ErrOutOfStock   = errors.New("product out of stock")
	ErrInvalidStock = errors.New("stock adjustment below zero")
)

// Repository provides read access to the catalog. Product CRUD lives in the
// backoffice and is out of scope here; checkout and pricing only read.
type Repository interface {
	List(ctx context.Context) ([]Product, error)
	GetByID(ctx context.Context, id int) (Product, error)
	// ListByIDs returns products whose id is present in ids, ordered the
	// same way as the ids argument. An empty slice returns an empty result
	// without hitting storage.
	ListByIDs(ctx context.Context, ids []int) ([]Product, error)
}

// InMemoryRepository is used for tests and the no-database dev mode.
type InMemoryRepository struct {
	mu      sync.RWMutex
	storage []Product
}

func NewInMemoryRepository(seed []Product) *InMemoryRepository {
	r := &InMemoryRepository{storage: make([]Product, 0, len(seed))}
	r.storage = append(r.storage, seed...)
	return r
}

func (r *InMemoryRepository) List(ctx context.Context) ([]Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Product, len(r.storage))
	copy(out, r.storage)
	return out, nil
}

func (r *InMemoryRepository) GetByID(ctx context.Context, id int) (Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, p := range r.storage {
		if p.ID == id {
			return p, nil
		}
	}
	return Product{}, ErrNotFound
}

func (r *InMemoryRepository) ListByIDs(ctx context.Context, ids []int) ([]Product, error) {
	if len(ids) == 0 {
		return []Product{}, nil
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Product, 0, len(ids))
	for _, id := range ids {
		for _, p := range r.storage {
			if p.ID == id {
				out = append(out, p)
				break
			}
		}
	}
	return out, nil
}

// DecrementStock atomically subtracts qty from a product's stock, refusing
// to go below zero. The payment store calls this while holding its own lock
// so a paid transition and its stock effect stay a single unit.
func (r *InMemoryRepository) DecrementStock(id, qty int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.storage {
		if r.storage[i].ID == id {
			if r.storage[i].Stock < qty {
				return ErrInvalidStock
			}
			r.storage[i].Stock -= qty
			return nil
		}
	}
	return ErrNotFound
}
