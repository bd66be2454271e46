package cart

import (
	"context"
	"errors"
	"sync"
)

var ErrNotFound = errors.New("user not found")

// Items maps productID -> quantity. Duplicates are additive.
type Items map[int]int

// Repository provides access to the per-user cart map.
type Repository interface {
	Get(ctx context.Context, userID int) (Items, error)
	// Add adjusts the quantity of a product; entries dropping to zero or
	// below are removed. Returns the resulting cart.
	Add(ctx context.Context, userID, productID, qty int) (Items, error)
	Clear(ctx context.Context, userID int) error
}

// InMemoryRepository is used for tests and local scenarios.
type InMemoryRepository struct {
	mu    sync.RWMutex
	carts map[int]Items
}

func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{carts: make(map[int]Items)}
}

func (r *InMemoryRepository) Get(ctx context.Context, userID int) (Items, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return cloneItems(r.carts[userID]), nil
}

func (r *InMemoryRepository) Add(ctx context.Context, userID, productID, qty int) (Items, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	items := r.carts[userID]
	if items == nil {
		items = make(Items)
		r.carts[userID] = items
	}
	items[productID] += qty
	if items[productID] <= 0 {
		delete(items, productID)
	}
	return cloneItems(items), nil
}

func (r *InMemoryRepository) Clear(ctx context.Context, userID int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.carts, userID)
	return nil
}

func cloneItems(items Items) Items {
	out := make(Items, len(items))
	for pid, qty := range items {
		out[pid] = qty
	}
	return out
}
