package order

import (
	"context"
	"sync"
	"time"
)

// Repository defines persistence operations for orders. Status changes go
// exclusively through CompareAndSwapStatus so every writer races on the
// current status instead of overwriting blindly.
type Repository interface {
	Create(ctx context.Context, ord Order) (Order, error)
	GetByID(ctx context.Context, id int) (Order, error)
	ListByUser(ctx context.Context, userID int) ([]Order, error)
	// CompareAndSwapStatus moves the order from `from` to `to` and reports
	// whether this call won the swap. false with a nil error means another
	// writer changed the status first; callers reload to see what it is now.
	CompareAndSwapStatus(ctx context.Context, orderID int, from, to Status) (bool, error)
}

// InMemoryRepository is used for tests and the no-database dev mode.
type InMemoryRepository struct {
	mu     sync.RWMutex
	orders []Order
	nextID int
}

func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{nextID: 1}
}

func (r *InMemoryRepository) Create(ctx context.Context, ord Order) (Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ord.ID = r.nextID
	r.nextID++
	r.orders = append(r.orders, ord)
	return ord, nil
}

func (r *InMemoryRepository) GetByID(ctx context.Context, id int) (Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, ord := range r.orders {
		if ord.ID == id {
			return cloneOrder(ord), nil
		}
	}
	return Order{}, ErrNotFound
}

func (r *InMemoryRepository) ListByUser(ctx context.Context, userID int) ([]Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Order, 0)
	for _, ord := range r.orders {
		if ord.UserID == userID {
			out = append(out, cloneOrder(ord))
		}
	}
	return out, nil
}

func (r *InMemoryRepository) CompareAndSwapStatus(ctx context.Context, orderID int, from, to Status) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.orders {
		if r.orders[i].ID == orderID {
			if r.orders[i].Status != from {
				return false, nil
			}
			r.orders[i].Status = to
			r.orders[i].UpdatedAt = time.Now().UTC()
			return true, nil
		}
	}
	return false, ErrNotFound
}

func cloneOrder(ord Order) Order {
	lines := make([]Line, len(ord.Lines))
	copy(lines, ord.Lines)
	ord.Lines = lines
	return ord
}
