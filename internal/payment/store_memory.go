package payment

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Badr070118/lupeti-backend/internal/order"
	"github.com/Badr070118/lupeti-backend/internal/product"
)

// MemoryStore backs the no-database dev mode and the tests. Its mutex plays
// the role of the Postgres row lock: ApplyTransition holds it across the
// status check, the swap, the stock decrement and the ledger append, so two
// concurrent callbacks for one order still produce exactly one winner.
type MemoryStore struct {
	mu       sync.Mutex
	attempts map[string]Attempt
	ledger   Ledger
	orders   *order.InMemoryRepository
	products *product.InMemoryRepository
}

func NewMemoryStore(orders *order.InMemoryRepository, products *product.InMemoryRepository, ledger Ledger) *MemoryStore {
	if ledger == nil {
		ledger = NewMemoryLedger()
	}
	return &MemoryStore{
		attempts: make(map[string]Attempt),
		ledger:   ledger,
		orders:   orders,
		products: products,
	}
}

func (s *MemoryStore) CreateAttempt(ctx context.Context, a Attempt) (Attempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.attempts[a.MerchantOrderID]; ok {
		return existing, nil
	}
	s.attempts[a.MerchantOrderID] = a
	return a, nil
}

func (s *MemoryStore) AttemptByMerchantOID(ctx context.Context, merchantOID string) (Attempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.attempts[merchantOID]
	if !ok {
		return Attempt{}, ErrAttemptNotFound
	}
	return a, nil
}

func (s *MemoryStore) FindCallbackRecord(ctx context.Context, merchantOID, eventHash string) (CallbackRecord, bool, error) {
	return s.ledger.Find(merchantOID, eventHash)
}

func (s *MemoryStore) ApplyTransition(ctx context.Context, t Transition) (ApplyOutcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ord, err := s.orders.GetByID(ctx, t.OrderID)
	if err != nil {
		return ApplyOutcome{}, err
	}

	switch ord.Status {
	case t.From:
	case t.To:
		if err := s.ledger.Append(t.Record); err != nil {
			return ApplyOutcome{}, err
		}
		return ApplyOutcome{NoOp: true, CurrentStatus: ord.Status}, nil
	default:
		return ApplyOutcome{CurrentStatus: ord.Status}, nil
	}

	// verify the whole stock effect before touching anything: all or
	// nothing, like the database transaction
	for _, d := range t.Stock {
		p, err := s.products.GetByID(ctx, d.ProductID)
		if err != nil {
			return ApplyOutcome{}, err
		}
		if p.Stock < d.Quantity {
			return ApplyOutcome{}, fmt.Errorf("product %d: %w", d.ProductID, ErrInsufficientStock)
		}
	}

	swapped, err := s.orders.CompareAndSwapStatus(ctx, t.OrderID, t.From, t.To)
	if err != nil {
		return ApplyOutcome{}, err
	}
	if !swapped {
		// a writer outside this store (user cancel) slipped in between
		// our read and the swap
		cur, err := s.orders.GetByID(ctx, t.OrderID)
		if err != nil {
			return ApplyOutcome{}, err
		}
		if cur.Status == t.To {
			if err := s.ledger.Append(t.Record); err != nil {
				return ApplyOutcome{}, err
			}
			return ApplyOutcome{NoOp: true, CurrentStatus: cur.Status}, nil
		}
		return ApplyOutcome{CurrentStatus: cur.Status}, nil
	}

	for _, d := range t.Stock {
		if err := s.products.DecrementStock(d.ProductID, d.Quantity); err != nil {
			return ApplyOutcome{}, err
		}
	}

	now := time.Now().UTC()
	if a, ok := s.attempts[t.Record.MerchantOrderID]; ok {
		a.ProviderStatus = t.ProviderStatus
		a.ProcessedAt = &now
		s.attempts[t.Record.MerchantOrderID] = a
	}
	if err := s.ledger.Append(t.Record); err != nil {
		return ApplyOutcome{}, err
	}
	return ApplyOutcome{Applied: true, CurrentStatus: t.To}, nil
}
