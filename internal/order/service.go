package order

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/Badr070118/lupeti-backend/internal/cart"
	"github.com/Badr070118/lupeti-backend/internal/events"
	"github.com/Badr070118/lupeti-backend/internal/pricing"
	"github.com/Badr070118/lupeti-backend/internal/product"
)

// storage operations in this subsystem never block indefinitely
const storageTimeout = 5 * time.Second

// Service implements checkout and the user/admin-driven transitions. The
// payment-driven transitions (PAID, FAILED) live in the payment package,
// where they are atomic with stock and the callback ledger.
type Service struct {
	repo      Repository
	products  product.ServiceInterface
	carts     cart.ServiceInterface
	publisher events.Publisher
	logger    *zap.Logger
	currency  string
	now       func() time.Time
}

func NewService(r Repository, ps product.ServiceInterface, cs cart.ServiceInterface, pub events.Publisher, logger *zap.Logger, currency string) *Service {
	return &Service{
		repo:      r,
		products:  ps,
		carts:     cs,
		publisher: pub,
		logger:    logger,
		currency:  currency,
		now:       time.Now,
	}
}

// Checkout snapshots the user's cart into a PENDING_PAYMENT order, locking
// each line's unit price via the pricing engine at this instant. Stock is
// not touched here; it is decremented with the PAID transition so abandoned
// payment attempts never reserve inventory.
func (s *Service) Checkout(ctx context.Context, userID int) (Order, error) {
	ctx, cancel := context.WithTimeout(ctx, storageTimeout)
	defer cancel()

	items, err := s.carts.Snapshot(ctx, userID)
	if err != nil {
		return Order{}, fmt.Errorf("load cart: %w", err)
	}
	if len(items) == 0 {
		return Order{}, ErrEmptyCart
	}

	ids := make([]int, 0, len(items))
	for id := range items {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	products, err := s.products.ListByIDs(ctx, ids)
	if err != nil {
		return Order{}, fmt.Errorf("load products: %w", err)
	}
	byID := make(map[int]product.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	now := s.now().UTC()
	ord := Order{
		UserID:    userID,
		Status:    StatusPendingPayment,
		Currency:  s.currency,
		CreatedAt: now,
		UpdatedAt: now,
	}
	for _, id := range ids {
		qty := items[id]
		p, ok := byID[id]
		if !ok {
			return Order{}, fmt.Errorf("product %d: %w", id, ErrProductUnavailable)
		}
		if p.Stock <= 0 || p.Stock < qty {
			return Order{}, fmt.Errorf("product %d: %w", id, ErrProductUnavailable)
		}

		snap := pricing.Compute(p.PricingInput(), now)
		line := Line{
			ProductID:      p.ID,
			TitleSnapshot:  p.Name,
			UnitPriceCents: snap.FinalPriceCents,
			Quantity:       qty,
		}
		ord.Lines = append(ord.Lines, line)
		ord.TotalCents += line.SubtotalCents()
	}

	created, err := s.repo.Create(ctx, ord)
	if err != nil {
		return Order{}, fmt.Errorf("create order: %w", err)
	}

	if err := s.carts.Clear(ctx, userID); err != nil {
		s.logger.Warn("could not clear cart after checkout",
			zap.Int("user_id", userID), zap.Int("order_id", created.ID), zap.Error(err))
	}
	s.publish(ctx, created, "order_created")
	return created, nil
}

func (s *Service) GetByID(ctx context.Context, id int) (Order, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) ListByUser(ctx context.Context, userID int) ([]Order, error) {
	return s.repo.ListByUser(ctx, userID)
}

// Cancel moves a user's own order from PENDING_PAYMENT to CANCELLED.
func (s *Service) Cancel(ctx context.Context, userID, orderID int) (Order, error) {
	ord, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		return Order{}, err
	}
	if ord.UserID != userID {
		return Order{}, ErrNotFound
	}
	return s.transition(ctx, orderID, StatusPendingPayment, StatusCancelled, "order_cancelled")
}

// MarkShipped moves a paid order to SHIPPED (backoffice path).
func (s *Service) MarkShipped(ctx context.Context, orderID int) (Order, error) {
	return s.transition(ctx, orderID, StatusPaid, StatusShipped, "")
}

// MarkDelivered moves a shipped order to DELIVERED (backoffice path).
func (s *Service) MarkDelivered(ctx context.Context, orderID int) (Order, error) {
	return s.transition(ctx, orderID, StatusShipped, StatusDelivered, "")
}

func (s *Service) transition(ctx context.Context, orderID int, from, to Status, eventType string) (Order, error) {
	ctx, cancel := context.WithTimeout(ctx, storageTimeout)
	defer cancel()

	if !from.CanTransitionTo(to) {
		return Order{}, ErrInvalidTransition
	}

	swapped, err := s.repo.CompareAndSwapStatus(ctx, orderID, from, to)
	if err != nil {
		return Order{}, err
	}
	ord, loadErr := s.repo.GetByID(ctx, orderID)
	if loadErr != nil {
		return Order{}, loadErr
	}
	if !swapped {
		// a concurrent writer got there first; the same target is a
		// no-op, anything else rejects without mutating
		if ord.Status == to {
			return ord, nil
		}
		return ord, ErrInvalidTransition
	}

	if eventType != "" {
		s.publish(ctx, ord, eventType)
	}
	return ord, nil
}

func (s *Service) publish(ctx context.Context, ord Order, eventType string) {
	err := s.publisher.PublishOrderEvent(ctx, events.OrderEvent{
		EventType:  eventType,
		OrderID:    ord.ID,
		UserID:     ord.UserID,
		Status:     string(ord.Status),
		TotalCents: ord.TotalCents,
		Currency:   ord.Currency,
		OccurredAt: s.now().UTC(),
	})
	if err != nil {
		s.logger.Warn("could not publish order event",
			zap.String("event_type", eventType), zap.Int("order_id", ord.ID), zap.Error(err))
	}
}
