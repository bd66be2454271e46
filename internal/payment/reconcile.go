package payment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Badr070118/lupeti-backend/internal/events"
	"github.com/Badr070118/lupeti-backend/internal/order"
)

const (
	statusSuccess = "success"
	statusFailed  = "failed"

	storageTimeout = 5 * time.Second
	applyRetries   = 3
	applyBackoff   = 100 * time.Millisecond
)

// Reconciler applies provider callbacks to orders. Callbacks are untrusted,
// at-least-once and possibly out of order; the pipeline is signature check,
// ledger dedup, then one atomic transition.
type Reconciler struct {
	cfg       Config
	store     Store
	orders    order.Repository
	publisher events.Publisher
	logger    *zap.Logger
	now       func() time.Time
}

func NewReconciler(cfg Config, store Store, orders order.Repository, publisher events.Publisher, logger *zap.Logger) *Reconciler {
	return &Reconciler{
		cfg:       cfg,
		store:     store,
		orders:    orders,
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
	}
}

// Handle processes one callback and returns the acknowledgement to send the
// provider. The ack is empty only when the signature check failed; for
// application-level errors (unknown order, invalid transition) the ack is
// returned alongside the error so the handler can acknowledge and stop the
// provider's retries while the error is logged.
func (r *Reconciler) Handle(ctx context.Context, cb Callback) (string, error) {
	// authenticity gate, before any state is read or written
	if err := r.cfg.VerifySignature(cb); err != nil {
		return "", err
	}
	if _, err := cb.AmountCents(); err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, storageTimeout)
	defer cancel()

	eventHash := cb.EventHash()
	if rec, found, err := r.store.FindCallbackRecord(ctx, cb.MerchantOID, eventHash); err != nil {
		return "", fmt.Errorf("ledger lookup: %w", err)
	} else if found {
		// idempotent replay: same outcome, no order mutation
		return rec.Ack, nil
	}

	attempt, err := r.store.AttemptByMerchantOID(ctx, cb.MerchantOID)
	if err != nil {
		if errors.Is(err, ErrAttemptNotFound) {
			return AckToken, fmt.Errorf("merchant_oid %q: %w", cb.MerchantOID, ErrUnknownOrder)
		}
		return "", err
	}

	ord, err := r.orders.GetByID(ctx, attempt.OrderID)
	if err != nil {
		return "", err
	}

	target := order.StatusFailed
	failReason := failureReason(cb.FailedReasonCode, cb.FailedReasonMsg)
	var stock []StockDecrement
	if cb.Status == statusSuccess {
		target = order.StatusPaid
		failReason = ""
		for _, line := range ord.Lines {
			stock = append(stock, StockDecrement{ProductID: line.ProductID, Quantity: line.Quantity})
		}
	}

	t := Transition{
		OrderID:        ord.ID,
		From:           order.StatusPendingPayment,
		To:             target,
		Stock:          stock,
		ProviderStatus: cb.Status,
		FailReason:     failReason,
		Record: CallbackRecord{
			MerchantOrderID: cb.MerchantOID,
			EventHash:       eventHash,
			OrderStatus:     target,
			Ack:             AckToken,
			AppliedAt:       r.now().UTC(),
		},
	}

	outcome, err := r.applyWithRetry(ctx, t)
	if err != nil {
		return "", err
	}

	switch {
	case outcome.Applied:
		r.publishOutcome(ctx, ord, target)
		return AckToken, nil
	case outcome.NoOp:
		// retried delivery that raced past the ledger check; the order
		// already holds the target status
		return AckToken, nil
	default:
		// some other terminal state, e.g. the user cancelled while the
		// provider was calling back; redelivery cannot change this, so
		// acknowledge anyway
		return AckToken, fmt.Errorf("order %d is %s: %w", ord.ID, outcome.CurrentStatus, order.ErrInvalidTransition)
	}
}

// failureReason folds the provider's reason fields into one string, empty
// when the provider sent neither.
func failureReason(code, msg string) string {
	return strings.TrimSpace(code + " " + msg)
}

// applyWithRetry retries storage contention and timeouts a bounded number of
// times. ApplyTransition is all-or-nothing, so a failed try left no partial
// state behind.
func (r *Reconciler) applyWithRetry(ctx context.Context, t Transition) (ApplyOutcome, error) {
	var lastErr error
	for i := 0; i < applyRetries; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return ApplyOutcome{}, ctx.Err()
			case <-time.After(time.Duration(i) * applyBackoff):
			}
		}
		outcome, err := r.store.ApplyTransition(ctx, t)
		if err == nil {
			return outcome, nil
		}
		if errors.Is(err, order.ErrNotFound) || errors.Is(err, ErrInsufficientStock) {
			return ApplyOutcome{}, err
		}
		lastErr = err
		r.logger.Warn("transition apply retry",
			zap.Int("order_id", t.OrderID), zap.Int("try", i+1), zap.Error(err))
	}
	return ApplyOutcome{}, fmt.Errorf("apply transition: %w", lastErr)
}

func (r *Reconciler) publishOutcome(ctx context.Context, ord order.Order, target order.Status) {
	eventType := "order_failed"
	if target == order.StatusPaid {
		eventType = "order_paid"
	}
	err := r.publisher.PublishOrderEvent(ctx, events.OrderEvent{
		EventType:  eventType,
		OrderID:    ord.ID,
		UserID:     ord.UserID,
		Status:     string(target),
		TotalCents: ord.TotalCents,
		Currency:   ord.Currency,
		OccurredAt: r.now().UTC(),
	})
	if err != nil {
		r.logger.Warn("could not publish order event",
			zap.String("event_type", eventType), zap.Int("order_id", ord.ID), zap.Error(err))
	}
}
