package payment

import (
	"context"
	"strconv"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/Badr070118/lupeti-backend/internal/order"
)

// InitiationPayload is what the client forwards to the provider to open the
// hosted payment page.
type InitiationPayload struct {
	MerchantOID string `json:"merchant_oid"`
	AmountCents int64  `json:"payment_amount"`
	Currency    string `json:"currency"`
	Token       string `json:"paytr_token"`
}

// Initiator builds signed provider-initiation payloads. Concurrent requests
// for the same order collapse into one execution so an order can never be
// issued two different merchant identifiers.
type Initiator struct {
	cfg    Config
	store  Store
	orders order.Repository
	logger *zap.Logger
	group  singleflight.Group
	now    func() time.Time
}

func NewInitiator(cfg Config, store Store, orders order.Repository, logger *zap.Logger) *Initiator {
	return &Initiator{cfg: cfg, store: store, orders: orders, logger: logger, now: time.Now}
}

func (i *Initiator) Initiate(ctx context.Context, orderID, userID int) (InitiationPayload, error) {
	v, err, _ := i.group.Do(strconv.Itoa(orderID), func() (any, error) {
		return i.initiate(ctx, orderID, userID)
	})
	if err != nil {
		return InitiationPayload{}, err
	}
	return v.(InitiationPayload), nil
}

func (i *Initiator) initiate(ctx context.Context, orderID, userID int) (InitiationPayload, error) {
	ord, err := i.orders.GetByID(ctx, orderID)
	if err != nil {
		return InitiationPayload{}, err
	}
	if ord.UserID != userID {
		// do not leak other users' orders
		return InitiationPayload{}, order.ErrNotFound
	}
	if ord.Status != order.StatusPendingPayment {
		return InitiationPayload{}, ErrOrderNotPayable
	}

	merchantOID := MerchantOrderID(ord.ID)
	token := i.cfg.InitiationToken(merchantOID, ord.TotalCents)

	attempt, err := i.store.CreateAttempt(ctx, Attempt{
		OrderID:         ord.ID,
		MerchantOrderID: merchantOID,
		ProviderStatus:  "initiated",
		AmountCents:     ord.TotalCents,
		Hash:            token,
		CreatedAt:       i.now().UTC(),
	})
	if err != nil {
		return InitiationPayload{}, err
	}
	// a stale client retry after an admin price correction must not reuse
	// the old amount under the same merchant oid
	if attempt.AmountCents != ord.TotalCents {
		i.logger.Warn("initiation amount mismatch",
			zap.String("merchant_oid", merchantOID),
			zap.Int64("attempt_amount_cents", attempt.AmountCents),
			zap.Int64("order_total_cents", ord.TotalCents))
		return InitiationPayload{}, ErrAmountMismatch
	}

	return InitiationPayload{
		MerchantOID: merchantOID,
		AmountCents: attempt.AmountCents,
		Currency:    i.cfg.Currency,
		Token:       attempt.Hash,
	}, nil
}
