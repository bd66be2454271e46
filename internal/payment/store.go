package payment

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/Badr070118/lupeti-backend/internal/order"
)

var (
	ErrAttemptNotFound   = errors.New("payment attempt not found")
	ErrInsufficientStock = errors.New("insufficient stock for paid order")
)

// Attempt correlates an order with the provider. One order can accumulate
// several attempts over its life but the merchant oid is unique, and since
// it is derived from the order id there is at most one non-terminal attempt
// at a time.
type Attempt struct {
	OrderID         int        `json:"orderId"`
	MerchantOrderID string     `json:"merchantOrderId"`
	ProviderStatus  string     `json:"providerStatus"` // initiated, success, failed
	AmountCents     int64      `json:"amountCents"`
	Hash            string     `json:"hash"`
	CreatedAt       time.Time  `json:"createdAt"`
	ProcessedAt     *time.Time `json:"processedAt,omitempty"`
}

// CallbackRecord is one row of the idempotency ledger: an external event that
// has been applied (or confirmed as a no-op), with the acknowledgement we
// returned for it. Append-only.
type CallbackRecord struct {
	MerchantOrderID string       `json:"merchantOrderId"`
	EventHash       string       `json:"eventHash"`
	OrderStatus     order.Status `json:"resultingOrderStatus"`
	Ack             string       `json:"ack"`
	AppliedAt       time.Time    `json:"appliedAt"`
}

// StockDecrement is the inventory effect of one order line on payment.
type StockDecrement struct {
	ProductID int
	Quantity  int
}

// Transition is the full atomic effect of one verified callback: the order
// status CAS, the stock decrement (for PAID), the attempt finalization and
// the ledger append. A store applies all of it or none of it.
type Transition struct {
	OrderID        int
	From, To       order.Status
	Stock          []StockDecrement
	ProviderStatus string
	FailReason     string
	Record         CallbackRecord
}

// ApplyOutcome reports what a Transition did.
//   - Applied: this call won the status swap and performed all effects.
//   - NoOp: the order was already at the target status; only the ledger
//     record was written.
//   - neither: the order sits in some other state; nothing was written.
type ApplyOutcome struct {
	Applied       bool
	NoOp          bool
	CurrentStatus order.Status
}

// Store persists payment attempts and the processed-callback ledger, and
// applies callback transitions atomically with respect to the order row.
type Store interface {
	// CreateAttempt records a new attempt, or returns the existing one for
	// the same merchant oid unchanged (repeat initiations are reads).
	CreateAttempt(ctx context.Context, a Attempt) (Attempt, error)
	AttemptByMerchantOID(ctx context.Context, merchantOID string) (Attempt, error)
	FindCallbackRecord(ctx context.Context, merchantOID, eventHash string) (CallbackRecord, bool, error)
	ApplyTransition(ctx context.Context, t Transition) (ApplyOutcome, error)
}

// Ledger is the durable processed-callback store used by MemoryStore. The
// Postgres store keeps the ledger in the same database so the append can
// share the order transaction.
type Ledger interface {
	Find(merchantOID, eventHash string) (CallbackRecord, bool, error)
	Append(rec CallbackRecord) error
}

// MemoryLedger keeps records in a map; dedup state is lost on restart, so
// it is only suitable for tests (dev mode uses the bolt ledger).
type MemoryLedger struct {
	mu      sync.RWMutex
	records map[string]CallbackRecord
}

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{records: make(map[string]CallbackRecord)}
}

func ledgerKey(merchantOID, eventHash string) string {
	return merchantOID + "|" + eventHash
}

func (l *MemoryLedger) Find(merchantOID, eventHash string) (CallbackRecord, bool, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	rec, ok := l.records[ledgerKey(merchantOID, eventHash)]
	return rec, ok, nil
}

func (l *MemoryLedger) Append(rec CallbackRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	key := ledgerKey(rec.MerchantOrderID, rec.EventHash)
	if _, ok := l.records[key]; ok {
		return nil
	}
	l.records[key] = rec
	return nil
}
