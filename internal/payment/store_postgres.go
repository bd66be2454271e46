package payment

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Badr070118/lupeti-backend/internal/order"
)

// PostgresStore keeps attempts, the callback ledger and the order/stock
// effects of a transition in one database so ApplyTransition is a single
// transaction.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) CreateAttempt(ctx context.Context, a Attempt) (Attempt, error) {
	res, err := s.db.ExecContext(ctx, `INSERT INTO payment_attempt (order_id, merchant_oid, provider_status, amount_cents, hash, created_at)
		VALUES ($1,$2,$3,$4,$5,$6)
		ON CONFLICT (merchant_oid) DO NOTHING`,
		a.OrderID, a.MerchantOrderID, a.ProviderStatus, a.AmountCents, a.Hash, a.CreatedAt)
	if err != nil {
		return Attempt{}, err
	}
	if n, err := res.RowsAffected(); err == nil && n > 0 {
		return a, nil
	}
	// merchant oid already known; hand back what was stored
	return s.AttemptByMerchantOID(ctx, a.MerchantOrderID)
}

func (s *PostgresStore) AttemptByMerchantOID(ctx context.Context, merchantOID string) (Attempt, error) {
	var a Attempt
	err := s.db.QueryRowContext(ctx, `SELECT order_id, merchant_oid, provider_status, amount_cents, hash, created_at, processed_at
		FROM payment_attempt WHERE merchant_oid = $1`, merchantOID).Scan(
		&a.OrderID, &a.MerchantOrderID, &a.ProviderStatus, &a.AmountCents, &a.Hash, &a.CreatedAt, &a.ProcessedAt)
	if err == sql.ErrNoRows {
		return Attempt{}, ErrAttemptNotFound
	}
	if err != nil {
		return Attempt{}, err
	}
	return a, nil
}

func (s *PostgresStore) FindCallbackRecord(ctx context.Context, merchantOID, eventHash string) (CallbackRecord, bool, error) {
	var rec CallbackRecord
	err := s.db.QueryRowContext(ctx, `SELECT merchant_oid, event_hash, order_status, ack, applied_at
		FROM processed_callback WHERE merchant_oid = $1 AND event_hash = $2`, merchantOID, eventHash).Scan(
		&rec.MerchantOrderID, &rec.EventHash, &rec.OrderStatus, &rec.Ack, &rec.AppliedAt)
	if err == sql.ErrNoRows {
		return CallbackRecord{}, false, nil
	}
	if err != nil {
		return CallbackRecord{}, false, err
	}
	return rec, true, nil
}

// ApplyTransition locks the order row, then either performs the full effect
// (status swap, stock decrement, attempt finalization, ledger append) or
// none of it. Two concurrent calls for the same order serialize on the row
// lock; the loser sees the winner's status and reports a no-op or current
// state without writing.
func (s *PostgresStore) ApplyTransition(ctx context.Context, t Transition) (ApplyOutcome, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return ApplyOutcome{}, err
	}
	defer tx.Rollback()

	var current order.Status
	err = tx.QueryRowContext(ctx, `SELECT status FROM orders WHERE order_id = $1 FOR UPDATE`, t.OrderID).Scan(&current)
	if err == sql.ErrNoRows {
		return ApplyOutcome{}, order.ErrNotFound
	}
	if err != nil {
		return ApplyOutcome{}, err
	}

	switch current {
	case t.From:
		// this call wins: full effect below
	case t.To:
		// already applied by an earlier delivery; only make the dedup
		// record durable
		if err := appendRecord(ctx, tx, t.Record); err != nil {
			return ApplyOutcome{}, err
		}
		if err := tx.Commit(); err != nil {
			return ApplyOutcome{}, err
		}
		return ApplyOutcome{NoOp: true, CurrentStatus: current}, nil
	default:
		return ApplyOutcome{CurrentStatus: current}, nil
	}

	now := time.Now().UTC()
	if _, err := tx.ExecContext(ctx, `UPDATE orders SET status = $1, updated_at = $2 WHERE order_id = $3`,
		t.To, now, t.OrderID); err != nil {
		return ApplyOutcome{}, err
	}

	for _, d := range t.Stock {
		res, err := tx.ExecContext(ctx, `UPDATE product SET stock = stock - $1 WHERE product_id = $2 AND stock >= $1`,
			d.Quantity, d.ProductID)
		if err != nil {
			return ApplyOutcome{}, err
		}
		if n, err := res.RowsAffected(); err != nil {
			return ApplyOutcome{}, err
		} else if n == 0 {
			return ApplyOutcome{}, fmt.Errorf("product %d: %w", d.ProductID, ErrInsufficientStock)
		}
	}

	if _, err := tx.ExecContext(ctx, `UPDATE payment_attempt SET provider_status = $1, fail_reason = $2, processed_at = $3
		WHERE merchant_oid = $4`,
		t.ProviderStatus, t.FailReason, now, t.Record.MerchantOrderID); err != nil {
		return ApplyOutcome{}, err
	}

	if err := appendRecord(ctx, tx, t.Record); err != nil {
		return ApplyOutcome{}, err
	}
	if err := tx.Commit(); err != nil {
		return ApplyOutcome{}, err
	}
	return ApplyOutcome{Applied: true, CurrentStatus: t.To}, nil
}

func appendRecord(ctx context.Context, tx *sql.Tx, rec CallbackRecord) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO processed_callback (merchant_oid, event_hash, order_status, ack, applied_at)
		VALUES ($1,$2,$3,$4,$5)
		ON CONFLICT (merchant_oid, event_hash) DO NOTHING`,
		rec.MerchantOrderID, rec.EventHash, rec.OrderStatus, rec.Ack, rec.AppliedAt)
	return err
}
