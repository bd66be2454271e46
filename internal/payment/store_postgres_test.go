package payment

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/Badr070118/lupeti-backend/internal/order"
)

func paidTransition() Transition {
	return Transition{
		OrderID:        1,
		From:           order.StatusPendingPayment,
		To:             order.StatusPaid,
		Stock:          []StockDecrement{{ProductID: 1, Quantity: 2}},
		ProviderStatus: "success",
		Record: CallbackRecord{
			MerchantOrderID: "LP00000001",
			EventHash:       "abc123",
			OrderStatus:     order.StatusPaid,
			Ack:             AckToken,
			AppliedAt:       time.Now().UTC(),
		},
	}
}

func TestPostgresApplyTransition_Applied(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()
	store := NewPostgresStore(db)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT status FROM orders").WithArgs(1).
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("PENDING_PAYMENT"))
	mock.ExpectExec("UPDATE orders SET status").WithArgs("PAID", sqlmock.AnyArg(), 1).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE product SET stock").WithArgs(2, 1).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE payment_attempt").WithArgs("success", "", sqlmock.AnyArg(), "LP00000001").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO processed_callback").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	outcome, err := store.ApplyTransition(context.Background(), paidTransition())
	if err != nil {
		t.Fatal(err)
	}
	if !outcome.Applied || outcome.CurrentStatus != order.StatusPaid {
		t.Fatalf("unexpected outcome %+v", outcome)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestPostgresApplyTransition_NoOpAppendsRecordOnly(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()
	store := NewPostgresStore(db)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT status FROM orders").WithArgs(1).
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("PAID"))
	mock.ExpectExec("INSERT INTO processed_callback").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	outcome, err := store.ApplyTransition(context.Background(), paidTransition())
	if err != nil {
		t.Fatal(err)
	}
	if !outcome.NoOp || outcome.Applied {
		t.Fatalf("unexpected outcome %+v", outcome)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestPostgresApplyTransition_OtherStateWritesNothing(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()
	store := NewPostgresStore(db)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT status FROM orders").WithArgs(1).
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("CANCELLED"))
	mock.ExpectRollback()

	outcome, err := store.ApplyTransition(context.Background(), paidTransition())
	if err != nil {
		t.Fatal(err)
	}
	if outcome.Applied || outcome.NoOp || outcome.CurrentStatus != order.StatusCancelled {
		t.Fatalf("unexpected outcome %+v", outcome)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestPostgresApplyTransition_InsufficientStockRollsBack(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()
	store := NewPostgresStore(db)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT status FROM orders").WithArgs(1).
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("PENDING_PAYMENT"))
	mock.ExpectExec("UPDATE orders SET status").WithArgs("PAID", sqlmock.AnyArg(), 1).
		WillReturnResult(sqlmock.NewResult(0, 1))
	// the CAS-guarded stock update condition matched no rows
	mock.ExpectExec("UPDATE product SET stock").WithArgs(2, 1).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	if _, err := store.ApplyTransition(context.Background(), paidTransition()); !errors.Is(err, ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}
