package payment

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/Badr070118/lupeti-backend/internal/order"
	"github.com/Badr070118/lupeti-backend/internal/product"
)

func newInitiatorFixture(t *testing.T, status order.Status) (*Initiator, *MemoryStore, order.Order) {
	t.Helper()
	orders := order.NewInMemoryRepository()
	products := product.NewInMemoryRepository(nil)
	store := NewMemoryStore(orders, products, nil)

	ord, err := orders.Create(context.Background(), order.Order{
		UserID:     7,
		Status:     status,
		Lines:      []order.Line{{ProductID: 1, TitleSnapshot: "Kedi Mamasi", UnitPriceCents: 1200, Quantity: 2}},
		TotalCents: 2400,
		Currency:   "TL",
	})
	if err != nil {
		t.Fatal(err)
	}
	return NewInitiator(testConfig, store, orders, zap.NewNop()), store, ord
}

func TestInitiate(t *testing.T) {
	init, _, ord := newInitiatorFixture(t, order.StatusPendingPayment)

	payload, err := init.Initiate(context.Background(), ord.ID, 7)
	if err != nil {
		t.Fatal(err)
	}
	if payload.MerchantOID != MerchantOrderID(ord.ID) {
		t.Fatalf("unexpected merchant oid %q", payload.MerchantOID)
	}
	if payload.AmountCents != 2400 || payload.Currency != "TL" {
		t.Fatalf("unexpected payload %+v", payload)
	}
	if payload.Token != testConfig.InitiationToken(payload.MerchantOID, 2400) {
		t.Fatal("token does not match the signing scheme")
	}
}

func TestInitiate_RepeatReusesAttempt(t *testing.T) {
	init, store, ord := newInitiatorFixture(t, order.StatusPendingPayment)
	ctx := context.Background()

	first, err := init.Initiate(ctx, ord.ID, 7)
	if err != nil {
		t.Fatal(err)
	}
	second, err := init.Initiate(ctx, ord.ID, 7)
	if err != nil {
		t.Fatal(err)
	}
	if first != second {
		t.Fatalf("repeat initiation diverged: %+v vs %+v", first, second)
	}

	attempt, err := store.AttemptByMerchantOID(ctx, first.MerchantOID)
	if err != nil {
		t.Fatal(err)
	}
	if attempt.ProviderStatus != "initiated" || attempt.AmountCents != 2400 {
		t.Fatalf("unexpected attempt %+v", attempt)
	}
}

func TestInitiate_WrongOwner(t *testing.T) {
	init, _, ord := newInitiatorFixture(t, order.StatusPendingPayment)
	if _, err := init.Initiate(context.Background(), ord.ID, 99); !errors.Is(err, order.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestInitiate_NotPayable(t *testing.T) {
	for _, status := range []order.Status{order.StatusPaid, order.StatusCancelled, order.StatusFailed} {
		init, _, ord := newInitiatorFixture(t, status)
		if _, err := init.Initiate(context.Background(), ord.ID, 7); !errors.Is(err, ErrOrderNotPayable) {
			t.Fatalf("status %s: expected ErrOrderNotPayable, got %v", status, err)
		}
	}
}

func TestInitiate_AmountMismatch(t *testing.T) {
	init, store, ord := newInitiatorFixture(t, order.StatusPendingPayment)
	ctx := context.Background()

	// a pre-existing attempt recorded under the same merchant oid with a
	// stale amount must refuse instead of reusing the old token
	_, err := store.CreateAttempt(ctx, Attempt{
		OrderID:         ord.ID,
		MerchantOrderID: MerchantOrderID(ord.ID),
		ProviderStatus:  "initiated",
		AmountCents:     1999,
		CreatedAt:       time.Now().UTC(),
	})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := init.Initiate(ctx, ord.ID, 7); !errors.Is(err, ErrAmountMismatch) {
		t.Fatalf("expected ErrAmountMismatch, got %v", err)
	}
}
