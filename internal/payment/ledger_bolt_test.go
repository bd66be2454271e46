package payment

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/Badr070118/lupeti-backend/internal/order"
)

func TestBoltLedger(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")
	ledger, err := NewBoltLedger(path)
	if err != nil {
		t.Fatal(err)
	}

	rec := CallbackRecord{
		MerchantOrderID: "LP00000042",
		EventHash:       "abc123",
		OrderStatus:     order.StatusPaid,
		Ack:             AckToken,
		AppliedAt:       time.Now().UTC().Truncate(time.Second),
	}

	if _, found, err := ledger.Find(rec.MerchantOrderID, rec.EventHash); err != nil || found {
		t.Fatalf("unexpected find before append: found=%v err=%v", found, err)
	}
	if err := ledger.Append(rec); err != nil {
		t.Fatal(err)
	}

	// first write wins
	later := rec
	later.OrderStatus = order.StatusFailed
	if err := ledger.Append(later); err != nil {
		t.Fatal(err)
	}

	got, found, err := ledger.Find(rec.MerchantOrderID, rec.EventHash)
	if err != nil || !found {
		t.Fatalf("find: found=%v err=%v", found, err)
	}
	if got.OrderStatus != order.StatusPaid || got.Ack != AckToken {
		t.Fatalf("unexpected record %+v", got)
	}

	// dedup state survives a restart
	if err := ledger.Close(); err != nil {
		t.Fatal(err)
	}
	reopened, err := NewBoltLedger(path)
	if err != nil {
		t.Fatal(err)
	}
	defer reopened.Close()

	if _, found, err := reopened.Find(rec.MerchantOrderID, rec.EventHash); err != nil || !found {
		t.Fatalf("record lost across reopen: found=%v err=%v", found, err)
	}
}
