package payment

import (
	"errors"
	"testing"
)

var testConfig = Config{
	MerchantID:   "123456",
	MerchantKey:  "test-merchant-key",
	MerchantSalt: "test-merchant-salt",
	Currency:     "TL",
}

func TestMerchantOrderID_Roundtrip(t *testing.T) {
	for _, id := range []int{1, 42, 99999999} {
		oid := MerchantOrderID(id)
		got, err := ParseMerchantOrderID(oid)
		if err != nil {
			t.Fatalf("ParseMerchantOrderID(%q): %v", oid, err)
		}
		if got != id {
			t.Fatalf("roundtrip %d -> %q -> %d", id, oid, got)
		}
	}
}

func TestMerchantOrderID_Deterministic(t *testing.T) {
	if MerchantOrderID(42) != MerchantOrderID(42) {
		t.Fatal("merchant oid must be stable for one order id")
	}
	if MerchantOrderID(42) != "LP00000042" {
		t.Fatalf("unexpected oid %q", MerchantOrderID(42))
	}
}

func TestParseMerchantOrderID_Rejects(t *testing.T) {
	for _, oid := range []string{"", "XX00000042", "LP", "LPabc", "LP00000000", "42"} {
		if _, err := ParseMerchantOrderID(oid); err == nil {
			t.Fatalf("expected error for %q", oid)
		}
	}
}

func TestInitiationToken_Deterministic(t *testing.T) {
	a := testConfig.InitiationToken("LP00000042", 2400)
	b := testConfig.InitiationToken("LP00000042", 2400)
	if a == "" || a != b {
		t.Fatalf("token not deterministic: %q vs %q", a, b)
	}
	if a == testConfig.InitiationToken("LP00000042", 2401) {
		t.Fatal("token must bind the amount")
	}
}

func TestVerifySignature(t *testing.T) {
	cb := Callback{
		MerchantOID: "LP00000042",
		Status:      "success",
		TotalAmount: "2400",
	}
	cb.Hash = testConfig.CallbackHash(cb.MerchantOID, cb.Status, cb.TotalAmount)

	if err := testConfig.VerifySignature(cb); err != nil {
		t.Fatalf("valid signature rejected: %v", err)
	}

	tampered := []Callback{
		func() Callback { c := cb; c.TotalAmount = "1"; return c }(),
		func() Callback { c := cb; c.Status = "failed"; return c }(),
		func() Callback { c := cb; c.MerchantOID = "LP00000043"; return c }(),
		func() Callback { c := cb; c.Hash = "bm90IGEgcmVhbCBoYXNo"; return c }(),
	}
	for i, c := range tampered {
		if err := testConfig.VerifySignature(c); !errors.Is(err, ErrInvalidSignature) {
			t.Fatalf("case %d: expected ErrInvalidSignature, got %v", i, err)
		}
	}
}

func TestEventHash(t *testing.T) {
	base := Callback{MerchantOID: "LP00000042", Status: "success", TotalAmount: "2400"}
	if base.EventHash() != base.EventHash() {
		t.Fatal("event hash must be stable across retries")
	}

	changedStatus := base
	changedStatus.Status = "failed"
	changedAmount := base
	changedAmount.TotalAmount = "2500"
	if base.EventHash() == changedStatus.EventHash() || base.EventHash() == changedAmount.EventHash() {
		t.Fatal("different provider events must hash differently")
	}
}

func TestAmountCents(t *testing.T) {
	cb := Callback{TotalAmount: "2400"}
	v, err := cb.AmountCents()
	if err != nil || v != 2400 {
		t.Fatalf("got %d, %v", v, err)
	}

	for _, raw := range []string{"", "abc", "-1", "24.00"} {
		cb := Callback{TotalAmount: raw}
		if _, err := cb.AmountCents(); !errors.Is(err, ErrMalformedCallback) {
			t.Fatalf("total_amount %q: expected ErrMalformedCallback, got %v", raw, err)
		}
	}
}
