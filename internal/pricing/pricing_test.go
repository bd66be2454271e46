package pricing

import (
	"testing"
	"time"
)

func i64(v int64) *int64 { return &v }

func ts(s string) *time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return &t
}

var now = time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

func TestCompute_PercentDiscount(t *testing.T) {
	snap := Compute(Input{
		PriceCents:    1000,
		DiscountType:  DiscountPercent,
		DiscountValue: i64(25),
	}, now)

	if snap.FinalPriceCents != 750 {
		t.Fatalf("expected 750, got %d", snap.FinalPriceCents)
	}
	if !snap.IsPromoActive {
		t.Fatal("expected promo active")
	}
	if snap.SavingsCents != 250 {
		t.Fatalf("expected savings 250, got %d", snap.SavingsCents)
	}
}

func TestCompute_PercentClamp(t *testing.T) {
	over := Compute(Input{PriceCents: 1000, DiscountType: DiscountPercent, DiscountValue: i64(150)}, now)
	max := Compute(Input{PriceCents: 1000, DiscountType: DiscountPercent, DiscountValue: i64(95)}, now)

	if over.FinalPriceCents != max.FinalPriceCents {
		t.Fatalf("clamped value differs: %d vs %d", over.FinalPriceCents, max.FinalPriceCents)
	}
	if over.FinalPriceCents != 50 {
		t.Fatalf("expected 50, got %d", over.FinalPriceCents)
	}
}

func TestCompute_AmountNeverNegative(t *testing.T) {
	snap := Compute(Input{PriceCents: 500, DiscountType: DiscountAmount, DiscountValue: i64(99999)}, now)
	if snap.FinalPriceCents != 0 {
		t.Fatalf("expected 0, got %d", snap.FinalPriceCents)
	}
	if !snap.IsPromoActive {
		t.Fatal("expected promo active")
	}
}

func TestCompute_NegativeAmountInert(t *testing.T) {
	snap := Compute(Input{PriceCents: 500, DiscountType: DiscountAmount, DiscountValue: i64(-100)}, now)
	if snap.FinalPriceCents != 500 {
		t.Fatalf("negative amount raised the price: %d", snap.FinalPriceCents)
	}
	if snap.IsPromoActive {
		t.Fatal("expected promo inactive")
	}
	if snap.DiscountType != DiscountNone || snap.DiscountValue != 0 {
		t.Fatalf("expected inert snapshot, got %+v", snap)
	}
}

func TestCompute_Window(t *testing.T) {
	cases := []struct {
		name       string
		start, end *time.Time
		active     bool
	}{
		{"inside", ts("2026-03-01T00:00:00Z"), ts("2026-03-31T00:00:00Z"), true},
		{"before start", ts("2026-04-01T00:00:00Z"), nil, false},
		{"after end", nil, ts("2026-03-01T00:00:00Z"), false},
		{"open both sides", nil, nil, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			snap := Compute(Input{
				PriceCents:    2000,
				DiscountType:  DiscountPercent,
				DiscountValue: i64(10),
				PromoStartAt:  tc.start,
				PromoEndAt:    tc.end,
			}, now)
			if snap.IsPromoActive != tc.active {
				t.Fatalf("expected active=%v, got %v", tc.active, snap.IsPromoActive)
			}
			if !tc.active && snap.FinalPriceCents != snap.OriginalPriceCents {
				t.Fatalf("inactive promo must not change price, got %d", snap.FinalPriceCents)
			}
		})
	}
}

func TestCompute_StaticMarkdown(t *testing.T) {
	snap := Compute(Input{PriceCents: 800, OriginalPriceCents: i64(1000)}, now)
	if !snap.IsPromoActive {
		t.Fatal("expected markdown treated as active promo")
	}
	if snap.OriginalPriceCents != 1000 || snap.FinalPriceCents != 800 {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
	if snap.SavingsCents != 200 {
		t.Fatalf("expected savings 200, got %d", snap.SavingsCents)
	}
}

func TestCompute_NoPromotion(t *testing.T) {
	snap := Compute(Input{PriceCents: 1200}, now)
	if snap.IsPromoActive {
		t.Fatal("expected no promo")
	}
	if snap.FinalPriceCents != 1200 || snap.OriginalPriceCents != 1200 {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
}

func TestCompute_DiscountBeatsStaticMarkdown(t *testing.T) {
	// configured discount applies on top of the original price, not the
	// already-reduced one
	snap := Compute(Input{
		PriceCents:         800,
		OriginalPriceCents: i64(1000),
		DiscountType:       DiscountPercent,
		DiscountValue:      i64(50),
	}, now)
	if snap.FinalPriceCents != 500 {
		t.Fatalf("expected 500, got %d", snap.FinalPriceCents)
	}
	if snap.OriginalPriceCents != 1000 {
		t.Fatalf("expected original 1000, got %d", snap.OriginalPriceCents)
	}
}

func TestCompute_Invariants(t *testing.T) {
	inputs := []Input{
		{PriceCents: 1000, DiscountType: DiscountPercent, DiscountValue: i64(33)},
		{PriceCents: 999, DiscountType: DiscountAmount, DiscountValue: i64(1000)},
		{PriceCents: 1, DiscountType: DiscountPercent, DiscountValue: i64(95)},
		{PriceCents: 0, DiscountType: DiscountAmount, DiscountValue: i64(5)},
		{PriceCents: 700, OriginalPriceCents: i64(700)},
		{PriceCents: 100, DiscountType: DiscountPercent, DiscountValue: i64(0)},
		{PriceCents: 500, DiscountType: DiscountAmount, DiscountValue: i64(-100)},
		{PriceCents: 1000, DiscountType: DiscountPercent, DiscountValue: i64(-10)},
	}
	for _, in := range inputs {
		snap := Compute(in, now)
		if snap.FinalPriceCents < 0 {
			t.Fatalf("negative price for %+v", in)
		}
		if snap.IsPromoActive && snap.FinalPriceCents > snap.OriginalPriceCents {
			t.Fatalf("active promo above original for %+v", in)
		}
		if !snap.IsPromoActive && snap.FinalPriceCents != snap.OriginalPriceCents {
			t.Fatalf("inactive promo changed price for %+v", in)
		}
	}
}
