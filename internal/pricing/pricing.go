package pricing

import "time"

// DiscountType enumerates the supported promotion kinds.
type DiscountType string

const (
	DiscountNone    DiscountType = "NONE"
	DiscountPercent DiscountType = "PERCENT"
	DiscountAmount  DiscountType = "AMOUNT"
)

// A percent discount above this would price items below 5% of their
// original value, so bad catalog input is clamped here.
const maxPercentDiscount = 95

// Input carries the catalog fields the calculator reads. All prices are in
// cents (kuruş); optional fields are nil when the catalog row has no value.
type Input struct {
	PriceCents         int64
	OriginalPriceCents *int64
	DiscountType       DiscountType
	DiscountValue      *int64
	PromoStartAt       *time.Time
	PromoEndAt         *time.Time
}

// Snapshot is the authoritative price of a product at one instant. The same
// snapshot feeds storefront display and checkout price-locking, so Compute
// must stay pure: two calls with equal inputs always agree.
type Snapshot struct {
	BasePriceCents     int64        `json:"basePriceCents"`
	OriginalPriceCents int64        `json:"originalPriceCents"`
	FinalPriceCents    int64        `json:"finalPriceCents"`
	DiscountType       DiscountType `json:"discountType"`
	DiscountValue      int64        `json:"discountValue"`
	PromoStartAt       *time.Time   `json:"promoStartAt,omitempty"`
	PromoEndAt         *time.Time   `json:"promoEndAt,omitempty"`
	IsPromoActive      bool         `json:"isPromoActive"`
	SavingsCents       int64        `json:"savingsCents"`
}

// Compute evaluates a product's price at the given instant.
func Compute(in Input, now time.Time) Snapshot {
	base := in.PriceCents
	if in.OriginalPriceCents != nil {
		base = *in.OriginalPriceCents
	}

	snap := Snapshot{
		BasePriceCents:     base,
		OriginalPriceCents: base,
		FinalPriceCents:    base,
		DiscountType:       DiscountNone,
		PromoStartAt:       in.PromoStartAt,
		PromoEndAt:         in.PromoEndAt,
	}

	if in.DiscountValue != nil && dateActive(in.PromoStartAt, in.PromoEndAt, now) {
		switch in.DiscountType {
		case DiscountPercent:
			v := clamp(*in.DiscountValue, 0, maxPercentDiscount)
			snap.DiscountType = DiscountPercent
			snap.DiscountValue = v
			// round(base * v / 100), integer half-up
			snap.FinalPriceCents = base - (base*v+50)/100
		case DiscountAmount:
			// a negative amount must never raise the price above base
			v := *in.DiscountValue
			if v < 0 {
				v = 0
			}
			snap.DiscountType = DiscountAmount
			snap.DiscountValue = v
			snap.FinalPriceCents = base - v
		}
	}

	if snap.DiscountType != DiscountNone {
		if snap.FinalPriceCents < 0 {
			snap.FinalPriceCents = 0
		}
		snap.IsPromoActive = snap.FinalPriceCents < snap.OriginalPriceCents
		if !snap.IsPromoActive {
			// zero-valued discount, keep the snapshot inert
			snap.DiscountType = DiscountNone
			snap.DiscountValue = 0
		}
	} else if in.OriginalPriceCents != nil && in.PriceCents < *in.OriginalPriceCents {
		// static markdown already applied on the catalog row
		snap.FinalPriceCents = in.PriceCents
		snap.IsPromoActive = true
	}

	if snap.FinalPriceCents < snap.OriginalPriceCents {
		snap.SavingsCents = snap.OriginalPriceCents - snap.FinalPriceCents
	}
	return snap
}

// dateActive reports whether now falls inside the promo window. A nil bound
// leaves that side open.
func dateActive(start, end *time.Time, now time.Time) bool {
	if start != nil && now.Before(*start) {
		return false
	}
	if end != nil && now.After(*end) {
		return false
	}
	return true
}

func clamp(v, lo, hi int64) int64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
