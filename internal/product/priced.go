package product

import (
	"time"

	"github.com/Badr070118/lupeti-backend/internal/pricing"
)

func price(p Product, now time.Time) Priced {
	return Priced{Product: p, Pricing: pricing.Compute(p.PricingInput(), now)}
}

func priceAll(products []Product, now time.Time) []Priced {
	out := make([]Priced, 0, len(products))
	for _, p := range products {
		out = append(out, price(p, now))
	}
	return out
}
