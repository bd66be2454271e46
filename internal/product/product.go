package product

import (
	"time"

	"github.com/Badr070118/lupeti-backend/internal/pricing"
)

// Product represents a catalog row in the `product` table. Prices are in
// cents; the promo fields are nullable and only read by the pricing engine.
// JSON tags follow the camelCase convention used elsewhere in the project.
type Product struct {
	ID                 int        `json:"productId"`
	Name               string     `json:"productName"`
	NameEn             *string    `json:"productNameEn,omitempty"`
	Category           *string    `json:"category,omitempty"`
	Description        string     `json:"productDesc"`
	DescriptionEn      *string    `json:"productDescEn,omitempty"`
	Pic                *string    `json:"productPic,omitempty"`
	PriceCents         int64      `json:"priceCents"`
	OriginalPriceCents *int64     `json:"originalPriceCents,omitempty"`
	DiscountType       *string    `json:"discountType,omitempty"`
	DiscountValue      *int64     `json:"discountValue,omitempty"`
	PromoStartAt       *time.Time `json:"promoStartAt,omitempty"`
	PromoEndAt         *time.Time `json:"promoEndAt,omitempty"`
	Stock              int        `json:"stock"`
	CreatedAt          *time.Time `json:"createdAt,omitempty"`
	UpdatedAt          *time.Time `json:"updatedAt,omitempty"`
}

// PricingInput maps the catalog row onto the pricing engine's contract.
func (p Product) PricingInput() pricing.Input {
	in := pricing.Input{
		PriceCents:         p.PriceCents,
		OriginalPriceCents: p.OriginalPriceCents,
		DiscountType:       pricing.DiscountNone,
		DiscountValue:      p.DiscountValue,
		PromoStartAt:       p.PromoStartAt,
		PromoEndAt:         p.PromoEndAt,
	}
	if p.DiscountType != nil {
		in.DiscountType = pricing.DiscountType(*p.DiscountType)
	}
	return in
}

// Priced is the storefront shape: the catalog row plus its computed price
// snapshot for the evaluation instant.
type Priced struct {
	Product
	Pricing pricing.Snapshot `json:"pricing"`
}
