package order

import (
	"errors"
	"time"
)

// Status is the order lifecycle state. PENDING_PAYMENT is the only initial
// state; DELIVERED, CANCELLED and FAILED are terminal.
type Status string

const (
	StatusPendingPayment Status = "PENDING_PAYMENT"
	StatusPaid           Status = "PAID"
	StatusShipped        Status = "SHIPPED"
	StatusDelivered      Status = "DELIVERED"
	StatusCancelled      Status = "CANCELLED"
	StatusFailed         Status = "FAILED"
)

var (
	ErrNotFound           = errors.New("order not found")
	ErrInvalidTransition  = errors.New("invalid order status transition")
	ErrEmptyCart          = errors.New("cart is empty")
	ErrProductUnavailable = errors.New("product unavailable")
)

// Terminal reports whether no further transition is permitted from s.
func (s Status) Terminal() bool {
	switch s {
	case StatusDelivered, StatusCancelled, StatusFailed:
		return true
	}
	return false
}

// CanTransitionTo encodes the transition table:
// PENDING_PAYMENT -> PAID | CANCELLED | FAILED, PAID -> SHIPPED,
// SHIPPED -> DELIVERED. Everything else is invalid.
func (s Status) CanTransitionTo(next Status) bool {
	switch s {
	case StatusPendingPayment:
		return next == StatusPaid || next == StatusCancelled || next == StatusFailed
	case StatusPaid:
		return next == StatusShipped
	case StatusShipped:
		return next == StatusDelivered
	}
	return false
}

// Line is an immutable copy of a cart entry taken at order creation. The
// unit price is locked then and never recomputed, so later catalog changes
// cannot alter an existing order's total.
type Line struct {
	ProductID      int    `json:"productId"`
	TitleSnapshot  string `json:"titleSnapshot"`
	UnitPriceCents int64  `json:"unitPriceCents"`
	Quantity       int    `json:"quantity"`
}

func (l Line) SubtotalCents() int64 {
	return l.UnitPriceCents * int64(l.Quantity)
}

// Order is the aggregate root. It is created once by checkout, mutated only
// through the state machine and never physically deleted.
type Order struct {
	ID         int       `json:"orderId"`
	UserID     int       `json:"userId"`
	Status     Status    `json:"status"`
	Lines      []Line    `json:"lines"`
	TotalCents int64     `json:"totalCents"`
	Currency   string    `json:"currency"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}
