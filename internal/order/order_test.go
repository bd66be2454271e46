package order

import "testing"

func TestStatusTransitions(t *testing.T) {
	cases := []struct {
		from, to Status
		ok       bool
	}{
		{StatusPendingPayment, StatusPaid, true},
		{StatusPendingPayment, StatusCancelled, true},
		{StatusPendingPayment, StatusFailed, true},
		{StatusPaid, StatusShipped, true},
		{StatusShipped, StatusDelivered, true},

		{StatusPendingPayment, StatusShipped, false},
		{StatusPendingPayment, StatusDelivered, false},
		{StatusPaid, StatusPendingPayment, false},
		{StatusPaid, StatusCancelled, false},
		{StatusDelivered, StatusPaid, false},
		{StatusCancelled, StatusPaid, false},
		{StatusFailed, StatusPaid, false},
		{StatusFailed, StatusPendingPayment, false},
	}
	for _, tc := range cases {
		if got := tc.from.CanTransitionTo(tc.to); got != tc.ok {
			t.Errorf("%s -> %s: expected %v, got %v", tc.from, tc.to, tc.ok, got)
		}
	}
}

func TestStatusTerminal(t *testing.T) {
	terminal := []Status{StatusDelivered, StatusCancelled, StatusFailed}
	for _, s := range terminal {
		if !s.Terminal() {
			t.Errorf("expected %s to be terminal", s)
		}
	}
	open := []Status{StatusPendingPayment, StatusPaid, StatusShipped}
	for _, s := range open {
		if s.Terminal() {
			t.Errorf("expected %s not to be terminal", s)
		}
	}
}

func TestLineSubtotal(t *testing.T) {
	l := Line{UnitPriceCents: 1200, Quantity: 2}
	if l.SubtotalCents() != 2400 {
		t.Fatalf("expected 2400, got %d", l.SubtotalCents())
	}
}
