package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Order is the canonical in-engine representation of a resting or
// fully-processed order. All monetary fields use exact decimal
// arithmetic; see spec §3 for the full invariant list.
type Order struct {
	ID            uuid.UUID
	ClientOrderID string
	UserID        uuid.UUID
	Symbol        Symbol
	Side          Side
	OrderType     OrderType
	TimeInForce   TimeInForce
	Status        OrderStatus

	// Price is present iff OrderType is Limit or StopLimit.
	Price *decimal.Decimal
	// StopPrice is present iff OrderType has a Stop prefix.
	StopPrice *decimal.Decimal
	// ExpiresAt is present iff TimeInForce is GTD; stored for an external
	// scheduler to act on (spec Open Question (b)).
	ExpiresAt *time.Time

	Quantity          decimal.Decimal
	FilledQuantity    decimal.Decimal
	RemainingQuantity decimal.Decimal
	// AvgFillPrice is present iff FilledQuantity > 0.
	AvgFillPrice *decimal.Decimal

	Sequence uint64

	// Reason documents why a terminal Cancelled/Rejected status was reached;
	// empty for normal fills and for orders still resting.
	Reason CancelReason

	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsBuy reports whether this order is on the buy side.
func (o *Order) IsBuy() bool {
	return o.Side == Buy
}

// CanMatch reports whether this order may still participate in matching.
func (o *Order) CanMatch() bool {
	return o.Status == Open || o.Status == PartiallyFilled
}

// IsComplete reports whether this order has reached a terminal status.
func (o *Order) IsComplete() bool {
	return o.Status.Terminal()
}

// Clone returns a deep-enough copy safe to hand to a caller outside the
// book's critical section (pointer fields are copied, not shared).
func (o *Order) Clone() *Order {
	c := *o
	if o.Price != nil {
		p := *o.Price
		c.Price = &p
	}
	if o.StopPrice != nil {
		p := *o.StopPrice
		c.StopPrice = &p
	}
	if o.AvgFillPrice != nil {
		p := *o.AvgFillPrice
		c.AvgFillPrice = &p
	}
	if o.ExpiresAt != nil {
		t := *o.ExpiresAt
		c.ExpiresAt = &t
	}
	return &c
}
