package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Trade is an immutable execution record. Once constructed it is never
// mutated; see spec §3 lifecycle.
type Trade struct {
	ID     uuid.UUID
	TradeID uint64
	Symbol  Symbol

	MakerOrderID uuid.UUID
	MakerUserID  uuid.UUID
	TakerOrderID uuid.UUID
	TakerUserID  uuid.UUID

	Price         decimal.Decimal
	Quantity      decimal.Decimal
	QuoteQuantity decimal.Decimal
	TakerSide     Side

	ExecutedAt time.Time
}

// PriceLevelView is an immutable snapshot of one price level, returned from
// depth reads. Distinct from the internal FIFO queue in internal/book.
type PriceLevelView struct {
	Price      decimal.Decimal
	Quantity   decimal.Decimal
	OrderCount int
}
