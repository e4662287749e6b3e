package book

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/latticefi/matching-engine/internal/model"
)

// entry is one resting order sitting in a Level's FIFO queue.
type entry struct {
	orderID           uuid.UUID
	userID            uuid.UUID
	price             decimal.Decimal
	remainingQuantity decimal.Decimal
	sequence          uint64
}

// Level is the ordered queue of resting orders at a single price, plus a
// cached running total. Time priority is strictly the insertion order of
// add: levels are expected to stay short, so cancellation scans linearly
// rather than maintaining a secondary index (spec §4.1).
type Level struct {
	Price         decimal.Decimal
	entries       []*entry
	TotalQuantity decimal.Decimal
}

func newLevel(price decimal.Decimal) *Level {
	return &Level{Price: price, TotalQuantity: decimal.Zero}
}

func (l *Level) add(e *entry) {
	l.entries = append(l.entries, e)
	l.TotalQuantity = l.TotalQuantity.Add(e.remainingQuantity)
}

func (l *Level) peekHead() *entry {
	if len(l.entries) == 0 {
		return nil
	}
	return l.entries[0]
}

func (l *Level) popHead() *entry {
	if len(l.entries) == 0 {
		return nil
	}
	e := l.entries[0]
	l.entries = l.entries[1:]
	l.TotalQuantity = l.TotalQuantity.Sub(e.remainingQuantity)
	return e
}

// removeByID linearly scans for an order and removes it, reporting whether
// it was found.
func (l *Level) removeByID(orderID uuid.UUID) (*entry, bool) {
	for i, e := range l.entries {
		if e.orderID == orderID {
			l.entries = append(l.entries[:i], l.entries[i+1:]...)
			l.TotalQuantity = l.TotalQuantity.Sub(e.remainingQuantity)
			return e, true
		}
	}
	return nil, false
}

func (l *Level) isEmpty() bool {
	return len(l.entries) == 0
}

func (l *Level) orderCount() int {
	return len(l.entries)
}

// View returns an immutable snapshot of this level for depth reads.
func (l *Level) View() model.PriceLevelView {
	return model.PriceLevelView{
		Price:      l.Price,
		Quantity:   l.TotalQuantity,
		OrderCount: l.orderCount(),
	}
}
