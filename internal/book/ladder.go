package book

import (
	"github.com/shopspring/decimal"
	"github.com/tidwall/btree"
)

// ladder is one side of the book: a price-keyed collection of Levels,
// ordered by priority (best price first for the side's Less function).
// Grounded on the teacher's use of tidwall/btree.BTreeG for bids/asks in
// internal/engine/orderbook.go.
type ladder struct {
	tree *btree.BTreeG[*Level]
}

// newBidLadder orders levels highest-price-first.
func newBidLadder() *ladder {
	return &ladder{tree: btree.NewBTreeG(func(a, b *Level) bool {
		return a.Price.GreaterThan(b.Price)
	})}
}

// newAskLadder orders levels lowest-price-first.
func newAskLadder() *ladder {
	return &ladder{tree: btree.NewBTreeG(func(a, b *Level) bool {
		return a.Price.LessThan(b.Price)
	})}
}

// get returns the level at price, if any.
func (l *ladder) get(price decimal.Decimal) (*Level, bool) {
	return l.tree.Get(&Level{Price: price})
}

// getOrCreate returns the level at price, creating and inserting an empty
// one if it does not yet exist.
func (l *ladder) getOrCreate(price decimal.Decimal) *Level {
	if lvl, ok := l.tree.Get(&Level{Price: price}); ok {
		return lvl
	}
	lvl := newLevel(price)
	l.tree.Set(lvl)
	return lvl
}

// remove deletes the level at price entirely.
func (l *ladder) remove(price decimal.Decimal) {
	l.tree.Delete(&Level{Price: price})
}

// best returns the top-of-book level for this side, if any.
func (l *ladder) best() (*Level, bool) {
	return l.tree.Min()
}

// levels returns up to n levels in priority order, best first.
func (l *ladder) levels(n int) []*Level {
	if n <= 0 {
		return nil
	}
	out := make([]*Level, 0, n)
	l.tree.Scan(func(lvl *Level) bool {
		out = append(out, lvl)
		return len(out) < n
	})
	return out
}

// count returns the number of distinct price levels on this side.
func (l *ladder) count() int {
	return l.tree.Len()
}
