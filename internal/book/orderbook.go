package book

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/latticefi/matching-engine/internal/apperrors"
	"github.com/latticefi/matching-engine/internal/model"
)

// location records where a resting order lives so CancelOrder and
// self-trade removal can find its level without scanning both ladders.
type location struct {
	side  model.Side
	price decimal.Decimal
}

// CancelledMaker describes a resting order removed by self-trade
// prevention's cancel-maker policy. Only the fields the book actually
// tracks for a resting order are available; the caller does not have
// (and does not need) the maker's full Order record to emit a
// cancellation event.
type CancelledMaker struct {
	OrderID           uuid.UUID
	UserID            uuid.UUID
	Symbol            model.Symbol
	Price             decimal.Decimal
	RemainingQuantity decimal.Decimal
	Reason            model.CancelReason
}

// OrderBook holds one symbol's bid and ask ladders plus the order-id
// location index, and implements the price-time-priority matching
// algorithm described in spec.md §4. A single OrderBook is only ever
// driven by one goroutine at a time (the symbol's engine worker), but the
// locking discipline below is kept anyway so depth/BBO reads from other
// goroutines stay safe.
//
// Grounded on internal/engine/orderbook.go's bid/ask BTreeG pair in the
// teacher, generalized from its single-type Match loop to the full
// aggression / self-trade / TIF algorithm in spec.md §4.2, whose shape
// follows original_source's orderbook.rs::match_order.
type OrderBook struct {
	symbol model.Symbol

	bidsMu sync.RWMutex
	bids   *ladder

	asksMu sync.RWMutex
	asks   *ladder

	indexMu sync.RWMutex
	index   map[uuid.UUID]location

	sequence     uint64
	tradeCounter uint64
	bookSequence uint64
}

// NewOrderBook creates an empty book for symbol.
func NewOrderBook(symbol model.Symbol) *OrderBook {
	return &OrderBook{
		symbol: symbol,
		bids:   newBidLadder(),
		asks:   newAskLadder(),
		index:  make(map[uuid.UUID]location),
	}
}

func (b *OrderBook) Symbol() model.Symbol {
	return b.symbol
}

// BookSequence returns the current book-version counter, which advances
// on every trade, resting-order insertion, or resting-order removal.
func (b *OrderBook) BookSequence() uint64 {
	return atomic.LoadUint64(&b.bookSequence)
}

// lockAll acquires all three write locks in the fixed order bids → asks →
// index (spec.md §5) and returns a function that releases them in
// reverse order.
func (b *OrderBook) lockAll() func() {
	b.bidsMu.Lock()
	b.asksMu.Lock()
	b.indexMu.Lock()
	return func() {
		b.indexMu.Unlock()
		b.asksMu.Unlock()
		b.bidsMu.Unlock()
	}
}

func (b *OrderBook) opposingLadder(side model.Side) *ladder {
	if side == model.Buy {
		return b.asks
	}
	return b.bids
}

func (b *OrderBook) restingLadder(side model.Side) *ladder {
	if side == model.Buy {
		return b.bids
	}
	return b.asks
}

// crossable reports whether a resting level at price may trade against a
// taker order of the given type/side/limit.
func crossable(o *model.Order, price decimal.Decimal) bool {
	if o.OrderType == model.Market {
		return true
	}
	if o.Side == model.Buy {
		return price.LessThanOrEqual(*o.Price)
	}
	return price.GreaterThanOrEqual(*o.Price)
}

// crossableLiquidity sums the quantity available to a taker order across
// crossable opposing levels, stopping as soon as it covers the order's
// full quantity or the opposing ladder runs out of crossable levels.
// Resting orders of the taker's own user are not counted, since matching
// removes them by self-trade prevention instead of filling against them.
// Used only for the fill-or-kill pre-scan; it never mutates the book.
func (b *OrderBook) crossableLiquidity(o *model.Order) decimal.Decimal {
	opposing := b.opposingLadder(o.Side)
	total := decimal.Zero
	opposing.tree.Scan(func(lvl *Level) bool {
		if !crossable(o, lvl.Price) {
			return false
		}
		for _, e := range lvl.entries {
			if e.userID != o.UserID {
				total = total.Add(e.remainingQuantity)
			}
		}
		return total.LessThan(o.Quantity)
	})
	return total
}

// ProcessOrder runs the full order-entry algorithm: sequencing, the
// fill-or-kill pre-scan, the aggression/matching loop, residual handling
// per time-in-force, and resting. It returns the (mutated) order, any
// trades produced, and any resting orders removed by self-trade
// prevention.
func (b *OrderBook) ProcessOrder(o *model.Order) (*model.Order, []*model.Trade, []CancelledMaker, error) {
	unlock := b.lockAll()
	defer unlock()

	o.Sequence = atomic.AddUint64(&b.sequence, 1)
	now := time.Now().UTC()
	if o.CreatedAt.IsZero() {
		o.CreatedAt = now
	}
	o.UpdatedAt = now
	o.Status = model.Open

	if o.TimeInForce == model.FOK {
		if b.crossableLiquidity(o).LessThan(o.Quantity) {
			o.Status = model.Rejected
			o.Reason = model.ReasonFillOrKillFailed
			return o, nil, nil, apperrors.New(apperrors.KindFillOrKillFailed,
				"insufficient crossable liquidity to fill order completely")
		}
	}

	trades, cancelledMakers := b.match(o)
	setAvgFillPrice(o, trades)

	restResidual := false
	switch {
	case o.RemainingQuantity.IsZero():
		o.Status = model.Filled
	case o.RemainingQuantity.LessThan(o.Quantity):
		restResidual = b.shouldRest(o)
		if restResidual {
			o.Status = model.PartiallyFilled
		} else {
			o.Status = model.Cancelled
			o.Reason = model.ReasonNoLiquidity
		}
	default:
		restResidual = b.shouldRest(o)
		if !restResidual {
			o.Status = model.Cancelled
			o.Reason = model.ReasonNoLiquidity
		}
	}

	if restResidual {
		b.addToBook(o)
	}

	if len(trades) > 0 || restResidual || len(cancelledMakers) > 0 {
		atomic.AddUint64(&b.bookSequence, 1)
	}

	return o, trades, cancelledMakers, nil
}

// shouldRest reports whether an order's unfilled residual should rest on
// the book, per the resting-policy table in spec.md §4.2: only
// GTC/GTD limit orders rest; market orders and IOC/FOK never do.
func (b *OrderBook) shouldRest(o *model.Order) bool {
	if o.RemainingQuantity.IsZero() {
		return false
	}
	if !o.OrderType.HasLimitPrice() {
		return false
	}
	switch o.TimeInForce {
	case model.GTC, model.GTD:
		return true
	default:
		return false
	}
}

// match runs the aggression loop: walk the opposing ladder from the best
// price outward, filling against resting orders in time priority at each
// crossable level, removing self-trades via the cancel-maker policy.
func (b *OrderBook) match(o *model.Order) ([]*model.Trade, []CancelledMaker) {
	var trades []*model.Trade
	var cancelledMakers []CancelledMaker

	opposing := b.opposingLadder(o.Side)

	for o.RemainingQuantity.GreaterThan(decimal.Zero) {
		lvl, ok := opposing.best()
		if !ok || !crossable(o, lvl.Price) {
			break
		}

		for o.RemainingQuantity.GreaterThan(decimal.Zero) {
			maker := lvl.peekHead()
			if maker == nil {
				break
			}

			if maker.userID == o.UserID {
				popped := lvl.popHead()
				b.removeFromIndex(popped.orderID)
				cancelledMakers = append(cancelledMakers, CancelledMaker{
					OrderID:           popped.orderID,
					UserID:            popped.userID,
					Symbol:            b.symbol,
					Price:             popped.price,
					RemainingQuantity: popped.remainingQuantity,
					Reason:            model.ReasonSelfTradePrevention,
				})
				continue
			}

			fillQty := decimal.Min(o.RemainingQuantity, maker.remainingQuantity)
			price := lvl.Price

			trade := &model.Trade{
				ID:            uuid.New(),
				TradeID:       atomic.AddUint64(&b.tradeCounter, 1),
				Symbol:        b.symbol,
				MakerOrderID:  maker.orderID,
				MakerUserID:   maker.userID,
				TakerOrderID:  o.ID,
				TakerUserID:   o.UserID,
				Price:         price,
				Quantity:      fillQty,
				QuoteQuantity: fillQty.Mul(price),
				TakerSide:     o.Side,
				ExecutedAt:    time.Now().UTC(),
			}
			trades = append(trades, trade)

			o.RemainingQuantity = o.RemainingQuantity.Sub(fillQty)
			o.FilledQuantity = o.FilledQuantity.Add(fillQty)

			if fillQty.Equal(maker.remainingQuantity) {
				popped := lvl.popHead()
				b.removeFromIndex(popped.orderID)
			} else {
				maker.remainingQuantity = maker.remainingQuantity.Sub(fillQty)
				lvl.TotalQuantity = lvl.TotalQuantity.Sub(fillQty)
			}
		}

		if lvl.isEmpty() {
			opposing.remove(lvl.Price)
		}
	}

	return trades, cancelledMakers
}

// setAvgFillPrice computes the quantity-weighted average execution price
// across trades and assigns it to o, leaving it nil if no trade occurred.
func setAvgFillPrice(o *model.Order, trades []*model.Trade) {
	if len(trades) == 0 {
		return
	}
	value := decimal.Zero
	qty := decimal.Zero
	for _, t := range trades {
		value = value.Add(t.Price.Mul(t.Quantity))
		qty = qty.Add(t.Quantity)
	}
	avg := value.Div(qty)
	o.AvgFillPrice = &avg
}

// addToBook inserts o's residual as a resting entry and records it in the
// location index. Caller must hold all three write locks.
func (b *OrderBook) addToBook(o *model.Order) {
	e := &entry{
		orderID:           o.ID,
		userID:            o.UserID,
		price:             *o.Price,
		remainingQuantity: o.RemainingQuantity,
		sequence:          o.Sequence,
	}
	lad := b.restingLadder(o.Side)
	lvl := lad.getOrCreate(*o.Price)
	lvl.add(e)
	b.index[o.ID] = location{side: o.Side, price: *o.Price}
}

func (b *OrderBook) removeFromIndex(orderID uuid.UUID) {
	delete(b.index, orderID)
}

// CancelOrder removes a resting order by id, reporting whether it was
// found on this book.
func (b *OrderBook) CancelOrder(orderID uuid.UUID) bool {
	unlock := b.lockAll()
	defer unlock()

	loc, ok := b.index[orderID]
	if !ok {
		return false
	}
	delete(b.index, orderID)

	lad := b.restingLadder(loc.side)
	lvl, ok := lad.get(loc.price)
	if !ok {
		return true
	}
	lvl.removeByID(orderID)
	if lvl.isEmpty() {
		lad.remove(loc.price)
	}

	atomic.AddUint64(&b.bookSequence, 1)
	return true
}

// GetDepth returns up to n price levels per side, best price first.
func (b *OrderBook) GetDepth(n int) (bids, asks []model.PriceLevelView) {
	b.bidsMu.RLock()
	bidLevels := b.bids.levels(n)
	b.bidsMu.RUnlock()

	b.asksMu.RLock()
	askLevels := b.asks.levels(n)
	b.asksMu.RUnlock()

	bids = make([]model.PriceLevelView, len(bidLevels))
	for i, lvl := range bidLevels {
		bids[i] = lvl.View()
	}
	asks = make([]model.PriceLevelView, len(askLevels))
	for i, lvl := range askLevels {
		asks[i] = lvl.View()
	}
	return bids, asks
}

// GetBBO returns the best bid and best ask, if present.
func (b *OrderBook) GetBBO() (bestBid, bestAsk *model.PriceLevelView) {
	b.bidsMu.RLock()
	if lvl, ok := b.bids.best(); ok {
		v := lvl.View()
		bestBid = &v
	}
	b.bidsMu.RUnlock()

	b.asksMu.RLock()
	if lvl, ok := b.asks.best(); ok {
		v := lvl.View()
		bestAsk = &v
	}
	b.asksMu.RUnlock()

	return bestBid, bestAsk
}

// RestingOrderCount returns the number of orders currently resting on
// this book, used to enforce a per-symbol capacity ceiling at intake.
func (b *OrderBook) RestingOrderCount() int {
	b.indexMu.RLock()
	defer b.indexMu.RUnlock()
	return len(b.index)
}

// DepthCount returns the number of distinct price levels on each side,
// used by the depth gauges in internal/metrics.
func (b *OrderBook) DepthCount() (bidLevels, askLevels int) {
	b.bidsMu.RLock()
	bidLevels = b.bids.count()
	b.bidsMu.RUnlock()

	b.asksMu.RLock()
	askLevels = b.asks.count()
	b.asksMu.RUnlock()

	return bidLevels, askLevels
}
