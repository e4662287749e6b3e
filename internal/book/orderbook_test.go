package book

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/latticefi/matching-engine/internal/apperrors"
	"github.com/latticefi/matching-engine/internal/model"
)

const testSymbol model.Symbol = "ETH-USDT"

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

// newOrder builds a ready-to-submit order; RemainingQuantity starts equal
// to Quantity, matching the contract the validator establishes before
// handing an order to ProcessOrder.
func newOrder(userID uuid.UUID, side model.Side, orderType model.OrderType, tif model.TimeInForce, price, qty string) *model.Order {
	o := &model.Order{
		ID:                uuid.New(),
		UserID:            userID,
		Symbol:            testSymbol,
		Side:              side,
		OrderType:         orderType,
		TimeInForce:       tif,
		Quantity:          dec(qty),
		RemainingQuantity: dec(qty),
	}
	if orderType.HasLimitPrice() {
		o.Price = decPtr(price)
	}
	return o
}

func newLimitOrder(userID uuid.UUID, side model.Side, price, qty string) *model.Order {
	return newOrder(userID, side, model.Limit, model.GTC, price, qty)
}

func TestProcessOrder_RestsAndOrdersLevelsBestFirst(t *testing.T) {
	b := NewOrderBook(testSymbol)
	alice, bob := uuid.New(), uuid.New()

	_, _, _, err := b.ProcessOrder(newLimitOrder(alice, model.Buy, "99.00", "1.0"))
	require.NoError(t, err)
	_, _, _, err = b.ProcessOrder(newLimitOrder(bob, model.Buy, "100.00", "1.0"))
	require.NoError(t, err)

	bids, asks := b.GetDepth(10)
	assert.Empty(t, asks)
	require.Len(t, bids, 2)
	assert.True(t, bids[0].Price.Equal(dec("100.00")), "best bid should be highest price first")
	assert.True(t, bids[1].Price.Equal(dec("99.00")))
}

func TestProcessOrder_PartialFillAgainstSingleMaker(t *testing.T) {
	b := NewOrderBook(testSymbol)
	maker, taker := uuid.New(), uuid.New()

	_, _, _, err := b.ProcessOrder(newLimitOrder(maker, model.Sell, "100.00", "5.0"))
	require.NoError(t, err)

	taken, trades, cancelled, err := b.ProcessOrder(newLimitOrder(taker, model.Buy, "100.00", "2.0"))
	require.NoError(t, err)
	assert.Empty(t, cancelled)
	require.Len(t, trades, 1)
	assert.True(t, trades[0].Quantity.Equal(dec("2.0")))
	assert.True(t, trades[0].Price.Equal(dec("100.00")))
	assert.Equal(t, model.Filled, taken.Status)

	_, asks := b.GetDepth(10)
	require.Len(t, asks, 1)
	assert.True(t, asks[0].Quantity.Equal(dec("3.0")), "maker residual should shrink, not disappear")
}

func TestProcessOrder_SweepsMultipleLevelsInPriceOrder(t *testing.T) {
	b := NewOrderBook(testSymbol)
	maker := uuid.New()

	_, _, _, err := b.ProcessOrder(newLimitOrder(maker, model.Sell, "100.00", "1.0"))
	require.NoError(t, err)
	_, _, _, err = b.ProcessOrder(newLimitOrder(maker, model.Sell, "101.00", "1.0"))
	require.NoError(t, err)

	taker := uuid.New()
	taken, trades, _, err := b.ProcessOrder(newLimitOrder(taker, model.Buy, "101.00", "1.5"))
	require.NoError(t, err)
	require.Len(t, trades, 2)
	assert.True(t, trades[0].Price.Equal(dec("100.00")), "best price fills first")
	assert.True(t, trades[0].Quantity.Equal(dec("1.0")))
	assert.True(t, trades[1].Price.Equal(dec("101.00")))
	assert.True(t, trades[1].Quantity.Equal(dec("0.5")))
	assert.Equal(t, model.Filled, taken.Status)

	_, asks := b.GetDepth(10)
	require.Len(t, asks, 1)
	assert.True(t, asks[0].Quantity.Equal(dec("0.5")))
}

func TestProcessOrder_LimitGTCRestsResidualWhenNoMoreLiquidity(t *testing.T) {
	b := NewOrderBook(testSymbol)
	maker, taker := uuid.New(), uuid.New()

	_, _, _, err := b.ProcessOrder(newLimitOrder(maker, model.Sell, "100.00", "1.0"))
	require.NoError(t, err)

	taken, trades, _, err := b.ProcessOrder(newLimitOrder(taker, model.Buy, "100.00", "3.0"))
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.Equal(t, model.PartiallyFilled, taken.Status)
	assert.True(t, taken.RemainingQuantity.Equal(dec("2.0")))

	bids, _ := b.GetDepth(10)
	require.Len(t, bids, 1)
	assert.True(t, bids[0].Quantity.Equal(dec("2.0")), "unfilled GTC residual should rest")
}

func TestProcessOrder_MarketOrderResidualCancelledNoLiquidity(t *testing.T) {
	b := NewOrderBook(testSymbol)
	maker, taker := uuid.New(), uuid.New()

	_, _, _, err := b.ProcessOrder(newLimitOrder(maker, model.Sell, "100.00", "1.0"))
	require.NoError(t, err)

	market := newOrder(taker, model.Buy, model.Market, model.GTC, "", "3.0")
	taken, trades, _, err := b.ProcessOrder(market)
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.Equal(t, model.Cancelled, taken.Status)
	assert.Equal(t, model.ReasonNoLiquidity, taken.Reason)

	bids, asks := b.GetDepth(10)
	assert.Empty(t, bids, "market order residual must never rest")
	assert.Empty(t, asks)
}

func TestProcessOrder_IOCResidualCancelledPartialFillsKept(t *testing.T) {
	b := NewOrderBook(testSymbol)
	maker, taker := uuid.New(), uuid.New()

	_, _, _, err := b.ProcessOrder(newLimitOrder(maker, model.Sell, "100.00", "1.0"))
	require.NoError(t, err)

	ioc := newOrder(taker, model.Buy, model.Limit, model.IOC, "100.00", "3.0")
	taken, trades, _, err := b.ProcessOrder(ioc)
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.True(t, taken.FilledQuantity.Equal(dec("1.0")))
	assert.Equal(t, model.Cancelled, taken.Status)

	bids, _ := b.GetDepth(10)
	assert.Empty(t, bids, "IOC never rests its residual")
}

func TestProcessOrder_FillOrKillRejectsWithoutSideEffectsWhenInsufficient(t *testing.T) {
	b := NewOrderBook(testSymbol)
	maker, taker := uuid.New(), uuid.New()

	_, _, _, err := b.ProcessOrder(newLimitOrder(maker, model.Sell, "100.00", "1.0"))
	require.NoError(t, err)

	fok := newOrder(taker, model.Buy, model.Limit, model.FOK, "100.00", "5.0")
	taken, trades, _, err := b.ProcessOrder(fok)
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.KindFillOrKillFailed))
	assert.Empty(t, trades)
	assert.Equal(t, model.Rejected, taken.Status)
	assert.True(t, taken.RemainingQuantity.Equal(dec("5.0")), "rejected FOK must not mutate the order")

	_, asks := b.GetDepth(10)
	require.Len(t, asks, 1)
	assert.True(t, asks[0].Quantity.Equal(dec("1.0")), "book must be untouched by a failed FOK pre-scan")
}

func TestProcessOrder_FillOrKillFillsCompletelyWhenSufficient(t *testing.T) {
	b := NewOrderBook(testSymbol)
	maker := uuid.New()

	_, _, _, err := b.ProcessOrder(newLimitOrder(maker, model.Sell, "100.00", "2.0"))
	require.NoError(t, err)
	_, _, _, err = b.ProcessOrder(newLimitOrder(maker, model.Sell, "101.00", "3.0"))
	require.NoError(t, err)

	taker := uuid.New()
	fok := newOrder(taker, model.Buy, model.Limit, model.FOK, "101.00", "4.0")
	taken, trades, _, err := b.ProcessOrder(fok)
	require.NoError(t, err)
	require.Len(t, trades, 2)
	assert.Equal(t, model.Filled, taken.Status)
	assert.True(t, taken.RemainingQuantity.IsZero())
}

func TestProcessOrder_SelfTradePreventionCancelsMaker(t *testing.T) {
	b := NewOrderBook(testSymbol)
	sameUser := uuid.New()

	_, _, _, err := b.ProcessOrder(newLimitOrder(sameUser, model.Sell, "100.00", "1.0"))
	require.NoError(t, err)

	taken, trades, cancelled, err := b.ProcessOrder(newLimitOrder(sameUser, model.Buy, "100.00", "1.0"))
	require.NoError(t, err)
	assert.Empty(t, trades, "self-trade must never produce a trade")
	require.Len(t, cancelled, 1)
	assert.Equal(t, model.ReasonSelfTradePrevention, cancelled[0].Reason)

	assert.Equal(t, model.Open, taken.Status, "taker rests untouched since its only counterparty was itself")
	bids, asks := b.GetDepth(10)
	assert.Empty(t, asks, "the resting maker must be removed from the book")
	require.Len(t, bids, 1)
}

func TestProcessOrder_AvgFillPriceIsQuantityWeighted(t *testing.T) {
	b := NewOrderBook(testSymbol)
	maker := uuid.New()

	_, _, _, err := b.ProcessOrder(newLimitOrder(maker, model.Sell, "100.00", "1.0"))
	require.NoError(t, err)
	_, _, _, err = b.ProcessOrder(newLimitOrder(maker, model.Sell, "102.00", "1.0"))
	require.NoError(t, err)

	taker := uuid.New()
	taken, _, _, err := b.ProcessOrder(newLimitOrder(taker, model.Buy, "102.00", "2.0"))
	require.NoError(t, err)
	require.NotNil(t, taken.AvgFillPrice)
	assert.True(t, taken.AvgFillPrice.Equal(dec("101.00")))
}

func TestCancelOrder_RemovesRestingOrderAndFreesPriceLevel(t *testing.T) {
	b := NewOrderBook(testSymbol)
	maker := uuid.New()

	resting, _, _, err := b.ProcessOrder(newLimitOrder(maker, model.Buy, "99.00", "1.0"))
	require.NoError(t, err)

	ok := b.CancelOrder(resting.ID)
	assert.True(t, ok)

	bids, _ := b.GetDepth(10)
	assert.Empty(t, bids, "cancelling the only order at a level must drop the level")

	assert.False(t, b.CancelOrder(resting.ID), "cancelling twice reports not found")
	assert.False(t, b.CancelOrder(uuid.New()))
}

func TestBookSequence_AdvancesOnTradeRestAndCancel(t *testing.T) {
	b := NewOrderBook(testSymbol)
	maker, taker := uuid.New(), uuid.New()

	seq0 := b.BookSequence()

	resting, _, _, err := b.ProcessOrder(newLimitOrder(maker, model.Sell, "100.00", "2.0"))
	require.NoError(t, err)
	seq1 := b.BookSequence()
	assert.Greater(t, seq1, seq0, "resting a new order bumps the book version")

	_, _, _, err = b.ProcessOrder(newLimitOrder(taker, model.Buy, "100.00", "1.0"))
	require.NoError(t, err)
	seq2 := b.BookSequence()
	assert.Greater(t, seq2, seq1, "a trade bumps the book version")

	b.CancelOrder(resting.ID)
	seq3 := b.BookSequence()
	assert.Greater(t, seq3, seq2, "a cancel bumps the book version")
}

func TestBookSequence_MonotonicOrderSequenceAssignment(t *testing.T) {
	b := NewOrderBook(testSymbol)
	user := uuid.New()

	first, _, _, err := b.ProcessOrder(newLimitOrder(user, model.Buy, "99.00", "1.0"))
	require.NoError(t, err)
	second, _, _, err := b.ProcessOrder(newLimitOrder(user, model.Buy, "98.00", "1.0"))
	require.NoError(t, err)

	assert.Less(t, first.Sequence, second.Sequence)
}
