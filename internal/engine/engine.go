// Package engine multiplexes order-entry and cancellation commands
// across per-symbol order books, each driven by its own supervised
// worker goroutine, and publishes the resulting domain events. Grounded
// on the teacher's internal/worker.go WorkerPool (tomb supervision,
// bounded channel) generalized from a fixed pool of connection handlers
// to one dedicated worker per order book, and on the original
// engine.rs::MatchingEngine for the command/event/metrics plumbing shape.
package engine

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	tomb "gopkg.in/tomb.v2"

	"github.com/latticefi/matching-engine/internal/apperrors"
	"github.com/latticefi/matching-engine/internal/events"
	"github.com/latticefi/matching-engine/internal/metrics"
	"github.com/latticefi/matching-engine/internal/model"
)

const eventSource = "matching-engine"

// Engine owns one OrderBook (via its worker) per symbol and is the only
// entry point callers use to submit or cancel orders.
type Engine struct {
	workers map[model.Symbol]*symbolWorker
	symbols []model.Symbol

	publisher *events.Publisher
	metrics   *metrics.Metrics

	t *tomb.Tomb
}

// New constructs an Engine with one book per symbol. commandBufferSize
// bounds each symbol's command channel; maxOrdersPerSymbol bounds how
// many resting orders a single book may hold.
func New(symbols []model.Symbol, publisher *events.Publisher, m *metrics.Metrics, commandBufferSize, maxOrdersPerSymbol int) *Engine {
	e := &Engine{
		workers:   make(map[model.Symbol]*symbolWorker, len(symbols)),
		symbols:   append([]model.Symbol(nil), symbols...),
		publisher: publisher,
		metrics:   m,
	}
	for _, sym := range symbols {
		e.workers[sym] = newSymbolWorker(sym, commandBufferSize, maxOrdersPerSymbol)
	}
	return e
}

// Start spins up one supervised goroutine per symbol worker. The
// supervising tomb is kept on the Engine so Stop can drain it.
func (e *Engine) Start(ctx context.Context) {
	t, ctx := tomb.WithContext(ctx)
	e.t = t
	for _, w := range e.workers {
		w := w
		t.Go(func() error { return w.run(t) })
	}
	log.Info().Int("symbols", len(e.workers)).Msg("engine started")
}

// Stop signals every worker to drain and waits for them to exit.
func (e *Engine) Stop() error {
	if e.t == nil {
		return nil
	}
	e.t.Kill(nil)
	return e.t.Wait()
}

// Symbols returns the set of symbols this engine has a book for.
func (e *Engine) Symbols() []model.Symbol {
	return append([]model.Symbol(nil), e.symbols...)
}

// Degraded reports whether the event publisher's circuit breaker has
// tripped, per spec.md §7.
func (e *Engine) Degraded() bool {
	return e.publisher != nil && e.publisher.Degraded()
}

// Submit runs order through its symbol's matching algorithm and
// publishes the resulting events. It blocks until the symbol's worker
// has processed the command or ctx is done.
func (e *Engine) Submit(ctx context.Context, order *model.Order) (*model.Order, []*model.Trade, error) {
	w, ok := e.workers[order.Symbol]
	if !ok {
		return nil, nil, apperrors.New(apperrors.KindSymbolNotFound, fmt.Sprintf("unknown symbol %s", order.Symbol))
	}

	if e.metrics != nil {
		e.metrics.IncOrdersReceived(string(order.Symbol))
	}

	resultCh := make(chan commandResult, 1)
	select {
	case w.commands <- &command{kind: cmdNewOrder, order: order, resultCh: resultCh}:
	default:
		return nil, nil, apperrors.New(apperrors.KindChannelFull, "command queue full for symbol")
	}

	select {
	case res := <-resultCh:
		e.recordNewOrderResult(order.Symbol, w, res)
		return res.order, res.trades, res.err
	case <-ctx.Done():
		return nil, nil, apperrors.Wrap(apperrors.KindBusUnavailable, "order submission timed out", ctx.Err())
	}
}

// Cancel removes a resting order by id from its symbol's book.
func (e *Engine) Cancel(ctx context.Context, symbol model.Symbol, orderID uuid.UUID) error {
	w, ok := e.workers[symbol]
	if !ok {
		return apperrors.New(apperrors.KindSymbolNotFound, fmt.Sprintf("unknown symbol %s", symbol))
	}

	resultCh := make(chan commandResult, 1)
	select {
	case w.commands <- &command{kind: cmdCancelOrder, cancelOrderID: orderID, resultCh: resultCh}:
	default:
		return apperrors.New(apperrors.KindChannelFull, "command queue full for symbol")
	}

	select {
	case res := <-resultCh:
		if !res.cancelled {
			return apperrors.New(apperrors.KindOrderNotFound, "order not found")
		}
		if e.publisher != nil {
			e.publisher.Publish(events.TopicOrders, events.NewEnvelope(events.OrderCancelled, eventSource, 0, orderID, map[string]any{
				"order_id": orderID,
				"symbol":   symbol,
				"reason":   model.ReasonUserRequested,
			}))
		}
		return nil
	case <-ctx.Done():
		return apperrors.Wrap(apperrors.KindBusUnavailable, "cancel timed out", ctx.Err())
	}
}

// Depth returns up to n price levels per side for symbol.
func (e *Engine) Depth(symbol model.Symbol, n int) (bids, asks []model.PriceLevelView, err error) {
	w, ok := e.workers[symbol]
	if !ok {
		return nil, nil, apperrors.New(apperrors.KindSymbolNotFound, fmt.Sprintf("unknown symbol %s", symbol))
	}
	bids, asks = w.book.GetDepth(n)
	return bids, asks, nil
}

// BBO returns the best bid/offer for symbol.
func (e *Engine) BBO(symbol model.Symbol) (bestBid, bestAsk *model.PriceLevelView, err error) {
	w, ok := e.workers[symbol]
	if !ok {
		return nil, nil, apperrors.New(apperrors.KindSymbolNotFound, fmt.Sprintf("unknown symbol %s", symbol))
	}
	bestBid, bestAsk = w.book.GetBBO()
	return bestBid, bestAsk, nil
}

// recordNewOrderResult publishes the domain events a ProcessOrder call
// produced and updates the engine's metrics. Best-effort: publish
// failures are logged by the Publisher itself and never surfaced to the
// submitting caller, whose own result already has its err set.
func (e *Engine) recordNewOrderResult(symbol model.Symbol, w *symbolWorker, res commandResult) {
	if e.metrics != nil {
		e.metrics.ObserveMatchingLatency(string(symbol), res.duration)
	}

	if res.err != nil {
		if res.order != nil && e.publisher != nil {
			e.publisher.Publish(events.TopicOrders, events.NewEnvelope(events.OrderRejected, eventSource, res.order.Sequence, res.order.ID, res.order))
		}
		if e.metrics != nil {
			e.metrics.IncOrdersCancelled(string(symbol), string(model.ReasonFillOrKillFailed))
		}
		return
	}

	if e.publisher != nil {
		for _, cm := range res.cancelledMakers {
			e.publisher.Publish(events.TopicOrders, events.NewEnvelope(events.OrderCancelled, eventSource, res.order.Sequence, res.order.ID, cm))
		}
		for _, tr := range res.trades {
			e.publisher.Publish(events.TopicTrades, events.NewEnvelope(events.TradeExecuted, eventSource, tr.TradeID, res.order.ID, tr))
		}
	}
	if e.metrics != nil {
		for _, cm := range res.cancelledMakers {
			e.metrics.IncOrdersCancelled(string(symbol), string(cm.Reason))
		}
		if len(res.trades) > 0 {
			e.metrics.IncOrdersMatched(string(symbol))
			e.metrics.AddTradesExecuted(string(symbol), len(res.trades))
		}
	}

	eventType := events.OrderUpdated
	if res.order.Status == model.Cancelled {
		eventType = events.OrderCancelled
		if e.metrics != nil {
			e.metrics.IncOrdersCancelled(string(symbol), string(res.order.Reason))
		}
	}
	if e.publisher != nil {
		e.publisher.Publish(events.TopicOrders, events.NewEnvelope(eventType, eventSource, res.order.Sequence, res.order.ID, res.order))
	}

	if e.metrics != nil {
		bidLevels, askLevels := w.book.DepthCount()
		e.metrics.SetDepth(string(symbol), bidLevels, askLevels)
	}
}
