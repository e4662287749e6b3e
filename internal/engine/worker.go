package engine

import (
	"time"

	"github.com/rs/zerolog/log"
	tomb "gopkg.in/tomb.v2"

	"github.com/latticefi/matching-engine/internal/apperrors"
	"github.com/latticefi/matching-engine/internal/book"
	"github.com/latticefi/matching-engine/internal/model"
)

// symbolWorker owns one symbol's OrderBook exclusively: every command
// for that symbol is dequeued and handled here, one at a time, which is
// what gives the book its single-writer guarantee (spec.md §9) without
// any locking at the engine level. Grounded on the teacher's
// WorkerPool.worker loop (select on t.Dying() vs. the next task).
type symbolWorker struct {
	symbol   model.Symbol
	book     *book.OrderBook
	commands chan *command

	maxOrders int
}

func newSymbolWorker(symbol model.Symbol, commandBufferSize, maxOrders int) *symbolWorker {
	return &symbolWorker{
		symbol:    symbol,
		book:      book.NewOrderBook(symbol),
		commands:  make(chan *command, commandBufferSize),
		maxOrders: maxOrders,
	}
}

func (w *symbolWorker) run(t *tomb.Tomb) error {
	log.Info().Str("symbol", string(w.symbol)).Msg("symbol worker starting")
	for {
		select {
		case <-t.Dying():
			for {
				select {
				case cmd := <-w.commands:
					w.handle(cmd)
				default:
					log.Info().Str("symbol", string(w.symbol)).Msg("symbol worker stopping")
					return nil
				}
			}
		case cmd := <-w.commands:
			w.handle(cmd)
		}
	}
}

func (w *symbolWorker) handle(cmd *command) {
	switch cmd.kind {
	case cmdNewOrder:
		w.handleNewOrder(cmd)
	case cmdCancelOrder:
		w.handleCancel(cmd)
	}
}

func (w *symbolWorker) handleNewOrder(cmd *command) {
	if w.maxOrders > 0 && w.book.RestingOrderCount() >= w.maxOrders {
		cmd.resultCh <- commandResult{
			err: apperrors.New(apperrors.KindChannelFull, "order book at capacity for symbol"),
		}
		return
	}

	start := time.Now()
	order, trades, cancelledMakers, err := w.book.ProcessOrder(cmd.order)
	duration := time.Since(start)

	cmd.resultCh <- commandResult{
		order:           order,
		trades:          trades,
		cancelledMakers: cancelledMakers,
		duration:        duration,
		err:             err,
	}
}

func (w *symbolWorker) handleCancel(cmd *command) {
	ok := w.book.CancelOrder(cmd.cancelOrderID)
	cmd.resultCh <- commandResult{cancelled: ok}
}
