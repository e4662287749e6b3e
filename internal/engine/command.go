package engine

import (
	"time"

	"github.com/google/uuid"

	"github.com/latticefi/matching-engine/internal/book"
	"github.com/latticefi/matching-engine/internal/model"
)

type commandKind int

const (
	cmdNewOrder commandKind = iota
	cmdCancelOrder
)

// command is a unit of work handed to a symbol's worker goroutine over
// its command channel (spec.md §9's command intake).
type command struct {
	kind commandKind

	order         *model.Order
	cancelOrderID uuid.UUID

	resultCh chan commandResult
}

// commandResult carries everything the worker produced back to Submit/
// Cancel, and everything recordNewOrderResult needs to emit events and record
// metrics without re-deriving state from the book.
type commandResult struct {
	order           *model.Order
	trades          []*model.Trade
	cancelledMakers []book.CancelledMaker
	cancelled       bool
	duration        time.Duration
	err             error
}
