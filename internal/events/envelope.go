// Package events defines the outbound event envelope published for every
// order/trade lifecycle transition, and the publisher that delivers it.
// Grounded on the original common/src/events.rs Event<T> envelope and on
// abdoElHodaky-tradSys's watermill_adapter.go for the Go pub/sub shape.
package events

import (
	"time"

	"github.com/google/uuid"
)

// Type identifies the kind of domain event carried in an Envelope.
type Type string

const (
	OrderAccepted  Type = "order_accepted"
	OrderUpdated   Type = "order_updated"
	OrderCancelled Type = "order_cancelled"
	OrderRejected  Type = "order_rejected"
	TradeExecuted  Type = "trade_executed"
)

// Topic is the name of a published stream. Grouping mirrors spec.md §6's
// topic table, standing in for partitions of an external ordered log.
type Topic string

const (
	TopicOrders    Topic = "trading.orders"
	TopicTrades    Topic = "trading.trades"
	TopicOrderbook Topic = "market.orderbook"
	TopicPrices    Topic = "market.prices"
	TopicPositions Topic = "risk.positions"
	TopicAlerts    Topic = "risk.alerts"
	TopicAudit     Topic = "audit.events"
)

// Envelope wraps every published payload with delivery metadata. ID is
// the delivery's own identity (used for idempotent consumer dedup);
// CorrelationID, when set, threads a chain of events back to the command
// that triggered them.
type Envelope struct {
	ID            uuid.UUID `json:"id"`
	EventType     Type      `json:"event_type"`
	CorrelationID uuid.UUID `json:"correlation_id,omitempty"`
	Source        string    `json:"source"`
	Timestamp     time.Time `json:"timestamp"`
	Sequence      uint64    `json:"sequence"`
	Payload       any       `json:"payload"`
}

// NewEnvelope constructs an Envelope ready to publish.
func NewEnvelope(eventType Type, source string, sequence uint64, correlationID uuid.UUID, payload any) Envelope {
	return Envelope{
		ID:            uuid.New(),
		EventType:     eventType,
		CorrelationID: correlationID,
		Source:        source,
		Timestamp:     time.Now().UTC(),
		Sequence:      sequence,
		Payload:       payload,
	}
}
