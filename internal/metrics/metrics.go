// Package metrics exposes the engine's Prometheus collectors. Names and
// label sets mirror the original metrics.rs recorder so dashboards built
// against that exporter keep working unchanged.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the collectors the matching engine reports against.
// Grounded on abdoElHodaky-tradSys's internal/monitoring/metrics.go
// promauto registration pattern.
type Metrics struct {
	matchingLatencyUs *prometheus.HistogramVec
	ordersReceived    *prometheus.CounterVec
	ordersMatched     *prometheus.CounterVec
	ordersCancelled   *prometheus.CounterVec
	tradesExecuted    *prometheus.CounterVec
	depthBids         *prometheus.GaugeVec
	depthAsks         *prometheus.GaugeVec
}

// New registers and returns the engine's collectors against the default
// Prometheus registry.
func New() *Metrics {
	return &Metrics{
		matchingLatencyUs: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "matching_latency_us",
				Help:    "Time spent processing a single order inside OrderBook.ProcessOrder, in microseconds.",
				Buckets: prometheus.ExponentialBuckets(1, 2, 20),
			},
			[]string{"symbol"},
		),
		ordersReceived: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "orders_received",
				Help: "Total orders accepted by the intake surface.",
			},
			[]string{"symbol"},
		),
		ordersMatched: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "orders_matched",
				Help: "Total orders that produced at least one trade.",
			},
			[]string{"symbol"},
		),
		ordersCancelled: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "orders_cancelled",
				Help: "Total orders cancelled, by reason.",
			},
			[]string{"symbol", "reason"},
		),
		tradesExecuted: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "trades_executed",
				Help: "Total trades executed.",
			},
			[]string{"symbol"},
		),
		depthBids: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "orderbook_depth_bids",
				Help: "Current number of distinct bid price levels.",
			},
			[]string{"symbol"},
		),
		depthAsks: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "orderbook_depth_asks",
				Help: "Current number of distinct ask price levels.",
			},
			[]string{"symbol"},
		),
	}
}

// ObserveMatchingLatency records how long ProcessOrder took for symbol.
func (m *Metrics) ObserveMatchingLatency(symbol string, d time.Duration) {
	m.matchingLatencyUs.WithLabelValues(symbol).Observe(float64(d.Microseconds()))
}

// IncOrdersReceived records one order entering the engine for symbol.
func (m *Metrics) IncOrdersReceived(symbol string) {
	m.ordersReceived.WithLabelValues(symbol).Inc()
}

// IncOrdersMatched records an order that produced at least one trade.
func (m *Metrics) IncOrdersMatched(symbol string) {
	m.ordersMatched.WithLabelValues(symbol).Inc()
}

// IncOrdersCancelled records an order leaving the book without filling
// completely, tagged with why.
func (m *Metrics) IncOrdersCancelled(symbol, reason string) {
	m.ordersCancelled.WithLabelValues(symbol, reason).Inc()
}

// AddTradesExecuted records n trades produced by a single match.
func (m *Metrics) AddTradesExecuted(symbol string, n int) {
	if n <= 0 {
		return
	}
	m.tradesExecuted.WithLabelValues(symbol).Add(float64(n))
}

// SetDepth records the current level counts on both sides of symbol's book.
func (m *Metrics) SetDepth(symbol string, bidLevels, askLevels int) {
	m.depthBids.WithLabelValues(symbol).Set(float64(bidLevels))
	m.depthAsks.WithLabelValues(symbol).Set(float64(askLevels))
}
