// Package metrics defines the Prometheus collectors matchd exposes on
// its admin HTTP server.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Registry bundles the collectors matchd updates as it runs. Callers
// pull values from internal/pool and internal/session rather than
// those packages importing metrics directly, keeping the dependency
// pointed one way.
type Registry struct {
	OrdersReceived  *prometheus.CounterVec
	OrdersMatched   prometheus.Counter
	FillsTotal      prometheus.Counter
	FillQuantity    prometheus.Counter
	PoolExhausted   prometheus.Counter
	PoolActive      prometheus.Gauge
	PoolBlocks      prometheus.Gauge
	ActiveSessions  prometheus.Gauge
	ActiveUsers     prometheus.Gauge
	BestBid         *prometheus.GaugeVec
	BestAsk         *prometheus.GaugeVec
}

// New builds a Registry and registers every collector with reg.
func New(reg prometheus.Registerer) *Registry {
	m := &Registry{
		OrdersReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "matchd",
			Name:      "orders_received_total",
			Help:      "Orders accepted by the dispatcher, labeled by side.",
		}, []string{"side"}),
		OrdersMatched: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "matchd",
			Name:      "orders_matched_total",
			Help:      "New orders that produced at least one fill.",
		}),
		FillsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "matchd",
			Name:      "fills_total",
			Help:      "Individual fills produced by the matching engine.",
		}),
		FillQuantity: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "matchd",
			Name:      "fill_quantity_total",
			Help:      "Sum of quantity across all fills.",
		}),
		PoolExhausted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "matchd",
			Name:      "pool_exhausted_total",
			Help:      "Order acquisitions rejected because the pool hit its block cap.",
		}),
		PoolActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "matchd",
			Name:      "pool_active_orders",
			Help:      "Orders currently checked out of the pool.",
		}),
		PoolBlocks: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "matchd",
			Name:      "pool_blocks",
			Help:      "Blocks currently allocated by the pool.",
		}),
		ActiveSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "matchd",
			Name:      "active_sessions",
			Help:      "Sessions known to the registry.",
		}),
		ActiveUsers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "matchd",
			Name:      "active_users",
			Help:      "Users currently marked active across all sessions.",
		}),
		BestBid: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "matchd",
			Name:      "best_bid",
			Help:      "Best bid price per symbol.",
		}, []string{"symbol"}),
		BestAsk: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "matchd",
			Name:      "best_ask",
			Help:      "Best ask price per symbol.",
		}, []string{"symbol"}),
	}

	reg.MustRegister(
		m.OrdersReceived, m.OrdersMatched, m.FillsTotal, m.FillQuantity,
		m.PoolExhausted, m.PoolActive, m.PoolBlocks,
		m.ActiveSessions, m.ActiveUsers, m.BestBid, m.BestAsk,
	)
	return m
}

// RecordOrder increments the received counter for side ("buy"/"sell")
// and, if fills is non-empty, the matched/fills/quantity counters.
func (m *Registry) RecordOrder(side string, fillCount int, fillQty uint32) {
	m.OrdersReceived.WithLabelValues(side).Inc()
	if fillCount == 0 {
		return
	}
	m.OrdersMatched.Inc()
	m.FillsTotal.Add(float64(fillCount))
	m.FillQuantity.Add(float64(fillQty))
}

// RecordPoolExhausted increments the exhaustion counter.
func (m *Registry) RecordPoolExhausted() {
	m.PoolExhausted.Inc()
}

// SetPoolStats reflects the pool's current utilization.
func (m *Registry) SetPoolStats(active, blocks int) {
	m.PoolActive.Set(float64(active))
	m.PoolBlocks.Set(float64(blocks))
}

// SetSessionStats reflects the registry's current population.
func (m *Registry) SetSessionStats(sessions, users int) {
	m.ActiveSessions.Set(float64(sessions))
	m.ActiveUsers.Set(float64(users))
}

// SetTopOfBook reflects a symbol's best bid/ask after a book-changing
// operation.
func (m *Registry) SetTopOfBook(symbol string, bestBid, bestAsk float64) {
	m.BestBid.WithLabelValues(symbol).Set(bestBid)
	m.BestAsk.WithLabelValues(symbol).Set(bestAsk)
}
