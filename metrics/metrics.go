// Package metrics defines the engine's prometheus collectors. One
// instance is shared by the core components and exposed by the API
// server under /metrics.
package metrics

import "github.com/prometheus/client_golang/prometheus"

const (
	ReasonInvalid      = "invalid"
	ReasonBackpressure = "backpressure"
)

type Metrics struct {
	OrdersAccepted prometheus.Counter
	OrdersRejected *prometheus.CounterVec
	TradesExecuted prometheus.Counter
	TradedVolume   prometheus.Counter

	QueueDepth    prometheus.Gauge
	RestingOrders prometheus.Gauge

	FeedDropped     prometheus.Counter
	FeedDisconnects prometheus.Counter
	JournalRecorded prometheus.Counter
	JournalDropped  prometheus.Counter
	OutboxPublished prometheus.Counter
	OutboxRetries   prometheus.Counter
}

// New builds the collectors and registers them when reg is non-nil.
// Passing nil yields working but unregistered collectors, which is
// what tests and the load generator want.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		OrdersAccepted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "clob_orders_accepted_total",
			Help: "Orders admitted and assigned a sequence number.",
		}),
		OrdersRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "clob_orders_rejected_total",
			Help: "Orders rejected before sequencing, by reason.",
		}, []string{"reason"}),
		TradesExecuted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "clob_trades_total",
			Help: "Trades emitted by the matcher.",
		}),
		TradedVolume: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "clob_traded_volume_ticks",
			Help: "Cumulative executed quantity in ticks.",
		}),
		QueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "clob_ingest_queue_depth",
			Help: "Orders accepted but not yet matched.",
		}),
		RestingOrders: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "clob_resting_orders",
			Help: "Orders currently resting in the book.",
		}),
		FeedDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "clob_feed_dropped_events_total",
			Help: "Events dropped by lossy subscriber buffers.",
		}),
		FeedDisconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "clob_feed_disconnects_total",
			Help: "Strict subscribers disconnected on overflow.",
		}),
		JournalRecorded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "clob_journal_trades_total",
			Help: "Trades handed to the journal sink.",
		}),
		JournalDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "clob_journal_dropped_total",
			Help: "Trades lost because the journal hand-off ring was full.",
		}),
		OutboxPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "clob_outbox_published_total",
			Help: "Trades acknowledged by the Kafka broker.",
		}),
		OutboxRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "clob_outbox_retries_total",
			Help: "Outbox publish attempts that will be retried.",
		}),
	}

	if reg != nil {
		reg.MustRegister(
			m.OrdersAccepted, m.OrdersRejected,
			m.TradesExecuted, m.TradedVolume,
			m.QueueDepth, m.RestingOrders,
			m.FeedDropped, m.FeedDisconnects,
			m.JournalRecorded, m.JournalDropped,
			m.OutboxPublished, m.OutboxRetries,
		)
	}
	return m
}
