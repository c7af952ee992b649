// Package journal records committed trades off the matching path. The
// engine hands trades over a lock-free ring and keeps going; a worker
// goroutine drains the ring into the write-ahead log and the delivery
// outbox. A journal failure never rejects or delays an order.
package journal

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"clob/domain/orderbook"
	"clob/infra/memory"
	"clob/infra/outbox"
	"clob/infra/wal"
	"clob/metrics"
	"clob/wire"
)

// Sink accepts trades for asynchronous recording. Record must never
// block: it is called from the engine loop between matching steps.
type Sink interface {
	Record(t *orderbook.Trade)
}

// Nop discards every trade. Used by tests and the load generator.
type Nop struct{}

func (Nop) Record(*orderbook.Trade) {}

// Writer is the production sink: ring hand-off, single consumer.
type Writer struct {
	log *zap.Logger
	met *metrics.Metrics

	wal *wal.Journal
	out *outbox.Outbox // nil when Kafka delivery is disabled

	ring   *memory.Ring[orderbook.Trade]
	notify chan struct{}
	done   chan struct{}
}

func NewWriter(log *zap.Logger, met *metrics.Metrics, j *wal.Journal, out *outbox.Outbox, ringSize uint64) *Writer {
	return &Writer{
		log:    log,
		met:    met,
		wal:    j,
		out:    out,
		ring:   memory.NewRing[orderbook.Trade](ringSize),
		notify: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
}

// Record copies the trade into the hand-off ring. When the ring is
// full the trade is dropped and counted; matching is never stalled.
func (w *Writer) Record(t *orderbook.Trade) {
	cp := *t
	if !w.ring.Enqueue(&cp) {
		w.met.JournalDropped.Inc()
		w.log.Warn("journal ring full, trade dropped",
			zap.Uint64("trade_id", t.ID),
			zap.Uint64("seq", t.Seq))
		return
	}
	w.met.JournalRecorded.Inc()

	select {
	case w.notify <- struct{}{}:
	default:
	}
}

// Run drains the ring until ctx is cancelled, then performs a final
// drain and sync before returning.
func (w *Writer) Run(ctx context.Context) {
	defer close(w.done)

	for {
		select {
		case <-ctx.Done():
			w.drain()
			if err := w.wal.Sync(); err != nil {
				w.log.Error("journal final sync failed", zap.Error(err))
			}
			return
		case <-w.notify:
			w.drain()
			if err := w.wal.Sync(); err != nil {
				w.log.Error("journal sync failed", zap.Error(err))
			}
		}
	}
}

// Done closes after Run has flushed and returned.
func (w *Writer) Done() <-chan struct{} {
	return w.done
}

func (w *Writer) drain() {
	for {
		t := w.ring.Dequeue()
		if t == nil {
			return
		}

		if err := w.wal.Append(t); err != nil {
			w.log.Error("journal append failed",
				zap.Uint64("trade_id", t.ID), zap.Error(err))
		}

		if w.out == nil {
			continue
		}
		payload, err := json.Marshal(wire.FromTrade(*t))
		if err != nil {
			w.log.Error("journal encode failed",
				zap.Uint64("trade_id", t.ID), zap.Error(err))
			continue
		}
		if err := w.out.Put(t.ID, payload); err != nil {
			w.log.Error("outbox stage failed",
				zap.Uint64("trade_id", t.ID), zap.Error(err))
		}
	}
}
