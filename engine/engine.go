// Package engine is the single-instrument matching engine: a bounded
// ingestion queue in front of one matching goroutine that owns the
// book. Admission assigns sequence numbers; the loop matches in
// sequence order, hands trades to the journal sink, fans events out
// and republishes the query snapshot. Everything downstream of
// admission is single-threaded on purpose.
package engine

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"clob/domain/orderbook"
	"clob/feed"
	"clob/infra/memory"
	"clob/infra/sequence"
	"clob/journal"
	"clob/metrics"
)

type Config struct {
	// QueueSize bounds the ingestion channel. Submissions beyond it
	// fail fast with ErrBackpressure.
	QueueSize int
	// SnapshotDepth is how many levels per side each published
	// snapshot carries.
	SnapshotDepth int
}

const (
	defaultQueueSize     = 4096
	defaultSnapshotDepth = 50
)

type Engine struct {
	log *zap.Logger
	met *metrics.Metrics

	book    *orderbook.Book
	matcher *orderbook.Matcher
	seq     *sequence.Sequencer
	dist    *feed.Distributor
	sink    journal.Sink
	pool    *memory.Pool[orderbook.Order]

	// mu serializes admission: the queue-full check and the sequence
	// grab must be one atomic step, or accepted orders could enter the
	// channel out of sequence order.
	mu     sync.Mutex
	in     chan *orderbook.Order
	closed bool

	// space gets a token after each dequeue so bounded-wait submitters
	// know a retry is worth making.
	space chan struct{}
	done  chan struct{}

	snap atomic.Pointer[Snapshot]

	snapshotDepth int

	accepted atomic.Uint64
	rejected atomic.Uint64
	trades   atomic.Uint64
	volume   atomic.Uint64
}

func New(log *zap.Logger, met *metrics.Metrics, dist *feed.Distributor, sink journal.Sink, cfg Config) *Engine {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = defaultQueueSize
	}
	if cfg.SnapshotDepth <= 0 {
		cfg.SnapshotDepth = defaultSnapshotDepth
	}

	book := orderbook.NewBook()
	e := &Engine{
		log:           log.Named("engine"),
		met:           met,
		book:          book,
		matcher:       orderbook.NewMatcher(book),
		seq:           sequence.New(0),
		dist:          dist,
		sink:          sink,
		pool:          memory.NewPool(func() *orderbook.Order { return &orderbook.Order{} }),
		in:            make(chan *orderbook.Order, cfg.QueueSize),
		space:         make(chan struct{}, 1),
		done:          make(chan struct{}),
		snapshotDepth: cfg.SnapshotDepth,
	}
	e.snap.Store(&Snapshot{Taken: time.Now()})
	return e
}

// Submit validates, sequences and enqueues one order, returning its
// sequence number. It fails fast: a full queue returns ErrBackpressure
// without consuming a sequence number.
func (e *Engine) Submit(side orderbook.Side, price, qty int64) (uint64, error) {
	seq, err := e.admit(side, price, qty)
	if err != nil {
		e.countRejection(err)
		return 0, err
	}
	return seq, nil
}

// SubmitContext behaves like Submit but waits out backpressure until
// ctx expires. Cancellation before admission means the order was never
// accepted; cancellation cannot reach an order past admission.
func (e *Engine) SubmitContext(ctx context.Context, side orderbook.Side, price, qty int64) (uint64, error) {
	for {
		seq, err := e.admit(side, price, qty)
		if !errors.Is(err, ErrBackpressure) {
			if err != nil {
				e.countRejection(err)
			}
			return seq, err
		}

		select {
		case <-ctx.Done():
			e.countRejection(ErrBackpressure)
			return 0, ctx.Err()
		case <-e.space:
		case <-e.done:
			e.countRejection(ErrClosed)
			return 0, ErrClosed
		}
	}
}

func (e *Engine) admit(side orderbook.Side, price, qty int64) (uint64, error) {
	if err := orderbook.Validate(price, qty); err != nil {
		return 0, err
	}

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return 0, ErrClosed
	}
	if len(e.in) == cap(e.in) {
		e.mu.Unlock()
		return 0, ErrBackpressure
	}

	o := e.pool.Get()
	seq := e.seq.Next()
	*o = orderbook.Order{
		ID:        seq,
		Side:      side,
		Price:     price,
		Qty:       qty,
		Remaining: qty,
		Seq:       seq,
		Arrived:   time.Now(),
	}
	e.in <- o
	e.mu.Unlock()

	e.accepted.Add(1)
	e.met.OrdersAccepted.Inc()
	return seq, nil
}

func (e *Engine) countRejection(err error) {
	e.rejected.Add(1)
	switch {
	case errors.Is(err, orderbook.ErrInvalidOrder):
		e.met.OrdersRejected.WithLabelValues(metrics.ReasonInvalid).Inc()
	case errors.Is(err, ErrBackpressure):
		e.met.OrdersRejected.WithLabelValues(metrics.ReasonBackpressure).Inc()
	}
}

// Run owns the book until ctx is cancelled. On shutdown it stops
// admission, finishes every order already accepted, and publishes a
// final snapshot, so an accepted sequence number is always honored.
func (e *Engine) Run(ctx context.Context) {
	defer close(e.done)

	for {
		select {
		case <-ctx.Done():
			e.shutdown()
			return
		case o := <-e.in:
			e.step(o)
			e.signalSpace()
		}
	}
}

// Done closes once Run has drained and returned.
func (e *Engine) Done() <-chan struct{} {
	return e.done
}

func (e *Engine) step(o *orderbook.Order) {
	res, err := e.matcher.Process(o)
	if err != nil {
		// Validation already ran at admission; reaching this means the
		// order was corrupted in flight.
		e.log.Error("process failed on admitted order",
			zap.Uint64("seq", o.Seq), zap.Error(err))
		e.recycle(o)
		return
	}

	for i := range res.Trades {
		e.sink.Record(&res.Trades[i])
		e.volume.Add(uint64(res.Trades[i].Qty))
		e.met.TradedVolume.Add(float64(res.Trades[i].Qty))
	}
	if n := len(res.Trades); n > 0 {
		e.trades.Add(uint64(n))
		e.met.TradesExecuted.Add(float64(n))
	}

	if len(res.Trades) > 0 || len(res.Changed) > 0 {
		e.dist.Publish(feed.Event{
			Seq:    o.Seq,
			Trades: res.Trades,
			Levels: res.Changed,
		})
	}

	e.publishSnapshot(o.Seq)
	e.met.QueueDepth.Set(float64(len(e.in)))
	e.met.RestingOrders.Set(float64(e.book.RestingCount()))

	for _, f := range res.Filled {
		e.recycle(f)
	}
}

func (e *Engine) publishSnapshot(seq uint64) {
	bids, asks := e.book.Depth(e.snapshotDepth)
	e.snap.Store(&Snapshot{
		Seq:     seq,
		Bids:    bids,
		Asks:    asks,
		Resting: e.book.RestingCount(),
		Taken:   time.Now(),
	})
}

func (e *Engine) recycle(o *orderbook.Order) {
	*o = orderbook.Order{}
	e.pool.Put(o)
}

func (e *Engine) signalSpace() {
	select {
	case e.space <- struct{}{}:
	default:
	}
}

func (e *Engine) shutdown() {
	e.mu.Lock()
	e.closed = true
	e.mu.Unlock()

	// Nothing new can enter the channel now; drain what was accepted.
	for {
		select {
		case o := <-e.in:
			e.step(o)
		default:
			e.publishSnapshot(e.seq.Current())
			e.log.Info("engine stopped",
				zap.Uint64("last_seq", e.seq.Current()),
				zap.Int("resting", e.book.RestingCount()))
			return
		}
	}
}

// Snapshot returns the latest published book view. Never nil.
func (e *Engine) Snapshot() *Snapshot {
	return e.snap.Load()
}

// Stats is a point-in-time operational summary.
type Stats struct {
	Accepted uint64
	Rejected uint64
	Trades   uint64
	Volume   uint64
	LastSeq  uint64
	Resting  int
	Queued   int
}

func (e *Engine) Stats() Stats {
	snap := e.snap.Load()
	return Stats{
		Accepted: e.accepted.Load(),
		Rejected: e.rejected.Load(),
		Trades:   e.trades.Load(),
		Volume:   e.volume.Load(),
		LastSeq:  e.seq.Current(),
		Resting:  snap.Resting,
		Queued:   len(e.in),
	}
}
