// Package feed fans matcher output out to subscribers that consume at
// different speeds. Every subscriber owns a bounded buffer; a slow
// subscriber never blocks the matcher, it either loses old events
// (lossy mode) or loses its subscription (strict mode).
package feed

import (
	"sync"

	"go.uber.org/zap"

	"clob/domain/orderbook"
	"clob/metrics"
)

// Event is the payload published once per processed order: the trades
// it generated, in generation order, and the price levels it changed.
type Event struct {
	Seq    uint64
	Trades []orderbook.Trade
	Levels []orderbook.LevelChange
}

type Mode uint8

const (
	// ModeLossy drops the subscriber's oldest buffered event on
	// overflow. Right for depth views, where only the latest matters.
	ModeLossy Mode = iota
	// ModeStrict disconnects the subscriber on overflow. Required for
	// consumers that must see every trade: a gap they cannot detect is
	// worse than a closed channel they can.
	ModeStrict
)

type Subscription struct {
	id   uint64
	mode Mode
	ch   chan Event
	once sync.Once
	d    *Distributor
}

// Events yields this subscription's event stream. The channel closes
// when the subscriber is disconnected (strict overflow) or the
// distributor shuts down.
func (s *Subscription) Events() <-chan Event {
	return s.ch
}

func (s *Subscription) Close() {
	s.d.unsubscribe(s)
}

type Distributor struct {
	log *zap.Logger
	met *metrics.Metrics

	mu     sync.RWMutex
	subs   map[uint64]*Subscription
	nextID uint64
	closed bool
}

func NewDistributor(log *zap.Logger, met *metrics.Metrics) *Distributor {
	return &Distributor{
		log:  log.Named("feed"),
		met:  met,
		subs: make(map[uint64]*Subscription),
	}
}

// Subscribe registers a new subscriber with its own buffer. Safe to
// call concurrently with Publish.
func (d *Distributor) Subscribe(mode Mode, buffer int) *Subscription {
	if buffer < 1 {
		buffer = 1
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	d.nextID++
	s := &Subscription{
		id:   d.nextID,
		mode: mode,
		ch:   make(chan Event, buffer),
		d:    d,
	}
	if d.closed {
		s.once.Do(func() { close(s.ch) })
		return s
	}
	d.subs[s.id] = s
	return s
}

// Publish fans one event out without ever blocking. Called once per
// processed order, from the matcher's execution context only, which
// gives every subscriber sequence-ordered delivery for free.
func (d *Distributor) Publish(ev Event) {
	var evicted []*Subscription

	d.mu.RLock()
	for _, s := range d.subs {
		select {
		case s.ch <- ev:
			continue
		default:
		}

		switch s.mode {
		case ModeLossy:
			// Make room by discarding the oldest buffered event, then
			// try once more. If a fast consumer raced us for the slot,
			// dropping the incoming event instead is just as lossy.
			select {
			case <-s.ch:
			default:
			}
			select {
			case s.ch <- ev:
			default:
			}
			d.met.FeedDropped.Inc()
		case ModeStrict:
			evicted = append(evicted, s)
		}
	}
	d.mu.RUnlock()

	for _, s := range evicted {
		d.log.Warn("disconnecting strict subscriber on overflow",
			zap.Uint64("subscriber", s.id),
			zap.Uint64("seq", ev.Seq))
		d.met.FeedDisconnects.Inc()
		d.unsubscribe(s)
	}
}

// Subscribers returns the current subscriber count.
func (d *Distributor) Subscribers() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.subs)
}

// Close disconnects everyone. Further Subscribe calls return a
// subscription whose channel is already closed.
func (d *Distributor) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	for id, s := range d.subs {
		delete(d.subs, id)
		s.once.Do(func() { close(s.ch) })
	}
}

func (d *Distributor) unsubscribe(s *Subscription) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.subs[s.id]; ok {
		delete(d.subs, s.id)
	}
	s.once.Do(func() { close(s.ch) })
}
