package engine

import (
	"time"

	"clob/domain/orderbook"
)

// Snapshot is an immutable view of the book as of one sequence number.
// The engine publishes a fresh one after every matching step; readers
// load it through an atomic pointer, so queries never touch the live
// book and repeating a query against an unchanged book returns the
// same snapshot.
type Snapshot struct {
	Seq     uint64
	Bids    []orderbook.LevelDepth // best first
	Asks    []orderbook.LevelDepth // best first
	Resting int
	Taken   time.Time
}

func (s *Snapshot) BestBid() (int64, bool) {
	if len(s.Bids) == 0 {
		return 0, false
	}
	return s.Bids[0].Price, true
}

func (s *Snapshot) BestAsk() (int64, bool) {
	if len(s.Asks) == 0 {
		return 0, false
	}
	return s.Asks[0].Price, true
}

// Spread returns ask minus bid; ok is false when either side is empty.
func (s *Snapshot) Spread() (int64, bool) {
	bid, ok := s.BestBid()
	if !ok {
		return 0, false
	}
	ask, ok := s.BestAsk()
	if !ok {
		return 0, false
	}
	return ask - bid, true
}
