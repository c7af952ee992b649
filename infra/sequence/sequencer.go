package sequence

import "sync/atomic"

// Sequencer issues the process-wide monotonic sequence numbers that
// define the engine's total order. It is created once at engine start
// and never reset while the engine instance is alive; numbering starts
// at 1 so that 0 can mean "unsequenced" everywhere else.
type Sequencer struct {
	next atomic.Uint64
}

func New(start uint64) *Sequencer {
	s := &Sequencer{}
	s.next.Store(start)
	return s
}

// Next returns the next sequence number. Safe for concurrent callers,
// but admission discipline (who may call it, and when) belongs to the
// ingestion channel.
func (s *Sequencer) Next() uint64 {
	return s.next.Add(1)
}

// Current returns the last issued sequence number.
func (s *Sequencer) Current() uint64 {
	return s.next.Load()
}
