package orderbook

import "time"

// Trade is immutable once created; emitted once, never retracted.
// Seq carries the ingestion sequence number of the triggering order.
type Trade struct {
	ID      uint64
	MakerID uint64
	TakerID uint64
	Price   int64 // maker's limit price; improvement goes to the taker
	Qty     int64
	Seq     uint64
	Taker   Side // aggressor side
	Time    time.Time
}

// LevelChange reports a price level touched by one matcher step, with
// its post-step aggregate quantity. Qty 0 means the level was removed.
type LevelChange struct {
	Side  Side
	Price int64
	Qty   int64
}

// Result is the output of one matcher step: trades in generation order
// and the set of levels that changed, for downstream broadcast.
type Result struct {
	Trades  []Trade
	Changed []LevelChange

	// Filled carries maker orders evicted from the book plus the taker
	// when it filled completely. The caller may recycle them; nothing
	// in Result aliases them.
	Filled []*Order
}

// Matcher mutates the book one incoming order at a time. It is the
// book's single designated owner and holds no locks: serialization is
// the ingestion channel's job, not this type's.
type Matcher struct {
	book        *Book
	lastTradeID uint64
}

func NewMatcher(b *Book) *Matcher {
	return &Matcher{book: b}
}

// Process matches an incoming order against the book, inserting any
// remainder as a resting limit order.
//
// Deterministic: the same accepted order sequence yields an identical
// trade sequence and book state every run. Trade IDs come from a local
// monotonic counter and Trade.Time is informational only.
func (m *Matcher) Process(o *Order) (Result, error) {
	if err := Validate(o.Price, o.Qty); err != nil {
		return Result{}, err
	}

	var res Result
	for o.Remaining > 0 {
		maker := m.book.BestOpposite(o.Side)
		if maker == nil || !crosses(o, maker) {
			break
		}

		qty := min(o.Remaining, maker.Remaining)
		o.Remaining -= qty
		maker.Remaining -= qty

		m.lastTradeID++
		res.Trades = append(res.Trades, Trade{
			ID:      m.lastTradeID,
			MakerID: maker.ID,
			TakerID: o.ID,
			Price:   maker.Price,
			Qty:     qty,
			Seq:     o.Seq,
			Taker:   o.Side,
			Time:    o.Arrived,
		})

		makerSide := o.Side.Opposite()
		m.book.side(makerSide).get(maker.Price).Reduce(qty)
		if maker.Remaining == 0 {
			m.book.RemoveFilled(maker)
			res.Filled = append(res.Filled, maker)
		}
		res.touch(makerSide, maker.Price, m.book.LevelQty(makerSide, maker.Price))
	}

	if o.Remaining > 0 {
		m.book.Insert(o)
		res.touch(o.Side, o.Price, m.book.LevelQty(o.Side, o.Price))
	} else {
		res.Filled = append(res.Filled, o)
	}
	return res, nil
}

// crosses reports price compatibility between taker and maker.
func crosses(taker, maker *Order) bool {
	if taker.Side == Buy {
		return taker.Price >= maker.Price
	}
	return taker.Price <= maker.Price
}

// touch records a changed level, collapsing repeat touches of the same
// level so Changed stays small and deterministic.
func (r *Result) touch(s Side, price, qty int64) {
	for i := range r.Changed {
		if r.Changed[i].Side == s && r.Changed[i].Price == price {
			r.Changed[i].Qty = qty
			return
		}
	}
	r.Changed = append(r.Changed, LevelChange{Side: s, Price: price, Qty: qty})
}
