package orderbook

// Book is the authoritative price-level structure for one instrument.
// It is single-writer by contract: every operation is invoked from the
// matcher's execution context only, which is what makes the whole hot
// path lock-free.
type Book struct {
	bids *tree
	asks *tree

	resting int
}

// LevelDepth is one row of a depth view: a price and the aggregate
// remaining quantity resting at it.
type LevelDepth struct {
	Price int64
	Qty   int64
}

func NewBook() *Book {
	return &Book{
		bids: newTree(),
		asks: newTree(),
	}
}

func (b *Book) side(s Side) *tree {
	if s == Buy {
		return b.bids
	}
	return b.asks
}

// Insert places a non-matched remainder at the tail of its level's
// FIFO, creating the level if needed. O(log L) in live levels.
func (b *Book) Insert(o *Order) {
	b.side(o.Side).getOrInsert(o.Price).Enqueue(o)
	b.resting++
}

// BestOpposite returns the order an incoming taker of the given side
// would match first: the head of the best opposing level. Nil when the
// opposing side is empty. Price compatibility is the matcher's call.
func (b *Book) BestOpposite(taker Side) *Order {
	var lvl *PriceLevel
	if taker == Buy {
		lvl = b.asks.min()
	} else {
		lvl = b.bids.max()
	}
	if lvl == nil {
		return nil
	}
	return lvl.Head()
}

// RemoveFilled evicts an order whose Remaining reached zero from the
// head of its level, deleting the level if it empties.
func (b *Book) RemoveFilled(o *Order) {
	t := b.side(o.Side)
	lvl := t.get(o.Price)
	if lvl == nil || lvl.Head() != o {
		panic("orderbook: RemoveFilled on order not at head of its level")
	}
	lvl.PopHead()
	if lvl.Empty() {
		t.delete(o.Price)
	}
	b.resting--
}

// BestBid returns the highest resting bid price.
func (b *Book) BestBid() (int64, bool) {
	lvl := b.bids.max()
	if lvl == nil {
		return 0, false
	}
	return lvl.Price, true
}

// BestAsk returns the lowest resting ask price.
func (b *Book) BestAsk() (int64, bool) {
	lvl := b.asks.min()
	if lvl == nil {
		return 0, false
	}
	return lvl.Price, true
}

// LevelQty returns the aggregate quantity resting at a price, 0 when
// the level does not exist.
func (b *Book) LevelQty(s Side, price int64) int64 {
	lvl := b.side(s).get(price)
	if lvl == nil {
		return 0
	}
	return lvl.TotalQty
}

// RestingCount is the number of orders currently resting.
func (b *Book) RestingCount() int {
	return b.resting
}

// Levels is the number of live price levels on a side.
func (b *Book) Levels(s Side) int {
	return b.side(s).len()
}

// Depth produces a bounded, best-first depth view. Safe to call only
// between matcher steps, like every other Book operation.
func (b *Book) Depth(levels int) (bids, asks []LevelDepth) {
	bids = make([]LevelDepth, 0, levels)
	asks = make([]LevelDepth, 0, levels)

	b.bids.descend(func(lvl *PriceLevel) bool {
		bids = append(bids, LevelDepth{Price: lvl.Price, Qty: lvl.TotalQty})
		return len(bids) < levels
	})
	b.asks.ascend(func(lvl *PriceLevel) bool {
		asks = append(asks, LevelDepth{Price: lvl.Price, Qty: lvl.TotalQty})
		return len(asks) < levels
	})
	return bids, asks
}

// WalkBids and WalkAsks visit levels best-first, for stats and debug
// tooling. Callers must not mutate.
func (b *Book) WalkBids(fn func(*PriceLevel) bool) {
	b.bids.descend(fn)
}

func (b *Book) WalkAsks(fn func(*PriceLevel) bool) {
	b.asks.ascend(fn)
}
