package wire

import (
	"clob/domain/orderbook"
)

// Trade is the public form of an execution, carried identically on the
// WebSocket feed and the Kafka trade topic.
type Trade struct {
	TradeID      uint64 `json:"trade_id"`
	MakerOrderID uint64 `json:"maker_order_id"`
	TakerOrderID uint64 `json:"taker_order_id"`
	Price        string `json:"price"`
	Qty          string `json:"qty"`
	TakerSide    string `json:"taker_side"`
	Seq          uint64 `json:"seq"`
	Timestamp    int64  `json:"timestamp"`
}

func FromTrade(t orderbook.Trade) Trade {
	return Trade{
		TradeID:      t.ID,
		MakerOrderID: t.MakerID,
		TakerOrderID: t.TakerID,
		Price:        FormatTicks(t.Price),
		Qty:          FormatTicks(t.Qty),
		TakerSide:    t.Taker.String(),
		Seq:          t.Seq,
		Timestamp:    t.Time.UnixNano(),
	}
}

// Level is one aggregated price level on a depth snapshot.
type Level struct {
	Price string `json:"price"`
	Qty   string `json:"qty"`
}

func FromLevel(l orderbook.LevelDepth) Level {
	return Level{Price: FormatTicks(l.Price), Qty: FormatTicks(l.Qty)}
}

// Depth is a point-in-time view of the book, best levels first.
type Depth struct {
	Seq  uint64  `json:"seq"`
	Bids []Level `json:"bids"`
	Asks []Level `json:"asks"`
}

// LevelUpdate reports the new aggregate quantity at one price after a
// matching step. Qty "0" means the level is gone.
type LevelUpdate struct {
	Side  string `json:"side"`
	Price string `json:"price"`
	Qty   string `json:"qty"`
}

func FromLevelChange(c orderbook.LevelChange) LevelUpdate {
	return LevelUpdate{
		Side:  c.Side.String(),
		Price: FormatTicks(c.Price),
		Qty:   FormatTicks(c.Qty),
	}
}
