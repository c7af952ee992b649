package orderbook

import (
	"errors"
	"time"
)

type Side uint8

const (
	Buy Side = iota
	Sell
)

func (s Side) String() string {
	if s == Sell {
		return "sell"
	}
	return "buy"
}

// Opposite returns the side an incoming order matches against.
func (s Side) Opposite() Side {
	if s == Buy {
		return Sell
	}
	return Buy
}

// ErrInvalidOrder rejects non-positive prices or quantities before a
// sequence number is consumed.
var ErrInvalidOrder = errors.New("invalid order: price and quantity must be positive")

// Order is a pure domain entity. Once accepted it is owned exclusively
// by the book; only the matcher decrements Remaining.
//
// Prices and quantities are fixed-point ticks (8 implied decimals at
// the external boundary); the core never sees a float.
type Order struct {
	ID        uint64
	Side      Side
	Price     int64
	Qty       int64 // original quantity
	Remaining int64
	Seq       uint64
	Arrived   time.Time // informational only, never a matching input

	next *Order
	prev *Order
}

func (o *Order) Filled() int64 {
	return o.Qty - o.Remaining
}

// Next walks the FIFO chain inside a price level. Read-only.
func (o *Order) Next() *Order {
	return o.next
}

// Validate applies the admission checks shared by Submit and Process.
func Validate(price, qty int64) error {
	if price <= 0 || qty <= 0 {
		return ErrInvalidOrder
	}
	return nil
}
