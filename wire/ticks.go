// Package wire holds the JSON schemas and fixed-point conversions
// shared by every outbound surface (HTTP, WebSocket, Kafka). The core
// trades in int64 ticks with 8 implied decimals; wire is where those
// ticks become decimal strings and nothing inside the core ever does.
package wire

import (
	"errors"

	"github.com/shopspring/decimal"
)

// TickDecimals is the number of implied decimal places in a tick.
const TickDecimals = 8

var (
	ErrNotANumber = errors.New("wire: not a decimal number")
	ErrTooPrecise = errors.New("wire: more than 8 decimal places")
	ErrOutOfRange = errors.New("wire: value out of range")
)

// ParseTicks converts a decimal string like "100.50" into ticks.
func ParseTicks(s string) (int64, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, ErrNotANumber
	}
	d = d.Shift(TickDecimals)
	if !d.IsInteger() {
		return 0, ErrTooPrecise
	}
	bi := d.BigInt()
	if !bi.IsInt64() {
		return 0, ErrOutOfRange
	}
	return bi.Int64(), nil
}

// FormatTicks renders ticks as a decimal string with trailing zeros
// trimmed, so 10050000000 becomes "100.5".
func FormatTicks(v int64) string {
	return decimal.New(v, -TickDecimals).String()
}
