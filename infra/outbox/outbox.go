// Package outbox is the durable hand-off between the engine and the
// Kafka broadcaster: every committed trade is staged here and removed
// only after the broker acknowledges it, giving at-least-once delivery
// without ever coupling the matcher to broker availability.
package outbox

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/cockroachdb/pebble"
)

type State uint8

const (
	StateNew State = iota
	StateSent
	StateAcked
)

func (s State) String() string {
	switch s {
	case StateNew:
		return "NEW"
	case StateSent:
		return "SENT"
	case StateAcked:
		return "ACKED"
	default:
		return "UNKNOWN"
	}
}

type Entry struct {
	State       State
	Retries     uint32
	LastAttempt int64
	Payload     []byte
}

// value encoding: [state:1][retries:4][lastAttempt:8][payload...]
func encodeEntry(e Entry) []byte {
	buf := make([]byte, 1+4+8+len(e.Payload))
	buf[0] = byte(e.State)
	binary.BigEndian.PutUint32(buf[1:5], e.Retries)
	binary.BigEndian.PutUint64(buf[5:13], uint64(e.LastAttempt))
	copy(buf[13:], e.Payload)
	return buf
}

func decodeEntry(b []byte) (Entry, error) {
	if len(b) < 13 {
		return Entry{}, errors.New("outbox: entry too short")
	}
	e := Entry{
		State:       State(b[0]),
		Retries:     binary.BigEndian.Uint32(b[1:5]),
		LastAttempt: int64(binary.BigEndian.Uint64(b[5:13])),
	}
	e.Payload = append([]byte(nil), b[13:]...)
	return e, nil
}

type Outbox struct {
	db *pebble.DB
}

func Open(dir string) (*Outbox, error) {
	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, err
	}
	return &Outbox{db: db}, nil
}

func (o *Outbox) Close() error {
	return o.db.Close()
}

// Put stages a new trade for delivery, keyed by trade ID.
func (o *Outbox) Put(tradeID uint64, payload []byte) error {
	e := Entry{State: StateNew, Payload: payload}
	return o.db.Set(keyFor(tradeID), encodeEntry(e), pebble.Sync)
}

// MarkSent records a delivery attempt, bumping the retry count.
func (o *Outbox) MarkSent(tradeID uint64) error {
	e, err := o.Get(tradeID)
	if err != nil {
		return err
	}
	e.State = StateSent
	e.Retries++
	e.LastAttempt = time.Now().UnixNano()
	return o.db.Set(keyFor(tradeID), encodeEntry(e), pebble.Sync)
}

// MarkAcked records broker acknowledgement.
func (o *Outbox) MarkAcked(tradeID uint64) error {
	e, err := o.Get(tradeID)
	if err != nil {
		return err
	}
	e.State = StateAcked
	return o.db.Set(keyFor(tradeID), encodeEntry(e), pebble.Sync)
}

func (o *Outbox) Get(tradeID uint64) (Entry, error) {
	val, closer, err := o.db.Get(keyFor(tradeID))
	if err != nil {
		return Entry{}, err
	}
	defer closer.Close()
	return decodeEntry(val)
}

// ScanPending visits every entry not yet acknowledged, in trade-ID
// order. Sent-but-unacked entries are included so a crashed attempt is
// retried (duplicates are the consumer's problem, per at-least-once).
func (o *Outbox) ScanPending(fn func(tradeID uint64, e Entry) error) error {
	iter, err := o.db.NewIter(&pebble.IterOptions{
		LowerBound: []byte(keyPrefix),
		UpperBound: []byte(keyPrefix + "~"),
	})
	if err != nil {
		return err
	}
	defer iter.Close()

	for iter.First(); iter.Valid(); iter.Next() {
		e, err := decodeEntry(iter.Value())
		if err != nil {
			return err
		}
		if e.State == StateAcked {
			continue
		}

		id, err := parseKey(iter.Key())
		if err != nil {
			return err
		}
		if err := fn(id, e); err != nil {
			return err
		}
	}
	return iter.Error()
}

// DeleteAcked removes acknowledged entries with trade ID at or below
// the given bound. Periodic garbage collection.
func (o *Outbox) DeleteAcked(upTo uint64) error {
	iter, err := o.db.NewIter(&pebble.IterOptions{
		LowerBound: []byte(keyPrefix),
		UpperBound: []byte(keyPrefix + "~"),
	})
	if err != nil {
		return err
	}
	defer iter.Close()

	for iter.First(); iter.Valid(); iter.Next() {
		e, err := decodeEntry(iter.Value())
		if err != nil {
			return err
		}
		if e.State != StateAcked {
			continue
		}
		id, err := parseKey(iter.Key())
		if err != nil {
			return err
		}
		if id > upTo {
			break
		}
		if err := o.db.Delete(append([]byte(nil), iter.Key()...), pebble.Sync); err != nil {
			return err
		}
	}
	return iter.Error()
}

const keyPrefix = "trade/"

func keyFor(tradeID uint64) []byte {
	return []byte(fmt.Sprintf("%s%020d", keyPrefix, tradeID))
}

func parseKey(b []byte) (uint64, error) {
	var id uint64
	_, err := fmt.Sscanf(string(bytes.TrimPrefix(b, []byte(keyPrefix))), "%d", &id)
	return id, err
}
