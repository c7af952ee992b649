package wal

import (
	"encoding/binary"
	"fmt"
	"time"

	"clob/domain/orderbook"
)

type recordType uint8

const recordTrade recordType = 0

// Frame layout:
//
//	[type:1][seq:8][time:8][len:4][payload][crc:4]
//
// crc covers everything before it. The payload for a trade record is
// fixed-size: [tradeID:8][makerID:8][takerID:8][price:8][qty:8][side:1].
const (
	headerSize       = 1 + 8 + 8 + 4
	tradePayloadSize = 8 + 8 + 8 + 8 + 8 + 1
)

func encodeTrade(t *orderbook.Trade) []byte {
	buf := make([]byte, headerSize+tradePayloadSize+4)

	buf[0] = byte(recordTrade)
	binary.BigEndian.PutUint64(buf[1:9], t.Seq)
	binary.BigEndian.PutUint64(buf[9:17], uint64(t.Time.UnixNano()))
	binary.BigEndian.PutUint32(buf[17:21], tradePayloadSize)

	p := buf[headerSize:]
	binary.BigEndian.PutUint64(p[0:8], t.ID)
	binary.BigEndian.PutUint64(p[8:16], t.MakerID)
	binary.BigEndian.PutUint64(p[16:24], t.TakerID)
	binary.BigEndian.PutUint64(p[24:32], uint64(t.Price))
	binary.BigEndian.PutUint64(p[32:40], uint64(t.Qty))
	p[40] = byte(t.Taker)

	crc := checksum(buf[:headerSize+tradePayloadSize])
	binary.BigEndian.PutUint32(buf[headerSize+tradePayloadSize:], crc)
	return buf
}

func decodeTrade(seq uint64, ts int64, payload []byte) (orderbook.Trade, error) {
	if len(payload) != tradePayloadSize {
		return orderbook.Trade{}, fmt.Errorf("wal: trade payload length %d", len(payload))
	}
	return orderbook.Trade{
		ID:      binary.BigEndian.Uint64(payload[0:8]),
		MakerID: binary.BigEndian.Uint64(payload[8:16]),
		TakerID: binary.BigEndian.Uint64(payload[16:24]),
		Price:   int64(binary.BigEndian.Uint64(payload[24:32])),
		Qty:     int64(binary.BigEndian.Uint64(payload[32:40])),
		Taker:   orderbook.Side(payload[40]),
		Seq:     seq,
		Time:    time.Unix(0, ts),
	}, nil
}
