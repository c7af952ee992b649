package wal

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"clob/domain/orderbook"
)

// Scan replays every journaled trade in sequence order, for audit and
// offline tooling. Frames that fail their CRC stop the scan with an
// error; a clean EOF inside a segment ends that segment.
func Scan(dir string, fn func(orderbook.Trade) error) (lastSeq uint64, err error) {
	files, err := filepath.Glob(filepath.Join(dir, "trades-*.wal"))
	if err != nil {
		return 0, err
	}
	sort.Strings(files)

	for _, path := range files {
		f, err := os.Open(path)
		if err != nil {
			return lastSeq, err
		}

		for {
			t, err := readFrame(f)
			if err == io.EOF {
				break
			}
			if err != nil {
				_ = f.Close()
				return lastSeq, fmt.Errorf("wal: %s: %w", filepath.Base(path), err)
			}

			lastSeq = t.Seq
			if err := fn(t); err != nil {
				_ = f.Close()
				return lastSeq, err
			}
		}
		_ = f.Close()
	}
	return lastSeq, nil
}

func readFrame(r io.Reader) (orderbook.Trade, error) {
	header := make([]byte, headerSize)
	if _, err := io.ReadFull(r, header); err != nil {
		if err == io.ErrUnexpectedEOF {
			err = io.EOF
		}
		return orderbook.Trade{}, err
	}

	if recordType(header[0]) != recordTrade {
		return orderbook.Trade{}, fmt.Errorf("unknown record type %d", header[0])
	}
	seq := binary.BigEndian.Uint64(header[1:9])
	ts := int64(binary.BigEndian.Uint64(header[9:17]))
	plen := binary.BigEndian.Uint32(header[17:21])

	body := make([]byte, plen+4)
	if _, err := io.ReadFull(r, body); err != nil {
		return orderbook.Trade{}, err
	}

	payload := body[:plen]
	crc := binary.BigEndian.Uint32(body[plen:])
	if checksum(append(header, payload...)) != crc {
		return orderbook.Trade{}, fmt.Errorf("crc mismatch at seq %d", seq)
	}

	return decodeTrade(seq, ts, payload)
}

// maxSeqInSegment scans one segment for its highest sequence number.
// Used only by TruncateBefore.
func maxSeqInSegment(path string) (uint64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	var max uint64
	for {
		header := make([]byte, headerSize)
		if _, err := io.ReadFull(f, header); err != nil {
			if err == io.EOF || err == io.ErrUnexpectedEOF {
				return max, nil
			}
			return max, err
		}

		if seq := binary.BigEndian.Uint64(header[1:9]); seq > max {
			max = seq
		}

		plen := binary.BigEndian.Uint32(header[17:21])
		if _, err := f.Seek(int64(plen+4), io.SeekCurrent); err != nil {
			return max, err
		}
	}
}
