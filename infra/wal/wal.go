// Package wal is the append-only trade journal: segmented files of
// CRC-framed trade records. It is a durability sink, not a recovery
// mechanism; the engine never reads it back to rebuild the book.
package wal

import (
	"fmt"
	"os"
	"path/filepath"

	"clob/domain/orderbook"
)

type Config struct {
	Dir         string
	SegmentSize int64
}

const defaultSegmentSize = 16 << 20

// Journal appends committed trades. Single-writer: it is driven only
// by the journal worker goroutine.
type Journal struct {
	dir      string
	segSize  int64
	current  *segment
	segIndex int
}

func Open(cfg Config) (*Journal, error) {
	if cfg.SegmentSize <= 0 {
		cfg.SegmentSize = defaultSegmentSize
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, err
	}

	index := lastSegmentIndex(cfg.Dir)
	seg, err := openSegment(cfg.Dir, index)
	if err != nil {
		return nil, err
	}

	return &Journal{
		dir:      cfg.Dir,
		segSize:  cfg.SegmentSize,
		current:  seg,
		segIndex: index,
	}, nil
}

// lastSegmentIndex resumes numbering on the highest existing segment
// (segments are append-only, so reopening it is safe) rather than
// overwriting history. Indexes are parsed out of the filenames:
// truncation leaves gaps, so counting files would land on the wrong
// segment.
func lastSegmentIndex(dir string) int {
	files, err := filepath.Glob(filepath.Join(dir, "trades-*.wal"))
	if err != nil || len(files) == 0 {
		return 0
	}
	max := 0
	for _, path := range files {
		var idx int
		if _, err := fmt.Sscanf(filepath.Base(path), "trades-%d.wal", &idx); err != nil {
			continue
		}
		if idx > max {
			max = idx
		}
	}
	return max
}

func (j *Journal) Append(t *orderbook.Trade) error {
	if err := j.current.append(encodeTrade(t)); err != nil {
		return err
	}
	if j.current.offset >= j.segSize {
		return j.rotate()
	}
	return nil
}

func (j *Journal) rotate() error {
	_ = j.current.close()
	j.segIndex++

	seg, err := openSegment(j.dir, j.segIndex)
	if err != nil {
		return err
	}
	j.current = seg
	return nil
}

// Sync flushes the current segment to stable storage.
func (j *Journal) Sync() error {
	return j.current.sync()
}

func (j *Journal) Close() error {
	return j.current.close()
}

// TruncateBefore removes whole segments whose trades all carry
// sequence numbers at or below seq. Retention maintenance, nothing
// more; the current segment is never removed.
func (j *Journal) TruncateBefore(seq uint64) error {
	files, err := filepath.Glob(filepath.Join(j.dir, "trades-*.wal"))
	if err != nil {
		return err
	}

	current := segmentPath(j.dir, j.segIndex)
	for _, path := range files {
		if path == current {
			continue
		}
		maxSeq, err := maxSeqInSegment(path)
		if err != nil {
			continue
		}
		if maxSeq <= seq {
			_ = os.Remove(path)
		}
	}
	return nil
}
