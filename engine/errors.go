package engine

import "errors"

var (
	// ErrBackpressure rejects a submission because the ingestion queue
	// is full. No sequence number was consumed; the caller may retry.
	ErrBackpressure = errors.New("engine: ingestion queue full")

	// ErrClosed rejects submissions after shutdown has begun.
	ErrClosed = errors.New("engine: closed")
)
