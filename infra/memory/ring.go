package memory

import "sync/atomic"

// Ring is a lock-free single-producer single-consumer ring buffer.
// The engine loop produces, a background worker consumes; no other
// goroutine may touch either end.
type Ring[T any] struct {
	head  uint64
	_pad1 [56]byte
	tail  uint64
	_pad2 [56]byte
	buf   []*T
	mask  uint64
}

func NewRing[T any](size uint64) *Ring[T] {
	if size&(size-1) != 0 {
		panic("memory: ring size must be a power of two")
	}
	return &Ring[T]{
		buf:  make([]*T, size),
		mask: size - 1,
	}
}

// Enqueue returns false when the ring is full; the producer decides
// what losing an element means.
func (r *Ring[T]) Enqueue(v *T) bool {
	h := r.head
	t := atomic.LoadUint64(&r.tail)
	if h-t == uint64(len(r.buf)) {
		return false
	}
	r.buf[h&r.mask] = v
	atomic.StoreUint64(&r.head, h+1)
	return true
}

// Dequeue returns nil when the ring is empty.
func (r *Ring[T]) Dequeue() *T {
	t := r.tail
	h := atomic.LoadUint64(&r.head)
	if t == h {
		return nil
	}
	v := r.buf[t&r.mask]
	r.buf[t&r.mask] = nil
	atomic.StoreUint64(&r.tail, t+1)
	return v
}

// Len is approximate under concurrency; exact when quiesced.
func (r *Ring[T]) Len() int {
	return int(atomic.LoadUint64(&r.head) - atomic.LoadUint64(&r.tail))
}
