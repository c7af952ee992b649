package orderbook

import (
	"math/rand"
	"testing"
)

func BenchmarkInsertNoMatch(b *testing.B) {
	book := NewBook()
	m := NewMatcher(book)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		// Alternate sides across a wide spread so nothing crosses.
		if i%2 == 0 {
			_, _ = m.Process(newOrder(uint64(i+1), Buy, 99, 1))
		} else {
			_, _ = m.Process(newOrder(uint64(i+1), Sell, 101, 1))
		}
	}
}

func BenchmarkMatchPair(b *testing.B) {
	book := NewBook()
	m := NewMatcher(book)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = m.Process(newOrder(uint64(i*2+1), Sell, 100, 1))
		_, _ = m.Process(newOrder(uint64(i*2+2), Buy, 100, 1))
	}
}

func BenchmarkMixedFlow(b *testing.B) {
	book := NewBook()
	m := NewMatcher(book)
	rng := rand.New(rand.NewSource(1))

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		side := Side(rng.Intn(2))
		price := 90 + rng.Int63n(21)
		qty := rng.Int63n(10) + 1
		_, _ = m.Process(newOrder(uint64(i+1), side, price, qty))
	}
}

func BenchmarkDepth(b *testing.B) {
	book := NewBook()
	m := NewMatcher(book)
	for i := 0; i < 50000; i++ {
		if i%2 == 0 {
			_, _ = m.Process(newOrder(uint64(i+1), Buy, 99-int64(i%500), 10))
		} else {
			_, _ = m.Process(newOrder(uint64(i+1), Sell, 101+int64(i%500), 10))
		}
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		bids, asks := book.Depth(50)
		if len(bids) == 0 || len(asks) == 0 {
			b.Fatal("depth should not be empty")
		}
	}
}
