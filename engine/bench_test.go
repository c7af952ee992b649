package engine

import (
	"context"
	"math/rand"
	"sync/atomic"
	"testing"

	"go.uber.org/zap"

	"clob/domain/orderbook"
	"clob/feed"
	"clob/journal"
	"clob/metrics"
)

func benchEngine(b *testing.B) (*Engine, context.CancelFunc) {
	dist := feed.NewDistributor(zap.NewNop(), metrics.New(nil))
	eng := New(zap.NewNop(), metrics.New(nil), dist, journal.Nop{}, Config{QueueSize: 1 << 16})

	ctx, cancel := context.WithCancel(context.Background())
	go eng.Run(ctx)
	return eng, func() {
		cancel()
		<-eng.Done()
		dist.Close()
	}
}

func BenchmarkSubmitSingleProducer(b *testing.B) {
	eng, stop := benchEngine(b)
	defer stop()

	ctx := context.Background()
	rng := rand.New(rand.NewSource(1))

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		side := orderbook.Side(rng.Intn(2))
		price := 90 + rng.Int63n(21)
		_, _ = eng.SubmitContext(ctx, side, price, 1)
	}
}

func BenchmarkSubmitParallel(b *testing.B) {
	eng, stop := benchEngine(b)
	defer stop()

	ctx := context.Background()
	var seed atomic.Int64

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		rng := rand.New(rand.NewSource(seed.Add(1)))
		for pb.Next() {
			side := orderbook.Side(rng.Intn(2))
			price := 90 + rng.Int63n(21)
			_, _ = eng.SubmitContext(ctx, side, price, 1)
		}
	})
}
