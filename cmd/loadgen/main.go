// loadgen drives the engine in-process with randomized flow and
// reports throughput. It journals nothing: the point is measuring the
// matching path.
package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"runtime/pprof"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"clob/domain/orderbook"
	"clob/engine"
	"clob/feed"
	"clob/journal"
	"clob/metrics"
)

func main() {
	totalOrders := flag.Int("orders", 500000, "number of orders to submit")
	producers := flag.Int("producers", 4, "concurrent submitting goroutines")
	priceLevels := flag.Int64("price-levels", 200, "unique price levels around the mid")
	basePrice := flag.Int64("base-price", 100_00000000, "mid price in ticks")
	tick := flag.Int64("tick", 1000000, "price step in ticks")
	queueSize := flag.Int("queue", 8192, "ingestion queue capacity")
	seed := flag.Int64("seed", time.Now().UnixNano(), "seed for the random order stream")
	cpuProfile := flag.String("cpuprofile", "", "write cpu profile to file")
	flag.Parse()

	if *cpuProfile != "" {
		f, err := os.Create(*cpuProfile)
		if err != nil {
			panic(err)
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			panic(err)
		}
		defer pprof.StopCPUProfile()
	}

	logger := zap.NewNop()
	met := metrics.New(nil)
	dist := feed.NewDistributor(logger, met)
	eng := engine.New(logger, met, dist, journal.Nop{}, engine.Config{QueueSize: *queueSize})

	ctx, cancel := context.WithCancel(context.Background())
	go eng.Run(ctx)

	// A strict subscriber sees every event, so its trade count is the
	// ground truth.
	sub := dist.Subscribe(feed.ModeStrict, *queueSize*2)
	var trades int64
	counted := make(chan struct{})
	go func() {
		defer close(counted)
		for ev := range sub.Events() {
			atomic.AddInt64(&trades, int64(len(ev.Trades)))
		}
	}()

	perProducer := *totalOrders / *producers
	latencies := make([][]time.Duration, *producers)
	var wg sync.WaitGroup
	start := time.Now()
	for p := 0; p < *producers; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(*seed + int64(p)))
			lats := make([]time.Duration, 0, perProducer)
			for i := 0; i < perProducer; i++ {
				side, price, qty := nextRandomOrder(rng, *basePrice, *priceLevels, *tick)
				t0 := time.Now()
				if _, err := eng.SubmitContext(ctx, side, price, qty); err != nil {
					fmt.Fprintf(os.Stderr, "submit failed: %v\n", err)
					return
				}
				lats = append(lats, time.Since(t0))
			}
			latencies[p] = lats
		}(p)
	}
	wg.Wait()

	// Drain: wait for the matcher to chew through the queue.
	for eng.Stats().Queued > 0 {
		time.Sleep(time.Millisecond)
	}
	elapsed := time.Since(start)

	cancel()
	<-eng.Done()
	dist.Close()
	<-counted

	st := eng.Stats()
	submitted := *producers * perProducer
	fmt.Printf("submitted %d orders in %s (%.0f orders/s)\n",
		submitted, elapsed.Truncate(time.Millisecond), float64(submitted)/elapsed.Seconds())
	fmt.Printf("matched %d trades (%.0f trades/s)\n",
		trades, float64(trades)/elapsed.Seconds())
	fmt.Printf("resting %d orders, last seq %d, rejected %d\n",
		st.Resting, st.LastSeq, st.Rejected)

	var all []time.Duration
	for _, lats := range latencies {
		all = append(all, lats...)
	}
	if len(all) > 0 {
		sort.Slice(all, func(i, j int) bool { return all[i] < all[j] })
		fmt.Printf("submit latency p50=%s p95=%s p99=%s max=%s\n",
			percentile(all, 0.50), percentile(all, 0.95),
			percentile(all, 0.99), all[len(all)-1])
	}
}

func percentile(sorted []time.Duration, q float64) time.Duration {
	idx := int(float64(len(sorted)-1) * q)
	return sorted[idx]
}

func nextRandomOrder(rng *rand.Rand, mid, width, tick int64) (orderbook.Side, int64, int64) {
	side := orderbook.Side(rng.Intn(2))
	var price int64
	if side == orderbook.Buy {
		price = mid + rng.Int63n(width)*tick
	} else {
		price = mid - rng.Int63n(width)*tick
	}
	if price <= 0 {
		price = tick
	}
	qty := (rng.Int63n(5) + 1) * 100000000
	return side, price, qty
}
