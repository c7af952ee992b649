package depthfeed

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"clob/domain/orderbook"
	"clob/engine"
	"clob/feed"
	"clob/journal"
	"clob/metrics"
	"clob/wire"
)

type fakeProducer struct {
	sent []wire.Depth
	err  error
}

func (f *fakeProducer) Publish(_ context.Context, d wire.Depth) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, d)
	return nil
}

func startEngine(t *testing.T) (*engine.Engine, context.CancelFunc) {
	t.Helper()
	log := zap.NewNop()
	met := metrics.New(nil)
	eng := engine.New(log, met, feed.NewDistributor(log, met), journal.Nop{}, engine.Config{})
	ctx, cancel := context.WithCancel(context.Background())
	go eng.Run(ctx)
	return eng, cancel
}

func waitForSeq(t *testing.T, eng *engine.Engine, seq uint64) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for eng.Snapshot().Seq < seq {
		if time.Now().After(deadline) {
			t.Fatalf("snapshot never reached seq %d", seq)
		}
		time.Sleep(time.Millisecond)
	}
}

func TestPublishSkipsUnchangedBook(t *testing.T) {
	eng, cancel := startEngine(t)
	defer func() { cancel(); <-eng.Done() }()

	_, err := eng.Submit(orderbook.Buy, 100_00000000, 5_00000000)
	require.NoError(t, err)
	_, err = eng.Submit(orderbook.Sell, 101_00000000, 3_00000000)
	require.NoError(t, err)
	waitForSeq(t, eng, 2)

	fake := &fakeProducer{}
	p := New(zap.NewNop(), eng, fake, time.Second)

	p.publish(context.Background())
	p.publish(context.Background())
	require.Len(t, fake.sent, 1, "unchanged book must not republish")

	d := fake.sent[0]
	require.Equal(t, uint64(2), d.Seq)
	require.Len(t, d.Bids, 1)
	require.Len(t, d.Asks, 1)
	require.Equal(t, "100", d.Bids[0].Price)
	require.Equal(t, "101", d.Asks[0].Price)
}

func TestPublishRetriesAfterTransportError(t *testing.T) {
	eng, cancel := startEngine(t)
	defer func() { cancel(); <-eng.Done() }()

	_, err := eng.Submit(orderbook.Buy, 100_00000000, 1_00000000)
	require.NoError(t, err)
	waitForSeq(t, eng, 1)

	fake := &fakeProducer{err: errors.New("broker down")}
	p := New(zap.NewNop(), eng, fake, time.Second)

	p.publish(context.Background())
	require.Empty(t, fake.sent)

	// A failed send must not advance the dedupe cursor.
	fake.err = nil
	p.publish(context.Background())
	require.Len(t, fake.sent, 1)
}
