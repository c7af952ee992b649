// Package depthfeed periodically publishes the latest book snapshot to
// a Kafka topic for downstream dashboards. Snapshots supersede each
// other, so there is no outbox here: a missed tick is replaced by the
// next one.
package depthfeed

import (
	"context"
	"time"

	"go.uber.org/zap"

	"clob/engine"
	"clob/wire"
)

// Producer is what the publisher needs from the transport; satisfied
// by kafka.DepthProducer.
type Producer interface {
	Publish(ctx context.Context, depth wire.Depth) error
}

type Publisher struct {
	log      *zap.Logger
	eng      *engine.Engine
	producer Producer
	interval time.Duration

	lastSeq uint64
}

func New(log *zap.Logger, eng *engine.Engine, producer Producer, interval time.Duration) *Publisher {
	if interval <= 0 {
		interval = time.Second
	}
	return &Publisher{
		log:      log.Named("depthfeed"),
		eng:      eng,
		producer: producer,
		interval: interval,
	}
}

func (p *Publisher) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.publish(ctx)
		}
	}
}

func (p *Publisher) publish(ctx context.Context) {
	snap := p.eng.Snapshot()
	if snap.Seq == p.lastSeq {
		return
	}

	depth := wire.Depth{
		Seq:  snap.Seq,
		Bids: make([]wire.Level, 0, len(snap.Bids)),
		Asks: make([]wire.Level, 0, len(snap.Asks)),
	}
	for _, l := range snap.Bids {
		depth.Bids = append(depth.Bids, wire.FromLevel(l))
	}
	for _, l := range snap.Asks {
		depth.Asks = append(depth.Asks, wire.FromLevel(l))
	}

	if err := p.producer.Publish(ctx, depth); err != nil {
		p.log.Warn("depth publish failed", zap.Error(err))
		return
	}
	p.lastSeq = snap.Seq
}
