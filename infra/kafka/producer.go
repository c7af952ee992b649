// Package kafka publishes depth snapshots to the market-data topic.
// Trades go through the outbox and a synchronous producer because they
// must not be lost; depth snapshots are ephemeral state, so a plain
// writer with no staging is the right tool.
package kafka

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"

	"clob/wire"
)

// All snapshots share one key so the topic can be log-compacted down
// to the latest book state.
const depthKey = "depth"

type DepthProducer struct {
	writer *kafka.Writer
}

func NewDepthProducer(brokers []string, topic string) *DepthProducer {
	return &DepthProducer{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			RequiredAcks: kafka.RequireAll,
			Async:        false,
			BatchTimeout: 10 * time.Millisecond,
		},
	}
}

// Publish encodes one depth snapshot and writes it under the shared
// compaction key.
func (p *DepthProducer) Publish(ctx context.Context, depth wire.Depth) error {
	payload, err := json.Marshal(depth)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(depthKey),
		Value: payload,
	})
}

func (p *DepthProducer) Close() error {
	return p.writer.Close()
}
