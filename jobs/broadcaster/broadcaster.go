// Package broadcaster drains the delivery outbox into Kafka. It runs
// beside the engine, never inside it: a broker outage grows the
// outbox, it does not touch matching.
package broadcaster

import (
	"context"
	"strconv"
	"time"

	"github.com/IBM/sarama"
	"go.uber.org/zap"

	"clob/infra/outbox"
	"clob/metrics"
)

// Connect builds a synchronous producer with full-ISR acks, matching
// the at-least-once contract of the outbox.
func Connect(brokers []string) (sarama.SyncProducer, error) {
	cfg := sarama.NewConfig()
	cfg.Producer.Return.Successes = true
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Retry.Max = 5

	return sarama.NewSyncProducer(brokers, cfg)
}

type Broadcaster struct {
	log *zap.Logger
	met *metrics.Metrics

	out      *outbox.Outbox
	producer sarama.SyncProducer
	topic    string
	interval time.Duration
}

func New(log *zap.Logger, met *metrics.Metrics, out *outbox.Outbox, producer sarama.SyncProducer, topic string, interval time.Duration) *Broadcaster {
	if interval <= 0 {
		interval = 250 * time.Millisecond
	}
	return &Broadcaster{
		log:      log.Named("broadcaster"),
		met:      met,
		out:      out,
		producer: producer,
		topic:    topic,
		interval: interval,
	}
}

// Run polls the outbox until ctx is cancelled. One final pass runs on
// shutdown so trades journaled during drain still go out.
func (b *Broadcaster) Run(ctx context.Context) {
	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()

	b.log.Info("broadcaster started", zap.String("topic", b.topic))
	for {
		select {
		case <-ctx.Done():
			b.publishPending()
			return
		case <-ticker.C:
			b.publishPending()
		}
	}
}

// publishPending walks NEW and SENT entries in trade-ID order. Each is
// marked SENT before the send, so a crash between send and ack leaves
// the entry to be retried. Duplicates are the price of at-least-once.
func (b *Broadcaster) publishPending() {
	var acked uint64

	err := b.out.ScanPending(func(tradeID uint64, e outbox.Entry) error {
		if err := b.out.MarkSent(tradeID); err != nil {
			return err
		}

		_, _, err := b.producer.SendMessage(&sarama.ProducerMessage{
			Topic: b.topic,
			Key:   sarama.StringEncoder(strconv.FormatUint(tradeID, 10)),
			Value: sarama.ByteEncoder(e.Payload),
		})
		if err != nil {
			b.met.OutboxRetries.Inc()
			b.log.Warn("publish failed, will retry",
				zap.Uint64("trade_id", tradeID), zap.Error(err))
			// Leave the entry SENT; the next pass retries it.
			return nil
		}

		if err := b.out.MarkAcked(tradeID); err != nil {
			return err
		}
		b.met.OutboxPublished.Inc()
		acked = tradeID
		return nil
	})
	if err != nil {
		b.log.Error("outbox scan failed", zap.Error(err))
		return
	}

	if acked > 0 {
		if err := b.out.DeleteAcked(acked); err != nil {
			b.log.Warn("outbox gc failed", zap.Error(err))
		}
	}
}

func (b *Broadcaster) Close() error {
	return b.producer.Close()
}
