package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"clob/api"
	"clob/engine"
	"clob/feed"
	"clob/infra/kafka"
	"clob/infra/outbox"
	"clob/infra/wal"
	"clob/jobs/broadcaster"
	"clob/jobs/depthfeed"
	"clob/journal"
	"clob/metrics"
	"clob/params"
	"clob/util"
)

func main() {
	cfg := params.LoadFromEnv("")

	logger, err := util.NewLogger()
	if err != nil {
		log.Fatalf("logger init failed: %v", err)
	}
	defer logger.Sync()

	reg := prometheus.NewRegistry()
	met := metrics.New(reg)

	// ---------------- Journal ----------------

	jnl, err := wal.Open(wal.Config{
		Dir:         cfg.Journal.Dir,
		SegmentSize: cfg.Journal.SegmentSize,
	})
	if err != nil {
		logger.Fatal("journal open failed", zap.Error(err))
	}
	defer jnl.Close()

	var out *outbox.Outbox
	if cfg.Kafka.Enabled {
		out, err = outbox.Open(cfg.Kafka.OutboxDir)
		if err != nil {
			logger.Fatal("outbox open failed", zap.Error(err))
		}
		defer out.Close()
	}

	writer := journal.NewWriter(logger, met, jnl, out, cfg.Engine.JournalRing)

	// ---------------- Engine ----------------

	dist := feed.NewDistributor(logger, met)
	eng := engine.New(logger, met, dist, writer, engine.Config{
		QueueSize:     cfg.Engine.QueueSize,
		SnapshotDepth: cfg.Engine.SnapshotDepth,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// The journal writer gets its own lifetime: it must outlive the
	// engine's shutdown drain, or trades produced during the drain
	// would miss the final flush.
	writerCtx, writerCancel := context.WithCancel(context.Background())
	defer writerCancel()

	go eng.Run(ctx)
	go writer.Run(writerCtx)

	// ---------------- Kafka jobs ----------------

	if cfg.Kafka.Enabled {
		producer, err := broadcaster.Connect(cfg.Kafka.Brokers)
		if err != nil {
			logger.Fatal("kafka connect failed", zap.Error(err))
		}
		bc := broadcaster.New(logger, met, out, producer, cfg.Kafka.TradeTopic, cfg.Kafka.FlushInterval)
		defer bc.Close()
		go bc.Run(ctx)

		depthProducer := kafka.NewDepthProducer(cfg.Kafka.Brokers, cfg.Kafka.DepthTopic)
		defer depthProducer.Close()
		go depthfeed.New(logger, eng, depthProducer, cfg.Kafka.DepthInterval).Run(ctx)
	}

	// ---------------- API ----------------

	srv := api.NewServer(logger, eng, dist, reg, cfg.API)
	go func() {
		if err := srv.Start(); err != nil {
			logger.Error("api server exited", zap.Error(err))
			cancel()
		}
	}()

	// ---------------- Shutdown ----------------

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	select {
	case s := <-sig:
		logger.Info("shutting down", zap.String("signal", s.String()))
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = srv.Shutdown(shutdownCtx)

	// Stop the engine, wait for it to drain accepted orders, then let
	// the journal writer flush what the drain produced.
	cancel()
	<-eng.Done()
	writerCancel()
	<-writer.Done()
	dist.Close()

	logger.Info("bye")
}
