// Package params holds runtime configuration. Values come from the
// environment, optionally seeded from a .env file; defaults are good
// for a local single-node run with Kafka disabled.
package params

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Engine struct {
	QueueSize     int
	SnapshotDepth int
	JournalRing   uint64
}

type Journal struct {
	Dir         string
	SegmentSize int64
}

type Kafka struct {
	Enabled       bool
	Brokers       []string
	TradeTopic    string
	DepthTopic    string
	OutboxDir     string
	FlushInterval time.Duration
	DepthInterval time.Duration
}

type API struct {
	Addr         string
	FeedBuffer   int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type Config struct {
	Engine  Engine
	Journal Journal
	Kafka   Kafka
	API     API
}

func Default() Config {
	return Config{
		Engine: Engine{
			QueueSize:     4096,
			SnapshotDepth: 50,
			JournalRing:   8192,
		},
		Journal: Journal{
			Dir:         "data/journal",
			SegmentSize: 16 << 20,
		},
		Kafka: Kafka{
			Enabled:       false,
			Brokers:       []string{"localhost:9092"},
			TradeTopic:    "clob.trades",
			DepthTopic:    "clob.depth",
			OutboxDir:     "data/outbox",
			FlushInterval: 250 * time.Millisecond,
			DepthInterval: time.Second,
		},
		API: API{
			Addr:         ":8080",
			FeedBuffer:   256,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
	}
}

// LoadFromEnv layers the environment over defaults. Priority:
// ENV > .env file > defaults.
func LoadFromEnv(envPath string) Config {
	cfg := Default()

	if envPath != "" {
		_ = godotenv.Load(envPath)
	} else {
		_ = godotenv.Load()
	}

	if v := os.Getenv("ENGINE_QUEUE_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Engine.QueueSize = n
		}
	}
	if v := os.Getenv("ENGINE_SNAPSHOT_DEPTH"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Engine.SnapshotDepth = n
		}
	}
	if v := os.Getenv("ENGINE_JOURNAL_RING"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil && n > 0 {
			cfg.Engine.JournalRing = n
		}
	}

	cfg.Journal.Dir = getEnv("JOURNAL_DIR", cfg.Journal.Dir)
	if v := os.Getenv("JOURNAL_SEGMENT_BYTES"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			cfg.Journal.SegmentSize = n
		}
	}

	if v := os.Getenv("KAFKA_ENABLED"); v != "" {
		cfg.Kafka.Enabled = v == "true"
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
	}
	cfg.Kafka.TradeTopic = getEnv("KAFKA_TRADE_TOPIC", cfg.Kafka.TradeTopic)
	cfg.Kafka.DepthTopic = getEnv("KAFKA_DEPTH_TOPIC", cfg.Kafka.DepthTopic)
	cfg.Kafka.OutboxDir = getEnv("OUTBOX_DIR", cfg.Kafka.OutboxDir)
	if v := os.Getenv("KAFKA_FLUSH_MS"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil && ms > 0 {
			cfg.Kafka.FlushInterval = time.Duration(ms) * time.Millisecond
		}
	}
	if v := os.Getenv("KAFKA_DEPTH_MS"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil && ms > 0 {
			cfg.Kafka.DepthInterval = time.Duration(ms) * time.Millisecond
		}
	}

	cfg.API.Addr = getEnv("API_ADDR", cfg.API.Addr)
	if v := os.Getenv("API_FEED_BUFFER"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.API.FeedBuffer = n
		}
	}

	return cfg
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
