package di

import (
	"testing"

	"GoldPredict/internal/service/ratelimit"
	"GoldPredict/pkg/config"
)

func TestOptionalProvidersStayNil(t *testing.T) {
	cfg := config.Default()
	cfg.Audit.Backend = config.AuditNone
	cfg.RateLimit.Enabled = false

	producer, cleanup, err := ProvideKafkaProducer(cfg)
	if err != nil || producer != nil {
		t.Fatalf("producer = %v, err = %v; want nil", producer, err)
	}
	cleanup()

	client, cleanup, err := ProvideClickHouseClient(cfg)
	if err != nil || client != nil {
		t.Fatalf("clickhouse client = %v, err = %v; want nil", client, err)
	}
	cleanup()

	store, err := ProvideSubmissionStorage(cfg, nil, nil)
	if err != nil || store != nil {
		t.Fatalf("storage = %v, err = %v; want nil", store, err)
	}
	if pub := ProvideSubmissionPublisher(cfg, nil); pub != nil {
		t.Fatalf("publisher = %v; want nil", pub)
	}

	limiter, cleanup, err := ProvideSubmissionLimiter(cfg)
	if err != nil || limiter != nil {
		t.Fatalf("limiter = %v, err = %v; want nil", limiter, err)
	}
	cleanup()
}

func TestProvideSubmissionLimiterMemory(t *testing.T) {
	cfg := config.Default()
	cfg.RateLimit.Backend = config.LimiterMemory

	limiter, cleanup, err := ProvideSubmissionLimiter(cfg)
	if err != nil {
		t.Fatalf("limiter: %v", err)
	}
	defer cleanup()
	if _, ok := limiter.(*ratelimit.Limiter); !ok {
		t.Fatalf("expected token bucket limiter, got %T", limiter)
	}
}

func TestProvideKafkaProducerForAudit(t *testing.T) {
	cfg := config.Default()
	cfg.Audit.Backend = config.AuditKafka
	cfg.Kafka.Brokers = []string{"localhost:9092"}

	producer, cleanup, err := ProvideKafkaProducer(cfg)
	if err != nil || producer == nil {
		t.Fatalf("producer = %v, err = %v", producer, err)
	}
	defer cleanup()

	if pub := ProvideSubmissionPublisher(cfg, producer); pub == nil {
		t.Fatal("expected a kafka publisher")
	}
}

func TestSplitAddr(t *testing.T) {
	host, port, err := splitAddr("redis.internal:6380")
	if err != nil || host != "redis.internal" || port != 6380 {
		t.Fatalf("got %q %d %v", host, port, err)
	}
	if _, _, err := splitAddr("redis.internal"); err == nil {
		t.Fatal("expected error for missing port")
	}
}
