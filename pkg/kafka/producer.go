package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/segmentio/kafka-go"
)

// Writer is the subset of *kafka.Writer the producer uses.
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer publishes JSON or raw payloads through a kafka-go writer.
type Producer struct {
	writer    Writer
	codec     string
	metrics   *producerMetrics
	closeOnce sync.Once
	closeErr  error
}

// NewProducer creates a producer. The writer connects lazily on first publish.
func NewProducer(opts ...ProducerOption) (*Producer, error) {
	cfg := defaultProducerConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("brokers are required")
	}

	var balancer kafka.Balancer = &kafka.LeastBytes{}
	if cfg.HashByKey {
		balancer = &kafka.Hash{}
	}
	w := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Balancer:     balancer,
		RequiredAcks: kafka.RequiredAcks(cfg.RequiredAcks),
		Compression:  compressionCodec(cfg.Compression),
		MaxAttempts:  cfg.MaxAttempts,
		WriteTimeout: cfg.WriteTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		BatchSize:    cfg.BatchSize,
		BatchBytes:   int64(cfg.BatchBytes),
		BatchTimeout: cfg.BatchTimeout,
		Async:        cfg.Async,
	}

	m, err := newProducerMetrics(cfg.Registerer)
	if err != nil {
		return nil, err
	}
	return &Producer{writer: w, codec: cfg.Compression, metrics: m}, nil
}

// NewProducerWithWriter wraps an existing writer. Metrics go to the default registry.
func NewProducerWithWriter(w Writer, compression string) *Producer {
	m, _ := newProducerMetrics(nil)
	return &Producer{writer: w, codec: compression, metrics: m}
}

// Publish sends one message to topic. []byte and string values are sent as
// is; anything else is JSON encoded.
func (p *Producer) Publish(ctx context.Context, topic string, key []byte, value interface{}) error {
	start := time.Now()

	payload, err := encode(value)
	if err != nil {
		return err
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Topic: topic,
		Key:   key,
		Value: payload,
		Time:  start,
	})
	p.metrics.observe(topic, p.codec, len(payload), time.Since(start), err)
	return err
}

func encode(value interface{}) ([]byte, error) {
	switch v := value.(type) {
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	}
	b, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("marshal value: %w", err)
	}
	return b, nil
}

// PublishMessage publishes an unkeyed payload. It lets the producer serve
// as the log collector sink.
func (p *Producer) PublishMessage(ctx context.Context, topic string, payload interface{}) error {
	return p.Publish(ctx, topic, nil, payload)
}

// Close flushes pending writes and closes the writer. Later calls return the
// first result.
func (p *Producer) Close() error {
	p.closeOnce.Do(func() {
		if p.writer != nil {
			p.closeErr = p.writer.Close()
		}
	})
	return p.closeErr
}

func compressionCodec(s string) kafka.Compression {
	switch s {
	case "none":
		return 0
	case "snappy":
		return kafka.Snappy
	case "lz4":
		return kafka.Lz4
	case "zstd":
		return kafka.Zstd
	default:
		return kafka.Gzip
	}
}

type producerMetrics struct {
	messages *prometheus.CounterVec
	bytes    *prometheus.CounterVec
	latency  *prometheus.HistogramVec
}

var (
	defaultProducerMetrics     *producerMetrics
	defaultProducerMetricsOnce sync.Once
	defaultProducerMetricsErr  error
)

func newProducerMetrics(reg prometheus.Registerer) (*producerMetrics, error) {
	if reg == nil {
		defaultProducerMetricsOnce.Do(func() {
			defaultProducerMetrics, defaultProducerMetricsErr = buildProducerMetrics(prometheus.DefaultRegisterer)
		})
		return defaultProducerMetrics, defaultProducerMetricsErr
	}
	return buildProducerMetrics(reg)
}

func buildProducerMetrics(reg prometheus.Registerer) (*producerMetrics, error) {
	m := &producerMetrics{
		messages: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "goldpredict_kafka_producer_messages_total", Help: "Messages published by result"},
			[]string{"topic", "result"},
		),
		bytes: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "goldpredict_kafka_producer_bytes_total", Help: "Payload bytes published"},
			[]string{"topic", "compression"},
		),
		latency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{Name: "goldpredict_kafka_producer_publish_seconds", Help: "Publish latency", Buckets: prometheus.DefBuckets},
			[]string{"topic"},
		),
	}
	for _, col := range []prometheus.Collector{m.messages, m.bytes, m.latency} {
		if err := reg.Register(col); err != nil {
			return nil, fmt.Errorf("register producer metrics: %w", err)
		}
	}
	return m, nil
}

func (m *producerMetrics) observe(topic, codec string, n int, d time.Duration, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.messages.WithLabelValues(topic, result).Inc()
	m.bytes.WithLabelValues(topic, codec).Add(float64(n))
	m.latency.WithLabelValues(topic).Observe(d.Seconds())
}
