package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"GoldPredict/internal/domain/models"
	domrepo "GoldPredict/internal/domain/repository"
	pkgkafka "GoldPredict/pkg/kafka"
)

// KafkaSubmissionsHandler consumes submission records from Kafka and writes them to storage.
type KafkaSubmissionsHandler struct {
	topic   string
	storage domrepo.Storage
	metrics domrepo.Metrics
}

func NewKafkaSubmissionsHandler(topic string, storage domrepo.Storage, metrics domrepo.Metrics) *KafkaSubmissionsHandler {
	return &KafkaSubmissionsHandler{topic: topic, storage: storage, metrics: metrics}
}

func (h *KafkaSubmissionsHandler) Topic() string { return h.topic }

func (h *KafkaSubmissionsHandler) Handle(ctx context.Context, b []byte) error {
	var rec models.SubmissionRecord
	if err := json.Unmarshal(b, &rec); err != nil {
		h.metrics.RecordError("consumer_unmarshal")
		return err
	}
	if rec.SessionID == "" || rec.Outcome == "" {
		h.metrics.RecordError("consumer_invalid")
		return fmt.Errorf("incomplete submission record")
	}
	// E2E latency from completion to now (approx)
	if !rec.FinishedAt.IsZero() {
		h.metrics.RecordLatency("sink_e2e", time.Since(rec.FinishedAt).Seconds())
	}

	start := time.Now()
	err := h.storage.Store(ctx, &rec)
	h.metrics.RecordLatency("ch_insert", time.Since(start).Seconds())
	if err != nil {
		h.metrics.RecordError("consumer_store")
		return err
	}
	h.metrics.RecordRecorded(BackendClickHouse)
	return nil
}

var _ pkgkafka.MessageHandler = (*KafkaSubmissionsHandler)(nil)
