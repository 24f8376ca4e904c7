package repository

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"GoldPredict/internal/domain/models"
	pkgkafka "GoldPredict/pkg/kafka"

	"github.com/google/go-cmp/cmp"
	"github.com/segmentio/kafka-go"
)

type fakeWriter struct {
	mu     sync.Mutex
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
	return nil
}

func TestKafkaPublisherKeysBySession(t *testing.T) {
	w := &fakeWriter{}
	pub := NewKafkaPublisher(pkgkafka.NewProducerWithWriter(w, "none"), "goldpredict.submissions")

	started := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	rec := &models.SubmissionRecord{
		SessionID:  "6f1c1a52-8e0f-4a54-9c1b-0d5f5b0b8a11",
		Values:     models.FormValues{SPX: 4500, USO: 70, SLV: 22, EURUSD: 1.1},
		Outcome:    models.OutcomeSucceeded,
		Prediction: 1234.5,
		StartedAt:  started,
		FinishedAt: started.Add(250 * time.Millisecond),
	}
	if err := pub.Publish(context.Background(), rec); err != nil {
		t.Fatalf("publish: %v", err)
	}

	if len(w.msgs) != 1 {
		t.Fatalf("expected 1 message, got %d", len(w.msgs))
	}
	msg := w.msgs[0]
	if msg.Topic != "goldpredict.submissions" || string(msg.Key) != rec.SessionID {
		t.Fatalf("unexpected topic/key: %q %q", msg.Topic, msg.Key)
	}
	var got models.SubmissionRecord
	if err := json.Unmarshal(msg.Value, &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if diff := cmp.Diff(*rec, got); diff != "" {
		t.Fatalf("payload (-want +got):\n%s", diff)
	}

	if err := pub.Close(); err != nil || w.closed {
		t.Fatalf("publisher must leave the shared producer open: err=%v closed=%v", err, w.closed)
	}
}

func TestKafkaPublisherPropagatesWriteError(t *testing.T) {
	boom := errors.New("broker down")
	pub := NewKafkaPublisher(pkgkafka.NewProducerWithWriter(&fakeWriter{err: boom}, "none"), "t")
	err := pub.Publish(context.Background(), &models.SubmissionRecord{SessionID: "s"})
	if !errors.Is(err, boom) {
		t.Fatalf("expected broker error, got %v", err)
	}
}

func TestSubmissionsSchema(t *testing.T) {
	stmts := SubmissionsSchema("analytics")
	if len(stmts) != 2 {
		t.Fatalf("expected 2 statements, got %d", len(stmts))
	}
	if stmts[0] != "CREATE DATABASE IF NOT EXISTS analytics" {
		t.Fatalf("unexpected database statement: %q", stmts[0])
	}
	for _, col := range []string{"analytics.submissions", "session_id String", "outcome LowCardinality(String)", "latency_ms UInt32", "ENGINE = MergeTree"} {
		if !strings.Contains(stmts[1], col) {
			t.Errorf("table statement missing %q", col)
		}
	}
}

func TestNewClickHouseStorageTable(t *testing.T) {
	s := NewClickHouseStorage(nil, "goldpredict")
	if s.table != "goldpredict.submissions" {
		t.Fatalf("table = %q", s.table)
	}
}
