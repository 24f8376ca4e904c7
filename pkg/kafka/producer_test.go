package kafka

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestProducerPublishEncodesValues(t *testing.T) {
	w := &fakeWriter{}
	p := NewProducerWithWriter(w, "gzip")
	ctx := context.Background()

	if err := p.Publish(ctx, "t", []byte("k"), []byte("raw")); err != nil {
		t.Fatalf("publish bytes: %v", err)
	}
	if err := p.Publish(ctx, "t", nil, map[string]int{"n": 1}); err != nil {
		t.Fatalf("publish json: %v", err)
	}
	if err := p.PublishMessage(ctx, "logs", "text"); err != nil {
		t.Fatalf("publish message: %v", err)
	}

	msgs := w.Messages()
	if len(msgs) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(msgs))
	}
	if string(msgs[0].Key) != "k" || string(msgs[0].Value) != "raw" {
		t.Fatalf("unexpected first message: %+v", msgs[0])
	}
	var decoded map[string]int
	if err := json.Unmarshal(msgs[1].Value, &decoded); err != nil || decoded["n"] != 1 {
		t.Fatalf("unexpected json payload %q: %v", msgs[1].Value, err)
	}
	if msgs[2].Topic != "logs" || msgs[2].Key != nil || string(msgs[2].Value) != "text" {
		t.Fatalf("unexpected log message: %+v", msgs[2])
	}
}

func TestNewProducerRequiresBrokers(t *testing.T) {
	if _, err := NewProducer(); err == nil {
		t.Fatal("expected error without brokers")
	}
}

func TestProducerMetricsAndClose(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := newProducerMetrics(reg)
	if err != nil {
		t.Fatalf("metrics: %v", err)
	}
	w := &fakeWriter{}
	p := &Producer{writer: w, codec: "none", metrics: m}

	if err := p.Publish(context.Background(), "submissions", nil, "x"); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if got := testutil.ToFloat64(m.messages.WithLabelValues("submissions", "ok")); got != 1 {
		t.Fatalf("messages ok = %v", got)
	}

	if err := p.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
}
