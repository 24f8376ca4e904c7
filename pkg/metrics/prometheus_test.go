package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecorderCounts(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := NewWithRegisterer(reg)

	r.RecordSubmission("succeeded")
	r.RecordSubmission("succeeded")
	r.RecordSubmission("failed")
	r.RecordValidationFailure("SPX")
	r.RecordLastPrediction(1234.5)
	r.RecordLatency("predict", 0.2)

	if got := testutil.ToFloat64(r.submissions.WithLabelValues("succeeded")); got != 2 {
		t.Fatalf("succeeded = %v, want 2", got)
	}
	if got := testutil.ToFloat64(r.validationFailures.WithLabelValues("SPX")); got != 1 {
		t.Fatalf("SPX failures = %v, want 1", got)
	}
	if got := testutil.ToFloat64(r.lastPrediction); got != 1234.5 {
		t.Fatalf("last prediction = %v", got)
	}
	if n := testutil.CollectAndCount(r.latency); n != 1 {
		t.Fatalf("latency series = %d, want 1", n)
	}
}
