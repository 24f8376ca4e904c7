package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	submissions        *prometheus.CounterVec
	validationFailures *prometheus.CounterVec
	recorded           *prometheus.CounterVec
	errorsTotal        *prometheus.CounterVec
	lastPrediction     prometheus.Gauge
	latency            *prometheus.HistogramVec
}

// New creates a recorder registered on the default registry.
func New() *Recorder {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer creates a recorder registered on reg.
func NewWithRegisterer(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		submissions: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "goldpredict_submissions_total",
				Help: "Completed form submissions by outcome",
			},
			[]string{"outcome"},
		),
		validationFailures: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "goldpredict_validation_failures_total",
				Help: "Fields rejected by validation",
			},
			[]string{"field"},
		),
		recorded: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "goldpredict_submissions_recorded_total",
				Help: "Submission records written to the audit backend",
			},
			[]string{"backend"},
		),
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "goldpredict_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		lastPrediction: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "goldpredict_last_prediction_usd",
				Help: "Most recent successful prediction",
			},
		),
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "goldpredict_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordSubmission counts a finished submission.
func (r *Recorder) RecordSubmission(outcome string) {
	r.submissions.WithLabelValues(outcome).Inc()
}

// RecordValidationFailure counts a field that failed validation.
func (r *Recorder) RecordValidationFailure(field string) {
	r.validationFailures.WithLabelValues(field).Inc()
}

// RecordRecorded counts a record written to backend.
func (r *Recorder) RecordRecorded(backend string) {
	r.recorded.WithLabelValues(backend).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLastPrediction stores the last predicted price.
func (r *Recorder) RecordLastPrediction(value float64) {
	r.lastPrediction.Set(value)
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}
