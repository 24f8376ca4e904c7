package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"GoldPredict/internal/domain/models"
	drepo "GoldPredict/internal/domain/repository"
	applogger "GoldPredict/pkg/logger"
)

// Audit backends.
const (
	BackendNone       = "none"
	BackendKafka      = "kafka"
	BackendClickHouse = "clickhouse"
)

const defaultRecordQueueSize = 256

// RecorderOption configures SubmissionRecorder.
type RecorderOption func(*SubmissionRecorder)

// WithRecordQueueSize bounds the number of records waiting for the backend.
func WithRecordQueueSize(n int) RecorderOption {
	return func(r *SubmissionRecorder) {
		if n > 0 {
			r.queueSize = n
		}
	}
}

// SubmissionRecorder routes submission records to the configured backend.
// Records are written by a background worker; a full queue drops the record.
// Failures are logged and counted; they never reach the visitor.
type SubmissionRecorder struct {
	pub     drepo.Publisher
	store   drepo.Storage
	metrics drepo.Metrics
	logger  *applogger.Logger
	backend string
	timeout time.Duration

	queueSize int
	queue     chan *models.SubmissionRecord
	done      chan struct{}
	mu        sync.RWMutex
	closed    bool
	closeOnce sync.Once
}

// NewSubmissionRecorder creates the recorder and starts its worker.
func NewSubmissionRecorder(
	pub drepo.Publisher,
	store drepo.Storage,
	metrics drepo.Metrics,
	logger *applogger.Logger,
	backend string,
	timeout time.Duration,
	opts ...RecorderOption,
) *SubmissionRecorder {
	if backend == "" {
		backend = BackendNone
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	r := &SubmissionRecorder{
		pub:       pub,
		store:     store,
		metrics:   metrics,
		logger:    logger,
		backend:   backend,
		timeout:   timeout,
		queueSize: defaultRecordQueueSize,
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.queue = make(chan *models.SubmissionRecord, r.queueSize)
	go r.run()
	return r
}

// Record enqueues rec and returns without waiting for the backend.
func (r *SubmissionRecorder) Record(_ context.Context, rec *models.SubmissionRecord) {
	if rec == nil {
		return
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	reason := "closed"
	if !r.closed {
		select {
		case r.queue <- rec:
			return
		default:
			reason = "queue full"
		}
	}
	r.metrics.RecordError("record_dropped")
	r.warn(rec, fmt.Errorf("record submission: %s", reason))
}

func (r *SubmissionRecorder) run() {
	defer close(r.done)
	for rec := range r.queue {
		if err := r.Process(context.Background(), rec); err != nil {
			r.warn(rec, err)
		}
	}
}

func (r *SubmissionRecorder) warn(rec *models.SubmissionRecord, err error) {
	if r.logger == nil {
		return
	}
	r.logger.Warn("submission record dropped",
		applogger.String("backend", r.backend),
		applogger.String("session_id", rec.SessionID),
		applogger.Error(err),
	)
}

// Process writes a single record to the configured backend.
func (r *SubmissionRecorder) Process(ctx context.Context, rec *models.SubmissionRecord) error {
	if rec == nil {
		return fmt.Errorf("record is nil")
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	start := time.Now()
	var err error

	switch r.backend {
	case BackendNone:
	case BackendKafka:
		if r.pub == nil {
			err = fmt.Errorf("kafka publisher not configured")
			break
		}
		err = r.pub.Publish(ctx, rec)
	case BackendClickHouse:
		if r.store == nil {
			err = fmt.Errorf("clickhouse storage not configured")
			break
		}
		err = r.store.Store(ctx, rec)
	default:
		err = fmt.Errorf("unknown backend: %s", r.backend)
	}

	if err != nil {
		r.metrics.RecordError("record")
		return fmt.Errorf("record submission: %w", err)
	}

	r.metrics.RecordRecorded(r.backend)
	r.metrics.RecordLatency("record", time.Since(start).Seconds())
	return nil
}

// Backend returns the configured backend name.
func (r *SubmissionRecorder) Backend() string { return r.backend }

// Close stops accepting records, writes those already queued and closes the
// backends. It is safe to call more than once.
func (r *SubmissionRecorder) Close() {
	r.closeOnce.Do(func() {
		r.mu.Lock()
		r.closed = true
		close(r.queue)
		r.mu.Unlock()
		<-r.done

		if r.pub != nil {
			_ = r.pub.Close()
		}
		if r.store != nil {
			_ = r.store.Close()
		}
	})
}

var _ Recorder = (*SubmissionRecorder)(nil)
