package repository

import (
	"context"

	"GoldPredict/internal/domain/models"
)

type Publisher interface {
	Publish(ctx context.Context, r *models.SubmissionRecord) error
	Close() error
}

type Storage interface {
	Init(ctx context.Context) error // ensure tables
	Store(ctx context.Context, r *models.SubmissionRecord) error
	Query(ctx context.Context, sessionID string, limit int) ([]*models.SubmissionRecord, error)
	Health(ctx context.Context) error // ping
	Close() error
}

type Metrics interface {
	RecordSubmission(outcome string)
	RecordValidationFailure(field string)
	RecordRecorded(backend string)
	RecordError(kind string)
	RecordLastPrediction(value float64)
	RecordLatency(op string, seconds float64)
}

// SubmissionLimiter throttles submissions per client key.
type SubmissionLimiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}
