package usecase

import (
	"context"

	drepo "GoldPredict/internal/domain/repository"
	applogger "GoldPredict/pkg/logger"
)

// SubmitGuard decides whether a client may submit now. A nil limiter allows
// everything. Limiter failures fail open so an outage of the shared store
// never blocks predictions.
type SubmitGuard struct {
	limiter drepo.SubmissionLimiter
	metrics drepo.Metrics
	log     *applogger.Logger
}

// NewSubmitGuard creates a guard over limiter.
func NewSubmitGuard(limiter drepo.SubmissionLimiter, metrics drepo.Metrics, log *applogger.Logger) *SubmitGuard {
	if metrics == nil {
		metrics = noopMetrics{}
	}
	if log == nil {
		log = applogger.Nop()
	}
	return &SubmitGuard{limiter: limiter, metrics: metrics, log: log}
}

// Allow reports whether key may submit.
func (g *SubmitGuard) Allow(ctx context.Context, key string) bool {
	if g == nil || g.limiter == nil {
		return true
	}
	ok, err := g.limiter.Allow(ctx, key)
	if err != nil {
		g.metrics.RecordError("ratelimit")
		g.log.Warn("submit limiter unavailable", applogger.String("client", key), applogger.Error(err))
		return true
	}
	if !ok {
		g.metrics.RecordSubmission("rate_limited")
	}
	return ok
}
