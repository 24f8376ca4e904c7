package usecase

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"GoldPredict/internal/domain/models"
	drepo "GoldPredict/internal/domain/repository"
	domsvc "GoldPredict/internal/domain/service"
	xutil "GoldPredict/pkg/util"
)

// Recorder receives one record per completed network submission.
type Recorder interface {
	Record(ctx context.Context, r *models.SubmissionRecord)
}

// ControllerOption configures FormController.
type ControllerOption func(*FormController)

// WithRecorder sets the submission recorder.
func WithRecorder(r Recorder) ControllerOption {
	return func(c *FormController) {
		if r != nil {
			c.recorder = r
		}
	}
}

// WithControllerMetrics sets the metrics recorder.
func WithControllerMetrics(m drepo.Metrics) ControllerOption {
	return func(c *FormController) {
		if m != nil {
			c.metrics = m
		}
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) ControllerOption {
	return func(c *FormController) {
		if now != nil {
			c.now = now
		}
	}
}

// FormController owns the state of one prediction form: the four input
// values, their validation errors and the submission lifecycle.
//
// Overlapping submissions resolve as last-submission-wins: starting a
// submission cancels the request of any earlier one still in flight, and an
// earlier outcome never overwrites the state set by a later submission.
type FormController struct {
	id        string
	predictor domsvc.Predictor
	recorder  Recorder
	metrics   drepo.Metrics
	now       func() time.Time

	mu     sync.Mutex
	values models.FormValues
	errors models.FormErrors
	state  models.SubmissionState
	gen    uint64
	cancel context.CancelFunc
}

// NewFormController creates a controller with all values at 0 and no errors.
func NewFormController(id string, predictor domsvc.Predictor, opts ...ControllerOption) *FormController {
	c := &FormController{
		id:        id,
		predictor: predictor,
		recorder:  noopRecorder{},
		metrics:   noopMetrics{},
		now:       time.Now,
		state:     models.Idle(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ID returns the session id the controller belongs to.
func (c *FormController) ID() string { return c.id }

// UpdateField stores the parsed raw input for f and clears that field's
// error. Unparsable input is stored as NaN and reported only by Validate.
func (c *FormController) UpdateField(f models.Field, raw string) error {
	if !f.Valid() {
		return fmt.Errorf("update field: unknown field %d", int(f))
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	c.values.Set(f, xutil.ParseFloatOrNaN(raw))
	c.errors.Clear(f)
	return nil
}

// SetValues replaces all four values at once and clears every field error.
func (c *FormController) SetValues(v models.FormValues) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.values = v
	c.errors = models.FormErrors{}
}

// Validate checks every field and replaces the error set. It reports
// whether all fields are valid.
func (c *FormController) Validate() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.validateLocked()
}

func (c *FormController) validateLocked() bool {
	var errs models.FormErrors
	for _, f := range models.Fields {
		v := c.values.Get(f)
		if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
			errs.Set(f, fmt.Sprintf("%s must be a positive number", f))
			c.metrics.RecordValidationFailure(f.String())
		}
	}
	c.errors = errs
	return errs.Len() == 0
}

// Submit validates the form and, when valid, requests a prediction. It
// blocks until the request resolves and returns the resulting state.
func (c *FormController) Submit(ctx context.Context) models.Snapshot {
	c.mu.Lock()
	c.gen++
	gen := c.gen
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.state = models.Idle()

	if !c.validateLocked() {
		snap := c.snapshotLocked()
		c.mu.Unlock()
		return snap
	}

	c.state = models.Loading()
	values := c.values
	reqCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.mu.Unlock()

	started := c.now()
	pred, err := c.predict(reqCtx, values)
	finished := c.now()

	return c.complete(ctx, gen, cancel, values, pred, err, started, finished)
}

// predict calls the predictor and converts a panic into an error so the
// submission always completes.
func (c *FormController) predict(ctx context.Context, values models.FormValues) (pred float64, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("predictor panic: %v", r)
		}
	}()
	return c.predictor.Predict(ctx, values)
}

func (c *FormController) complete(
	ctx context.Context,
	gen uint64,
	cancel context.CancelFunc,
	values models.FormValues,
	pred float64,
	err error,
	started, finished time.Time,
) models.Snapshot {
	cancel()

	c.mu.Lock()
	if gen != c.gen {
		snap := c.snapshotLocked()
		c.mu.Unlock()
		c.metrics.RecordSubmission("superseded")
		return snap
	}
	c.cancel = nil

	rec := &models.SubmissionRecord{
		SessionID:  c.id,
		Values:     values,
		StartedAt:  started,
		FinishedAt: finished,
	}
	if err != nil {
		msg := FailureMessage(err)
		c.state = models.Failed(msg)
		rec.Outcome = models.OutcomeFailed
		rec.Message = msg
	} else {
		c.state = models.Succeeded(pred)
		rec.Outcome = models.OutcomeSucceeded
		rec.Prediction = pred
	}
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.metrics.RecordSubmission(rec.Outcome)
	c.metrics.RecordLatency("predict", rec.Latency().Seconds())
	if err == nil {
		c.metrics.RecordLastPrediction(pred)
	}
	c.recorder.Record(context.WithoutCancel(ctx), rec)
	return snap
}

// Snapshot returns a copy of the current state.
func (c *FormController) Snapshot() models.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *FormController) snapshotLocked() models.Snapshot {
	return models.Snapshot{
		SessionID: c.id,
		Values:    c.values,
		Errors:    c.errors,
		State:     c.state,
	}
}

// Close cancels any in-flight submission.
func (c *FormController) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
}

// FailureMessage picks the visitor-facing message for a failed submission.
func FailureMessage(err error) string {
	var me domsvc.MessageError
	if errors.As(err, &me) {
		if m := me.Message(); m != "" {
			return m
		}
	}
	return domsvc.GenericErrorMessage
}

type noopRecorder struct{}

func (noopRecorder) Record(context.Context, *models.SubmissionRecord) {}

type noopMetrics struct{}

func (noopMetrics) RecordSubmission(string) {}
func (noopMetrics) RecordValidationFailure(string) {}
func (noopMetrics) RecordRecorded(string) {}
func (noopMetrics) RecordError(string) {}
func (noopMetrics) RecordLastPrediction(float64) {}
func (noopMetrics) RecordLatency(string, float64) {}
