package models

import "time"

// Submission outcomes recorded for audit.
const (
	OutcomeSucceeded = "succeeded"
	OutcomeFailed    = "failed"
)

// SubmissionRecord describes one completed network submission.
type SubmissionRecord struct {
	SessionID  string     `json:"session_id"`
	Values     FormValues `json:"values"`
	Outcome    string     `json:"outcome"`
	Prediction float64    `json:"prediction,omitempty"`
	Message    string     `json:"message,omitempty"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt time.Time  `json:"finished_at"`
}

// Latency returns the time spent waiting on the prediction service.
func (r SubmissionRecord) Latency() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}
