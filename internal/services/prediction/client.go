package prediction

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"GoldPredict/internal/domain/models"
	domsvc "GoldPredict/internal/domain/service"
	xhttp "GoldPredict/pkg/http"
)

// DefaultURL is the hosted gold price model.
const DefaultURL = "https://ml-ops-1.onrender.com/predict"

// GenericMessage is shown when a failure carries no usable detail.
const GenericMessage = domsvc.GenericErrorMessage

// RequestError is a failed call to the prediction service.
type RequestError struct {
	Status int    // HTTP status, 0 when no response was received
	Detail string // "detail" from the response body, if any
	Err    error
}

func (e *RequestError) Error() string {
	switch {
	case e.Detail != "":
		return fmt.Sprintf("prediction request failed (status %d): %s", e.Status, e.Detail)
	case e.Err != nil:
		return fmt.Sprintf("prediction request failed: %v", e.Err)
	default:
		return fmt.Sprintf("prediction request failed (status %d)", e.Status)
	}
}

func (e *RequestError) Unwrap() error { return e.Err }

// Message is the text shown to the visitor.
func (e *RequestError) Message() string {
	if e.Detail != "" {
		return e.Detail
	}
	return GenericMessage
}

// MessageFor maps any error from Predict to the visitor-facing message.
func MessageFor(err error) string {
	var re *RequestError
	if errors.As(err, &re) {
		return re.Message()
	}
	return GenericMessage
}

// HTTPPredictor posts form values to the prediction endpoint. It makes
// exactly one attempt per call.
type HTTPPredictor struct {
	url    string
	client *xhttp.Client
}

// NewHTTPPredictor builds a predictor for url. A zero timeout waits until the
// service answers or the transport fails.
func NewHTTPPredictor(url string, timeout time.Duration, opts ...xhttp.ClientOption) *HTTPPredictor {
	if url == "" {
		url = DefaultURL
	}
	opts = append([]xhttp.ClientOption{xhttp.WithTimeout(timeout)}, opts...)
	return &HTTPPredictor{url: url, client: xhttp.NewClient(opts...)}
}

type predictResponse struct {
	Prediction *float64 `json:"prediction"`
}

type errorResponse struct {
	Detail json.RawMessage `json:"detail"`
}

func (p *HTTPPredictor) Predict(ctx context.Context, values models.FormValues) (float64, error) {
	var raw xhttp.RawResponse
	err := p.client.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodPost,
		URL:    p.url,
		Headers: map[string]string{
			"Content-Type": "application/json",
			"Accept":       "application/json",
		},
		Body: values,
	}, &raw)
	if err != nil {
		var se *xhttp.StatusError
		if errors.As(err, &se) {
			return 0, &RequestError{Status: se.StatusCode, Detail: detailFrom(se.Body), Err: err}
		}
		return 0, &RequestError{Err: err}
	}

	var pr predictResponse
	if err := json.Unmarshal(raw.Body, &pr); err != nil {
		return 0, &RequestError{Status: raw.StatusCode, Err: fmt.Errorf("decode prediction: %w", err)}
	}
	if pr.Prediction == nil {
		return 0, &RequestError{Status: raw.StatusCode, Err: errors.New("response has no prediction")}
	}
	return *pr.Prediction, nil
}

// detailFrom extracts a non-empty string "detail" from an error body.
// Structured details (e.g. lists of validation issues) are not shown.
func detailFrom(body []byte) string {
	var er errorResponse
	if len(body) == 0 || json.Unmarshal(body, &er) != nil || len(er.Detail) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(er.Detail, &s); err != nil {
		return ""
	}
	return s
}

var (
	_ domsvc.Predictor    = (*HTTPPredictor)(nil)
	_ domsvc.MessageError = (*RequestError)(nil)
)
