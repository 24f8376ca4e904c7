package models

import xutil "GoldPredict/pkg/util"

// Requests and views for the form HTTP endpoints.

type SessionRequest struct {
	ID string `param:"id" validate:"required,uuid4"`
}

type FieldUpdateRequest struct {
	ID    string `param:"id" validate:"required,uuid4"`
	Field string `param:"field" validate:"required,oneof=SPX USO SLV EURUSD spx uso slv eurusd"`
	Value string `json:"value"`
}

// SubmitRequest optionally carries the raw input of each field, applied
// before the submission runs.
type SubmitRequest struct {
	Values map[string]string `json:"values"`
}

// PredictRequest is the stateless prediction body. Missing fields stay 0 and fail validation.
type PredictRequest struct {
	SPX    float64 `json:"SPX" validate:"positive"`
	USO    float64 `json:"USO" validate:"positive"`
	SLV    float64 `json:"SLV" validate:"positive"`
	EURUSD float64 `json:"EURUSD" validate:"positive"`
}

// Values converts the request into form values.
func (r PredictRequest) Values() FormValues {
	return FormValues{SPX: r.SPX, USO: r.USO, SLV: r.SLV, EURUSD: r.EURUSD}
}

type PredictResponse struct {
	Prediction float64 `json:"prediction"`
	Display    string  `json:"display"`
}

type StateView struct {
	Status     string   `json:"status"`
	Prediction *float64 `json:"prediction,omitempty"`
	Display    string   `json:"display,omitempty"`
	Error      string   `json:"error,omitempty"`
}

type FormView struct {
	ID      string              `json:"id"`
	Values  map[string]*float64 `json:"values"`
	Errors  map[string]string   `json:"errors"`
	State   StateView           `json:"state"`
	Loading bool                `json:"loading"`
}

// NewFormView converts a controller snapshot into its JSON view.
func NewFormView(s Snapshot) FormView {
	v := FormView{
		ID:      s.SessionID,
		Values:  s.Values.Nullable(),
		Errors:  s.Errors.Map(),
		State:   StateView{Status: s.State.Kind.String()},
		Loading: s.Loading(),
	}
	switch s.State.Kind {
	case StateSucceeded:
		p := s.State.Prediction
		v.State.Prediction = &p
		v.State.Display = xutil.FormatUSD(p)
	case StateFailed:
		v.State.Error = s.State.Message
	}
	return v
}
