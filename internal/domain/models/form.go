package models

import (
	"fmt"
	"math"
	"strings"
)

// Field identifies one of the four market inputs of the prediction form.
type Field int

const (
	SPX Field = iota
	USO
	SLV
	EURUSD

	fieldCount = 4
)

// Fields lists every form field in display and validation order.
var Fields = [fieldCount]Field{SPX, USO, SLV, EURUSD}

var fieldNames = [fieldCount]string{"SPX", "USO", "SLV", "EURUSD"}

func (f Field) String() string {
	if !f.Valid() {
		return fmt.Sprintf("Field(%d)", int(f))
	}
	return fieldNames[f]
}

// Valid reports whether f is one of the known fields.
func (f Field) Valid() bool { return f >= 0 && f < fieldCount }

// ParseField maps a field name (case-insensitive) to its Field.
func ParseField(name string) (Field, error) {
	for _, f := range Fields {
		if strings.EqualFold(fieldNames[f], strings.TrimSpace(name)) {
			return f, nil
		}
	}
	return 0, fmt.Errorf("unknown field %q", name)
}

// FormValues holds the numeric inputs. NaN marks an input that could not be parsed.
type FormValues struct {
	SPX    float64 `json:"SPX"`
	USO    float64 `json:"USO"`
	SLV    float64 `json:"SLV"`
	EURUSD float64 `json:"EURUSD"`
}

// Get returns the value stored for f.
func (v FormValues) Get(f Field) float64 {
	switch f {
	case SPX:
		return v.SPX
	case USO:
		return v.USO
	case SLV:
		return v.SLV
	case EURUSD:
		return v.EURUSD
	}
	return math.NaN()
}

// Set stores x for f. Unknown fields are ignored.
func (v *FormValues) Set(f Field, x float64) {
	switch f {
	case SPX:
		v.SPX = x
	case USO:
		v.USO = x
	case SLV:
		v.SLV = x
	case EURUSD:
		v.EURUSD = x
	}
}

// Nullable returns the values keyed by field name with NaN mapped to nil,
// which keeps the result JSON-encodable.
func (v FormValues) Nullable() map[string]*float64 {
	out := make(map[string]*float64, fieldCount)
	for _, f := range Fields {
		x := v.Get(f)
		if math.IsNaN(x) {
			out[f.String()] = nil
			continue
		}
		out[f.String()] = &x
	}
	return out
}

// FormErrors holds an optional validation message per field.
type FormErrors struct {
	msgs [fieldCount]*string
}

// Get returns the message for f and whether one is set.
func (e FormErrors) Get(f Field) (string, bool) {
	if !f.Valid() || e.msgs[f] == nil {
		return "", false
	}
	return *e.msgs[f], true
}

// Message returns the message for f, or "" when the field has no error.
func (e FormErrors) Message(f Field) string {
	m, _ := e.Get(f)
	return m
}

// Set records msg for f.
func (e *FormErrors) Set(f Field, msg string) {
	if f.Valid() {
		e.msgs[f] = &msg
	}
}

// Clear removes any message for f.
func (e *FormErrors) Clear(f Field) {
	if f.Valid() {
		e.msgs[f] = nil
	}
}

// Len returns the number of fields with an error.
func (e FormErrors) Len() int {
	n := 0
	for _, m := range e.msgs {
		if m != nil {
			n++
		}
	}
	return n
}

// Map returns the set messages keyed by field name.
func (e FormErrors) Map() map[string]string {
	out := make(map[string]string, e.Len())
	for _, f := range Fields {
		if m, ok := e.Get(f); ok {
			out[f.String()] = m
		}
	}
	return out
}

// StateKind enumerates the submission lifecycle states.
type StateKind int

const (
	StateIdle StateKind = iota
	StateLoading
	StateSucceeded
	StateFailed
)

func (k StateKind) String() string {
	switch k {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// SubmissionState is the current submission lifecycle state. Prediction is
// meaningful only for StateSucceeded and Message only for StateFailed.
type SubmissionState struct {
	Kind       StateKind
	Prediction float64
	Message    string
}

func Idle() SubmissionState    { return SubmissionState{Kind: StateIdle} }
func Loading() SubmissionState { return SubmissionState{Kind: StateLoading} }

func Succeeded(prediction float64) SubmissionState {
	return SubmissionState{Kind: StateSucceeded, Prediction: prediction}
}

func Failed(message string) SubmissionState {
	return SubmissionState{Kind: StateFailed, Message: message}
}

// Snapshot is an immutable copy of a form controller's state.
type Snapshot struct {
	SessionID string
	Values    FormValues
	Errors    FormErrors
	State     SubmissionState
}

// Loading reports whether a submission is in flight.
func (s Snapshot) Loading() bool { return s.State.Kind == StateLoading }
