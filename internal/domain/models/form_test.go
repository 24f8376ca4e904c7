package models

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseField(t *testing.T) {
	for _, f := range Fields {
		got, err := ParseField(f.String())
		if err != nil || got != f {
			t.Fatalf("ParseField(%q) = %v, %v", f.String(), got, err)
		}
	}
	if got, err := ParseField("eurusd"); err != nil || got != EURUSD {
		t.Fatalf("expected case-insensitive match, got %v, %v", got, err)
	}
	if _, err := ParseField("GLD"); err == nil {
		t.Fatalf("expected error for unknown field")
	}
}

func TestFormValuesGetSet(t *testing.T) {
	var v FormValues
	for i, f := range Fields {
		v.Set(f, float64(i+1))
	}
	want := FormValues{SPX: 1, USO: 2, SLV: 3, EURUSD: 4}
	if diff := cmp.Diff(want, v); diff != "" {
		t.Fatalf("values mismatch (-want +got):\n%s", diff)
	}
	if !math.IsNaN(v.Get(Field(9))) {
		t.Fatalf("expected NaN for unknown field")
	}
}

func TestFormErrorsOptional(t *testing.T) {
	var e FormErrors
	if e.Len() != 0 {
		t.Fatalf("expected empty errors")
	}
	e.Set(USO, "USO must be a positive number")
	e.Set(Field(-1), "ignored")
	if e.Len() != 1 {
		t.Fatalf("expected one error, got %d", e.Len())
	}
	if _, ok := e.Get(SPX); ok {
		t.Fatalf("SPX should have no error")
	}
	e.Clear(USO)
	if _, ok := e.Get(USO); ok {
		t.Fatalf("USO error should be cleared")
	}
}

func TestNewFormView(t *testing.T) {
	var errs FormErrors
	errs.Set(SLV, "SLV must be a positive number")
	s := Snapshot{
		SessionID: "abc",
		Values:    FormValues{SPX: 4500, USO: 70, SLV: math.NaN(), EURUSD: 1.1},
		Errors:    errs,
		State:     Succeeded(1234.5),
	}
	v := NewFormView(s)
	if v.Values["SLV"] != nil {
		t.Fatalf("NaN should be null in view")
	}
	if *v.Values["SPX"] != 4500 {
		t.Fatalf("unexpected SPX %v", *v.Values["SPX"])
	}
	if diff := cmp.Diff(map[string]string{"SLV": "SLV must be a positive number"}, v.Errors); diff != "" {
		t.Fatalf("errors mismatch (-want +got):\n%s", diff)
	}
	if v.State.Status != "succeeded" || v.State.Display != "$1234.50" || v.Loading {
		t.Fatalf("unexpected state view %+v", v.State)
	}

	failed := NewFormView(Snapshot{State: Failed("bad input")})
	if failed.State.Error != "bad input" || failed.State.Prediction != nil {
		t.Fatalf("unexpected failed view %+v", failed.State)
	}
	if !NewFormView(Snapshot{State: Loading()}).Loading {
		t.Fatalf("expected loading flag")
	}
}
