package http

import (
	"context"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/labstack/echo/v4"
)

type positiveBody struct {
	Price float64 `json:"price" validate:"positive"`
	Count int     `json:"count" validate:"positive"`
}

func TestValidatePositive(t *testing.T) {
	tests := []struct {
		name   string
		body   positiveBody
		fields []string
	}{
		{"valid", positiveBody{Price: 0.01, Count: 1}, nil},
		{"zero", positiveBody{Price: 0, Count: 1}, []string{"price"}},
		{"negative both", positiveBody{Price: -1, Count: -2}, []string{"price", "count"}},
		{"nan", positiveBody{Price: math.NaN(), Count: 1}, []string{"price"}},
		{"inf", positiveBody{Price: math.Inf(1), Count: 1}, []string{"price"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := Validate(tt.body)
			var got []string
			for _, e := range errs {
				got = append(got, e.Field)
				if e.Code != "ERR_POSITIVE" {
					t.Fatalf("code = %q", e.Code)
				}
				if e.Message != e.Field+" must be a positive number" {
					t.Fatalf("message = %q", e.Message)
				}
			}
			if diff := cmp.Diff(tt.fields, got); diff != "" {
				t.Fatalf("fields mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestReadAndValidateRequest(t *testing.T) {
	e := echo.New()

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"price": 2, "count": 0}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	c := e.NewContext(req, httptest.NewRecorder())

	var body positiveBody
	res := ReadAndValidateRequest(c, &body)
	errs, ok := res.([]ValidationError)
	if !ok || len(errs) != 1 || errs[0].Field != "count" {
		t.Fatalf("unexpected result: %#v", res)
	}

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"price": "x"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	c = e.NewContext(req, httptest.NewRecorder())
	res = ReadAndValidateRequest(c, &positiveBody{})
	errs, ok = res.([]ValidationError)
	if !ok || len(errs) != 1 || errs[0].Code != "ERR_UNKNOWN" {
		t.Fatalf("expected bind error, got %#v", res)
	}
}

func TestHealthz(t *testing.T) {
	s := NewServer(nil, WithMetrics(false, "", nil, nil), WithHealthCheck("redis", func(ctx context.Context) error {
		return errors.New("down")
	}))

	rec := httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"redis":"down"`) {
		t.Fatalf("body = %s", rec.Body.String())
	}
}
