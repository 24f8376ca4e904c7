package prediction

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"GoldPredict/internal/domain/models"

	"github.com/google/go-cmp/cmp"
)

func TestPredictSendsValuesOnce(t *testing.T) {
	var calls int32
	var got models.FormValues
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("unexpected content type %q", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		_, _ = w.Write([]byte(`{"prediction": 1234.5}`))
	}))
	defer srv.Close()

	values := models.FormValues{SPX: 4500.5, USO: 72.1, SLV: 22.3, EURUSD: 1.08}
	p := NewHTTPPredictor(srv.URL, 0)
	pred, err := p.Predict(context.Background(), values)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pred != 1234.5 {
		t.Fatalf("unexpected prediction %v", pred)
	}
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Fatalf("expected exactly one request, got %d", n)
	}
	if diff := cmp.Diff(values, got); diff != "" {
		t.Fatalf("body mismatch (-want +got):\n%s", diff)
	}
}

func TestPredictBodyUsesFieldNames(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var raw map[string]float64
		if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
			t.Errorf("decode body: %v", err)
		}
		for _, k := range []string{"SPX", "USO", "SLV", "EURUSD"} {
			if _, ok := raw[k]; !ok {
				t.Errorf("missing key %s in %v", k, raw)
			}
		}
		if len(raw) != 4 {
			t.Errorf("expected 4 keys, got %v", raw)
		}
		_, _ = w.Write([]byte(`{"prediction": 1}`))
	}))
	defer srv.Close()

	if _, err := NewHTTPPredictor(srv.URL, 0).Predict(context.Background(), models.FormValues{SPX: 1, USO: 1, SLV: 1, EURUSD: 1}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestPredictFailures(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		message string
	}{
		{name: "detail", status: http.StatusBadRequest, body: `{"detail": "bad input"}`, message: "bad input"},
		{name: "detail on 500", status: http.StatusInternalServerError, body: `{"detail": "model unavailable"}`, message: "model unavailable"},
		{name: "no body", status: http.StatusBadGateway, body: ``, message: GenericMessage},
		{name: "plain text", status: http.StatusInternalServerError, body: `Internal Server Error`, message: GenericMessage},
		{name: "empty detail", status: http.StatusBadRequest, body: `{"detail": ""}`, message: GenericMessage},
		{name: "structured detail", status: http.StatusUnprocessableEntity, body: `{"detail": [{"loc": ["body", "SPX"], "msg": "field required"}]}`, message: GenericMessage},
		{name: "success without prediction", status: http.StatusOK, body: `{"result": 3}`, message: GenericMessage},
		{name: "success with invalid json", status: http.StatusOK, body: `not json`, message: GenericMessage},
		{name: "created without prediction", status: http.StatusCreated, body: `{}`, message: GenericMessage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := NewHTTPPredictor(srv.URL, 0).Predict(context.Background(), models.FormValues{SPX: 1, USO: 1, SLV: 1, EURUSD: 1})
			if err == nil {
				t.Fatalf("expected error")
			}
			var re *RequestError
			if !errors.As(err, &re) {
				t.Fatalf("expected RequestError, got %T", err)
			}
			if re.Status != tt.status {
				t.Fatalf("status = %d, want %d", re.Status, tt.status)
			}
			if got := MessageFor(err); got != tt.message {
				t.Fatalf("message = %q, want %q", got, tt.message)
			}
		})
	}
}

func TestPredictTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := NewHTTPPredictor(url, 0).Predict(context.Background(), models.FormValues{SPX: 1, USO: 1, SLV: 1, EURUSD: 1})
	if err == nil {
		t.Fatalf("expected error")
	}
	var re *RequestError
	if !errors.As(err, &re) || re.Status != 0 {
		t.Fatalf("expected transport RequestError, got %v", err)
	}
	if got := MessageFor(err); got != GenericMessage {
		t.Fatalf("unexpected message %q", got)
	}
}

func TestMessageForForeignError(t *testing.T) {
	if got := MessageFor(errors.New("boom")); got != GenericMessage {
		t.Fatalf("unexpected message %q", got)
	}
}

func TestDefaultURL(t *testing.T) {
	if p := NewHTTPPredictor("", 0); p.url != DefaultURL {
		t.Fatalf("expected default url, got %q", p.url)
	}
}
