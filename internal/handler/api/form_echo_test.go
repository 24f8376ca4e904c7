package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	models "GoldPredict/internal/domain/models"
	"GoldPredict/internal/services/prediction"
	"GoldPredict/internal/usecase"
	xhttp "GoldPredict/pkg/http"

	"github.com/google/go-cmp/cmp"
	"github.com/labstack/echo/v4"
)

type stubPredictor struct {
	mu     sync.Mutex
	calls  []models.FormValues
	result float64
	err    error
}

func (p *stubPredictor) Predict(_ context.Context, v models.FormValues) (float64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, v)
	return p.result, p.err
}

func (p *stubPredictor) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.calls)
}

type denyAll struct{}

func (denyAll) Allow(context.Context, string) (bool, error) { return false, nil }

type envelope struct {
	Status  int             `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func newTestServer(t *testing.T, pred *stubPredictor) (*echo.Echo, *usecase.SessionRegistry) {
	t.Helper()
	reg := usecase.NewSessionRegistry(func(id string) *usecase.FormController {
		return usecase.NewFormController(id, pred)
	})
	t.Cleanup(reg.Close)

	e := echo.New()
	NewFormEchoHandler(nil, reg, usecase.NewSubmitGuard(nil, nil, nil)).RegisterRoutes(e)
	return e, reg
}

func do(t *testing.T, e *echo.Echo, method, path, body string) (int, envelope) {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	var env envelope
	if rec.Body.Len() > 0 {
		if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
			t.Fatalf("decode %s %s: %v (%s)", method, path, err, rec.Body.String())
		}
	}
	return rec.Code, env
}

func decodeView(t *testing.T, env envelope) models.FormView {
	t.Helper()
	var v models.FormView
	if err := json.Unmarshal(env.Data, &v); err != nil {
		t.Fatalf("decode view: %v", err)
	}
	return v
}

func TestSessionLifecycle(t *testing.T) {
	pred := &stubPredictor{result: 1234.5}
	e, _ := newTestServer(t, pred)

	code, env := do(t, e, http.MethodPost, "/api/sessions", "")
	if code != http.StatusCreated || env.Status != http.StatusCreated {
		t.Fatalf("create: code=%d status=%d", code, env.Status)
	}
	view := decodeView(t, env)
	if view.State.Status != "idle" || *view.Values["SPX"] != 0 {
		t.Fatalf("unexpected initial view: %+v", view)
	}
	base := "/api/sessions/" + view.ID

	code, env = do(t, e, http.MethodPut, base+"/fields/spx", `{"value":"abc"}`)
	if code != http.StatusOK {
		t.Fatalf("update: code=%d", code)
	}
	if v := decodeView(t, env); v.Values["SPX"] != nil {
		t.Fatalf("unparsable input should render as null, got %v", *v.Values["SPX"])
	}

	_, env = do(t, e, http.MethodPost, base+"/submit", "")
	view = decodeView(t, env)
	if pred.Calls() != 0 {
		t.Fatal("invalid form must not reach the predictor")
	}
	wantErrs := map[string]string{
		"SPX":    "SPX must be a positive number",
		"USO":    "USO must be a positive number",
		"SLV":    "SLV must be a positive number",
		"EURUSD": "EURUSD must be a positive number",
	}
	if diff := cmp.Diff(wantErrs, view.Errors); diff != "" {
		t.Fatalf("errors (-want +got):\n%s", diff)
	}

	for field, raw := range map[string]string{"SPX": "4500", "USO": "70", "SLV": "22", "EURUSD": "1.1"} {
		code, env = do(t, e, http.MethodPut, base+"/fields/"+field, `{"value":"`+raw+`"}`)
		if code != http.StatusOK {
			t.Fatalf("update %s: code=%d", field, code)
		}
		if _, ok := decodeView(t, env).Errors[field]; ok {
			t.Fatalf("editing %s should clear its error", field)
		}
	}

	code, env = do(t, e, http.MethodPost, base+"/submit", "")
	view = decodeView(t, env)
	if code != http.StatusOK || view.State.Status != "succeeded" || view.State.Display != "$1234.50" || view.Loading {
		t.Fatalf("unexpected submit result: code=%d view=%+v", code, view)
	}

	if code, _ = do(t, e, http.MethodDelete, base, ""); code != http.StatusNoContent {
		t.Fatalf("delete: code=%d", code)
	}
	if code, _ = do(t, e, http.MethodGet, base, ""); code != http.StatusNotFound {
		t.Fatalf("deleted session: code=%d, want 404", code)
	}
}

func TestSessionErrors(t *testing.T) {
	e, reg := newTestServer(t, &stubPredictor{})
	id := reg.Create().ID()

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		want   int
	}{
		{"unknown session", http.MethodGet, "/api/sessions/5b1f3f4e-2b7c-4c1e-9d3a-6f1e2a3b4c5d", "", http.StatusNotFound},
		{"malformed id", http.MethodGet, "/api/sessions/abc", "", http.StatusBadRequest},
		{"unknown field", http.MethodPut, "/api/sessions/" + id + "/fields/gold", `{"value":"1"}`, http.StatusBadRequest},
		{"submit unknown session", http.MethodPost, "/api/sessions/5b1f3f4e-2b7c-4c1e-9d3a-6f1e2a3b4c5d/submit", "", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, env := do(t, e, tt.method, tt.path, tt.body)
			if code != tt.want || env.Status != tt.want {
				t.Fatalf("code=%d status=%d, want %d", code, env.Status, tt.want)
			}
		})
	}
}

func TestSubmitFailureShowsDetail(t *testing.T) {
	pred := &stubPredictor{err: &prediction.RequestError{Status: 422, Detail: "bad input"}}
	e, reg := newTestServer(t, pred)
	ctrl := reg.Create()
	ctrl.SetValues(models.FormValues{SPX: 1, USO: 1, SLV: 1, EURUSD: 1})

	_, env := do(t, e, http.MethodPost, "/api/sessions/"+ctrl.ID()+"/submit", "")
	view := decodeView(t, env)
	if view.State.Status != "failed" || view.State.Error != "bad input" || view.Loading {
		t.Fatalf("unexpected view: %+v", view)
	}
}

func TestPredictEndpoint(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		pred := &stubPredictor{result: 1234.5}
		e, _ := newTestServer(t, pred)
		code, env := do(t, e, http.MethodPost, "/api/predict", `{"SPX":4500,"USO":70,"SLV":22,"EURUSD":1.1}`)
		if code != http.StatusOK {
			t.Fatalf("code=%d", code)
		}
		var got models.PredictResponse
		_ = json.Unmarshal(env.Data, &got)
		if diff := cmp.Diff(models.PredictResponse{Prediction: 1234.5, Display: "$1234.50"}, got); diff != "" {
			t.Fatalf("response (-want +got):\n%s", diff)
		}
		if diff := cmp.Diff([]models.FormValues{{SPX: 4500, USO: 70, SLV: 22, EURUSD: 1.1}}, pred.calls); diff != "" {
			t.Fatalf("request body (-want +got):\n%s", diff)
		}
	})

	t.Run("validation", func(t *testing.T) {
		pred := &stubPredictor{}
		e, _ := newTestServer(t, pred)
		code, env := do(t, e, http.MethodPost, "/api/predict", `{"SPX":0,"USO":70,"SLV":-1,"EURUSD":1.1}`)
		if code != http.StatusBadRequest {
			t.Fatalf("code=%d", code)
		}
		var errs []xhttp.ValidationError
		_ = json.Unmarshal(env.Data, &errs)
		var msgs []string
		for _, ve := range errs {
			msgs = append(msgs, ve.Message)
		}
		if diff := cmp.Diff([]string{"SPX must be a positive number", "SLV must be a positive number"}, msgs); diff != "" {
			t.Fatalf("messages (-want +got):\n%s", diff)
		}
		if pred.Calls() != 0 {
			t.Fatal("invalid body must not reach the predictor")
		}
	})

	t.Run("upstream failure", func(t *testing.T) {
		pred := &stubPredictor{err: &prediction.RequestError{Status: 500}}
		e, _ := newTestServer(t, pred)
		code, env := do(t, e, http.MethodPost, "/api/predict", `{"SPX":1,"USO":1,"SLV":1,"EURUSD":1}`)
		if code != http.StatusBadGateway {
			t.Fatalf("code=%d", code)
		}
		var got map[string]string
		_ = json.Unmarshal(env.Data, &got)
		if got["detail"] != "Unexpected error occurred" {
			t.Fatalf("detail = %q", got["detail"])
		}
	})
}

func TestSubmitRateLimited(t *testing.T) {
	pred := &stubPredictor{result: 1}
	reg := usecase.NewSessionRegistry(func(id string) *usecase.FormController {
		return usecase.NewFormController(id, pred)
	})
	t.Cleanup(reg.Close)
	e := echo.New()
	NewFormEchoHandler(nil, reg, usecase.NewSubmitGuard(denyAll{}, nil, nil)).RegisterRoutes(e)

	ctrl := reg.Create()
	ctrl.SetValues(models.FormValues{SPX: 1, USO: 1, SLV: 1, EURUSD: 1})
	code, _ := do(t, e, http.MethodPost, "/api/sessions/"+ctrl.ID()+"/submit", `{"values":{"SPX":"9"}}`)
	if code != http.StatusTooManyRequests {
		t.Fatalf("code=%d, want 429", code)
	}
	snap := ctrl.Snapshot()
	if pred.Calls() != 0 || snap.State.Kind != models.StateIdle || snap.Values.SPX != 1 {
		t.Fatal("a denied submit must not touch the controller")
	}
}

func TestSubmitAppliesPostedValues(t *testing.T) {
	pred := &stubPredictor{result: 1234.5}
	e, reg := newTestServer(t, pred)
	ctrl := reg.Create()
	base := "/api/sessions/" + ctrl.ID()

	// A field update that lands late must not decide what gets submitted.
	if code, _ := do(t, e, http.MethodPut, base+"/fields/SPX", `{"value":"45"}`); code != http.StatusOK {
		t.Fatalf("field update code=%d", code)
	}
	code, env := do(t, e, http.MethodPost, base+"/submit",
		`{"values":{"SPX":"4500","USO":"70","SLV":"22","EURUSD":"1.1"}}`)
	if code != http.StatusOK {
		t.Fatalf("submit code=%d", code)
	}
	if v := decodeView(t, env); v.State.Display != "$1234.50" {
		t.Fatalf("state = %+v", v.State)
	}

	pred.mu.Lock()
	got := pred.calls[0]
	pred.mu.Unlock()
	want := models.FormValues{SPX: 4500, USO: 70, SLV: 22, EURUSD: 1.1}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("submitted values (-want +got):\n%s", diff)
	}

	code, _ = do(t, e, http.MethodPost, base+"/submit", `{"values":{"GLD":"1"}}`)
	if code != http.StatusBadRequest {
		t.Fatalf("unknown field code=%d, want 400", code)
	}
	if pred.Calls() != 1 {
		t.Fatalf("rejected submit reached the predictor")
	}
}
