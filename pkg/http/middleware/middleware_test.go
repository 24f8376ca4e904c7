package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecoverTurnsPanicInto500(t *testing.T) {
	e := echo.New()
	e.Use(Recover(nil))
	e.GET("/boom", func(echo.Context) error { panic("boom") })

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
}

func TestMetricsUsesRouteTemplate(t *testing.T) {
	reg := prometheus.NewRegistry()
	e := echo.New()
	e.Use(Metrics(reg, nil, 0))
	e.GET("/api/sessions/:id", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) })
	e.GET("/fail", func(echo.Context) error { return errors.New("x") })

	for _, path := range []string{"/api/sessions/a", "/api/sessions/b", "/fail"} {
		e.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	m := newHTTPMetricsForTest(t, reg)
	if got := testutil.ToFloat64(m.WithLabelValues("/api/sessions/:id", http.MethodGet, "204")); got != 2 {
		t.Fatalf("session route count = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.WithLabelValues("/fail", http.MethodGet, "500")); got != 1 {
		t.Fatalf("fail route count = %v, want 1", got)
	}
}

// newHTTPMetricsForTest fetches the already registered request counter.
func newHTTPMetricsForTest(t *testing.T, reg *prometheus.Registry) *prometheus.CounterVec {
	t.Helper()
	c := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "goldpredict_http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"route", "method", "status"})
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			return are.ExistingCollector.(*prometheus.CounterVec)
		}
		t.Fatalf("register: %v", err)
	}
	t.Fatal("counter was not registered by the middleware")
	return nil
}

func TestCORSPreflight(t *testing.T) {
	tests := []struct {
		name    string
		origins []string
		origin  string
		want    string
	}{
		{"wildcard", []string{"*"}, "http://example.com", "*"},
		{"listed origin", []string{"https://gold.example"}, "https://gold.example", "https://gold.example"},
		{"unlisted origin", []string{"https://gold.example"}, "http://evil.example", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			e.Use(CORS(CORSConfig{AllowOrigins: tt.origins, AllowMethods: []string{http.MethodPost}, MaxAge: 600}))
			e.POST("/api/predict", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

			req := httptest.NewRequest(http.MethodOptions, "/api/predict", nil)
			req.Header.Set("Origin", tt.origin)
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)

			if got := rec.Header().Get("Access-Control-Allow-Origin"); got != tt.want {
				t.Fatalf("allow origin = %q, want %q", got, tt.want)
			}
			if tt.want == "" {
				return
			}
			if rec.Code != http.StatusNoContent {
				t.Fatalf("status = %d, want 204", rec.Code)
			}
			if got := rec.Header().Get("Access-Control-Allow-Methods"); got != http.MethodPost {
				t.Fatalf("allow methods = %q", got)
			}
			if got := rec.Header().Get("Access-Control-Max-Age"); got != "600" {
				t.Fatalf("max age = %q", got)
			}
		})
	}
}
