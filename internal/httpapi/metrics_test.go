package httpapi

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func scrape(t *testing.T) []byte {
	t.Helper()
	mrr := httptest.NewRecorder()
	promhttp.Handler().ServeHTTP(mrr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if mrr.Code != http.StatusOK {
		t.Fatalf("/metrics status=%d", mrr.Code)
	}
	return mrr.Body.Bytes()
}

// TestMetricsMiddleware_UsesRoutePattern ensures requests are labeled by the
// chi route pattern instead of the raw URL path.
func TestMetricsMiddleware_UsesRoutePattern(t *testing.T) {
	r := NewMux(newService(t, promptDef{name: "g", input: "hi", model: "echo"}))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/prompts/g", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	body := scrape(t)
	if !bytes.Contains(body, []byte("aiconfig_http_requests_total")) || !bytes.Contains(body, []byte(`path="/prompts/{name}"`)) {
		t.Fatalf("route pattern missing from metrics")
	}
	if bytes.Contains(body, []byte(`path="/prompts/g"`)) {
		t.Fatalf("raw path leaked into metrics labels")
	}
}

func TestMetricsMiddleware_EmitsRequestCounters(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	rr := httptest.NewRecorder()
	MetricsMiddleware(next).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/plain", nil))
	if rr.Code != http.StatusTeapot {
		t.Fatalf("status=%d", rr.Code)
	}
	if !bytes.Contains(scrape(t), []byte(`path="/plain",status="418"`)) {
		t.Fatalf("expected counter for /plain 418")
	}
}

func TestRunDurationByOutcome(t *testing.T) {
	r := NewMux(newService(t,
		promptDef{name: "g", input: "hi", model: "echo"},
		promptDef{name: "boom", input: "fail", model: "echo", settings: map[string]any{"fail_on": "fail"}},
	))
	if w := postJSON(t, r, "/run", `{"prompt":"g"}`); w.Code != http.StatusOK {
		t.Fatalf("run status=%d", w.Code)
	}
	if w := postJSON(t, r, "/run", `{"prompt":"boom"}`); w.Code != http.StatusBadGateway {
		t.Fatalf("boom status=%d", w.Code)
	}
	body := scrape(t)
	for _, want := range []string{
		`aiconfig_http_run_duration_seconds_count{op="run",outcome="ok"}`,
		`aiconfig_http_run_duration_seconds_count{op="run",outcome="adapter"}`,
		`method="POST",path="/run",status="502"`,
	} {
		if !bytes.Contains(body, []byte(want)) {
			t.Fatalf("missing %s", want)
		}
	}
}

func TestMetricsMiddleware_DefaultStatus(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("implicit"))
	})
	MetricsMiddleware(next).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/implicit", nil))
	if !bytes.Contains(scrape(t), []byte(`path="/implicit",status="200"`)) {
		t.Fatalf("expected counter for /implicit 200")
	}
}

func TestIncrementRunError(t *testing.T) {
	IncrementRunError("adapter")
	IncrementRunError("")
	body := scrape(t)
	for _, want := range []string{`aiconfig_http_run_errors_total{kind="adapter"}`, `aiconfig_http_run_errors_total{kind="unspecified"}`} {
		if !bytes.Contains(body, []byte(want)) {
			t.Fatalf("missing %s", want)
		}
	}
}
