package callback

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

func TestHandlersRunInOrderAndFailuresAreSwallowed(t *testing.T) {
	var logBuf bytes.Buffer
	var order []string
	m := NewManager(zerolog.New(&logBuf))
	m.Register(HandlerFunc(func(context.Context, Event) error { order = append(order, "first"); return errors.New("nope") }))
	m.Register(HandlerFunc(func(context.Context, Event) error { order = append(order, "second"); panic("boom") }))
	mem := NewMemoryHandler()
	m.Register(mem)

	ctx := WithRunID(context.Background(), "run-1")
	m.Emit(ctx, NewEvent(RunStart, "g").With("parser", "echo"))

	if !reflect.DeepEqual(order, []string{"first", "second"}) {
		t.Fatalf("order=%v", order)
	}
	evs := mem.Events()
	if len(evs) != 1 || evs[0].RunID != "run-1" || evs[0].Timestamp.IsZero() || evs[0].Payload["parser"] != "echo" {
		t.Fatalf("unexpected events: %+v", evs)
	}
	out := logBuf.String()
	if strings.Count(out, "callback handler failed") != 2 || !strings.Contains(out, "panic: boom") {
		t.Fatalf("handler failures should be logged, got %q", out)
	}
}

func TestNilManagerAndContext(t *testing.T) {
	var m *Manager
	m.Emit(context.Background(), NewEvent(RunStart, "g"))
	m.Register(NewMemoryHandler())
	if m.Len() != 0 {
		t.Fatalf("nil manager has no handlers")
	}
	if FromContext(context.Background()) != nil {
		t.Fatalf("expected nil manager from empty context")
	}
	mgr := NewManager(zerolog.Nop())
	if FromContext(WithManager(context.Background(), mgr)) != mgr {
		t.Fatalf("manager not carried by context")
	}
	if RunIDFrom(WithRunID(context.Background(), "")) == "" {
		t.Fatalf("empty id should generate a uuid")
	}
}

func TestMemoryHandlerNames(t *testing.T) {
	mem := NewMemoryHandler()
	m := NewManager(zerolog.Nop(), mem)
	m.Emit(context.Background(), NewEvent(RunStart, "a"))
	m.Emit(context.Background(), NewEvent(RunStart, "b"))
	m.Emit(context.Background(), NewEvent(RunEnd, "a"))
	if got := mem.Names("a"); !reflect.DeepEqual(got, []string{RunStart, RunEnd}) {
		t.Fatalf("Names(a)=%v", got)
	}
	if got := mem.Names(""); len(got) != 3 {
		t.Fatalf("Names()=%v", got)
	}
}

func TestLogHandler(t *testing.T) {
	var buf bytes.Buffer
	h := LogHandler{Log: zerolog.New(&buf).Level(zerolog.DebugLevel)}
	_ = h.Handle(context.Background(), NewEvent(RunEnd, "g").With("state", StateFailed).WithErr(errors.New("x")))
	out := buf.String()
	if !strings.Contains(out, `"level":"warn"`) || !strings.Contains(out, `"state":"failed"`) || !strings.Contains(out, `"prompt":"g"`) {
		t.Fatalf("unexpected log line: %s", out)
	}
}

func TestMetricsHandler(t *testing.T) {
	reg := prometheus.NewRegistry()
	h, err := NewMetricsHandler(reg)
	if err != nil {
		t.Fatalf("NewMetricsHandler: %v", err)
	}
	m := NewManager(zerolog.Nop(), h)
	m.Emit(context.Background(), NewEvent(RunStart, "g"))
	m.Emit(context.Background(), NewEvent(RunEnd, "g").With("parser", "echo").With("state", StateCompleted).With("duration_seconds", 0.01))
	m.Emit(context.Background(), NewEvent(RunEnd, "g").With("parser", "echo").WithErr(errors.New("x")))

	rr := httptest.NewRecorder()
	promhttp.HandlerFor(reg, promhttp.HandlerOpts{}).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rr.Body.String()
	for _, want := range []string{
		`aiconfig_callback_events_total{event="on_run_end"} 2`,
		`aiconfig_prompt_runs_total{parser="echo",state="failed"} 1`,
		`aiconfig_prompt_runs_total{parser="echo",state="completed"} 1`,
		`aiconfig_prompt_run_duration_seconds_count{parser="echo"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("missing %q in metrics:\n%s", want, body)
		}
	}
	if _, err := NewMetricsHandler(reg); err == nil {
		t.Fatalf("second registration on the same registry should fail")
	}
}
