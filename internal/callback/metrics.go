package callback

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
)

// MetricsHandler exports event counts and prompt run durations to
// Prometheus.
type MetricsHandler struct {
	events   *prometheus.CounterVec
	runs     *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewMetricsHandler creates the collectors and registers them with reg.
// A nil reg uses prometheus.DefaultRegisterer.
func NewMetricsHandler(reg prometheus.Registerer) (*MetricsHandler, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	h := &MetricsHandler{
		events: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "aiconfig",
				Subsystem: "callback",
				Name:      "events_total",
				Help:      "Total lifecycle events emitted",
			},
			[]string{"event"},
		),
		runs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "aiconfig",
				Subsystem: "prompt",
				Name:      "runs_total",
				Help:      "Prompt executions by parser and terminal state",
			},
			[]string{"parser", "state"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "aiconfig",
				Subsystem: "prompt",
				Name:      "run_duration_seconds",
				Help:      "Duration of prompt executions in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"parser"},
		),
	}
	for _, c := range []prometheus.Collector{h.events, h.runs, h.duration} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return h, nil
}

func (h *MetricsHandler) Handle(_ context.Context, e Event) error {
	h.events.WithLabelValues(e.Name).Inc()
	if e.Name != RunEnd {
		return nil
	}
	parser, _ := e.Payload["parser"].(string)
	state, _ := e.Payload["state"].(string)
	if state == "" {
		state = StateCompleted
		if e.Err != nil {
			state = StateFailed
		}
	}
	h.runs.WithLabelValues(parser, state).Inc()
	if d, ok := e.Payload["duration_seconds"].(float64); ok {
		h.duration.WithLabelValues(parser).Observe(d)
	}
	return nil
}
