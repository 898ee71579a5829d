package callback

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
)

// MemoryHandler stores events in-memory for tests.
type MemoryHandler struct {
	mu     sync.Mutex
	events []Event
}

func NewMemoryHandler() *MemoryHandler { return &MemoryHandler{} }

func (h *MemoryHandler) Handle(_ context.Context, e Event) error {
	h.mu.Lock()
	h.events = append(h.events, e)
	h.mu.Unlock()
	return nil
}

func (h *MemoryHandler) Events() []Event {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]Event, len(h.events))
	copy(out, h.events)
	return out
}

// Names returns the event names in arrival order, optionally limited to
// one prompt.
func (h *MemoryHandler) Names(prompt string) []string {
	var out []string
	for _, e := range h.Events() {
		if prompt == "" || e.PromptName == prompt {
			out = append(out, e.Name)
		}
	}
	return out
}

// LogHandler writes every event to a zerolog logger: *_end events with an
// error at warn level, everything else at debug.
type LogHandler struct {
	Log zerolog.Logger
}

func (h LogHandler) Handle(_ context.Context, e Event) error {
	ev := h.Log.Debug()
	if e.Err != nil {
		ev = h.Log.Warn().Err(e.Err)
	}
	ev = ev.Str("event", e.Name).Str("prompt", e.PromptName)
	if e.RunID != "" {
		ev = ev.Str("run_id", e.RunID)
	}
	if s, ok := e.Payload["state"].(string); ok {
		ev = ev.Str("state", s)
	}
	if p, ok := e.Payload["parser"].(string); ok {
		ev = ev.Str("parser", p)
	}
	if d, ok := e.Payload["duration_seconds"].(float64); ok {
		ev = ev.Float64("duration_seconds", d)
	}
	ev.Msg("callback")
	return nil
}
