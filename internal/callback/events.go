package callback

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Lifecycle event names.
const (
	RunStart         = "on_run_start"
	RunEnd           = "on_run_end"
	ResolveStart     = "on_resolve_start"
	ResolveEnd       = "on_resolve_end"
	SerializeStart   = "on_serialize_start"
	SerializeEnd     = "on_serialize_end"
	DeserializeStart = "on_deserialize_start"
	DeserializeEnd   = "on_deserialize_end"
)

// Execution states reported in the "state" payload key.
const (
	StatePending      = "pending"
	StateResolving    = "resolving"
	StateDeserialized = "deserialized"
	StateRunning      = "running"
	StateStreamed     = "streamed"
	StateCompleted    = "completed"
	StateFailed       = "failed"
	StateCancelled    = "cancelled"
)

// Event is one lifecycle notification.
// Payload keys are event specific; Err is set on failed *_end events.
type Event struct {
	Name       string
	PromptName string
	RunID      string
	Timestamp  time.Time
	Payload    map[string]any
	Err        error
}

// NewEvent builds an event with an empty payload.
func NewEvent(name, prompt string) Event {
	return Event{Name: name, PromptName: prompt, Payload: map[string]any{}}
}

// With sets a payload key and returns the event.
func (e Event) With(key string, v any) Event {
	if e.Payload == nil {
		e.Payload = map[string]any{}
	}
	e.Payload[key] = v
	return e
}

// WithErr attaches err and returns the event.
func (e Event) WithErr(err error) Event {
	e.Err = err
	return e
}

type runIDKey struct{}

// WithRunID returns ctx carrying a run id, generating one when id is empty.
func WithRunID(ctx context.Context, id string) context.Context {
	if id == "" {
		id = uuid.NewString()
	}
	return context.WithValue(ctx, runIDKey{}, id)
}

// RunIDFrom returns the run id carried by ctx, or "".
func RunIDFrom(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(runIDKey{}).(string)
	return id
}
