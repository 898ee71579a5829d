package callback

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Handler receives lifecycle events. Returned errors and panics are logged
// by the Manager and never reach the inference.
type Handler interface {
	Handle(ctx context.Context, e Event) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, e Event) error

func (f HandlerFunc) Handle(ctx context.Context, e Event) error { return f(ctx, e) }

// Manager dispatches events to handlers in registration order.
// A nil *Manager drops every event.
type Manager struct {
	mu       sync.RWMutex
	handlers []Handler
	log      zerolog.Logger
	now      func() time.Time
}

// NewManager returns a manager with the given handlers.
func NewManager(log zerolog.Logger, handlers ...Handler) *Manager {
	return &Manager{handlers: append([]Handler(nil), handlers...), log: log, now: time.Now}
}

// Register appends a handler.
func (m *Manager) Register(h Handler) {
	if m == nil || h == nil {
		return
	}
	m.mu.Lock()
	m.handlers = append(m.handlers, h)
	m.mu.Unlock()
}

// Len returns the number of registered handlers.
func (m *Manager) Len() int {
	if m == nil {
		return 0
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.handlers)
}

// Emit stamps e with the time and the run id from ctx, then calls every
// handler synchronously.
func (m *Manager) Emit(ctx context.Context, e Event) {
	if m == nil {
		return
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = m.now()
	}
	if e.RunID == "" {
		e.RunID = RunIDFrom(ctx)
	}
	if e.Payload == nil {
		e.Payload = map[string]any{}
	}
	m.mu.RLock()
	hs := append([]Handler(nil), m.handlers...)
	m.mu.RUnlock()
	for i, h := range hs {
		if err := m.call(ctx, h, e); err != nil {
			m.log.Warn().Err(err).
				Str("event", e.Name).
				Str("prompt", e.PromptName).
				Int("handler", i).
				Msg("callback handler failed")
		}
	}
}

func (m *Manager) call(ctx context.Context, h Handler, e Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return h.Handle(ctx, e)
}

type managerKey struct{}

// WithManager returns ctx carrying m.
func WithManager(ctx context.Context, m *Manager) context.Context {
	return context.WithValue(ctx, managerKey{}, m)
}

// FromContext returns the manager carried by ctx, or nil. Emit on the nil
// manager is a no-op, so callers need no check.
func FromContext(ctx context.Context) *Manager {
	if ctx == nil {
		return nil
	}
	m, _ := ctx.Value(managerKey{}).(*Manager)
	return m
}
