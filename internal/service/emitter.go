package service

import (
	"context"
	"sync"
)

// ─────────────────────────────────────────────────────────────
// EventEmitter decouples services from wailsRuntime
// ─────────────────────────────────────────────────────────────

// Events emitted by the services.
const (
	EventPreviewUpdated   = "preview:updated"
	EventNotice           = "notice"
	EventPublishProgress  = "publish:progress"
	EventPublishDone      = "publish:done"
	EventRemoveRequested  = "block:remove-requested"
	EventApprovalRequired = "mcp:approval-required"
	EventSessionChanged   = "session:changed"
)

// EventEmitter is an interface for emitting events to the frontend.
// The App struct implements this by delegating to wailsRuntime.EventsEmit.
// Services receive this interface instead of a wailsRuntime context,
// which makes them independently testable with a mock emitter.
type EventEmitter interface {
	Emit(ctx context.Context, event string, data any)
}

// EmitterFunc adapts a function to EventEmitter.
type EmitterFunc func(ctx context.Context, event string, data any)

func (f EmitterFunc) Emit(ctx context.Context, event string, data any) { f(ctx, event, data) }

// FanOut emits every event to each non-nil emitter in order.
type FanOut []EventEmitter

func (f FanOut) Emit(ctx context.Context, event string, data any) {
	for _, e := range f {
		if e != nil {
			e.Emit(ctx, event, data)
		}
	}
}

type nopEmitter struct{}

func (nopEmitter) Emit(context.Context, string, any) {}

func orNop(e EventEmitter) EventEmitter {
	if e == nil {
		return nopEmitter{}
	}
	return e
}

// MockEmitter is a test-friendly EventEmitter that records all calls.
// Upload progress is emitted from worker goroutines, so it is locked.
type MockEmitter struct {
	mu     sync.Mutex
	Events []EmittedEvent
}

// EmittedEvent holds a single recorded emission for test assertions.
type EmittedEvent struct {
	Event string
	Data  any
}

func (m *MockEmitter) Emit(_ context.Context, event string, data any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Events = append(m.Events, EmittedEvent{Event: event, Data: data})
}

// Named returns the recorded payloads of one event, in order.
func (m *MockEmitter) Named(event string) []any {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []any
	for _, e := range m.Events {
		if e.Event == event {
			out = append(out, e.Data)
		}
	}
	return out
}

// Last returns the payload of the most recent emission of event.
func (m *MockEmitter) Last(event string) (any, bool) {
	all := m.Named(event)
	if len(all) == 0 {
		return nil, false
	}
	return all[len(all)-1], true
}
