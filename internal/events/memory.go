package events

import (
	"context"
	"sync"

	id "vaultgate/pkg/domain"
)

// MemorySink is both a Publisher and a Store backed by process memory. Tests
// use it to observe exactly which events an operation emitted.
type MemorySink struct {
	mu     sync.RWMutex
	events []Event
}

func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

func (m *MemorySink) Publish(_ context.Context, event Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	return nil
}

func (m *MemorySink) Close() error { return nil }

func (m *MemorySink) Append(ctx context.Context, event Event) error {
	return m.Publish(ctx, event)
}

func (m *MemorySink) ListByRequest(_ context.Context, requestID id.RequestID) ([]Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Event
	for _, e := range m.events {
		if e.RequestID == requestID {
			out = append(out, e)
		}
	}
	return out, nil
}

// All returns a copy of every recorded event in emission order.
func (m *MemorySink) All() []Event {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]Event{}, m.events...)
}

// Types returns the recorded event types in emission order.
func (m *MemorySink) Types() []Type {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Type, 0, len(m.events))
	for _, e := range m.events {
		out = append(out, e.Type)
	}
	return out
}
