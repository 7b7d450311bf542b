package bus

import (
	"context"
	"sync"
)

var _ Bus = (*Memory)(nil)

// Memory is an in-process Bus for tests and single-binary development.
// Sends and subscription teardown are serialized by one mutex; a
// subscriber that stops draining has messages dropped rather than
// blocking publishers, matching pub/sub fan-out semantics.
type Memory struct {
	mu   sync.Mutex
	subs map[string][]chan string
}

// NewMemory returns an empty in-process bus.
func NewMemory() *Memory {
	return &Memory{subs: make(map[string][]chan string)}
}

func (m *Memory) Publish(_ context.Context, channel, message string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, ch := range m.subs[channel] {
		select {
		case ch <- message:
		default: // slow consumer
		}
	}
	return nil
}

func (m *Memory) Subscribe(ctx context.Context, channel string) (<-chan string, error) {
	ch := make(chan string, 16)

	m.mu.Lock()
	m.subs[channel] = append(m.subs[channel], ch)
	m.mu.Unlock()

	go func() {
		<-ctx.Done()
		m.mu.Lock()
		subs := m.subs[channel]
		for i, s := range subs {
			if s == ch {
				m.subs[channel] = append(subs[:i], subs[i+1:]...)
				break
			}
		}
		close(ch)
		m.mu.Unlock()
	}()

	return ch, nil
}
