package counter

import (
	"context"
	"sync"
)

var _ Store = (*Memory)(nil)

// Memory is an in-process counter store. A single mutex serializes all
// mutations, which is what makes the conditional operations atomic.
type Memory struct {
	mu     sync.Mutex
	values map[string]int64
}

// NewMemory returns an empty in-memory counter store.
func NewMemory() *Memory {
	return &Memory{values: make(map[string]int64)}
}

func (m *Memory) Get(_ context.Context, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.values[key], nil
}

func (m *Memory) Set(_ context.Context, key string, value int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

func (m *Memory) DecrIfPositive(_ context.Context, key string) (int64, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v := m.values[key]
	if v < 1 {
		return v, false, nil
	}
	v--
	m.values[key] = v
	return v, true, nil
}

func (m *Memory) IncrWithCeiling(_ context.Context, key string, ceiling int64) (int64, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v := m.values[key]
	if v >= ceiling {
		return v, false, nil
	}
	v++
	m.values[key] = v
	return v, true, nil
}
