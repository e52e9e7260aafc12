package allocator

import (
	"context"
	"sync"
)

// Memory keeps the counters in process memory behind a mutex.
type Memory struct {
	mu    sync.Mutex
	state State
}

// NewMemory returns a store initialised to the defaults.
func NewMemory() *Memory {
	return &Memory{state: DefaultState()}
}

func (m *Memory) NextModID(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.state.NextID
	m.state.NextID++
	return id, nil
}

func (m *Memory) ConsumeResultID(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.state.NextResultID
	m.state.NextResultID++
	return id, nil
}

func (m *Memory) Reset(_ context.Context) (State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = DefaultState()
	return m.state, nil
}

func (m *Memory) Snapshot(_ context.Context) (State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state, nil
}

func (m *Memory) Ping(_ context.Context) error { return nil }

func (m *Memory) Close() error { return nil }
