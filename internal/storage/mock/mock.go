package mock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/objones25/mnemo/internal/memory"
)

// Backend is an in-memory storage backend for testing. Operations can be
// made to fail on demand, either per operation name or probabilistically,
// and can carry artificial latency.
type Backend struct {
	mu       sync.RWMutex
	entries  map[memory.ID]*memory.Entry
	errors   map[string]error
	latency  time.Duration
	failRate float64
	closed   bool
}

func NewBackend() *Backend {
	return &Backend{
		entries: make(map[memory.ID]*memory.Entry),
		errors:  make(map[string]error),
	}
}

// SetLatency sets artificial latency for operations.
func (m *Backend) SetLatency(d time.Duration) {
	m.latency = d
}

// SetFailRate sets the percentage of operations that should fail.
func (m *Backend) SetFailRate(rate float64) {
	m.failRate = rate
}

// SetError sets a specific error for an operation ("put", "get", "delete",
// "all", "count", "health", "close"). A nil err clears it.
func (m *Backend) SetError(operation string, err error) {
	if err == nil {
		delete(m.errors, operation)
		return
	}
	m.errors[operation] = err
}

func (m *Backend) simulateLatencyAndFailure(operation string) error {
	if m.latency > 0 {
		time.Sleep(m.latency)
	}

	if err, ok := m.errors[operation]; ok {
		return err
	}

	if m.failRate > 0 {
		if time.Now().UnixNano()%100 < int64(m.failRate*100) {
			return fmt.Errorf("simulated failure for %s", operation)
		}
	}

	return nil
}

// Put stores a copy of the entry, mirroring the serialization boundary a
// real backend has.
func (m *Backend) Put(ctx context.Context, e *memory.Entry) error {
	if err := m.simulateLatencyAndFailure("put"); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries[e.ID] = e.Clone()
	return nil
}

func (m *Backend) Get(ctx context.Context, id memory.ID) (*memory.Entry, error) {
	if err := m.simulateLatencyAndFailure("get"); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.entries[id]
	if !ok {
		return nil, nil
	}
	return e.Clone(), nil
}

func (m *Backend) Delete(ctx context.Context, id memory.ID) (bool, error) {
	if err := m.simulateLatencyAndFailure("delete"); err != nil {
		return false, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	_, ok := m.entries[id]
	delete(m.entries, id)
	return ok, nil
}

func (m *Backend) All(ctx context.Context) ([]*memory.Entry, error) {
	if err := m.simulateLatencyAndFailure("all"); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*memory.Entry, 0, len(m.entries))
	for _, e := range m.entries {
		out = append(out, e.Clone())
	}
	return out, nil
}

func (m *Backend) Count(ctx context.Context) (int, error) {
	if err := m.simulateLatencyAndFailure("count"); err != nil {
		return 0, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries), nil
}

func (m *Backend) Health(ctx context.Context) error {
	return m.simulateLatencyAndFailure("health")
}

func (m *Backend) Close() error {
	if err := m.simulateLatencyAndFailure("close"); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Helper methods for testing

func (m *Backend) EntryCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

func (m *Backend) Closed() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.closed
}

// Seed places an entry directly into the backend, bypassing failure
// simulation. Useful for restart scenarios.
func (m *Backend) Seed(e *memory.Entry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[e.ID] = e.Clone()
}
