package lock

import (
	"context"
	"sync"
	"time"
)

// MemoryLocker is a process-wide Locker. Suitable for single-instance
// deployments and tests; multi-instance deployments use the shared-store
// implementation.
type MemoryLocker struct {
	mu    sync.Mutex
	held  map[string]time.Time
	clock func() time.Time
}

// NewMemoryLocker constructs an empty in-process locker.
func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{held: make(map[string]time.Time), clock: time.Now}
}

// Acquire takes the named lock unless it is held and unexpired.
func (m *MemoryLocker) Acquire(_ context.Context, key string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.clock()
	if expires, ok := m.held[key]; ok && now.Before(expires) {
		return false, nil
	}
	m.held[key] = now.Add(ttl)
	return true, nil
}

// Release drops the named lock.
func (m *MemoryLocker) Release(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.held, key)
	return nil
}
