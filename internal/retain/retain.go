// Package retain holds the small amount of state that survives a sleep
// cycle: the boot counter, the cause of the last wake, and the hardware id
// fallback.
package retain

import (
	"sync"

	"github.com/sweeney/contact-sensor/internal/logic"
)

// Store is retention memory.
type Store interface {
	// IncrementBootCount bumps the counter and returns the new value.
	// Called exactly once per cycle, before anything else.
	IncrementBootCount() (int, error)

	// WakeCause returns the cause recorded by the last suspend.
	WakeCause() (logic.WakeCause, error)
	SetWakeCause(logic.WakeCause) error

	// HardwareID returns a persisted identifier, or "" if none.
	HardwareID() (string, error)
	SetHardwareID(string) error

	Close() error
}

// MemStore is an in-memory Store for tests and for builds without a
// writable state directory.
type MemStore struct {
	mu           sync.Mutex
	BootCount    int
	Cause        logic.WakeCause
	ID           string
	Closed       bool
	IncrementErr error
}

// NewMemStore creates a MemStore starting at the given boot count.
func NewMemStore(bootCount int) *MemStore {
	return &MemStore{BootCount: bootCount}
}

func (m *MemStore) IncrementBootCount() (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.IncrementErr != nil {
		return 0, m.IncrementErr
	}
	m.BootCount++
	return m.BootCount, nil
}

func (m *MemStore) WakeCause() (logic.WakeCause, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Cause, nil
}

func (m *MemStore) SetWakeCause(c logic.WakeCause) error {
	m.mu.Lock()
	m.Cause = c
	m.mu.Unlock()
	return nil
}

func (m *MemStore) HardwareID() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ID, nil
}

func (m *MemStore) SetHardwareID(id string) error {
	m.mu.Lock()
	m.ID = id
	m.mu.Unlock()
	return nil
}

func (m *MemStore) Close() error {
	m.mu.Lock()
	m.Closed = true
	m.mu.Unlock()
	return nil
}
