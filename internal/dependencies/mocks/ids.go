package mocks

import (
	"fmt"
	"sync"

	"github.com/mcoot/partycasino/internal/dependencies/ids"
)

// MockIDs is a mock implementation of ids.Generator for testing
type MockIDs struct {
	mu sync.Mutex

	// Queued is a queue of ids to return from NewID
	Queued []string
	next   int

	// counter generates fallback ids once the queue is empty
	counter int
}

// Ensure MockIDs implements Generator
var _ ids.Generator = (*MockIDs)(nil)

// NewMockIDs creates a new MockIDs
func NewMockIDs() *MockIDs {
	return &MockIDs{}
}

// NewID returns the next queued id, or a sequential "id-N" once the queue is drained
func (m *MockIDs) NewID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.next < len(m.Queued) {
		id := m.Queued[m.next]
		m.next++
		return id
	}
	m.counter++
	return fmt.Sprintf("id-%d", m.counter)
}

// Queue adds values to the id queue
func (m *MockIDs) Queue(values ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Queued = append(m.Queued, values...)
}

// Reset clears all queued ids and the fallback counter
func (m *MockIDs) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Queued = nil
	m.next = 0
	m.counter = 0
}
