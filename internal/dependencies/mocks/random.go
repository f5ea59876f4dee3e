package mocks

import (
	"fmt"
	"sync"

	"github.com/mcoot/triviagame/internal/dependencies/random"
)

// MockRandom returns queued values instead of random ones. Safe for concurrent use.
type MockRandom struct {
	mu      sync.Mutex
	ints    []int
	strings []string
	seq     int
}

// Ensure MockRandom implements Random
var _ random.Random = (*MockRandom)(nil)

// NewMockRandom creates a new MockRandom
func NewMockRandom() *MockRandom {
	return &MockRandom{}
}

// Intn returns the next queued int, clamped into [0, n). Returns 0 when the queue is empty.
func (r *MockRandom) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.ints) == 0 || n <= 0 {
		return 0
	}
	v := r.ints[0]
	r.ints = r.ints[1:]
	if v >= n {
		v = n - 1
	}
	return v
}

// String returns the next queued string. When the queue is empty it returns a
// unique sequential string of the requested length.
func (r *MockRandom) String(length int, alphabet string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.strings) == 0 {
		r.seq++
		return fmt.Sprintf("%0*d", length, r.seq)
	}
	v := r.strings[0]
	r.strings = r.strings[1:]
	return v
}

// UUID returns a unique sequential identifier
func (r *MockRandom) UUID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	return fmt.Sprintf("id-%d", r.seq)
}

// QueueIntn adds values to the Intn result queue
func (r *MockRandom) QueueIntn(values ...int) {
	r.mu.Lock()
	r.ints = append(r.ints, values...)
	r.mu.Unlock()
}

// QueueString adds values to the String result queue
func (r *MockRandom) QueueString(values ...string) {
	r.mu.Lock()
	r.strings = append(r.strings, values...)
	r.mu.Unlock()
}

// Reset clears all queued results
func (r *MockRandom) Reset() {
	r.mu.Lock()
	r.ints, r.strings, r.seq = nil, nil, 0
	r.mu.Unlock()
}
