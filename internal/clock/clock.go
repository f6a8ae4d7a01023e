// Package clock abstracts the current time so access decisions and quota
// expiry can be tested at fixed instants.
package clock

import (
	"sync"
	"time"
)

// Clock returns the current time.
type Clock interface {
	Now() time.Time
}

type clock struct{}

func (c *clock) Now() time.Time {
	return time.Now().UTC()
}

// New returns a clock backed by the system time.
func New() Clock {
	return &clock{}
}

// Mock is a settable clock for tests.
type Mock struct {
	mu          sync.RWMutex
	currentTime time.Time
}

// NewMock returns a mock clock set to a fixed instant.
func NewMock() *Mock {
	return &Mock{
		currentTime: time.Date(2026, time.February, 14, 12, 0, 0, 0, time.UTC),
	}
}

// SetNow sets the current time.
func (c *Mock) SetNow(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.currentTime = t
}

// Advance moves the clock forward by d.
func (c *Mock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.currentTime = c.currentTime.Add(d)
}

// Now returns the current mock time.
func (c *Mock) Now() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.currentTime
}
