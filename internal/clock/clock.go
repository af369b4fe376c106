// Package clock supplies wall-clock time as fractional epoch seconds, the
// unit every persisted timestamp in the settings store uses.
package clock

import (
	"sync"
	"time"
)

// Clock returns the current time in seconds since 1970-01-01 UTC.
type Clock interface {
	Now() float64
}

// System reads the host's wall clock.
type System struct{}

// Now implements Clock.
func (System) Now() float64 {
	return FromTime(time.Now())
}

// FromTime converts t to fractional epoch seconds.
func FromTime(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}

// ToTime converts fractional epoch seconds back to a time.Time.
func ToTime(s float64) time.Time {
	return time.Unix(0, int64(s*float64(time.Second)))
}

// Manual is a Clock that only moves when told to.
type Manual struct {
	mu  sync.Mutex
	now float64
}

// NewManual creates a manual clock starting at the given epoch seconds.
func NewManual(start float64) *Manual {
	return &Manual{now: start}
}

// Now implements Clock.
func (m *Manual) Now() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Set moves the clock to an absolute time.
func (m *Manual) Set(now float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
}

// Advance moves the clock forward by d seconds.
func (m *Manual) Advance(d float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now += d
}
