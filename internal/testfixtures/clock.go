package testfixtures

import (
	"fmt"
	"sync"
	"time"

	"github.com/example/table-reservations/internal/scheduler"
)

// Clock is a controllable time source for services that take a now func.
type Clock struct {
	mu      sync.Mutex
	current time.Time
}

// NewClock returns a clock at start, or at ReferenceTime when start is zero.
func NewClock(start time.Time) *Clock {
	if start.IsZero() {
		start = ReferenceTime()
	}
	return &Clock{current: start}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// NowFunc exposes Now for dependency injection. A nil clock yields time.Now.
func (c *Clock) NowFunc() func() time.Time {
	if c == nil {
		return time.Now
	}
	return c.Now
}

func (c *Clock) Set(t time.Time) {
	c.mu.Lock()
	c.current = t
	c.mu.Unlock()
}

// Advance moves the clock forward by d and returns the new time.
func (c *Clock) Advance(d time.Duration) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = c.current.Add(d)
	return c.current
}

// SetWallClock moves the clock to the given YYYY-MM-DD date and HH:MM time in
// the clock's current location.
func (c *Clock) SetWallClock(date, clock string) error {
	at, err := scheduler.ParseClock(clock)
	if err != nil {
		return fmt.Errorf("wall clock time: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	instant, err := scheduler.StartInstant(date, at, c.current.Location())
	if err != nil {
		return fmt.Errorf("wall clock date: %w", err)
	}
	c.current = instant
	return nil
}
