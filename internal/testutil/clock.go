package testutil

import (
	"fmt"
	"sync"
	"time"
)

// StubClock is an fh.Clock for tests. Snapshot references are named by
// microsecond timestamps and appends must move forward in time, so tests
// call Advance between writes; leaving the clock alone provokes a
// causality error.
type StubClock struct {
	mu  sync.Mutex
	now time.Time
}

func NewStubClock(t time.Time) *StubClock {
	return &StubClock{now: t}
}

// FixedClock starts at 2024-01-15 10:30:00 UTC, which is also DefaultModTime,
// so the first snapshot carries the same instant as the files it records.
func FixedClock() *StubClock {
	return NewStubClock(DefaultModTime)
}

func (c *StubClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d.
func (c *StubClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// StubIDGenerator hands out run IDs "run-1", "run-2", ... in order.
type StubIDGenerator struct {
	mu   sync.Mutex
	next int
}

func NewStubIDGenerator() *StubIDGenerator {
	return &StubIDGenerator{}
}

func (g *StubIDGenerator) New() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.next++
	return fmt.Sprintf("run-%d", g.next)
}
