// Package testutil provides shared test doubles and fixtures for the
// archive layer.
package testutil

import (
	"fmt"
	"sync/atomic"
	"time"
)

// StubClock is a Clock whose time only moves when a test advances it, so
// archive timestamps come out deterministic. Safe for concurrent use.
type StubClock struct {
	nanos atomic.Int64
}

// NewStubClock returns a StubClock set to the given instant.
func NewStubClock(t time.Time) *StubClock {
	c := &StubClock{}
	c.nanos.Store(t.UnixNano())
	return c
}

// FixedClock returns a StubClock set to 2024-06-15 08:00:00 UTC, the
// epoch shared by fixtures that compare stored timestamps.
func FixedClock() *StubClock {
	return NewStubClock(time.Date(2024, 6, 15, 8, 0, 0, 0, time.UTC))
}

func (c *StubClock) Now() time.Time {
	return time.Unix(0, c.nanos.Load()).UTC()
}

// Advance moves the clock forward by d.
func (c *StubClock) Advance(d time.Duration) {
	c.nanos.Add(int64(d))
}

// StubIDGenerator is an IDGenerator issuing "id-1", "id-2", ... so record
// identity is predictable in assertions.
type StubIDGenerator struct {
	counter atomic.Int64
}

func NewStubIDGenerator() *StubIDGenerator {
	return &StubIDGenerator{}
}

func (g *StubIDGenerator) New() string {
	return fmt.Sprintf("id-%d", g.counter.Add(1))
}
