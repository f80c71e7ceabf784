package testutil

import (
	"fmt"
	"sync"
	"time"

	"edusphere/internal/portal"
)

// StubClock returns a fixed time. Safe for concurrent use.
type StubClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewStubClock creates a StubClock set to the given time.
func NewStubClock(t time.Time) *StubClock {
	return &StubClock{now: t}
}

// FixedClock returns a StubClock set to 2024-01-15 10:30:00 UTC.
func FixedClock() *StubClock {
	return NewStubClock(time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC))
}

func (c *StubClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d.
func (c *StubClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// StubIDGenerator returns sequential IDs per kind: "fld-1", "mat-1", "fld-2", etc.
type StubIDGenerator struct {
	mu       sync.Mutex
	counters map[portal.IDKind]int
}

func NewStubIDGenerator() *StubIDGenerator {
	return &StubIDGenerator{counters: make(map[portal.IDKind]int)}
}

func (g *StubIDGenerator) New(kind portal.IDKind) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.counters[kind]++
	return fmt.Sprintf("%s-%d", kind, g.counters[kind])
}

// ScriptedIDGenerator hands out a fixed sequence of ids regardless of kind,
// repeating the last one once the script runs out. Use it to force collisions.
type ScriptedIDGenerator struct {
	mu    sync.Mutex
	ids   []string
	calls int
}

func NewScriptedIDGenerator(ids ...string) *ScriptedIDGenerator {
	return &ScriptedIDGenerator{ids: ids}
}

func (g *ScriptedIDGenerator) New(portal.IDKind) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	i := g.calls
	if i >= len(g.ids) {
		i = len(g.ids) - 1
	}
	g.calls++
	return g.ids[i]
}

// Calls returns how many ids were requested.
func (g *ScriptedIDGenerator) Calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

var (
	_ portal.Clock       = (*StubClock)(nil)
	_ portal.IDGenerator = (*StubIDGenerator)(nil)
	_ portal.IDGenerator = (*ScriptedIDGenerator)(nil)
)
