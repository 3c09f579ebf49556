package profiler

import (
	"sync/atomic"
	"time"
)

// scopeStackDepth is the preallocated scope-stack capacity. Nesting deeper
// than this still works; it just allocates on the first excursion.
const scopeStackDepth = 64

// Thread is a per-goroutine handle into the profiler.
//
// Obtain one with [Profiler.RegisterThread] from the goroutine that will be
// instrumented. [Thread.Begin] must only be called from that goroutine; the
// handle owns a single-producer ring and a scope stack that are not safe for
// any other caller. [Thread.MarkAsRenderThread] and [Thread.Close] are safe
// from anywhere.
type Thread struct {
	p      *Profiler
	ring   *eventRing
	stack  []string
	id     uint32
	render atomic.Bool
	live   atomic.Bool
}

// ID returns the registry-assigned thread identifier.
func (t *Thread) ID() uint32 { return t.id }

// MarkAsRenderThread classifies all subsequent events from this thread as
// render-thread work. Intended to be called once, by the render loop, for
// the lifetime of the process.
func (t *Thread) MarkAsRenderThread() { t.render.Store(true) }

// Close marks the thread as exited. The aggregator drains whatever is still
// buffered and then stops reading the ring. The registry entry itself is
// never removed; the liveness flag, not removal, signals "stop reading".
func (t *Thread) Close() { t.live.Store(false) }

// Scope is an open measurement on a thread. Close it with [Scope.End],
// typically via defer, which records exactly one event on every exit path
// including panics propagating through the measured region.
type Scope struct {
	t     *Thread
	name  string
	start time.Time
	depth uint8
	open  bool
}

// Begin opens a named scope on t and pushes it onto the thread's scope
// stack. The name must be a string constant or an interned string; the
// profiler retains the header without copying.
//
// When the profiler is disabled Begin short-circuits before the timestamp
// capture and returns an inert Scope whose End is a no-op.
func (t *Thread) Begin(name string) Scope {
	if !t.p.enabled.Load() {
		return Scope{}
	}

	depth := len(t.stack)
	if depth > maxDepth {
		depth = maxDepth
	}

	t.stack = append(t.stack, name)

	return Scope{
		t:     t,
		name:  name,
		start: time.Now(),
		depth: uint8(depth),
		open:  true,
	}
}

const maxDepth = 255

// End closes the scope: it computes the elapsed duration, pops the scope
// stack, reads the new top of stack as the parent name, and pushes one event
// into the owning thread's ring. Calling End again is a no-op.
func (s *Scope) End() {
	if !s.open {
		return
	}

	s.open = false

	elapsed := time.Since(s.start)
	t := s.t

	// Truncate rather than pop: anything above this scope on the stack was
	// abandoned by a non-local exit that skipped the inner End calls.
	if n := int(s.depth); n < len(t.stack) {
		t.stack = t.stack[:n]
	}

	parent := ""
	if len(t.stack) > 0 {
		parent = t.stack[len(t.stack)-1]
	}

	t.ring.push(Event{
		Name:         s.name,
		Parent:       parent,
		Duration:     elapsed,
		ThreadID:     t.id,
		Depth:        s.depth,
		RenderThread: t.render.Load(),
	})
}
