package profiler

import "time"

// Event is one completed scope measurement, produced by [Scope.End] on the
// owning thread and consumed by the aggregator.
//
// Events are value types: they are copied into the thread's ring buffer on
// submission, so nothing aliases them after the hand-off. The Name and Parent
// strings are stored by header, not copied; callers must pass string
// constants or otherwise-interned strings whose backing storage outlives the
// profiler.
type Event struct {
	// Name identifies the measured scope.
	Name string

	// Parent is the name of the enclosing scope, or empty for a root scope.
	Parent string

	// Duration is the measured wall time of the scope.
	Duration time.Duration

	// ThreadID identifies the producing thread handle.
	ThreadID uint32

	// Depth is the scope-stack depth at the time the scope opened.
	Depth uint8

	// RenderThread marks events produced by the designated render thread.
	RenderThread bool
}
