// Package profiler implements a lock-free, hierarchical runtime profiler
// for real-time rendering loops.
//
// Instrumented goroutines record nested timing scopes into per-thread
// single-producer/single-consumer ring buffers; nothing on that path blocks,
// locks, or allocates. A background aggregator drains the rings on its own
// schedule, reconstructs the call hierarchy by scope path, maintains
// per-frame and rolling-window statistics, evicts scopes that stop being
// exercised, and publishes an immutable [Snapshot] at a bounded rate for
// display.
//
// Typical usage creates a [Config], builds the service object, and
// registers a handle per instrumented goroutine:
//
//	cfg := profiler.NewConfig()
//	cfg.RegisterFlags(rootCmd.PersistentFlags())
//
//	prof := cfg.NewProfiler(profiler.WithLogger(logger))
//	if err := prof.Start(); err != nil { ... }
//	defer prof.Stop()
//
//	// In the render goroutine:
//	th := prof.RegisterThread()
//	th.MarkAsRenderThread()
//	for running {
//	    frame := th.Begin("Frame")
//	    update := th.Begin("Update")
//	    ...
//	    update.End()
//	    frame.End()
//	    prof.EndFrame()
//	}
//
//	// In the UI:
//	snap := prof.GetProfileData()
//
// Scope names must be string constants or otherwise-interned strings: the
// profiler stores string headers without copying, and an event referencing
// a transient string would pin (or outlive) its backing storage.
//
// Overload is handled by dropping, never by blocking: a thread that
// produces events faster than the aggregator drains them overwrites its own
// oldest unread events, and a scope whose parent cannot be resolved is
// displayed as a root until the hierarchy self-corrects on a later pass.
package profiler
