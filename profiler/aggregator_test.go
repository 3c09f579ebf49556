package profiler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestProfiler returns an enabled profiler that publishes on every pass.
func newTestProfiler() *Profiler {
	cfg := NewConfig()
	cfg.Enabled = true
	cfg.PublishInterval = time.Nanosecond

	return cfg.NewProfiler()
}

// inject pushes a synthetic event directly into a thread's ring, bypassing
// the scope machinery so durations are exact.
func inject(th *Thread, name, parent string, depth uint8, d time.Duration) {
	th.ring.push(Event{
		Name:         name,
		Parent:       parent,
		Duration:     d,
		ThreadID:     th.id,
		Depth:        depth,
		RenderThread: th.render.Load(),
	})
}

func findRow(t *testing.T, rows []Row, path string) Entry {
	t.Helper()

	for _, row := range rows {
		if row.Path == path {
			return row.Entry
		}
	}

	require.Failf(t, "row not found", "path %q not in snapshot", path)

	return Entry{}
}

func TestUnknownParentBecomesRoot(t *testing.T) {
	t.Parallel()

	p := newTestProfiler()
	th := p.RegisterThread()

	inject(th, "Orphan", "Ghost", 3, time.Millisecond)

	p.EndFrame()
	p.Sync()

	e := findRow(t, p.GetProfileData().Other, "Orphan")
	assert.Zero(t, e.Depth)
	assert.Empty(t, e.ParentPath)
}

func TestRollingWindowDropsOldest(t *testing.T) {
	t.Parallel()

	cfg := NewConfig()
	cfg.Enabled = true
	cfg.PublishInterval = time.Nanosecond
	cfg.WindowFrames = 2

	p := cfg.NewProfiler()
	th := p.RegisterThread()

	// Three frames at 10, 20, and 30 ms; the 10 ms sample must age out.
	for _, d := range []time.Duration{
		10 * time.Millisecond,
		20 * time.Millisecond,
		30 * time.Millisecond,
	} {
		inject(th, "Work", "", 0, d)
		p.EndFrame()
		p.Sync()
	}

	e := findRow(t, p.GetProfileData().Other, "Work")
	assert.InDelta(t, 25.0, e.RollingTime, 1e-9)
	assert.InDelta(t, 1.0, e.RollingCalls, 1e-9)
}

func TestEndFrameWithoutEventsRollsEmptySamples(t *testing.T) {
	t.Parallel()

	p := newTestProfiler()
	th := p.RegisterThread()

	inject(th, "Once", "", 0, 12*time.Millisecond)

	// One frame with data, two without: three samples total.
	p.EndFrame()
	p.EndFrame()
	p.EndFrame()
	p.Sync()

	e := findRow(t, p.GetProfileData().Other, "Once")
	assert.InDelta(t, 4.0, e.RollingTime, 1e-9)
	assert.InDelta(t, 1.0/3.0, e.RollingCalls, 1e-9)
	assert.Zero(t, e.CallCount) // Last completed frame was empty.
}

func TestMaxTimeTracksLargestFrame(t *testing.T) {
	t.Parallel()

	p := newTestProfiler()
	th := p.RegisterThread()

	inject(th, "Spike", "", 0, 8*time.Millisecond)
	p.EndFrame()
	p.Sync()

	inject(th, "Spike", "", 0, 2*time.Millisecond)
	p.EndFrame()
	p.Sync()

	e := findRow(t, p.GetProfileData().Other, "Spike")
	assert.InDelta(t, 8.0, e.MaxTime, 1e-9)
	assert.InDelta(t, 2.0, e.TotalTime, 1e-9)
}

func TestSelfTimeExcludesDirectChildrenOnly(t *testing.T) {
	t.Parallel()

	p := newTestProfiler()
	th := p.RegisterThread()
	th.MarkAsRenderThread()

	// A contains B contains C. Durations nest: C=5ms, B=12ms, A=30ms.
	inject(th, "C", "B", 2, 5*time.Millisecond)
	inject(th, "B", "A", 1, 12*time.Millisecond)
	inject(th, "A", "", 0, 30*time.Millisecond)

	p.EndFrame()
	p.Sync()

	rows := p.GetProfileData().Render

	a := findRow(t, rows, "A")
	b := findRow(t, rows, "A/B")
	c := findRow(t, rows, "A/B/C")

	// A's self time subtracts B but not C: C is B's child, not A's.
	assert.InDelta(t, a.TotalTime-b.TotalTime, a.SelfTime, 1e-9)
	assert.InDelta(t, 18.0, a.SelfTime, 1e-9)
	assert.InDelta(t, 7.0, b.SelfTime, 1e-9)
	assert.InDelta(t, 5.0, c.SelfTime, 1e-9)

	// Percentages: A is the only root, so it carries the whole class.
	assert.InDelta(t, 100.0, a.TotalPercentage, 1e-9)
	assert.InDelta(t, b.TotalTime/a.TotalTime*100, b.ParentPercentage, 1e-9)
	assert.InDelta(t, c.TotalTime/b.TotalTime*100, c.ParentPercentage, 1e-9)
	assert.InDelta(t, c.TotalTime/a.TotalTime*100, c.TotalPercentage, 1e-9)
}

func TestTreeOrderParentsBeforeChildren(t *testing.T) {
	t.Parallel()

	p := newTestProfiler()
	th := p.RegisterThread()

	inject(th, "Second", "Root", 1, time.Millisecond)
	inject(th, "First", "Root", 1, time.Millisecond)
	inject(th, "Root", "", 0, 4*time.Millisecond)

	p.EndFrame()
	p.Sync()

	rows := p.GetProfileData().Other
	require.Len(t, rows, 3)

	assert.Equal(t, "Root", rows[0].Path)
	// Children follow their parent in first-seen order.
	assert.Equal(t, "Root/Second", rows[1].Path)
	assert.Equal(t, "Root/First", rows[2].Path)
	assert.Equal(t, []string{"Root/Second", "Root/First"}, rows[0].Entry.Children)
}

func TestStaleEntryEvicted(t *testing.T) {
	t.Parallel()

	cfg := NewConfig()
	cfg.Enabled = true
	cfg.PublishInterval = time.Nanosecond
	cfg.StaleAfter = 20 * time.Millisecond

	p := cfg.NewProfiler()
	th := p.RegisterThread()

	inject(th, "Child", "Parent", 1, time.Millisecond)
	inject(th, "Parent", "", 0, 2*time.Millisecond)
	p.EndFrame()
	p.Sync()

	require.NotEmpty(t, findRow(t, p.GetProfileData().Other, "Parent").Children)

	// Keep the parent fresh while the child goes idle past the threshold.
	deadline := time.Now().Add(60 * time.Millisecond)
	for time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)

		inject(th, "Parent", "", 0, 2*time.Millisecond)
		p.EndFrame()
		p.Sync()
	}

	snap := p.GetProfileData()

	parent := findRow(t, snap.Other, "Parent")
	assert.Empty(t, parent.Children)

	for _, row := range snap.Other {
		assert.NotEqual(t, "Parent/Child", row.Path)
	}
}

func TestStopTimeoutRetrySafe(t *testing.T) {
	t.Parallel()

	cfg := NewConfig()
	cfg.StopTimeout = 50 * time.Millisecond

	p := cfg.NewProfiler()

	// Stand in for a run goroutine stuck past the stop deadline: the done
	// channel stays open until the test releases it.
	p.mu.Lock()
	p.stop = make(chan struct{})
	p.done = make(chan struct{})
	p.running = true
	p.mu.Unlock()

	require.ErrorIs(t, p.Stop(), ErrStopTimeout)

	// Retrying resumes the wait; it must not close the stop channel twice.
	require.ErrorIs(t, p.Stop(), ErrStopTimeout)

	close(p.done)

	require.NoError(t, p.Stop())
	require.ErrorIs(t, p.Stop(), ErrNotRunning)

	// The profiler is fully usable again after the late exit.
	require.NoError(t, p.Start())
	require.NoError(t, p.Stop())
}

func TestEvictionKeepsSurvivorResolvable(t *testing.T) {
	t.Parallel()

	cfg := NewConfig()
	cfg.Enabled = true
	cfg.PublishInterval = time.Nanosecond
	cfg.StaleAfter = 20 * time.Millisecond

	p := cfg.NewProfiler()
	th := p.RegisterThread()

	frame := func(withPhysics bool) {
		inject(th, "Update", "", 0, time.Millisecond)
		inject(th, "Render", "Update", 1, time.Millisecond)

		if withPhysics {
			inject(th, "Physics", "", 0, time.Millisecond)
			inject(th, "Render", "Physics", 1, time.Millisecond)
		}

		p.EndFrame()
		p.Sync()
	}

	frame(true)

	// Keep the Update tree fresh while the Physics tree, including its own
	// "Render" scope, ages out.
	deadline := time.Now().Add(60 * time.Millisecond)
	for time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
		frame(false)
	}

	for _, row := range p.GetProfileData().Other {
		assert.NotContains(t, row.Path, "Physics")
	}

	// A child of the surviving duplicate-named scope must still resolve
	// under it, not fall back to a root.
	inject(th, "Update", "", 0, 2*time.Millisecond)
	inject(th, "Render", "Update", 1, time.Millisecond)
	inject(th, "Shadows", "Render", 2, time.Millisecond)
	p.EndFrame()
	p.Sync()

	e := findRow(t, p.GetProfileData().Other, "Update/Render/Shadows")
	assert.Equal(t, "Update/Render", e.ParentPath)
	assert.Equal(t, 2, e.Depth)
}
