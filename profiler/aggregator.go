package profiler

import (
	"cmp"
	"log/slog"
	"slices"
	"sync"
	"time"
)

// nameDepth keys the parent-resolution index: a child event carries only its
// parent's bare name, so the aggregator finds the parent's full path by
// (bare name, stack depth).
type nameDepth struct {
	name  string
	depth uint8
}

// classState holds all profile entries for one thread class (render vs.
// other). Exclusively owned by the aggregator.
type classState struct {
	entries map[string]*entry
	order   []string // paths in creation order
	index   map[nameDepth]string
}

func newClassState() *classState {
	return &classState{
		entries: make(map[string]*entry),
		index:   make(map[nameDepth]string),
	}
}

// resolve maps an event to its full path and parent path. An event whose
// parent name matches no known entry is treated as a new root; that signals
// an incomplete stack (the parent has not completed yet, or was evicted),
// not a fatal condition, and self-corrects on a later pass.
func (c *classState) resolve(ev Event) (path, parentPath string) {
	if ev.Depth == 0 || ev.Parent == "" {
		return ev.Name, ""
	}

	pp, ok := c.index[nameDepth{name: ev.Parent, depth: ev.Depth - 1}]
	if !ok {
		return ev.Name, ""
	}

	return pp + "/" + ev.Name, pp
}

// aggregator drains the thread rings, reconstructs the call hierarchy, and
// maintains per-path statistics. All of its state is confined to whichever
// goroutine holds mu; in steady state that is the background loop, with
// [Profiler.Sync] and [Profiler.Clear] taking turns through the same lock.
type aggregator struct {
	p      *Profiler
	logger *slog.Logger

	mu sync.Mutex

	render *classState
	other  *classState

	lastFrameSeq uint64
	lastPublish  time.Time

	scratch []Event
}

func newAggregator(p *Profiler, logger *slog.Logger) *aggregator {
	return &aggregator{
		p:       p,
		logger:  logger,
		render:  newClassState(),
		other:   newClassState(),
		scratch: make([]Event, 0, defaultRingSize),
	}
}

// pass runs one full aggregation cycle: drain, frame rollup for every
// EndFrame signal seen since the previous pass, staleness eviction, and a
// rate-limited snapshot publish.
func (a *aggregator) pass(now time.Time) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.drainAll(now)

	pending := a.p.frameSeq.Load() - a.lastFrameSeq
	for range pending {
		a.rollFrame(now)
	}

	a.lastFrameSeq += pending

	a.evictStale(now)
	a.maybePublish(now)
}

// drainAll empties every registered ring. Dead threads are drained until
// empty, then skipped.
func (a *aggregator) drainAll(now time.Time) {
	for _, t := range a.p.registrySnapshot() {
		if !t.live.Load() && t.ring.pending() == 0 {
			continue
		}

		a.scratch = t.ring.drain(a.scratch[:0])

		// Scopes complete child-first, so a batch arrives in post-order and
		// a parent's first event tends to trail its children's. Recording
		// shallow scopes first lets a whole new subtree resolve in one
		// pass; the stable sort keeps FIFO order within each depth.
		slices.SortStableFunc(a.scratch, func(x, y Event) int {
			return cmp.Compare(x.Depth, y.Depth)
		})

		for i := range a.scratch {
			a.record(a.scratch[i], now)
		}
	}
}

// record folds one event into its class's entry map, creating the entry and
// its parent linkage on first observation of the path.
func (a *aggregator) record(ev Event, now time.Time) {
	cls := a.other
	if ev.RenderThread {
		cls = a.render
	}

	path, parentPath := cls.resolve(ev)

	e, ok := cls.entries[path]
	if !ok {
		depth := int(ev.Depth)
		if parentPath == "" {
			depth = 0
		}

		e = &entry{
			name:       ev.Name,
			path:       path,
			parentPath: parentPath,
			depth:      depth,
			indexDepth: ev.Depth,
			window:     newRollingWindow(a.p.cfg.WindowFrames),
		}
		cls.entries[path] = e
		cls.order = append(cls.order, path)

		if parentPath != "" {
			cls.entries[parentPath].addChild(path)
		}
	}

	// Re-asserted on every event, not just creation: evicting another path
	// that shared this key deletes it, and children resolve through it.
	cls.index[nameDepth{name: ev.Name, depth: ev.Depth}] = path

	e.frameTotalMs += float64(ev.Duration) / float64(time.Millisecond)
	e.frameCalls++
	e.lastUpdate = now
}

// rollFrame closes out one frame for both classes: self time, percentages,
// rolling window, max tracking, then a reset of the current-frame counters.
func (a *aggregator) rollFrame(now time.Time) {
	a.rollClass(a.render, now)
	a.rollClass(a.other, now)
}

func (a *aggregator) rollClass(cls *classState, now time.Time) {
	// Self time is total minus direct children only; grandchildren are
	// already accounted for inside the direct children's totals.
	classTotal := 0.0

	for _, path := range cls.order {
		e := cls.entries[path]

		childSum := 0.0
		for _, c := range e.children {
			childSum += cls.entries[c].frameTotalMs
		}

		e.frameSelfMs = e.frameTotalMs - childSum
		if e.frameSelfMs < 0 {
			e.frameSelfMs = 0
		}

		if e.parentPath == "" {
			classTotal += e.frameTotalMs
		}
	}

	for _, path := range cls.order {
		e := cls.entries[path]

		e.parentPct = 0
		if parent, ok := cls.entries[e.parentPath]; ok && parent.frameTotalMs > 0 {
			e.parentPct = e.frameTotalMs / parent.frameTotalMs * 100
		}

		e.totalPct = 0
		if classTotal > 0 {
			e.totalPct = e.frameTotalMs / classTotal * 100
		}

		e.lastTotalMs = e.frameTotalMs
		e.lastSelfMs = e.frameSelfMs
		e.lastCalls = e.frameCalls

		e.window.push(frameSample{
			totalMs: e.frameTotalMs,
			selfMs:  e.frameSelfMs,
			calls:   e.frameCalls,
		})
		e.avgTotalMs, e.avgSelfMs, e.avgCalls = e.window.averages()

		if now.Sub(e.maxResetAt) >= time.Second {
			e.maxMs = e.frameTotalMs
			e.maxResetAt = now
		} else if e.frameTotalMs > e.maxMs {
			e.maxMs = e.frameTotalMs
		}
	}

	// Reset in a separate pass: percentages above read other entries'
	// frame totals, so no counter may be zeroed until every entry is done.
	for _, path := range cls.order {
		e := cls.entries[path]
		e.frameTotalMs = 0
		e.frameSelfMs = 0
		e.frameCalls = 0
	}
}

// evictStale removes entries that have not seen an event for longer than the
// staleness threshold, unlinking them from their parent's child list so no
// dangling references survive.
func (a *aggregator) evictStale(now time.Time) {
	a.evictClass(a.render, "render", now)
	a.evictClass(a.other, "other", now)
}

func (a *aggregator) evictClass(cls *classState, className string, now time.Time) {
	cutoff := a.p.cfg.StaleAfter

	kept := cls.order[:0]

	for _, path := range cls.order {
		e := cls.entries[path]

		if now.Sub(e.lastUpdate) <= cutoff {
			kept = append(kept, path)
			continue
		}

		delete(cls.entries, path)

		if parent, ok := cls.entries[e.parentPath]; ok {
			parent.removeChild(path)
		}

		key := nameDepth{name: e.name, depth: e.indexDepth}
		if cls.index[key] == path {
			delete(cls.index, key)
		}

		a.logger.Debug("evicted stale profile entry",
			slog.String("path", path),
			slog.String("class", className))
	}

	// Clear trailing references for GC.
	for i := len(kept); i < len(cls.order); i++ {
		cls.order[i] = ""
	}

	cls.order = kept
}

// maybePublish replaces the published snapshot if the publish interval has
// elapsed since the previous one.
func (a *aggregator) maybePublish(now time.Time) {
	if !a.lastPublish.IsZero() && now.Sub(a.lastPublish) < a.p.cfg.PublishInterval {
		return
	}

	a.publish(now)
}

func (a *aggregator) publish(now time.Time) {
	snap := &Snapshot{
		Render: flattenClass(a.render),
		Other:  flattenClass(a.other),
		Taken:  now,
	}

	a.p.snapshot.Store(snap)
	a.lastPublish = now
}

// clear drops all accumulated entries and publishes an empty snapshot, for a
// cold restart of measurement.
func (a *aggregator) clear(now time.Time) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.render = newClassState()
	a.other = newClassState()
	a.lastFrameSeq = a.p.frameSeq.Load()

	a.publish(now)
}

// flattenClass emits the class's entries in tree order: roots in creation
// order, each followed depth-first by its children in first-seen order.
// Entries orphaned by a parent eviction are appended after the trees.
func flattenClass(cls *classState) []Row {
	out := make([]Row, 0, len(cls.order))
	seen := make(map[string]bool, len(cls.order))

	var walk func(path string)
	walk = func(path string) {
		e, ok := cls.entries[path]
		if !ok || seen[path] {
			return
		}

		seen[path] = true
		out = append(out, Row{Path: path, Entry: exportEntry(e)})

		for _, c := range e.children {
			walk(c)
		}
	}

	for _, path := range cls.order {
		if e := cls.entries[path]; e != nil && e.parentPath == "" {
			walk(path)
		}
	}

	for _, path := range cls.order {
		walk(path)
	}

	return out
}

func exportEntry(e *entry) Entry {
	children := make([]string, len(e.children))
	copy(children, e.children)

	return Entry{
		Name:             e.name,
		ParentPath:       e.parentPath,
		Children:         children,
		Depth:            e.depth,
		TotalTime:        e.lastTotalMs,
		SelfTime:         e.lastSelfMs,
		CallCount:        e.lastCalls,
		RollingTime:      e.avgTotalMs,
		RollingSelfTime:  e.avgSelfMs,
		RollingCalls:     e.avgCalls,
		MaxTime:          e.maxMs,
		ParentPercentage: e.parentPct,
		TotalPercentage:  e.totalPct,
		LastUpdate:       e.lastUpdate,
	}
}
