package profiler

import "time"

// frameSample is one completed frame's worth of data for a single entry.
type frameSample struct {
	totalMs float64
	selfMs  float64
	calls   int
}

// rollingWindow is a fixed-capacity ring of per-frame samples with running
// sums, so rolling averages are O(1) per frame. Once the window is full the
// oldest sample is dropped for each new one.
type rollingWindow struct {
	samples  []frameSample
	next     int
	count    int
	sumTotal float64
	sumSelf  float64
	sumCalls int
}

func newRollingWindow(frames int) *rollingWindow {
	if frames <= 0 {
		frames = defaultWindowFrames
	}

	return &rollingWindow{samples: make([]frameSample, frames)}
}

func (w *rollingWindow) push(s frameSample) {
	if w.count == len(w.samples) {
		old := w.samples[w.next]
		w.sumTotal -= old.totalMs
		w.sumSelf -= old.selfMs
		w.sumCalls -= old.calls
	} else {
		w.count++
	}

	w.samples[w.next] = s
	w.next = (w.next + 1) % len(w.samples)

	w.sumTotal += s.totalMs
	w.sumSelf += s.selfMs
	w.sumCalls += s.calls
}

func (w *rollingWindow) averages() (totalMs, selfMs, calls float64) {
	if w.count == 0 {
		return 0, 0, 0
	}

	n := float64(w.count)

	return w.sumTotal / n, w.sumSelf / n, float64(w.sumCalls) / n
}

// entry is the aggregator-owned profile record for one scope path within one
// thread class. Nothing outside the aggregator ever touches an entry; the
// exported [Entry] is a value copy taken at publish time.
type entry struct {
	name       string
	path       string
	parentPath string
	children   []string
	depth      int

	// indexDepth is the stack depth this entry's events report, used to key
	// the (name, depth) parent-resolution index.
	indexDepth uint8

	// Current-frame accumulation, reset at every frame boundary.
	frameTotalMs float64
	frameSelfMs  float64
	frameCalls   int

	// Last completed frame, captured at the frame boundary before reset.
	lastTotalMs float64
	lastSelfMs  float64
	lastCalls   int

	window *rollingWindow

	avgTotalMs float64
	avgSelfMs  float64
	avgCalls   float64

	// Max frame time observed within the last second.
	maxMs      float64
	maxResetAt time.Time

	parentPct float64
	totalPct  float64

	lastUpdate time.Time
}

// addChild links a child path in first-seen order.
func (e *entry) addChild(path string) {
	for _, c := range e.children {
		if c == path {
			return
		}
	}

	e.children = append(e.children, path)
}

// removeChild unlinks an evicted child path.
func (e *entry) removeChild(path string) {
	for i, c := range e.children {
		if c == path {
			e.children = append(e.children[:i], e.children[i+1:]...)
			return
		}
	}
}
