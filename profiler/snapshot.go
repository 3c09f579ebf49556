package profiler

import "time"

// Entry is the published, immutable form of one scope's aggregated
// statistics. All times are in milliseconds.
type Entry struct {
	// Name is the bare scope name, for display.
	Name string

	// ParentPath is the full path of the enclosing scope, or empty for a
	// root.
	ParentPath string

	// Children holds the full paths of direct children, in first-seen order.
	Children []string

	// Depth is the nesting depth (0 = root).
	Depth int

	// TotalTime, SelfTime, and CallCount describe the last completed frame.
	// SelfTime excludes time attributed to direct children only.
	TotalTime float64
	SelfTime  float64
	CallCount int

	// RollingTime, RollingSelfTime, and RollingCalls are per-frame averages
	// over the rolling window.
	RollingTime     float64
	RollingSelfTime float64
	RollingCalls    float64

	// MaxTime is the largest per-frame total observed within the last second.
	MaxTime float64

	// ParentPercentage is this entry's share of its parent's frame time;
	// TotalPercentage is its share of its thread class's total frame time.
	ParentPercentage float64
	TotalPercentage  float64

	// LastUpdate is when the aggregator last saw an event for this path.
	LastUpdate time.Time
}

// Row pairs a full scope path with its published entry.
type Row struct {
	Path  string
	Entry Entry
}

// Snapshot is an immutable copy of the aggregated profile, published at a
// bounded rate. Rows are in tree order: parents before children, children in
// first-seen order. Render-thread scopes and all other threads' scopes are
// kept in separate sequences.
//
// A Snapshot is never mutated after publication; readers may hold one for as
// long as they like without blocking the aggregator.
type Snapshot struct {
	Render []Row
	Other  []Row

	// Taken is when the snapshot was published.
	Taken time.Time
}

// Flatten returns the snapshot as a single combined sequence, render-thread
// rows first, hierarchy discarded. This is the legacy accessor for consumers
// that do not need the tree.
func (s Snapshot) Flatten() []Row {
	out := make([]Row, 0, len(s.Render)+len(s.Other))
	out = append(out, s.Render...)
	out = append(out, s.Other...)

	return out
}
