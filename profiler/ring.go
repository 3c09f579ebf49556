package profiler

import "sync/atomic"

// defaultRingSize is the per-thread event ring capacity when [Config.RingSize]
// is unset. Power of two, so index wrap is a bitmask.
const defaultRingSize = 4096

// eventRing is a fixed-capacity single-producer/single-consumer ring of
// events.
//
// The owning thread is the only writer of the write index and the aggregator
// is the only writer of the read index, so the event storage needs no mutual
// exclusion: the atomic store of the write index is the release point that
// publishes a slot, and the atomic load in drain is the matching acquire.
//
// There is no backpressure. A producer that outruns the aggregator keeps
// writing and overwrites the oldest unread slots; drain fast-forwards past
// them, discarding any slot the producer reached during the copy. Losing
// history is the documented data-loss policy, not an error: the hot path
// never blocks and never allocates.
type eventRing struct {
	events []Event
	mask   uint64
	write  atomic.Uint64
	read   atomic.Uint64
}

func newEventRing(size int) *eventRing {
	if size <= 0 {
		size = defaultRingSize
	}

	size = ceilPowerOfTwo(size)

	return &eventRing{
		events: make([]Event, size),
		mask:   uint64(size - 1),
	}
}

// push records ev. Owning thread only.
func (r *eventRing) push(ev Event) {
	w := r.write.Load()
	r.events[w&r.mask] = ev
	r.write.Store(w + 1)
}

// drain appends every unread event to dst in production order and advances
// the read index past them. Aggregator only.
func (r *eventRing) drain(dst []Event) []Event {
	w := r.write.Load()
	rd := r.read.Load()

	if w == rd {
		return dst
	}

	capacity := uint64(len(r.events))

	// Overwritten slots cannot be recovered; skip to the oldest intact one.
	if w-rd > capacity {
		rd = w - capacity
	}

	base := len(dst)
	first := rd

	for ; rd < w; rd++ {
		dst = append(dst, r.events[rd&r.mask])
	}

	// The producer may lap the copy. It begins rewriting slot i only once
	// its write index has reached i+capacity, so re-reading the index after
	// the copy bounds which copied slots could hold a torn event. Those are
	// the oldest entries, lost to overflow either way; discard them.
	if w2 := r.write.Load(); w2-first >= capacity {
		lost := w2 - capacity - first + 1
		if lost > w-first {
			lost = w - first
		}

		dst = append(dst[:base], dst[base+int(lost):]...)
	}

	r.read.Store(w)

	return dst
}

// pending reports how many unread events drain would currently return.
func (r *eventRing) pending() int {
	n := r.write.Load() - r.read.Load()
	if n > uint64(len(r.events)) {
		n = uint64(len(r.events))
	}

	return int(n)
}

func ceilPowerOfTwo(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}

	return p
}
