package log

import (
	"bytes"
	"sync"
)

const defaultRingLines = 64

// Ring is an [io.Writer] that retains the most recent complete log lines.
//
// Each call to [Ring.Write] splits the input on newlines and appends the
// complete lines to a fixed-capacity ring, dropping the oldest line for
// each new one once full. A trailing fragment without a newline is held
// back until a later Write completes it. Write never blocks and never
// fails, so a Ring is safe to place behind a [Handler] whose output is
// also being rendered inside a TUI. Safe for concurrent use.
//
// Create instances with [NewRing].
type Ring struct {
	mu      sync.Mutex
	lines   []string
	next    int
	count   int
	partial []byte
}

// NewRing creates a [Ring] retaining up to capacity lines.
// Values less than 1 fall back to the default of 64.
func NewRing(capacity int) *Ring {
	if capacity < 1 {
		capacity = defaultRingLines
	}

	return &Ring{
		lines: make([]string, capacity),
	}
}

// Write appends b's complete lines to the ring. It always returns
// len(b), nil.
func (r *Ring) Write(b []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rest := b
	for {
		i := bytes.IndexByte(rest, '\n')
		if i < 0 {
			break
		}

		line := rest[:i]
		rest = rest[i+1:]

		if len(r.partial) > 0 {
			line = append(r.partial, line...)
			r.partial = nil
		}

		r.push(string(line))
	}

	if len(rest) > 0 {
		r.partial = append(r.partial, rest...)
	}

	return len(b), nil
}

func (r *Ring) push(line string) {
	r.lines[r.next] = line
	r.next = (r.next + 1) % len(r.lines)

	if r.count < len(r.lines) {
		r.count++
	}
}

// Lines returns the retained lines, oldest first. The returned slice is a
// copy; callers may hold it indefinitely.
func (r *Ring) Lines() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]string, 0, r.count)

	start := r.next - r.count
	if start < 0 {
		start += len(r.lines)
	}

	for i := range r.count {
		out = append(out, r.lines[(start+i)%len(r.lines)])
	}

	return out
}

// Len returns the number of retained lines.
func (r *Ring) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.count
}
