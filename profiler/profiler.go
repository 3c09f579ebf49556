package profiler

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// Sentinel errors returned by the profiler lifecycle.
var (
	// ErrAlreadyRunning indicates Start was called while the aggregator is
	// running.
	ErrAlreadyRunning = errors.New("profiler already running")
	// ErrNotRunning indicates Stop was called without a running aggregator.
	ErrNotRunning = errors.New("profiler not running")
	// ErrStopTimeout indicates the aggregator did not exit within the
	// configured stop timeout.
	ErrStopTimeout = errors.New("profiler stop timed out")
)

// Profiler is the process-wide profiling service: it owns the thread
// registry, the background aggregator, and the published snapshot.
//
// There is no implicit singleton; construct one with [Config.NewProfiler],
// hand it to the code being instrumented, and control its lifecycle with
// [Profiler.Start] and [Profiler.Stop]. Instrumented goroutines obtain an
// explicit [Thread] handle via [Profiler.RegisterThread].
//
// Nothing on the instrumentation path blocks or allocates: scopes write into
// per-thread single-producer rings, and the only lock in the package is
// taken at registration time and between aggregation passes, never per
// event.
type Profiler struct {
	cfg    Config
	logger *slog.Logger

	enabled  atomic.Bool
	frameSeq atomic.Uint64

	// mu guards the registry and lifecycle state. It is never taken on the
	// event hot path.
	mu      sync.Mutex
	threads []*Thread
	nextID  uint32
	running bool
	stop    chan struct{}
	done    chan struct{}

	agg *aggregator

	snapshot atomic.Pointer[Snapshot]
}

// RegisterThread creates and registers a ring buffer for the calling
// goroutine and returns its handle. Call it once per instrumented goroutine,
// from that goroutine; the registry is append-only for the process lifetime,
// so handles of exited goroutines are retired with [Thread.Close], not
// removed.
func (p *Profiler) RegisterThread() *Thread {
	t := &Thread{
		p:     p,
		ring:  newEventRing(p.cfg.RingSize),
		stack: make([]string, 0, scopeStackDepth),
	}
	t.live.Store(true)

	p.mu.Lock()
	p.nextID++
	t.id = p.nextID
	p.threads = append(p.threads, t)
	p.mu.Unlock()

	return t
}

// registrySnapshot copies the registry slice so the aggregator can iterate
// it without holding the registration lock.
func (p *Profiler) registrySnapshot() []*Thread {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]*Thread, len(p.threads))
	copy(out, p.threads)

	return out
}

// EndFrame signals one display-frame boundary. The render loop must call it
// once per rendered frame at a roughly steady cadence for the rolling
// statistics to be meaningful; the rollup itself happens on the aggregator's
// next pass.
func (p *Profiler) EndFrame() {
	p.frameSeq.Add(1)
}

// SetEnabled toggles event recording process-wide. While disabled,
// [Thread.Begin] short-circuits before capturing a timestamp.
func (p *Profiler) SetEnabled(enabled bool) {
	p.enabled.Store(enabled)
}

// IsEnabled reports whether event recording is enabled.
func (p *Profiler) IsEnabled() bool {
	return p.enabled.Load()
}

// Start launches the background aggregation goroutine at the configured
// cadence. It fails with [ErrAlreadyRunning] if the profiler is already
// started.
func (p *Profiler) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		return ErrAlreadyRunning
	}

	p.stop = make(chan struct{})
	p.done = make(chan struct{})
	p.running = true

	go p.run(p.stop, p.done)

	p.logger.Debug("profiler started",
		slog.Duration("poll_interval", p.cfg.PollInterval),
		slog.Duration("publish_interval", p.cfg.PublishInterval))

	return nil
}

// Stop signals the aggregation goroutine and waits for it to exit, bounded
// by the configured stop timeout. Whatever is still buffered in the thread
// rings at that point is discarded, not drained to completion.
//
// A Stop that fails with [ErrStopTimeout] may be called again; it resumes
// waiting for the goroutine without re-sending the stop signal.
func (p *Profiler) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.running {
		return ErrNotRunning
	}

	// Nil out the channel so a retry after a timed-out Stop does not close
	// it a second time.
	if p.stop != nil {
		close(p.stop)
		p.stop = nil
	}

	select {
	case <-p.done:
	case <-time.After(p.cfg.StopTimeout):
		return fmt.Errorf("%w after %s", ErrStopTimeout, p.cfg.StopTimeout)
	}

	p.running = false

	p.logger.Debug("profiler stopped")

	return nil
}

func (p *Profiler) run(stop, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(p.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case now := <-ticker.C:
			p.agg.pass(now)
		}
	}
}

// Sync runs one aggregation pass inline: drain, frame rollups for any
// pending EndFrame signals, eviction, and a possible publish. It is safe to
// call alongside a running aggregator and gives deterministic results when
// the background goroutine is not started, which is how the tests drive the
// profiler.
func (p *Profiler) Sync() {
	p.agg.pass(time.Now())
}

// GetProfileData returns the most recently published snapshot, split into
// render-thread and other-thread trees. The zero snapshot is returned before
// the first publish. Snapshots are immutable; readers never block the
// aggregator.
func (p *Profiler) GetProfileData() Snapshot {
	snap := p.snapshot.Load()
	if snap == nil {
		return Snapshot{}
	}

	return *snap
}

// GetProfileDataFlat returns the published data as a single combined
// sequence with the hierarchy discarded, render-thread rows first.
func (p *Profiler) GetProfileDataFlat() []Row {
	return p.GetProfileData().Flatten()
}

// Clear resets all accumulated profile entries and publishes an empty
// snapshot, restarting measurement without restarting the process.
// Registered threads and the enabled state are unaffected.
func (p *Profiler) Clear() {
	p.agg.clear(time.Now())

	p.logger.Debug("profiler cleared")
}
