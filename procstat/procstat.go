// Package procstat samples resource usage of the current process: CPU
// utilization, resident memory, and thread counts from the operating system
// via [github.com/shirou/gopsutil/v3/process], plus Go heap and goroutine
// figures from the runtime.
//
// A [Sampler] takes one [Sample] per interval on a background goroutine and
// publishes it through an atomic pointer, so readers on a render loop never
// block:
//
//	s, err := procstat.NewSampler(time.Second)
//	if err != nil {
//	    return err
//	}
//	s.Start()
//	defer s.Stop()
//
//	sample := s.Latest()
package procstat

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shirou/gopsutil/v3/process"
)

const defaultInterval = time.Second

var (
	// ErrAlreadyRunning indicates Start was called on a running sampler.
	ErrAlreadyRunning = errors.New("sampler already running")
	// ErrNotRunning indicates Stop was called on a stopped sampler.
	ErrNotRunning = errors.New("sampler not running")
)

// Sample is one point-in-time reading of the process's resource usage.
type Sample struct {
	// CPUPercent is process CPU utilization since the previous sample,
	// where one full core equals 100.
	CPUPercent float64

	// RSSBytes is resident set size.
	RSSBytes uint64

	// Threads is the OS thread count reported for the process.
	Threads int32

	// HeapBytes is the Go runtime's in-use heap.
	HeapBytes uint64

	// Goroutines is the live goroutine count.
	Goroutines int

	// Taken is when the sample was read.
	Taken time.Time
}

// Sampler periodically reads process statistics and publishes the latest
// [Sample]. Create instances with [NewSampler].
type Sampler struct {
	proc     *process.Process
	interval time.Duration
	logger   *slog.Logger

	mu      sync.Mutex
	running bool
	stop    chan struct{}
	done    chan struct{}

	latest atomic.Pointer[Sample]
}

// Option configures a [Sampler].
type Option func(*Sampler)

// WithLogger sets the logger used for sampling failures.
// The default is [slog.Default].
func WithLogger(logger *slog.Logger) Option {
	return func(s *Sampler) {
		s.logger = logger
	}
}

// NewSampler creates a [Sampler] for the current process. A non-positive
// interval falls back to one second.
func NewSampler(interval time.Duration, opts ...Option) (*Sampler, error) {
	if interval <= 0 {
		interval = defaultInterval
	}

	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return nil, fmt.Errorf("opening process handle: %w", err)
	}

	s := &Sampler{
		proc:     proc,
		interval: interval,
		logger:   slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

// Start launches the background sampling goroutine. It fails with
// [ErrAlreadyRunning] if the sampler is already started.
func (s *Sampler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return ErrAlreadyRunning
	}

	s.stop = make(chan struct{})
	s.done = make(chan struct{})
	s.running = true

	go s.run(s.stop, s.done)

	return nil
}

// Stop signals the sampling goroutine and waits for it to exit.
func (s *Sampler) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return ErrNotRunning
	}

	close(s.stop)
	<-s.done
	s.running = false

	return nil
}

func (s *Sampler) run(stop, done chan struct{}) {
	defer close(done)

	// Prime the CPU delta so the first published reading is meaningful.
	s.sampleOnce()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			s.sampleOnce()
		}
	}
}

func (s *Sampler) sampleOnce() {
	sample, err := s.Sample()
	if err != nil {
		s.logger.Debug("process stat sampling failed", slog.Any("error", err))
		return
	}

	s.latest.Store(&sample)
}

// Sample takes one reading synchronously. Most callers should use
// [Sampler.Latest] instead and let the background goroutine pay the cost.
func (s *Sampler) Sample() (Sample, error) {
	cpuPct, err := s.proc.Percent(0)
	if err != nil {
		return Sample{}, fmt.Errorf("reading cpu percent: %w", err)
	}

	memInfo, err := s.proc.MemoryInfo()
	if err != nil {
		return Sample{}, fmt.Errorf("reading memory info: %w", err)
	}

	threads, err := s.proc.NumThreads()
	if err != nil {
		return Sample{}, fmt.Errorf("reading thread count: %w", err)
	}

	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	return Sample{
		CPUPercent: cpuPct,
		RSSBytes:   memInfo.RSS,
		Threads:    threads,
		HeapBytes:  ms.HeapInuse,
		Goroutines: runtime.NumGoroutine(),
		Taken:      time.Now(),
	}, nil
}

// Latest returns the most recently published sample, or the zero Sample if
// none has been taken yet.
func (s *Sampler) Latest() Sample {
	sample := s.latest.Load()
	if sample == nil {
		return Sample{}
	}

	return *sample
}
