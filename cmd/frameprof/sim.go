package main

import (
	"log/slog"
	"math"
	"time"

	"go.jacobcolvin.com/frameprof/profiler"
)

const simBodies = 256

// simulation is a toy n-body integrator running on its own goroutine, so the
// demo exercises scopes from a thread other than the render loop.
type simulation struct {
	thread *profiler.Thread
	logger *slog.Logger

	px, py [simBodies]float64
	vx, vy [simBodies]float64

	stopCh chan struct{}
	doneCh chan struct{}
}

func newSimulation(prof *profiler.Profiler, logger *slog.Logger) *simulation {
	s := &simulation{
		thread: prof.RegisterThread(),
		logger: logger,
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}

	for i := range simBodies {
		angle := float64(i) / simBodies * 2 * math.Pi
		s.px[i] = math.Cos(angle)
		s.py[i] = math.Sin(angle)
		s.vx[i] = -math.Sin(angle) * 0.1
		s.vy[i] = math.Cos(angle) * 0.1
	}

	return s
}

func (s *simulation) start() {
	go s.run()
}

func (s *simulation) stop() {
	close(s.stopCh)
	<-s.doneCh
	s.thread.Close()
}

func (s *simulation) run() {
	defer close(s.doneCh)

	dt := 1.0 / 120

	ticker := time.NewTicker(time.Duration(dt * float64(time.Second)))
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			s.logger.Debug("simulation stopped")
			return
		case <-ticker.C:
			s.step(dt)
		}
	}
}

func (s *simulation) step(dt float64) {
	sim := s.thread.Begin("Simulate")
	defer sim.End()

	gravity := s.thread.Begin("Gravity")

	for i := range simBodies {
		r2 := s.px[i]*s.px[i] + s.py[i]*s.py[i] + 1e-6
		inv := dt / (r2 * math.Sqrt(r2))
		s.vx[i] -= s.px[i] * inv
		s.vy[i] -= s.py[i] * inv
	}

	gravity.End()

	integrate := s.thread.Begin("Integrate")

	for i := range simBodies {
		s.px[i] += s.vx[i] * dt
		s.py[i] += s.vy[i] * dt
	}

	integrate.End()
}
