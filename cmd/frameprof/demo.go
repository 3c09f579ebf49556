package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	tea "charm.land/bubbletea/v2"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"go.jacobcolvin.com/frameprof/log"
	"go.jacobcolvin.com/frameprof/procstat"
	"go.jacobcolvin.com/frameprof/profiler"
)

func newDemoCmd(logCfg *log.Config) *cobra.Command {
	profCfg := profiler.NewConfig()

	var (
		fps        int
		configFile string
	)

	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Render an instrumented animation with a live profiler overlay",
		Long: `demo renders a plasma animation with ANSI half-block characters while the
profiler instruments the render loop and a background simulation goroutine.
Press tab to switch between the animation and the profiler view, p to toggle
recording, and c to reset the collected data.`,
		Args: cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return runDemo(logCfg, profCfg, fps, configFile)
		},
	}

	profCfg.RegisterFlags(cmd.Flags())

	completionErr := profCfg.RegisterCompletions(cmd)
	if completionErr != nil {
		fmt.Fprintf(os.Stderr, "register completions: %v\n", completionErr)
	}

	cmd.Flags().IntVar(&fps, "fps", 30, "target frames per second")
	cmd.Flags().StringVar(&configFile, "config", "",
		"profiler YAML config file, overriding profiler flags")

	return cmd
}

func runDemo(logCfg *log.Config, profCfg *profiler.Config, fps int, configFile string) error {
	if configFile != "" {
		err := profCfg.LoadFile(configFile)
		if err != nil {
			return err
		}
	}

	if fps < 1 {
		fps = 1
	}

	// Logs go to an in-memory ring rendered inside the profiler view, so
	// nothing fights the TUI for the terminal.
	ring := log.NewRing(64)

	handler, err := logCfg.NewHandler(ring)
	if err != nil {
		return err
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)

	prof := profCfg.NewProfiler(profiler.WithLogger(logger))

	err = prof.Start()
	if err != nil {
		return err
	}

	defer func() {
		stopErr := prof.Stop()
		if stopErr != nil {
			fmt.Fprintf(os.Stderr, "stopping profiler: %v\n", stopErr)
		}
	}()

	sampler, err := procstat.NewSampler(time.Second, procstat.WithLogger(logger))
	if err != nil {
		return err
	}

	err = sampler.Start()
	if err != nil {
		return err
	}

	defer func() {
		stopErr := sampler.Stop()
		if stopErr != nil {
			fmt.Fprintf(os.Stderr, "stopping sampler: %v\n", stopErr)
		}
	}()

	cols, rows, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil {
		cols, rows = 80, 24
	}

	sim := newSimulation(prof, logger)
	sim.start()
	defer sim.stop()

	logger.Info("demo starting",
		slog.Int("fps", fps),
		slog.Int("cols", cols),
		slog.Int("rows", rows))

	_, err = tea.NewProgram(newDemoModel(prof, sampler, ring, fps, cols, rows)).Run()
	if err != nil {
		return fmt.Errorf("running program: %w", err)
	}

	return nil
}

// tickMsg signals that it is time to render the next frame.
type tickMsg struct{}

// demoModel is the bubbletea model for the instrumented demo.
type demoModel struct {
	prof    *profiler.Profiler
	sampler *procstat.Sampler
	logRing *log.Ring

	render *profiler.Thread
	scene  *plasma
	buf    strings.Builder

	fps      int
	cols     int
	rows     int
	frameStr string
	showProf bool
}

func newDemoModel(prof *profiler.Profiler, sampler *procstat.Sampler, ring *log.Ring, fps, cols, rows int) *demoModel {
	render := prof.RegisterThread()
	render.MarkAsRenderThread()

	return &demoModel{
		prof:    prof,
		sampler: sampler,
		logRing: ring,
		render:  render,
		scene:   newPlasma(),
		fps:     fps,
		cols:    cols,
		rows:    rows,
	}
}

func (m *demoModel) tick() tea.Cmd {
	return tea.Tick(time.Second/time.Duration(m.fps), func(time.Time) tea.Msg {
		return tickMsg{}
	})
}

// Init renders the first frame and starts the tick loop.
func (m *demoModel) Init() tea.Cmd {
	m.renderScene()

	return m.tick()
}

// Update handles key, resize, and tick messages.
func (m *demoModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyPressMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "tab":
			m.showProf = !m.showProf
		case "p":
			m.prof.SetEnabled(!m.prof.IsEnabled())
		case "c":
			m.prof.Clear()
		}

	case tea.WindowSizeMsg:
		m.cols = msg.Width
		m.rows = msg.Height

	case tickMsg:
		m.renderScene()
		m.prof.EndFrame()

		return m, m.tick()
	}

	return m, nil
}

// renderScene advances the animation and rebuilds the frame string, with
// each stage measured as a scope on the render thread.
func (m *demoModel) renderScene() {
	frame := m.render.Begin("Frame")
	defer frame.End()

	animate := m.render.Begin("Animate")
	m.scene.step(1 / float64(m.fps))
	img := m.scene.render()
	animate.End()

	upscaleScope := m.render.Begin("Upscale")
	scaled := upscale(img, m.cols, m.rows)
	upscaleScope.End()

	blit := m.render.Begin("Blit")
	renderHalfBlocks(scaled, m.cols, m.rows, &m.buf)
	m.frameStr = m.buf.String()
	blit.End()
}

// View shows either the animation or the profiler overlay.
func (m *demoModel) View() tea.View {
	content := m.frameStr
	if m.showProf {
		content = renderOverlay(m.prof, m.sampler, m.logRing, m.cols, m.rows)
	}

	v := tea.NewView(content)
	v.AltScreen = true

	return v
}
