package profiler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/google/jsonschema-go/jsonschema"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// Defaults applied by [Config.NewProfiler] for unset fields.
const (
	defaultWindowFrames    = 360
	defaultPublishInterval = time.Second
	defaultStaleAfter      = 5 * time.Second
	defaultPollInterval    = 10 * time.Millisecond
	defaultStopTimeout     = time.Second
)

// ErrInvalidConfig indicates a malformed configuration file or value.
var ErrInvalidConfig = errors.New("invalid config")

// Flags holds CLI flag names for profiler configuration, allowing callers to
// customize flag names while keeping sensible defaults via [NewConfig].
type Flags struct {
	Enabled         string
	RingSize        string
	WindowFrames    string
	PublishInterval string
	StaleAfter      string
	PollInterval    string
}

// NewConfig creates a new [Config] embedding these flag names.
func (f Flags) NewConfig() *Config {
	return &Config{
		Flags: f,
	}
}

// Config holds profiler configuration. A zero-value Config is usable;
// [Config.NewProfiler] fills unset fields with the defaults matching the
// original deployment (4096-event rings, 360-frame window, 1 s publish
// interval).
//
// Create instances with [NewConfig] and register CLI flags with
// [Config.RegisterFlags], or load values from a YAML file with
// [Config.LoadFile]. Use [Config.NewProfiler] to create the [Profiler].
type Config struct {
	Flags Flags

	// Enabled controls whether the profiler records events from the start.
	Enabled bool

	// RingSize is the per-thread event ring capacity, rounded up to a power
	// of two.
	RingSize int

	// WindowFrames caps the rolling statistics window, in frames.
	WindowFrames int

	// PublishInterval is the minimum time between snapshot publishes.
	PublishInterval time.Duration

	// StaleAfter is how long an entry may go without events before the
	// aggregator evicts it.
	StaleAfter time.Duration

	// PollInterval is the aggregator's wake cadence.
	PollInterval time.Duration

	// StopTimeout bounds the shutdown wait in [Profiler.Stop].
	StopTimeout time.Duration
}

// NewConfig creates a new [Config] with default flag names and zero values.
// Use [Config.RegisterFlags] to add CLI flags, or set fields directly.
func NewConfig() *Config {
	f := Flags{
		Enabled:         "profile-enabled",
		RingSize:        "profile-ring-size",
		WindowFrames:    "profile-window-frames",
		PublishInterval: "profile-publish-interval",
		StaleAfter:      "profile-stale-after",
		PollInterval:    "profile-poll-interval",
	}

	return f.NewConfig()
}

// RegisterFlags adds profiler flags to the given [*pflag.FlagSet].
func (c *Config) RegisterFlags(flags *pflag.FlagSet) {
	flags.BoolVar(&c.Enabled, c.Flags.Enabled, true,
		"record timing scopes")
	flags.IntVar(&c.RingSize, c.Flags.RingSize, defaultRingSize,
		"per-thread event ring capacity (rounded up to a power of two)")
	flags.IntVar(&c.WindowFrames, c.Flags.WindowFrames, defaultWindowFrames,
		"rolling statistics window, in frames")
	flags.DurationVar(&c.PublishInterval, c.Flags.PublishInterval, defaultPublishInterval,
		"minimum time between snapshot publishes")
	flags.DurationVar(&c.StaleAfter, c.Flags.StaleAfter, defaultStaleAfter,
		"evict profile entries idle for longer than this")
	flags.DurationVar(&c.PollInterval, c.Flags.PollInterval, defaultPollInterval,
		"aggregator wake cadence")
}

// RegisterCompletions registers shell completions for profiler flags on cmd.
// All profiler flags take scalar values, so file completion is disabled.
func (c *Config) RegisterCompletions(cmd *cobra.Command) error {
	noFileComp := func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}

	for _, flag := range []string{
		c.Flags.Enabled,
		c.Flags.RingSize,
		c.Flags.WindowFrames,
		c.Flags.PublishInterval,
		c.Flags.StaleAfter,
		c.Flags.PollInterval,
	} {
		err := cmd.RegisterFlagCompletionFunc(flag, noFileComp)
		if err != nil {
			return fmt.Errorf("registering %s completion: %w", flag, err)
		}
	}

	return nil
}

// Option configures a [Profiler] beyond what [Config] carries.
type Option func(*Profiler)

// WithLogger sets the logger used for lifecycle and eviction messages.
// The default is [slog.Default].
func WithLogger(logger *slog.Logger) Option {
	return func(p *Profiler) {
		p.logger = logger
	}
}

// NewProfiler creates a new [Profiler] using this [Config], filling unset
// fields with defaults. The profiler starts with recording set to
// [Config.Enabled]; the background aggregator is not started until
// [Profiler.Start].
func (c *Config) NewProfiler(opts ...Option) *Profiler {
	cfg := *c
	if cfg.RingSize <= 0 {
		cfg.RingSize = defaultRingSize
	}

	if cfg.WindowFrames <= 0 {
		cfg.WindowFrames = defaultWindowFrames
	}

	if cfg.PublishInterval <= 0 {
		cfg.PublishInterval = defaultPublishInterval
	}

	if cfg.StaleAfter <= 0 {
		cfg.StaleAfter = defaultStaleAfter
	}

	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}

	if cfg.StopTimeout <= 0 {
		cfg.StopTimeout = defaultStopTimeout
	}

	p := &Profiler{
		cfg:    cfg,
		logger: slog.Default(),
	}
	p.enabled.Store(cfg.Enabled)

	for _, opt := range opts {
		opt(p)
	}

	p.agg = newAggregator(p, p.logger)

	return p
}

// fileConfig mirrors Config with YAML-friendly field types. Pointer fields
// distinguish "absent" from zero, so a file only overrides what it names.
type fileConfig struct {
	Enabled         *bool   `yaml:"enabled"`
	RingSize        *int    `yaml:"ring_size"`
	WindowFrames    *int    `yaml:"window_frames"`
	PublishInterval *string `yaml:"publish_interval"`
	StaleAfter      *string `yaml:"stale_after"`
	PollInterval    *string `yaml:"poll_interval"`
}

// LoadFile reads a YAML configuration file and applies the fields it names
// onto c. See [Config.Load] for the accepted shape.
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // Config path comes from a CLI flag.
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	return c.Load(data)
}

// Load applies YAML configuration data onto c. Durations are strings in
// [time.ParseDuration] syntax ("250ms", "1s"). Fields absent from the data
// keep their current values.
func (c *Config) Load(data []byte) error {
	var fc fileConfig

	err := yaml.Unmarshal(data, &fc)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	if fc.Enabled != nil {
		c.Enabled = *fc.Enabled
	}

	if fc.RingSize != nil {
		if *fc.RingSize <= 0 {
			return fmt.Errorf("%w: ring_size must be positive, got %d", ErrInvalidConfig, *fc.RingSize)
		}

		c.RingSize = *fc.RingSize
	}

	if fc.WindowFrames != nil {
		if *fc.WindowFrames <= 0 {
			return fmt.Errorf("%w: window_frames must be positive, got %d", ErrInvalidConfig, *fc.WindowFrames)
		}

		c.WindowFrames = *fc.WindowFrames
	}

	durations := []struct {
		name string
		val  *string
		dst  *time.Duration
	}{
		{"publish_interval", fc.PublishInterval, &c.PublishInterval},
		{"stale_after", fc.StaleAfter, &c.StaleAfter},
		{"poll_interval", fc.PollInterval, &c.PollInterval},
	}

	for _, d := range durations {
		if d.val == nil {
			continue
		}

		parsed, err := time.ParseDuration(*d.val)
		if err != nil {
			return fmt.Errorf("%w: %s: %w", ErrInvalidConfig, d.name, err)
		}

		if parsed <= 0 {
			return fmt.Errorf("%w: %s must be positive, got %s", ErrInvalidConfig, d.name, parsed)
		}

		*d.dst = parsed
	}

	return nil
}

// Schema describes the YAML configuration file accepted by [Config.Load] as
// a JSON Schema (Draft 7).
func Schema() *jsonschema.Schema {
	duration := func(desc string, def time.Duration) *jsonschema.Schema {
		return &jsonschema.Schema{
			Type:        "string",
			Description: desc,
			Default:     defaultValue(def.String()),
		}
	}

	return &jsonschema.Schema{
		Schema:      "http://json-schema.org/draft-07/schema#",
		Title:       "frameprof profiler configuration",
		Description: "Runtime profiler settings loaded via Config.LoadFile.",
		Type:        "object",
		Properties: map[string]*jsonschema.Schema{
			"enabled": {
				Type:        "boolean",
				Description: "Record timing scopes.",
				Default:     defaultValue(true),
			},
			"ring_size": {
				Type:        "integer",
				Description: "Per-thread event ring capacity, rounded up to a power of two.",
				Default:     defaultValue(defaultRingSize),
			},
			"window_frames": {
				Type:        "integer",
				Description: "Rolling statistics window, in frames.",
				Default:     defaultValue(defaultWindowFrames),
			},
			"publish_interval": duration("Minimum time between snapshot publishes.", defaultPublishInterval),
			"stale_after":      duration("Evict profile entries idle for longer than this.", defaultStaleAfter),
			"poll_interval":    duration("Aggregator wake cadence.", defaultPollInterval),
		},
		AdditionalProperties: &jsonschema.Schema{Not: &jsonschema.Schema{}},
	}
}

// defaultValue converts a Go value to a [json.RawMessage] suitable for use
// as a JSON Schema default value. Returns nil if marshaling fails.
func defaultValue(v any) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}

	return b
}
