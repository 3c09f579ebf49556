package profiler_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.jacobcolvin.com/frameprof/profiler"
)

func TestRegisterFlags(t *testing.T) {
	t.Parallel()

	c := profiler.NewConfig()

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	c.RegisterFlags(flags)

	err := flags.Parse([]string{
		"--profile-enabled=false",
		"--profile-ring-size=1024",
		"--profile-window-frames=120",
		"--profile-publish-interval=250ms",
		"--profile-stale-after=2s",
		"--profile-poll-interval=5ms",
	})
	require.NoError(t, err)

	assert.False(t, c.Enabled)
	assert.Equal(t, 1024, c.RingSize)
	assert.Equal(t, 120, c.WindowFrames)
	assert.Equal(t, 250*time.Millisecond, c.PublishInterval)
	assert.Equal(t, 2*time.Second, c.StaleAfter)
	assert.Equal(t, 5*time.Millisecond, c.PollInterval)
}

func TestRegisterFlagsDefaults(t *testing.T) {
	t.Parallel()

	c := profiler.NewConfig()

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	c.RegisterFlags(flags)

	require.NoError(t, flags.Parse(nil))

	assert.True(t, c.Enabled)
	assert.Equal(t, 4096, c.RingSize)
	assert.Equal(t, 360, c.WindowFrames)
	assert.Equal(t, time.Second, c.PublishInterval)
}

func TestLoad(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		data    string
		want    profiler.Config
		wantErr error
	}{
		"all fields": {
			data: `
enabled: true
ring_size: 2048
window_frames: 60
publish_interval: 500ms
stale_after: 10s
poll_interval: 20ms
`,
			want: profiler.Config{
				Enabled:         true,
				RingSize:        2048,
				WindowFrames:    60,
				PublishInterval: 500 * time.Millisecond,
				StaleAfter:      10 * time.Second,
				PollInterval:    20 * time.Millisecond,
			},
		},
		"partial file keeps unnamed fields": {
			data: "window_frames: 30\n",
			want: profiler.Config{
				WindowFrames: 30,
			},
		},
		"bad duration": {
			data:    "publish_interval: soon\n",
			wantErr: profiler.ErrInvalidConfig,
		},
		"negative duration": {
			data:    "stale_after: -1s\n",
			wantErr: profiler.ErrInvalidConfig,
		},
		"zero ring size": {
			data:    "ring_size: 0\n",
			wantErr: profiler.ErrInvalidConfig,
		},
		"not yaml": {
			data:    "{{{{",
			wantErr: profiler.ErrInvalidConfig,
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			c := profiler.NewConfig()

			err := c.Load([]byte(tc.data))
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tc.want.Enabled, c.Enabled)
			assert.Equal(t, tc.want.RingSize, c.RingSize)
			assert.Equal(t, tc.want.WindowFrames, c.WindowFrames)
			assert.Equal(t, tc.want.PublishInterval, c.PublishInterval)
			assert.Equal(t, tc.want.StaleAfter, c.StaleAfter)
			assert.Equal(t, tc.want.PollInterval, c.PollInterval)
		})
	}
}

func TestLoadFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "profiler.yaml")
	require.NoError(t, os.WriteFile(path, []byte("ring_size: 512\n"), 0o600))

	c := profiler.NewConfig()
	require.NoError(t, c.LoadFile(path))
	assert.Equal(t, 512, c.RingSize)

	err := c.LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.ErrorIs(t, err, profiler.ErrInvalidConfig)
}

func TestSchema(t *testing.T) {
	t.Parallel()

	data, err := json.Marshal(profiler.Schema())
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(data, &got))

	props, ok := got["properties"].(map[string]any)
	require.True(t, ok)

	for _, name := range []string{
		"enabled",
		"ring_size",
		"window_frames",
		"publish_interval",
		"stale_after",
		"poll_interval",
	} {
		assert.Contains(t, props, name)
	}
}

func TestNewProfilerAppliesDefaults(t *testing.T) {
	t.Parallel()

	p := (&profiler.Config{}).NewProfiler()
	require.NotNil(t, p)

	// A zero config produces a working, disabled profiler.
	assert.False(t, p.IsEnabled())
	assert.Empty(t, p.GetProfileData().Other)
}

func TestFlagsNewConfigCustomNames(t *testing.T) {
	t.Parallel()

	c := profiler.Flags{
		Enabled:         "prof-on",
		RingSize:        "prof-ring",
		WindowFrames:    "prof-window",
		PublishInterval: "prof-publish",
		StaleAfter:      "prof-stale",
		PollInterval:    "prof-poll",
	}.NewConfig()

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	c.RegisterFlags(flags)

	require.NoError(t, flags.Parse([]string{"--prof-window=99"}))
	assert.Equal(t, 99, c.WindowFrames)
}
