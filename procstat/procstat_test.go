package procstat_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.jacobcolvin.com/frameprof/procstat"
)

func TestSample(t *testing.T) {
	t.Parallel()

	s, err := procstat.NewSampler(time.Second)
	require.NoError(t, err)

	sample, err := s.Sample()
	require.NoError(t, err)

	assert.Positive(t, sample.RSSBytes)
	assert.Positive(t, sample.Threads)
	assert.Positive(t, sample.HeapBytes)
	assert.Positive(t, sample.Goroutines)
	assert.False(t, sample.Taken.IsZero())
}

func TestLatestBeforeFirstSample(t *testing.T) {
	t.Parallel()

	s, err := procstat.NewSampler(time.Second)
	require.NoError(t, err)

	assert.Equal(t, procstat.Sample{}, s.Latest())
}

func TestStartStop(t *testing.T) {
	t.Parallel()

	s, err := procstat.NewSampler(time.Millisecond)
	require.NoError(t, err)

	require.ErrorIs(t, s.Stop(), procstat.ErrNotRunning)

	require.NoError(t, s.Start())
	require.ErrorIs(t, s.Start(), procstat.ErrAlreadyRunning)

	assert.Eventually(t, func() bool {
		return !s.Latest().Taken.IsZero()
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, s.Stop())
	require.ErrorIs(t, s.Stop(), procstat.ErrNotRunning)
}
