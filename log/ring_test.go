package log_test

import (
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.jacobcolvin.com/frameprof/log"
)

func TestRingRetainsRecentLines(t *testing.T) {
	t.Parallel()

	r := log.NewRing(3)

	for i := range 5 {
		_, err := fmt.Fprintf(r, "line %d\n", i)
		require.NoError(t, err)
	}

	assert.Equal(t, []string{"line 2", "line 3", "line 4"}, r.Lines())
	assert.Equal(t, 3, r.Len())
}

func TestRingHoldsPartialLines(t *testing.T) {
	t.Parallel()

	r := log.NewRing(4)

	_, err := io.WriteString(r, "first half")
	require.NoError(t, err)
	assert.Empty(t, r.Lines())

	_, err = io.WriteString(r, " second half\nnext")
	require.NoError(t, err)
	assert.Equal(t, []string{"first half second half"}, r.Lines())

	_, err = io.WriteString(r, "\n")
	require.NoError(t, err)
	assert.Equal(t, []string{"first half second half", "next"}, r.Lines())
}

func TestRingMultipleLinesPerWrite(t *testing.T) {
	t.Parallel()

	r := log.NewRing(8)

	_, err := io.WriteString(r, "a\nb\nc\n")
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "b", "c"}, r.Lines())
}

func TestRingBehindHandler(t *testing.T) {
	t.Parallel()

	r := log.NewRing(16)
	logger := slog.New(log.NewHandler(r, log.LevelInfo, log.FormatText))

	logger.Info("hello", slog.String("key", "value"))
	logger.Debug("filtered out")

	lines := r.Lines()
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], "hello")
	assert.Contains(t, lines[0], "key=value")
}

func TestRingConcurrentWrites(t *testing.T) {
	t.Parallel()

	r := log.NewRing(128)

	var wg sync.WaitGroup

	for i := range 8 {
		wg.Add(1)

		go func(n int) {
			defer wg.Done()

			for j := range 100 {
				fmt.Fprintf(r, "writer %d line %d\n", n, j)
			}
		}(i)
	}

	wg.Wait()

	assert.Equal(t, 128, r.Len())
}
