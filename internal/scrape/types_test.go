package scrape

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNewJobResultDerivesDuration(t *testing.T) {
	t.Parallel()

	start := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	end := start.Add(90 * time.Second)

	result := NewJobResult("run-1", "books", JobStatusSuccess, 40, "", start, end)
	require.Equal(t, 90*time.Second, result.Duration)
	require.True(t, result.Succeeded())
}

func TestNewJobResultClampsNegativeDuration(t *testing.T) {
	t.Parallel()

	start := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	end := start.Add(-5 * time.Second)

	result := NewJobResult("run-2", "products", JobStatusFailed, 0, "boom", start, end)
	require.Equal(t, time.Duration(0), result.Duration)
	require.False(t, result.Succeeded())
}

func TestEmptyRunStats(t *testing.T) {
	t.Parallel()

	stats := EmptyRunStats([]string{"books", "products"})
	require.Equal(t, int64(0), stats.TotalRecords["books"])
	require.Equal(t, int64(0), stats.TotalRecords["products"])
	require.Empty(t, stats.LastScrape)
	require.Zero(t, stats.TotalRuns)
	require.Zero(t, stats.SuccessRate)
}

func TestTimerPauserReturnsOnContextCancel(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	TimerPauser{}.Pause(ctx, 5*time.Second)
	require.Less(t, time.Since(start), time.Second, "a canceled context ends the pause early")
}

func TestTimerPauserSkipsNonPositiveDelay(t *testing.T) {
	t.Parallel()

	start := time.Now()
	TimerPauser{}.Pause(context.Background(), 0)
	require.Less(t, time.Since(start), time.Second)
}
