package pacing

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestZeroPolicyDoesNotSleep(t *testing.T) {
	t.Parallel()

	var p Policy
	p.Sleep = func(ctx context.Context, d time.Duration) error {
		t.Fatalf("unexpected sleep of %v", d)
		return nil
	}

	assert.NoError(t, p.Pause(context.Background()))
}

func TestPauseStaysWithinBounds(t *testing.T) {
	t.Parallel()

	var slept []time.Duration
	p := Policy{
		Min:  100 * time.Millisecond,
		Max:  200 * time.Millisecond,
		Rand: rand.New(rand.NewSource(7)),
		Sleep: func(ctx context.Context, d time.Duration) error {
			slept = append(slept, d)
			return nil
		},
	}

	for i := 0; i < 50; i++ {
		require.NoError(t, p.Pause(context.Background()))
	}

	for _, d := range slept {
		assert.GreaterOrEqual(t, d, p.Min)
		assert.LessOrEqual(t, d, p.Max)
	}
}

func TestPauseHonorsCanceledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := Policy{Min: time.Hour, Max: time.Hour}
	err := p.Pause(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestZeroPolicyReportsCancellation(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var p Policy
	assert.ErrorIs(t, p.Pause(ctx), context.Canceled)
}

func TestFixedDelayWhenBoundsEqual(t *testing.T) {
	t.Parallel()

	var got time.Duration
	p := Policy{
		Min: 42 * time.Millisecond,
		Max: 42 * time.Millisecond,
		Sleep: func(ctx context.Context, d time.Duration) error {
			got = d
			return nil
		},
	}

	require.NoError(t, p.Pause(context.Background()))
	assert.Equal(t, 42*time.Millisecond, got)
}
