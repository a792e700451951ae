// Package pacing provides the randomized delay inserted between commit
// cycles so a run does not land every commit on the same timestamp.
package pacing

import (
	"context"
	"math/rand"
	"time"
)

// Policy bounds the randomized pause between commit cycles. The zero
// value disables pausing entirely, which is what tests want.
type Policy struct {
	Min time.Duration
	Max time.Duration

	// Rand supplies the jitter; nil falls back to the global source.
	Rand *rand.Rand

	// Sleep is swappable for tests; nil means a real timer honoring
	// context cancellation.
	Sleep func(ctx context.Context, d time.Duration) error
}

// Default returns the standard pacing used by live runs.
func Default() Policy {
	return Policy{Min: 500 * time.Millisecond, Max: time.Second}
}

// Pause blocks for a random duration in [Min, Max]. It returns early
// with the context error when the context is canceled.
func (p Policy) Pause(ctx context.Context) error {
	if p.Max <= 0 {
		return ctx.Err()
	}

	d := p.Min
	if span := p.Max - p.Min; span > 0 {
		d += p.duration(span)
	}

	sleep := p.Sleep
	if sleep == nil {
		sleep = realSleep
	}
	return sleep(ctx, d)
}

func (p Policy) duration(span time.Duration) time.Duration {
	if p.Rand != nil {
		return time.Duration(p.Rand.Int63n(int64(span) + 1))
	}
	return time.Duration(rand.Int63n(int64(span) + 1))
}

func realSleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
