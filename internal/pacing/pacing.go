// Package pacing spaces outbound calls to the transcription service.
//
// The orchestrator waits on a Pacer between segments, never after the last
// one. Policies are plain values so they can be swapped in tests.
package pacing

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// DefaultDelay is the reference pause between transcription requests.
const DefaultDelay = 500 * time.Millisecond

// Pacer blocks until the next call may proceed or ctx ends.
type Pacer interface {
	Wait(ctx context.Context) error
}

// SleepWithContext sleeps for d or until ctx is done.
func SleepWithContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// FixedDelay sleeps a constant duration on every Wait.
type FixedDelay struct {
	Delay time.Duration
	Sleep func(context.Context, time.Duration) error
}

// NewFixedDelay returns a FixedDelay; non-positive delays fall back to DefaultDelay.
func NewFixedDelay(delay time.Duration) *FixedDelay {
	if delay <= 0 {
		delay = DefaultDelay
	}
	return &FixedDelay{Delay: delay}
}

func (p *FixedDelay) Wait(ctx context.Context) error {
	sleep := p.Sleep
	if sleep == nil {
		sleep = SleepWithContext
	}
	return sleep(ctx, p.Delay)
}

// Ticker enforces a minimum interval between consecutive Wait returns.
// Time already spent since the previous call counts toward the interval.
// It is safe for concurrent use.
type Ticker struct {
	Interval time.Duration
	Now      func() time.Time
	Sleep    func(context.Context, time.Duration) error

	limiter *rate.Limiter
}

// NewTicker returns a Ticker allowing one call per interval.
func NewTicker(interval time.Duration) *Ticker {
	return &Ticker{
		Interval: interval,
		limiter:  rate.NewLimiter(rate.Every(interval), 1),
	}
}

func (p *Ticker) Wait(ctx context.Context) error {
	now := time.Now
	if p.Now != nil {
		now = p.Now
	}
	sleep := p.Sleep
	if sleep == nil {
		sleep = SleepWithContext
	}
	at := now()
	reservation := p.limiter.ReserveN(at, 1)
	if delay := reservation.DelayFrom(at); delay > 0 {
		if err := sleep(ctx, delay); err != nil {
			reservation.CancelAt(now())
			return err
		}
	}
	return ctx.Err()
}

type none struct{}

// None never waits; it only reports cancellation.
var None Pacer = none{}

func (none) Wait(ctx context.Context) error { return ctx.Err() }
