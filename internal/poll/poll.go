// Package poll repeatedly probes an asynchronous operation until it settles, bounded by an absolute
// deadline and a stall window.
package poll

import (
	"context"
	"errors"
	"time"
)

var (
	ErrTimeout = errors.New("poll deadline exceeded")
	ErrStalled = errors.New("poll stalled without progress")
	ErrFailed  = errors.New("poll reached a terminal failure status")
)

// Clock is the time source used for deadlines, stall windows and waits.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time                         { return time.Now() }
func (systemClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// System is the wall clock.
var System Clock = systemClock{}

// Verdict classifies a single probe result.
type Verdict int

const (
	Continue Verdict = iota
	Done
	Failed
)

func (v Verdict) String() string {
	switch v {
	case Continue:
		return "continue"
	case Done:
		return "done"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Policy bounds a poll. Zero Deadline or StallAfter disables that bound.
type Policy struct {
	Interval   time.Duration
	Deadline   time.Duration
	StallAfter time.Duration
}

// Until invokes probe, then waits Interval between further probes, until classify returns Done
// or Failed.
//
// It gives up with [ErrStalled] once stalled has reported true for every probe over a window longer
// than StallAfter, and with [ErrTimeout] once Deadline has elapsed since the first probe. Probe
// errors and context cancellation end the poll immediately. The last probe result is always
// returned alongside the error.
func Until[T any](
	ctx context.Context,
	clock Clock,
	policy Policy,
	probe func(context.Context) (T, error),
	classify func(T) Verdict,
	stalled func(T) bool,
) (T, error) {
	if clock == nil {
		clock = System
	}

	start := clock.Now()
	var stallStart time.Time
	stalling := false

	for {
		v, err := probe(ctx)
		if err != nil {
			return v, err
		}

		switch classify(v) {
		case Done:
			return v, nil
		case Failed:
			return v, ErrFailed
		}

		now := clock.Now()
		if stalled != nil && stalled(v) {
			if !stalling {
				stalling, stallStart = true, now
			} else if policy.StallAfter > 0 && now.Sub(stallStart) > policy.StallAfter {
				return v, ErrStalled
			}
		} else {
			stalling = false
		}

		if policy.Deadline > 0 && now.Sub(start) >= policy.Deadline {
			return v, ErrTimeout
		}

		if err := Sleep(ctx, clock, policy.Interval); err != nil {
			return v, err
		}
	}
}

// Sleep waits d on clock or returns ctx's error if it is cancelled first.
func Sleep(ctx context.Context, clock Clock, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if d <= 0 {
		return nil
	}
	if clock == nil {
		clock = System
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-clock.After(d):
		return nil
	}
}
