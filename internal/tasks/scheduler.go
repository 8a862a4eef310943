package tasks

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/desertthunder/albumsync/internal/poll"
	"github.com/desertthunder/albumsync/internal/shared"
)

// DefaultTrackInterval is the pause between consecutive tracks of a run.
const DefaultTrackInterval = 2 * time.Second

// Scheduler paces the per-track loop of a run. Wait is called before every track with the
// track's zero-based index within the run.
type Scheduler interface {
	Wait(ctx context.Context, n int) error
}

// FixedDelay sleeps Interval before every track but the first.
type FixedDelay struct {
	Interval time.Duration
	Clock    poll.Clock
}

func (s *FixedDelay) Wait(ctx context.Context, n int) error {
	if n == 0 {
		return ctx.Err()
	}
	return poll.Sleep(ctx, s.Clock, s.Interval)
}

// TokenBucket allows one track per interval with a burst of one. The bucket is shared by every run
// of the engine, so back-to-back runs are paced too.
type TokenBucket struct {
	limiter *rate.Limiter
}

func NewTokenBucket(interval time.Duration) *TokenBucket {
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}
	return &TokenBucket{limiter: rate.NewLimiter(limit, 1)}
}

func (s *TokenBucket) Wait(ctx context.Context, _ int) error {
	return s.limiter.Wait(ctx)
}

// NewScheduler builds the scheduler named by kind ("fixed", "token_bucket" or "" for fixed).
func NewScheduler(kind string, interval time.Duration, clock poll.Clock) (Scheduler, error) {
	switch kind {
	case "", "fixed":
		return &FixedDelay{Interval: interval, Clock: clock}, nil
	case "token_bucket":
		return NewTokenBucket(interval), nil
	default:
		return nil, fmt.Errorf("%w: unknown scheduler %q", shared.ErrInvalidConfig, kind)
	}
}
