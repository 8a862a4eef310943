package tasks

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/desertthunder/albumsync/internal/shared"
	tu "github.com/desertthunder/albumsync/internal/testing"
)

func TestFixedDelay(t *testing.T) {
	t.Run("first track passes immediately", func(t *testing.T) {
		clock := tu.NewFakeClock()
		s := &FixedDelay{Interval: 2 * time.Second, Clock: clock}

		for n := 0; n < 3; n++ {
			if err := s.Wait(context.Background(), n); err != nil {
				t.Fatalf("Wait(%d) error = %v", n, err)
			}
		}

		slept := clock.Slept()
		if len(slept) != 2 || slept[0] != 2*time.Second || slept[1] != 2*time.Second {
			t.Errorf("expected two 2s pauses, got %v", slept)
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		s := &FixedDelay{Interval: time.Second, Clock: tu.NewFakeClock()}
		for _, n := range []int{0, 1} {
			if err := s.Wait(ctx, n); !errors.Is(err, context.Canceled) {
				t.Errorf("Wait(%d) expected context.Canceled, got %v", n, err)
			}
		}
	})
}

func TestTokenBucket(t *testing.T) {
	t.Run("burst of one then paced", func(t *testing.T) {
		s := NewTokenBucket(20 * time.Millisecond)
		start := time.Now()

		for n := 0; n < 3; n++ {
			if err := s.Wait(context.Background(), n); err != nil {
				t.Fatalf("Wait(%d) error = %v", n, err)
			}
		}

		if elapsed := time.Since(start); elapsed < 30*time.Millisecond {
			t.Errorf("expected at least two intervals of pacing, took %v", elapsed)
		}
	})

	t.Run("zero interval never waits", func(t *testing.T) {
		s := NewTokenBucket(0)
		for n := 0; n < 100; n++ {
			if err := s.Wait(context.Background(), n); err != nil {
				t.Fatalf("Wait(%d) error = %v", n, err)
			}
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		s := NewTokenBucket(time.Hour)
		if err := s.Wait(context.Background(), 0); err != nil {
			t.Fatalf("first Wait error = %v", err)
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()
		if err := s.Wait(ctx, 1); err == nil {
			t.Error("expected an error when the next token is beyond the deadline")
		}
	})
}

func TestNewScheduler(t *testing.T) {
	tc := []struct {
		kind    string
		want    string
		wantErr bool
	}{
		{kind: "", want: "fixed"},
		{kind: "fixed", want: "fixed"},
		{kind: "token_bucket", want: "token_bucket"},
		{kind: "round_robin", wantErr: true},
	}

	for _, tt := range tc {
		t.Run(tt.kind, func(t *testing.T) {
			s, err := NewScheduler(tt.kind, time.Second, tu.NewFakeClock())
			if tt.wantErr {
				if !errors.Is(err, shared.ErrInvalidConfig) {
					t.Errorf("expected ErrInvalidConfig, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("NewScheduler(%q) error = %v", tt.kind, err)
			}

			switch s.(type) {
			case *FixedDelay:
				if tt.want != "fixed" {
					t.Errorf("expected %s, got fixed", tt.want)
				}
			case *TokenBucket:
				if tt.want != "token_bucket" {
					t.Errorf("expected %s, got token_bucket", tt.want)
				}
			}
		})
	}
}
