package status

import (
	"fmt"
	"sync"
	"testing"
)

func TestBroadcaster(t *testing.T) {
	t.Run("states are disjoint", func(t *testing.T) {
		b := New()
		b.Set("t1", Syncing)
		b.Set("t1", Downloading)

		if b.IsSyncing("t1") {
			t.Error("t1 should have left syncing")
		}
		if !b.IsDownloading("t1") {
			t.Error("t1 should be downloading")
		}

		b.Set("t1", Synced)
		if !b.IsSynced("t1") || b.IsDownloading("t1") || b.IsSyncing("t1") {
			t.Errorf("t1 should only be synced, got %v", b.State("t1"))
		}
	})

	t.Run("clear removes membership", func(t *testing.T) {
		b := New()
		b.Set("t1", Syncing)
		b.Clear("t1")

		if b.State("t1") != None {
			t.Errorf("expected None, got %v", b.State("t1"))
		}
		if len(b.Snapshot()) != 0 {
			t.Error("snapshot should be empty after clear")
		}
	})

	t.Run("subscribe receives changes", func(t *testing.T) {
		b := New()
		events, cancel := b.Subscribe(8)
		defer cancel()

		b.Set("t1", Syncing)
		b.Set("t1", Syncing)
		b.Set("t1", Synced)
		b.Clear("t1")

		want := []State{Syncing, Synced, None}
		for _, w := range want {
			e := <-events
			if e.TrackID != "t1" || e.State != w {
				t.Errorf("got event %+v, want state %v", e, w)
			}
			if e.Label != w.String() {
				t.Errorf("got label %q, want %q", e.Label, w.String())
			}
		}
	})

	t.Run("slow subscribers do not block", func(t *testing.T) {
		b := New()
		_, cancel := b.Subscribe(1)
		defer cancel()

		for i := range 10 {
			b.Set(fmt.Sprintf("t%d", i), Synced)
		}

		if got := countState(b, Synced); got != 10 {
			t.Errorf("expected 10 synced, got %d", got)
		}
	})

	t.Run("cancel closes channel", func(t *testing.T) {
		b := New()
		events, cancel := b.Subscribe(1)
		cancel()
		cancel()

		if _, ok := <-events; ok {
			t.Error("expected closed channel")
		}
		b.Set("t1", Synced)
	})

	t.Run("concurrent access", func(t *testing.T) {
		b := New()
		var wg sync.WaitGroup

		for i := range 20 {
			wg.Add(2)
			id := fmt.Sprintf("t%d", i)
			go func() {
				defer wg.Done()
				b.Set(id, Syncing)
				b.Set(id, Downloading)
				b.Set(id, Synced)
			}()
			go func() {
				defer wg.Done()
				_ = b.IsSynced(id)
				_ = b.Snapshot()
			}()
		}
		wg.Wait()

		if got := countState(b, Synced); got != 20 {
			t.Errorf("expected 20 synced, got %d", got)
		}
	})
}

func countState(b *Broadcaster, state State) int {
	n := 0
	for _, s := range b.Snapshot() {
		if s == state {
			n++
		}
	}
	return n
}
