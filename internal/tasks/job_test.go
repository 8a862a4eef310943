package tasks

import (
	"errors"
	"testing"

	"github.com/desertthunder/albumsync/internal/models"
	"github.com/desertthunder/albumsync/internal/shared"
)

func TestCanTransition(t *testing.T) {
	tc := []struct {
		from, to models.TrackStatus
		want     bool
	}{
		{models.TrackStatusPending, models.TrackStatusSyncing, true},
		{models.TrackStatusPending, models.TrackStatusFailed, true},
		{models.TrackStatusPending, models.TrackStatusSynced, false},
		{models.TrackStatusSyncing, models.TrackStatusDownloading, true},
		{models.TrackStatusSyncing, models.TrackStatusSynced, true},
		{models.TrackStatusSyncing, models.TrackStatusFailed, true},
		{models.TrackStatusDownloading, models.TrackStatusSynced, true},
		{models.TrackStatusDownloading, models.TrackStatusSyncing, false},
		{models.TrackStatusSynced, models.TrackStatusSyncing, false},
		{models.TrackStatusFailed, models.TrackStatusSyncing, false},
	}

	for _, tt := range tc {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			if got := CanTransition(tt.from, tt.to); got != tt.want {
				t.Errorf("CanTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
			}
		})
	}
}

func TestTrackJob(t *testing.T) {
	t.Run("notifies on every transition", func(t *testing.T) {
		var seen []models.TrackStatus
		job := newTrackJob(models.CanonicalTrack{ID: "t1", Title: "Intro", Position: 1}, func(j *TrackJob) {
			seen = append(seen, j.State)
		})

		for _, s := range []models.TrackStatus{models.TrackStatusSyncing, models.TrackStatusDownloading, models.TrackStatusSynced} {
			if err := job.Transition(s); err != nil {
				t.Fatalf("Transition(%s) error = %v", s, err)
			}
		}

		if len(seen) != 3 || seen[2] != models.TrackStatusSynced {
			t.Errorf("unexpected notifications %v", seen)
		}
	})

	t.Run("rejects moves out of terminal states", func(t *testing.T) {
		job := newTrackJob(models.CanonicalTrack{ID: "t1"}, nil)
		if err := job.Transition(models.TrackStatusFailed); err != nil {
			t.Fatalf("Transition(failed) error = %v", err)
		}

		err := job.Transition(models.TrackStatusSyncing)
		if !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
		if job.State != models.TrackStatusFailed {
			t.Errorf("state should stay failed, got %s", job.State)
		}
	})

	t.Run("Result drops the error of synced tracks", func(t *testing.T) {
		job := newTrackJob(models.CanonicalTrack{ID: "t1", Title: "Intro", Position: 1}, nil)
		job.State = models.TrackStatusSynced
		job.Source = models.SourceFallback

		res := job.Result(errors.New("earlier strategy failed"))
		if res.Error != "" || res.Source != models.SourceFallback || res.Position != 1 {
			t.Errorf("unexpected result %+v", res)
		}
	})
}
