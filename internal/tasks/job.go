package tasks

import (
	"fmt"

	"github.com/desertthunder/albumsync/internal/models"
	"github.com/desertthunder/albumsync/internal/shared"
)

// transitions lists the states each track state may move to within a run.
var transitions = map[models.TrackStatus][]models.TrackStatus{
	models.TrackStatusPending:     {models.TrackStatusSyncing, models.TrackStatusFailed},
	models.TrackStatusSyncing:     {models.TrackStatusDownloading, models.TrackStatusSynced, models.TrackStatusFailed},
	models.TrackStatusDownloading: {models.TrackStatusSynced, models.TrackStatusFailed},
}

// CanTransition reports whether a track may move from one state to another.
func CanTransition(from, to models.TrackStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// TrackJob carries one track through a run and the album context its resolvers need.
type TrackJob struct {
	Track      models.CanonicalTrack
	AlbumID    string
	ArtistName string
	Credential string
	Bundle     *models.BundleSearchResult // nil when no bundle was selected
	Album      *models.AlbumMapping       // nil when no bundle was selected
	Claimed    map[string]bool            // file IDs already taken in this run

	State      models.TrackStatus
	Source     models.TrackSource
	FileID     string
	Confidence float64

	onChange func(job *TrackJob)
}

func newTrackJob(track models.CanonicalTrack, onChange func(*TrackJob)) *TrackJob {
	return &TrackJob{Track: track, State: models.TrackStatusPending, onChange: onChange}
}

// Transition moves the job to state, rejecting moves the transition table does not allow.
func (j *TrackJob) Transition(state models.TrackStatus) error {
	if !CanTransition(j.State, state) {
		return fmt.Errorf("%w: track %s cannot move from %s to %s", shared.ErrInvalidInput, j.Track.ID, j.State, state)
	}
	j.State = state
	if j.onChange != nil {
		j.onChange(j)
	}
	return nil
}

// Result summarizes the job for the run summary.
func (j *TrackJob) Result(err error) models.TrackResult {
	res := models.TrackResult{
		TrackID:    j.Track.ID,
		Title:      j.Track.Title,
		Position:   j.Track.Position,
		Status:     j.State,
		Source:     j.Source,
		Confidence: j.Confidence,
	}
	if err != nil && j.State != models.TrackStatusSynced {
		res.Error = err.Error()
	}
	return res
}
