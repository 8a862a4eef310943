package models

import (
	"fmt"
	"time"
)

// RunStatus classifies a sync run.
type RunStatus string

const (
	RunRunning  RunStatus = "running"
	RunComplete RunStatus = "complete"
	RunPartial  RunStatus = "partial"
	RunFailed   RunStatus = "failed"
)

// TrackSource tells which tier served a track.
type TrackSource string

const (
	SourceNone     TrackSource = ""
	SourceCache    TrackSource = "cache"
	SourcePrimary  TrackSource = "primary"
	SourceFallback TrackSource = "fallback"
)

// TrackResult is the outcome for a single track of a run.
type TrackResult struct {
	TrackID    string      `json:"track_id"`
	Title      string      `json:"title"`
	Position   int         `json:"position"`
	Status     TrackStatus `json:"status"`
	Source     TrackSource `json:"source,omitempty"`
	Confidence float64     `json:"confidence,omitempty"`
	Error      string      `json:"error,omitempty"`
}

// RunSummary is the single result reported for a run.
type RunSummary struct {
	RunID          string        `json:"run_id"`
	AlbumID        string        `json:"album_id"`
	BundleID       string        `json:"bundle_id,omitempty"`
	Total          int           `json:"total"`
	SyncedPrimary  int           `json:"synced_primary"`
	SyncedFallback int           `json:"synced_fallback"`
	AlreadySynced  int           `json:"already_synced"`
	Failed         int           `json:"failed"`
	Status         RunStatus     `json:"status"`
	Message        string        `json:"message"`
	Tracks         []TrackResult `json:"tracks"`
	StartedAt      time.Time     `json:"started_at"`
	CompletedAt    time.Time     `json:"completed_at"`
}

// Synced counts tracks that ended the run playable, whichever tier served them.
func (s *RunSummary) Synced() int {
	return s.SyncedPrimary + s.SyncedFallback + s.AlreadySynced
}

// Classify sets Status and Message from the counters.
func (s *RunSummary) Classify() {
	synced := s.Synced()
	switch {
	case s.Total > 0 && synced == s.Total:
		s.Status = RunComplete
		s.Message = fmt.Sprintf("%d/%d synced", synced, s.Total)
	case synced == 0:
		s.Status = RunFailed
		s.Message = fmt.Sprintf("0/%d synced, sync failed", s.Total)
	default:
		s.Status = RunPartial
		s.Message = fmt.Sprintf("%d/%d synced, %d not found", synced, s.Total, s.Total-synced)
	}
}

// SyncRun is the persisted history row for one run.
type SyncRun struct {
	ID             string     `json:"id"`
	AlbumID        string     `json:"album_id"`
	Status         RunStatus  `json:"status"`
	SyncedPrimary  int        `json:"synced_primary"`
	SyncedFallback int        `json:"synced_fallback"`
	AlreadySynced  int        `json:"already_synced"`
	Failed         int        `json:"failed"`
	Total          int        `json:"total"`
	Message        string     `json:"message"`
	StartedAt      time.Time  `json:"started_at"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
}

// NewSyncRun starts a run record for album.
func NewSyncRun(albumID string, total int) *SyncRun {
	return &SyncRun{AlbumID: albumID, Status: RunRunning, Total: total, StartedAt: now()}
}

// Complete copies the summary's counters into the run and stamps its completion time.
func (r *SyncRun) Complete(s *RunSummary) {
	ts := now()
	r.Status = s.Status
	r.SyncedPrimary = s.SyncedPrimary
	r.SyncedFallback = s.SyncedFallback
	r.AlreadySynced = s.AlreadySynced
	r.Failed = s.Failed
	r.Total = s.Total
	r.Message = s.Message
	r.CompletedAt = &ts
}

func (r *SyncRun) Validate() error {
	if err := requireField("sync run", "album_id", r.AlbumID); err != nil {
		return err
	}
	switch r.Status {
	case RunRunning, RunComplete, RunPartial, RunFailed:
		return nil
	default:
		return fmt.Errorf("%w: unknown run status %q", ErrValidation, r.Status)
	}
}
