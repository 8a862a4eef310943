package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/albumsync/internal/models"
	"github.com/desertthunder/albumsync/internal/shared"
	"github.com/desertthunder/albumsync/internal/status"
	"github.com/desertthunder/albumsync/internal/tasks"
)

// maxBodyBytes bounds a sync request body.
const maxBodyBytes = 1 << 20

// SyncRequest is the body of POST /albums/sync.
type SyncRequest struct {
	AlbumID    string                  `json:"album_id"`
	Title      string                  `json:"title"`
	Artist     string                  `json:"artist"`
	Credential string                  `json:"credential,omitempty"`
	Tracks     []models.CanonicalTrack `json:"tracks"`
	Force      bool                    `json:"force"`
}

// SyncAccepted is returned with 202 once a run has been started.
type SyncAccepted struct {
	AlbumID string `json:"album_id"`
	Status  string `json:"status"`
	Tracks  int    `json:"tracks"`
}

// TrackStatus is the body of GET /tracks/status.
type TrackStatus struct {
	TrackID       string                  `json:"track_id"`
	State         string                  `json:"state"`
	IsSynced      bool                    `json:"is_synced"`
	IsSyncing     bool                    `json:"is_syncing"`
	IsDownloading bool                    `json:"is_downloading"`
	Source        models.TrackSource      `json:"source,omitempty"`
	Primary       *models.TrackMapping    `json:"primary,omitempty"`
	Fallback      *models.FallbackMapping `json:"fallback,omitempty"`
}

// AlbumAPI serves album syncs, mapping lookups and the live status stream.
//
// Syncs started over HTTP run in the background on the API's base context, so they outlive the
// request that started them but stop when the server shuts down.
type AlbumAPI struct {
	engine Syncer
	store  Reports
	logger *log.Logger

	base     context.Context
	wg       sync.WaitGroup
	mu       sync.Mutex
	inflight map[string]bool
}

// NewAlbumAPI creates an API backed by engine and store.
func NewAlbumAPI(engine Syncer, store Reports, logger *log.Logger) *AlbumAPI {
	return &AlbumAPI{
		engine:   engine,
		store:    store,
		logger:   logger,
		base:     context.Background(),
		inflight: make(map[string]bool),
	}
}

// Register adds every route of the API to router.
func (a *AlbumAPI) Register(router Router) {
	router.Handle(http.MethodPost, "/albums/sync", http.HandlerFunc(a.handleSync))
	router.Handle(http.MethodGet, "/albums/mappings", http.HandlerFunc(a.handleMappings))
	router.Handle(http.MethodGet, "/tracks/status", http.HandlerFunc(a.handleTrackStatus))
	router.Handle(http.MethodGet, "/status/stream", http.HandlerFunc(a.handleStream))
}

// WithContext sets the context background syncs run on.
func (a *AlbumAPI) WithContext(ctx context.Context) *AlbumAPI {
	a.base = ctx
	return a
}

// Wait blocks until every background sync has returned.
func (a *AlbumAPI) Wait() { a.wg.Wait() }

// claim marks albumID busy unless a run is already in flight.
func (a *AlbumAPI) claim(albumID string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.inflight[albumID] || a.engine.Running(albumID) {
		return false
	}
	a.inflight[albumID] = true
	return true
}

func (a *AlbumAPI) done(albumID string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.inflight, albumID)
}

func (a *AlbumAPI) handleSync(w http.ResponseWriter, r *http.Request) {
	var body SyncRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}

	body.AlbumID = strings.TrimSpace(body.AlbumID)
	switch {
	case body.AlbumID == "":
		writeError(w, http.StatusBadRequest, "album_id is required")
		return
	case len(body.Tracks) == 0:
		writeError(w, http.StatusBadRequest, shared.ErrEmptyTrackList.Error())
		return
	}

	if !a.claim(body.AlbumID) {
		writeError(w, http.StatusConflict, fmt.Sprintf("%v: album %s", shared.ErrSyncInProgress, body.AlbumID))
		return
	}

	req := tasks.AlbumRequest{
		AlbumID:    body.AlbumID,
		AlbumTitle: body.Title,
		ArtistName: body.Artist,
		Credential: body.Credential,
		Tracks:     body.Tracks,
		Force:      body.Force,
	}

	a.wg.Add(1)
	go a.run(req)

	writeJSON(w, http.StatusAccepted, SyncAccepted{AlbumID: req.AlbumID, Status: "accepted", Tracks: len(req.Tracks)})
}

func (a *AlbumAPI) run(req tasks.AlbumRequest) {
	defer a.wg.Done()
	defer a.done(req.AlbumID)

	logger := shared.WithLogger(a.logger, "album", req.AlbumID)
	summary, err := a.engine.SyncAlbum(a.base, nil, req)
	if err != nil {
		logger.Error("sync rejected", "error", err)
		return
	}
	logger.Info("sync finished", "status", summary.Status, "message", summary.Message)
}

func (a *AlbumAPI) handleMappings(w http.ResponseWriter, r *http.Request) {
	albumID := strings.TrimSpace(r.URL.Query().Get("album_id"))
	if albumID == "" {
		writeError(w, http.StatusBadRequest, "album_id is required")
		return
	}

	report, err := a.store.AlbumReport(albumID)
	if err != nil {
		a.logger.Error("failed to load album report", "album", albumID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load mappings")
		return
	}
	if report.Empty() {
		writeError(w, http.StatusNotFound, fmt.Sprintf("%v: album %s", shared.ErrMappingNotFound, albumID))
		return
	}

	writeJSON(w, http.StatusOK, report)
}

func (a *AlbumAPI) handleTrackStatus(w http.ResponseWriter, r *http.Request) {
	trackID := strings.TrimSpace(r.URL.Query().Get("id"))
	if trackID == "" {
		writeError(w, http.StatusBadRequest, "id is required")
		return
	}

	stored, err := a.store.Track(trackID)
	if err != nil {
		a.logger.Error("failed to load track", "track", trackID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load track")
		return
	}

	writeJSON(w, http.StatusOK, TrackStatus{
		TrackID:       trackID,
		State:         a.engine.Status().State(trackID).String(),
		IsSynced:      a.engine.IsSynced(trackID),
		IsSyncing:     a.engine.IsSyncing(trackID),
		IsDownloading: a.engine.IsDownloading(trackID),
		Source:        stored.Source(),
		Primary:       stored.Primary,
		Fallback:      stored.Fallback,
	})
}

// handleStream writes the current state of every track followed by each change as a server-sent
// "status" event until the client goes away.
func (a *AlbumAPI) handleStream(w http.ResponseWriter, r *http.Request) {
	rc := http.NewResponseController(w)
	broadcaster := a.engine.Status()
	events, cancel := broadcaster.Subscribe(64)
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	for id, state := range broadcaster.Snapshot() {
		if err := writeEvent(w, status.Event{TrackID: id, State: state, Label: state.String()}); err != nil {
			return
		}
	}
	if err := rc.Flush(); err != nil && !errors.Is(err, http.ErrNotSupported) {
		return
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case <-a.base.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if err := writeEvent(w, ev); err != nil {
				return
			}
			if err := rc.Flush(); err != nil && !errors.Is(err, http.ErrNotSupported) {
				return
			}
		}
	}
}

func writeEvent(w http.ResponseWriter, ev status.Event) error {
	data, err := shared.MarshalJSON(ev, false)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: status\ndata: %s\n\n", data)
	return err
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	data, err := shared.MarshalJSON(v, false)
	if err != nil {
		http.Error(w, "failed to encode response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(append(data, '\n'))
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
