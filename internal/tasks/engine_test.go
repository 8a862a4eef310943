package tasks

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/albumsync/internal/models"
	"github.com/desertthunder/albumsync/internal/repositories"
	"github.com/desertthunder/albumsync/internal/services"
	"github.com/desertthunder/albumsync/internal/shared"
	"github.com/desertthunder/albumsync/internal/status"
	tu "github.com/desertthunder/albumsync/internal/testing"
)

const (
	testAlbum  = "Night Drive"
	testArtist = "The Examples"
)

var fiveTitles = []string{"Intro", "Blue Skies", "Paper Planes", "Midnight Drive", "Outro"}

type harness struct {
	engine   *AlbumEngine
	store    *repositories.MappingStore
	source   *tu.MockSourceProvider
	fallback *tu.MockFallbackProvider
	clock    *tu.FakeClock
}

func newHarness(t *testing.T, source *tu.MockSourceProvider, fallback *tu.MockFallbackProvider) *harness {
	t.Helper()

	clock := tu.NewFakeClock()
	source.Clock = clock
	store := repositories.NewMappingStore(tu.NewDB(t))

	opts := Options{
		Logger:     log.New(io.Discard),
		Clock:      clock,
		Scheduler:  &FixedDelay{Interval: DefaultTrackInterval, Clock: clock},
		Credential: "token",
	}

	var fb services.FallbackProvider
	if fallback != nil {
		fb = fallback
	}
	engine := NewAlbumEngine(source, fb, store, opts)

	return &harness{engine: engine, store: store, source: source, fallback: fallback, clock: clock}
}

func request(albumID string, tracks []models.CanonicalTrack) AlbumRequest {
	return AlbumRequest{AlbumID: albumID, AlbumTitle: testAlbum, ArtistName: testArtist, Tracks: tracks}
}

func TestSyncAlbum(t *testing.T) {
	t.Run("five tracks resolve on the primary tier", func(t *testing.T) {
		tracks, bundle := tu.Album("alb-1", fiveTitles...)
		h := newHarness(t, tu.NewMockSourceProvider(bundle), tu.NewMockFallbackProvider())

		summary, err := h.engine.SyncAlbum(context.Background(), nil, request("alb-1", tracks))
		if err != nil {
			t.Fatalf("SyncAlbum() error = %v", err)
		}

		if summary.Status != models.RunComplete || summary.SyncedPrimary != 5 {
			t.Fatalf("expected 5 primary syncs, got %+v", summary)
		}
		if summary.Message != "5/5 synced" {
			t.Errorf("unexpected message %q", summary.Message)
		}
		if summary.BundleID != bundle.BundleID {
			t.Errorf("expected bundle %s, got %s", bundle.BundleID, summary.BundleID)
		}

		seen := map[string]string{}
		for _, tr := range tracks {
			m, err := h.store.Tracks.GetByTrack(tr.ID)
			if err != nil {
				t.Fatalf("track %s has no mapping: %v", tr.ID, err)
			}
			if m.Confidence < 0.8 {
				t.Errorf("track %s confidence %.2f below 0.8", tr.ID, m.Confidence)
			}
			if !m.HasDirectLink() || *m.DirectLink != tu.StreamURL(m.FileID) {
				t.Errorf("track %s expected direct link for %s, got %v", tr.ID, m.FileID, m.DirectLink)
			}
			if other, ok := seen[m.FileID]; ok {
				t.Errorf("file %s shared by %s and %s", m.FileID, other, tr.ID)
			}
			seen[m.FileID] = tr.ID

			if !h.engine.IsSynced(tr.ID) || h.engine.IsSyncing(tr.ID) || h.engine.IsDownloading(tr.ID) {
				t.Errorf("track %s should only be in the synced set", tr.ID)
			}
		}

		if got := h.source.Queries; len(got) != 1 || got[0] != testAlbum+" "+testArtist {
			t.Errorf("unexpected bundle queries %v", got)
		}
		if h.fallback.Calls() != 0 {
			t.Errorf("fallback should not be consulted, got %d calls", h.fallback.Calls())
		}

		slept := h.clock.Slept()
		if len(slept) != 4 {
			t.Errorf("expected a pause before every track but the first, got %v", slept)
		}
		for _, d := range slept {
			if d != DefaultTrackInterval {
				t.Errorf("expected %v pauses, got %v", DefaultTrackInterval, d)
			}
		}
	})

	t.Run("no bundles falls back exactly once per track", func(t *testing.T) {
		tracks, _ := tu.Album("alb-1", fiveTitles...)
		fallback := tu.NewMockFallbackProvider()
		for _, tr := range tracks {
			fallback.Refs[FallbackQuery(tr.Title, testArtist)] = &models.FallbackReference{
				ExternalID: "yt-" + tr.ID, Title: tr.Title, DurationSeconds: 200, UploaderLabel: testArtist,
			}
		}
		h := newHarness(t, tu.NewMockSourceProvider(), fallback)

		summary, err := h.engine.SyncAlbum(context.Background(), nil, request("alb-1", tracks))
		if err != nil {
			t.Fatalf("SyncAlbum() error = %v", err)
		}

		if summary.SyncedFallback != 5 || summary.Status != models.RunComplete {
			t.Fatalf("expected 5 fallback syncs, got %+v", summary)
		}
		if fallback.Calls() != 5 {
			t.Errorf("expected exactly one fallback search per track, got %d", fallback.Calls())
		}
		if _, sel, _ := h.source.Calls(); sel != 0 {
			t.Errorf("expected no select calls without a bundle, got %d", sel)
		}
		if _, err := h.store.AlbumMapping("alb-1"); !errors.Is(err, shared.ErrMappingNotFound) {
			t.Errorf("expected no album mapping without a bundle, got %v", err)
		}

		for _, tr := range tracks {
			fm, err := h.store.Fallbacks.GetByTrack(tr.ID)
			if err != nil {
				t.Fatalf("track %s has no fallback mapping: %v", tr.ID, err)
			}
			if fm.ExternalReferenceID != "yt-"+tr.ID {
				t.Errorf("track %s: unexpected reference %s", tr.ID, fm.ExternalReferenceID)
			}
			if !h.engine.IsSynced(tr.ID) {
				t.Errorf("track %s should be synced", tr.ID)
			}
		}
	})

	t.Run("downloading with no progress for eleven seconds fails the track", func(t *testing.T) {
		tracks, bundle := tu.Album("alb-1", "Intro")
		source := tu.NewMockSourceProvider(bundle)
		source.ResolveFunc = func(bundleID string, fileIDs []string, call int) (*models.Resolution, error) {
			return &models.Resolution{Status: models.ResolveDownloading, Progress: 0}, nil
		}
		h := newHarness(t, source, nil)

		summary, err := h.engine.SyncAlbum(context.Background(), nil, request("alb-1", tracks))
		if err != nil {
			t.Fatalf("SyncAlbum() error = %v", err)
		}

		if summary.Failed != 1 || summary.Status != models.RunFailed {
			t.Fatalf("expected the track to fail, got %+v", summary)
		}
		if summary.Message != "0/1 synced, sync failed" {
			t.Errorf("unexpected message %q", summary.Message)
		}
		if summary.Tracks[0].Error == "" {
			t.Error("expected the stall to be reported on the track")
		}

		var waited time.Duration
		for _, d := range h.clock.Slept() {
			waited += d
		}
		if waited < 10*time.Second || waited >= 30*time.Second {
			t.Errorf("expected the poll to give up on the stall window, waited %v", waited)
		}

		if h.engine.IsSynced("t1") || h.engine.IsDownloading("t1") || h.engine.IsSyncing("t1") {
			t.Error("failed track should not be in any status set")
		}

		m, err := h.store.Tracks.GetByTrack("t1")
		if err != nil {
			t.Fatalf("expected the pending mapping to be stored: %v", err)
		}
		if m.HasDirectLink() {
			t.Error("stalled track must not have a direct link")
		}
	})

	t.Run("stored direct links skip the network", func(t *testing.T) {
		tracks, bundle := tu.Album("alb-1", fiveTitles...)
		h := newHarness(t, tu.NewMockSourceProvider(bundle), tu.NewMockFallbackProvider())

		album, err := h.store.EnsureAlbumMapping("alb-1", bundle, false)
		if err != nil {
			t.Fatalf("failed to seed album mapping: %v", err)
		}
		for i, tr := range tracks[:4] {
			m := models.NewTrackMapping(album.ID, tr.ID, bundle.Files[i], 1)
			m.SetDirectLink(tu.StreamURL(bundle.Files[i].ID))
			if err := h.store.UpsertTrack(m); err != nil {
				t.Fatalf("failed to seed track mapping: %v", err)
			}
		}
		if _, err := h.store.UpsertFallback("alb-1", tracks[4].ID, models.FallbackReference{ExternalID: "yt-5"}); err != nil {
			t.Fatalf("failed to seed fallback mapping: %v", err)
		}

		summary, err := h.engine.SyncAlbum(context.Background(), nil, request("alb-1", tracks))
		if err != nil {
			t.Fatalf("SyncAlbum() error = %v", err)
		}

		if summary.AlreadySynced != 5 || summary.Status != models.RunComplete {
			t.Fatalf("expected every track already synced, got %+v", summary)
		}
		if search, sel, polls := h.source.Calls(); search+sel+polls != 0 {
			t.Errorf("expected no provider calls, got search=%d select=%d poll=%d", search, sel, polls)
		}
		if h.fallback.Calls() != 0 {
			t.Errorf("expected no fallback calls, got %d", h.fallback.Calls())
		}
		for _, tr := range tracks {
			if !h.engine.IsSynced(tr.ID) {
				t.Errorf("track %s should be synced", tr.ID)
			}
			if got := summary.Tracks[tr.Position-1].Source; got != models.SourceCache {
				t.Errorf("track %s: expected cache source, got %q", tr.ID, got)
			}
		}
	})

	t.Run("files are claimed at most once", func(t *testing.T) {
		tracks, bundle := tu.Album("alb-1", "Interlude", "Interlude")
		extra := models.CanonicalTrack{ID: "t3", Title: "Interlude", Position: 3, AlbumID: "alb-1"}
		tracks = append(tracks, extra)

		fallback := tu.NewMockFallbackProvider()
		fallback.Refs[FallbackQuery("Interlude", testArtist)] = &models.FallbackReference{ExternalID: "yt-interlude", Title: "Interlude"}
		h := newHarness(t, tu.NewMockSourceProvider(bundle), fallback)

		summary, err := h.engine.SyncAlbum(context.Background(), nil, request("alb-1", tracks))
		if err != nil {
			t.Fatalf("SyncAlbum() error = %v", err)
		}

		if summary.SyncedPrimary != 2 || summary.SyncedFallback != 1 {
			t.Fatalf("expected 2 primary and 1 fallback, got %+v", summary)
		}
		if got := h.source.SelectedFile; len(got) != 2 || got[0] == got[1] {
			t.Errorf("expected two distinct files selected, got %v", got)
		}
		if summary.Tracks[2].Source != models.SourceFallback {
			t.Errorf("third track should use the fallback tier, got %q", summary.Tracks[2].Source)
		}
	})

	t.Run("queued file is polled until ready", func(t *testing.T) {
		tracks, bundle := tu.Album("alb-1", "Intro")
		source := tu.NewMockSourceProvider(bundle)
		source.ResolveFunc = func(bundleID string, fileIDs []string, call int) (*models.Resolution, error) {
			switch call {
			case 1:
				return &models.Resolution{Status: models.ResolveQueued}, nil
			case 2:
				return &models.Resolution{Status: models.ResolveDownloading, Progress: 40}, nil
			default:
				return tu.ReadyResolution(fileIDs[0]), nil
			}
		}
		h := newHarness(t, source, nil)

		events, cancel := h.engine.Status().Subscribe(16)
		defer cancel()

		summary, err := h.engine.SyncAlbum(context.Background(), nil, request("alb-1", tracks))
		if err != nil {
			t.Fatalf("SyncAlbum() error = %v", err)
		}
		if summary.SyncedPrimary != 1 {
			t.Fatalf("expected primary sync after polling, got %+v", summary)
		}
		if _, _, polls := source.Calls(); polls != 1 {
			t.Errorf("expected one poll, got %d", polls)
		}

		m, err := h.store.Tracks.GetByTrack("t1")
		if err != nil {
			t.Fatalf("missing track mapping: %v", err)
		}
		if !m.HasDirectLink() || *m.DirectLink != tu.StreamURL("f1") {
			t.Errorf("expected direct link after poll, got %v", m.DirectLink)
		}

		var states []status.State
		for len(events) > 0 {
			states = append(states, (<-events).State)
		}
		want := []status.State{status.Syncing, status.Downloading, status.Synced}
		if len(states) != len(want) {
			t.Fatalf("expected states %v, got %v", want, states)
		}
		for i := range want {
			if states[i] != want[i] {
				t.Errorf("state %d: expected %v, got %v", i, want[i], states[i])
			}
		}
	})

	t.Run("dead file hands the track to the fallback tier", func(t *testing.T) {
		tracks, bundle := tu.Album("alb-1", "Intro")
		source := tu.NewMockSourceProvider(bundle)
		source.ResolveFunc = func(bundleID string, fileIDs []string, call int) (*models.Resolution, error) {
			return &models.Resolution{Status: models.ResolveDead}, nil
		}
		fallback := tu.NewMockFallbackProvider()
		fallback.Refs[FallbackQuery("Intro", testArtist)] = &models.FallbackReference{ExternalID: "yt-1", Title: "Intro"}
		h := newHarness(t, source, fallback)

		summary, err := h.engine.SyncAlbum(context.Background(), nil, request("alb-1", tracks))
		if err != nil {
			t.Fatalf("SyncAlbum() error = %v", err)
		}
		if summary.SyncedFallback != 1 {
			t.Fatalf("expected fallback sync, got %+v", summary)
		}
		if summary.Tracks[0].Confidence != 1 {
			t.Errorf("expected fallback confidence from the reference title, got %.2f", summary.Tracks[0].Confidence)
		}
	})

	t.Run("search error degrades to the fallback tier", func(t *testing.T) {
		tracks, bundle := tu.Album("alb-1", "Intro", "Outro")
		source := tu.NewMockSourceProvider(bundle)
		source.SearchErr = shared.ErrServiceUnavailable
		fallback := tu.NewMockFallbackProvider()
		fallback.Refs[FallbackQuery("Intro", testArtist)] = &models.FallbackReference{ExternalID: "yt-1"}
		h := newHarness(t, source, fallback)

		summary, err := h.engine.SyncAlbum(context.Background(), nil, request("alb-1", tracks))
		if err != nil {
			t.Fatalf("SyncAlbum() error = %v", err)
		}
		if summary.SyncedFallback != 1 || summary.Failed != 1 || summary.Status != models.RunPartial {
			t.Fatalf("expected one fallback and one failure, got %+v", summary)
		}
		if summary.Message != "1/2 synced, 1 not found" {
			t.Errorf("unexpected message %q", summary.Message)
		}
	})

	t.Run("previously mapped bundle is preferred", func(t *testing.T) {
		tracks, full := tu.Album("alb-1", "Intro", "Outro")
		_, other := tu.Album("alb-other", "Intro", "Outro")
		h := newHarness(t, tu.NewMockSourceProvider(full, other), nil)

		if _, err := h.store.EnsureAlbumMapping("alb-1", other, false); err != nil {
			t.Fatalf("failed to seed album mapping: %v", err)
		}

		summary, err := h.engine.SyncAlbum(context.Background(), nil, request("alb-1", tracks))
		if err != nil {
			t.Fatalf("SyncAlbum() error = %v", err)
		}
		if summary.BundleID != other.BundleID {
			t.Errorf("expected mapped bundle %s, got %s", other.BundleID, summary.BundleID)
		}
	})

	t.Run("switching bundles supersedes the album mapping", func(t *testing.T) {
		tracks, first := tu.Album("alb-1", "Intro", "Blue Skies")
		first.Files = first.Files[:1]
		_, second := tu.Album("alb-2", "Intro", "Blue Skies")
		for i := range second.Files {
			second.Files[i].ID = "g" + second.Files[i].ID[1:]
		}
		h := newHarness(t, tu.NewMockSourceProvider(first), nil)

		run1, err := h.engine.SyncAlbum(context.Background(), nil, request("alb-1", tracks))
		if err != nil {
			t.Fatalf("first run error = %v", err)
		}
		if run1.SyncedPrimary != 1 || run1.Failed != 1 {
			t.Fatalf("expected t1 linked and t2 failed, got %+v", run1)
		}

		h.source.Bundles = []models.BundleSearchResult{second}
		run2, err := h.engine.SyncAlbum(context.Background(), nil, request("alb-1", tracks))
		if err != nil {
			t.Fatalf("second run error = %v", err)
		}
		if run2.SyncedPrimary != 2 || run2.AlreadySynced != 0 || run2.Status != models.RunComplete {
			t.Fatalf("expected both tracks resolved from the new bundle, got %+v", run2)
		}

		album, err := h.store.AlbumMapping("alb-1")
		if err != nil {
			t.Fatalf("missing album mapping: %v", err)
		}
		if album.BundleID != second.BundleID {
			t.Errorf("expected album mapping for %s, got %s", second.BundleID, album.BundleID)
		}

		for i, tr := range tracks {
			m, err := h.store.Tracks.GetByTrack(tr.ID)
			if err != nil {
				t.Fatalf("track %s has no mapping: %v", tr.ID, err)
			}
			if m.AlbumMappingID != album.ID || m.FileID != second.Files[i].ID {
				t.Errorf("track %s should point at %s under %s, got %s under %s",
					tr.ID, second.Files[i].ID, album.ID, m.FileID, m.AlbumMappingID)
			}
			if !h.engine.IsSynced(tr.ID) {
				t.Errorf("track %s should be synced", tr.ID)
			}
		}
	})

	t.Run("force replaces stored links", func(t *testing.T) {
		tracks, bundle := tu.Album("alb-1", "Intro")
		h := newHarness(t, tu.NewMockSourceProvider(bundle), nil)

		first, err := h.engine.SyncAlbum(context.Background(), nil, request("alb-1", tracks))
		if err != nil || first.SyncedPrimary != 1 {
			t.Fatalf("first run: %+v, %v", first, err)
		}
		before, _ := h.store.AlbumMapping("alb-1")

		req := request("alb-1", tracks)
		req.Force = true
		second, err := h.engine.SyncAlbum(context.Background(), nil, req)
		if err != nil {
			t.Fatalf("SyncAlbum() error = %v", err)
		}
		if second.AlreadySynced != 0 || second.SyncedPrimary != 1 {
			t.Errorf("forced run should resolve again, got %+v", second)
		}

		after, err := h.store.AlbumMapping("alb-1")
		if err != nil {
			t.Fatalf("missing album mapping: %v", err)
		}
		if after.ID == before.ID {
			t.Error("forced run should replace the album mapping")
		}
	})

	t.Run("cancellation fails unvisited tracks", func(t *testing.T) {
		tracks, bundle := tu.Album("alb-1", fiveTitles...)
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		source := tu.NewMockSourceProvider(bundle)
		source.ResolveFunc = func(bundleID string, fileIDs []string, call int) (*models.Resolution, error) {
			cancel()
			return tu.ReadyResolution(fileIDs[0]), nil
		}
		h := newHarness(t, source, nil)

		summary, err := h.engine.SyncAlbum(ctx, nil, request("alb-1", tracks))
		if err != nil {
			t.Fatalf("SyncAlbum() error = %v", err)
		}
		if summary.SyncedPrimary != 1 || summary.Failed != 4 || summary.Status != models.RunPartial {
			t.Fatalf("expected 1 synced and 4 failed, got %+v", summary)
		}
		for _, res := range summary.Tracks[1:] {
			if res.Status != models.TrackStatusFailed || res.Error == "" {
				t.Errorf("unvisited track %s should fail with a reason, got %+v", res.TrackID, res)
			}
		}
	})

	t.Run("progress ends with a complete update", func(t *testing.T) {
		tracks, bundle := tu.Album("alb-1", fiveTitles...)
		h := newHarness(t, tu.NewMockSourceProvider(bundle), nil)

		progress := make(chan ProgressUpdate, 64)
		if _, err := h.engine.SyncAlbum(context.Background(), progress, request("alb-1", tracks)); err != nil {
			t.Fatalf("SyncAlbum() error = %v", err)
		}
		close(progress)

		var updates []ProgressUpdate
		for u := range progress {
			updates = append(updates, u)
		}
		if len(updates) == 0 {
			t.Fatal("expected progress updates")
		}

		last := updates[len(updates)-1]
		if last.Phase != Complete {
			t.Errorf("expected final phase complete, got %v", last.Phase)
		}
		if last.Counter != (Counter{Synced: 5, Failed: 0, Total: 5}) {
			t.Errorf("unexpected final counter %+v", last.Counter)
		}
		if last.Message != "5/5 synced" {
			t.Errorf("unexpected final message %q", last.Message)
		}
	})

	t.Run("run history is recorded", func(t *testing.T) {
		tracks, bundle := tu.Album("alb-1", "Intro", "Outro")
		h := newHarness(t, tu.NewMockSourceProvider(bundle), nil)

		summary, err := h.engine.SyncAlbum(context.Background(), nil, request("alb-1", tracks))
		if err != nil {
			t.Fatalf("SyncAlbum() error = %v", err)
		}

		run, err := h.store.Runs.Get(summary.RunID)
		if err != nil {
			t.Fatalf("missing run %s: %v", summary.RunID, err)
		}
		if run.Status != models.RunComplete || run.SyncedPrimary != 2 || run.CompletedAt == nil {
			t.Errorf("unexpected stored run %+v", run)
		}
	})
}

func TestSyncAlbumPreconditions(t *testing.T) {
	tracks, bundle := tu.Album("alb-1", "Intro")

	tc := []struct {
		name    string
		mutate  func(*AlbumRequest, *Options)
		wantErr error
	}{
		{
			name:    "empty track list",
			mutate:  func(r *AlbumRequest, _ *Options) { r.Tracks = nil },
			wantErr: shared.ErrEmptyTrackList,
		},
		{
			name:    "missing credential",
			mutate:  func(_ *AlbumRequest, o *Options) { o.Credential = "" },
			wantErr: shared.ErrMissingCredentials,
		},
		{
			name:    "missing album id",
			mutate:  func(r *AlbumRequest, _ *Options) { r.AlbumID = "" },
			wantErr: shared.ErrMissingArgument,
		},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			source := tu.NewMockSourceProvider(bundle)
			req := request("alb-1", tracks)
			opts := Options{Logger: log.New(io.Discard), Credential: "token", Scheduler: &FixedDelay{}}
			tt.mutate(&req, &opts)

			engine := NewAlbumEngine(source, nil, repositories.NewMappingStore(tu.NewDB(t)), opts)
			summary, err := engine.SyncAlbum(context.Background(), nil, req)

			if !errors.Is(err, shared.ErrPrecondition) || !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected precondition error wrapping %v, got %v", tt.wantErr, err)
			}
			if summary != nil {
				t.Error("expected no summary on precondition failure")
			}
			if search, sel, polls := source.Calls(); search+sel+polls != 0 {
				t.Error("expected no provider calls before preconditions pass")
			}
		})
	}

	t.Run("request credential overrides the default", func(t *testing.T) {
		source := tu.NewMockSourceProvider(bundle)
		engine := NewAlbumEngine(source, nil, repositories.NewMappingStore(tu.NewDB(t)),
			Options{Logger: log.New(io.Discard), Scheduler: &FixedDelay{}})

		req := request("alb-1", tracks)
		req.Credential = "per-user"
		if _, err := engine.SyncAlbum(context.Background(), nil, req); err != nil {
			t.Fatalf("SyncAlbum() error = %v", err)
		}
	})

	t.Run("concurrent run for the same album is rejected", func(t *testing.T) {
		engine := NewAlbumEngine(tu.NewMockSourceProvider(bundle), nil, repositories.NewMappingStore(tu.NewDB(t)),
			Options{Logger: log.New(io.Discard), Credential: "token", Scheduler: &FixedDelay{}})

		if !engine.acquire("alb-1") {
			t.Fatal("expected to acquire the album")
		}
		if !engine.Running("alb-1") {
			t.Error("album should be reported running")
		}

		_, err := engine.SyncAlbum(context.Background(), nil, request("alb-1", tracks))
		if !errors.Is(err, shared.ErrSyncInProgress) {
			t.Errorf("expected ErrSyncInProgress, got %v", err)
		}

		engine.release("alb-1")
		if engine.Running("alb-1") {
			t.Error("album should be released")
		}
	})
}

func TestChooseBundle(t *testing.T) {
	bundle := func(id string, files int) models.BundleSearchResult {
		b := models.BundleSearchResult{BundleID: id}
		for i := 0; i < files; i++ {
			b.Files = append(b.Files, models.CandidateFile{ID: id + "-f"})
		}
		return b
	}

	tc := []struct {
		name     string
		bundles  []models.BundleSearchResult
		tracks   int
		coverage float64
		want     string
	}{
		{name: "none", bundles: nil, tracks: 10, coverage: 0.5, want: ""},
		{name: "first covering bundle", bundles: []models.BundleSearchResult{bundle("a", 2), bundle("b", 6), bundle("c", 10)}, tracks: 10, coverage: 0.5, want: "b"},
		{name: "exactly half covers", bundles: []models.BundleSearchResult{bundle("a", 5)}, tracks: 10, coverage: 0.5, want: "a"},
		{name: "first with files when none cover", bundles: []models.BundleSearchResult{bundle("a", 0), bundle("b", 1), bundle("c", 2)}, tracks: 10, coverage: 0.5, want: "b"},
		{name: "empty bundles only", bundles: []models.BundleSearchResult{bundle("a", 0)}, tracks: 3, coverage: 0.5, want: ""},
		{name: "stricter coverage", bundles: []models.BundleSearchResult{bundle("a", 6), bundle("b", 9)}, tracks: 10, coverage: 0.9, want: "b"},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			got := ChooseBundle(tt.bundles, tt.tracks, tt.coverage)
			switch {
			case tt.want == "" && got != nil:
				t.Errorf("expected no bundle, got %s", got.BundleID)
			case tt.want != "" && (got == nil || got.BundleID != tt.want):
				t.Errorf("expected bundle %s, got %v", tt.want, got)
			}
		})
	}
}
