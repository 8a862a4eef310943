package tasks

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/albumsync/internal/models"
	"github.com/desertthunder/albumsync/internal/poll"
	"github.com/desertthunder/albumsync/internal/services"
	"github.com/desertthunder/albumsync/internal/shared"
	"github.com/desertthunder/albumsync/internal/status"
)

// DefaultBundleCoverage is the fraction of an album's tracks a bundle must hold files for to be
// preferred over earlier search results.
const DefaultBundleCoverage = 0.5

// Store is the persistence the engine needs. [repositories.MappingStore] implements it.
type Store interface {
	LookupResolved(trackIDs []string) (map[string]models.TrackSource, error)
	AlbumMapping(albumID string) (*models.AlbumMapping, error)
	EnsureAlbumMapping(albumID string, bundle models.BundleSearchResult, force bool) (*models.AlbumMapping, error)
	UpsertTrack(m *models.TrackMapping) error
	SetDirectLink(trackID, link string) error
	UpsertFallback(albumID, trackID string, ref models.FallbackReference) (*models.FallbackMapping, error)
	StartRun(albumID string, total int) (*models.SyncRun, error)
	FinishRun(run *models.SyncRun, summary *models.RunSummary) error
}

// AlbumRequest describes one album sync run.
type AlbumRequest struct {
	AlbumID    string
	AlbumTitle string
	ArtistName string
	Credential string // primary-provider token; the engine default is used when empty
	Tracks     []models.CanonicalTrack
	Force      bool // ignore stored links and replace the album mapping
}

// Options tunes an [AlbumEngine]. Zero values select the defaults.
type Options struct {
	Logger          *log.Logger
	Status          *status.Broadcaster
	Scheduler       Scheduler
	Clock           poll.Clock
	Credential      string
	BundleCoverage  float64
	PollTimeout     time.Duration
	DisableFallback bool
}

// AlbumEngine reconciles album track lists against the primary and fallback providers.
type AlbumEngine struct {
	source    services.SourceProvider
	store     Store
	resolvers []Resolver
	status    *status.Broadcaster
	scheduler Scheduler
	clock     poll.Clock
	logger    *log.Logger

	credential string
	coverage   float64

	mu      sync.Mutex
	running map[string]bool
}

// NewAlbumEngine creates an engine that resolves tracks through source first and fallback second.
// A nil fallback provider disables the fallback tier.
func NewAlbumEngine(source services.SourceProvider, fallback services.FallbackProvider, store Store, opts Options) *AlbumEngine {
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	if opts.Status == nil {
		opts.Status = status.New()
	}
	if opts.Clock == nil {
		opts.Clock = poll.System
	}
	if opts.Scheduler == nil {
		opts.Scheduler = &FixedDelay{Interval: DefaultTrackInterval, Clock: opts.Clock}
	}
	if opts.BundleCoverage <= 0 || opts.BundleCoverage > 1 {
		opts.BundleCoverage = DefaultBundleCoverage
	}

	resolvers := []Resolver{NewPrimaryStrategy(source, store, opts.PollTimeout)}
	if fallback != nil && !opts.DisableFallback {
		resolvers = append(resolvers, NewFallbackStrategy(fallback, store))
	}

	return &AlbumEngine{
		source:     source,
		store:      store,
		resolvers:  resolvers,
		status:     opts.Status,
		scheduler:  opts.Scheduler,
		clock:      opts.Clock,
		logger:     shared.WithLogger(opts.Logger, "component", "engine"),
		credential: opts.Credential,
		coverage:   opts.BundleCoverage,
		running:    make(map[string]bool),
	}
}

// Status returns the broadcaster the engine mirrors track state into.
func (e *AlbumEngine) Status() *status.Broadcaster { return e.status }

func (e *AlbumEngine) IsSynced(trackID string) bool      { return e.status.IsSynced(trackID) }
func (e *AlbumEngine) IsSyncing(trackID string) bool     { return e.status.IsSyncing(trackID) }
func (e *AlbumEngine) IsDownloading(trackID string) bool { return e.status.IsDownloading(trackID) }

// Running reports whether a run for albumID is in progress.
func (e *AlbumEngine) Running(albumID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.running[albumID]
}

func (e *AlbumEngine) acquire(albumID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.running[albumID] {
		return false
	}
	e.running[albumID] = true
	return true
}

func (e *AlbumEngine) release(albumID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.running, albumID)
}

func (e *AlbumEngine) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	sendProgress(progress, update)
}

// validate checks the preconditions of a run before any I/O and returns the credential to use.
func (e *AlbumEngine) validate(req AlbumRequest) (string, error) {
	if req.AlbumID == "" {
		return "", fmt.Errorf("%w: %w: album id", shared.ErrPrecondition, shared.ErrMissingArgument)
	}
	if len(req.Tracks) == 0 {
		return "", fmt.Errorf("%w: %w", shared.ErrPrecondition, shared.ErrEmptyTrackList)
	}

	credential := req.Credential
	if credential == "" {
		credential = e.credential
	}
	if credential == "" {
		return "", fmt.Errorf("%w: %w: primary provider token", shared.ErrPrecondition, shared.ErrMissingCredentials)
	}
	return credential, nil
}

// SyncAlbum runs one album sync and returns its summary.
//
// Only precondition failures are returned as errors; every per-track failure is recorded in the
// summary instead. Cancelling ctx stops the run after the current track and counts the tracks that
// were not attempted as failed.
func (e *AlbumEngine) SyncAlbum(ctx context.Context, progress chan<- ProgressUpdate, req AlbumRequest) (*models.RunSummary, error) {
	credential, err := e.validate(req)
	if err != nil {
		return nil, err
	}

	if !e.acquire(req.AlbumID) {
		return nil, fmt.Errorf("%w: %w: album %s", shared.ErrPrecondition, shared.ErrSyncInProgress, req.AlbumID)
	}
	defer e.release(req.AlbumID)

	logger := shared.WithLogger(e.logger, "album", req.AlbumID)
	total := len(req.Tracks)
	summary := &models.RunSummary{
		AlbumID:   req.AlbumID,
		Total:     total,
		Tracks:    make([]models.TrackResult, total),
		StartedAt: e.clock.Now(),
	}
	counter := Counter{Total: total}

	run, err := e.store.StartRun(req.AlbumID, total)
	if err != nil {
		logger.Warn("failed to record sync run", "error", err)
	} else {
		summary.RunID = run.ID
	}

	logger.Info("sync started", "tracks", total, "force", req.Force)

	remaining := e.lookupResolved(req, summary, &counter, logger)
	e.sendProgress(progress, lookupUpdate(counter, summary.AlreadySynced))

	if len(remaining) > 0 {
		e.resolveRemaining(ctx, progress, req, credential, remaining, summary, &counter, logger)
	} else {
		logger.Info("every track already synced")
	}

	summary.Classify()
	summary.CompletedAt = e.clock.Now()

	if run != nil {
		if err := e.store.FinishRun(run, summary); err != nil {
			logger.Warn("failed to finish sync run", "error", err)
		}
	}

	logger.Info("sync finished",
		"status", summary.Status,
		"primary", summary.SyncedPrimary,
		"fallback", summary.SyncedFallback,
		"cached", summary.AlreadySynced,
		"failed", summary.Failed,
	)
	e.sendProgress(progress, completeUpdate(counter, summary))

	return summary, nil
}

// lookupResolved marks tracks that are already playable and returns the indexes of the rest.
func (e *AlbumEngine) lookupResolved(req AlbumRequest, summary *models.RunSummary, counter *Counter, logger *log.Logger) []int {
	ids := make([]string, len(req.Tracks))
	for i, tr := range req.Tracks {
		ids[i] = tr.ID
		summary.Tracks[i] = models.TrackResult{
			TrackID:  tr.ID,
			Title:    tr.Title,
			Position: tr.Position,
			Status:   models.TrackStatusPending,
		}
	}

	resolved := map[string]models.TrackSource{}
	if !req.Force {
		var err error
		resolved, err = e.store.LookupResolved(ids)
		if err != nil {
			logger.Warn("failed to look up stored mappings", "error", err)
			resolved = map[string]models.TrackSource{}
		}
	}

	var remaining []int
	for i, tr := range req.Tracks {
		if _, ok := resolved[tr.ID]; ok {
			summary.Tracks[i].Status = models.TrackStatusSynced
			summary.Tracks[i].Source = models.SourceCache
			summary.AlreadySynced++
			counter.Synced++
			e.status.Set(tr.ID, status.Synced)
			continue
		}
		remaining = append(remaining, i)
	}
	return remaining
}

// resolveRemaining selects a bundle and walks the unresolved tracks through the resolver strategies.
func (e *AlbumEngine) resolveRemaining(
	ctx context.Context,
	progress chan<- ProgressUpdate,
	req AlbumRequest,
	credential string,
	remaining []int,
	summary *models.RunSummary,
	counter *Counter,
	logger *log.Logger,
) {
	query := BundleQuery(req.AlbumTitle, req.ArtistName)
	e.sendProgress(progress, searchBundlesUpdate(*counter, query))

	var prev *models.AlbumMapping
	if !req.Force {
		m, err := e.store.AlbumMapping(req.AlbumID)
		switch {
		case err == nil:
			prev = m
		case !errors.Is(err, shared.ErrMappingNotFound):
			logger.Warn("failed to read album mapping", "error", err)
		}
	}

	bundle := e.selectBundle(ctx, credential, query, prev, len(req.Tracks), logger)

	var album *models.AlbumMapping
	if bundle != nil {
		var err error
		album, err = e.store.EnsureAlbumMapping(req.AlbumID, *bundle, req.Force)
		if err != nil {
			logger.Warn("failed to store album mapping, continuing without bundle", "bundle", bundle.BundleID, "error", err)
			bundle = nil
		} else {
			summary.BundleID = bundle.BundleID
			if prev != nil && prev.ID != album.ID {
				logger.Info("album mapping superseded", "from", prev.BundleID, "to", bundle.BundleID)
				remaining = e.requeueSuperseded(req, remaining, summary, counter, logger)
			}
		}
	}
	e.sendProgress(progress, selectBundleUpdate(*counter, bundle))

	claimed := make(map[string]bool)
	visited := 0
	for n, idx := range remaining {
		if err := e.scheduler.Wait(ctx, n); err != nil {
			break
		}

		tr := req.Tracks[idx]
		e.sendProgress(progress, trackStartedUpdate(n+1, len(remaining), *counter, tr))

		job := newTrackJob(tr, e.mirror)
		job.AlbumID = req.AlbumID
		job.ArtistName = req.ArtistName
		job.Credential = credential
		job.Bundle = bundle
		job.Album = album
		job.Claimed = claimed

		res := e.resolveTrack(ctx, job, logger)
		summary.Tracks[idx] = res
		visited++

		switch {
		case res.Status != models.TrackStatusSynced:
			summary.Failed++
			counter.Failed++
		case res.Source == models.SourceFallback:
			summary.SyncedFallback++
			counter.Synced++
		default:
			summary.SyncedPrimary++
			counter.Synced++
		}

		e.sendProgress(progress, trackFinishedUpdate(n+1, len(remaining), *counter, res))
	}

	if visited < len(remaining) {
		reason := "sync cancelled"
		if err := ctx.Err(); err != nil {
			reason = err.Error()
		}
		logger.Warn("sync stopped early", "unvisited", len(remaining)-visited, "reason", reason)

		for _, idx := range remaining[visited:] {
			summary.Tracks[idx].Status = models.TrackStatusFailed
			summary.Tracks[idx].Error = reason
			summary.Failed++
			counter.Failed++
		}
	}
}

// selectBundle prefers the previously mapped bundle, then the first bundle covering enough of the
// album, then the first bundle with any file. It returns nil when nothing usable was found.
func (e *AlbumEngine) selectBundle(ctx context.Context, credential, query string, prev *models.AlbumMapping, trackCount int, logger *log.Logger) *models.BundleSearchResult {
	bundles, err := e.source.Search(ctx, credential, query)
	if err != nil {
		logger.Warn("bundle search failed, falling back per track", "query", query, "error", err)
		return nil
	}
	if len(bundles) == 0 {
		logger.Info("no bundles found", "query", query)
		return nil
	}

	if prev != nil {
		for i := range bundles {
			if bundles[i].BundleID == prev.BundleID {
				logger.Debug("reusing mapped bundle", "bundle", prev.BundleID)
				return &bundles[i]
			}
		}
	}

	return ChooseBundle(bundles, trackCount, e.coverage)
}

// requeueSuperseded puts cached tracks whose track mappings went away with a superseded album
// mapping back into the queue, in track order. Tracks still served by a fallback stay cached.
func (e *AlbumEngine) requeueSuperseded(req AlbumRequest, remaining []int, summary *models.RunSummary, counter *Counter, logger *log.Logger) []int {
	var cached []string
	for _, res := range summary.Tracks {
		if res.Source == models.SourceCache {
			cached = append(cached, res.TrackID)
		}
	}
	if len(cached) == 0 {
		return remaining
	}

	still, err := e.store.LookupResolved(cached)
	if err != nil {
		logger.Warn("failed to recheck cached tracks", "error", err)
		still = map[string]models.TrackSource{}
	}

	for i, res := range summary.Tracks {
		if res.Source != models.SourceCache {
			continue
		}
		if _, ok := still[res.TrackID]; ok {
			continue
		}

		tr := req.Tracks[i]
		summary.Tracks[i] = models.TrackResult{
			TrackID:  tr.ID,
			Title:    tr.Title,
			Position: tr.Position,
			Status:   models.TrackStatusPending,
		}
		summary.AlreadySynced--
		counter.Synced--
		e.status.Clear(tr.ID)
		remaining = append(remaining, i)
	}

	slices.Sort(remaining)
	return remaining
}

// ChooseBundle returns the first bundle whose file count reaches coverage of trackCount, else the
// first bundle with any file, else nil.
func ChooseBundle(bundles []models.BundleSearchResult, trackCount int, coverage float64) *models.BundleSearchResult {
	need := coverage * float64(trackCount)
	for i := range bundles {
		if len(bundles[i].Files) > 0 && float64(len(bundles[i].Files)) >= need {
			return &bundles[i]
		}
	}
	for i := range bundles {
		if len(bundles[i].Files) > 0 {
			return &bundles[i]
		}
	}
	return nil
}

// resolveTrack tries each strategy in order until one resolves the track.
func (e *AlbumEngine) resolveTrack(ctx context.Context, job *TrackJob, logger *log.Logger) models.TrackResult {
	logger = shared.WithLogger(logger, "track", job.Track.ID)

	if err := job.Transition(models.TrackStatusSyncing); err != nil {
		logger.Error("invalid transition", "error", err)
		return job.Result(err)
	}

	var lastErr error
	for _, r := range e.resolvers {
		err := r.TryResolve(ctx, job)
		if err == nil {
			if err := job.Transition(models.TrackStatusSynced); err != nil {
				logger.Error("invalid transition", "error", err)
			}
			logger.Info("track synced", "via", r.Name(), "confidence", job.Confidence)
			return job.Result(nil)
		}

		lastErr = err
		if errors.Is(err, shared.ErrNotFound) {
			logger.Debug("strategy found nothing", "strategy", r.Name(), "error", err)
		} else {
			logger.Warn("strategy failed", "strategy", r.Name(), "error", err)
		}

		if ctx.Err() != nil {
			break
		}
	}

	if lastErr == nil {
		lastErr = fmt.Errorf("%w: no resolver available", shared.ErrNotFound)
	}
	if err := job.Transition(models.TrackStatusFailed); err != nil {
		logger.Error("invalid transition", "error", err)
	}
	return job.Result(lastErr)
}

// mirror copies a job's state into the status broadcaster.
func (e *AlbumEngine) mirror(job *TrackJob) {
	switch job.State {
	case models.TrackStatusSyncing:
		e.status.Set(job.Track.ID, status.Syncing)
	case models.TrackStatusDownloading:
		e.status.Set(job.Track.ID, status.Downloading)
	case models.TrackStatusSynced:
		e.status.Set(job.Track.ID, status.Synced)
	default:
		e.status.Clear(job.Track.ID)
	}
}
