package tasks

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/desertthunder/albumsync/internal/match"
	"github.com/desertthunder/albumsync/internal/models"
	"github.com/desertthunder/albumsync/internal/services"
	"github.com/desertthunder/albumsync/internal/shared"
)

// Resolver is one strategy for making a track playable. TryResolve returns nil once the track is
// resolved and persisted; any error hands the track to the next strategy.
type Resolver interface {
	Name() string
	TryResolve(ctx context.Context, job *TrackJob) error
}

// PrimaryStrategy pairs the track with a file of the selected bundle and asks the primary provider
// for a direct link, polling while the provider prepares the file.
type PrimaryStrategy struct {
	source  services.SourceProvider
	store   Store
	maxWait time.Duration
}

func NewPrimaryStrategy(source services.SourceProvider, store Store, maxWait time.Duration) *PrimaryStrategy {
	return &PrimaryStrategy{source: source, store: store, maxWait: maxWait}
}

func (p *PrimaryStrategy) Name() string { return "primary" }

func (p *PrimaryStrategy) TryResolve(ctx context.Context, job *TrackJob) error {
	if job.Bundle == nil || job.Album == nil {
		return fmt.Errorf("%w: no bundle selected", shared.ErrNotFound)
	}

	file, score, ok := match.FindFile(job.Bundle.Files, job.Track.Title, job.Claimed)
	if !ok {
		return fmt.Errorf("%w: no file in bundle %s matches %q", shared.ErrNotFound, job.Bundle.BundleID, job.Track.Title)
	}
	job.Claimed[file.ID] = true
	job.FileID = file.ID
	job.Confidence = score

	res, err := p.source.SelectAndResolve(ctx, job.Credential, job.Bundle.BundleID, []string{file.ID})
	if err != nil {
		return err
	}

	mapping := models.NewTrackMapping(job.Album.ID, job.Track.ID, file, score)

	switch {
	case res.Status == models.ResolveReady:
		if len(res.Streams) == 0 {
			return fmt.Errorf("%w: file %s reported ready without streams", shared.ErrProvider, file.ID)
		}
		mapping.SetDirectLink(res.Streams[0])
		if err := p.store.UpsertTrack(mapping); err != nil {
			return err
		}
	case res.Status.Pending():
		if err := p.store.UpsertTrack(mapping); err != nil {
			return err
		}
		if err := job.Transition(models.TrackStatusDownloading); err != nil {
			return err
		}

		res, err = p.source.Poll(ctx, job.Credential, job.Bundle.BundleID, file.ID, p.maxWait)
		if err != nil {
			return err
		}
		if len(res.Streams) == 0 {
			return fmt.Errorf("%w: file %s became ready without streams", shared.ErrProvider, file.ID)
		}
		if err := p.store.SetDirectLink(job.Track.ID, res.Streams[0]); err != nil {
			return err
		}
	default:
		return fmt.Errorf("%w: file %s of bundle %s is %s", shared.ErrProvider, file.ID, job.Bundle.BundleID, res.Status)
	}

	job.Source = models.SourcePrimary
	return nil
}

// FallbackStrategy looks the track up on the secondary provider and stores the best reference.
type FallbackStrategy struct {
	provider services.FallbackProvider
	store    Store
}

func NewFallbackStrategy(provider services.FallbackProvider, store Store) *FallbackStrategy {
	return &FallbackStrategy{provider: provider, store: store}
}

func (f *FallbackStrategy) Name() string { return "fallback" }

func (f *FallbackStrategy) TryResolve(ctx context.Context, job *TrackJob) error {
	query := FallbackQuery(job.Track.Title, job.ArtistName)

	ref, err := f.provider.SearchReference(ctx, query)
	if err != nil {
		return err
	}

	if _, err := f.store.UpsertFallback(job.AlbumID, job.Track.ID, *ref); err != nil {
		return err
	}

	job.Source = models.SourceFallback
	job.FileID = ""
	job.Confidence = match.Score(job.Track.Title, ref.Title)
	return nil
}

// FallbackQuery is the secondary-provider query for a track: "<title> <artist>".
func FallbackQuery(title, artist string) string {
	return strings.TrimSpace(title + " " + artist)
}

// BundleQuery is the primary-provider query for an album: "<album> <artist>".
func BundleQuery(album, artist string) string {
	return strings.TrimSpace(album + " " + artist)
}
