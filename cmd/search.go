package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/albumsync/internal/match"
	"github.com/desertthunder/albumsync/internal/models"
	"github.com/desertthunder/albumsync/internal/services"
	"github.com/desertthunder/albumsync/internal/shared"
	"github.com/desertthunder/albumsync/internal/tasks"
)

// bundlePreview is the JSON shape of 'search bundles --track-file'.
type bundlePreview struct {
	Bundles []models.BundleSearchResult `json:"bundles"`
	Chosen  string                      `json:"chosen,omitempty"`
	Pairing []models.TrackMatch         `json:"pairing"`
}

// providerError names the config key to check when a provider could not be reached.
func providerError(err error, key string) error {
	if services.IsUnavailable(err) {
		return fmt.Errorf("%w (check %s)", err, key)
	}
	return err
}

// SearchBundles queries the primary provider and marks the bundle a sync would pick. With
// --track-file it also previews how the album's tracks pair with that bundle's files.
func (r *Runner) SearchBundles(ctx context.Context, cmd *cli.Command) error {
	query := cmd.StringArg("query")
	if query == "" {
		return fmt.Errorf("%w: query", shared.ErrMissingArgument)
	}

	credential := cmd.String("credential")
	if credential == "" {
		credential = r.config.Credentials.Debrid.APIToken
	}

	r.logger.Info("searching bundles", "provider", r.source.Name(), "query", query)

	var tracks []models.CanonicalTrack
	trackCount := cmd.Int("tracks")
	if path := cmd.String("track-file"); path != "" {
		tf, err := loadTrackFile(path)
		if err != nil {
			return err
		}
		tracks, trackCount = tf.Tracks, len(tf.Tracks)
	}

	bundles, err := r.source.Search(ctx, credential, query)
	if err != nil {
		return providerError(err, "credentials.debrid.base_url")
	}

	chosen := tasks.ChooseBundle(bundles, trackCount, r.config.Sync.BundleCoverage)
	var pairing []models.TrackMatch
	if chosen != nil && len(tracks) > 0 {
		pairing = match.PairAll(tracks, chosen.Files)
	}

	if cmd.Bool("json") {
		if tracks == nil {
			return r.writeJSON(bundles, cmd.Bool("pretty"))
		}
		preview := bundlePreview{Bundles: bundles, Pairing: pairing}
		if chosen != nil {
			preview.Chosen = chosen.BundleID
		}
		return r.writeJSON(preview, cmd.Bool("pretty"))
	}

	if len(bundles) == 0 {
		r.writePlain("No bundles found for %q\n", query)
		return nil
	}

	r.writePlain("Found %d bundles:\n\n", len(bundles))
	for i, b := range bundles {
		mark := " "
		if chosen != nil && chosen.BundleID == b.BundleID {
			mark = "*"
		}
		r.writePlain("%s %d. %s\n", mark, i+1, b.Title)
		r.writePlain("     ID: %s  Files: %d  Size: %s  Source: %s\n", b.BundleID, len(b.Files), b.SizeLabel, b.SourceLabel)
	}

	if pairing != nil {
		r.printPairing(chosen, tracks, pairing)
	}
	return nil
}

func (r *Runner) printPairing(bundle *models.BundleSearchResult, tracks []models.CanonicalTrack, pairing []models.TrackMatch) {
	names := make(map[string]string, len(bundle.Files))
	for _, f := range bundle.Files {
		names[f.ID] = f.Filename
	}

	paired := 0
	r.writePlainln("Pairing with %s:", bundle.Title)
	for i, m := range pairing {
		if m.FileID == "" {
			r.writePlain("  ✗ %2d. %s\n", tracks[i].Position, tracks[i].Title)
			continue
		}
		paired++
		r.writePlain("  ✓ %2d. %s → %s (%.2f)\n", tracks[i].Position, tracks[i].Title, names[m.FileID], m.Confidence)
	}
	r.writePlain("\nPaired: %d/%d\n", paired, len(pairing))
}

// SearchFallback queries the fallback provider for the reference a sync would store.
func (r *Runner) SearchFallback(ctx context.Context, cmd *cli.Command) error {
	if r.fallback == nil {
		return fmt.Errorf("%w: fallback provider disabled", shared.ErrServiceUnavailable)
	}

	query := cmd.StringArg("query")
	if query == "" {
		return fmt.Errorf("%w: query", shared.ErrMissingArgument)
	}

	r.logger.Info("searching fallback", "provider", r.fallback.Name(), "query", query)

	ref, err := r.fallback.SearchReference(ctx, query)
	if err != nil {
		return providerError(err, "credentials.youtube.proxy_url")
	}

	if cmd.Bool("json") {
		return r.writeJSON(ref, cmd.Bool("pretty"))
	}

	r.writePlain("Found reference:\n\n")
	r.writePlain("Title: %s\n", ref.Title)
	if ref.UploaderLabel != "" {
		r.writePlain("Uploader: %s\n", ref.UploaderLabel)
	}
	r.writePlain("ID: %s\n", ref.ExternalID)
	if ref.DurationSeconds > 0 {
		r.writePlain("Duration: %s\n", shared.FormatDuration(ref.DurationSeconds))
	}
	return nil
}
