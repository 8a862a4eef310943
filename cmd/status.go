package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/albumsync/internal/models"
	"github.com/desertthunder/albumsync/internal/shared"
)

// TrackStatus prints which tier, if any, can play a track according to the store.
func (r *Runner) TrackStatus(ctx context.Context, cmd *cli.Command) error {
	trackID := cmd.StringArg("track-id")
	if trackID == "" {
		return fmt.Errorf("%w: track id", shared.ErrMissingArgument)
	}

	store, err := r.mappingStore()
	if err != nil {
		return err
	}

	report, err := store.Track(trackID)
	if err != nil {
		return fmt.Errorf("failed to load track: %w", err)
	}

	if cmd.Bool("json") {
		return r.writeJSON(report, cmd.Bool("pretty"))
	}

	switch report.Source() {
	case models.SourcePrimary:
		p := report.Primary
		r.writePlain("✓ %s synced via primary\n", trackID)
		r.writePlain("  File: %s\n", p.FileName)
		r.writePlain("  Link: %s\n", *p.DirectLink)
		r.writePlain("  Confidence: %.2f\n", p.Confidence)
	case models.SourceFallback:
		f := report.Fallback
		r.writePlain("✓ %s synced via fallback\n", trackID)
		r.writePlain("  Reference: %s (%s)\n", f.Title, f.ExternalReferenceID)
		if f.DurationSeconds > 0 {
			r.writePlain("  Duration: %s\n", shared.FormatDuration(f.DurationSeconds))
		}
	case models.SourceNone:
		if report.Primary != nil {
			r.writePlain("… %s matched %s but has no direct link yet\n", trackID, report.Primary.FileName)
		} else {
			r.writePlain("✗ %s is not synced\n", trackID)
		}
	}
	return nil
}
