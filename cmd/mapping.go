package main

import (
	"context"
	"fmt"
	"slices"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/albumsync/internal/formatter"
	"github.com/desertthunder/albumsync/internal/shared"
	"github.com/desertthunder/albumsync/internal/tasks"
)

// MappingShow renders the stored mappings of one album.
func (r *Runner) MappingShow(ctx context.Context, cmd *cli.Command) error {
	albumID := cmd.String("album-id")

	store, err := r.mappingStore()
	if err != nil {
		return err
	}

	report, err := store.AlbumReport(albumID)
	if err != nil {
		return fmt.Errorf("failed to load mappings: %w", err)
	}
	if report.Empty() {
		return fmt.Errorf("%w: album %s", shared.ErrMappingNotFound, albumID)
	}

	data, err := formatter.RenderReport(report, cmd.String("format"))
	if err != nil {
		return err
	}
	_, err = r.output.Write(data)
	return err
}

// MappingClear deletes an album's mappings so the next sync starts over.
func (r *Runner) MappingClear(ctx context.Context, cmd *cli.Command) error {
	albumID := cmd.String("album-id")

	store, err := r.mappingStore()
	if err != nil {
		return err
	}

	deleted, err := store.ClearAlbum(albumID)
	if err != nil {
		return fmt.Errorf("failed to clear mappings: %w", err)
	}
	if !deleted {
		return fmt.Errorf("%w: album %s", shared.ErrMappingNotFound, albumID)
	}

	r.logger.Info("mappings cleared", "album", albumID)
	r.writePlain("✓ Cleared mappings for %s\n", albumID)
	return nil
}

// MappingExport writes reports for the given albums, or every mapped album with --all.
func (r *Runner) MappingExport(ctx context.Context, cmd *cli.Command) error {
	format := cmd.String("format")
	if format == "md" {
		format = "markdown"
	}
	if !slices.Contains(formatter.Formats, format) {
		return fmt.Errorf("%w: unknown format %q", shared.ErrInvalidArgument, format)
	}

	store, err := r.mappingStore()
	if err != nil {
		return err
	}

	albumIDs := cmd.StringSlice("album-id")
	if cmd.Bool("all") {
		albums, err := store.Albums.List()
		if err != nil {
			return fmt.Errorf("failed to list albums: %w", err)
		}
		for _, a := range albums {
			if !slices.Contains(albumIDs, a.AlbumID) {
				albumIDs = append(albumIDs, a.AlbumID)
			}
		}
	}
	if len(albumIDs) == 0 {
		return fmt.Errorf("%w: pass --album-id or --all", shared.ErrMissingArgument)
	}

	progressCh := make(chan tasks.ProgressUpdate, len(albumIDs)*2)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for update := range progressCh {
			r.writePlain("%s\n", update.Message)
		}
	}()

	result, err := tasks.BulkExport(ctx, progressCh, store, albumIDs, tasks.BulkExportOpts{
		Format:     format,
		OutputDir:  cmd.String("output"),
		NumWorkers: cmd.Int("workers"),
	})
	close(progressCh)
	<-done

	if err != nil {
		return err
	}

	r.writePlain("\n")
	r.writePlainHeader("Export Complete")
	r.writePlain("Exported: %d/%d albums\n", result.SuccessfulExports, result.TotalAlbums)
	r.writePlain("Output: %s\n", result.OutputDirectory)
	r.writePlain("Manifest: %s\n", result.ManifestPath)
	if result.FailedExports > 0 {
		r.writePlain("\nFailed:\n")
		for _, res := range result.Results {
			if !res.Success {
				r.writePlain("  - %s: %s\n", res.AlbumID, res.Error)
			}
		}
	}
	return nil
}
