package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/albumsync/internal/shared"
)

// CatalogAlbum fetches an album's canonical track list, optionally saving it as a track file.
func (r *Runner) CatalogAlbum(ctx context.Context, cmd *cli.Command) error {
	albumID := cmd.StringArg("id")
	if albumID == "" {
		return fmt.Errorf("%w: album id", shared.ErrMissingArgument)
	}

	catalog, err := r.catalogService(ctx)
	if err != nil {
		return err
	}

	r.logger.Info("fetching catalog album", "album", albumID)

	album, err := catalog.Album(ctx, albumID)
	if err != nil {
		return fmt.Errorf("failed to fetch album: %w", err)
	}

	if output := cmd.String("output"); output != "" {
		tf := &trackFile{AlbumID: album.ID, Title: album.Title, Artist: album.Artist, Tracks: album.Tracks}
		if err := writeTrackFile(output, tf); err != nil {
			return err
		}
		r.logger.Info("track file saved", "path", output, "tracks", len(album.Tracks))
		r.writePlain("✓ Saved %d tracks to %s\n", len(album.Tracks), output)
		return nil
	}

	if cmd.Bool("json") {
		return r.writeJSON(album, cmd.Bool("pretty"))
	}

	r.writePlainHeader(fmt.Sprintf("%s by %s", album.Title, album.Artist))
	for _, t := range album.Tracks {
		r.writePlain("%2d. %s\n", t.Position, t.Title)
	}
	r.writePlainln("Album ID: %s", album.ID)
	return nil
}
