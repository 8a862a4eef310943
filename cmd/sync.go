package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/albumsync/internal/formatter"
	"github.com/desertthunder/albumsync/internal/models"
	"github.com/desertthunder/albumsync/internal/shared"
	"github.com/desertthunder/albumsync/internal/tasks"
)

// trackFile is the TOML track list accepted by 'sync --tracks'.
type trackFile struct {
	AlbumID string                  `toml:"album_id"`
	Title   string                  `toml:"title"`
	Artist  string                  `toml:"artist"`
	Tracks  []models.CanonicalTrack `toml:"tracks"`
}

// loadTrackFile reads and validates a track file. Missing positions follow file order.
func loadTrackFile(path string) (*trackFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read track file: %w", err)
	}

	var tf trackFile
	if err := toml.Unmarshal(data, &tf); err != nil {
		return nil, fmt.Errorf("%w: failed to parse track file: %v", shared.ErrInvalidInput, err)
	}

	seen := make(map[string]bool, len(tf.Tracks))
	for i := range tf.Tracks {
		tr := &tf.Tracks[i]
		tr.ID = strings.TrimSpace(tr.ID)
		if tr.ID == "" || strings.TrimSpace(tr.Title) == "" {
			return nil, fmt.Errorf("%w: track %d needs an id and a title", shared.ErrInvalidInput, i+1)
		}
		if seen[tr.ID] {
			return nil, fmt.Errorf("%w: duplicate track id %q", shared.ErrInvalidInput, tr.ID)
		}
		seen[tr.ID] = true

		if tr.Position == 0 {
			tr.Position = i + 1
		}
		if tr.AlbumID == "" {
			tr.AlbumID = tf.AlbumID
		}
	}

	return &tf, nil
}

// writeTrackFile saves tf as TOML.
func writeTrackFile(path string, tf *trackFile) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create track file: %w", err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(tf); err != nil {
		return fmt.Errorf("failed to write track file: %w", err)
	}
	return nil
}

// albumRequest builds the run input from --spotify-album or --tracks, then applies overrides.
func (r *Runner) albumRequest(ctx context.Context, cmd *cli.Command) (tasks.AlbumRequest, error) {
	req := tasks.AlbumRequest{
		Credential: cmd.String("credential"),
		Force:      cmd.Bool("force"),
	}

	switch {
	case cmd.String("spotify-album") != "":
		catalog, err := r.catalogService(ctx)
		if err != nil {
			return req, err
		}
		album, err := catalog.Album(ctx, cmd.String("spotify-album"))
		if err != nil {
			return req, fmt.Errorf("failed to fetch album: %w", err)
		}
		req.AlbumID, req.AlbumTitle, req.ArtistName, req.Tracks = album.ID, album.Title, album.Artist, album.Tracks

	case cmd.String("tracks") != "":
		tf, err := loadTrackFile(cmd.String("tracks"))
		if err != nil {
			return req, err
		}
		req.AlbumID, req.AlbumTitle, req.ArtistName, req.Tracks = tf.AlbumID, tf.Title, tf.Artist, tf.Tracks

	default:
		return req, fmt.Errorf("%w: either --tracks or --spotify-album must be provided", shared.ErrMissingArgument)
	}

	if v := cmd.String("album-id"); v != "" {
		req.AlbumID = v
	}
	if v := cmd.String("title"); v != "" {
		req.AlbumTitle = v
	}
	if v := cmd.String("artist"); v != "" {
		req.ArtistName = v
	}
	return req, nil
}

// Sync resolves every track of one album and prints the run summary.
func (r *Runner) Sync(ctx context.Context, cmd *cli.Command) error {
	req, err := r.albumRequest(ctx, cmd)
	if err != nil {
		return err
	}

	if cmd.Bool("tui") {
		return r.syncTUI(ctx, req)
	}

	engine, err := r.albumEngine()
	if err != nil {
		return err
	}

	useJSON := cmd.Bool("json")
	if !useJSON {
		r.writePlain("Syncing %s (%d tracks)\n\n", albumLabel(req), len(req.Tracks))
	}

	progressCh := make(chan tasks.ProgressUpdate, 64)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for update := range progressCh {
			if !useJSON {
				r.printProgress(update)
			}
		}
	}()

	summary, err := engine.SyncAlbum(ctx, progressCh, req)
	close(progressCh)
	<-done

	if err != nil {
		return err
	}

	if useJSON {
		return r.writeJSON(summary, cmd.Bool("pretty"))
	}

	r.writePlain("\n")
	r.writePlainHeader("Sync Complete")
	_, err = r.output.Write(formatter.SummaryToText(summary))
	return err
}

func (r *Runner) printProgress(update tasks.ProgressUpdate) {
	switch update.Phase {
	case tasks.LookupMappings:
		r.writePlain("📥 %s\n", update.Message)
	case tasks.SearchBundles, tasks.SelectBundle:
		r.writePlain("🔍 %s\n", update.Message)
	case tasks.SyncTrack:
		if _, finished := update.Data.(models.TrackResult); finished {
			r.writePlain("   %s\n", update.Message)
		}
	}
}

func albumLabel(req tasks.AlbumRequest) string {
	switch {
	case req.AlbumTitle != "" && req.ArtistName != "":
		return fmt.Sprintf("%s by %s", req.AlbumTitle, req.ArtistName)
	case req.AlbumTitle != "":
		return req.AlbumTitle
	default:
		return req.AlbumID
	}
}
