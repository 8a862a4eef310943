package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/albumsync/internal/formatter"
)

// Runs lists recorded sync runs.
func (r *Runner) Runs(ctx context.Context, cmd *cli.Command) error {
	store, err := r.mappingStore()
	if err != nil {
		return err
	}

	criteria := map[string]any{"limit": cmd.Int("limit")}
	if v := cmd.String("album-id"); v != "" {
		criteria["album_id"] = v
	}
	if v := cmd.String("status"); v != "" {
		criteria["status"] = v
	}

	runs, err := store.Runs.List(criteria)
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}

	if cmd.Bool("json") {
		return r.writeJSON(runs, cmd.Bool("pretty"))
	}
	_, err = r.output.Write(formatter.RunsToText(runs))
	return err
}
