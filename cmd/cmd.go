// submodule cmd contains command definitions
package main

import (
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/albumsync/internal/formatter"
)

func configFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to configuration file",
		Value:   "config.toml",
	}
}

func jsonFlags(prettyDefault bool) []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{Name: "json", Usage: "Output raw JSON"},
		&cli.BoolFlag{Name: "pretty", Usage: "Pretty-print JSON output", Value: prettyDefault},
	}
}

// setupCommand initializes configuration and the database
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Initialize configuration and database",
		Commands: []*cli.Command{
			{
				Name:   "config",
				Usage:  "Write a config file from the built-in template",
				Flags:  []cli.Flag{configFlag()},
				Action: r.SetupConfig,
			},
			{
				Name:   "database",
				Usage:  "Create the database and run migrations",
				Flags:  []cli.Flag{configFlag()},
				Action: r.SetupDatabase,
			},
			{
				Name:   "status",
				Usage:  "Show applied and pending migrations",
				Flags:  []cli.Flag{configFlag()},
				Action: r.SetupStatus,
			},
			{
				Name:   "rollback",
				Usage:  "Roll back the most recent migration",
				Flags:  []cli.Flag{configFlag()},
				Action: r.SetupRollback,
			},
		},
	}
}

// syncCommand runs one album sync
func syncCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "sync",
		Usage: "Resolve every track of an album to a playable source",
		Flags: append([]cli.Flag{
			&cli.StringFlag{Name: "album-id", Aliases: []string{"a"}, Usage: "Album ID (overrides the track file)"},
			&cli.StringFlag{Name: "title", Usage: "Album title used for bundle search"},
			&cli.StringFlag{Name: "artist", Usage: "Artist name used for bundle and fallback search"},
			&cli.StringFlag{Name: "tracks", Aliases: []string{"t"}, Usage: "TOML file with the album's [[tracks]]"},
			&cli.StringFlag{Name: "spotify-album", Usage: "Fetch the track list from a Spotify album ID"},
			&cli.StringFlag{Name: "credential", Usage: "Primary provider token (defaults to credentials.debrid.api_token)"},
			&cli.BoolFlag{Name: "force", Aliases: []string{"f"}, Usage: "Ignore stored links and replace the album mapping"},
			&cli.BoolFlag{Name: "tui", Usage: "Show the interactive status view"},
		}, jsonFlags(true)...),
		Action: r.Sync,
	}
}

// mappingCommand inspects and manages stored mappings
func mappingCommand(r *Runner) *cli.Command {
	formats := strings.Join(formatter.Formats, ", ")
	return &cli.Command{
		Name:    "mapping",
		Aliases: []string{"map"},
		Usage:   "Inspect and manage stored album mappings",
		Commands: []*cli.Command{
			{
				Name:  "show",
				Usage: "Print the mappings of an album",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "album-id", Aliases: []string{"a"}, Usage: "Album ID", Required: true},
					&cli.StringFlag{Name: "format", Aliases: []string{"F"}, Usage: "Output format (" + formats + ")", Value: "txt"},
				},
				Action: r.MappingShow,
			},
			{
				Name:  "clear",
				Usage: "Delete the album mapping, its track mappings and its fallbacks",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "album-id", Aliases: []string{"a"}, Usage: "Album ID", Required: true},
				},
				Action: r.MappingClear,
			},
			{
				Name:  "export",
				Usage: "Write mapping reports to disk",
				Flags: []cli.Flag{
					&cli.StringSliceFlag{Name: "album-id", Aliases: []string{"a"}, Usage: "Album ID (repeatable)"},
					&cli.BoolFlag{Name: "all", Usage: "Export every mapped album"},
					&cli.StringFlag{Name: "format", Aliases: []string{"F"}, Usage: "Report format (" + formats + ")", Value: "markdown"},
					&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "Output directory", Value: "./exports"},
					&cli.IntFlag{Name: "workers", Aliases: []string{"w"}, Usage: "Concurrent export workers", Value: 4},
				},
				Action: r.MappingExport,
			},
		},
	}
}

// runsCommand lists sync run history
func runsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "runs",
		Usage: "List recorded sync runs, newest first",
		Flags: append([]cli.Flag{
			&cli.StringFlag{Name: "album-id", Aliases: []string{"a"}, Usage: "Only runs of this album"},
			&cli.StringFlag{Name: "status", Aliases: []string{"s"}, Usage: "Only runs with this status (running, complete, partial, failed)"},
			&cli.IntFlag{Name: "limit", Aliases: []string{"n"}, Usage: "Maximum runs to list", Value: 20},
		}, jsonFlags(true)...),
		Action: r.Runs,
	}
}

// searchCommand queries providers directly, for debugging matches
func searchCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "search",
		Usage: "Query providers directly",
		Commands: []*cli.Command{
			{
				Name:      "bundles",
				Usage:     "Search the primary provider for bundles",
				Arguments: []cli.Argument{&cli.StringArg{Name: "query"}},
				Flags: append([]cli.Flag{
					&cli.StringFlag{Name: "credential", Usage: "Primary provider token (defaults to credentials.debrid.api_token)"},
					&cli.IntFlag{Name: "tracks", Usage: "Album track count used to mark the preferred bundle"},
					&cli.StringFlag{Name: "track-file", Usage: "TOML track file; previews the track to file pairing of the preferred bundle"},
				}, jsonFlags(true)...),
				Action: r.SearchBundles,
			},
			{
				Name:      "fallback",
				Usage:     "Search the fallback provider for one track",
				Arguments: []cli.Argument{&cli.StringArg{Name: "query"}},
				Flags:     jsonFlags(true),
				Action:    r.SearchFallback,
			},
		},
	}
}

// catalogCommand reads album track lists from the catalog
func catalogCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "catalog",
		Usage: "Read album track lists from Spotify",
		Commands: []*cli.Command{
			{
				Name:      "album",
				Usage:     "Print an album's track list or save it as a track file",
				Arguments: []cli.Argument{&cli.StringArg{Name: "id"}},
				Flags: append([]cli.Flag{
					&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "Write a TOML track file usable with 'sync --tracks'"},
				}, jsonFlags(true)...),
				Action: r.CatalogAlbum,
			},
		},
	}
}

// statusCommand reports what the store knows about one track
func statusCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "status",
		Usage:     "Show the stored state of a track",
		Arguments: []cli.Argument{&cli.StringArg{Name: "track-id"}},
		Flags:     jsonFlags(true),
		Action:    r.TrackStatus,
	}
}

// serveCommand starts the HTTP API
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the sync API over HTTP",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "host", Usage: "Listen host (defaults to server.host)"},
			&cli.IntFlag{Name: "port", Aliases: []string{"p"}, Usage: "Listen port (defaults to server.port)"},
		},
		Action: r.Serve,
	}
}
