package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/albumsync/internal/server"
)

// Serve runs the HTTP API until the process is interrupted.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	host := cmd.String("host")
	if host == "" {
		host = r.config.Server.Host
	}
	port := cmd.Int("port")
	if port == 0 {
		port = r.config.Server.Port
	}

	engine, err := r.albumEngine()
	if err != nil {
		return err
	}
	store, err := r.mappingStore()
	if err != nil {
		return err
	}

	return server.New(host, port, engine, store, r.logger).Run(ctx)
}
