package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/sync/errgroup"

	"github.com/desertthunder/albumsync/internal/formatter"
	"github.com/desertthunder/albumsync/internal/models"
	"github.com/desertthunder/albumsync/internal/shared"
	"github.com/desertthunder/albumsync/internal/tasks"
	"github.com/desertthunder/albumsync/internal/ui"
)

const tuiLogPath = "./tmp/albumsync-tui.log"

// syncTUI runs the sync alongside the status view. Quitting the view cancels the sync; a finished
// sync leaves the view open until the user quits. A run that fails its preconditions closes the view
// and returns the error.
func (r *Runner) syncTUI(ctx context.Context, req tasks.AlbumRequest) error {
	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger(r.tuiLog)
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	r.SetLogger(fileLogger)

	engine, err := r.albumEngine()
	if err != nil {
		return err
	}

	events, unsubscribe := engine.Status().Subscribe(256)
	defer unsubscribe()
	progressCh := make(chan tasks.ProgressUpdate, 256)

	model := ui.NewModel(albumLabel(req), req.Tracks, events, progressCh)
	p := tea.NewProgram(model, r.tuiOptions...)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		summary *models.RunSummary
		syncErr error
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s, err := engine.SyncAlbum(gctx, progressCh, req)
		close(progressCh)
		summary, syncErr = s, err
		p.Send(ui.SyncComplete(s, err))
		if err != nil {
			p.Quit()
		}
		return nil
	})
	g.Go(func() error {
		defer cancel()
		if _, err := p.Run(); err != nil {
			return fmt.Errorf("error running TUI: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	if syncErr != nil {
		return syncErr
	}

	if summary != nil {
		_, err = r.output.Write(formatter.SummaryToText(summary))
		return err
	}
	return nil
}
