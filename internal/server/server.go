package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/desertthunder/albumsync/internal/models"
	"github.com/desertthunder/albumsync/internal/repositories"
	"github.com/desertthunder/albumsync/internal/shared"
	"github.com/desertthunder/albumsync/internal/status"
	"github.com/desertthunder/albumsync/internal/tasks"
)

const shutdownTimeout = 5 * time.Second

// Middleware wraps an http.Handler and returns a new http.Handler with additional behavior.
type Middleware func(http.Handler) http.Handler

// Handler is an http.Handler that knows which path patterns it serves.
type Handler interface {
	http.Handler      // ServeHTTP handles the HTTP request and writes the response
	Routes() []string // Routes returns the path patterns this handler serves
}

// Router defines the interface for HTTP routing and middleware management.
type Router interface {
	Use(middleware ...Middleware)                     // Use adds middleware to the router's middleware stack
	Handle(method, path string, handler http.Handler) // Handle registers a handler for the specified method and path
	Handler(handler Handler)                          // Handler registers a custom Handler implementation
	ServeHTTP(w http.ResponseWriter, r *http.Request) // ServeHTTP implements http.Handler for the entire router
}

// Syncer runs album syncs and answers live track state. [tasks.AlbumEngine] implements it.
type Syncer interface {
	SyncAlbum(ctx context.Context, progress chan<- tasks.ProgressUpdate, req tasks.AlbumRequest) (*models.RunSummary, error)
	Running(albumID string) bool
	Status() *status.Broadcaster
	IsSynced(trackID string) bool
	IsSyncing(trackID string) bool
	IsDownloading(trackID string) bool
}

// Reports reads stored mappings. [repositories.MappingStore] implements it.
type Reports interface {
	AlbumReport(albumID string) (*repositories.AlbumReport, error)
	Track(trackID string) (*repositories.TrackReport, error)
}

// Server exposes an [AlbumAPI] over HTTP.
type Server struct {
	Addr   string
	api    *AlbumAPI
	router *BasicRouter
	logger *log.Logger
}

// New builds a server listening on host:port with logging and recovery middleware.
func New(host string, port int, engine Syncer, store Reports, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	logger = shared.WithLogger(logger, "component", "server")

	api := NewAlbumAPI(engine, store, logger)
	router := NewBasicRouter()
	router.Use(Recover(logger), Logging(logger))
	api.Register(router)

	return &Server{
		Addr:   net.JoinHostPort(host, strconv.Itoa(port)),
		api:    api,
		router: router,
		logger: logger,
	}
}

// Handler returns the root handler, for tests and embedding.
func (s *Server) Handler() http.Handler { return s.router }

// Run serves until ctx is cancelled, then shuts down gracefully and waits for background syncs.
func (s *Server) Run(ctx context.Context) error {
	s.api.WithContext(ctx)
	srv := &http.Server{
		Addr:              s.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("listening", "addr", s.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown failed: %w", err)
		}
		s.api.Wait()
		s.logger.Info("stopped")
		return nil
	})

	return g.Wait()
}
