package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/albumsync/internal/poll"
	"github.com/desertthunder/albumsync/internal/repositories"
	"github.com/desertthunder/albumsync/internal/services"
	"github.com/desertthunder/albumsync/internal/shared"
	"github.com/desertthunder/albumsync/internal/status"
	"github.com/desertthunder/albumsync/internal/tasks"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	configPath string
	source     services.SourceProvider
	fallback   services.FallbackProvider
	catalog    services.Catalog
	httpClient *http.Client
	clock      poll.Clock
	status     *status.Broadcaster
	logger     *log.Logger
	output     io.Writer
	tuiLog     string
	tuiOptions []tea.ProgramOption

	mu     sync.Mutex
	db     *sql.DB
	ownDB  bool
	store  *repositories.MappingStore
	engine *tasks.AlbumEngine
}

// RunnerOpts contains configuration options for creating a Runner.
//
// Nil providers are built from Config. A nil DB is opened from Config.Database on first use.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	Source     services.SourceProvider
	Fallback   services.FallbackProvider
	Catalog    services.Catalog
	DB         *sql.DB
	HTTPClient *http.Client
	Clock      poll.Clock
	Logger     *log.Logger
	Output     io.Writer
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.Clock == nil {
		opts.Clock = poll.System
	}

	if opts.Source == nil {
		debrid := services.NewDebridService(opts.Config.Credentials.Debrid.BaseURL, opts.HTTPClient)
		debrid.SetClock(opts.Clock)
		debrid.SetPollPolicy(poll.Policy{
			Interval:   opts.Config.Sync.PollInterval,
			Deadline:   opts.Config.Sync.PollTimeout,
			StallAfter: opts.Config.Sync.StallTimeout,
		})
		opts.Source = debrid
	}
	if opts.Fallback == nil && opts.Config.Sync.Fallback {
		opts.Fallback = services.NewYouTubeService(opts.Config.Credentials.YouTube.ProxyURL)
	}

	r := &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		source:     opts.Source,
		fallback:   opts.Fallback,
		catalog:    opts.Catalog,
		httpClient: opts.HTTPClient,
		clock:      opts.Clock,
		status:     status.New(),
		logger:     opts.Logger,
		output:     opts.Output,
		tuiLog:     tuiLogPath,
	}
	if opts.DB != nil {
		r.db = opts.DB
		r.store = repositories.NewMappingStore(opts.DB)
	}
	return r
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, syncCommand, mappingCommand, runsCommand, searchCommand, catalogCommand, statusCommand, serveCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// SetLogger replaces the logger used by commands and by engines built afterwards.
func (r *Runner) SetLogger(logger *log.Logger) {
	r.logger = logger
}

// Close releases the database if the runner opened it.
func (r *Runner) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.db == nil || !r.ownDB {
		return nil
	}
	err := r.db.Close()
	r.db, r.store, r.engine = nil, nil, nil
	return err
}

// mappingStore opens the configured database on first use and applies pending migrations.
func (r *Runner) mappingStore() (*repositories.MappingStore, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.store != nil {
		return r.store, nil
	}

	db, err := shared.NewDatabase(r.config.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	shared.ConfigureDatabase(db, r.config.Database.MaxOpenConns, r.config.Database.MaxIdleConns)

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	r.db, r.ownDB = db, true
	r.store = repositories.NewMappingStore(db)
	return r.store, nil
}

// albumEngine builds the sync engine from the sync config once and reuses it, so the
// per-album run guard and the token bucket are shared by every run of the process.
func (r *Runner) albumEngine() (*tasks.AlbumEngine, error) {
	store, err := r.mappingStore()
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.engine != nil {
		return r.engine, nil
	}

	sc := r.config.Sync
	scheduler, err := tasks.NewScheduler(sc.Scheduler, sc.TrackInterval, r.clock)
	if err != nil {
		return nil, err
	}

	r.engine = tasks.NewAlbumEngine(r.source, r.fallback, store, tasks.Options{
		Logger:          r.logger,
		Status:          r.status,
		Scheduler:       scheduler,
		Clock:           r.clock,
		Credential:      r.config.Credentials.Debrid.APIToken,
		BundleCoverage:  sc.BundleCoverage,
		PollTimeout:     sc.PollTimeout,
		DisableFallback: !sc.Fallback,
	})
	return r.engine, nil
}

// catalogService returns the injected catalog or a Spotify client built from the credentials.
func (r *Runner) catalogService(ctx context.Context) (services.Catalog, error) {
	if r.catalog != nil {
		return r.catalog, nil
	}

	creds := r.config.Credentials.Spotify
	svc, err := services.NewSpotifyService(ctx, creds.ClientID, creds.ClientSecret)
	if err != nil {
		return nil, err
	}
	r.catalog = svc
	return svc, nil
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	output, err := shared.MarshalJSON(data, pretty)
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}
