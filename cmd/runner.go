package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spindb/internal/metrics"
	"github.com/desertthunder/spindb/internal/repositories"
	"github.com/desertthunder/spindb/internal/services"
	"github.com/desertthunder/spindb/internal/shared"
	"github.com/desertthunder/spindb/internal/tasks"
	"github.com/desertthunder/spindb/internal/ui"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
//
// Dependencies left nil are built from the loaded configuration the first time a command needs them.
type Runner struct {
	config      *shared.Config
	oauth       services.OAuthService
	tokens      services.TokenStore
	store       repositories.Store
	metrics     *metrics.Metrics
	logger      *log.Logger
	output      io.Writer
	palette     *ui.Palette
	openBrowser func(url string) error
	closers     []io.Closer
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config      *shared.Config
	OAuth       services.OAuthService
	Tokens      services.TokenStore
	Store       repositories.Store
	Metrics     *metrics.Metrics
	Logger      *log.Logger
	Output      io.Writer
	OpenBrowser func(url string) error
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.New()
	}
	if opts.OpenBrowser == nil {
		opts.OpenBrowser = shared.OpenBrowser
	}

	return &Runner{
		config:      opts.Config,
		oauth:       opts.OAuth,
		tokens:      opts.Tokens,
		store:       opts.Store,
		metrics:     opts.Metrics,
		logger:      opts.Logger,
		output:      opts.Output,
		palette:     ui.Default,
		openBrowser: opts.OpenBrowser,
	}
}

// App returns the root command.
func (r *Runner) App() *cli.Command {
	return &cli.Command{
		Name:    "spindb",
		Usage:   "Aggregate dated Spotify spin playlists into SQLite reports",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "config.toml",
				Sources: cli.EnvVars("SPINDB_CONFIG"),
			},
		},
		Before:   r.Configure,
		After:    r.Close,
		Commands: r.register(),
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		serveCommand, setupCommand, authCommand, refreshCommand, reportCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// Configure loads the configuration named by --config before any command runs.
//
// A missing file falls back to the embedded defaults; environment overrides apply either way.
// A configuration supplied through [RunnerOpts] is kept unless --config was given explicitly.
func (r *Runner) Configure(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if r.config == nil || cmd.IsSet("config") {
		config, err := loadConfig(cmd.String("config"))
		if err != nil {
			return ctx, err
		}
		r.config = config
	}

	shared.SetLogLevel(r.logger, r.config.Log.Level)
	return ctx, nil
}

func loadConfig(path string) (*shared.Config, error) {
	if _, err := os.Stat(path); err == nil {
		return shared.LoadConfig(path)
	}

	config := shared.DefaultConfig()
	if err := shared.ApplyEnv(config); err != nil {
		return nil, err
	}
	return config, nil
}

// Close releases resources opened by commands.
func (r *Runner) Close(ctx context.Context, cmd *cli.Command) error {
	var errs []error
	for i := len(r.closers) - 1; i >= 0; i-- {
		if err := r.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	r.closers = nil
	return errors.Join(errs...)
}

// tokenStore returns the configured token store, creating the file-backed store on first use.
func (r *Runner) tokenStore() services.TokenStore {
	if r.tokens == nil {
		r.tokens = services.NewFileTokenStore(r.config.Credentials.Spotify.TokenPath)
	}
	return r.tokens
}

// oauthService returns the Spotify service built from the credentials in config.
func (r *Runner) oauthService() (services.OAuthService, error) {
	if r.oauth != nil {
		return r.oauth, nil
	}

	if err := r.config.Validate(); err != nil {
		return nil, err
	}

	svc, err := services.NewSpotifyService(
		r.config.Credentials.Spotify,
		services.WithPageSize(r.config.Refresh.PageSize),
		services.WithRateLimit(r.config.Refresh.RateLimit),
		services.WithTokenStore(r.tokenStore()),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create Spotify service: %w", err)
	}

	r.oauth = svc
	return svc, nil
}

// openStore opens the configured database and wraps it in the report cache.
func (r *Runner) openStore() (repositories.Store, error) {
	if r.store != nil {
		return r.store, nil
	}

	r.logger.Debug("opening database", "path", r.config.Database.Path)
	db, err := shared.OpenDatabase(r.config.Database)
	if err != nil {
		return nil, err
	}
	r.closers = append(r.closers, db)

	cache, err := repositories.NewReportCache(repositories.NewSQLStore(db), r.config.Cache.Size, r.metrics)
	if err != nil {
		return nil, err
	}

	r.store = cache
	return cache, nil
}

// engine builds a refresh engine writing to store.
func (r *Runner) engine(store repositories.Store) *tasks.RefreshEngine {
	mode := tasks.DedupByID
	if r.config.Refresh.LegacyDedup {
		mode = tasks.DedupLegacy
	}

	return tasks.NewRefreshEngine(tasks.RefreshOpts{
		Store:    store,
		Recorder: r.metrics,
		Logger:   r.logger,
		Mode:     mode,
	})
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
