package main

import (
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/subfeed/internal/feed"
	"github.com/desertthunder/subfeed/internal/formatter"
	"github.com/desertthunder/subfeed/internal/models"
	"github.com/desertthunder/subfeed/internal/repositories"
	"github.com/desertthunder/subfeed/internal/services"
	"github.com/desertthunder/subfeed/internal/session"
	"github.com/desertthunder/subfeed/internal/shared"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	api        *services.APIService
	ownsAPI    bool
	store      models.CredentialStore
	session    *session.Manager
	feed       *feed.Synchronizer
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config *shared.Config
	// API defaults to a service built from Config.
	API *services.APIService
	// Store defaults to the file store named in Config; see [openStore] for the SQLite one.
	Store      models.CredentialStore
	HTTPClient *http.Client
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
		opts.HTTPClient = &http.Client{Timeout: opts.Config.Timeout()}
	}
	if opts.Store == nil {
		opts.Store = repositories.NewFileCredentialStore(shared.ExpandPath(opts.Config.Credentials.FilePath))
	}

	r := &Runner{
		config:     opts.Config,
		api:        opts.API,
		ownsAPI:    opts.API == nil,
		store:      opts.Store,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
	}
	r.wire()
	return r
}

// wire builds the session manager and feed synchronizer on top of the API and store.
// Signing out always empties the feed.
func (r *Runner) wire() {
	if r.ownsAPI {
		r.api = services.NewAPIService(services.APIOpts{
			BaseURL:           r.config.Origin(),
			HTTPClient:        r.httpClient,
			RequestsPerSecond: r.config.API.RequestsPerSecond,
			MaxResults:        r.config.API.MaxResults,
			Logger:            shared.WithLogger(r.logger, "component", "api"),
		})
	}

	r.session = session.New(session.Opts{
		Store:      r.store,
		Identity:   r.api,
		Authorizer: r.api,
		Logger:     shared.WithLogger(r.logger, "component", "session"),
	})
	r.feed = feed.New(feed.Opts{
		Client: r.api,
		Gate:   r.session,
		Logger: shared.WithLogger(r.logger, "component", "feed"),
	})
	r.session.OnLogout(r.feed.Reset)
}

// SetLogger swaps the logger and rebuilds the session stack so every component logs through it.
func (r *Runner) SetLogger(logger *log.Logger) {
	r.logger = logger
	r.wire()
}

// openStore returns the credential store selected by cfg, with a closer for any database it opened.
func openStore(cfg *shared.Config) (models.CredentialStore, func() error, error) {
	switch cfg.Credentials.Store {
	case shared.StoreFile:
		store := repositories.NewFileCredentialStore(shared.ExpandPath(cfg.Credentials.FilePath))
		return store, func() error { return nil }, nil
	case shared.StoreSQLite:
		db, err := shared.OpenMigratedDatabase(cfg.Database)
		if err != nil {
			return nil, nil, err
		}
		return repositories.NewCredentialRepository(db, cfg.Origin()), db.Close, nil
	default:
		return nil, nil, fmt.Errorf("%w: unknown credentials.store %q", shared.ErrInvalidConfig, cfg.Credentials.Store)
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, authCommand, subscriptionsCommand, videosCommand, refreshCommand, apiCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	output, err := formatter.ToJSON(data, pretty)
	if err != nil {
		return err
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writeBytes(data []byte) error {
	if _, err := r.output.Write(data); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
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
