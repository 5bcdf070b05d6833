package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/tracksync/internal/matching"
	"github.com/desertthunder/tracksync/internal/repositories"
	"github.com/desertthunder/tracksync/internal/services"
	"github.com/desertthunder/tracksync/internal/shared"
	"github.com/desertthunder/tracksync/internal/workflow"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config *shared.Config
	logger *log.Logger
	output io.Writer
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config *shared.Config
	Logger *log.Logger
	Output io.Writer
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

	return &Runner{
		config: opts.Config,
		logger: opts.Logger,
		output: opts.Output,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, loginCommand, serveCommand, workerCommand, syncCommand, statusCommand, watchCommand, cacheCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	output, err := shared.MarshalJSON(data, pretty)
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(append(output, '\n')); err != nil {
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

// budget returns the configured pipeline time bound.
func (r *Runner) budget() time.Duration {
	return time.Duration(r.config.Workflow.TimeoutBudgetSeconds) * time.Second
}

// openDatabase opens the cache database with the configured pool settings.
func (r *Runner) openDatabase() (*sql.DB, error) {
	db, err := shared.NewDatabase(r.config.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	shared.ConfigureDatabase(db, r.config.Database.MaxOpenConns, r.config.Database.MaxIdleConns)
	return db, nil
}

// buildCatalog constructs the Spotify catalog client from config credentials
// and wraps it with the search cache when a database is available.
func (r *Runner) buildCatalog(ctx context.Context) (services.Catalog, func(), error) {
	creds := r.config.Credentials.Spotify
	if creds.ClientID == "" || creds.ClientSecret == "" {
		return nil, nil, fmt.Errorf("%w: Spotify client_id and client_secret must be set in config.toml", shared.ErrMissingCredentials)
	}

	spotify, err := services.NewSpotifyCatalog(creds.Map())
	if err != nil {
		return nil, nil, err
	}

	if creds.AccessToken == "" {
		return nil, nil, fmt.Errorf("%w: run 'tracksync login' first", shared.ErrNotAuthenticated)
	}
	if err := spotify.Authenticate(ctx, creds.Map()); err != nil {
		return nil, nil, err
	}

	db, err := r.openDatabase()
	if err != nil {
		r.logger.Warn("search cache unavailable, queries go straight to the catalog", "error", err)
		return spotify, func() {}, nil
	}

	ttl := time.Duration(r.config.Database.CacheTTLMinutes) * time.Minute
	cache, err := repositories.NewSearchCache(db, ttl)
	if err != nil {
		db.Close()
		r.logger.Warn("search cache unavailable, queries go straight to the catalog", "error", err)
		return spotify, func() {}, nil
	}

	return services.NewCachedCatalog(spotify, cache, r.logger), func() { db.Close() }, nil
}

// buildDecider constructs the disambiguator, including the Gemini reasoner
// when an API key is configured and AI disambiguation is enabled.
func (r *Runner) buildDecider(ctx context.Context) (*matching.Disambiguator, func(), error) {
	cfg := matching.Config{
		Threshold:   r.config.Matching.Threshold,
		Margin:      r.config.Matching.Margin,
		AIFloor:     r.config.Matching.AIFloor,
		ExactCutoff: r.config.Matching.ExactCutoff,
		TopN:        r.config.Matching.TopN,
	}

	var reasoner matching.Reasoner
	cleanup := func() {}

	if r.config.Matching.UseAI && r.config.Credentials.Gemini.APIKey != "" {
		gemini, err := services.NewGeminiReasoner(ctx, r.config.Credentials.Gemini.APIKey, r.config.Credentials.Gemini.Model)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create reasoner: %w", err)
		}
		reasoner = gemini
		cleanup = func() { gemini.Close() }
	}

	return matching.NewDisambiguator(cfg, reasoner, r.logger), cleanup, nil
}

// buildSteps assembles the pipeline steps from the configured collaborators.
func (r *Runner) buildSteps(ctx context.Context) (*workflow.Steps, func(), error) {
	catalog, closeCatalog, err := r.buildCatalog(ctx)
	if err != nil {
		return nil, nil, err
	}

	decider, closeDecider, err := r.buildDecider(ctx)
	if err != nil {
		closeCatalog()
		return nil, nil, err
	}

	steps := &workflow.Steps{Catalog: catalog, Decider: decider, Logger: r.logger}
	return steps, func() { closeDecider(); closeCatalog() }, nil
}

// buildBackend resolves the execution backend: an explicit server URL wins,
// then the configured mode ("temporal" or "standalone").
func (r *Runner) buildBackend(ctx context.Context, serverURL string) (workflow.Backend, func(), error) {
	if serverURL != "" {
		return workflow.NewRemoteBackend(serverURL, nil), func() {}, nil
	}

	if r.config.Workflow.Mode == "temporal" {
		c, err := workflow.Dial(r.config.Temporal)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to temporal: %w", err)
		}
		backend := workflow.NewTemporalBackend(c, r.config.Temporal.TaskQueue, r.budget(), r.logger)
		return backend, func() { c.Close() }, nil
	}

	steps, cleanup, err := r.buildSteps(ctx)
	if err != nil {
		return nil, nil, err
	}

	pipeline := &workflow.Pipeline{Steps: steps}
	backend := workflow.NewStandaloneBackend(pipeline, workflow.NewStore(), r.budget(), r.logger)
	return backend, cleanup, nil
}
