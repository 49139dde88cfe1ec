package main

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"

	"upcwatch/internal/auth"
	"upcwatch/internal/repositories"
	"upcwatch/internal/services"
	"upcwatch/internal/shared"
	"upcwatch/internal/tasks"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config  *shared.Config
	db      *sql.DB
	queue   *repositories.QueueRepository
	hits    *repositories.HitRepository
	creds   *repositories.CredentialRepository
	manager *auth.Manager
	login   *auth.LoginFlow
	catalog services.Catalog
	charts  services.Charts
	engine  *tasks.Engine
	logger  *log.Logger
	output  io.Writer
	input   io.Reader
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config  *shared.Config
	DB      *sql.DB
	Catalog services.Catalog
	Charts  services.Charts
	Logger  *log.Logger
	Output  io.Writer
	Input   io.Reader
}

// NewRunner creates a new Runner with the provided configuration.
//
// The repositories, credential manager and check engine are always built over
// the given database; catalog and charts clients may be injected for tests
// and default to the real API clients otherwise.
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
	if opts.Input == nil {
		opts.Input = os.Stdin
	}

	r := &Runner{
		config: opts.Config,
		db:     opts.DB,
		logger: opts.Logger,
		output: opts.Output,
		input:  opts.Input,
	}

	r.queue = repositories.NewQueueRepository(opts.DB)
	r.hits = repositories.NewHitRepository(opts.DB)
	r.creds = repositories.NewCredentialRepository(opts.DB)
	r.manager = auth.NewManager(r.creds, opts.Config.Auth)
	r.login = auth.NewLoginFlow(opts.Config.Auth)

	r.catalog = opts.Catalog
	if r.catalog == nil {
		r.catalog = services.NewCatalogService(opts.Config.API, r.manager)
	}
	r.charts = opts.Charts
	if r.charts == nil {
		r.charts = services.NewChartsService(opts.Config.API, opts.Config.Checker.PlaylistLimit, r.manager)
	}

	r.engine = tasks.NewEngine(r.queue, r.hits, r.catalog, r.charts)
	return r
}

// SetLogger replaces the runner's logger, e.g. to redirect logs to a file
// while the TUI owns the terminal.
func (r *Runner) SetLogger(logger *log.Logger) {
	r.logger = logger
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, authCommand, checkCommand, hitsCommand, queueCommand, serveCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

func (r *Runner) writeJSON(data any) error {
	output, err := json.MarshalIndent(data, "", "  ")
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
