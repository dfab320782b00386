package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/bowlstone/internal/identity"
	"github.com/desertthunder/bowlstone/internal/persist"
	"github.com/desertthunder/bowlstone/internal/reflection"
	"github.com/desertthunder/bowlstone/internal/repositories"
	"github.com/desertthunder/bowlstone/internal/shared"
	"github.com/desertthunder/bowlstone/internal/storage"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	configPath string
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer
	env        *env
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
}

// env is the storage stack shared by commands that touch the board.
type env struct {
	db       *sql.DB
	durable  storage.Store
	adapter  *persist.Adapter
	identity *identity.Local
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

	return &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
	}
}

// SetLogger replaces the logger, e.g. to keep log lines out of the TUI.
func (r *Runner) SetLogger(l *log.Logger) {
	r.logger = l
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, serveCommand, tuiCommand, stonesCommand, exportCommand, reflectCommand, accountCommand, upgradeCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// open connects the database and durable store on first use.
//
// Accounts always live in SQLite. The board lives in whichever backend [shared.StorageConfig] selects.
func (r *Runner) open(ctx context.Context) (*env, error) {
	if r.env != nil {
		return r.env, nil
	}

	db, err := shared.OpenDatabase(ctx, r.config.Database)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrStorageRead, err)
	}

	durable, err := storage.Open(ctx, r.config.Storage, db)
	if err != nil {
		db.Close()
		return nil, err
	}

	r.env = &env{
		db:       db,
		durable:  durable,
		adapter:  persist.New(durable, r.logger),
		identity: identity.NewLocal(repositories.NewUserRepository(db), durable, r.logger),
	}
	r.env.identity.Restore(ctx)
	r.logger.Debug("storage ready", "backend", r.config.Storage.Backend, "database", r.config.Database.Path)
	return r.env, nil
}

// close releases whatever [Runner.open] acquired.
func (r *Runner) close() error {
	if r.env == nil {
		return nil
	}

	var errs []error
	if c, ok := r.env.durable.(io.Closer); ok {
		errs = append(errs, c.Close())
	}
	errs = append(errs, r.env.db.Close())
	r.env = nil
	return errors.Join(errs...)
}

// generator picks Gemini when an API key is configured and the built-in list otherwise.
func (r *Runner) generator(ctx context.Context) reflection.Generator {
	if r.config.Reflection.APIKey == "" {
		return reflection.Builtin
	}

	gen, err := reflection.NewGemini(ctx, r.config.Reflection, nil)
	if err != nil {
		r.logger.Warn("falling back to built-in reflections", "error", err)
		return reflection.Builtin
	}
	return gen
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

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
