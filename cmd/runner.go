package main

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/tasksync/internal/engine"
	"github.com/desertthunder/tasksync/internal/models"
	"github.com/desertthunder/tasksync/internal/repositories"
	"github.com/desertthunder/tasksync/internal/services"
	"github.com/desertthunder/tasksync/internal/shared"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config *shared.Config
	logger *log.Logger
	output io.Writer

	db       *sql.DB
	accounts *repositories.AccountRepository
	lists    *repositories.ListRepository
	tasks    *repositories.TaskRepository
	links    *repositories.LinkRepository
	tags     *repositories.TagRepository
	settings *repositories.SettingsRepository
	engine   *engine.Engine
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
		setupCommand, migrateCommand, accountsCommand, listsCommand, tasksCommand, syncCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// open connects to the configured database and builds the repositories and
// the sync engine. Idempotent; commands call it at the top of their action.
func (r *Runner) open() error {
	if r.db != nil {
		return nil
	}

	db, err := shared.NewDatabase(r.config.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	shared.ConfigureDatabase(db, r.config.Database.MaxOpenConns, r.config.Database.MaxIdleConns)

	r.db = db
	r.accounts = repositories.NewAccountRepository(db)
	r.lists = repositories.NewListRepository(db)
	r.tasks = repositories.NewTaskRepository(db)
	r.links = repositories.NewLinkRepository(db)
	r.tags = repositories.NewTagRepository(db)
	r.settings = repositories.NewSettingsRepository(db)

	r.engine = engine.New(engine.Opts{
		Accounts: r.accounts,
		Lists:    r.lists,
		Tasks:    r.tasks,
		Links:    r.links,
		Tags:     r.tags,
		Settings: r.settings,
		Services: func(account *models.Account) (services.Service, error) {
			return services.ForAccount(account, r.config, r.logger)
		},
		Logger:          r.logger,
		DefaultPriority: r.config.Sync.DefaultPriority,
	})

	return nil
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
