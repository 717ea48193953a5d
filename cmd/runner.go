package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/charmbracelet/log"
	"github.com/offbeatlabs/stepsync/internal/lifecycle"
	"github.com/offbeatlabs/stepsync/internal/models"
	"github.com/offbeatlabs/stepsync/internal/repositories"
	"github.com/offbeatlabs/stepsync/internal/services"
	"github.com/offbeatlabs/stepsync/internal/shared"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	configPath string
	records    services.RecordStore
	feed       services.FeedStore
	gateway    services.AssetGateway
	transport  services.UploadTransport
	api        *services.APIService
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer

	db      *sql.DB
	journal *repositories.Journal
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	Records    services.RecordStore
	Feed       services.FeedStore
	Gateway    services.AssetGateway
	Transport  services.UploadTransport
	API        *services.APIService
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
		opts.HTTPClient = http.DefaultClient
	}

	return &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		records:    opts.Records,
		feed:       opts.Feed,
		gateway:    opts.Gateway,
		transport:  opts.Transport,
		api:        opts.API,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
	}
}

// SetLogger swaps the runner's logger, used when the TUI redirects logs to a file.
func (r *Runner) SetLogger(l *log.Logger) {
	r.logger = l
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, mediaCommand, feedCommand, apiCommand, listenCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// newMachine builds a lifecycle machine for one owner, backed by the runner's
// services and the local upload journal when a database is open.
func (r *Runner) newMachine(kind models.OwnerKind, id string) (*lifecycle.Machine, error) {
	if r.records == nil || r.gateway == nil {
		return nil, fmt.Errorf("%w: backend services not configured", shared.ErrMissingConfig)
	}

	var journal lifecycle.Journal
	if j, err := r.openJournal(); err == nil {
		journal = j
	} else {
		r.logger.Warn("upload journal unavailable", "error", err)
	}

	return lifecycle.NewMachine(lifecycle.MachineOpts{
		Owner:     services.NewOwner(r.records, kind, id),
		Gateway:   r.gateway,
		Transport: r.transport,
		Policy:    lifecycle.PolicyFromConfig(r.config.Polling),
		Logger:    r.logger,
		Journal:   journal,
	}), nil
}

// recoverSessions reconciles owners whose journaled uploads never settled.
// A crash mid-upload leaves the session active in the journal; reconciling
// against the gateway and backend restores truthful state and retires the
// session before new work starts.
func (r *Runner) recoverSessions(ctx context.Context) {
	journal, err := r.openJournal()
	if err != nil {
		r.logger.Warn("upload journal unavailable, skipping recovery", "error", err)
		return
	}
	stale, err := journal.Active()
	if err != nil {
		r.logger.Warn("failed to list interrupted sessions", "error", err)
		return
	}
	if len(stale) == 0 {
		return
	}

	r.writePlainln("Recovering %d interrupted upload(s)", len(stale))
	for _, persisted := range stale {
		session := persisted.Session()
		machine, err := r.newMachine(session.OwnerKind, session.OwnerID)
		if err != nil {
			r.logger.Warn("recovery skipped", "session", persisted.ID(), "error", err)
			continue
		}
		if _, err := machine.Reconcile(ctx); err != nil {
			r.logger.Warn("recovery reconcile failed", "session", persisted.ID(), "error", err)
			machine.Close()
			continue
		}
		state, ref := machine.State(), machine.Reference()
		machine.Close()

		if err := journal.Finish(persisted.ID(), state, ref); err != nil {
			r.logger.Warn("failed to retire recovered session", "session", persisted.ID(), "error", err)
			continue
		}
		r.writePlain("✓ %s %s settled %s\n", session.OwnerKind, session.OwnerID, state)
	}
}

// openJournal lazily opens the local cache database and session journal.
func (r *Runner) openJournal() (*repositories.Journal, error) {
	if r.journal != nil {
		return r.journal, nil
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

	r.db = db
	r.journal = repositories.NewJournal(repositories.NewSessionRepository(db))
	return r.journal, nil
}

// CloseDB closes the lazily opened cache database, if any.
func (r *Runner) CloseDB() {
	if r.db != nil {
		r.db.Close()
		r.db = nil
		r.journal = nil
	}
}

// parseOwnerArgs reads the kind and id arguments common to media commands.
func parseOwnerArgs(cmd *cli.Command) (models.OwnerKind, string, error) {
	kindArg := cmd.StringArg("kind")
	id := cmd.StringArg("id")

	if kindArg == "" || id == "" {
		return "", "", fmt.Errorf("%w: kind and id are required", shared.ErrMissingArgument)
	}

	kind, err := models.ParseOwnerKind(kindArg)
	if err != nil {
		return "", "", err
	}
	return kind, id, nil
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
