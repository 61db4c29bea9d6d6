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
	"github.com/desertthunder/lapx/internal/locale"
	"github.com/desertthunder/lapx/internal/media"
	"github.com/desertthunder/lapx/internal/models"
	"github.com/desertthunder/lapx/internal/repositories"
	"github.com/desertthunder/lapx/internal/services"
	"github.com/desertthunder/lapx/internal/shared"
	"github.com/desertthunder/lapx/internal/tasks"
	"github.com/spf13/afero"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	configPath string
	fs         afero.Fs
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer
	workspace  *models.Workspace
	catalog    *locale.Catalog
	prefs      *shared.PreferenceStore
	env        tasks.Environment
	db         *sql.DB
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config      *shared.Config
	ConfigPath  string
	Fs          afero.Fs
	HTTPClient  *http.Client
	Logger      *log.Logger
	Output      io.Writer
	Preferences *shared.PreferenceStore
	Environment tasks.Environment
	DB          *sql.DB
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
	if opts.Fs == nil {
		opts.Fs = afero.NewOsFs()
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: opts.Config.Cloud.Timeout()}
	}
	if opts.Preferences == nil {
		if store, err := shared.NewPreferenceStore(opts.Config.Preferences.Path); err == nil {
			opts.Preferences = store
		} else {
			opts.Logger.Warn("preferences unavailable", "error", err)
		}
	}

	r := &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		fs:         opts.Fs,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
		workspace:  models.NewWorkspace(),
		catalog:    locale.New(opts.Config.Locale.Language),
		prefs:      opts.Preferences,
		env:        opts.Environment,
		db:         opts.DB,
	}
	if r.env == nil {
		r.env = &consoleEnvironment{out: r.output}
	}
	return r
}

// SetLogger replaces the logger used by subsequently built components.
func (r *Runner) SetLogger(l *log.Logger) {
	r.logger = l
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		openCommand, newCommand, importCommand, projectCommand, releaseCommand,
		cloudCommand, recentCommand, historyCommand, setupCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// database opens the history database on first use and brings its schema up to date.
func (r *Runner) database() (*sql.DB, error) {
	if r.db != nil {
		return r.db, nil
	}

	path, err := shared.ExpandPath(r.config.Database.Path)
	if err != nil {
		return nil, err
	}
	db, err := shared.NewDatabase(path)
	if err != nil {
		return nil, err
	}
	shared.ConfigureDatabase(db, r.config.Database.MaxOpenConns, r.config.Database.MaxIdleConns)

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	r.db = db
	return db, nil
}

// Close releases the history database, if it was opened.
func (r *Runner) Close() error {
	if r.db == nil {
		return nil
	}
	err := r.db.Close()
	r.db = nil
	return err
}

// recentRecorder returns the recent-projects repository, or nil when history is unavailable.
func (r *Runner) recentRecorder() tasks.RecentRecorder {
	db, err := r.database()
	if err != nil {
		r.logger.Warn("history unavailable", "error", err)
		return nil
	}
	return repositories.NewProjectRepository(db)
}

func (r *Runner) transferRecorder() services.TransferRecorder {
	db, err := r.database()
	if err != nil {
		r.logger.Warn("history unavailable", "error", err)
		return nil
	}
	return repositories.NewTransferRepository(db)
}

func (r *Runner) preferences() shared.Preferences {
	if r.prefs == nil {
		return shared.Preferences{}
	}
	return r.prefs.Load()
}

// prefsLoader returns the preference store as a [tasks.PreferenceLoader], or nil without one.
func (r *Runner) prefsLoader() tasks.PreferenceLoader {
	if r.prefs == nil {
		return nil
	}
	return r.prefs
}

// userID resolves the device id: the configured value, else one generated once and kept in preferences.
func (r *Runner) userID() string {
	if id := r.config.Cloud.UserID; id != "" {
		return id
	}
	if r.prefs == nil {
		return ""
	}
	id, err := r.prefs.EnsureUserID()
	if err != nil {
		r.logger.Warn("failed to resolve device id", "error", err)
		return ""
	}
	return id
}

func (r *Runner) pipeline() *tasks.Pipeline {
	opts := tasks.PipelineOptions{
		Fs:          r.fs,
		Workspace:   r.workspace,
		Images:      media.NewFileImageDecoder(r.fs),
		Audio:       media.NewFileAudioDecoder(r.fs),
		Environment: r.env,
		Localizer:   r.catalog,
		Logger:      r.logger,
	}
	if r.prefs != nil {
		opts.Preferences = r.prefs
	}
	if recent := r.recentRecorder(); recent != nil {
		opts.Recent = recent
	}
	return tasks.NewPipeline(opts)
}

func (r *Runner) syncClient() *services.SyncClient {
	cloud := services.NewCloudClient(r.config.Cloud, r.httpClient, r.logger)
	reach := services.DialReachability{Address: r.config.Cloud.ReachabilityAddress, Timeout: r.config.Cloud.Timeout()}

	var recorder services.TransferRecorder
	if rec := r.transferRecorder(); rec != nil {
		recorder = rec
	}
	return services.NewSyncClient(cloud, r.workspace, r.userID(), reach, recorder, r.logger)
}

// loadSession reads the descriptor at lapPath and runs the load pipeline without printing progress.
func (r *Runner) loadSession(ctx context.Context, lapPath string) (*models.Project, *models.Session, error) {
	project, err := models.LoadProject(r.fs, lapPath)
	if err != nil {
		return nil, nil, err
	}
	session, err := r.pipeline().Run(ctx, project, lapPath, nil)
	if err != nil {
		return nil, nil, err
	}
	return project, session, nil
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
