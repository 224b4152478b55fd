package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/weekcopy/internal/credentials"
	"github.com/desertthunder/weekcopy/internal/repositories"
	"github.com/desertthunder/weekcopy/internal/services"
	"github.com/desertthunder/weekcopy/internal/shared"
	"github.com/desertthunder/weekcopy/internal/tasks"
	"github.com/urfave/cli/v3"
	"github.com/zmb3/spotify/v2"
)

// SpotifyClient is the provider surface the commands use.
type SpotifyClient interface {
	services.OAuthService
	services.PlaylistService
	CurrentUser(ctx context.Context, accessToken string) (*spotify.PrivateUser, error)
}

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	configPath string
	loaded     bool
	spotify    SpotifyClient
	store      credentials.Store
	opener     credentials.Opener
	db         *sql.DB
	logger     *log.Logger
	output     io.Writer
}

// RunnerOpts contains configuration options for creating a Runner.
//
// A non-nil Config is used as is and the config file and environment are not read.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	Spotify    SpotifyClient
	Store      credentials.Store
	Opener     credentials.Opener
	DB         *sql.DB
	Logger     *log.Logger
	Output     io.Writer
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	loaded := opts.Config != nil
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
		config:     opts.Config,
		configPath: opts.ConfigPath,
		loaded:     loaded,
		spotify:    opts.Spotify,
		store:      opts.Store,
		opener:     opts.Opener,
		db:         opts.DB,
		logger:     opts.Logger,
		output:     opts.Output,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		serveCommand, authCommand, copyCommand, statusCommand, historyCommand, setupCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// load reads the dotenv file, the TOML config and environment overrides, then rebuilds the logger.
func (r *Runner) load(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if path := cmd.String("config"); path != "" {
		r.configPath = path
	}
	if r.loaded {
		return ctx, nil
	}

	if err := shared.LoadEnvFile(cmd.String("env-file")); err != nil {
		return ctx, err
	}

	config, err := shared.LoadConfigOrDefault(r.configPath)
	if err != nil {
		return ctx, err
	}
	config.ApplyEnv(os.LookupEnv)

	logger, err := shared.NewLoggerFromConfig(config.Log)
	if err != nil {
		return ctx, err
	}

	r.config = config
	r.logger = logger
	r.loaded = true
	r.logger.Debug("configuration loaded", "path", r.configPath)
	return ctx, nil
}

// client returns the Spotify client, building it from the configured credentials on first use.
func (r *Runner) client() (SpotifyClient, error) {
	if r.spotify != nil {
		return r.spotify, nil
	}
	if err := r.config.ValidateAuth(); err != nil {
		return nil, err
	}

	svc, err := services.NewSpotifyService(r.config.Credentials.Spotify.Map())
	if err != nil {
		return nil, err
	}
	r.spotify = svc
	return svc, nil
}

// credentials builds a credential manager around the refresh token file.
func (r *Runner) credentials(opts ...credentials.Option) (*credentials.Manager, error) {
	if err := r.config.ValidateAuth(); err != nil {
		return nil, err
	}
	client, err := r.client()
	if err != nil {
		return nil, err
	}

	store := r.store
	if store == nil {
		store = credentials.NewFileStore(r.config.Token.Path)
	}

	base := []credentials.Option{
		credentials.WithCallbackAddr(r.config.Server.Addr()),
		credentials.WithAuthTimeout(r.config.Server.AuthTimeout.Duration),
		credentials.WithOutput(r.output),
	}
	if r.opener != nil {
		base = append(base, credentials.WithOpener(r.opener))
	}
	return credentials.NewManager(client, store, r.logger, append(base, opts...)...), nil
}

// journal opens the run journal. The returned close function is a no-op for injected databases.
//
// A nil database means the journal is disabled.
func (r *Runner) journal() (*sql.DB, func(), error) {
	if r.db != nil {
		return r.db, func() {}, nil
	}

	db, err := shared.OpenJournal(r.config.Database)
	if err != nil {
		return nil, func() {}, err
	}
	if db == nil {
		return nil, func() {}, nil
	}
	return db, func() {
		if err := db.Close(); err != nil {
			r.logger.Warn("failed to close journal", "error", err)
		}
	}, nil
}

// copier wires the credential manager, the Spotify client and the optional journal into a [tasks.Copier].
func (r *Runner) copier(tokens tasks.TokenSource, db *sql.DB) (*tasks.Copier, error) {
	client, err := r.client()
	if err != nil {
		return nil, err
	}
	loc, err := r.config.Schedule.Location()
	if err != nil {
		return nil, err
	}

	opts := tasks.CopyOptions{
		SourcePlaylistID:   r.config.Copy.SourcePlaylistID,
		TargetNameTemplate: r.config.Copy.TargetNameTemplate,
		UserID:             r.config.Copy.UserID,
		Location:           loc,
	}

	var options []tasks.CopierOption
	if db != nil {
		options = append(options, tasks.WithJournal(repositories.NewRunRepository(db)))
	}
	return tasks.NewCopier(tokens, client, opts, r.logger, options...), nil
}

// scheduler builds the weekly trigger for job from the schedule settings.
func (r *Runner) scheduler(job tasks.ScheduledJob) (*tasks.Scheduler, error) {
	loc, err := r.config.Schedule.Location()
	if err != nil {
		return nil, err
	}
	return tasks.NewScheduler(job, tasks.ScheduleOptions{
		Spec:     r.config.Schedule.Cron,
		Location: loc,
		Timeout:  r.config.Schedule.Timeout.Duration,
	}, r.logger)
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
