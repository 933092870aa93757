package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/serenitune/internal/audio"
	"github.com/desertthunder/serenitune/internal/repositories"
	"github.com/desertthunder/serenitune/internal/services"
	"github.com/desertthunder/serenitune/internal/session"
	"github.com/desertthunder/serenitune/internal/shared"
	"github.com/desertthunder/serenitune/internal/spectrum"
	"github.com/desertthunder/serenitune/internal/tasks"
	"github.com/urfave/cli/v3"
)

const (
	sourceLocal = "local"
	sourceAPI   = "api"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
//
// The library and the playback session are opened lazily so commands only pay for what they use.
type Runner struct {
	config     *shared.Config
	configPath string
	library    services.Library
	reorderer  services.PlaylistReorderer
	local      *repositories.Library
	api        *services.APIService
	db         *sql.DB
	device     audio.Device
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	// Library replaces the configured library source, e.g. in tests.
	Library   services.Library
	Reorderer services.PlaylistReorderer
	API       *services.APIService
	// Device replaces the system speaker.
	Device     audio.Device
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
		library:    opts.Library,
		reorderer:  opts.Reorderer,
		api:        opts.API,
		device:     opts.Device,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, tracksCommand, playlistsCommand, playCommand, tuiCommand, serveCommand, apiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// SetLogger swaps the logger, e.g. to a file while the TUI owns the terminal.
func (r *Runner) SetLogger(l *log.Logger) {
	r.logger = l
}

// Close releases the database handle if one was opened.
func (r *Runner) Close() error {
	if r.db == nil {
		return nil
	}
	err := r.db.Close()
	r.db, r.local = nil, nil
	return err
}

// Library resolves the configured library source.
func (r *Runner) Library(ctx context.Context) (services.Library, error) {
	if r.library != nil {
		return r.library, nil
	}

	switch r.config.Library.Source {
	case sourceAPI:
		api := r.apiService(ctx)
		r.library, r.reorderer = api, api
	case sourceLocal, "":
		lib, err := r.localLibrary(ctx)
		if err != nil {
			return nil, err
		}
		r.library, r.reorderer = lib, lib
	default:
		return nil, fmt.Errorf("%w: unknown library source %q", shared.ErrInvalidConfig, r.config.Library.Source)
	}

	r.logger.Debug("library opened", "source", r.config.Library.Source)
	return r.library, nil
}

// Reorderer returns the reorder capability of the opened library, or nil when it has none.
func (r *Runner) Reorderer(ctx context.Context) services.PlaylistReorderer {
	if _, err := r.Library(ctx); err != nil {
		return nil
	}
	if r.reorderer != nil {
		return r.reorderer
	}
	if ro, ok := r.library.(services.PlaylistReorderer); ok {
		return ro
	}
	return nil
}

func (r *Runner) apiService(ctx context.Context) *services.APIService {
	if r.api == nil {
		r.api = services.NewAPIService(ctx, services.APIOpts{
			BaseURL:    r.config.API.BaseURL,
			Token:      r.config.API.Token,
			RateLimit:  r.config.API.RateLimit,
			HTTPClient: r.httpClient,
		})
	}
	return r.api
}

// localLibrary opens the SQLite library and brings its schema up to date.
func (r *Runner) localLibrary(ctx context.Context) (*repositories.Library, error) {
	if r.local != nil {
		return r.local, nil
	}

	db, err := shared.NewDatabase(r.config.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	shared.ConfigureDatabase(db, r.config.Database.MaxOpenConns, r.config.Database.MaxIdleConns)
	n, err := shared.Migrate(ctx, db)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	if n > 0 {
		r.logger.Info("applied migrations", "count", n, "path", r.config.Database.Path)
	}

	r.db = db
	r.local = repositories.NewLibrary(db)
	return r.local, nil
}

// engine builds the import/export task engine over the configured library.
// Import needs the local store; with the API source only exports are available.
func (r *Runner) engine(ctx context.Context) (*tasks.LibraryEngine, error) {
	lib, err := r.Library(ctx)
	if err != nil {
		return nil, err
	}

	var store tasks.TrackStore
	if local, ok := lib.(*repositories.Library); ok {
		store = local.Tracks
	}
	return tasks.NewLibraryEngine(lib, store, r.logger), nil
}

// Session builds a playback controller over the system speaker and initializes it.
// The caller owns the returned controller and must Dispose it.
func (r *Runner) Session(ctx context.Context) *session.Controller {
	device := r.device
	if device == nil {
		client := r.httpClient
		if r.config.Library.Source == sourceAPI {
			client = r.apiService(ctx).HTTPClient()
		}
		p := r.config.Player
		device = audio.NewSpeaker(audio.SpeakerOpts{
			SampleRate:  p.SampleRate,
			Buffer:      time.Duration(p.BufferMS) * time.Millisecond,
			TimeUpdate:  time.Duration(p.TimeUpdateMS) * time.Millisecond,
			Volume:      p.DefaultVolume,
			MaxDownload: int64(p.MaxDownloadMB) << 20,
			HTTPClient:  client,
			Logger:      shared.WithLogger(r.logger, "component", "audio"),
		})
	}

	ctrl := session.New(session.Options{
		Device:   device,
		Logger:   r.logger,
		Volume:   r.config.Player.DefaultVolume,
		Analyzer: spectrum.FromShared(r.config.Analyzer),
	})
	ctrl.Init(ctx)
	return ctrl
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

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}
