package app

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"frostbyte/internal/codec"
	"frostbyte/internal/config"
	"frostbyte/internal/frost"
	"frostbyte/internal/repo"
	"frostbyte/internal/schema"
	"frostbyte/internal/store"
)

// ErrNotRepository reports that the working directory holds no frostbyte
// repository. Every command except init requires one.
var ErrNotRepository = errors.New("not a frostbyte repository (run 'frostbyte init' first)")

// App is the application layer between the CLI and the archive manager.
// It constructs all dependencies from the repository configuration and
// manages the store and log file lifecycle on Close.
type App struct {
	cfg     *config.Config
	layout  *repo.Layout
	store   *store.SQLiteStore
	manager *frost.Manager
	log     *slog.Logger
	logFile *os.File
}

// Open wires an App against an existing repository rooted at root.
// op names the CLI command being run and tags every log line; verbose
// lowers the stderr log threshold to debug. The caller must call Close
// when done.
func Open(root, op string, verbose bool) (*App, error) {
	layout := repo.New(root)
	if !layout.Exists() {
		return nil, ErrNotRepository
	}
	return open(layout, op, verbose)
}

// Init creates the repository skeleton rooted at root (directories plus a
// default configuration file when none exists) and wires an App against
// it. An existing configuration file is left untouched so repeated init
// keeps user settings.
func Init(root, op string, verbose bool) (*App, error) {
	layout := repo.New(root)
	if err := layout.EnsureDirs(); err != nil {
		return nil, err
	}
	cfgPath := config.Path(layout.ConfigPath())
	if _, err := os.Stat(cfgPath); errors.Is(err, fs.ErrNotExist) {
		if err := config.Init(cfgPath, config.Default()); err != nil {
			return nil, fmt.Errorf("writing default config: %w", err)
		}
	}
	return open(layout, op, verbose)
}

func open(layout *repo.Layout, op string, verbose bool) (*App, error) {
	cfg, err := config.Load(config.Path(layout.ConfigPath()))
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	term := ParseLevel(cfg.Logging.Level)
	if verbose {
		term = slog.LevelDebug
	}
	logger, logFile, err := newLogger(layout.LogPath(), op, term)
	if err != nil {
		return nil, err
	}
	log := &slogAdapter{l: logger}

	dbPath := cfg.Database.Path
	if !filepath.IsAbs(dbPath) {
		dbPath = filepath.Join(layout.Root(), dbPath)
	}
	st, err := store.Open(dbPath)
	if err != nil {
		logFile.Close()
		return nil, fmt.Errorf("opening metadata store: %w", err)
	}

	cdc, err := codec.New(codec.Config{
		Compression:  cfg.Storage.Codec,
		RowGroupSize: cfg.Storage.RowGroupSize,
	}, log)
	if err != nil {
		st.Close()
		logFile.Close()
		return nil, fmt.Errorf("building codec: %w", err)
	}

	mgr := frost.NewManager(layout, st, cdc, frost.ManagerOptions{
		Extractor: schema.NewExtractor(cfg.Storage.ChunkSize),
		Logger:    log,
	})

	return &App{
		cfg:     cfg,
		layout:  layout,
		store:   st,
		manager: mgr,
		log:     logger,
		logFile: logFile,
	}, nil
}

// Manager returns the archive manager.
func (a *App) Manager() *frost.Manager { return a.manager }

// Layout returns the repository layout.
func (a *App) Layout() *repo.Layout { return a.layout }

// Config returns the loaded repository configuration.
func (a *App) Config() *config.Config { return a.cfg }

// Close releases the metadata store and the log file.
func (a *App) Close() error {
	var firstErr error
	if err := a.store.Close(); err != nil {
		firstErr = fmt.Errorf("closing metadata store: %w", err)
	}
	if a.logFile != nil {
		if err := a.logFile.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("closing log file: %w", err)
		}
	}
	return firstErr
}
