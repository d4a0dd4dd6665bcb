// Package app wires configuration, logging, storage, and the dependency
// graph together for the CLI and the TUI.
package app

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
	"github.com/rs/zerolog"

	"github.com/okvist/skein/internal/config"
	"github.com/okvist/skein/internal/db"
	"github.com/okvist/skein/internal/graph"
	"github.com/okvist/skein/internal/logging"
	"github.com/okvist/skein/internal/notify"
)

// App holds the application state and dependencies
type App struct {
	Config   *config.Config
	DB       *db.DB
	Notifier *notify.Notifier
	Log      zerolog.Logger

	lockFile *flock.Flock
	closeLog func()
}

// Options control how the application starts up.
type Options struct {
	ConfigPath string // empty means config.DefaultConfigPath
	DataDir    string // empty means config.DefaultDataDir
	Exclusive  bool   // take the single-instance lock (the TUI does)
}

// New creates a new application instance
func New(opts Options) (*App, error) {
	configPath := opts.ConfigPath
	if configPath == "" {
		p, err := config.DefaultConfigPath()
		if err != nil {
			return nil, err
		}
		configPath = p
	}

	dataDir := opts.DataDir
	if dataDir == "" {
		d, err := config.DefaultDataDir()
		if err != nil {
			return nil, err
		}
		dataDir = d
	}

	cfg, err := config.Load(configPath, dataDir)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	log, closeLog, err := logging.New(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		return nil, err
	}

	app := &App{
		Config:   cfg,
		Notifier: notify.NewNotifier(),
		Log:      log,
		closeLog: closeLog,
	}
	app.Notifier.SetEnabled(cfg.Notifications)

	if opts.Exclusive {
		if err := app.acquireLock(); err != nil {
			closeLog()
			return nil, err
		}
	}

	database, err := db.Open(cfg.DBPath)
	if err != nil {
		app.releaseLock()
		closeLog()
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	app.DB = database

	app.Log.Debug().Str("db", cfg.DBPath).Msg("database opened")

	return app, nil
}

// LoadEngine rebuilds the dependency graph from everything on disk. Derived
// state like blocked/ready is never stored, so every command starts from a
// fresh load.
func (a *App) LoadEngine() (*graph.Engine, error) {
	tasks, err := a.DB.ListTasks()
	if err != nil {
		return nil, fmt.Errorf("load tasks: %w", err)
	}

	deps, err := a.DB.ListDependencies()
	if err != nil {
		return nil, fmt.Errorf("load dependencies: %w", err)
	}

	eng := graph.New(a.DB, tasks, deps)

	entry, err := a.DB.ActiveTimeEntry()
	if err != nil {
		return nil, fmt.Errorf("load active timer: %w", err)
	}
	if entry != nil {
		eng.SetRunning(entry.TaskID, true)
	}

	return eng, nil
}

// acquireLock acquires an exclusive file lock to prevent multiple instances
func (a *App) acquireLock() error {
	lockPath := filepath.Join(a.Config.DataDir, "skein.lock")
	a.lockFile = flock.New(lockPath)

	locked, err := a.lockFile.TryLock()
	if err != nil {
		return fmt.Errorf("failed to acquire lock: %w", err)
	}

	if !locked {
		return fmt.Errorf("another instance of skein is already running")
	}

	return nil
}

// releaseLock releases the file lock
func (a *App) releaseLock() {
	if a.lockFile != nil {
		a.lockFile.Unlock()
	}
}

// Close cleans up application resources
func (a *App) Close() error {
	var errs []error

	if a.DB != nil {
		if err := a.DB.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close database: %w", err))
		}
	}

	a.releaseLock()

	if a.closeLog != nil {
		a.closeLog()
	}

	if len(errs) > 0 {
		return errs[0]
	}
	return nil
}
