package app

import (
	"fmt"
	"os"

	"github.com/google/uuid"

	"snapkeep/internal/blob"
	"snapkeep/internal/config"
	"snapkeep/internal/database"
	"snapkeep/internal/fs"
	"snapkeep/internal/snap"
)

// Options tweak how the application is wired up.
type Options struct {
	// QuietLogs keeps log output off stderr. Required for the MCP server,
	// whose stdout/stderr belong to the protocol transport.
	QuietLogs bool

	// Observer receives human-readable progress lines during long operations.
	Observer snap.ProgressObserver
}

// App is the application layer between the collaborators (CLI, MCP, web) and
// the snapshot service. It constructs all dependencies from config and
// manages their lifecycle on Close.
type App struct {
	cfg     *config.Config
	index   snap.Index
	store   snap.BlobStore
	service *snap.Service
	logFile *os.File
}

// NewApp creates a fully wired App from the given config. Each run gets a
// fresh operation id so log lines across one invocation correlate.
// The caller must call Close when done.
func NewApp(cfg *config.Config, opts Options) (*App, error) {
	opID := uuid.NewString()[:8]
	logger, logFile, err := newLogger(cfg.LogDir, opID, opts.QuietLogs)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	log := &slogAdapter{l: logger}

	// Opening the index brings its schema up to date.
	index, err := database.NewIndexFromConfig(cfg.Database)
	if err != nil {
		logFile.Close()
		return nil, fmt.Errorf("creating index: %w", err)
	}

	store, err := blob.NewStore(cfg.Storage.Dir, log)
	if err != nil {
		index.Close()
		logFile.Close()
		return nil, fmt.Errorf("creating blob store: %w", err)
	}
	// Clear leftovers from writes interrupted by a crash.
	if err := store.SweepTemp(); err != nil {
		log.Warn("temp file sweep failed", "error", err)
	}

	fsmgr := fs.NewOSFilesystemManager()
	svc := snap.NewService(index, store, fsmgr, log, snap.RealClock{}, opts.Observer)

	return &App{
		cfg:     cfg,
		index:   index,
		store:   store,
		service: svc,
		logFile: logFile,
	}, nil
}

// Service returns the wired snapshot service.
func (a *App) Service() *snap.Service { return a.service }

// Config returns the config the app was built from.
func (a *App) Config() *config.Config { return a.cfg }

// Close releases the index connection and the log file.
func (a *App) Close() error {
	var firstErr error
	if err := a.index.Close(); err != nil {
		firstErr = fmt.Errorf("closing index: %w", err)
	}
	if a.logFile != nil {
		a.logFile.Close()
	}
	return firstErr
}
