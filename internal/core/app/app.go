// Package app drives the compiler from a nilscript.toml build definition.
package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"nilscript/internal/core/config"
	cerrors "nilscript/internal/core/errors"
	"nilscript/internal/core/ports"
	"nilscript/internal/core/watcher"
	"nilscript/internal/data/symbolstore"
	"nilscript/internal/engine/compiler"
	"nilscript/internal/shared/ctxlog"
)

// Summary describes one finished build.
type Summary struct {
	BuildID  string
	Files    int
	Duration time.Duration
	Result   *compiler.Result
	// Written lists the output files replaced by the build.
	Written []string
}

type App struct {
	Config     *config.Config
	ConfigPath string

	paths  config.ResolvedPaths
	filter *watcher.Filter

	// buildMu serializes builds; mu guards the fields below it.
	buildMu  sync.Mutex
	compiler *compiler.Compiler

	mu        sync.RWMutex
	store     ports.SymbolStore
	ownsStore bool
	last      *Summary
	lastErr   error
	onBuild   func(Summary)
}

// New creates an app for cfg and opens the symbol store when enabled.
func New(cfg *config.Config, configPath string) (*App, error) {
	a := &App{ConfigPath: configPath, compiler: compiler.New(nil)}
	if err := a.apply(cfg); err != nil {
		return nil, err
	}
	if err := a.openStore(); err != nil {
		return nil, err
	}
	return a, nil
}

// NewWithStore creates an app that uses store instead of opening one.
func NewWithStore(cfg *config.Config, store ports.SymbolStore) (*App, error) {
	a := &App{compiler: compiler.New(nil), store: store}
	if err := a.apply(cfg); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *App) apply(cfg *config.Config) error {
	filter, err := watcher.NewFilter(config.ResolvePaths(cfg).Root, cfg.Build.Inputs, cfg.Build.Exclude)
	if err != nil {
		return cerrors.Wrap(err, cerrors.CodeValidationError, "compile input patterns")
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.Config = cfg
	a.paths = config.ResolvePaths(cfg)
	a.filter = filter
	return nil
}

func (a *App) openStore() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.Config.DB.Enabled {
		return nil
	}
	store, err := symbolstore.Open(a.paths.DBPath)
	if err != nil {
		return cerrors.AddContext(cerrors.Wrap(err, cerrors.CodeInternal, "open symbol store"), cerrors.CtxPath, a.paths.DBPath)
	}
	a.store = store
	a.ownsStore = true
	return nil
}

// Reconfigure swaps in a reloaded configuration. The store is reopened when
// its location changes.
func (a *App) Reconfigure(ctx context.Context, cfg *config.Config) error {
	a.buildMu.Lock()
	defer a.buildMu.Unlock()

	prev := a.Config
	if err := a.apply(cfg); err != nil {
		return err
	}
	if a.store != nil && !a.ownsStore {
		return nil
	}
	if prev.DB == cfg.DB && prev.Dir == cfg.Dir {
		return nil
	}
	if err := a.closeStore(); err != nil {
		ctxlog.FromContext(ctx).Warn("failed to close symbol store", "error", err)
	}
	return a.openStore()
}

// OnBuild registers a callback run after every build.
func (a *App) OnBuild(fn func(Summary)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.onBuild = fn
}

// LastBuild returns the most recent build summary and error.
func (a *App) LastBuild() (*Summary, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.last, a.lastErr
}

func (a *App) Store() ports.SymbolStore {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.store
}

func (a *App) closeStore() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.store == nil || !a.ownsStore {
		return nil
	}
	err := a.store.Close()
	a.store, a.ownsStore = nil, false
	return err
}

func (a *App) Close() error {
	var errs []error
	if err := a.compiler.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := a.closeStore(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return fmt.Errorf("close app: %v", errs)
	}
	return nil
}
