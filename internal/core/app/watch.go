package app

import (
	"context"

	"nilscript/internal/core/config"
	"nilscript/internal/core/watcher"
	"nilscript/internal/shared/ctxlog"
	"nilscript/internal/shared/observability"
	"nilscript/internal/shared/util"
)

// Watch builds once, then rebuilds whenever inputs, surrounding files or
// the config file change, until ctx is done. Rebuilds are rate limited;
// changes that arrive while waiting are folded into the next build.
func (a *App) Watch(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)

	if _, err := a.Build(ctx); err != nil {
		logger.Error("initial build failed", "error", err)
	}

	changes := make(chan []string, 16)
	w, err := a.startWatcher(ctx, changes)
	if err != nil {
		return err
	}
	defer func() { _ = w.Close() }()

	reloads := make(chan *config.Config, 1)
	if a.ConfigPath != "" && a.Config.Watch.ReloadEnabled() {
		cw := config.NewWatcher(a.ConfigPath, func(cfg *config.Config) {
			select {
			case reloads <- cfg:
			case <-ctx.Done():
			}
		})
		if err := cw.Start(ctx); err != nil {
			logger.Warn("config reload disabled", "error", err)
		} else {
			defer cw.Stop()
		}
	}

	limiter := util.NewLimiter(a.Config.Watch.RebuildRate, a.Config.Watch.RebuildBurst)
	for {
		select {
		case <-ctx.Done():
			return nil
		case paths := <-changes:
			logger.Info("inputs changed", "files", len(paths))
		case cfg := <-reloads:
			if err := a.Reconfigure(ctx, cfg); err != nil {
				logger.Error("failed to apply reloaded config", "error", err)
				continue
			}
			_ = w.Close()
			if w, err = a.startWatcher(ctx, changes); err != nil {
				return err
			}
			limiter = util.NewLimiter(cfg.Watch.RebuildRate, cfg.Watch.RebuildBurst)
			logger.Info("config reloaded")
		}

		if !limiter.Allow(1) {
			observability.RebuildsSkippedTotal.Inc()
			if err := limiter.Wait(ctx, 1); err != nil {
				return nil
			}
		}
		drain(changes)

		if _, err := a.Build(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			logger.Error("rebuild failed", "error", err)
		}
	}
}

func (a *App) startWatcher(ctx context.Context, changes chan<- []string) (*watcher.Watcher, error) {
	a.mu.RLock()
	filter, paths, debounce := a.filter, a.paths, a.Config.Watch.Debounce
	a.mu.RUnlock()

	w, err := watcher.NewWatcher(debounce, filter, func(changed []string) {
		select {
		case changes <- changed:
		case <-ctx.Done():
		}
	})
	if err != nil {
		return nil, err
	}
	extra := append(append([]string(nil), paths.Prepend...), paths.Append...)
	if err := w.AddFiles(extra...); err != nil {
		_ = w.Close()
		return nil, err
	}
	if err := w.Watch(); err != nil {
		_ = w.Close()
		return nil, err
	}
	return w, nil
}

func drain(changes <-chan []string) {
	for {
		select {
		case <-changes:
		default:
			return
		}
	}
}
