package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	coreapp "nilscript/internal/core/app"
	"nilscript/internal/core/config"
	"nilscript/internal/shared/ctxlog"
	"nilscript/internal/shared/observability"
)

// Run executes the CLI and returns the process exit code.
func Run(args []string) int {
	return run(args, os.Stdin, os.Stdout, os.Stderr)
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	opts, err := parseOptions(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		fmt.Fprintln(stderr, err.Error())
		return 2
	}

	if opts.version {
		fmt.Fprintf(stdout, "nilscript v%s\n", versionString)
		return 0
	}

	logger := configureLogging(stderr, opts.verbose)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = ctxlog.WithLogger(ctx, logger)

	cfg, err := loadConfig(opts.configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		return 1
	}

	if endpoint := strings.TrimSpace(cfg.Observability.OTLPEndpoint); endpoint != "" {
		shutdown, err := observability.InitTracing(ctx, endpoint, cfg.Observability.Insecure)
		if err != nil {
			logger.Warn("tracing disabled", "error", err)
		} else {
			defer func() {
				flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = shutdown(flushCtx)
			}()
		}
	}

	a, err := coreapp.New(cfg, opts.configPath)
	if err != nil {
		logger.Error("failed to initialize app", "error", err)
		return 1
	}
	defer a.Close()

	rep := newReporter(stdout, !opts.noColor && colorEnabled(stdout))

	switch opts.command {
	case cmdSymbolicate:
		return runSymbolicate(a, opts.args, stdin, stdout, logger)
	case cmdFuncmap:
		lines, err := a.FunctionLines(opts.args[0])
		if err != nil {
			logger.Error("failed to load function map", "error", err)
			return 1
		}
		rep.FunctionLines(lines)
		return 0
	}

	if opts.watch {
		return runWatch(ctx, a, cfg, rep, logger)
	}

	summary, err := a.Build(ctx)
	if err != nil {
		logger.Error("build failed", "error", err)
		return 1
	}
	rep.Summary(*summary)
	if summary.Result.Failed() {
		return 1
	}
	return 0
}

func runSymbolicate(a *coreapp.App, args []string, stdin io.Reader, stdout io.Writer, logger *slog.Logger) int {
	text := strings.Join(args, " ")
	if len(args) == 0 {
		data, err := io.ReadAll(stdin)
		if err != nil {
			logger.Error("failed to read stdin", "error", err)
			return 1
		}
		text = string(data)
	}
	out, err := a.Symbolicate(text)
	if err != nil {
		logger.Error("symbolicate failed", "error", err)
		return 1
	}
	fmt.Fprint(stdout, out)
	if !strings.HasSuffix(out, "\n") {
		fmt.Fprintln(stdout)
	}
	return 0
}

func runWatch(ctx context.Context, a *coreapp.App, cfg *config.Config, rep *reporter, logger *slog.Logger) int {
	a.OnBuild(func(s coreapp.Summary) { rep.Summary(s) })

	if addr := strings.TrimSpace(cfg.Observability.MetricsAddress); addr != "" {
		server := NewObservabilityServer(addr, coreapp.NewHealthService(a))
		if err := server.Start(ctx); err != nil {
			logger.Error("failed to start observability server", "error", err)
			return 1
		}
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = server.Stop(stopCtx)
		}()
	}

	if err := a.Watch(ctx); err != nil {
		logger.Error("watch failed", "error", err)
		return 1
	}
	return 0
}

// loadConfig loads path, falling back to defaults when it does not exist,
// then applies environment overrides and the filesystem checks.
func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.LoadOrDefault(path)
	if err != nil {
		return nil, err
	}
	config.ApplyEnvOverrides(cfg)
	if errs := config.Validate(cfg); len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return cfg, nil
}

func configureLogging(out io.Writer, verbose bool) *slog.Logger {
	logLevel := slog.LevelInfo
	if verbose {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)
	return logger
}
