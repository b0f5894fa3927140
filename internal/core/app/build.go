package app

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"nilscript/internal/core/config"
	cerrors "nilscript/internal/core/errors"
	"nilscript/internal/core/ports"
	"nilscript/internal/data/symbolstore"
	"nilscript/internal/engine/compiler"
	"nilscript/internal/engine/generator"
	"nilscript/internal/shared/ctxlog"
	"nilscript/internal/shared/util"
)

// Build compiles the configured inputs, writes the outputs of a successful
// compile and records the build in the symbol store. Compile diagnostics
// are reported in the summary; the error is for infrastructure failures.
func (a *App) Build(ctx context.Context) (*Summary, error) {
	a.buildMu.Lock()
	defer a.buildMu.Unlock()

	start := time.Now()
	summary, err := a.build(ctx)
	if summary != nil {
		summary.Duration = time.Since(start)
	}

	a.mu.Lock()
	a.last, a.lastErr = summary, err
	fn := a.onBuild
	a.mu.Unlock()

	if err == nil && fn != nil {
		fn(*summary)
	}
	return summary, err
}

func (a *App) build(ctx context.Context) (*Summary, error) {
	a.mu.RLock()
	cfg, paths, filter, store := a.Config, a.paths, a.filter, a.store
	a.mu.RUnlock()
	logger := ctxlog.FromContext(ctx)

	inputs, err := filter.Discover()
	if err != nil {
		return nil, cerrors.AddContext(cerrors.Wrap(err, cerrors.CodeInternal, "discover inputs"), cerrors.CtxPath, filter.Root())
	}
	files, err := readInputs(filter.Root(), inputs)
	if err != nil {
		return nil, err
	}
	opts, err := compileOptions(cfg, paths, store, files)
	if err != nil {
		return nil, err
	}

	res, err := a.compiler.Compile(ctx, opts)
	if err != nil {
		return nil, err
	}
	summary := &Summary{Files: len(files), Result: res}

	if !res.Failed() {
		written, err := writeOutputs(cfg, paths, res)
		if err != nil {
			return nil, err
		}
		summary.Written = written
	}

	if store != nil {
		b, err := record(cfg, paths, store, res, len(files))
		if err != nil {
			return nil, cerrors.Wrap(err, cerrors.CodeInternal, "record build")
		}
		summary.BuildID = b.ID
		if deleted, err := store.Prune(cfg.DB.ProjectKey, cfg.DB.KeepBuilds); err != nil {
			logger.Warn("failed to prune builds", "error", err)
		} else if deleted > 0 {
			logger.Debug("pruned builds", "deleted", deleted)
		}
	}

	logger.Info("build finished",
		"files", len(files),
		"errors", len(res.Errors),
		"warnings", len(res.Warnings),
		"written", len(summary.Written),
	)
	return summary, nil
}

// readInputs loads every input and names it by its slash path relative to
// root, which is how it appears in diagnostics and maps.
func readInputs(root string, inputs []string) ([]compiler.File, error) {
	files := make([]compiler.File, 0, len(inputs))
	for _, path := range inputs {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, cerrors.AddContext(cerrors.Wrap(err, cerrors.CodeNotFound, "read input"), cerrors.CtxPath, path)
		}
		info, err := os.Stat(path)
		if err != nil {
			return nil, cerrors.AddContext(cerrors.Wrap(err, cerrors.CodeNotFound, "stat input"), cerrors.CtxPath, path)
		}
		files = append(files, compiler.File{
			Path:     displayPath(root, path),
			Contents: string(data),
			Time:     info.ModTime(),
		})
	}
	return files, nil
}

func displayPath(root, path string) string {
	if rel, err := filepath.Rel(root, path); err == nil && !strings.HasPrefix(rel, "..") {
		return filepath.ToSlash(rel)
	}
	return filepath.ToSlash(path)
}

func readLines(paths []string) ([]string, error) {
	var lines []string
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, cerrors.AddContext(cerrors.Wrap(err, cerrors.CodeNotFound, "read surrounding file"), cerrors.CtxPath, path)
		}
		lines = append(lines, strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")...)
	}
	return lines, nil
}

func compileOptions(cfg *config.Config, paths config.ResolvedPaths, store ports.SymbolStore, files []compiler.File) (compiler.Options, error) {
	mode, err := generator.ParseMode(cfg.Build.OutputLanguage)
	if err != nil {
		return compiler.Options{}, cerrors.Wrap(err, cerrors.CodeValidationError, "output language")
	}
	prepend, err := readLines(paths.Prepend)
	if err != nil {
		return compiler.Options{}, err
	}
	appended, err := readLines(paths.Append)
	if err != nil {
		return compiler.Options{}, err
	}

	persist := store != nil && cfg.Squeeze.Enabled && cfg.Squeeze.PersistEnabled(cfg.DB)
	var seed map[string]string
	if persist {
		if seed, err = store.LoadSqueezeMap(cfg.DB.ProjectKey); err != nil {
			return compiler.Options{}, cerrors.Wrap(err, cerrors.CodeInternal, "load squeeze map")
		}
	}

	opts := compiler.Options{
		Files:             files,
		Prepend:           prepend,
		Append:            appended,
		OutputLanguage:    mode,
		Squeeze:           cfg.Squeeze.Enabled,
		SqueezeStartIndex: cfg.Squeeze.StartIndex,
		SqueezeEndIndex:   cfg.Squeeze.EndIndex,
		SqueezeBuiltins:   cfg.Squeeze.Builtins,
		SqueezeSeed:       seed,
		CheckTypes:        cfg.CheckTypes.Enabled,
		Checker: compiler.CheckerOptions{
			Workers: cfg.CheckTypes.Workers,
			Command: cfg.CheckTypes.Command,
			Args:    cfg.CheckTypes.Args,
		},
		IncludeMap:         paths.SourceMap != "",
		IncludeSymbols:     paths.Symbols != "" || persist,
		IncludeFunctionMap: paths.FunctionMap != "" || store != nil,
		VerifyOutput:       cfg.Build.VerifyOutput,
		WarnMissingTypes:   cfg.Build.WarnMissingTypes,
	}
	if paths.Output != "" {
		opts.OutputFile = filepath.Base(paths.Output)
	}
	if len(cfg.Build.Builtins) > 0 {
		opts.Builtins = cfg.Build.Builtins
	}
	return opts, nil
}

func writeOutputs(cfg *config.Config, paths config.ResolvedPaths, res *compiler.Result) ([]string, error) {
	var written []string
	write := func(path string, data []byte) error {
		if err := util.WriteFileWithDirs(path, data, 0o644); err != nil {
			return cerrors.AddContext(cerrors.Wrap(err, cerrors.CodeInternal, "write output"), cerrors.CtxPath, path)
		}
		written = append(written, path)
		return nil
	}

	if paths.Output != "" && cfg.Build.OutputLanguage != "none" {
		code := res.Code
		if paths.SourceMap != "" && res.Map != nil {
			ref := filepath.Base(paths.SourceMap)
			if rel, err := filepath.Rel(filepath.Dir(paths.Output), paths.SourceMap); err == nil {
				ref = filepath.ToSlash(rel)
			}
			code += "\n//# sourceMappingURL=" + ref
		}
		if err := write(paths.Output, []byte(code+"\n")); err != nil {
			return nil, err
		}
	}
	if paths.SourceMap != "" && res.Map != nil {
		if err := write(paths.SourceMap, res.Map); err != nil {
			return nil, err
		}
	}
	if paths.Symbols != "" && res.Symbols != nil {
		data, err := json.MarshalIndent(res.Symbols, "", "  ")
		if err != nil {
			return nil, cerrors.Wrap(err, cerrors.CodeInternal, "encode symbols")
		}
		if err := write(paths.Symbols, append(data, '\n')); err != nil {
			return nil, err
		}
	}
	if paths.FunctionMap != "" && res.FunctionMap != nil {
		data, err := json.MarshalIndent(res.FunctionMap, "", "  ")
		if err != nil {
			return nil, cerrors.Wrap(err, cerrors.CodeInternal, "encode function map")
		}
		if err := write(paths.FunctionMap, append(data, '\n')); err != nil {
			return nil, err
		}
	}
	return written, nil
}

func record(cfg *config.Config, paths config.ResolvedPaths, store ports.SymbolStore, res *compiler.Result, files int) (symbolstore.Build, error) {
	var table map[string]string
	if !res.Failed() && cfg.Squeeze.Enabled && cfg.Squeeze.PersistEnabled(cfg.DB) {
		table = res.Symbols
	}
	return store.RecordBuild(symbolstore.Build{
		ProjectKey:   cfg.DB.ProjectKey,
		OutputPath:   paths.Output,
		FileCount:    files,
		ErrorCount:   len(res.Errors),
		WarningCount: len(res.Warnings),
	}, table, functionLines(res.FunctionMap))
}

func functionLines(fm map[string][]compiler.FuncMapEntry) []symbolstore.FunctionLine {
	var lines []symbolstore.FunctionLine
	for _, path := range util.SortedStringKeys(fm) {
		for _, entry := range fm[path] {
			line, ok := entry[0].(int)
			if !ok {
				continue
			}
			signature, _ := entry[1].(string)
			lines = append(lines, symbolstore.FunctionLine{Path: path, Line: line, Signature: signature})
		}
	}
	return lines
}
