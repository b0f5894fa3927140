package app

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"

	cerrors "nilscript/internal/core/errors"
	"nilscript/internal/data/symbolstore"
	"nilscript/internal/engine/symbols"
)

// Symbolicate rewrites generated names in text, such as a stack trace, to
// readable ones. It uses the symbol store when open, then the symbols file,
// and always demangles names that were never squeezed.
func (a *App) Symbolicate(text string) (string, error) {
	a.mu.RLock()
	cfg, paths, store := a.Config, a.paths, a.store
	a.mu.RUnlock()

	if store != nil {
		return store.Symbolicate(cfg.DB.ProjectKey, text)
	}
	table := map[string]string{}
	if paths.Symbols != "" {
		data, err := os.ReadFile(paths.Symbols)
		switch {
		case err == nil:
			if err := json.Unmarshal(data, &table); err != nil {
				return "", cerrors.AddContext(cerrors.Wrap(err, cerrors.CodeValidationError, "decode symbols"), cerrors.CtxPath, paths.Symbols)
			}
		case !os.IsNotExist(err):
			return "", cerrors.AddContext(cerrors.Wrap(err, cerrors.CodeInternal, "read symbols"), cerrors.CtxPath, paths.Symbols)
		}
	}
	return symbols.FromSymbols(table).Symbolicate(text), nil
}

// FunctionLines returns the function map of one input from the latest
// build. path may be absolute or relative to the build root.
func (a *App) FunctionLines(path string) ([]symbolstore.FunctionLine, error) {
	a.mu.RLock()
	cfg, paths, store, root := a.Config, a.paths, a.store, a.filter.Root()
	a.mu.RUnlock()

	name := filepath.ToSlash(path)
	if filepath.IsAbs(path) {
		name = displayPath(root, path)
	}

	if store != nil {
		b, ok, err := store.LatestBuild(cfg.DB.ProjectKey)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, cerrors.New(cerrors.CodeNotFound, "no recorded builds")
		}
		return store.FunctionLines(b.ID, name)
	}

	if paths.FunctionMap == "" {
		return nil, cerrors.New(cerrors.CodeNotSupported, "function maps need db.enabled or build.function_map")
	}
	data, err := os.ReadFile(paths.FunctionMap)
	if err != nil {
		return nil, cerrors.AddContext(cerrors.Wrap(err, cerrors.CodeNotFound, "read function map"), cerrors.CtxPath, paths.FunctionMap)
	}
	var raw map[string][][2]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, cerrors.AddContext(cerrors.Wrap(err, cerrors.CodeValidationError, "decode function map"), cerrors.CtxPath, paths.FunctionMap)
	}
	lines := make([]symbolstore.FunctionLine, 0, len(raw[name]))
	for _, entry := range raw[name] {
		line, ok := entry[0].(float64)
		if !ok {
			continue
		}
		signature, _ := entry[1].(string)
		lines = append(lines, symbolstore.FunctionLine{Path: name, Line: int(line), Signature: signature})
	}
	sort.SliceStable(lines, func(i, j int) bool { return lines[i].Line < lines[j].Line })
	return lines, nil
}
