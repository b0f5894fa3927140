package config

import (
	"path/filepath"
	"strings"
)

// ResolvedPaths holds the configured paths made absolute against the
// config directory. Empty optional outputs stay empty.
type ResolvedPaths struct {
	ConfigDir   string
	Root        string
	Prepend     []string
	Append      []string
	Output      string
	SourceMap   string
	Symbols     string
	FunctionMap string
	DBPath      string
}

func ResolvePaths(cfg *Config) ResolvedPaths {
	dir := cfg.Dir
	if abs, err := filepath.Abs(dir); err == nil {
		dir = abs
	}
	optional := func(value string) string {
		if strings.TrimSpace(value) == "" {
			return ""
		}
		return ResolveRelative(dir, value)
	}
	all := func(values []string) []string {
		out := make([]string, 0, len(values))
		for _, v := range values {
			out = append(out, ResolveRelative(dir, v))
		}
		return out
	}

	return ResolvedPaths{
		ConfigDir:   dir,
		Root:        ResolveRelative(dir, cfg.Build.Root),
		Prepend:     all(cfg.Build.Prepend),
		Append:      all(cfg.Build.Append),
		Output:      optional(cfg.Build.Output),
		SourceMap:   optional(cfg.Build.SourceMap),
		Symbols:     optional(cfg.Build.Symbols),
		FunctionMap: optional(cfg.Build.FunctionMap),
		DBPath:      ResolveRelative(dir, cfg.DB.Path),
	}
}

func ResolveRelative(base, value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return filepath.Clean(base)
	}
	if filepath.IsAbs(value) {
		return filepath.Clean(value)
	}
	return filepath.Clean(filepath.Join(base, value))
}
