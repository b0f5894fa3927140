package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gobwas/glob"

	cerrors "nilscript/internal/core/errors"
	"nilscript/internal/engine/generator"
)

func invalid(format string, args ...any) error {
	return cerrors.New(cerrors.CodeValidationError, fmt.Sprintf(format, args...))
}

func validateVersion(cfg *Config) error {
	if cfg.Version < 1 {
		return invalid("version must be >= 1, got %d", cfg.Version)
	}
	if cfg.Version > currentVersion {
		return invalid("unsupported config version %d; supported version is %d", cfg.Version, currentVersion)
	}
	return nil
}

func validateBuild(cfg *Config) error {
	if _, err := generator.ParseMode(cfg.Build.OutputLanguage); err != nil {
		return invalid("build.output_language must be one of: plain, typecheck, none (got %q)", cfg.Build.OutputLanguage)
	}
	if len(cfg.Build.Inputs) == 0 {
		return invalid("build.inputs must not be empty")
	}
	for i, p := range cfg.Build.Inputs {
		if _, err := glob.Compile(p, '/'); err != nil {
			return invalid("build.inputs[%d] %q is not a valid glob: %v", i, p, err)
		}
	}
	for i, p := range cfg.Build.Exclude {
		if _, err := glob.Compile(p, '/'); err != nil {
			return invalid("build.exclude[%d] %q is not a valid glob: %v", i, p, err)
		}
	}

	outputs := map[string]string{}
	for _, target := range []struct{ key, path string }{
		{"build.output", cfg.Build.Output},
		{"build.source_map", cfg.Build.SourceMap},
		{"build.symbols", cfg.Build.Symbols},
		{"build.function_map", cfg.Build.FunctionMap},
	} {
		if target.path == "" {
			continue
		}
		clean := filepath.Clean(target.path)
		if prev, ok := outputs[clean]; ok {
			return invalid("%s and %s both write %q", prev, target.key, target.path)
		}
		outputs[clean] = target.key
	}
	if cfg.Build.SourceMap != "" && cfg.Build.OutputLanguage != "plain" {
		return invalid("build.source_map requires output_language = \"plain\"")
	}
	return nil
}

func validateSqueeze(cfg *Config) error {
	s := cfg.Squeeze
	if s.StartIndex < 0 {
		return invalid("squeeze.start_index must be >= 0, got %d", s.StartIndex)
	}
	if s.EndIndex < 0 {
		return invalid("squeeze.end_index must be >= 0, got %d", s.EndIndex)
	}
	if s.EndIndex > 0 && s.EndIndex < s.StartIndex {
		return invalid("squeeze.end_index (%d) must not be below start_index (%d)", s.EndIndex, s.StartIndex)
	}
	if s.Persist != nil && *s.Persist && !cfg.DB.Enabled {
		return invalid("squeeze.persist requires db.enabled")
	}
	return nil
}

func validateCheckTypes(cfg *Config) error {
	if !cfg.CheckTypes.Enabled {
		return nil
	}
	if cfg.CheckTypes.Command == "" {
		return invalid("check_types.command is required when check_types.enabled is true")
	}
	if cfg.Build.OutputLanguage == "typecheck" {
		return invalid("check_types cannot be combined with output_language = \"typecheck\"")
	}
	return nil
}

func validateWatch(cfg *Config) error {
	if cfg.Watch.Debounce < 0 {
		return invalid("watch.debounce must not be negative")
	}
	if cfg.Watch.RebuildRate < 0 {
		return invalid("watch.rebuild_rate must not be negative")
	}
	if cfg.Watch.RebuildBurst < 1 {
		return invalid("watch.rebuild_burst must be >= 1")
	}
	return nil
}

func validateDatabase(cfg *Config) error {
	if !cfg.DB.Enabled {
		return nil
	}
	if cfg.DB.KeepBuilds < 1 {
		return invalid("db.keep_builds must be >= 1")
	}
	return nil
}

// Validate runs every check and collects all failures, including checks
// against the filesystem that Load skips.
func Validate(cfg *Config) []error {
	var errs []error
	for _, check := range []func(*Config) error{
		validateVersion,
		validateBuild,
		validateSqueeze,
		validateCheckTypes,
		validateWatch,
		validateDatabase,
	} {
		if err := check(cfg); err != nil {
			errs = append(errs, err)
		}
	}
	errs = append(errs, validatePaths(cfg)...)
	return errs
}

func validatePaths(cfg *Config) []error {
	var errs []error
	paths := ResolvePaths(cfg)

	if stat, err := os.Stat(paths.Root); os.IsNotExist(err) {
		errs = append(errs, invalid("build.root %q does not exist", cfg.Build.Root))
	} else if err == nil && !stat.IsDir() {
		errs = append(errs, invalid("build.root %q is not a directory", cfg.Build.Root))
	}
	for i, p := range paths.Prepend {
		if _, err := os.Stat(p); os.IsNotExist(err) {
			errs = append(errs, invalid("build.prepend[%d] %q does not exist", i, cfg.Build.Prepend[i]))
		}
	}
	for i, p := range paths.Append {
		if _, err := os.Stat(p); os.IsNotExist(err) {
			errs = append(errs, invalid("build.append[%d] %q does not exist", i, cfg.Build.Append[i]))
		}
	}
	return errs
}
