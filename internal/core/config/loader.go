package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	cerrors "nilscript/internal/core/errors"
	"nilscript/internal/shared/util"
)

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, cerrors.AddContext(cerrors.Wrap(err, cerrors.CodeNotFound, "read config"), cerrors.CtxPath, path)
	}

	var cfg Config
	if _, err := toml.Decode(string(data), &cfg); err != nil {
		return nil, cerrors.AddContext(cerrors.Wrap(err, cerrors.CodeValidationError, "decode config"), cerrors.CtxPath, path)
	}
	cfg.Dir = filepath.Dir(path)

	applyDefaults(&cfg)
	normalize(&cfg)

	if err := validateVersion(&cfg); err != nil {
		return nil, err
	}
	if err := validateBuild(&cfg); err != nil {
		return nil, err
	}
	if err := validateSqueeze(&cfg); err != nil {
		return nil, err
	}
	if err := validateCheckTypes(&cfg); err != nil {
		return nil, err
	}
	if err := validateWatch(&cfg); err != nil {
		return nil, err
	}
	if err := validateDatabase(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// LoadOrDefault loads path, or returns the defaults rooted at the directory
// of path when the file does not exist.
func LoadOrDefault(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg := &Config{Dir: filepath.Dir(path)}
		applyDefaults(cfg)
		normalize(cfg)
		return cfg, nil
	}
	return Load(path)
}

func applyDefaults(cfg *Config) {
	if cfg.Version == 0 {
		cfg.Version = currentVersion
	}
	if strings.TrimSpace(cfg.Dir) == "" {
		cfg.Dir = "."
	}

	if strings.TrimSpace(cfg.Build.Root) == "" {
		cfg.Build.Root = "."
	}
	if len(cfg.Build.Inputs) == 0 {
		cfg.Build.Inputs = []string{"**.ns"}
	}
	if strings.TrimSpace(cfg.Build.Output) == "" {
		cfg.Build.Output = "build/out.js"
	}
	if strings.TrimSpace(cfg.Build.OutputLanguage) == "" {
		cfg.Build.OutputLanguage = "plain"
	}

	if cfg.CheckTypes.Workers <= 0 {
		cfg.CheckTypes.Workers = 1
	}

	if cfg.Watch.Debounce == 0 {
		cfg.Watch.Debounce = 500 * time.Millisecond
	}
	if cfg.Watch.RebuildRate == 0 {
		cfg.Watch.RebuildRate = 2
	}
	if cfg.Watch.RebuildBurst == 0 {
		cfg.Watch.RebuildBurst = 1
	}

	if strings.TrimSpace(cfg.DB.Path) == "" {
		cfg.DB.Path = ".nilscript/symbols.db"
	}
	if cfg.DB.KeepBuilds == 0 {
		cfg.DB.KeepBuilds = 20
	}

	if strings.TrimSpace(cfg.Observability.ServiceName) == "" {
		cfg.Observability.ServiceName = "nilscript"
	}
}

func normalize(cfg *Config) {
	cfg.Build.OutputLanguage = strings.ToLower(strings.TrimSpace(cfg.Build.OutputLanguage))
	cfg.Build.Inputs = normalizePatterns(cfg.Build.Inputs)
	cfg.Build.Exclude = normalizePatterns(cfg.Build.Exclude)
	cfg.CheckTypes.Command = strings.TrimSpace(cfg.CheckTypes.Command)
	cfg.DB.ProjectKey = strings.TrimSpace(cfg.DB.ProjectKey)
	if cfg.DB.ProjectKey == "" {
		if abs, err := filepath.Abs(ResolveRelative(cfg.Dir, cfg.Build.Root)); err == nil {
			cfg.DB.ProjectKey = filepath.Base(abs)
		}
	}
}

func normalizePatterns(patterns []string) []string {
	out := make([]string, 0, len(patterns))
	for _, p := range patterns {
		if p = util.NormalizePatternPath(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
