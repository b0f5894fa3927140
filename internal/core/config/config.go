// Package config loads nilscript.toml, the build definition used by the CLI
// and watch mode.
package config

import (
	"time"
)

const (
	DefaultFileName = "nilscript.toml"
	currentVersion  = 1
)

type Config struct {
	Version       int           `toml:"version"`
	Build         Build         `toml:"build"`
	Squeeze       Squeeze       `toml:"squeeze"`
	CheckTypes    CheckTypes    `toml:"check_types"`
	Watch         Watch         `toml:"watch"`
	DB            Database      `toml:"db"`
	Observability Observability `toml:"observability"`

	// Dir is the directory of the loaded file. Relative paths resolve
	// against it.
	Dir string `toml:"-"`
}

type Build struct {
	// Root is the directory input globs are matched in.
	Root    string   `toml:"root"`
	Inputs  []string `toml:"inputs"`
	Exclude []string `toml:"exclude"`
	// Prepend and Append name files whose lines surround the output.
	Prepend []string `toml:"prepend"`
	Append  []string `toml:"append"`

	Output         string `toml:"output"`
	SourceMap      string `toml:"source_map"`
	Symbols        string `toml:"symbols"`
	FunctionMap    string `toml:"function_map"`
	OutputLanguage string `toml:"output_language"`

	WarnMissingTypes bool     `toml:"warn_missing_types"`
	VerifyOutput     bool     `toml:"verify_output"`
	Builtins         []string `toml:"builtins"`
}

type Squeeze struct {
	Enabled    bool     `toml:"enabled"`
	StartIndex int      `toml:"start_index"`
	EndIndex   int      `toml:"end_index"`
	Builtins   []string `toml:"builtins"`
	// Persist reuses the symbol store's table so short names survive
	// restarts. Defaults to db.enabled.
	Persist *bool `toml:"persist"`
}

type CheckTypes struct {
	Enabled bool     `toml:"enabled"`
	Workers int      `toml:"workers"`
	Command string   `toml:"command"`
	Args    []string `toml:"args"`
}

type Watch struct {
	Debounce time.Duration `toml:"debounce"`
	// RebuildRate caps rebuilds per second; RebuildBurst allows short bursts.
	RebuildRate  float64 `toml:"rebuild_rate"`
	RebuildBurst int     `toml:"rebuild_burst"`
	ReloadConfig *bool   `toml:"reload_config"`
}

type Database struct {
	Enabled    bool   `toml:"enabled"`
	Path       string `toml:"path"`
	ProjectKey string `toml:"project_key"`
	KeepBuilds int    `toml:"keep_builds"`
}

type Observability struct {
	MetricsAddress string `toml:"metrics_address"`
	OTLPEndpoint   string `toml:"otlp_endpoint"`
	Insecure       bool   `toml:"insecure"`
	ServiceName    string `toml:"service_name"`
}

// DefaultConfig returns the configuration used when no file exists.
func DefaultConfig() *Config {
	cfg := &Config{Dir: "."}
	applyDefaults(cfg)
	normalize(cfg)
	return cfg
}

func (s Squeeze) PersistEnabled(db Database) bool {
	if s.Persist == nil {
		return db.Enabled
	}
	return *s.Persist
}

func (w Watch) ReloadEnabled() bool {
	return w.ReloadConfig == nil || *w.ReloadConfig
}
