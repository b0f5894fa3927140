package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// ApplyEnvOverrides applies environment variable overrides to the configuration.
// Pattern: NILSCRIPT_[SECTION]_[KEY] (e.g., NILSCRIPT_DB_PATH).
func ApplyEnvOverrides(cfg *Config) {
	// Build
	setEnvString(&cfg.Build.Output, "NILSCRIPT_BUILD_OUTPUT")
	setEnvString(&cfg.Build.OutputLanguage, "NILSCRIPT_BUILD_OUTPUT_LANGUAGE")
	setEnvBool(&cfg.Build.VerifyOutput, "NILSCRIPT_BUILD_VERIFY_OUTPUT")

	// Squeeze
	setEnvBool(&cfg.Squeeze.Enabled, "NILSCRIPT_SQUEEZE_ENABLED")

	// Type checking
	setEnvBool(&cfg.CheckTypes.Enabled, "NILSCRIPT_CHECK_TYPES_ENABLED")
	setEnvString(&cfg.CheckTypes.Command, "NILSCRIPT_CHECK_TYPES_COMMAND")
	setEnvInt(&cfg.CheckTypes.Workers, "NILSCRIPT_CHECK_TYPES_WORKERS")

	// Watch
	setEnvDuration(&cfg.Watch.Debounce, "NILSCRIPT_WATCH_DEBOUNCE")

	// Database
	setEnvBool(&cfg.DB.Enabled, "NILSCRIPT_DB_ENABLED")
	setEnvString(&cfg.DB.Path, "NILSCRIPT_DB_PATH")
	setEnvString(&cfg.DB.ProjectKey, "NILSCRIPT_DB_PROJECT_KEY")

	// Observability
	setEnvString(&cfg.Observability.MetricsAddress, "NILSCRIPT_OBSERVABILITY_METRICS_ADDRESS")
	setEnvString(&cfg.Observability.OTLPEndpoint, "NILSCRIPT_OBSERVABILITY_OTLP_ENDPOINT")
	setEnvBool(&cfg.Observability.Insecure, "NILSCRIPT_OBSERVABILITY_INSECURE")
}

func setEnvString(target *string, key string) {
	if val, ok := os.LookupEnv(key); ok {
		slog.Debug("applying env override", "key", key, "value", val)
		*target = val
	}
}

func setEnvInt(target *int, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(val); err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = i
		}
	}
}

func setEnvBool(target *bool, key string) {
	if val, ok := os.LookupEnv(key); ok {
		b, err := strconv.ParseBool(strings.ToLower(val))
		if err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = b
		}
	}
}

func setEnvDuration(target *time.Duration, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(val); err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = d
		}
	}
}
