// Package config defines the engine configuration file format and the rule
// set format, with loading, defaulting, and validation.
package config

import "time"

// Config is the root configuration structure for the predicate engine.
type Config struct {
	// Rules configures where rule expressions are loaded from and whether
	// the file is watched for changes.
	Rules RulesConfig `yaml:"rules"`

	// Eval configures evaluation behavior shared by all runs.
	Eval EvalConfig `yaml:"eval"`

	// Trace configures the evaluation trace store.
	Trace TraceConfig `yaml:"trace"`

	// Metrics configures Prometheus metrics exposition.
	Metrics MetricsConfig `yaml:"metrics"`

	// Logging configures the structured logger.
	Logging LoggingConfig `yaml:"logging"`
}

// RulesConfig locates the rule set.
type RulesConfig struct {
	// Path is the rule set YAML file.
	Path string `yaml:"path"`

	// Watch enables hot reloading when the rule set file changes.
	// Default: false
	Watch bool `yaml:"watch"`

	// WatchDebounce is how long to wait after a file change before
	// reloading, coalescing editor write bursts into one reload.
	// Default: 500ms
	WatchDebounce time.Duration `yaml:"watch_debounce"`
}

// EvalConfig controls per-run evaluation behavior.
type EvalConfig struct {
	// Profiling enables per-node timing collection on every run.
	// Default: false
	Profiling bool `yaml:"profiling"`

	// MaxTransformPasses bounds the transform fixpoint loop when the
	// graph is built. Zero means the default.
	// Default: 10
	MaxTransformPasses int `yaml:"max_transform_passes"`
}

// TraceConfig controls the SQLite evaluation trace store.
type TraceConfig struct {
	// Enabled turns trace recording on.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Path is the SQLite database file. Required when enabled.
	Path string `yaml:"path"`

	// Retention is how long recorded runs are kept before pruning.
	// Default: 168h (one week)
	Retention time.Duration `yaml:"retention"`

	// PruneSchedule is a cron expression for the retention pruner.
	// Default: "0 * * * *" (hourly)
	PruneSchedule string `yaml:"prune_schedule"`
}

// MetricsConfig controls Prometheus metrics.
type MetricsConfig struct {
	// Enabled turns metric collection on.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Namespace prefixes every metric name.
	// Default: "predicate"
	Namespace string `yaml:"namespace"`

	// ListenAddress is where the exposition endpoint is served when the
	// engine runs standalone.
	// Default: "127.0.0.1:9100"
	ListenAddress string `yaml:"listen_address"`
}

// LoggingConfig controls the structured logger.
type LoggingConfig struct {
	// Level is one of "debug", "info", "warn", "error".
	// Default: "info"
	Level string `yaml:"level"`

	// Format is "json" or "text".
	// Default: "json"
	Format string `yaml:"format"`
}
