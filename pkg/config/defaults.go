package config

import "time"

// Default values applied to zero fields after parsing.
const (
	DefaultWatchDebounce      = 500 * time.Millisecond
	DefaultMaxTransformPasses = 10
	DefaultTraceRetention     = 168 * time.Hour
	DefaultPruneSchedule      = "0 * * * *"
	DefaultMetricsNamespace   = "predicate"
	DefaultMetricsListen      = "127.0.0.1:9100"
	DefaultLogLevel           = "info"
	DefaultLogFormat          = "json"
)

// ApplyDefaults fills in default values for any zero-valued fields.
func ApplyDefaults(cfg *Config) {
	if cfg.Rules.WatchDebounce == 0 {
		cfg.Rules.WatchDebounce = DefaultWatchDebounce
	}
	if cfg.Eval.MaxTransformPasses == 0 {
		cfg.Eval.MaxTransformPasses = DefaultMaxTransformPasses
	}
	if cfg.Trace.Retention == 0 {
		cfg.Trace.Retention = DefaultTraceRetention
	}
	if cfg.Trace.PruneSchedule == "" {
		cfg.Trace.PruneSchedule = DefaultPruneSchedule
	}
	if cfg.Metrics.Namespace == "" {
		cfg.Metrics.Namespace = DefaultMetricsNamespace
	}
	if cfg.Metrics.ListenAddress == "" {
		cfg.Metrics.ListenAddress = DefaultMetricsListen
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = DefaultLogLevel
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = DefaultLogFormat
	}
}
