package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// LoadConfig loads configuration from a YAML file, applies defaults, and
// validates the result.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var cfg Config
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration from a YAML file and then
// applies environment variable overrides of the form PREDICATE_SECTION_FIELD
// (e.g. PREDICATE_RULES_PATH). Overrides always win over file values.
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed after environment overrides: %w", err)
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if val := os.Getenv("PREDICATE_RULES_PATH"); val != "" {
		cfg.Rules.Path = val
	}
	if val := os.Getenv("PREDICATE_RULES_WATCH"); val != "" {
		cfg.Rules.Watch = val == "true" || val == "1"
	}
	if val := os.Getenv("PREDICATE_RULES_WATCH_DEBOUNCE"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Rules.WatchDebounce = d
		}
	}
	if val := os.Getenv("PREDICATE_EVAL_PROFILING"); val != "" {
		cfg.Eval.Profiling = val == "true" || val == "1"
	}
	if val := os.Getenv("PREDICATE_TRACE_PATH"); val != "" {
		cfg.Trace.Path = val
	}
	if val := os.Getenv("PREDICATE_METRICS_NAMESPACE"); val != "" {
		cfg.Metrics.Namespace = val
	}
	if val := os.Getenv("PREDICATE_LOGGING_LEVEL"); val != "" {
		cfg.Logging.Level = val
	}
	if val := os.Getenv("PREDICATE_LOGGING_FORMAT"); val != "" {
		cfg.Logging.Format = val
	}
}
