package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("writing %s: %v", name, err)
	}
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	path := writeFile(t, "config.yaml", `
rules:
  path: rules.yaml
`)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Rules.WatchDebounce != DefaultWatchDebounce {
		t.Errorf("WatchDebounce = %v, want %v", cfg.Rules.WatchDebounce, DefaultWatchDebounce)
	}
	if cfg.Eval.MaxTransformPasses != DefaultMaxTransformPasses {
		t.Errorf("MaxTransformPasses = %d, want %d", cfg.Eval.MaxTransformPasses, DefaultMaxTransformPasses)
	}
	if cfg.Trace.Retention != DefaultTraceRetention {
		t.Errorf("Retention = %v, want %v", cfg.Trace.Retention, DefaultTraceRetention)
	}
	if cfg.Logging.Level != "info" || cfg.Logging.Format != "json" {
		t.Errorf("logging defaults = %s/%s, want info/json", cfg.Logging.Level, cfg.Logging.Format)
	}
}

func TestLoadConfigExplicitValues(t *testing.T) {
	path := writeFile(t, "config.yaml", `
rules:
  path: rules.yaml
  watch: true
  watch_debounce: 2s
eval:
  profiling: true
  max_transform_passes: 3
trace:
  enabled: true
  path: trace.db
  retention: 24h
logging:
  level: debug
  format: text
`)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if !cfg.Rules.Watch || cfg.Rules.WatchDebounce != 2*time.Second {
		t.Errorf("rules = %+v", cfg.Rules)
	}
	if !cfg.Eval.Profiling || cfg.Eval.MaxTransformPasses != 3 {
		t.Errorf("eval = %+v", cfg.Eval)
	}
	if !cfg.Trace.Enabled || cfg.Trace.Path != "trace.db" || cfg.Trace.Retention != 24*time.Hour {
		t.Errorf("trace = %+v", cfg.Trace)
	}
}

func TestLoadConfigRejectsUnknownFields(t *testing.T) {
	path := writeFile(t, "config.yaml", `
rules:
  path: rules.yaml
  debuonce: 2s
`)
	if _, err := LoadConfig(path); err == nil {
		t.Errorf("LoadConfig accepted a misspelled field")
	}
}

func TestValidateCollectsErrors(t *testing.T) {
	cfg := &Config{}
	cfg.Trace.Enabled = true
	cfg.Logging.Level = "loud"
	cfg.Logging.Format = "json"

	err := Validate(cfg)
	if err == nil {
		t.Fatalf("Validate accepted an invalid configuration")
	}
	var verr ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("Validate returned %T, want ValidationError", err)
	}
	// Missing rules.path, missing trace.path, bad level.
	if len(verr.Errors) != 3 {
		t.Errorf("got %d errors, want 3: %v", len(verr.Errors), verr)
	}
}

func TestEnvOverrides(t *testing.T) {
	path := writeFile(t, "config.yaml", `
rules:
  path: rules.yaml
`)
	t.Setenv("PREDICATE_LOGGING_LEVEL", "debug")
	t.Setenv("PREDICATE_EVAL_PROFILING", "true")

	cfg, err := LoadConfigWithEnvOverrides(path)
	if err != nil {
		t.Fatalf("LoadConfigWithEnvOverrides: %v", err)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Level = %s, want debug", cfg.Logging.Level)
	}
	if !cfg.Eval.Profiling {
		t.Errorf("Profiling not overridden")
	}
}

func TestLoadRuleSet(t *testing.T) {
	path := writeFile(t, "rules.yaml", `
rules:
  - id: block-admin
    phase: request_header
    expr: "(eq 'admin' (var 'path'))"
  - id: long-response
    phase: response
    expr: "(gt 1000 (var 'response_size'))"
`)
	rs, err := LoadRuleSet(path)
	if err != nil {
		t.Fatalf("LoadRuleSet: %v", err)
	}
	if len(rs.Rules) != 2 {
		t.Fatalf("got %d rules, want 2", len(rs.Rules))
	}
	if rs.Rules[0].ID != "block-admin" || rs.Rules[0].Phase != "request_header" {
		t.Errorf("first rule = %+v", rs.Rules[0])
	}
}

func TestRuleSetValidation(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{
			"duplicate id",
			`
rules:
  - {id: a, phase: request, expr: "(x)"}
  - {id: a, phase: request, expr: "(y)"}
`,
		},
		{
			"unknown phase",
			`
rules:
  - {id: a, phase: teardown, expr: "(x)"}
`,
		},
		{
			"missing expr",
			`
rules:
  - {id: a, phase: request}
`,
		},
		{
			"unknown field",
			`
rules:
  - {id: a, phase: request, expr: "(x)", priority: 3}
`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseRuleSet([]byte(tt.yaml)); err == nil {
				t.Errorf("ParseRuleSet accepted %s", tt.name)
			}
		})
	}
}
