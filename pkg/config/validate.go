package config

import (
	"fmt"
	"strings"
)

// FieldError is a validation error for one configuration field.
type FieldError struct {
	// Field is the dotted path to the field (e.g., "rules.path").
	Field string

	// Message is a human-readable error message.
	Message string
}

// Error returns the message for this field error.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError collects every validation failure in a configuration.
type ValidationError struct {
	Errors []FieldError
}

// Error returns a formatted string containing all validation errors.
func (e ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "configuration validation failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration validation failed: %s", e.Errors[0].Error())
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "configuration validation failed with %d errors:\n", len(e.Errors))
	for _, err := range e.Errors {
		fmt.Fprintf(&sb, "  - %s\n", err.Error())
	}
	return sb.String()
}

var validLogLevels = map[string]bool{
	"debug": true, "info": true, "warn": true, "error": true,
}

var validLogFormats = map[string]bool{
	"json": true, "text": true,
}

// Validate checks the whole configuration, collecting every failure
// instead of stopping at the first.
func Validate(cfg *Config) error {
	var errs []FieldError

	if cfg.Rules.Path == "" {
		errs = append(errs, FieldError{"rules.path", "must be set"})
	}
	if cfg.Rules.WatchDebounce < 0 {
		errs = append(errs, FieldError{"rules.watch_debounce", "must not be negative"})
	}
	if cfg.Eval.MaxTransformPasses < 0 {
		errs = append(errs, FieldError{"eval.max_transform_passes", "must not be negative"})
	}
	if cfg.Trace.Enabled && cfg.Trace.Path == "" {
		errs = append(errs, FieldError{"trace.path", "must be set when trace is enabled"})
	}
	if cfg.Trace.Retention < 0 {
		errs = append(errs, FieldError{"trace.retention", "must not be negative"})
	}
	if !validLogLevels[cfg.Logging.Level] {
		errs = append(errs, FieldError{"logging.level", fmt.Sprintf("unknown level %q", cfg.Logging.Level)})
	}
	if !validLogFormats[cfg.Logging.Format] {
		errs = append(errs, FieldError{"logging.format", fmt.Sprintf("unknown format %q", cfg.Logging.Format)})
	}

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}
	return nil
}
