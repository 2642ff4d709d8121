package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Rule is one rule entry: an expression evaluated at a given phase.
type Rule struct {
	// ID uniquely identifies the rule within the set.
	ID string `yaml:"id"`

	// Phase names the processing phase the rule's result is read at.
	// One of "request_header", "request", "response_header", "response",
	// "postprocess".
	Phase string `yaml:"phase"`

	// Expr is the rule expression in s-expression form.
	Expr string `yaml:"expr"`
}

// RuleSet is the rule file contents.
type RuleSet struct {
	Rules []Rule `yaml:"rules"`
}

var validPhases = map[string]bool{
	"request_header":  true,
	"request":         true,
	"response_header": true,
	"response":        true,
	"postprocess":     true,
}

// LoadRuleSet loads and validates a rule set YAML file.
func LoadRuleSet(path string) (*RuleSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rule set %q: %w", path, err)
	}
	return ParseRuleSet(data)
}

// ParseRuleSet parses and validates rule set YAML.
func ParseRuleSet(data []byte) (*RuleSet, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var rs RuleSet
	if err := dec.Decode(&rs); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse rule set: %w", err)
	}
	if err := rs.Validate(); err != nil {
		return nil, err
	}
	return &rs, nil
}

// Validate checks every rule, collecting all failures.
func (rs *RuleSet) Validate() error {
	var errs []FieldError
	seen := make(map[string]bool, len(rs.Rules))
	for i, rule := range rs.Rules {
		field := func(name string) string {
			return fmt.Sprintf("rules[%d].%s", i, name)
		}
		switch {
		case rule.ID == "":
			errs = append(errs, FieldError{field("id"), "must be set"})
		case seen[rule.ID]:
			errs = append(errs, FieldError{field("id"), fmt.Sprintf("duplicate id %q", rule.ID)})
		default:
			seen[rule.ID] = true
		}
		if !validPhases[rule.Phase] {
			errs = append(errs, FieldError{field("phase"), fmt.Sprintf("unknown phase %q", rule.Phase)})
		}
		if rule.Expr == "" {
			errs = append(errs, FieldError{field("expr"), "must be set"})
		}
	}
	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}
	return nil
}
