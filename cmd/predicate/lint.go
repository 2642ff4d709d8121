package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"mercator-hq/predicate/pkg/config"
	"mercator-hq/predicate/pkg/dag"
	"mercator-hq/predicate/pkg/engine"
)

var lintFlags struct {
	rules  string
	format string
}

var lintCmd = &cobra.Command{
	Use:   "lint",
	Short: "Validate a rule set",
	Long: `Parse a rule set file and build its expression graph, reporting every
problem found: YAML structure errors, duplicate or missing rule fields,
expression syntax errors, unknown operations, and per-operation argument
validation failures.

Examples:
  # Lint a rule set
  predicate lint --rules rules.yaml

  # JSON output for CI
  predicate lint --rules rules.yaml --format json`,
	RunE: lintRules,
}

func init() {
	rootCmd.AddCommand(lintCmd)

	lintCmd.Flags().StringVarP(&lintFlags.rules, "rules", "r", "", "rule set file to validate")
	lintCmd.Flags().StringVar(&lintFlags.format, "format", "text", "output format: text, json")
	lintCmd.MarkFlagRequired("rules")
}

// lintResult is the JSON shape of a lint run.
type lintResult struct {
	File   string   `json:"file"`
	Valid  bool     `json:"valid"`
	Rules  int      `json:"rules"`
	Nodes  int      `json:"nodes"`
	Errors []string `json:"errors,omitempty"`
}

func lintRules(cmd *cobra.Command, args []string) error {
	result := lintResult{File: lintFlags.rules, Valid: true}

	rs, err := config.LoadRuleSet(lintFlags.rules)
	if err != nil {
		result.Valid = false
		result.Errors = collectErrors(err)
	} else {
		result.Rules = len(rs.Rules)
		e, err := engine.New(rs, engine.Options{})
		if err != nil {
			result.Valid = false
			result.Errors = collectErrors(err)
		} else {
			result.Nodes = e.Graph().NumNodes()
		}
	}

	if lintFlags.format == "json" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(result); err != nil {
			return err
		}
	} else {
		if result.Valid {
			fmt.Printf("%s: ok (%d rules, %d nodes)\n", result.File, result.Rules, result.Nodes)
		} else {
			fmt.Printf("%s: invalid\n", result.File)
			for _, msg := range result.Errors {
				fmt.Printf("  - %s\n", msg)
			}
		}
	}

	if !result.Valid {
		return fmt.Errorf("rule set %q failed validation", lintFlags.rules)
	}
	return nil
}

// collectErrors flattens the known multi-error shapes into one message
// list.
func collectErrors(err error) []string {
	var cfgErr config.ValidationError
	if errors.As(err, &cfgErr) {
		msgs := make([]string, 0, len(cfgErr.Errors))
		for _, fe := range cfgErr.Errors {
			msgs = append(msgs, fe.Error())
		}
		return msgs
	}
	var dagErr *dag.ValidationError
	if errors.As(err, &dagErr) {
		issues := dagErr.Report.Errors()
		msgs := make([]string, 0, len(issues))
		for _, issue := range issues {
			msgs = append(msgs, issue.String())
		}
		return msgs
	}
	return []string{err.Error()}
}
