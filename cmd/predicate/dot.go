package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"mercator-hq/predicate/pkg/config"
	"mercator-hq/predicate/pkg/engine"
)

var dotFlags struct {
	rules  string
	output string
}

var dotCmd = &cobra.Command{
	Use:   "dot",
	Short: "Export the merged expression graph as Graphviz dot",
	Long: `Build the rule set's expression graph (merging shared subexpressions
and folding constants) and write it in Graphviz dot form.

Examples:
  predicate dot --rules rules.yaml | dot -Tsvg -o graph.svg`,
	RunE: writeDot,
}

func init() {
	rootCmd.AddCommand(dotCmd)

	dotCmd.Flags().StringVarP(&dotFlags.rules, "rules", "r", "", "rule set file")
	dotCmd.Flags().StringVarP(&dotFlags.output, "output", "o", "", "output file (default stdout)")
	dotCmd.MarkFlagRequired("rules")
}

func writeDot(cmd *cobra.Command, args []string) error {
	rs, err := config.LoadRuleSet(dotFlags.rules)
	if err != nil {
		return err
	}
	e, err := engine.New(rs, engine.Options{})
	if err != nil {
		return err
	}

	out := os.Stdout
	if dotFlags.output != "" {
		f, err := os.Create(dotFlags.output)
		if err != nil {
			return fmt.Errorf("failed to create %q: %w", dotFlags.output, err)
		}
		defer f.Close()
		out = f
	}
	return e.Graph().WriteDot(out)
}
