package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"mercator-hq/predicate/pkg/config"
	"mercator-hq/predicate/pkg/engine"
)

var foldFlags struct {
	rules string
}

var foldCmd = &cobra.Command{
	Use:   "fold",
	Short: "Show each rule's expression after transformation",
	Long: `Build the rule set's expression graph and print each rule's
expression as written alongside its transformed form, making constant
folding and simplification visible.

Examples:
  predicate fold --rules rules.yaml`,
	RunE: foldRules,
}

func init() {
	rootCmd.AddCommand(foldCmd)

	foldCmd.Flags().StringVarP(&foldFlags.rules, "rules", "r", "", "rule set file")
	foldCmd.MarkFlagRequired("rules")
}

func foldRules(cmd *cobra.Command, args []string) error {
	rs, err := config.LoadRuleSet(foldFlags.rules)
	if err != nil {
		return err
	}
	e, err := engine.New(rs, engine.Options{})
	if err != nil {
		return err
	}

	byID := make(map[string]string, len(rs.Rules))
	for _, r := range rs.Rules {
		byID[r.ID] = r.Expr
	}
	g := e.Graph()
	for _, rule := range g.Rules() {
		root, err := g.Root(rule)
		if err != nil {
			return err
		}
		fmt.Printf("%s:\n", rule.ID)
		fmt.Printf("  written:     %s\n", byID[rule.ID])
		fmt.Printf("  transformed: %s\n", root)
	}
	return nil
}
