package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"mercator-hq/predicate/pkg/config"
	"mercator-hq/predicate/pkg/dag"
	"mercator-hq/predicate/pkg/engine"
)

var benchFlags struct {
	vars       []string
	iterations int
}

var benchCmd = &cobra.Command{
	Use:   "bench <expression>",
	Short: "Benchmark an expression",
	Long: `Build an expression into a graph once, then evaluate it through
every phase repeatedly against the variables given on the command line,
reporting total and per-run timings.

Building is not measured; each iteration creates a fresh run so no
evaluation state carries over.

Examples:
  predicate bench "(and (var 'x') (not (var 'y')))" --var x=1 -n 10000`,
	Args: cobra.ExactArgs(1),
	RunE: benchExpression,
}

func init() {
	rootCmd.AddCommand(benchCmd)

	benchCmd.Flags().StringArrayVar(&benchFlags.vars, "var", nil, "variable as name=value (repeatable)")
	benchCmd.Flags().IntVarP(&benchFlags.iterations, "iterations", "n", 1000, "evaluation runs")
}

func benchExpression(cmd *cobra.Command, args []string) error {
	if benchFlags.iterations < 1 {
		return fmt.Errorf("iterations must be positive, got %d", benchFlags.iterations)
	}

	rs := &config.RuleSet{Rules: []config.Rule{
		{ID: "expr", Phase: "postprocess", Expr: args[0]},
	}}
	e, err := engine.New(rs, engine.Options{})
	if err != nil {
		return err
	}

	vars := dag.NewVarStore()
	for _, kv := range benchFlags.vars {
		name, raw, ok := strings.Cut(kv, "=")
		if !ok || name == "" {
			return fmt.Errorf("malformed --var %q, want name=value", kv)
		}
		vars.Set(name, parseVarValue(raw))
	}

	rule := e.Graph().Rules()[0]
	root, err := e.Graph().Root(rule)
	if err != nil {
		return err
	}

	start := time.Now()
	for i := 0; i < benchFlags.iterations; i++ {
		run, err := e.NewRun(vars)
		if err != nil {
			return err
		}
		if _, err := run.EvalAll(); err != nil {
			return err
		}
	}
	elapsed := time.Since(start)

	fmt.Printf("expression: %s\n", root)
	fmt.Printf("nodes:      %d\n", e.Graph().NumNodes())
	fmt.Printf("runs:       %d\n", benchFlags.iterations)
	fmt.Printf("total:      %s\n", elapsed)
	fmt.Printf("per run:    %s\n", elapsed/time.Duration(benchFlags.iterations))
	return nil
}
