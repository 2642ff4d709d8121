package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"mercator-hq/predicate/pkg/config"
	"mercator-hq/predicate/pkg/dag"
	"mercator-hq/predicate/pkg/engine"
	"mercator-hq/predicate/pkg/value"
)

var evalFlags struct {
	vars []string
}

var evalCmd = &cobra.Command{
	Use:   "eval <expression>",
	Short: "Evaluate one expression",
	Long: `Parse an expression, build it into a graph, and evaluate it through
every phase against the variables given on the command line.

Variable values are parsed as integers or floats when they look numeric
and kept as strings otherwise. Comma-separated values make a list.

Examples:
  predicate eval "(and (var 'x') (var 'y'))" --var x=1 --var y=hello
  predicate eval "(first (var 'xs'))" --var xs=a,b,c
  predicate eval "(add 1 (mult 2 3))"`,
	Args: cobra.ExactArgs(1),
	RunE: evalExpression,
}

func init() {
	rootCmd.AddCommand(evalCmd)

	evalCmd.Flags().StringArrayVar(&evalFlags.vars, "var", nil, "variable as name=value (repeatable)")
}

func evalExpression(cmd *cobra.Command, args []string) error {
	rs := &config.RuleSet{Rules: []config.Rule{
		{ID: "expr", Phase: "postprocess", Expr: args[0]},
	}}
	e, err := engine.New(rs, engine.Options{})
	if err != nil {
		return err
	}

	vars := dag.NewVarStore()
	for _, kv := range evalFlags.vars {
		name, raw, ok := strings.Cut(kv, "=")
		if !ok || name == "" {
			return fmt.Errorf("malformed --var %q, want name=value", kv)
		}
		vars.Set(name, parseVarValue(raw))
	}

	run, err := e.NewRun(vars)
	if err != nil {
		return err
	}
	results, err := run.EvalAll()
	if err != nil {
		return err
	}

	rule := e.Graph().Rules()[0]
	root, err := e.Graph().Root(rule)
	if err != nil {
		return err
	}
	res := results[len(results)-1]

	fmt.Printf("expression: %s\n", root)
	final := run.State().Final(root.Index())
	values := final.Values()
	switch len(values) {
	case 0:
		fmt.Println("value: null")
	case 1:
		fmt.Printf("value: %s\n", values[0].Render())
	default:
		rendered := make([]string, len(values))
		for i, v := range values {
			rendered[i] = v.Render()
		}
		fmt.Printf("values: [%s]\n", strings.Join(rendered, " "))
	}
	fmt.Printf("truthy: %v\n", res.Truthy())
	fmt.Printf("finished: %v\n", res.Finished)
	return nil
}

// parseVarValue turns raw flag text into a value: a list when comma
// separated, numbers when numeric, strings otherwise.
func parseVarValue(raw string) value.Value {
	if strings.Contains(raw, ",") {
		parts := strings.Split(raw, ",")
		elems := make([]value.Value, len(parts))
		for i, p := range parts {
			elems[i] = parseScalar(p)
		}
		return value.ListOf(elems...)
	}
	return parseScalar(raw)
}

func parseScalar(raw string) value.Value {
	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return value.FromInt(n)
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return value.FromFloat(f)
	}
	return value.FromString(raw)
}
