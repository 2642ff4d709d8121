// Predicate is a rule-expression graph engine.
//
// Rule expressions are s-expression trees that are merged into one
// deduplicated graph, constant-folded, and evaluated incrementally across
// processing phases against per-run variable stores.
//
// Usage:
//
//	# Validate a rule set
//	predicate lint --rules rules.yaml
//
//	# Evaluate one expression against ad-hoc variables
//	predicate eval "(and (var 'x') (var 'y'))" --var x=1 --var y=2
//
//	# Export the merged graph as Graphviz dot
//	predicate dot --rules rules.yaml
//
//	# Show rules before and after transformation
//	predicate fold --rules rules.yaml
//
//	# Run standalone with hot reload and metrics
//	predicate run --config config.yaml
package main

func main() {
	Execute()
}
