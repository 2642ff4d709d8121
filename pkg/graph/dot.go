package graph

import (
	"fmt"
	"io"

	"mercator-hq/predicate/pkg/dag"
)

// WriteDot renders the expression DAG reachable from the given roots in
// Graphviz dot form. Call nodes are labeled with their name, literals with
// their rendered value; shared subexpressions appear once with multiple
// incoming edges. Tooltips carry the full canonical form.
func WriteDot(w io.Writer, roots ...*dag.Node) error {
	if _, err := fmt.Fprintln(w, "digraph expressions {"); err != nil {
		return err
	}
	fmt.Fprintln(w, "  ordering = out;")

	ids := make(map[*dag.Node]int)
	_ = dag.BFSDown(roots, func(n *dag.Node) error {
		id := len(ids)
		ids[n] = id
		label := n.Name()
		shape := "ellipse"
		if n.IsLiteral() {
			label = n.Literal().Render()
			shape = "box"
		}
		fmt.Fprintf(w, "  n%d [label=%q, shape=%s, tooltip=%q];\n",
			id, label, shape, n.String())
		return nil
	})
	_ = dag.BFSDown(roots, func(n *dag.Node) error {
		for _, c := range n.Children() {
			fmt.Fprintf(w, "  n%d -> n%d;\n", ids[n], ids[c])
		}
		return nil
	})

	_, err := fmt.Fprintln(w, "}")
	return err
}
