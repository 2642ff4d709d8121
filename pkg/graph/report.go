package graph

import (
	"fmt"
	"io"
	"sort"

	"mercator-hq/predicate/pkg/dag"
)

// WriteValidationReport checks the graph's internal consistency, writes
// one line per failure to w, and reports whether the graph is sound. It
// verifies that every reachable node's parents are canonical and actually
// list the node as a child, that every root occupies the slots recorded
// for it, and that the canonicalization table matches the nodes' current
// forms.
func (g *MergeGraph) WriteValidationReport(w io.Writer) bool {
	ok := true
	fail := func(format string, args ...any) {
		ok = false
		fmt.Fprintf(w, "ERROR "+format+"\n", args...)
	}

	_ = dag.BFSDown(g.roots, func(n *dag.Node) error {
		for _, parent := range n.Parents() {
			if known := g.Known(parent); known != parent {
				fail("%s: parent %s is not the canonical node for its form", n, parent)
			}
			found := false
			for _, c := range parent.Children() {
				if c == n {
					found = true
					break
				}
			}
			if !found {
				fail("%s: not a child of its recorded parent %s", n, parent)
			}
		}
		return nil
	})

	for index, root := range g.roots {
		slots, present := g.rootIndices[root]
		if !present {
			fail("root %s at slot %d has no recorded indices", root, index)
			continue
		}
		if _, has := slots[index]; !has {
			fail("root %s occupies slot %d but the slot is not recorded for it", root, index)
		}
	}
	for n, slots := range g.rootIndices {
		for index := range slots {
			if index < 0 || index >= len(g.roots) {
				fail("recorded root slot %d for %s is out of range", index, n)
				continue
			}
			if g.roots[index] != n {
				fail("slot %d recorded for %s but held by %s", index, n, g.roots[index])
			}
		}
	}

	for sexpr, n := range g.bySexpr {
		if n == nil {
			fail("canonical form %q maps to a nil node", sexpr)
			continue
		}
		if n.String() != sexpr {
			fail("canonical form %q maps to a node whose form is %q", sexpr, n.String())
		}
	}
	return ok
}

// WriteDebugReport dumps the canonicalization table, the root slots, and
// a dot rendering of the whole graph to w.
func (g *MergeGraph) WriteDebugReport(w io.Writer) {
	fmt.Fprintln(w, "canonical forms:")
	sexprs := make([]string, 0, len(g.bySexpr))
	for sexpr := range g.bySexpr {
		sexprs = append(sexprs, sexpr)
	}
	sort.Strings(sexprs)
	for _, sexpr := range sexprs {
		fmt.Fprintf(w, "  %s -> %p\n", sexpr, g.bySexpr[sexpr])
	}

	fmt.Fprintln(w, "root slots:")
	for index, root := range g.roots {
		fmt.Fprintf(w, "  %d -> %s @ %p\n", index, root, root)
	}

	fmt.Fprintln(w, "graph:")
	_ = WriteDot(w, g.roots...)
}
