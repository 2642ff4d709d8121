package graph

import (
	"errors"
	"strings"
	"testing"

	"mercator-hq/predicate/pkg/dag"
	"mercator-hq/predicate/pkg/value"
)

// call builds an unbehaviored call node over the given children.
func call(t *testing.T, name string, children ...*dag.Node) *dag.Node {
	t.Helper()
	n := dag.NewCall(name, nil)
	for _, c := range children {
		if err := n.AddChild(c); err != nil {
			t.Fatalf("AddChild: %v", err)
		}
	}
	return n
}

func lit(v value.Value) *dag.Node {
	return dag.NewLiteral(v)
}

func TestAddRootDedup(t *testing.T) {
	g := New()

	// Two structurally identical trees built independently.
	a := call(t, "not", call(t, "var", lit(value.FromString("x"))))
	b := call(t, "not", call(t, "var", lit(value.FromString("x"))))

	ia, mergedA, err := g.AddRoot(a)
	if err != nil {
		t.Fatalf("AddRoot: %v", err)
	}
	ib, mergedB, err := g.AddRoot(b)
	if err != nil {
		t.Fatalf("AddRoot: %v", err)
	}
	if ia == ib {
		t.Errorf("distinct AddRoot calls share index %d", ia)
	}
	if mergedA != mergedB {
		t.Errorf("identical expressions yield distinct nodes %p and %p", mergedA, mergedB)
	}

	indices, err := g.RootIndices(mergedA)
	if err != nil {
		t.Fatalf("RootIndices: %v", err)
	}
	if len(indices) != 2 || indices[0] != ia || indices[1] != ib {
		t.Errorf("RootIndices = %v, want [%d %d]", indices, ia, ib)
	}
	if g.Size() != 2 {
		t.Errorf("Size() = %d, want 2", g.Size())
	}
}

func TestAddRootSharesSubtrees(t *testing.T) {
	g := New()

	shared := func() *dag.Node { return call(t, "var", lit(value.FromString("x"))) }
	_, rootA, err := g.AddRoot(call(t, "not", shared()))
	if err != nil {
		t.Fatalf("AddRoot: %v", err)
	}
	_, rootB, err := g.AddRoot(call(t, "first", shared()))
	if err != nil {
		t.Fatalf("AddRoot: %v", err)
	}

	if rootA.Children()[0] != rootB.Children()[0] {
		t.Errorf("identical subtrees under distinct roots are not shared")
	}
	if got := len(rootA.Children()[0].Parents()); got != 2 {
		t.Errorf("shared subtree has %d parents, want 2", got)
	}
}

func TestAddRootRejectsParented(t *testing.T) {
	g := New()
	child := call(t, "var", lit(value.FromString("x")))
	call(t, "not", child) // gives child a parent

	if _, _, err := g.AddRoot(child); !errors.Is(err, dag.ErrInvalidOperation) {
		t.Errorf("AddRoot(parented): got %v, want ErrInvalidOperation", err)
	}
	if _, _, err := g.AddRoot(nil); !errors.Is(err, dag.ErrInvalidOperation) {
		t.Errorf("AddRoot(nil): got %v, want ErrInvalidOperation", err)
	}
}

func TestKnown(t *testing.T) {
	g := New()
	_, merged, err := g.AddRoot(call(t, "not", lit(value.True())))
	if err != nil {
		t.Fatalf("AddRoot: %v", err)
	}

	probe := call(t, "not", lit(value.True()))
	if got := g.Known(probe); got != merged {
		t.Errorf("Known() = %p, want the merged root %p", got, merged)
	}
	if got := g.Known(call(t, "other", lit(value.True()))); got != nil {
		t.Errorf("Known(unseen) = %p, want nil", got)
	}
}

func TestReplaceRewiresAndRelearns(t *testing.T) {
	g := New()

	// (not (eq 'a' 'b')) with (eq 'a' 'b') also a root of its own.
	inner := call(t, "eq", lit(value.FromString("a")), lit(value.FromString("b")))
	_, root, err := g.AddRoot(call(t, "not", inner))
	if err != nil {
		t.Fatalf("AddRoot: %v", err)
	}
	innerIndex, mergedInner, err := g.AddRoot(call(t, "eq", lit(value.FromString("a")), lit(value.FromString("b"))))
	if err != nil {
		t.Fatalf("AddRoot: %v", err)
	}

	replacement := lit(value.Null())
	if err := g.Replace(mergedInner, replacement); err != nil {
		t.Fatalf("Replace: %v", err)
	}

	// The parent call now points at the replacement and its canonical form
	// reflects the new child.
	if root.Children()[0] != replacement {
		t.Errorf("parent still points at the replaced node")
	}
	if root.String() != "(not null)" {
		t.Errorf("parent form = %q, want %q", root.String(), "(not null)")
	}
	if g.Known(root) != root {
		t.Errorf("parent's new form was not relearned")
	}

	// Root slot transferred to the replacement.
	slot, err := g.Root(innerIndex)
	if err != nil {
		t.Fatalf("Root: %v", err)
	}
	if slot != replacement {
		t.Errorf("Root(%d) = %s, want the replacement", innerIndex, slot)
	}
	if g.IsRoot(mergedInner) {
		t.Errorf("replaced node still occupies a root slot")
	}

	// The old expression is forgotten.
	if g.Known(call(t, "eq", lit(value.FromString("a")), lit(value.FromString("b")))) != nil {
		t.Errorf("replaced expression still canonicalized")
	}
}

func TestReplaceKeepsSharedDescendants(t *testing.T) {
	g := New()

	// (first (var 'x')) and (not (var 'x')) share (var 'x'). Replacing the
	// first root's body must leave the shared subtree alive for the second.
	_, first, err := g.AddRoot(call(t, "first", call(t, "var", lit(value.FromString("x")))))
	if err != nil {
		t.Fatalf("AddRoot: %v", err)
	}
	_, second, err := g.AddRoot(call(t, "not", call(t, "var", lit(value.FromString("x")))))
	if err != nil {
		t.Fatalf("AddRoot: %v", err)
	}
	shared := second.Children()[0]

	if err := g.Replace(first, lit(value.Null())); err != nil {
		t.Fatalf("Replace: %v", err)
	}

	if g.Known(shared) != shared {
		t.Errorf("shared subtree was unlearned")
	}
	if len(shared.Parents()) != 1 || shared.Parents()[0] != second {
		t.Errorf("shared subtree parents = %v, want just the surviving root", shared.Parents())
	}

	// The literal argument of the replaced branch was unshared under the
	// shared subtree, so it survives too; but the replaced root itself is
	// gone from the table.
	if g.Known(first) != nil {
		t.Errorf("replaced root still canonicalized")
	}
}

func TestReplaceUnknownNode(t *testing.T) {
	g := New()
	if err := g.Replace(call(t, "ghost"), lit(value.Null())); !errors.Is(err, dag.ErrNotFound) {
		t.Errorf("Replace(unknown): got %v, want ErrNotFound", err)
	}
}

func TestFindTransform(t *testing.T) {
	g := New()
	_, a, err := g.AddRoot(call(t, "a"))
	if err != nil {
		t.Fatalf("AddRoot: %v", err)
	}

	b := call(t, "b")
	if err := g.Replace(a, b); err != nil {
		t.Fatalf("Replace a->b: %v", err)
	}
	c := call(t, "c")
	if err := g.Replace(b, c); err != nil {
		t.Fatalf("Replace b->c: %v", err)
	}

	// Chained lookup: a became c.
	got, err := g.FindTransform(a)
	if err != nil {
		t.Fatalf("FindTransform: %v", err)
	}
	if got != c {
		t.Errorf("FindTransform(a) = %v, want c", got)
	}

	if _, err := g.FindTransform(call(t, "never")); !errors.Is(err, dag.ErrNotFound) {
		t.Errorf("FindTransform(unknown): got %v, want ErrNotFound", err)
	}

	g.ClearTransformRecord()
	if _, err := g.FindTransform(a); !errors.Is(err, dag.ErrNotFound) {
		t.Errorf("FindTransform after clear: got %v, want ErrNotFound", err)
	}
}

func TestRemoveTree(t *testing.T) {
	g := New()
	_, root, err := g.AddRoot(call(t, "not", call(t, "var", lit(value.FromString("x")))))
	if err != nil {
		t.Fatalf("AddRoot: %v", err)
	}
	_, other, err := g.AddRoot(call(t, "first", call(t, "var", lit(value.FromString("x")))))
	if err != nil {
		t.Fatalf("AddRoot: %v", err)
	}
	shared := other.Children()[0]

	if err := g.RemoveTree(root); err != nil {
		t.Fatalf("RemoveTree: %v", err)
	}

	// The shared descendant is detached from the removed tree but stays
	// canonicalized; the removed root keeps an entry under its detached
	// form, not its old one.
	if len(root.Children()) != 0 {
		t.Errorf("removed tree still holds children %v", root.Children())
	}
	if g.Known(shared) != shared {
		t.Errorf("shared descendant was unlearned")
	}
	if root.String() != "(not)" {
		t.Errorf("removed root renders %q, want %q", root.String(), "(not)")
	}
	if g.Known(root) != root {
		t.Errorf("RemoveTree removed the node itself")
	}

	// The old form is forgotten, so merging the full expression again
	// yields a fresh node sharing the surviving subtree, never the
	// detached one.
	fresh, err := g.MergeTree(call(t, "not", call(t, "var", lit(value.FromString("x")))))
	if err != nil {
		t.Fatalf("MergeTree: %v", err)
	}
	if fresh == root {
		t.Errorf("re-merged expression resolved to the detached node")
	}
	if fresh.Children()[0] != shared {
		t.Errorf("re-merged expression does not share the surviving subtree")
	}
}

func TestValidationReport(t *testing.T) {
	g := New()
	if _, _, err := g.AddRoot(call(t, "not", call(t, "var", lit(value.FromString("x"))))); err != nil {
		t.Fatalf("AddRoot: %v", err)
	}
	if _, _, err := g.AddRoot(call(t, "var", lit(value.FromString("x")))); err != nil {
		t.Fatalf("AddRoot: %v", err)
	}

	var report strings.Builder
	if !g.WriteValidationReport(&report) {
		t.Errorf("healthy graph failed validation:\n%s", report.String())
	}
}

func TestWriteDot(t *testing.T) {
	g := New()
	_, root, err := g.AddRoot(call(t, "not", call(t, "var", lit(value.FromString("x")))))
	if err != nil {
		t.Fatalf("AddRoot: %v", err)
	}

	var out strings.Builder
	if err := WriteDot(&out, root); err != nil {
		t.Fatalf("WriteDot: %v", err)
	}
	dot := out.String()
	for _, want := range []string{"digraph", `label="not"`, `label="'x'"`, "->"} {
		if !strings.Contains(dot, want) {
			t.Errorf("dot output missing %q:\n%s", want, dot)
		}
	}
}
