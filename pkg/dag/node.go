package dag

import (
	"fmt"
	"strings"

	"mercator-hq/predicate/pkg/value"
)

// Behavior supplies the variable parts of a Call node: validation,
// rewriting, and per-phase calculation. Literals have no behavior; their
// lifecycle is built into Node. A Behavior must be stateless across
// evaluation runs; per-run scratch data belongs in the NodeEvalState
// state slot, established during EvalInitialize.
type Behavior interface {
	// PreTransform validates the node before the transformation pass.
	// Issues go to the reporter; nothing is thrown.
	PreTransform(n *Node, r NodeReporter)

	// Transform may rewrite the node (through the editor) and reports
	// whether it changed the graph.
	Transform(n *Node, g GraphEditor, f *CallFactory, env *Environment, r NodeReporter) bool

	// PostTransform validates the node after transformation has settled.
	PostTransform(n *Node, r NodeReporter)

	// PreEval resolves external names against the environment once the
	// graph is final, immediately before evaluation begins.
	PreEval(n *Node, env *Environment, r NodeReporter)

	// EvalInitialize establishes the per-run state for the node. It is
	// called exactly once per run, before any EvalCalculate.
	EvalInitialize(n *Node, g *GraphEvalState, ctx *EvalContext) error

	// EvalCalculate advances the node's value sequence for the current
	// phase. It is called at most once per phase and never after the node
	// finishes or forwards.
	EvalCalculate(n *Node, g *GraphEvalState, ctx *EvalContext) error
}

// GraphEditor is the subset of graph surgery a Transform implementation
// needs. The merge graph implements it.
type GraphEditor interface {
	// Replace substitutes with for old everywhere old appears, keeping
	// the dedup registry and root bookkeeping consistent.
	Replace(old, with *Node) error
}

// Node is a vertex of the expression DAG: either a named Call over ordered
// child arguments or a childless Literal holding a constant value.
//
// Children are shared: merging gives a node multiple parents. The children
// slice owns its nodes; the parents slice holds non-owning back-references
// used for invalidation walks and graph surgery only.
//
// Nodes are not safe for concurrent mutation. Construction, merging, and
// transformation are single-threaded configuration-time activities; once
// indexed, a node is immutable and may be evaluated from many runs at once.
type Node struct {
	name      string
	lit       value.Value
	isLiteral bool
	behavior  Behavior

	children []*Node
	parents  []*Node

	index int
	sexpr string // memoized canonical form; "" when dirty
}

// NewCall returns a call node with the given name and behavior. A nil
// behavior yields a structural node that validates and transforms as a
// no-op but cannot be evaluated.
func NewCall(name string, b Behavior) *Node {
	return &Node{name: name, behavior: b, index: -1}
}

// NewLiteral returns a literal node holding v. Literals reject children.
func NewLiteral(v value.Value) *Node {
	return &Node{lit: v, isLiteral: true, index: -1}
}

// Name returns the call name, or the empty string for literals.
func (n *Node) Name() string {
	return n.name
}

// IsLiteral reports whether n is a literal node.
func (n *Node) IsLiteral() bool {
	return n.isLiteral
}

// Literal returns the constant value of a literal node, or null for calls.
func (n *Node) Literal() value.Value {
	return n.lit
}

// Behavior returns the node's behavior, nil for literals.
func (n *Node) Behavior() Behavior {
	return n.behavior
}

// Children returns the ordered child list. Callers must not mutate it.
func (n *Node) Children() []*Node {
	return n.children
}

// Parents returns the current parent back-references. Callers must not
// mutate it.
func (n *Node) Parents() []*Node {
	return n.parents
}

// Index returns the node's evaluation index, -1 before indexing.
func (n *Node) Index() int {
	return n.index
}

// SetIndex records the node's evaluation index.
func (n *Node) SetIndex(i int) {
	n.index = i
}

// AddChild appends c to the argument list and registers the reverse
// back-reference. Literals reject children.
func (n *Node) AddChild(c *Node) error {
	if n.isLiteral {
		return fmt.Errorf("%w: literal nodes cannot have children", ErrInvalidOperation)
	}
	if c == nil {
		return fmt.Errorf("%w: cannot add nil child", ErrInvalidOperation)
	}
	n.children = append(n.children, c)
	c.parents = append(c.parents, n)
	n.invalidateSexpr()
	return nil
}

// RemoveChild removes the first occurrence of c from the argument list and
// unregisters one back-reference.
func (n *Node) RemoveChild(c *Node) error {
	if n.isLiteral {
		return fmt.Errorf("%w: literal nodes cannot have children", ErrInvalidOperation)
	}
	for i, child := range n.children {
		if child == c {
			n.children = append(n.children[:i], n.children[i+1:]...)
			c.removeParent(n)
			n.invalidateSexpr()
			return nil
		}
	}
	return fmt.Errorf("%w: node %s is not a child of %s", ErrNotFound, c, n)
}

// ReplaceChild substitutes with for every occurrence of old in the
// argument list, keeping back-references symmetric.
func (n *Node) ReplaceChild(old, with *Node) error {
	if n.isLiteral {
		return fmt.Errorf("%w: literal nodes cannot have children", ErrInvalidOperation)
	}
	if with == nil {
		return fmt.Errorf("%w: cannot replace with nil child", ErrInvalidOperation)
	}
	replaced := false
	for i, child := range n.children {
		if child == old {
			n.children[i] = with
			old.removeParent(n)
			with.parents = append(with.parents, n)
			replaced = true
		}
	}
	if !replaced {
		return fmt.Errorf("%w: node %s is not a child of %s", ErrNotFound, old, n)
	}
	n.invalidateSexpr()
	return nil
}

// removeParent drops one back-reference to p.
func (n *Node) removeParent(p *Node) {
	for i, parent := range n.parents {
		if parent == p {
			n.parents = append(n.parents[:i], n.parents[i+1:]...)
			return
		}
	}
}

// String returns the canonical textual form: (name child1 child2 ...) for
// calls and the literal rendering for literals. The form is memoized and
// invalidated, together with every ancestor's, whenever a child changes.
// It is both the dedup key and the debug representation.
func (n *Node) String() string {
	if n.sexpr != "" {
		return n.sexpr
	}
	if n.isLiteral {
		n.sexpr = n.lit.Render()
		return n.sexpr
	}
	var b strings.Builder
	b.WriteByte('(')
	b.WriteString(n.name)
	for _, c := range n.children {
		b.WriteByte(' ')
		b.WriteString(c.String())
	}
	b.WriteByte(')')
	n.sexpr = b.String()
	return n.sexpr
}

// invalidateSexpr clears the memoized form of n and of every ancestor.
func (n *Node) invalidateSexpr() {
	if n.sexpr == "" && !n.isLiteral {
		// Still walk up: an ancestor may have been rendered before this
		// node was ever rendered.
		for _, p := range n.parents {
			p.invalidateSexpr()
		}
		return
	}
	n.sexpr = ""
	for _, p := range n.parents {
		p.invalidateSexpr()
	}
}

// PreTransform dispatches pre-transformation validation.
func (n *Node) PreTransform(r NodeReporter) {
	if n.isLiteral {
		if len(n.children) != 0 {
			r.Error("literal node has children")
		}
		return
	}
	if n.behavior != nil {
		n.behavior.PreTransform(n, r)
	}
}

// Transform gives the node a chance to rewrite itself, reporting whether
// the graph changed.
func (n *Node) Transform(g GraphEditor, f *CallFactory, env *Environment, r NodeReporter) bool {
	if n.isLiteral || n.behavior == nil {
		return false
	}
	return n.behavior.Transform(n, g, f, env, r)
}

// PostTransform dispatches post-transformation validation.
func (n *Node) PostTransform(r NodeReporter) {
	if n.isLiteral || n.behavior == nil {
		return
	}
	n.behavior.PostTransform(n, r)
}

// PreEval resolves external names once the graph is final.
func (n *Node) PreEval(env *Environment, r NodeReporter) {
	if n.isLiteral || n.behavior == nil {
		return
	}
	n.behavior.PreEval(n, env, r)
}

// EvalInitialize establishes per-run state. Literals finish immediately:
// their value never changes, so they are complete before the first phase.
func (n *Node) EvalInitialize(g *GraphEvalState, ctx *EvalContext) error {
	s := g.At(n.index)
	if n.isLiteral {
		if n.lit.IsNull() {
			return s.Finish()
		}
		return s.FinishWith(n.lit)
	}
	if n.behavior == nil {
		return nil
	}
	return n.behavior.EvalInitialize(n, g, ctx)
}

// EvalCalculate advances the node's value sequence for the current phase.
func (n *Node) EvalCalculate(g *GraphEvalState, ctx *EvalContext) error {
	if n.isLiteral {
		// Literals finish during initialization; eval never reaches here.
		return nil
	}
	if n.behavior == nil {
		return fmt.Errorf("%w: call %q has no behavior", ErrInvalidOperation, n.name)
	}
	return n.behavior.EvalCalculate(n, g, ctx)
}
