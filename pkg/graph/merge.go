package graph

import (
	"fmt"
	"sort"

	"mercator-hq/predicate/pkg/dag"
)

// MergeGraph maintains a single canonical instance of every distinct
// subexpression across a whole rule set. Trees are added as roots; any
// subtree whose canonical text matches an already known subexpression is
// replaced by the known node, which then has multiple parents. The
// transformation pass edits the graph exclusively through Replace, which
// keeps the canonicalization table and root bookkeeping consistent.
//
// All operations are synchronous, single-threaded, configuration-time
// edits. MergeGraph implements dag.GraphEditor.
type MergeGraph struct {
	bySexpr     map[string]*dag.Node
	roots       []*dag.Node
	rootIndices map[*dag.Node]map[int]struct{}

	// transformed maps a replaced node to its replacement, or to nil when
	// the node was removed outright. Chains accumulate across transforms.
	transformed map[*dag.Node]*dag.Node
}

// New returns an empty merge graph.
func New() *MergeGraph {
	return &MergeGraph{
		bySexpr:     make(map[string]*dag.Node),
		roots:       nil,
		rootIndices: make(map[*dag.Node]map[int]struct{}),
		transformed: make(map[*dag.Node]*dag.Node),
	}
}

// AddRoot merges the given tree into the graph and appends it to the root
// vector. The returned node is the canonical root: the original when the
// expression is new, a pre-existing identical node otherwise. The root
// must be parentless.
func (g *MergeGraph) AddRoot(root *dag.Node) (int, *dag.Node, error) {
	if root == nil {
		return 0, nil, fmt.Errorf("%w: cannot add nil root", dag.ErrInvalidOperation)
	}
	if len(root.Parents()) != 0 {
		return 0, nil, fmt.Errorf("%w: root %s has parents", dag.ErrInvalidOperation, root)
	}
	merged, err := g.MergeTree(root)
	if err != nil {
		return 0, nil, err
	}
	g.roots = append(g.roots, merged)
	index := len(g.roots) - 1
	g.addRootIndex(merged, index)
	return index, merged, nil
}

// Root returns the root at the given index.
func (g *MergeGraph) Root(index int) (*dag.Node, error) {
	if index < 0 || index >= len(g.roots) {
		return nil, fmt.Errorf("%w: no root with index %d", dag.ErrNotFound, index)
	}
	return g.roots[index], nil
}

// Roots returns the root vector. Callers must not mutate it.
func (g *MergeGraph) Roots() []*dag.Node {
	return g.roots
}

// Size returns the number of root slots.
func (g *MergeGraph) Size() int {
	return len(g.roots)
}

// Empty reports whether the graph has no roots.
func (g *MergeGraph) Empty() bool {
	return len(g.roots) == 0
}

// IsRoot reports whether n currently occupies a root slot.
func (g *MergeGraph) IsRoot(n *dag.Node) bool {
	_, ok := g.rootIndices[n]
	return ok
}

// RootIndices returns the sorted root slots occupied by n or its known
// equivalent. A node occupying no slot is ErrNotFound.
func (g *MergeGraph) RootIndices(n *dag.Node) ([]int, error) {
	if n == nil {
		return nil, fmt.Errorf("%w: cannot search for nil root", dag.ErrInvalidOperation)
	}
	known := g.Known(n)
	if known == nil {
		known = n
	}
	set, ok := g.rootIndices[known]
	if !ok {
		return nil, fmt.Errorf("%w: %s is not a root", dag.ErrNotFound, n)
	}
	indices := make([]int, 0, len(set))
	for i := range set {
		indices = append(indices, i)
	}
	sort.Ints(indices)
	return indices, nil
}

// Known returns the canonical node equal to n by textual form, nil when
// the expression has never been learned.
func (g *MergeGraph) Known(n *dag.Node) *dag.Node {
	if n == nil {
		return nil
	}
	return g.bySexpr[n.String()]
}

// MergeTree merges the tree rooted at n into the graph and returns its
// canonical root. If the whole expression is already known, the known node
// is returned and n is left untouched; otherwise n is kept and each of its
// subtrees is either kept or swapped for a known equivalent in place.
func (g *MergeGraph) MergeTree(n *dag.Node) (*dag.Node, error) {
	if n == nil {
		return nil, fmt.Errorf("%w: cannot merge nil node", dag.ErrInvalidOperation)
	}
	isNew, known := g.learn(n)
	if !isNew {
		return known, nil
	}

	todo := []*dag.Node{n}
	for len(todo) > 0 {
		parent := todo[0]
		todo = todo[1:]
		children := append([]*dag.Node(nil), parent.Children()...)
		for _, child := range children {
			isNew, knownChild := g.learn(child)
			switch {
			case isNew:
				todo = append(todo, child)
			case knownChild != child:
				if err := parent.ReplaceChild(child, knownChild); err != nil {
					return nil, err
				}
			}
		}
	}
	return n, nil
}

// Replace substitutes with for old everywhere old appears: the ancestors'
// canonical forms are unlearned and relearned, every parent of old is
// rewired to with, descendants of old that lose their last parent are
// discarded, and any root slots of old transfer to with. The replacement
// is recorded for FindTransform.
func (g *MergeGraph) Replace(old, with *dag.Node) error {
	if old == nil || with == nil {
		return fmt.Errorf("%w: cannot replace with nil node", dag.ErrInvalidOperation)
	}
	knownOld := g.Known(old)
	if knownOld == nil {
		return fmt.Errorf("%w: no such subexpression %s", dag.ErrNotFound, old)
	}

	with, err := g.MergeTree(with)
	if err != nil {
		return err
	}
	if with == knownOld {
		return nil
	}

	// The forms of knownOld and every ancestor are about to change.
	_ = dag.BFSUp(knownOld, func(n *dag.Node) error {
		g.unlearn(n)
		return nil
	})

	// Detach with when it is a direct child of the replaced node, so the
	// orphan sweep below cannot discard the replacement itself.
	for knownOld.RemoveChild(with) == nil {
	}

	// Rewire every parent. ReplaceChild substitutes all occurrences at
	// once, so rewire each distinct parent exactly once.
	seen := make(map[*dag.Node]struct{})
	parents := append([]*dag.Node(nil), knownOld.Parents()...)
	for _, p := range parents {
		if _, done := seen[p]; done {
			continue
		}
		seen[p] = struct{}{}
		if err := p.ReplaceChild(knownOld, with); err != nil {
			return err
		}
	}

	_ = dag.BFSUp(with, func(n *dag.Node) error {
		g.learn(n)
		return nil
	})

	g.discardOrphans(knownOld)

	// Transfer root slots, preserving indices.
	if slots, ok := g.rootIndices[knownOld]; ok {
		delete(g.rootIndices, knownOld)
		for i := range slots {
			g.roots[i] = with
			g.addRootIndex(with, i)
		}
	}

	g.transformed[knownOld] = with
	return nil
}

// RemoveTree discards the unshared descendants of n's known equivalent.
// A descendant with other parents is detached from this tree only and
// stays learned; n itself is not removed.
func (g *MergeGraph) RemoveTree(n *dag.Node) error {
	if n == nil {
		return fmt.Errorf("%w: cannot remove nil node", dag.ErrInvalidOperation)
	}
	known := g.Known(n)
	if known == nil {
		return fmt.Errorf("%w: no such subexpression %s", dag.ErrNotFound, n)
	}

	// Detaching shared children changes the form of known and of every
	// ancestor; forget the old forms first and relearn the survivors
	// under their post-sweep forms.
	_ = dag.BFSUp(known, func(a *dag.Node) error {
		g.unlearn(a)
		return nil
	})
	g.discardOrphans(known)
	_ = dag.BFSUp(known, func(a *dag.Node) error {
		g.learn(a)
		return nil
	})
	return nil
}

// discardOrphans descends from top through children with exactly one
// parent, unlearning and recording them as removed. A child with multiple
// parents is still shared elsewhere: detach it from this parent and stop
// descending. Children reached by several paths are deliberately revisited
// so every path is accounted for.
func (g *MergeGraph) discardOrphans(top *dag.Node) {
	todo := []*dag.Node{top}
	for len(todo) > 0 {
		parent := todo[0]
		todo = todo[1:]
		children := append([]*dag.Node(nil), parent.Children()...)
		for _, child := range children {
			if len(child.Parents()) == 1 {
				g.unlearn(child)
				g.transformed[child] = nil
				todo = append(todo, child)
			} else {
				_ = parent.RemoveChild(child)
			}
		}
	}
}

// FindTransform returns what a retained node became across the transforms
// since the last ClearTransformRecord: the final replacement after
// following chains, or nil when the node was removed. A node never
// recorded is ErrNotFound.
func (g *MergeGraph) FindTransform(source *dag.Node) (*dag.Node, error) {
	current, ok := g.transformed[source]
	if !ok {
		return nil, fmt.Errorf("%w: no transform recorded for %s", dag.ErrNotFound, source)
	}
	for current != nil {
		next, ok := g.transformed[current]
		if !ok {
			break
		}
		current = next
	}
	return current, nil
}

// ClearTransformRecord forgets all recorded replacements, letting removed
// nodes be collected.
func (g *MergeGraph) ClearTransformRecord() {
	g.transformed = make(map[*dag.Node]*dag.Node)
}

func (g *MergeGraph) addRootIndex(n *dag.Node, index int) {
	set, ok := g.rootIndices[n]
	if !ok {
		set = make(map[int]struct{})
		g.rootIndices[n] = set
	}
	set[index] = struct{}{}
}

// learn records n's canonical form, returning whether the form is new and
// the node now holding it.
func (g *MergeGraph) learn(n *dag.Node) (bool, *dag.Node) {
	sexpr := n.String()
	if existing, ok := g.bySexpr[sexpr]; ok {
		return false, existing
	}
	g.bySexpr[sexpr] = n
	return true, n
}

// unlearn forgets the entry under n's current canonical form, reporting
// whether one existed.
func (g *MergeGraph) unlearn(n *dag.Node) bool {
	sexpr := n.String()
	if _, ok := g.bySexpr[sexpr]; !ok {
		return false
	}
	delete(g.bySexpr, sexpr)
	return true
}
