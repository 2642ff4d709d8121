package functional

import (
	"fmt"

	"mercator-hq/predicate/pkg/dag"
	"mercator-hq/predicate/pkg/value"
)

// NewCall wraps a delegate as a real node.
func NewCall(name string, d Delegate) *dag.Node {
	return dag.NewCall(name, &callBehavior{delegate: d})
}

// Generator adapts a delegate constructor into a dag.Generator for
// registration with a call factory. Each generated node gets a fresh
// delegate instance.
func Generator(construct func() Delegate) dag.Generator {
	return func(name string) (*dag.Node, error) {
		return NewCall(name, construct()), nil
	}
}

// callBehavior adapts a Delegate to the full dag.Behavior lifecycle.
type callBehavior struct {
	delegate Delegate
}

// argRef tracks one not-yet-finished dynamic argument.
type argRef struct {
	node  *dag.Node
	index int
}

// callState is the framework's per-run scratch: the arguments still
// producing values plus the delegate's own substate.
type callState struct {
	unfinished []argRef
	substate   any
}

func (b *callBehavior) numArgs() int {
	return b.delegate.NumStaticArgs() + b.delegate.NumDynamicArgs()
}

func (b *callBehavior) PreTransform(me *dag.Node, r dag.NodeReporter) {
	if len(me.Children()) != b.numArgs() {
		r.Errorf("takes %d arguments, has %d", b.numArgs(), len(me.Children()))
		return
	}
	for i, child := range me.Children() {
		if child.IsLiteral() {
			b.delegate.ValidateArgument(i, child.Literal(), r)
		}
	}
}

func (b *callBehavior) PostTransform(me *dag.Node, r dag.NodeReporter) {
	for i, child := range me.Children() {
		if i < b.delegate.NumStaticArgs() && !child.IsLiteral() {
			r.Errorf("argument %d must be literal", i)
			continue
		}
		if child.IsLiteral() {
			b.delegate.ValidateArgument(i, child.Literal(), r)
		}
	}
}

// Transform folds the call into a literal when every argument already is
// one: the subtree is evaluated against a throwaway run and, if that run
// finishes, the whole call is replaced by its result. Otherwise the
// delegate's own rewrite gets its chance.
func (b *callBehavior) Transform(me *dag.Node, g dag.GraphEditor, f *dag.CallFactory, env *dag.Environment, r dag.NodeReporter) bool {
	for _, child := range me.Children() {
		if !child.IsLiteral() {
			return b.delegate.Transform(me, g, f, env, r)
		}
	}

	// Transformation runs before final indexing, so temporary indices on
	// this subtree are harmless.
	me.SetIndex(0)
	next := 1
	for _, child := range me.Children() {
		child.SetIndex(next)
		next++
	}

	ges := dag.NewGraphEvalState(next)
	ctx := dag.NewEvalContext(nil, env.Logger())
	initialized := make(map[*dag.Node]struct{})
	for _, child := range me.Children() {
		if _, done := initialized[child]; done {
			continue
		}
		initialized[child] = struct{}{}
		if err := ges.Initialize(child, ctx); err != nil {
			return b.delegate.Transform(me, g, f, env, r)
		}
	}

	report := dag.NewReporter()
	if b.prepare(me, env, dag.NewNodeReporter(report, me)) && report.NumErrors() == 0 {
		if err := ges.Initialize(me, ctx); err == nil {
			if _, err := ges.Eval(me, ctx); err == nil {
				final := ges.Final(me.Index())
				if final.IsFinished() {
					replacement := dag.NewLiteral(final.Value())
					if err := g.Replace(me, replacement); err == nil {
						return true
					}
				}
			}
		}
	}

	return b.delegate.Transform(me, g, f, env, r)
}

func (b *callBehavior) PreEval(me *dag.Node, env *dag.Environment, r dag.NodeReporter) {
	b.prepare(me, env, r)
}

// prepare hands the now-resolved static argument values to the delegate.
func (b *callBehavior) prepare(me *dag.Node, env *dag.Environment, r dag.NodeReporter) bool {
	static := make([]value.Value, 0, b.delegate.NumStaticArgs())
	for i := 0; i < b.delegate.NumStaticArgs() && i < len(me.Children()); i++ {
		static = append(static, me.Children()[i].Literal())
	}
	return b.delegate.Prepare(static, env, r)
}

func (b *callBehavior) EvalInitialize(me *dag.Node, g *dag.GraphEvalState, ctx *dag.EvalContext) error {
	substate, err := b.delegate.EvalInitialize(me)
	if err != nil {
		return err
	}
	state := &callState{substate: substate}
	for i, child := range me.Children() {
		if !child.IsLiteral() {
			state.unfinished = append(state.unfinished, argRef{node: child, index: i})
		}
	}
	g.At(me.Index()).SetState(state)
	return nil
}

func (b *callBehavior) EvalCalculate(me *dag.Node, g *dag.GraphEvalState, ctx *dag.EvalContext) error {
	state := g.At(me.Index()).State().(*callState)
	if err := b.evalArgs(state, g, ctx); err != nil {
		return err
	}
	return b.delegate.Eval(me, state.substate, g, ctx)
}

// evalArgs drives every still-producing argument for the current phase
// and validates each one the moment it first finishes.
func (b *callBehavior) evalArgs(state *callState, g *dag.GraphEvalState, ctx *dag.EvalContext) error {
	remaining := state.unfinished[:0]
	for _, arg := range state.unfinished {
		if _, err := g.Eval(arg.node, ctx); err != nil {
			return err
		}
		final := g.Final(arg.node.Index())
		if !final.IsFinished() {
			remaining = append(remaining, arg)
			continue
		}
		report := dag.NewReporter()
		b.delegate.ValidateArgument(arg.index, final.Value(), dag.NewNodeReporter(report, arg.node))
		if report.NumErrors() > 0 {
			return fmt.Errorf("argument %d failed validation: %s", arg.index, report.Summary())
		}
	}
	state.unfinished = remaining
	return nil
}
