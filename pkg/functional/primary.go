package functional

import (
	"mercator-hq/predicate/pkg/dag"
	"mercator-hq/predicate/pkg/value"
)

// PrimaryFunc reacts to the primary argument's live state. It is called
// once per phase while the secondary arguments are all finished, with my
// being the call's own state to fill in.
type PrimaryFunc func(
	ctx *dag.EvalContext,
	me *dag.Node,
	substate any,
	my *dag.NodeEvalState,
	secondary []value.Value,
	primary *dag.NodeEvalState,
) error

// Primary is a delegate whose last dynamic argument is primary: the call
// waits only for the secondary arguments to finish and then tracks the
// primary argument incrementally, phase by phase, as its value grows.
type Primary struct {
	Base
	fn PrimaryFunc
}

// NewPrimary returns a Primary with the given argument split and function.
func NewPrimary(staticArgs, dynamicArgs int, fn PrimaryFunc) *Primary {
	return &Primary{Base: NewBase(staticArgs, dynamicArgs), fn: fn}
}

// Eval calls fn with the finished secondary values and the primary
// argument's state, or waits if a secondary argument is unfinished.
func (p *Primary) Eval(me *dag.Node, substate any, g *dag.GraphEvalState, ctx *dag.EvalContext) error {
	secondary, primary, ready := splitPrimary(&p.Base, me, g)
	if !ready {
		return nil
	}
	return p.fn(ctx, me, substate, g.At(me.Index()), secondary, primary)
}

// splitPrimary gathers the finished secondary argument values and the
// primary argument's state. ready is false while a secondary argument is
// still producing values.
func splitPrimary(b *Base, me *dag.Node, g *dag.GraphEvalState) ([]value.Value, *dag.NodeEvalState, bool) {
	children := me.Children()
	last := len(children) - 1
	var secondary []value.Value
	for i, child := range children {
		final := g.Final(child.Index())
		if i == last {
			return secondary, final, true
		}
		if i >= b.NumStaticArgs() {
			if !final.IsFinished() {
				return nil, nil, false
			}
			secondary = append(secondary, final.Value())
		}
	}
	return nil, nil, false
}
