package functional

import (
	"mercator-hq/predicate/pkg/dag"
	"mercator-hq/predicate/pkg/value"
)

// SimpleFunc computes a Simple call's single result from its finished
// dynamic argument values.
type SimpleFunc func(ctx *dag.EvalContext, args []value.Value) (value.Value, error)

// Simple is a delegate for short, total functions: it waits until every
// dynamic argument is finished, computes once, and finishes with the
// result.
type Simple struct {
	Base
	fn SimpleFunc
}

// NewSimple returns a Simple with the given argument split and function.
func NewSimple(staticArgs, dynamicArgs int, fn SimpleFunc) *Simple {
	return &Simple{Base: NewBase(staticArgs, dynamicArgs), fn: fn}
}

// Eval finishes with fn's result once all dynamic arguments are finished,
// and otherwise waits.
func (s *Simple) Eval(me *dag.Node, substate any, g *dag.GraphEvalState, ctx *dag.EvalContext) error {
	children := me.Children()
	args := make([]value.Value, 0, s.NumDynamicArgs())
	for i := s.NumStaticArgs(); i < len(children); i++ {
		final := g.Final(children[i].Index())
		if !final.IsFinished() {
			return nil
		}
		args = append(args, final.Value())
	}
	result, err := s.fn(ctx, args)
	if err != nil {
		return err
	}
	return g.At(me.Index()).FinishWith(result)
}

// NewConstant returns a zero-argument delegate that always finishes with
// the given value.
func NewConstant(v value.Value) *Simple {
	return NewSimple(0, 0, func(*dag.EvalContext, []value.Value) (value.Value, error) {
		return v, nil
	})
}
