package functional

import (
	"mercator-hq/predicate/pkg/dag"
	"mercator-hq/predicate/pkg/value"
)

// MapFunc computes the output element for one input element.
type MapFunc func(ctx *dag.EvalContext, secondary []value.Value, subvalue value.Value) (value.Value, error)

// FilterFunc decides whether one input element passes.
type FilterFunc func(ctx *dag.EvalContext, secondary []value.Value, subvalue value.Value) (bool, error)

// eachState remembers how far into the primary list processing has
// advanced, so each element is handled exactly once even while the list
// keeps growing across phases.
type eachState struct {
	nextIndex int
}

// Map is a delegate that applies a function to each element of its
// primary argument, appending results as soon as elements appear. A
// non-list primary is transformed directly, without wrapping the result
// in a one-element list.
type Map struct {
	Base
	fn MapFunc
}

// NewMap returns a Map with the given argument split and element function.
func NewMap(staticArgs, dynamicArgs int, fn MapFunc) *Map {
	return &Map{Base: NewBase(staticArgs, dynamicArgs), fn: fn}
}

// EvalInitialize allocates the iteration cursor.
func (m *Map) EvalInitialize(me *dag.Node) (any, error) {
	return &eachState{}, nil
}

// Eval advances element-wise processing of the primary argument.
func (m *Map) Eval(me *dag.Node, substate any, g *dag.GraphEvalState, ctx *dag.EvalContext) error {
	secondary, primary, ready := splitPrimary(&m.Base, me, g)
	if !ready {
		return nil
	}
	my := g.At(me.Index())
	return evalEach(ctx, my, substate.(*eachState), primary,
		func(subvalue value.Value) error {
			result, err := m.fn(ctx, secondary, subvalue)
			if err != nil {
				return err
			}
			return my.FinishWith(result)
		},
		func(subvalue value.Value) error {
			result, err := m.fn(ctx, secondary, subvalue)
			if err != nil {
				return err
			}
			return my.AddValue(result)
		},
	)
}

// Filter is a delegate that keeps the elements of its primary argument
// for which the predicate holds. A non-list primary finishes with the
// value itself when it passes and with no value when it does not.
type Filter struct {
	Base
	fn FilterFunc
}

// NewFilter returns a Filter with the given argument split and predicate.
func NewFilter(staticArgs, dynamicArgs int, fn FilterFunc) *Filter {
	return &Filter{Base: NewBase(staticArgs, dynamicArgs), fn: fn}
}

// EvalInitialize allocates the iteration cursor.
func (f *Filter) EvalInitialize(me *dag.Node) (any, error) {
	return &eachState{}, nil
}

// Eval advances element-wise filtering of the primary argument.
func (f *Filter) Eval(me *dag.Node, substate any, g *dag.GraphEvalState, ctx *dag.EvalContext) error {
	secondary, primary, ready := splitPrimary(&f.Base, me, g)
	if !ready {
		return nil
	}
	my := g.At(me.Index())
	return evalEach(ctx, my, substate.(*eachState), primary,
		func(subvalue value.Value) error {
			pass, err := f.fn(ctx, secondary, subvalue)
			if err != nil {
				return err
			}
			if pass {
				return my.FinishWith(subvalue)
			}
			return my.Finish()
		},
		func(subvalue value.Value) error {
			pass, err := f.fn(ctx, secondary, subvalue)
			if err != nil {
				return err
			}
			if pass {
				return my.AddValue(subvalue)
			}
			return nil
		},
	)
}

// evalEach drives one phase of element-wise processing. A null primary
// finishes empty once the primary finishes; a non-list primary is handed
// to direct exactly once; a list primary has each element handed to
// element exactly once, in order, resuming where the previous phase left
// off. The output finishes when the primary does.
func evalEach(
	ctx *dag.EvalContext,
	my *dag.NodeEvalState,
	state *eachState,
	primary *dag.NodeEvalState,
	direct func(subvalue value.Value) error,
	element func(subvalue value.Value) error,
) error {
	primaryValue := primary.Value()
	if primaryValue.IsNull() {
		if primary.IsFinished() && !my.IsFinished() {
			return my.Finish()
		}
		return nil
	}

	list, isList := primaryValue.AsList()
	if !isList {
		if err := direct(primaryValue); err != nil {
			return err
		}
		if !my.IsFinished() {
			return my.Finish()
		}
		return nil
	}

	if err := my.SetupLocalValues(ctx); err != nil {
		return err
	}
	if my.IsFinished() {
		return nil
	}

	for i := state.nextIndex; i < list.Len(); i++ {
		if err := element(list.At(i)); err != nil {
			return err
		}
		state.nextIndex = i + 1
		if my.IsFinished() {
			return nil
		}
	}

	if primary.IsFinished() && !my.IsFinished() {
		return my.Finish()
	}
	return nil
}
