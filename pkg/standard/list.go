package standard

import (
	"mercator-hq/predicate/pkg/dag"
	"mercator-hq/predicate/pkg/functional"
	"mercator-hq/predicate/pkg/value"
)

// LoadList registers list, cat, first, rest, nth, and flatten.
func LoadList(f *dag.CallFactory) {
	f.Register("list", func(name string) (*dag.Node, error) {
		return dag.NewCall(name, &gatherBehavior{flattenLists: false}), nil
	})
	f.Register("cat", func(name string) (*dag.Node, error) {
		return dag.NewCall(name, &gatherBehavior{flattenLists: true}), nil
	})
	f.Register("first", functional.Generator(newFirst))
	f.Register("rest", functional.Generator(newRest))
	f.Register("nth", functional.Generator(newNth))
	f.Register("flatten", functional.Generator(newFlatten))
}

// gatherBehavior implements list and cat over any number of arguments,
// appending each argument's values to its own list as they arrive. cat
// splices list-valued arguments element by element; list keeps them as
// single elements. The result finishes once every argument has.
type gatherBehavior struct {
	flattenLists bool
}

// gatherState tracks, per child, how many of its values have been copied.
type gatherState struct {
	taken []int
}

func (b *gatherBehavior) PreTransform(me *dag.Node, r dag.NodeReporter)  {}
func (b *gatherBehavior) PostTransform(me *dag.Node, r dag.NodeReporter) {}

func (b *gatherBehavior) Transform(me *dag.Node, g dag.GraphEditor, f *dag.CallFactory, env *dag.Environment, r dag.NodeReporter) bool {
	return false
}

func (b *gatherBehavior) PreEval(me *dag.Node, env *dag.Environment, r dag.NodeReporter) {}

func (b *gatherBehavior) EvalInitialize(me *dag.Node, g *dag.GraphEvalState, ctx *dag.EvalContext) error {
	my := g.At(me.Index())
	if err := my.SetupLocalValues(ctx); err != nil {
		return err
	}
	my.SetState(&gatherState{taken: make([]int, len(me.Children()))})
	return nil
}

func (b *gatherBehavior) EvalCalculate(me *dag.Node, g *dag.GraphEvalState, ctx *dag.EvalContext) error {
	my := g.At(me.Index())
	state := my.State().(*gatherState)

	allFinished := true
	for i, child := range me.Children() {
		if _, err := g.Eval(child, ctx); err != nil {
			return err
		}
		final := g.Final(child.Index())
		values := final.Values()
		for ; state.taken[i] < len(values); state.taken[i]++ {
			v := values[state.taken[i]]
			if b.flattenLists {
				if l, ok := v.AsList(); ok {
					for j := 0; j < l.Len(); j++ {
						if err := my.AddValue(l.At(j)); err != nil {
							return err
						}
					}
					continue
				}
			}
			if err := my.AddValue(v); err != nil {
				return err
			}
		}
		if !final.IsFinished() {
			allFinished = false
		}
	}
	if allFinished {
		return my.Finish()
	}
	return nil
}

// newFirst finishes with the first value its argument produces.
func newFirst() functional.Delegate {
	return functional.NewPrimary(0, 1, func(
		_ *dag.EvalContext,
		_ *dag.Node,
		_ any,
		my *dag.NodeEvalState,
		_ []value.Value,
		primary *dag.NodeEvalState,
	) error {
		if my.IsFinished() {
			return nil
		}
		if values := primary.Values(); len(values) > 0 {
			return my.FinishWith(values[0])
		}
		if primary.IsFinished() {
			return my.Finish()
		}
		return nil
	})
}

// restState tracks how many primary values have been forwarded.
type restState struct {
	taken int
}

// newRest produces every value of its argument except the first, as they
// arrive.
func newRest() functional.Delegate {
	p := functional.NewPrimary(0, 1, func(
		ctx *dag.EvalContext,
		_ *dag.Node,
		substate any,
		my *dag.NodeEvalState,
		_ []value.Value,
		primary *dag.NodeEvalState,
	) error {
		if my.IsFinished() {
			return nil
		}
		if err := my.SetupLocalValues(ctx); err != nil {
			return err
		}
		state := substate.(*restState)
		values := primary.Values()
		if state.taken == 0 && len(values) > 0 {
			state.taken = 1
		}
		for ; state.taken < len(values); state.taken++ {
			if err := my.AddValue(values[state.taken]); err != nil {
				return err
			}
		}
		if primary.IsFinished() {
			return my.Finish()
		}
		return nil
	})
	return &withSubstate{Primary: p, init: func() any { return &restState{} }}
}

// newNth finishes with the n'th value (1-based) of its argument.
func newNth() functional.Delegate {
	var n int64
	p := functional.NewPrimary(1, 1, func(
		_ *dag.EvalContext,
		_ *dag.Node,
		_ any,
		my *dag.NodeEvalState,
		_ []value.Value,
		primary *dag.NodeEvalState,
	) error {
		if my.IsFinished() {
			return nil
		}
		values := primary.Values()
		if int64(len(values)) >= n {
			return my.FinishWith(values[n-1])
		}
		if primary.IsFinished() {
			return my.Finish()
		}
		return nil
	})
	p.ValidateArgumentFunc = func(i int, v value.Value, r dag.NodeReporter) {
		if i == 0 && (v.Kind() != value.KindNumber || v.Int() < 1) {
			r.Errorf("argument 0 must be a positive integer, got %s", v)
		}
	}
	p.PrepareFunc = func(static []value.Value, env *dag.Environment, r dag.NodeReporter) bool {
		n = static[0].Int()
		if n < 1 {
			r.Errorf("argument 0 must be a positive integer, got %s", static[0])
			return false
		}
		return true
	}
	return p
}

// flattenState tracks progress through the primary values and, for a
// list-valued element, through its elements.
type flattenState struct {
	taken []int
}

// newFlatten splices every list-valued element of its argument into a
// single flat list, passing scalars through.
func newFlatten() functional.Delegate {
	p := functional.NewPrimary(0, 1, func(
		ctx *dag.EvalContext,
		_ *dag.Node,
		substate any,
		my *dag.NodeEvalState,
		_ []value.Value,
		primary *dag.NodeEvalState,
	) error {
		if my.IsFinished() {
			return nil
		}
		if err := my.SetupLocalValues(ctx); err != nil {
			return err
		}
		state := substate.(*flattenState)
		values := primary.Values()
		for len(state.taken) < len(values) {
			state.taken = append(state.taken, 0)
		}
		for i, v := range values {
			if l, ok := v.AsList(); ok {
				for ; state.taken[i] < l.Len(); state.taken[i]++ {
					if err := my.AddValue(l.At(state.taken[i])); err != nil {
						return err
					}
				}
				continue
			}
			if state.taken[i] == 0 {
				state.taken[i] = 1
				if err := my.AddValue(v); err != nil {
					return err
				}
			}
		}
		if primary.IsFinished() {
			return my.Finish()
		}
		return nil
	})
	return &withSubstate{Primary: p, init: func() any { return &flattenState{} }}
}

// withSubstate wraps a Primary with a per-run scratch allocator.
type withSubstate struct {
	*functional.Primary
	init func() any
}

func (w *withSubstate) EvalInitialize(me *dag.Node) (any, error) {
	return w.init(), nil
}
