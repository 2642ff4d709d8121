package standard

import (
	"mercator-hq/predicate/pkg/dag"
	"mercator-hq/predicate/pkg/functional"
	"mercator-hq/predicate/pkg/value"
)

// LoadBoolean registers true, false, not, and, or, and if.
func LoadBoolean(f *dag.CallFactory) {
	f.Register("true", functional.Generator(func() functional.Delegate {
		return functional.NewConstant(value.True())
	}))
	f.Register("false", functional.Generator(func() functional.Delegate {
		return functional.NewConstant(value.Null())
	}))
	f.Register("not", functional.Generator(newNot))
	f.Register("and", func(name string) (*dag.Node, error) {
		return dag.NewCall(name, &varargsBooleanBehavior{allMustHold: true}), nil
	})
	f.Register("or", func(name string) (*dag.Node, error) {
		return dag.NewCall(name, &varargsBooleanBehavior{allMustHold: false}), nil
	})
	f.Register("if", func(name string) (*dag.Node, error) {
		return dag.NewCall(name, &ifBehavior{}), nil
	})
}

// newNot inverts truthiness: false the moment the argument produces any
// value, true when the argument finishes without one.
func newNot() functional.Delegate {
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
		if len(primary.Values()) > 0 {
			return my.FinishFalse()
		}
		if primary.IsFinished() {
			return my.FinishTrue()
		}
		return nil
	})
}

// varargsBooleanBehavior implements and/or over any number of arguments.
// and finishes false as soon as one argument finishes falsy and true once
// all have finished truthy; or is the mirror image. Truthy means the
// argument produced at least one value.
type varargsBooleanBehavior struct {
	allMustHold bool
}

func (b *varargsBooleanBehavior) PreTransform(me *dag.Node, r dag.NodeReporter) {
	if len(me.Children()) < 1 {
		r.Error("takes at least 1 argument")
	}
}

// Transform simplifies literal arguments: a decided literal decides or
// shortens the call.
func (b *varargsBooleanBehavior) Transform(me *dag.Node, g dag.GraphEditor, f *dag.CallFactory, env *dag.Environment, r dag.NodeReporter) bool {
	for _, child := range me.Children() {
		if !child.IsLiteral() {
			continue
		}
		truthy := child.Literal().Truthy()
		if b.allMustHold && !truthy {
			if err := g.Replace(me, dag.NewLiteral(value.Null())); err != nil {
				r.Errorf("replace: %v", err)
				return false
			}
			return true
		}
		if !b.allMustHold && truthy {
			if err := g.Replace(me, dag.NewLiteral(value.True())); err != nil {
				r.Errorf("replace: %v", err)
				return false
			}
			return true
		}
	}

	// Every child literal and none decisive: all truthy for and, all
	// falsy for or.
	for _, child := range me.Children() {
		if !child.IsLiteral() {
			return false
		}
	}
	result := value.Null()
	if b.allMustHold {
		result = value.True()
	}
	if err := g.Replace(me, dag.NewLiteral(result)); err != nil {
		r.Errorf("replace: %v", err)
		return false
	}
	return true
}

func (b *varargsBooleanBehavior) PostTransform(me *dag.Node, r dag.NodeReporter)       {}
func (b *varargsBooleanBehavior) PreEval(me *dag.Node, env *dag.Environment, r dag.NodeReporter) {}

func (b *varargsBooleanBehavior) EvalInitialize(me *dag.Node, g *dag.GraphEvalState, ctx *dag.EvalContext) error {
	return nil
}

func (b *varargsBooleanBehavior) EvalCalculate(me *dag.Node, g *dag.GraphEvalState, ctx *dag.EvalContext) error {
	my := g.At(me.Index())
	undecided := 0
	for _, child := range me.Children() {
		if _, err := g.Eval(child, ctx); err != nil {
			return err
		}
		final := g.Final(child.Index())
		truthy := len(final.Values()) > 0
		switch {
		case truthy && !b.allMustHold:
			return my.FinishTrue()
		case final.IsFinished() && !truthy && b.allMustHold:
			return my.FinishFalse()
		case !final.IsFinished() && !truthy:
			undecided++
		}
	}
	if undecided > 0 {
		return nil
	}
	if b.allMustHold {
		return my.FinishTrue()
	}
	return my.FinishFalse()
}

// ifBehavior selects between its second and third argument based on the
// first. A literal predicate shortens to the chosen branch at transform
// time; at runtime the node forwards to the branch once the predicate
// decides.
type ifBehavior struct{}

func (b *ifBehavior) PreTransform(me *dag.Node, r dag.NodeReporter) {
	if len(me.Children()) != 3 {
		r.Errorf("takes 3 arguments, has %d", len(me.Children()))
	}
}

func (b *ifBehavior) Transform(me *dag.Node, g dag.GraphEditor, f *dag.CallFactory, env *dag.Environment, r dag.NodeReporter) bool {
	if len(me.Children()) != 3 {
		return false
	}
	pred := me.Children()[0]
	if !pred.IsLiteral() {
		return false
	}
	branch := me.Children()[2]
	if pred.Literal().Truthy() {
		branch = me.Children()[1]
	}
	if err := g.Replace(me, branch); err != nil {
		r.Errorf("replace: %v", err)
		return false
	}
	return true
}

func (b *ifBehavior) PostTransform(me *dag.Node, r dag.NodeReporter)             {}
func (b *ifBehavior) PreEval(me *dag.Node, env *dag.Environment, r dag.NodeReporter) {}

func (b *ifBehavior) EvalInitialize(me *dag.Node, g *dag.GraphEvalState, ctx *dag.EvalContext) error {
	return nil
}

func (b *ifBehavior) EvalCalculate(me *dag.Node, g *dag.GraphEvalState, ctx *dag.EvalContext) error {
	pred := me.Children()[0]
	if _, err := g.Eval(pred, ctx); err != nil {
		return err
	}
	final := g.Final(pred.Index())
	my := g.At(me.Index())
	if len(final.Values()) > 0 {
		return my.Forward(me.Children()[1])
	}
	if final.IsFinished() {
		return my.Forward(me.Children()[2])
	}
	return nil
}
