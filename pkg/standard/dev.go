package standard

import (
	"mercator-hq/predicate/pkg/dag"
	"mercator-hq/predicate/pkg/functional"
	"mercator-hq/predicate/pkg/value"
)

// LoadDevelopment registers the development helpers: p, identity, and
// sequence.
func LoadDevelopment(f *dag.CallFactory) {
	f.Register("p", func(name string) (*dag.Node, error) {
		return dag.NewCall(name, &printBehavior{}), nil
	})
	f.Register("identity", functional.Generator(newIdentity))
	f.Register("sequence", func(name string) (*dag.Node, error) {
		return dag.NewCall(name, &sequenceBehavior{}), nil
	})
}

// printBehavior logs the values of all arguments but the last and then
// forwards to the last, so wrapping any expression in (p ...) observes it
// without changing its result.
type printBehavior struct{}

func (b *printBehavior) PreTransform(me *dag.Node, r dag.NodeReporter) {
	if len(me.Children()) < 1 {
		r.Error("takes at least 1 argument")
	}
}

func (b *printBehavior) Transform(me *dag.Node, g dag.GraphEditor, f *dag.CallFactory, env *dag.Environment, r dag.NodeReporter) bool {
	return false
}

func (b *printBehavior) PostTransform(me *dag.Node, r dag.NodeReporter)             {}
func (b *printBehavior) PreEval(me *dag.Node, env *dag.Environment, r dag.NodeReporter) {}

func (b *printBehavior) EvalInitialize(me *dag.Node, g *dag.GraphEvalState, ctx *dag.EvalContext) error {
	return nil
}

func (b *printBehavior) EvalCalculate(me *dag.Node, g *dag.GraphEvalState, ctx *dag.EvalContext) error {
	children := me.Children()
	for _, child := range children[:len(children)-1] {
		if _, err := g.Eval(child, ctx); err != nil {
			return err
		}
		ctx.Logger.Debug("p",
			"expr", child.String(),
			"value", g.Final(child.Index()).Value().Render(),
		)
	}
	return g.At(me.Index()).Forward(children[len(children)-1])
}

// newIdentity rewrites to its argument at transform time, and forwards to
// it at runtime if the rewrite never ran.
func newIdentity() functional.Delegate {
	p := functional.NewPrimary(0, 1, func(
		_ *dag.EvalContext,
		me *dag.Node,
		_ any,
		my *dag.NodeEvalState,
		_ []value.Value,
		_ *dag.NodeEvalState,
	) error {
		return my.Forward(me.Children()[0])
	})
	p.TransformFunc = func(me *dag.Node, g dag.GraphEditor, f *dag.CallFactory, env *dag.Environment, r dag.NodeReporter) bool {
		if err := g.Replace(me, me.Children()[0]); err != nil {
			r.Errorf("replace: %v", err)
			return false
		}
		return true
	}
	return p
}

// sequenceBehavior counts from its first literal argument to its second,
// one value per calculation, finishing past the end. It exists to test
// incremental consumers.
type sequenceBehavior struct{}

// sequenceState is the next number to produce.
type sequenceState struct {
	next int64
}

func (b *sequenceBehavior) PreTransform(me *dag.Node, r dag.NodeReporter) {
	if len(me.Children()) != 2 {
		r.Errorf("takes 2 arguments, has %d", len(me.Children()))
		return
	}
	for i, child := range me.Children() {
		if !child.IsLiteral() || child.Literal().Kind() != value.KindNumber {
			r.Errorf("argument %d must be an integer literal", i)
		}
	}
}

func (b *sequenceBehavior) Transform(me *dag.Node, g dag.GraphEditor, f *dag.CallFactory, env *dag.Environment, r dag.NodeReporter) bool {
	return false
}

func (b *sequenceBehavior) PostTransform(me *dag.Node, r dag.NodeReporter)             {}
func (b *sequenceBehavior) PreEval(me *dag.Node, env *dag.Environment, r dag.NodeReporter) {}

func (b *sequenceBehavior) EvalInitialize(me *dag.Node, g *dag.GraphEvalState, ctx *dag.EvalContext) error {
	my := g.At(me.Index())
	if err := my.SetupLocalValues(ctx); err != nil {
		return err
	}
	my.SetState(&sequenceState{next: me.Children()[0].Literal().Int()})
	return nil
}

func (b *sequenceBehavior) EvalCalculate(me *dag.Node, g *dag.GraphEvalState, ctx *dag.EvalContext) error {
	my := g.At(me.Index())
	state := my.State().(*sequenceState)
	stop := me.Children()[1].Literal().Int()
	if state.next > stop {
		return my.Finish()
	}
	if err := my.AddValue(value.FromInt(state.next)); err != nil {
		return err
	}
	state.next++
	if state.next > stop {
		return my.Finish()
	}
	return nil
}
