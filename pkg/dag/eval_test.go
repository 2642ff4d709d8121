package dag

import (
	"errors"
	"testing"

	"mercator-hq/predicate/pkg/value"
)

// calcBehavior is a minimal Behavior whose calculate is supplied per test.
type calcBehavior struct {
	calculate func(n *Node, g *GraphEvalState, ctx *EvalContext) error
}

func (b *calcBehavior) PreTransform(n *Node, r NodeReporter) {}
func (b *calcBehavior) Transform(n *Node, g GraphEditor, f *CallFactory, env *Environment, r NodeReporter) bool {
	return false
}
func (b *calcBehavior) PostTransform(n *Node, r NodeReporter)          {}
func (b *calcBehavior) PreEval(n *Node, env *Environment, r NodeReporter) {}
func (b *calcBehavior) EvalInitialize(n *Node, g *GraphEvalState, ctx *EvalContext) error {
	return nil
}
func (b *calcBehavior) EvalCalculate(n *Node, g *GraphEvalState, ctx *EvalContext) error {
	if b.calculate != nil {
		return b.calculate(n, g, ctx)
	}
	return nil
}

func TestNodeEvalStateValues(t *testing.T) {
	var s NodeEvalState

	if s.IsFinished() || s.IsForwarding() || s.IsAliased() {
		t.Fatalf("zero state is not unevaluated")
	}
	if got := s.Values(); got != nil {
		t.Fatalf("unevaluated Values() = %v, want nil", got)
	}

	// AddValue on a fresh state sets up the local list implicitly.
	if err := s.AddValue(value.FromInt(1)); err != nil {
		t.Fatalf("AddValue: %v", err)
	}
	if err := s.AddValue(value.FromInt(2)); err != nil {
		t.Fatalf("AddValue: %v", err)
	}
	if err := s.Finish(); err != nil {
		t.Fatalf("Finish: %v", err)
	}

	vals := s.Values()
	if len(vals) != 2 || vals[0].Int() != 1 || vals[1].Int() != 2 {
		t.Errorf("Values() = %v, want [1 2]", vals)
	}
	if err := s.AddValue(value.FromInt(3)); !errors.Is(err, ErrInvalidOperation) {
		t.Errorf("AddValue after Finish: got %v, want ErrInvalidOperation", err)
	}
	if err := s.Finish(); !errors.Is(err, ErrInvalidOperation) {
		t.Errorf("double Finish: got %v, want ErrInvalidOperation", err)
	}
}

func TestNodeEvalStateFinishWith(t *testing.T) {
	var s NodeEvalState
	if err := s.FinishWith(value.FromString("x")); err != nil {
		t.Fatalf("FinishWith: %v", err)
	}
	if !s.IsFinished() {
		t.Errorf("not finished after FinishWith")
	}
	if got := s.Values(); len(got) != 1 || got[0].Text() != "x" {
		t.Errorf("Values() = %v, want ['x']", got)
	}

	var withValues NodeEvalState
	if err := withValues.AddValue(value.FromInt(1)); err != nil {
		t.Fatalf("AddValue: %v", err)
	}
	if err := withValues.FinishWith(value.FromInt(2)); !errors.Is(err, ErrInvalidOperation) {
		t.Errorf("FinishWith over existing values: got %v, want ErrInvalidOperation", err)
	}
	if err := withValues.FinishFalse(); !errors.Is(err, ErrInvalidOperation) {
		t.Errorf("FinishFalse over existing values: got %v, want ErrInvalidOperation", err)
	}
}

func TestNodeEvalStateFinishTrueFalse(t *testing.T) {
	var truthy NodeEvalState
	if err := truthy.FinishTrue(); err != nil {
		t.Fatalf("FinishTrue: %v", err)
	}
	if !truthy.Value().Truthy() {
		t.Errorf("FinishTrue value is not truthy")
	}

	var falsy NodeEvalState
	if err := falsy.FinishFalse(); err != nil {
		t.Fatalf("FinishFalse: %v", err)
	}
	if falsy.Value().Truthy() {
		t.Errorf("FinishFalse value is truthy")
	}
	if !falsy.IsFinished() {
		t.Errorf("FinishFalse did not finish")
	}
}

func TestNodeEvalStateForwardPreconditions(t *testing.T) {
	target := NewLiteral(value.True())

	t.Run("forwarding twice", func(t *testing.T) {
		var s NodeEvalState
		if err := s.Forward(target); err != nil {
			t.Fatalf("Forward: %v", err)
		}
		if err := s.Forward(target); !errors.Is(err, ErrInvalidOperation) {
			t.Errorf("second Forward: got %v, want ErrInvalidOperation", err)
		}
	})

	t.Run("after local values", func(t *testing.T) {
		var s NodeEvalState
		if err := s.AddValue(value.FromInt(1)); err != nil {
			t.Fatalf("AddValue: %v", err)
		}
		if err := s.Forward(target); !errors.Is(err, ErrInvalidOperation) {
			t.Errorf("Forward after values: got %v, want ErrInvalidOperation", err)
		}
	})

	t.Run("after finish", func(t *testing.T) {
		var s NodeEvalState
		if err := s.Finish(); err != nil {
			t.Fatalf("Finish: %v", err)
		}
		if err := s.Forward(target); !errors.Is(err, ErrInvalidOperation) {
			t.Errorf("Forward after Finish: got %v, want ErrInvalidOperation", err)
		}
	})

	t.Run("forwarding node rejects values and finish", func(t *testing.T) {
		var s NodeEvalState
		if err := s.Forward(target); err != nil {
			t.Fatalf("Forward: %v", err)
		}
		if err := s.AddValue(value.FromInt(1)); !errors.Is(err, ErrInvalidOperation) {
			t.Errorf("AddValue on forwarding: got %v", err)
		}
		if err := s.Finish(); !errors.Is(err, ErrInvalidOperation) {
			t.Errorf("Finish on forwarding: got %v", err)
		}
		if err := s.Alias(value.True()); !errors.Is(err, ErrInvalidOperation) {
			t.Errorf("Alias on forwarding: got %v", err)
		}
	})
}

func TestNodeEvalStateAlias(t *testing.T) {
	external := value.NewList()
	var s NodeEvalState
	if err := s.Alias(value.FromList(external)); err != nil {
		t.Fatalf("Alias: %v", err)
	}
	if !s.IsAliased() {
		t.Errorf("not aliased after Alias")
	}

	// Appends to the external list are visible live.
	external.Append(value.FromInt(1))
	external.Append(value.FromInt(2))
	if got := s.Values(); len(got) != 2 {
		t.Errorf("Values() after external appends = %v, want 2 elements", got)
	}

	if err := s.Alias(value.True()); !errors.Is(err, ErrInvalidOperation) {
		t.Errorf("second Alias: got %v, want ErrInvalidOperation", err)
	}
	if err := s.AddValue(value.FromInt(3)); !errors.Is(err, ErrInvalidOperation) {
		t.Errorf("AddValue on aliased: got %v, want ErrInvalidOperation", err)
	}
	if err := s.Finish(); err != nil {
		t.Errorf("Finish on aliased: %v", err)
	}
}

func TestNodeEvalStateReset(t *testing.T) {
	var s NodeEvalState
	if err := s.AddValue(value.FromInt(1)); err != nil {
		t.Fatalf("AddValue: %v", err)
	}
	if err := s.Finish(); err != nil {
		t.Fatalf("Finish: %v", err)
	}
	s.Reset()
	if s.IsFinished() || s.Values() != nil {
		t.Errorf("Reset did not return to unevaluated")
	}
	if err := s.AddValue(value.FromInt(2)); err != nil {
		t.Errorf("AddValue after Reset: %v", err)
	}
}

func TestGraphEvalStateForwarding(t *testing.T) {
	// a forwards to b, b forwards to c; c holds values.
	a := NewCall("a", &calcBehavior{})
	b := NewCall("b", &calcBehavior{})
	c := NewCall("c", &calcBehavior{})
	a.SetIndex(0)
	b.SetIndex(1)
	c.SetIndex(2)

	g := NewGraphEvalState(3)
	if err := g.At(a.Index()).Forward(b); err != nil {
		t.Fatalf("Forward a->b: %v", err)
	}
	if err := g.At(b.Index()).Forward(c); err != nil {
		t.Fatalf("Forward b->c: %v", err)
	}
	if err := g.At(c.Index()).AddValue(value.FromInt(42)); err != nil {
		t.Fatalf("AddValue: %v", err)
	}
	if err := g.At(c.Index()).Finish(); err != nil {
		t.Fatalf("Finish: %v", err)
	}

	// Final follows the chain to c.
	final := g.Final(a.Index())
	if !final.IsFinished() {
		t.Errorf("Final(a) not finished")
	}
	if got := final.Values(); len(got) != 1 || got[0].Int() != 42 {
		t.Errorf("Final(a).Values() = %v, want [42]", got)
	}

	// Direct accessors do not follow the chain.
	if g.IsFinished(a.Index()) {
		t.Errorf("direct IsFinished(a) followed forwarding")
	}
	if !g.Value(a.Index()).IsNull() {
		t.Errorf("direct Value(a) followed forwarding")
	}
}

func TestGraphEvalStatePhaseGating(t *testing.T) {
	calls := 0
	n := NewCall("counter", &calcBehavior{
		calculate: func(n *Node, g *GraphEvalState, ctx *EvalContext) error {
			calls++
			return g.At(n.Index()).AddValue(value.FromInt(int64(calls)))
		},
	})
	n.SetIndex(0)

	g := NewGraphEvalState(1)
	ctx := NewEvalContext(nil, nil)
	if err := g.Initialize(n, ctx); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	// Same phase twice calculates once.
	ctx.Phase = PhaseRequestHeader
	for i := 0; i < 2; i++ {
		if _, err := g.Eval(n, ctx); err != nil {
			t.Fatalf("Eval: %v", err)
		}
	}
	if calls != 1 {
		t.Errorf("calculate ran %d times in one phase, want 1", calls)
	}

	// A new phase calculates again.
	ctx.Phase = PhaseRequest
	if _, err := g.Eval(n, ctx); err != nil {
		t.Fatalf("Eval: %v", err)
	}
	if calls != 2 {
		t.Errorf("calculate ran %d times across two phases, want 2", calls)
	}

	// PhaseNone always recalculates.
	ctx.Phase = PhaseNone
	for i := 0; i < 2; i++ {
		if _, err := g.Eval(n, ctx); err != nil {
			t.Fatalf("Eval: %v", err)
		}
	}
	if calls != 4 {
		t.Errorf("calculate ran %d times after two PhaseNone evals, want 4", calls)
	}
}

func TestGraphEvalStateFinishedSkipsCalculate(t *testing.T) {
	calls := 0
	n := NewCall("once", &calcBehavior{
		calculate: func(n *Node, g *GraphEvalState, ctx *EvalContext) error {
			calls++
			return g.At(n.Index()).FinishTrue()
		},
	})
	n.SetIndex(0)

	g := NewGraphEvalState(1)
	ctx := NewEvalContext(nil, nil)
	ctx.Phase = PhaseRequestHeader
	if _, err := g.Eval(n, ctx); err != nil {
		t.Fatalf("Eval: %v", err)
	}
	ctx.Phase = PhaseRequest
	v, err := g.Eval(n, ctx)
	if err != nil {
		t.Fatalf("Eval: %v", err)
	}
	if calls != 1 {
		t.Errorf("calculate ran %d times on a finished node, want 1", calls)
	}
	if !v.Truthy() {
		t.Errorf("finished value lost across phases")
	}
}

func TestGraphEvalStateEvalError(t *testing.T) {
	boom := errors.New("boom")
	n := NewCall("bad", &calcBehavior{
		calculate: func(n *Node, g *GraphEvalState, ctx *EvalContext) error {
			return boom
		},
	})
	n.SetIndex(0)
	mustAddChild(t, n, NewLiteral(value.FromString("arg")))

	g := NewGraphEvalState(1)
	ctx := NewEvalContext(nil, nil)
	ctx.Phase = PhaseRequestHeader

	_, err := g.Eval(n, ctx)
	if !errors.Is(err, boom) {
		t.Fatalf("Eval error does not unwrap to cause: %v", err)
	}
	var evalErr *EvalError
	if !errors.As(err, &evalErr) {
		t.Fatalf("Eval error is not an EvalError: %v", err)
	}
	if evalErr.Sexpr != "(bad 'arg')" {
		t.Errorf("EvalError.Sexpr = %q, want %q", evalErr.Sexpr, "(bad 'arg')")
	}
}

func TestLiteralInitializeFinishes(t *testing.T) {
	lit := NewLiteral(value.FromString("v"))
	lit.SetIndex(0)
	null := NewLiteral(value.Null())
	null.SetIndex(1)

	g := NewGraphEvalState(2)
	ctx := NewEvalContext(nil, nil)
	if err := g.Initialize(lit, ctx); err != nil {
		t.Fatalf("Initialize literal: %v", err)
	}
	if err := g.Initialize(null, ctx); err != nil {
		t.Fatalf("Initialize null literal: %v", err)
	}

	if !g.IsFinished(0) || !g.Value(0).Truthy() {
		t.Errorf("string literal not finished truthy after init")
	}
	if !g.IsFinished(1) || g.Value(1).Truthy() {
		t.Errorf("null literal not finished falsy after init")
	}

	// Evaluating an already finished literal just re-reads the value.
	ctx.Phase = PhaseRequestHeader
	v, err := g.Eval(lit, ctx)
	if err != nil {
		t.Fatalf("Eval literal: %v", err)
	}
	if v.Text() != "v" {
		t.Errorf("Eval literal = %v, want 'v'", v)
	}
}

func TestGraphEvalStateProfiling(t *testing.T) {
	child := NewCall("child", &calcBehavior{
		calculate: func(n *Node, g *GraphEvalState, ctx *EvalContext) error {
			return g.At(n.Index()).FinishTrue()
		},
	})
	child.SetIndex(1)
	parent := NewCall("parent", &calcBehavior{
		calculate: func(n *Node, g *GraphEvalState, ctx *EvalContext) error {
			if _, err := g.Eval(n.Children()[0], ctx); err != nil {
				return err
			}
			return g.At(n.Index()).FinishTrue()
		},
	})
	parent.SetIndex(0)
	mustAddChild(t, parent, child)

	g := NewGraphEvalState(2)
	g.EnableProfiling()
	ctx := NewEvalContext(nil, nil)
	ctx.Phase = PhaseRequestHeader
	if _, err := g.Eval(parent, ctx); err != nil {
		t.Fatalf("Eval: %v", err)
	}

	recs := g.ProfileRecords()
	if len(recs) != 2 {
		t.Fatalf("profile records = %d, want 2", len(recs))
	}
	// Completion order: the child record closes first.
	if recs[0].NodeIndex != 1 || recs[1].NodeIndex != 0 {
		t.Errorf("record order = [%d %d], want [1 0]", recs[0].NodeIndex, recs[1].NodeIndex)
	}
	parentRec := recs[1]
	if parentRec.ChildDuration != recs[0].Duration() {
		t.Errorf("parent ChildDuration = %v, want the child's duration %v",
			parentRec.ChildDuration, recs[0].Duration())
	}
	if parentRec.SelfDuration() != parentRec.Duration()-parentRec.ChildDuration {
		t.Errorf("SelfDuration inconsistent with Duration and ChildDuration")
	}

	g.ClearProfile()
	if len(g.ProfileRecords()) != 0 {
		t.Errorf("ClearProfile left %d records", len(g.ProfileRecords()))
	}
}

func TestRunIDsDistinct(t *testing.T) {
	a := NewGraphEvalState(1)
	b := NewGraphEvalState(1)
	if a.RunID() == b.RunID() {
		t.Errorf("two runs share a run ID")
	}
}
