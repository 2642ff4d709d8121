package standard

import (
	"fmt"

	"mercator-hq/predicate/pkg/dag"
	"mercator-hq/predicate/pkg/functional"
	"mercator-hq/predicate/pkg/value"
)

// LoadHost registers the environment-facing calls: var, operator, and
// transformation.
func LoadHost(f *dag.CallFactory) {
	f.Register("var", functional.Generator(newVar))
	f.Register("operator", functional.Generator(newOperator))
	f.Register("transformation", functional.Generator(newTransformation))
}

// varDelegate reads one named external variable per run. A list-valued
// variable is aliased live so later appends by the host show through; the
// node finishes at the final phase, with no value when the variable never
// appeared.
type varDelegate struct {
	functional.Base
	source *dag.VarSource
}

func newVar() functional.Delegate {
	return &varDelegate{Base: functional.NewBase(1, 0)}
}

func (d *varDelegate) ValidateArgument(i int, v value.Value, r dag.NodeReporter) {
	if v.Kind() != value.KindString || v.Text() == "" {
		r.Errorf("argument %d must be a non-empty string, got %s", i, v)
	}
}

func (d *varDelegate) Prepare(static []value.Value, env *dag.Environment, r dag.NodeReporter) bool {
	source, err := env.AcquireVarSource(static[0].Text())
	if err != nil {
		r.Errorf("acquiring variable source: %v", err)
		return false
	}
	d.source = source
	return true
}

func (d *varDelegate) Eval(me *dag.Node, _ any, g *dag.GraphEvalState, ctx *dag.EvalContext) error {
	my := g.At(me.Index())
	if my.IsFinished() {
		return nil
	}
	if d.source == nil {
		return fmt.Errorf("var %s evaluated without preparation", me)
	}

	v, ok := d.source.Get(ctx)
	if !ok {
		if ctx.Phase == dag.FinalPhase {
			return my.FinishFalse()
		}
		return nil
	}
	if _, isList := v.AsList(); isList {
		if !my.IsAliased() {
			if err := my.Alias(v); err != nil {
				return err
			}
		}
		if ctx.Phase == dag.FinalPhase {
			return my.Finish()
		}
		return nil
	}
	return my.FinishWith(v)
}

// newOperator applies a named host operator to each element of its input.
func newOperator() functional.Delegate {
	var op dag.Operator
	m := functional.NewMap(1, 1, func(ctx *dag.EvalContext, _ []value.Value, sub value.Value) (value.Value, error) {
		return op.Execute(ctx, sub)
	})
	m.ValidateArgumentFunc = func(i int, v value.Value, r dag.NodeReporter) {
		if i == 0 && v.Kind() != value.KindString {
			r.Errorf("argument 0 must be a string, got %s", v.Kind())
		}
	}
	m.PrepareFunc = func(static []value.Value, env *dag.Environment, r dag.NodeReporter) bool {
		resolved, err := env.Operator(static[0].Text())
		if err != nil {
			r.Errorf("resolving operator: %v", err)
			return false
		}
		op = resolved
		return true
	}
	return m
}

// newTransformation applies a named host transformation to each element
// of its input.
func newTransformation() functional.Delegate {
	var tfn dag.Transformation
	m := functional.NewMap(1, 1, func(_ *dag.EvalContext, _ []value.Value, sub value.Value) (value.Value, error) {
		return tfn(sub)
	})
	m.ValidateArgumentFunc = func(i int, v value.Value, r dag.NodeReporter) {
		if i == 0 && v.Kind() != value.KindString {
			r.Errorf("argument 0 must be a string, got %s", v.Kind())
		}
	}
	m.PrepareFunc = func(static []value.Value, env *dag.Environment, r dag.NodeReporter) bool {
		resolved, err := env.Transformation(static[0].Text())
		if err != nil {
			r.Errorf("resolving transformation: %v", err)
			return false
		}
		tfn = resolved
		return true
	}
	return m
}
