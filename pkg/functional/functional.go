// Package functional lets a new call be implemented as a small delegate
// instead of a full dag.Behavior. The framework supplies argument-count
// and type validation, automatic constant folding of all-literal calls,
// and the per-phase state transitions, so a delegate only describes its
// actual computation.
//
// A call's children split into a fixed number of static arguments, which
// must be literal by the time transformation completes, followed by
// dynamic arguments, which may be runtime-computed. The delegate kinds
// differ in when they run:
//
//   - Simple waits until every dynamic argument is finished and computes
//     once. Constant is a zero-argument Simple.
//   - Primary waits only for the secondary arguments and reacts to the
//     last argument's live, possibly still-growing state.
//   - Map and Filter are Primary variants that process each element of
//     the primary list exactly once, as soon as it appears.
package functional

import (
	"mercator-hq/predicate/pkg/dag"
	"mercator-hq/predicate/pkg/value"
)

// Delegate is the implementation contract of one call. Construct one
// delegate per node; Prepare may store per-node resolved resources on it.
type Delegate interface {
	// NumStaticArgs returns how many leading children must be literal.
	NumStaticArgs() int

	// NumDynamicArgs returns how many trailing children may be dynamic.
	NumDynamicArgs() int

	// ValidateArgument checks the i'th child's value, reporting problems.
	// It is called for literal children during validation and for dynamic
	// children the moment they first finish.
	ValidateArgument(i int, v value.Value, r dag.NodeReporter)

	// Prepare is called once the static argument values are known: at
	// pre-eval time, and speculatively during constant folding. It returns
	// false when the call cannot be prepared.
	Prepare(static []value.Value, env *dag.Environment, r dag.NodeReporter) bool

	// Transform may rewrite the call when constant folding does not apply.
	Transform(me *dag.Node, g dag.GraphEditor, f *dag.CallFactory, env *dag.Environment, r dag.NodeReporter) bool

	// EvalInitialize returns the delegate's per-run scratch state.
	EvalInitialize(me *dag.Node) (any, error)

	// Eval advances the call's value sequence. The framework has already
	// evaluated the children for this phase.
	Eval(me *dag.Node, substate any, g *dag.GraphEvalState, ctx *dag.EvalContext) error
}

// Base supplies the argument split and default hook implementations.
// Concrete delegates embed it and override hooks through the exported
// function fields; Eval itself comes from the embedding type.
type Base struct {
	staticArgs  int
	dynamicArgs int

	// ValidateArgumentFunc, when set, replaces the default no-op argument
	// validation.
	ValidateArgumentFunc func(i int, v value.Value, r dag.NodeReporter)

	// PrepareFunc, when set, replaces the default always-ready Prepare.
	PrepareFunc func(static []value.Value, env *dag.Environment, r dag.NodeReporter) bool

	// TransformFunc, when set, replaces the default no-rewrite Transform.
	TransformFunc func(me *dag.Node, g dag.GraphEditor, f *dag.CallFactory, env *dag.Environment, r dag.NodeReporter) bool
}

// NewBase returns a Base with the given argument split.
func NewBase(staticArgs, dynamicArgs int) Base {
	return Base{staticArgs: staticArgs, dynamicArgs: dynamicArgs}
}

// NumStaticArgs returns the number of leading literal arguments.
func (b *Base) NumStaticArgs() int {
	return b.staticArgs
}

// NumDynamicArgs returns the number of trailing dynamic arguments.
func (b *Base) NumDynamicArgs() int {
	return b.dynamicArgs
}

// ValidateArgument runs the validation hook, default no-op.
func (b *Base) ValidateArgument(i int, v value.Value, r dag.NodeReporter) {
	if b.ValidateArgumentFunc != nil {
		b.ValidateArgumentFunc(i, v, r)
	}
}

// Prepare runs the preparation hook, default ready.
func (b *Base) Prepare(static []value.Value, env *dag.Environment, r dag.NodeReporter) bool {
	if b.PrepareFunc != nil {
		return b.PrepareFunc(static, env, r)
	}
	return true
}

// Transform runs the rewrite hook, default no rewrite.
func (b *Base) Transform(me *dag.Node, g dag.GraphEditor, f *dag.CallFactory, env *dag.Environment, r dag.NodeReporter) bool {
	if b.TransformFunc != nil {
		return b.TransformFunc(me, g, f, env, r)
	}
	return false
}

// EvalInitialize returns no scratch state.
func (b *Base) EvalInitialize(me *dag.Node) (any, error) {
	return nil, nil
}
