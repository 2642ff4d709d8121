package engine

import (
	"context"
	"time"

	"mercator-hq/predicate/pkg/dag"
	"mercator-hq/predicate/pkg/value"
)

// Result is one rule outcome from an EvalPhase call.
type Result struct {
	RuleID   string
	Value    value.Value
	Finished bool
}

// Truthy reports whether the rule's current value holds.
func (r Result) Truthy() bool {
	return r.Value.Truthy()
}

// Run is one evaluation of the graph against one variable store: a fresh
// per-node state vector driven through the phases in order. Runs are
// single-threaded; independent runs may proceed concurrently.
type Run struct {
	engine *Engine
	graph  *Graph
	ges    *dag.GraphEvalState
	ctx    *dag.EvalContext
}

// NewRun starts a run against the active graph.
func (e *Engine) NewRun(vars *dag.VarStore) (*Run, error) {
	g := e.Graph()

	ges := dag.NewGraphEvalState(g.indexLimit)
	if e.cfg.Eval.Profiling {
		ges.EnableProfiling()
	}
	ctx := dag.NewEvalContext(vars, e.logger)

	// Children before parents.
	for i := len(g.order) - 1; i >= 0; i-- {
		if err := ges.Initialize(g.order[i], ctx); err != nil {
			return nil, err
		}
	}

	if e.metrics != nil {
		e.metrics.RecordRun()
	}
	return &Run{engine: e, graph: g, ges: ges, ctx: ctx}, nil
}

// Vars returns the run's variable store so the host can feed values in
// between phases.
func (r *Run) Vars() *dag.VarStore {
	return r.ctx.Vars
}

// State returns the run's evaluation state for direct inspection.
func (r *Run) State() *dag.GraphEvalState {
	return r.ges
}

// EvalPhase advances the run to the given phase and returns the results
// of every rule bound to that phase.
func (r *Run) EvalPhase(phase dag.Phase) ([]Result, error) {
	r.ctx.Phase = phase

	var results []Result
	for _, rule := range r.graph.rules {
		root, err := r.graph.Root(rule)
		if err != nil {
			return nil, err
		}
		start := time.Now()
		if _, err := r.ges.Eval(root, r.ctx); err != nil {
			return nil, err
		}
		final := r.ges.Final(root.Index())

		if rule.Phase != phase {
			continue
		}
		res := Result{
			RuleID:   rule.ID,
			Value:    final.Value(),
			Finished: final.IsFinished(),
		}
		results = append(results, res)
		if r.engine.metrics != nil {
			r.engine.metrics.RecordRuleResult(rule.ID, res.Truthy(), time.Since(start))
		}
	}
	return results, nil
}

// EvalAll drives the run through every phase in order and returns all
// results keyed by rule, in rule order.
func (r *Run) EvalAll() ([]Result, error) {
	var all []Result
	for p := dag.PhaseRequestHeader; p <= dag.FinalPhase; p++ {
		results, err := r.EvalPhase(p)
		if err != nil {
			return nil, err
		}
		all = append(all, results...)
	}
	return all, nil
}

// Close finishes the run, persisting its profile when tracing is on.
func (r *Run) Close(ctx context.Context) error {
	if r.engine.traces != nil && len(r.ges.ProfileRecords()) > 0 {
		return r.engine.traces.RecordRun(ctx, r.ges)
	}
	return nil
}
