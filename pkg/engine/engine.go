// Package engine assembles rule expressions into a shared evaluation
// graph and drives per-run evaluation against it. It owns the build
// pipeline (parse, merge, transform, index, pre-eval) and hot reloading
// of the rule set.
package engine

import (
	"fmt"
	"io"
	"log/slog"
	"sync"

	"mercator-hq/predicate/pkg/config"
	"mercator-hq/predicate/pkg/dag"
	"mercator-hq/predicate/pkg/graph"
	"mercator-hq/predicate/pkg/parse"
	"mercator-hq/predicate/pkg/standard"
	"mercator-hq/predicate/pkg/telemetry/metrics"
	"mercator-hq/predicate/pkg/trace"
)

// Rule is one compiled rule: its identifier, the phase its result is read
// at, and its root slot in the merge graph.
type Rule struct {
	ID        string
	Phase     dag.Phase
	RootIndex int
}

// Graph is one immutable build of the rule set. Reloads produce a new
// Graph; runs started against an old one keep it alive until they finish.
type Graph struct {
	merge      *graph.MergeGraph
	rules      []Rule
	order      []*dag.Node // BFS order from all roots, parents first
	indexLimit int
}

// Rules returns the compiled rules.
func (g *Graph) Rules() []Rule {
	return g.rules
}

// NumNodes returns the node count of the graph.
func (g *Graph) NumNodes() int {
	return g.indexLimit
}

// Root returns the root node of a rule.
func (g *Graph) Root(r Rule) (*dag.Node, error) {
	return g.merge.Root(r.RootIndex)
}

// WriteDot writes the graph in Graphviz dot form.
func (g *Graph) WriteDot(w io.Writer) error {
	return graph.WriteDot(w, g.merge.Roots()...)
}

// Options configures an Engine. Zero fields get working defaults.
type Options struct {
	Config      *config.Config
	Environment *dag.Environment
	Factory     *dag.CallFactory // nil loads the standard library
	Logger      *slog.Logger
	Metrics     *metrics.EngineMetrics
	Traces      *trace.Store
}

// Engine holds the active graph and produces runs against it.
type Engine struct {
	cfg     *config.Config
	env     *dag.Environment
	factory *dag.CallFactory
	logger  *slog.Logger
	metrics *metrics.EngineMetrics
	traces  *trace.Store

	mu      sync.RWMutex
	current *Graph
}

// New creates an engine and builds the initial graph from the rule set.
func New(rs *config.RuleSet, opts Options) (*Engine, error) {
	if opts.Config == nil {
		opts.Config = &config.Config{}
		config.ApplyDefaults(opts.Config)
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Environment == nil {
		opts.Environment = dag.NewEnvironment(opts.Logger)
	}
	if opts.Factory == nil {
		f := dag.NewCallFactory()
		standard.Load(f)
		opts.Factory = f
	}

	e := &Engine{
		cfg:     opts.Config,
		env:     opts.Environment,
		factory: opts.Factory,
		logger:  opts.Logger.With("component", "engine"),
		metrics: opts.Metrics,
		traces:  opts.Traces,
	}

	g, err := e.build(rs)
	if err != nil {
		return nil, err
	}
	e.current = g
	e.recordGraph(g)
	return e, nil
}

// Graph returns the active graph.
func (e *Engine) Graph() *Graph {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.current
}

// Reload builds a new graph from rs and swaps it in. On failure the
// active graph is left untouched.
func (e *Engine) Reload(rs *config.RuleSet) error {
	g, err := e.build(rs)
	if e.metrics != nil {
		e.metrics.RecordReload(err)
	}
	if err != nil {
		return err
	}

	e.mu.Lock()
	e.current = g
	e.mu.Unlock()

	e.recordGraph(g)
	e.logger.Info("rule set reloaded",
		"rules", len(g.rules),
		"nodes", g.indexLimit,
	)
	return nil
}

// ReloadFromFile loads the rule set file and reloads from it.
func (e *Engine) ReloadFromFile(path string) error {
	rs, err := config.LoadRuleSet(path)
	if err != nil {
		if e.metrics != nil {
			e.metrics.RecordReload(err)
		}
		return err
	}
	return e.Reload(rs)
}

func (e *Engine) recordGraph(g *Graph) {
	if e.metrics != nil {
		e.metrics.RecordGraph(g.indexLimit, len(g.rules))
	}
}

// build runs the full pipeline: parse each rule into a tree, merge the
// trees, validate, transform to a fixpoint, validate again, index every
// node, and resolve external names.
func (e *Engine) build(rs *config.RuleSet) (*Graph, error) {
	mg := graph.New()
	rules := make([]Rule, 0, len(rs.Rules))
	treeNodes := 0

	for _, rc := range rs.Rules {
		phase := e.env.LookupPhase(rc.Phase, true)
		if phase == dag.PhaseInvalid {
			return nil, fmt.Errorf("rule %q: unknown phase %q", rc.ID, rc.Phase)
		}
		root, err := parse.Parse(rc.Expr, e.factory)
		if err != nil {
			return nil, fmt.Errorf("rule %q: %w", rc.ID, err)
		}
		if err := dag.BFSDown([]*dag.Node{root}, func(*dag.Node) error {
			treeNodes++
			return nil
		}); err != nil {
			return nil, err
		}
		index, _, err := mg.AddRoot(root)
		if err != nil {
			return nil, fmt.Errorf("rule %q: %w", rc.ID, err)
		}
		rules = append(rules, Rule{ID: rc.ID, Phase: phase, RootIndex: index})
	}
	merged := treeNodes - mg.Size()

	if err := e.validate(mg, (*dag.Node).PreTransform); err != nil {
		return nil, err
	}
	transforms, err := e.transform(mg)
	if err != nil {
		return nil, err
	}
	if err := e.validate(mg, (*dag.Node).PostTransform); err != nil {
		return nil, err
	}
	if e.metrics != nil {
		e.metrics.RecordBuild(merged, transforms)
	}

	g := &Graph{merge: mg, rules: rules}
	if err := dag.BFSDown(mg.Roots(), func(n *dag.Node) error {
		n.SetIndex(len(g.order))
		g.order = append(g.order, n)
		return nil
	}); err != nil {
		return nil, err
	}
	g.indexLimit = len(g.order)

	reporter := dag.NewReporter()
	for _, n := range g.order {
		n.PreEval(e.env, dag.NewNodeReporter(reporter, n))
	}
	if reporter.NumErrors() > 0 {
		return nil, &dag.ValidationError{Report: reporter}
	}
	return g, nil
}

// validate runs one validation hook over every node, collecting all
// issues before failing.
func (e *Engine) validate(mg *graph.MergeGraph, hook func(*dag.Node, dag.NodeReporter)) error {
	reporter := dag.NewReporter()
	if err := dag.BFSDown(mg.Roots(), func(n *dag.Node) error {
		hook(n, dag.NewNodeReporter(reporter, n))
		return nil
	}); err != nil {
		return err
	}
	for _, issue := range reporter.Warnings() {
		e.logger.Warn("rule validation warning", "issue", issue.String())
	}
	if reporter.NumErrors() > 0 {
		return &dag.ValidationError{Report: reporter}
	}
	return nil
}

// transform asks every node to rewrite itself, bottom-up, until a full
// pass changes nothing or the pass limit is hit. It returns the number of
// rewrites applied.
func (e *Engine) transform(mg *graph.MergeGraph) (int, error) {
	maxPasses := e.cfg.Eval.MaxTransformPasses
	if maxPasses <= 0 {
		maxPasses = config.DefaultMaxTransformPasses
	}

	rewrites := 0
	for pass := 0; pass < maxPasses; pass++ {
		var order []*dag.Node
		if err := dag.BFSDown(mg.Roots(), func(n *dag.Node) error {
			order = append(order, n)
			return nil
		}); err != nil {
			return rewrites, err
		}

		reporter := dag.NewReporter()
		changed := false
		for i := len(order) - 1; i >= 0; i-- {
			n := order[i]
			if mg.Known(n) != n {
				continue // replaced or removed earlier in this pass
			}
			if n.Transform(mg, e.factory, e.env, dag.NewNodeReporter(reporter, n)) {
				changed = true
				rewrites++
			}
		}
		if reporter.NumErrors() > 0 {
			return rewrites, &dag.ValidationError{Report: reporter}
		}
		if !changed {
			return rewrites, nil
		}
	}
	e.logger.Warn("transform pass limit reached before fixpoint", "passes", maxPasses)
	return rewrites, nil
}
