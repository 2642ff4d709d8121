package dag

import (
	"fmt"
	"log/slog"
	"strings"

	"mercator-hq/predicate/pkg/value"
)

// Phase identifies a stage of per-context processing. Nodes are only
// meaningfully re-evaluated when the driving phase advances.
type Phase int

const (
	// PhaseInvalid is the sentinel returned for unknown phase names.
	PhaseInvalid Phase = -1
	// PhaseNone means "no phase": evaluation always recalculates.
	PhaseNone Phase = 0

	PhaseRequestHeader  Phase = 1
	PhaseRequest        Phase = 2
	PhaseResponseHeader Phase = 3
	PhaseResponse       Phase = 4
	PhasePostprocess    Phase = 5
)

// FinalPhase is the last phase of a run. Sources that never produce a
// value finish as false here.
const FinalPhase = PhasePostprocess

// String returns the canonical phase name.
func (p Phase) String() string {
	switch p {
	case PhaseNone:
		return "none"
	case PhaseRequestHeader:
		return "request_header"
	case PhaseRequest:
		return "request"
	case PhaseResponseHeader:
		return "response_header"
	case PhaseResponse:
		return "response"
	case PhasePostprocess:
		return "postprocess"
	default:
		return "invalid"
	}
}

// Operator is an externally supplied named operation resolved at pre-eval
// time and executed per value during evaluation.
type Operator interface {
	Execute(ctx *EvalContext, input value.Value) (value.Value, error)
}

// OperatorFunc adapts a function to the Operator interface.
type OperatorFunc func(ctx *EvalContext, input value.Value) (value.Value, error)

// Execute implements Operator.
func (f OperatorFunc) Execute(ctx *EvalContext, input value.Value) (value.Value, error) {
	return f(ctx, input)
}

// Transformation is an externally supplied named value rewrite.
type Transformation func(v value.Value) (value.Value, error)

// VarSource is a handle on one named external variable, acquired at
// pre-eval time and read per run from the context's variable store.
type VarSource struct {
	name string
}

// Name returns the variable name this source reads.
func (s *VarSource) Name() string {
	return s.name
}

// Get reads the current value of the variable from the run's store.
func (s *VarSource) Get(ctx *EvalContext) (value.Value, bool) {
	if ctx == nil || ctx.Vars == nil {
		return value.Null(), false
	}
	return ctx.Vars.Get(s.name)
}

// Environment carries the configuration-time lookup services: phase names,
// named operators, named transformations, and variable-source acquisition.
// It is populated before the graph is built and read-only afterward.
type Environment struct {
	logger          *slog.Logger
	phases          map[string]Phase
	operators       map[string]Operator
	transformations map[string]Transformation
	varSources      map[string]*VarSource
}

// NewEnvironment returns an environment with the standard phases
// registered and default transformations installed.
func NewEnvironment(logger *slog.Logger) *Environment {
	if logger == nil {
		logger = slog.Default()
	}
	e := &Environment{
		logger:          logger,
		phases:          make(map[string]Phase),
		operators:       make(map[string]Operator),
		transformations: make(map[string]Transformation),
		varSources:      make(map[string]*VarSource),
	}
	for _, p := range []Phase{
		PhaseRequestHeader, PhaseRequest,
		PhaseResponseHeader, PhaseResponse, PhasePostprocess,
	} {
		e.RegisterPhase(p.String(), p)
	}
	return e
}

// Logger returns the environment logger.
func (e *Environment) Logger() *slog.Logger {
	return e.logger
}

// RegisterPhase binds a phase name.
func (e *Environment) RegisterPhase(name string, p Phase) {
	e.phases[name] = p
}

// LookupPhase resolves a phase name to its identifier, returning
// PhaseInvalid if unknown. With relaxed set, the lookup ignores case.
func (e *Environment) LookupPhase(name string, relaxed bool) Phase {
	if p, ok := e.phases[name]; ok {
		return p
	}
	if relaxed {
		lower := strings.ToLower(name)
		for registered, p := range e.phases {
			if strings.ToLower(registered) == lower {
				return p
			}
		}
	}
	return PhaseInvalid
}

// RegisterOperator binds a named operator. It panics on duplicates; the
// operator vocabulary is fixed at startup.
func (e *Environment) RegisterOperator(name string, op Operator) {
	if _, exists := e.operators[name]; exists {
		panic(fmt.Sprintf("operator %q already registered", name))
	}
	e.operators[name] = op
}

// Operator resolves a named operator.
func (e *Environment) Operator(name string) (Operator, error) {
	op, ok := e.operators[name]
	if !ok {
		return nil, fmt.Errorf("%w: no operator named %q", ErrNotFound, name)
	}
	return op, nil
}

// RegisterTransformation binds a named transformation. It panics on
// duplicates.
func (e *Environment) RegisterTransformation(name string, t Transformation) {
	if _, exists := e.transformations[name]; exists {
		panic(fmt.Sprintf("transformation %q already registered", name))
	}
	e.transformations[name] = t
}

// Transformation resolves a named transformation.
func (e *Environment) Transformation(name string) (Transformation, error) {
	t, ok := e.transformations[name]
	if !ok {
		return nil, fmt.Errorf("%w: no transformation named %q", ErrNotFound, name)
	}
	return t, nil
}

// AcquireVarSource returns the source handle for a named variable,
// registering it on first acquisition. Many nodes may share one source.
func (e *Environment) AcquireVarSource(name string) (*VarSource, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: variable name cannot be empty", ErrInvalidOperation)
	}
	if s, ok := e.varSources[name]; ok {
		return s, nil
	}
	s := &VarSource{name: name}
	e.varSources[name] = s
	return s, nil
}

// VarStore holds the named external variables of one run. It is owned by
// a single run and accessed single-threaded.
type VarStore struct {
	vals map[string]value.Value
}

// NewVarStore returns an empty store.
func NewVarStore() *VarStore {
	return &VarStore{vals: make(map[string]value.Value)}
}

// Get reads a variable.
func (s *VarStore) Get(name string) (value.Value, bool) {
	v, ok := s.vals[name]
	return v, ok
}

// Set writes a variable.
func (s *VarStore) Set(name string, v value.Value) {
	s.vals[name] = v.WithName(name)
}

// EvalContext is the per-run execution context: the current phase, the
// run's variable store, and a logger. One context drives one GraphEvalState
// through its phases; contexts are independent and never shared between
// concurrent runs.
type EvalContext struct {
	Phase  Phase
	Vars   *VarStore
	Logger *slog.Logger
}

// NewEvalContext returns a context at PhaseNone with the given store.
func NewEvalContext(vars *VarStore, logger *slog.Logger) *EvalContext {
	if vars == nil {
		vars = NewVarStore()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &EvalContext{Phase: PhaseNone, Vars: vars, Logger: logger}
}
