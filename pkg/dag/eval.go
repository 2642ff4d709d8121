package dag

import (
	"fmt"

	"github.com/google/uuid"

	"mercator-hq/predicate/pkg/value"
)

// NodeEvalState is the evaluation state of a single node within one run.
// A node is in exactly one of four states:
//
//   - unevaluated: fresh, no values, not finished;
//   - local values: the node owns an append-only value list;
//   - forwarding: the node delegates values and finished status to another
//     node, live, until reset;
//   - aliased: the node's value is a live view of an externally owned,
//     append-only value.
//
// The three valued states are mutually exclusive and, once entered, the
// node cannot switch to another without Reset. Finish is terminal: after
// it, no value additions, forwarding, or aliasing may occur.
type NodeEvalState struct {
	forward  *Node
	finished bool
	val      value.Value
	local    *value.List
	state    any
	phase    Phase
}

// Reset returns the state to unevaluated.
func (s *NodeEvalState) Reset() {
	*s = NodeEvalState{}
}

// SetupLocalValues allocates the node's own append-only value list. It is
// a no-op when already set up and an error on a forwarding or aliased node.
func (s *NodeEvalState) SetupLocalValues(ctx *EvalContext) error {
	if s.IsForwarding() {
		return fmt.Errorf("%w: cannot set up local values on a forwarding node", ErrInvalidOperation)
	}
	if s.IsAliased() {
		return fmt.Errorf("%w: cannot set up local values on an aliased node", ErrInvalidOperation)
	}
	if s.local != nil {
		return nil
	}
	s.local = value.NewList()
	s.val = value.FromList(s.local)
	return nil
}

// AddValue appends v to the node's local value list, setting the list up
// on first use. Values are never retracted; the sequence is monotonic
// until Finish.
func (s *NodeEvalState) AddValue(v value.Value) error {
	if s.IsForwarding() {
		return fmt.Errorf("%w: cannot add a value to a forwarding node", ErrInvalidOperation)
	}
	if s.finished {
		return fmt.Errorf("%w: cannot add a value to a finished node", ErrInvalidOperation)
	}
	if s.local == nil {
		if !s.val.IsNull() {
			return fmt.Errorf("%w: cannot add a value to an aliased node", ErrInvalidOperation)
		}
		s.local = value.NewList()
		s.val = value.FromList(s.local)
	}
	s.local.Append(v)
	return nil
}

// Finish marks the node finished. A second Finish is an error.
func (s *NodeEvalState) Finish() error {
	if s.IsForwarding() {
		return fmt.Errorf("%w: cannot finish a forwarding node", ErrInvalidOperation)
	}
	if s.finished {
		return fmt.Errorf("%w: node is already finished", ErrInvalidOperation)
	}
	s.finished = true
	return nil
}

// FinishWith finishes the node with a single value. It is an error if the
// node already holds any value.
func (s *NodeEvalState) FinishWith(v value.Value) error {
	if !s.val.IsNull() {
		return fmt.Errorf("%w: cannot finish with a value: node already has values", ErrInvalidOperation)
	}
	if err := s.Finish(); err != nil {
		return err
	}
	s.val = v
	return nil
}

// FinishTrue finishes the node with the canonical truthy value.
func (s *NodeEvalState) FinishTrue() error {
	return s.FinishWith(value.True())
}

// FinishFalse finishes the node with no value.
func (s *NodeEvalState) FinishFalse() error {
	if !s.val.IsNull() {
		return fmt.Errorf("%w: cannot finish as false: node already has values", ErrInvalidOperation)
	}
	return s.Finish()
}

// Forward delegates this node's values and finished status to another
// node. Only an unevaluated node may forward, and forwarding is fixed
// until Reset. Chains are followed live at query time, never collapsed.
func (s *NodeEvalState) Forward(to *Node) error {
	if to == nil {
		return fmt.Errorf("%w: cannot forward to a nil node", ErrInvalidOperation)
	}
	if s.IsForwarding() {
		return fmt.Errorf("%w: cannot forward a forwarding node", ErrInvalidOperation)
	}
	if s.IsAliased() {
		return fmt.Errorf("%w: cannot forward an aliased node", ErrInvalidOperation)
	}
	if s.finished {
		return fmt.Errorf("%w: cannot forward a finished node", ErrInvalidOperation)
	}
	if s.local != nil {
		return fmt.Errorf("%w: cannot forward a node with local values", ErrInvalidOperation)
	}
	s.forward = to
	return nil
}

// Alias makes the node's value a live view of an externally owned value,
// typically a list that only grows. The caller guarantees append-only
// behavior and must still Finish the node when the external value is done
// growing.
func (s *NodeEvalState) Alias(v value.Value) error {
	if s.IsForwarding() {
		return fmt.Errorf("%w: cannot alias a forwarding node", ErrInvalidOperation)
	}
	if s.finished {
		return fmt.Errorf("%w: cannot alias a finished node", ErrInvalidOperation)
	}
	if s.local != nil {
		return fmt.Errorf("%w: cannot alias a node with local values", ErrInvalidOperation)
	}
	if !s.val.IsNull() {
		return fmt.Errorf("%w: cannot alias an aliased node", ErrInvalidOperation)
	}
	s.val = v
	return nil
}

// IsFinished reports whether the node is finished. Not meaningful on a
// forwarding node; see GraphEvalState.IsFinished.
func (s *NodeEvalState) IsFinished() bool {
	return s.finished
}

// IsForwarding reports whether the node forwards to another node.
func (s *NodeEvalState) IsForwarding() bool {
	return s.forward != nil
}

// IsAliased reports whether the node's value is an external alias.
func (s *NodeEvalState) IsAliased() bool {
	return !s.val.IsNull() && s.local == nil && !s.finished
}

// ForwardedTo returns the forwarding target, nil when not forwarding.
func (s *NodeEvalState) ForwardedTo() *Node {
	return s.forward
}

// Phase returns the last phase the node was evaluated at, PhaseNone if
// never evaluated.
func (s *NodeEvalState) Phase() Phase {
	return s.phase
}

func (s *NodeEvalState) setPhase(p Phase) {
	s.phase = p
}

// Value returns the node's current value. Not meaningful on a forwarding
// node; see GraphEvalState.
func (s *NodeEvalState) Value() value.Value {
	return s.val
}

// Values returns the node's value sequence: the elements for a list value,
// a single-element sequence for a scalar, nil for null.
func (s *NodeEvalState) Values() []value.Value {
	if s.val.IsNull() {
		return nil
	}
	if l, ok := s.val.AsList(); ok {
		return l.Values()
	}
	return []value.Value{s.val}
}

// State returns the per-run scratch slot established by EvalInitialize.
func (s *NodeEvalState) State() any {
	return s.state
}

// SetState stores per-run scratch data for the node's behavior.
func (s *NodeEvalState) SetState(v any) {
	s.state = v
}

// GraphEvalState holds the evaluation state of an entire graph for one
// run: a dense vector of NodeEvalState indexed by node index. One run owns
// one GraphEvalState; concurrent runs over the same immutable graph each
// construct their own and require no locking.
type GraphEvalState struct {
	runID  uuid.UUID
	states []NodeEvalState

	profiling     bool
	profile       []*ProfileRecord
	parentProfile *ProfileRecord
}

// NewGraphEvalState returns the state vector for one run of a graph whose
// node indices are all below indexLimit.
func NewGraphEvalState(indexLimit int) *GraphEvalState {
	return &GraphEvalState{
		runID:  uuid.New(),
		states: make([]NodeEvalState, indexLimit),
	}
}

// RunID returns the unique identifier of this run.
func (g *GraphEvalState) RunID() uuid.UUID {
	return g.runID
}

// IndexLimit returns the size of the state vector.
func (g *GraphEvalState) IndexLimit() int {
	return len(g.states)
}

// At returns the node's own state slot. It does not follow forwarding.
func (g *GraphEvalState) At(index int) *NodeEvalState {
	return &g.states[index]
}

// Final follows forwarding chains and returns the state of the ultimate
// node.
func (g *GraphEvalState) Final(index int) *NodeEvalState {
	for g.states[index].IsForwarding() {
		index = g.states[index].ForwardedTo().Index()
	}
	return &g.states[index]
}

// Value returns the node's own stored value without following forwarding.
func (g *GraphEvalState) Value(index int) value.Value {
	return g.states[index].Value()
}

// IsFinished reports the node's own finished flag without following
// forwarding.
func (g *GraphEvalState) IsFinished(index int) bool {
	return g.states[index].IsFinished()
}

// Phase returns the node's own last-evaluated phase without following
// forwarding.
func (g *GraphEvalState) Phase(index int) Phase {
	return g.states[index].Phase()
}

// Initialize establishes the node's per-run state. It must be called once
// per node, in a dependency-respecting order (children initialized by the
// time a parent first evaluates them), before the first Eval.
func (g *GraphEvalState) Initialize(n *Node, ctx *EvalContext) error {
	if n.Index() < 0 || n.Index() >= len(g.states) {
		return fmt.Errorf("%w: node %s has index %d outside [0,%d)",
			ErrInvalidOperation, n, n.Index(), len(g.states))
	}
	return n.EvalInitialize(g, ctx)
}

// Eval evaluates a node for the context's current phase and returns its
// value sequence. It follows forwarding to the ultimate node; if that node
// is finished, or was already evaluated in this phase, Eval is equivalent
// to re-reading the value. A node's calculate runs at most once per phase;
// at PhaseNone it always runs.
func (g *GraphEvalState) Eval(n *Node, ctx *EvalContext) (value.Value, error) {
	final := n
	for g.states[final.Index()].IsForwarding() {
		final = g.states[final.Index()].ForwardedTo()
	}
	s := &g.states[final.Index()]

	if !s.IsFinished() && (s.Phase() != ctx.Phase || ctx.Phase == PhaseNone) {
		s.setPhase(ctx.Phase)

		var rec *ProfileRecord
		if g.profiling {
			rec = g.profilerMark(final)
		}
		err := final.EvalCalculate(g, ctx)
		if rec != nil {
			g.profilerRecord(rec)
		}
		if err != nil {
			return value.Null(), &EvalError{Sexpr: final.String(), Cause: err}
		}
	}
	return s.Value(), nil
}
