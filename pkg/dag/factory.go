package dag

import (
	"fmt"
	"sort"
)

// Generator constructs a fresh call node for a registered name. Each
// invocation must return a new node: nodes carry structural state and are
// never shared before merging.
type Generator func(name string) (*Node, error)

// CallFactory maps call names to node constructors. Transform
// implementations use it to synthesize new named nodes without static type
// dependencies, and the parser uses it to turn (name ...) text into nodes.
type CallFactory struct {
	generators map[string]Generator
}

// NewCallFactory returns an empty factory.
func NewCallFactory() *CallFactory {
	return &CallFactory{generators: make(map[string]Generator)}
}

// Register binds a generator to a call name. It panics if the name is
// already registered; call names are a fixed, compile-time vocabulary.
func (f *CallFactory) Register(name string, g Generator) *CallFactory {
	if _, exists := f.generators[name]; exists {
		panic(fmt.Sprintf("call generator %q already registered", name))
	}
	f.generators[name] = g
	return f
}

// New constructs a node for the named call.
func (f *CallFactory) New(name string) (*Node, error) {
	g, ok := f.generators[name]
	if !ok {
		return nil, fmt.Errorf("%w: no call named %q", ErrNotFound, name)
	}
	return g(name)
}

// Names returns the registered call names in sorted order.
func (f *CallFactory) Names() []string {
	names := make([]string, 0, len(f.generators))
	for name := range f.generators {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
