// Package standard provides the built-in call library: boolean logic,
// arithmetic, value-list manipulation, comparison filters, environment
// access, and development helpers. Load registers all of them with a
// call factory.
package standard

import "mercator-hq/predicate/pkg/dag"

// Load registers every standard call with the factory. It panics if a
// name collides with an already registered call.
func Load(f *dag.CallFactory) {
	LoadBoolean(f)
	LoadMath(f)
	LoadList(f)
	LoadFilter(f)
	LoadHost(f)
	LoadDevelopment(f)
}
