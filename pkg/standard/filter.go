package standard

import (
	"mercator-hq/predicate/pkg/dag"
	"mercator-hq/predicate/pkg/functional"
	"mercator-hq/predicate/pkg/value"
)

// LoadFilter registers eq, ne, lt, le, gt, ge, and named.
func LoadFilter(f *dag.CallFactory) {
	f.Register("eq", functional.Generator(func() functional.Delegate {
		return newEquality(false)
	}))
	f.Register("ne", functional.Generator(func() functional.Delegate {
		return newEquality(true)
	}))
	f.Register("lt", functional.Generator(func() functional.Delegate {
		return newComparison(func(cmp int) bool { return cmp < 0 })
	}))
	f.Register("le", functional.Generator(func() functional.Delegate {
		return newComparison(func(cmp int) bool { return cmp <= 0 })
	}))
	f.Register("gt", functional.Generator(func() functional.Delegate {
		return newComparison(func(cmp int) bool { return cmp > 0 })
	}))
	f.Register("ge", functional.Generator(func() functional.Delegate {
		return newComparison(func(cmp int) bool { return cmp >= 0 })
	}))
	f.Register("named", functional.Generator(newNamed))
}

// newEquality keeps the elements of its second argument equal (or, with
// invert, unequal) to its first.
func newEquality(invert bool) functional.Delegate {
	return functional.NewFilter(0, 2, func(_ *dag.EvalContext, secondary []value.Value, sub value.Value) (bool, error) {
		return secondary[0].Equal(sub) != invert, nil
	})
}

// newComparison keeps the elements of its second argument whose ordering
// against the first satisfies pass. The comparison is element-relative:
// (lt 5 input) keeps elements with input < 5.
func newComparison(pass func(cmp int) bool) functional.Delegate {
	return functional.NewFilter(0, 2, func(_ *dag.EvalContext, secondary []value.Value, sub value.Value) (bool, error) {
		cmp, err := sub.Compare(secondary[0])
		if err != nil {
			return false, err
		}
		return pass(cmp), nil
	})
}

// newNamed keeps the elements of its argument carrying the given name.
func newNamed() functional.Delegate {
	var name string
	f := functional.NewFilter(1, 1, func(_ *dag.EvalContext, _ []value.Value, sub value.Value) (bool, error) {
		return sub.Name() == name, nil
	})
	f.ValidateArgumentFunc = func(i int, v value.Value, r dag.NodeReporter) {
		if i == 0 && v.Kind() != value.KindString {
			r.Errorf("argument 0 must be a string, got %s", v.Kind())
		}
	}
	f.PrepareFunc = func(static []value.Value, env *dag.Environment, r dag.NodeReporter) bool {
		name = static[0].Text()
		return true
	}
	return f
}
