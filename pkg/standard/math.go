package standard

import (
	"fmt"

	"mercator-hq/predicate/pkg/dag"
	"mercator-hq/predicate/pkg/functional"
	"mercator-hq/predicate/pkg/value"
)

// LoadMath registers add, sub, mult, neg, max, and min.
func LoadMath(f *dag.CallFactory) {
	f.Register("add", functional.Generator(func() functional.Delegate {
		return newArith("add", func(a, b int64) int64 { return a + b }, func(a, b float64) float64 { return a + b })
	}))
	f.Register("sub", functional.Generator(func() functional.Delegate {
		return newArith("sub", func(a, b int64) int64 { return a - b }, func(a, b float64) float64 { return a - b })
	}))
	f.Register("mult", functional.Generator(func() functional.Delegate {
		return newArith("mult", func(a, b int64) int64 { return a * b }, func(a, b float64) float64 { return a * b })
	}))
	f.Register("neg", functional.Generator(newNeg))
	f.Register("max", functional.Generator(func() functional.Delegate { return newExtremum(1) }))
	f.Register("min", functional.Generator(func() functional.Delegate { return newExtremum(-1) }))
}

func numericKind(k value.Kind) bool {
	return k == value.KindNumber || k == value.KindFloat
}

func validateNumeric(i int, v value.Value, r dag.NodeReporter) {
	if !numericKind(v.Kind()) {
		r.Errorf("argument %d must be numeric, got %s", i, v.Kind())
	}
}

// newArith returns a two-argument delegate computing integer arithmetic
// when both arguments are integers and float arithmetic otherwise.
func newArith(name string, ints func(a, b int64) int64, floats func(a, b float64) float64) functional.Delegate {
	s := functional.NewSimple(0, 2, func(_ *dag.EvalContext, args []value.Value) (value.Value, error) {
		for _, a := range args {
			if !numericKind(a.Kind()) {
				return value.Null(), fmt.Errorf("%s: non-numeric argument %s", name, a)
			}
		}
		if args[0].Kind() == value.KindNumber && args[1].Kind() == value.KindNumber {
			return value.FromInt(ints(args[0].Int(), args[1].Int())), nil
		}
		return value.FromFloat(floats(args[0].Float(), args[1].Float())), nil
	})
	s.ValidateArgumentFunc = validateNumeric
	return s
}

func newNeg() functional.Delegate {
	s := functional.NewSimple(0, 1, func(_ *dag.EvalContext, args []value.Value) (value.Value, error) {
		switch args[0].Kind() {
		case value.KindNumber:
			return value.FromInt(-args[0].Int()), nil
		case value.KindFloat:
			return value.FromFloat(-args[0].Float()), nil
		}
		return value.Null(), fmt.Errorf("neg: non-numeric argument %s", args[0])
	})
	s.ValidateArgumentFunc = validateNumeric
	return s
}

// newExtremum returns a two-argument max (sign 1) or min (sign -1).
func newExtremum(sign int) functional.Delegate {
	s := functional.NewSimple(0, 2, func(_ *dag.EvalContext, args []value.Value) (value.Value, error) {
		cmp, err := args[0].Compare(args[1])
		if err != nil {
			return value.Null(), err
		}
		if cmp*sign >= 0 {
			return args[0], nil
		}
		return args[1], nil
	})
	s.ValidateArgumentFunc = validateNumeric
	return s
}
