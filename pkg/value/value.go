package value

import (
	"fmt"
	"strconv"
	"strings"
)

// Kind enumerates the kinds a Value can take. There is no automatic
// coercion between kinds except where an operation documents it
// (numeric comparison promotes Number to Float).
type Kind uint8

const (
	KindNull Kind = iota
	KindString
	KindNumber
	KindFloat
	KindList
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindFloat:
		return "float"
	case KindList:
		return "list"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Value is an immutable tagged union: null, string, 64-bit integer, float,
// or list of Values. The zero Value is null.
//
// A list Value holds a pointer to its backing List, so a Value wrapping a
// List observes later appends. This is how aliased and local value lists
// grow across evaluation phases without reallocating the Value itself.
//
// Truthiness follows the engine convention: every non-null value is truthy,
// including the empty string, which is the canonical truthy value.
type Value struct {
	kind Kind
	name string
	str  string
	num  int64
	flt  float64
	list *List
}

// Null returns the null Value.
func Null() Value {
	return Value{}
}

// FromString returns a string Value.
func FromString(s string) Value {
	return Value{kind: KindString, str: s}
}

// FromInt returns an integer Value.
func FromInt(n int64) Value {
	return Value{kind: KindNumber, num: n}
}

// FromFloat returns a float Value.
func FromFloat(f float64) Value {
	return Value{kind: KindFloat, flt: f}
}

// FromList returns a Value wrapping the given list. The Value aliases the
// list: appends to the list are visible through the Value.
func FromList(l *List) Value {
	if l == nil {
		return Null()
	}
	return Value{kind: KindList, list: l}
}

// ListOf returns a list Value holding the given elements.
func ListOf(vs ...Value) Value {
	l := NewList()
	for _, v := range vs {
		l.Append(v)
	}
	return FromList(l)
}

// True returns the canonical truthy value: the empty string.
func True() Value {
	return FromString("")
}

// WithName returns a copy of v carrying the given name. Names are used by
// keyed collections (variable stores, named filters) and do not participate
// in equality or rendering.
func (v Value) WithName(name string) Value {
	v.name = name
	return v
}

// Kind returns the kind of v.
func (v Value) Kind() Kind {
	return v.kind
}

// Name returns the name attached to v, if any.
func (v Value) Name() string {
	return v.name
}

// IsNull reports whether v is null.
func (v Value) IsNull() bool {
	return v.kind == KindNull
}

// Truthy reports whether v is truthy. Null is the only falsy value.
func (v Value) Truthy() bool {
	return v.kind != KindNull
}

// Text returns the string payload. It is only meaningful for string values.
func (v Value) Text() string {
	return v.str
}

// Int returns the integer payload. It is only meaningful for number values.
func (v Value) Int() int64 {
	return v.num
}

// Float returns the float payload. For number values it returns the
// integer converted to float64.
func (v Value) Float() float64 {
	if v.kind == KindNumber {
		return float64(v.num)
	}
	return v.flt
}

// AsList returns the backing list and true if v is a list.
func (v Value) AsList() (*List, bool) {
	if v.kind != KindList {
		return nil, false
	}
	return v.list, true
}

// Equal reports deep equality of v and o. Names are ignored. Number and
// float values of equal magnitude are not equal across kinds.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindString:
		return v.str == o.str
	case KindNumber:
		return v.num == o.num
	case KindFloat:
		return v.flt == o.flt
	case KindList:
		if v.list.Len() != o.list.Len() {
			return false
		}
		for i := 0; i < v.list.Len(); i++ {
			if !v.list.At(i).Equal(o.list.At(i)) {
				return false
			}
		}
		return true
	}
	return false
}

// Compare orders two scalar values. Numbers and floats compare numerically
// (promoting to float when kinds are mixed), strings lexically. Comparing
// null, lists, or a string against a numeric kind is an error.
func (v Value) Compare(o Value) (int, error) {
	numeric := func(k Kind) bool { return k == KindNumber || k == KindFloat }
	switch {
	case v.kind == KindString && o.kind == KindString:
		return strings.Compare(v.str, o.str), nil
	case v.kind == KindNumber && o.kind == KindNumber:
		switch {
		case v.num < o.num:
			return -1, nil
		case v.num > o.num:
			return 1, nil
		}
		return 0, nil
	case numeric(v.kind) && numeric(o.kind):
		a, b := v.Float(), o.Float()
		switch {
		case a < b:
			return -1, nil
		case a > b:
			return 1, nil
		}
		return 0, nil
	}
	return 0, fmt.Errorf("cannot compare %s to %s", v.kind, o.kind)
}

// Render returns the canonical literal form of v, the same form the
// expression parser accepts: 'escaped' for strings, decimal text for
// numbers and floats, null for null, and [elem elem ...] for lists.
func (v Value) Render() string {
	switch v.kind {
	case KindNull:
		return "null"
	case KindString:
		return "'" + EscapeString(v.str) + "'"
	case KindNumber:
		return strconv.FormatInt(v.num, 10)
	case KindFloat:
		return strconv.FormatFloat(v.flt, 'g', -1, 64)
	case KindList:
		var b strings.Builder
		b.WriteByte('[')
		for i := 0; i < v.list.Len(); i++ {
			if i > 0 {
				b.WriteByte(' ')
			}
			b.WriteString(v.list.At(i).Render())
		}
		b.WriteByte(']')
		return b.String()
	}
	return "null"
}

// String implements fmt.Stringer as Render.
func (v Value) String() string {
	return v.Render()
}

// EscapeString backslash-escapes the two characters that are significant
// inside a quoted literal: the backslash and the single quote.
func EscapeString(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '\\' || c == '\'' {
			b.WriteByte('\\')
		}
		b.WriteByte(c)
	}
	return b.String()
}
