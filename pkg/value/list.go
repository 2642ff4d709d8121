package value

// List is an ordered, append-only sequence of Values. Elements are never
// modified or removed once appended, so an index observed by one reader
// stays valid for the lifetime of the list even while another producer
// keeps appending. Lists are not safe for concurrent use; within one
// evaluation run all access is single-threaded.
type List struct {
	elems []Value
}

// NewList returns an empty list.
func NewList(vs ...Value) *List {
	l := &List{}
	for _, v := range vs {
		l.Append(v)
	}
	return l
}

// Append adds v to the end of the list.
func (l *List) Append(v Value) {
	l.elems = append(l.elems, v)
}

// Len returns the number of elements.
func (l *List) Len() int {
	if l == nil {
		return 0
	}
	return len(l.elems)
}

// At returns the element at index i. It panics if i is out of range, like
// a slice access.
func (l *List) At(i int) Value {
	return l.elems[i]
}

// Values returns the current elements. The returned slice must not be
// mutated; it may share backing storage with the list.
func (l *List) Values() []Value {
	if l == nil {
		return nil
	}
	return l.elems
}
