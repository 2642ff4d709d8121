// Package parse turns rule expression text into node trees. The grammar is
// the canonical s-expression form produced by Node.String: calls are
// (name child ...), literals are single-quoted strings with backslash
// escaping, decimal integers and floats, bracketed lists, and null.
package parse

import (
	"fmt"
	"strconv"
	"strings"

	"mercator-hq/predicate/pkg/dag"
	"mercator-hq/predicate/pkg/value"
)

// ParseError reports where in the input parsing failed.
type ParseError struct {
	Position int
	Message  string
	Cause    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s at position %d", e.Message, e.Position)
}

func (e *ParseError) Unwrap() error {
	return e.Cause
}

func errAt(i int, msg string) error {
	return &ParseError{Position: i, Message: msg}
}

// Parse parses text as a single call expression. Leading and trailing
// spaces are permitted; anything else after the closing parenthesis is an
// error.
func Parse(text string, f *dag.CallFactory) (*dag.Node, error) {
	i := 0
	for i < len(text) && text[i] == ' ' {
		i++
	}
	root, next, err := ParseCall(text, i, f)
	if err != nil {
		return nil, err
	}
	for next < len(text) {
		if text[next] != ' ' {
			return nil, errAt(next, fmt.Sprintf("unexpected character %q after expression", text[next]))
		}
		next++
	}
	return root, nil
}

// ParseCall parses one call expression starting at index i and returns the
// tree and the index just past its closing parenthesis. Implemented
// iteratively so expression depth is not bounded by the goroutine stack.
func ParseCall(text string, i int, f *dag.CallFactory) (*dag.Node, int, error) {
	var top, current *dag.Node
	var stack []*dag.Node
	n := len(text)

	for i < n {
		switch c := text[i]; {
		case c == ' ':
			i++

		case c == '(':
			i++
			start := i
			for i < n && nameChar(text[i]) {
				i++
			}
			if i == start {
				return nil, i, errAt(i, "missing operation name")
			}
			if i >= n {
				return nil, i, errAt(i, "unterminated call")
			}
			name := text[start:i]
			node, err := f.New(name)
			if err != nil {
				return nil, start, &ParseError{
					Position: start,
					Message:  fmt.Sprintf("unknown operation %q", name),
					Cause:    err,
				}
			}
			if top == nil {
				top = node
			}
			if current != nil {
				if err := current.AddChild(node); err != nil {
					return nil, i, err
				}
				stack = append(stack, current)
			}
			current = node

		case c == ')':
			if current == nil {
				return nil, i, errAt(i, "unbalanced )")
			}
			i++
			if len(stack) == 0 {
				return top, i, nil
			}
			current = stack[len(stack)-1]
			stack = stack[:len(stack)-1]

		case c == '\'' || c == '[' || c == 'n' || c == '-' || numChar(c):
			if current == nil {
				return nil, i, errAt(i, "literal outside a call")
			}
			v, next, err := ParseLiteral(text, i)
			if err != nil {
				return nil, next, err
			}
			if err := current.AddChild(dag.NewLiteral(v)); err != nil {
				return nil, i, err
			}
			i = next

		default:
			return nil, i, errAt(i, fmt.Sprintf("unexpected character %q", c))
		}
	}
	return nil, i, errAt(i, "unterminated call")
}

// ParseLiteral parses one literal value starting at index i and returns it
// with the index just past it.
func ParseLiteral(text string, i int) (value.Value, int, error) {
	n := len(text)
	if strings.HasPrefix(text[i:], "null") {
		return value.Null(), i + 4, nil
	}

	if text[i] == '[' {
		i++
		l := value.NewList()
		for i < n {
			if text[i] == ' ' {
				i++
				continue
			}
			if text[i] == ']' {
				return value.FromList(l), i + 1, nil
			}
			v, next, err := ParseLiteral(text, i)
			if err != nil {
				return value.Null(), next, err
			}
			l.Append(v)
			i = next
		}
		return value.Null(), i, errAt(i, "unterminated list literal")
	}

	if numChar(text[i]) || text[i] == '-' {
		start := i
		if text[i] == '-' {
			i++
		}
		dot := false
		for i < n && (numChar(text[i]) || text[i] == '.') {
			if text[i] == '.' {
				if dot {
					return value.Null(), i, errAt(i, "multiple dots in numeric literal")
				}
				dot = true
			}
			i++
		}
		s := text[start:i]
		if dot {
			fv, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return value.Null(), i, errAt(start, fmt.Sprintf("malformed float literal %q", s))
			}
			return value.FromFloat(fv), i, nil
		}
		iv, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return value.Null(), i, errAt(start, fmt.Sprintf("malformed integer literal %q", s))
		}
		return value.FromInt(iv), i, nil
	}

	if text[i] != '\'' {
		return value.Null(), i, errAt(i, "expected '")
	}
	i++
	var b strings.Builder
	escape := false
	for i < n {
		c := text[i]
		switch {
		case escape:
			b.WriteByte(c)
			escape = false
		case c == '\\':
			escape = true
		case c == '\'':
			return value.FromString(b.String()), i + 1, nil
		default:
			b.WriteByte(c)
		}
		i++
	}
	return value.Null(), i, errAt(i, "unterminated string literal")
}

func nameChar(c byte) bool {
	return (c >= 'a' && c <= 'z') ||
		(c >= 'A' && c <= 'Z') ||
		(c >= '0' && c <= '9') ||
		c == '_'
}

func numChar(c byte) bool {
	return c >= '0' && c <= '9'
}
