package dag

import (
	"fmt"
	"io"
	"strings"
)

// Issue is one validation finding attached to a node.
type Issue struct {
	Node    *Node
	Message string
}

// String returns the issue with the node's canonical text.
func (i Issue) String() string {
	if i.Node == nil {
		return i.Message
	}
	return fmt.Sprintf("%s: %s", i.Node, i.Message)
}

// Reporter accumulates validation errors and warnings across a whole rule
// set without aborting the pass. Callers decide whether accumulated errors
// are fatal; configuration loading treats any error as load-time fatal.
type Reporter struct {
	errors   []Issue
	warnings []Issue
}

// NewReporter returns an empty reporter.
func NewReporter() *Reporter {
	return &Reporter{}
}

// Error records an error finding.
func (r *Reporter) Error(n *Node, msg string) {
	r.errors = append(r.errors, Issue{Node: n, Message: msg})
}

// Warning records a warning finding.
func (r *Reporter) Warning(n *Node, msg string) {
	r.warnings = append(r.warnings, Issue{Node: n, Message: msg})
}

// NumErrors returns the number of error findings.
func (r *Reporter) NumErrors() int {
	return len(r.errors)
}

// NumWarnings returns the number of warning findings.
func (r *Reporter) NumWarnings() int {
	return len(r.warnings)
}

// Errors returns all error findings.
func (r *Reporter) Errors() []Issue {
	return r.errors
}

// Warnings returns all warning findings.
func (r *Reporter) Warnings() []Issue {
	return r.warnings
}

// Summary returns a single-line digest of all findings.
func (r *Reporter) Summary() string {
	parts := make([]string, 0, len(r.errors)+len(r.warnings))
	for _, i := range r.errors {
		parts = append(parts, "error: "+i.String())
	}
	for _, i := range r.warnings {
		parts = append(parts, "warning: "+i.String())
	}
	return strings.Join(parts, "; ")
}

// WriteReport writes one finding per line to w.
func (r *Reporter) WriteReport(w io.Writer) {
	for _, i := range r.errors {
		fmt.Fprintf(w, "ERROR %s\n", i)
	}
	for _, i := range r.warnings {
		fmt.Fprintf(w, "WARNING %s\n", i)
	}
}

// NodeReporter binds a Reporter to one node so validation callbacks can
// report findings without carrying the node around.
type NodeReporter struct {
	reporter *Reporter
	node     *Node
}

// NewNodeReporter returns a reporter bound to n.
func NewNodeReporter(r *Reporter, n *Node) NodeReporter {
	return NodeReporter{reporter: r, node: n}
}

// Node returns the bound node.
func (nr NodeReporter) Node() *Node {
	return nr.node
}

// Error records an error finding against the bound node.
func (nr NodeReporter) Error(msg string) {
	nr.reporter.Error(nr.node, msg)
}

// Errorf records a formatted error finding against the bound node.
func (nr NodeReporter) Errorf(format string, args ...any) {
	nr.reporter.Error(nr.node, fmt.Sprintf(format, args...))
}

// Warning records a warning finding against the bound node.
func (nr NodeReporter) Warning(msg string) {
	nr.reporter.Warning(nr.node, msg)
}

// Warningf records a formatted warning finding against the bound node.
func (nr NodeReporter) Warningf(format string, args ...any) {
	nr.reporter.Warning(nr.node, fmt.Sprintf(format, args...))
}
