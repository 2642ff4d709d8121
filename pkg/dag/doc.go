// Package dag defines the expression DAG and its evaluation protocol.
//
// A graph is built from Node values: named calls over ordered children and
// constant literals. Construction and transformation are single-threaded;
// once every node carries an evaluation index the graph is immutable and
// any number of concurrent runs may evaluate it, each through its own
// GraphEvalState.
//
// Evaluation is staged. A run walks the graph once per Phase; each node's
// calculate runs at most once per phase and appends to a monotonic value
// sequence until the node finishes. Nodes may instead forward to another
// node or alias an externally owned value, so shared subexpressions and
// data sources cost nothing to re-read.
package dag
