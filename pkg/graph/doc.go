// Package graph provides the MergeGraph: content-addressed deduplication
// of expression trees into a shared DAG, with consistent node replacement
// for the transformation pass and Graphviz export for debugging.
package graph
