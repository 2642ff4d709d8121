package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"mercator-hq/predicate/pkg/config"
)

func newTestMetrics(t *testing.T) (*EngineMetrics, *prometheus.Registry) {
	t.Helper()
	registry := prometheus.NewRegistry()
	cfg := &config.MetricsConfig{Enabled: true, Namespace: "predicate"}
	return NewEngineMetrics(cfg, registry), registry
}

func TestRecordRuleResult(t *testing.T) {
	m, _ := newTestMetrics(t)

	m.RecordRuleResult("block-admin", true, 50*time.Microsecond)
	m.RecordRuleResult("block-admin", true, 70*time.Microsecond)
	m.RecordRuleResult("block-admin", false, 10*time.Microsecond)

	if got := testutil.ToFloat64(m.ruleResultsTotal.WithLabelValues("block-admin", "true")); got != 2 {
		t.Errorf("true results = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.ruleResultsTotal.WithLabelValues("block-admin", "false")); got != 1 {
		t.Errorf("false results = %v, want 1", got)
	}
}

func TestRecordGraph(t *testing.T) {
	m, _ := newTestMetrics(t)

	m.RecordGraph(42, 7)
	if got := testutil.ToFloat64(m.graphNodes); got != 42 {
		t.Errorf("graph_nodes = %v, want 42", got)
	}
	if got := testutil.ToFloat64(m.graphRoots); got != 7 {
		t.Errorf("graph_roots = %v, want 7", got)
	}
}

func TestRecordBuild(t *testing.T) {
	m, _ := newTestMetrics(t)

	m.RecordBuild(5, 2)
	m.RecordBuild(1, 0)

	if got := testutil.ToFloat64(m.mergedNodesTotal); got != 6 {
		t.Errorf("merged_nodes_total = %v, want 6", got)
	}
	if got := testutil.ToFloat64(m.transformsTotal); got != 2 {
		t.Errorf("transforms_total = %v, want 2", got)
	}
}

func TestRecordReload(t *testing.T) {
	m, _ := newTestMetrics(t)

	m.RecordReload(nil)
	m.RecordReload(errors.New("parse failed"))
	m.RecordReload(nil)

	if got := testutil.ToFloat64(m.reloadsTotal.WithLabelValues("success")); got != 2 {
		t.Errorf("success reloads = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.reloadsTotal.WithLabelValues("error")); got != 1 {
		t.Errorf("error reloads = %v, want 1", got)
	}
}

func TestRunsCounter(t *testing.T) {
	m, _ := newTestMetrics(t)
	m.RecordRun()
	m.RecordRun()
	if got := testutil.ToFloat64(m.runsTotal); got != 2 {
		t.Errorf("runs_total = %v, want 2", got)
	}
}
