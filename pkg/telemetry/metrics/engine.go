// Package metrics exposes Prometheus metrics for the predicate engine.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"mercator-hq/predicate/pkg/config"
)

// EngineMetrics tracks rule evaluation and graph lifecycle metrics.
//
// Metrics:
//   - <ns>_runs_total: Evaluation runs started
//   - <ns>_rule_results_total: Rule outcomes by rule and result
//   - <ns>_eval_duration_seconds: Per-rule evaluation duration
//   - <ns>_graph_nodes: Node count of the active graph
//   - <ns>_graph_roots: Root count of the active graph
//   - <ns>_merged_nodes_total: Nodes deduplicated away during builds
//   - <ns>_transforms_total: Node rewrites applied during builds
//   - <ns>_reloads_total: Rule set reloads by outcome
type EngineMetrics struct {
	registry *prometheus.Registry

	runsTotal        prometheus.Counter
	ruleResultsTotal *prometheus.CounterVec
	evalDuration     *prometheus.HistogramVec
	graphNodes       prometheus.Gauge
	graphRoots       prometheus.Gauge
	mergedNodesTotal prometheus.Counter
	transformsTotal  prometheus.Counter
	reloadsTotal     *prometheus.CounterVec
}

// NewEngineMetrics creates and registers the engine metrics. A nil registry
// creates a private one, reachable through Handler.
func NewEngineMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *EngineMetrics {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	m := &EngineMetrics{
		registry: registry,

		runsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Name:      "runs_total",
			Help:      "Total number of evaluation runs started",
		}),

		ruleResultsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "rule_results_total",
				Help:      "Total rule outcomes by rule and result",
			},
			[]string{"rule_id", "result"},
		),

		evalDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Name:      "eval_duration_seconds",
				Help:      "Duration of per-rule evaluation in seconds",
				// Evaluations are in-memory graph walks; sub-millisecond
				// is the norm.
				Buckets: prometheus.ExponentialBuckets(0.000001, 2, 15),
			},
			[]string{"rule_id"},
		),

		graphNodes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: cfg.Namespace,
			Name:      "graph_nodes",
			Help:      "Node count of the active expression graph",
		}),

		graphRoots: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: cfg.Namespace,
			Name:      "graph_roots",
			Help:      "Root count of the active expression graph",
		}),

		mergedNodesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Name:      "merged_nodes_total",
			Help:      "Total subexpression nodes deduplicated away during graph builds",
		}),

		transformsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Name:      "transforms_total",
			Help:      "Total node rewrites, such as constant folds, applied during graph builds",
		}),

		reloadsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "reloads_total",
				Help:      "Total rule set reloads by outcome",
			},
			[]string{"outcome"},
		),
	}

	registry.MustRegister(
		m.runsTotal,
		m.ruleResultsTotal,
		m.evalDuration,
		m.graphNodes,
		m.graphRoots,
		m.mergedNodesTotal,
		m.transformsTotal,
		m.reloadsTotal,
	)
	return m
}

// RecordRun counts one evaluation run.
func (m *EngineMetrics) RecordRun() {
	m.runsTotal.Inc()
}

// RecordRuleResult records one rule outcome ("true" or "false") and how
// long its evaluation took.
func (m *EngineMetrics) RecordRuleResult(ruleID string, truthy bool, duration time.Duration) {
	result := "false"
	if truthy {
		result = "true"
	}
	m.ruleResultsTotal.WithLabelValues(ruleID, result).Inc()
	m.evalDuration.WithLabelValues(ruleID).Observe(duration.Seconds())
}

// RecordGraph records the size of the active graph after a build or reload.
func (m *EngineMetrics) RecordGraph(nodes, roots int) {
	m.graphNodes.Set(float64(nodes))
	m.graphRoots.Set(float64(roots))
}

// RecordBuild records how much a build shrank the rule trees: nodes
// removed by subexpression merging and rewrites applied by transformation.
func (m *EngineMetrics) RecordBuild(merged, transforms int) {
	m.mergedNodesTotal.Add(float64(merged))
	m.transformsTotal.Add(float64(transforms))
}

// RecordReload counts one rule set reload attempt.
func (m *EngineMetrics) RecordReload(err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	m.reloadsTotal.WithLabelValues(outcome).Inc()
}

// Handler returns the Prometheus exposition handler for the registry the
// metrics were registered with.
func (m *EngineMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
		ErrorHandling:     promhttp.ContinueOnError,
	})
}
