package evolution

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	reconcilePaths = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "barmetrics_reconcile_path_total",
		Help: "Series produced per metric and reconciliation path",
	}, []string{"metric", "path"})

	sourceFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "barmetrics_source_failures_total",
		Help: "Source fetches that failed during reconciliation",
	}, []string{"source"})

	consistencyMismatches = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "barmetrics_consistency_mismatch_total",
		Help: "Days where server aggregation and client reduction disagree",
	}, []string{"metric"})

	reconcileLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "barmetrics_reconcile_duration_seconds",
		Help:    "Time to build a metric series, cache misses only",
		Buckets: prometheus.DefBuckets,
	}, []string{"metric"})
)
