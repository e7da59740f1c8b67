package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Retrieval pipeline metrics.
var (
	QueriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "queries_total",
			Help:      "Answered queries by terminal status",
		},
		[]string{"status"}, // ok, cached, no_result, error
	)

	StageOutcomesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "stage_outcomes_total",
			Help:      "Pipeline stage executions by outcome",
		},
		[]string{"stage", "outcome"},
	)

	StageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "stage_duration_seconds",
			Help:      "Pipeline stage duration in seconds",
			Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"stage"},
	)

	QueryCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "query_cache_total",
			Help:      "Query cache lookups by tier and result",
		},
		[]string{"tier", "result"}, // tier: memory/redis, result: hit/miss/expired/error
	)

	CollaboratorRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "collaborator_requests_total",
			Help:      "Calls to remote scoring services by status",
		},
		[]string{"collaborator", "status"},
	)

	CollaboratorRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "collaborator_request_duration_seconds",
			Help:      "Remote scoring service call duration in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"collaborator"},
	)

	BreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "circuit_breaker_state",
			Help:      "Circuit breaker state: 0 closed, 1 half-open, 2 open",
		},
		[]string{"name"},
	)
)

var registerPipeline sync.Once

// RegisterPipelineMetrics registers the retrieval pipeline metrics.
func RegisterPipelineMetrics() {
	registerPipeline.Do(func() {
		prometheus.MustRegister(
			QueriesTotal,
			StageOutcomesTotal,
			StageDuration,
			QueryCacheTotal,
			CollaboratorRequestsTotal,
			CollaboratorRequestDuration,
			BreakerState,
		)
	})
}
