package scoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus instrumentation shared by all evaluator implementations.
// Exported on /metrics by the service entrypoint.
var (
	Evaluations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "molscore_evaluations_total",
		Help: "Total Evaluate calls, by evaluator kind.",
	}, []string{"kind"})

	CacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "molscore_score_cache_hits_total",
		Help: "Evaluate calls answered from the score cache, by evaluator kind.",
	}, []string{"kind"})

	ConformerFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "molscore_conformer_failures_total",
		Help: "Conformer generation failures mapped to sentinel scores, by evaluator kind.",
	}, []string{"kind"})

	EvaluationSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "molscore_evaluation_seconds",
		Help:    "Wall time of Evaluate calls, by evaluator kind.",
		Buckets: prometheus.ExponentialBuckets(0.0001, 4, 10),
	}, []string{"kind"})
)
