package metrics

import "github.com/prometheus/client_golang/prometheus"

// Retrieval pipeline Prometheus metrics.
var (
	PipelineRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "paperqa",
			Name:      "pipeline_requests_total",
			Help:      "Total retrieval pipeline requests by operation and outcome",
		},
		[]string{"operation", "outcome"}, // outcome: "ready" / "no_evidence" / "error"
	)

	RerankFallbacksTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "paperqa",
			Name:      "rerank_fallbacks_total",
			Help:      "Requests that fell back to fused-score ordering after rerank failure",
		},
	)

	SearchSourceFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "paperqa",
			Name:      "search_source_failures_total",
			Help:      "Document search source failures tolerated by single-source fusion",
		},
		[]string{"source"}, // "semantic" / "lexical"
	)
)

var pipelineMetricsRegistered bool

// RegisterPipelineMetrics registers pipeline metrics. Must be called once from main.
func RegisterPipelineMetrics() {
	if pipelineMetricsRegistered {
		return
	}
	prometheus.MustRegister(PipelineRequestsTotal)
	prometheus.MustRegister(RerankFallbacksTotal)
	prometheus.MustRegister(SearchSourceFailuresTotal)
	pipelineMetricsRegistered = true
}
