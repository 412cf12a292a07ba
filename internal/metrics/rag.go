package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Generation, index, pipeline and ingestion metrics.
var (
	GenerationRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generation_requests_total",
			Help:      "Total number of language model requests",
		},
		[]string{"provider", "model", "status"},
	)

	GenerationRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "generation_request_duration_seconds",
			Help:      "Language model request duration in seconds",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		},
		[]string{"provider", "model"},
	)

	IndexOperationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "index_operation_duration_seconds",
			Help:      "Vector index operation duration in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
		[]string{"backend", "op"},
	)

	IndexErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "index_errors_total",
			Help:      "Total vector index errors",
		},
		[]string{"backend", "op"},
	)

	PipelineRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pipeline_runs_total",
			Help:      "Total draft/review pipeline runs by outcome",
		},
		[]string{"workflow", "outcome"},
	)

	PipelineStageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pipeline_stage_duration_seconds",
			Help:      "Duration of a single pipeline stage in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 30, 120},
		},
		[]string{"workflow", "stage"},
	)

	IngestRecordsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingest_records_total",
			Help:      "Corpus records seen by ingestion",
		},
		[]string{"result"}, // "indexed" / "skipped"
	)
)

var ragMetricsOnce sync.Once

// RegisterRAGMetrics registers generation, index, pipeline and ingestion metrics.
func RegisterRAGMetrics() {
	ragMetricsOnce.Do(func() {
		prometheus.MustRegister(GenerationRequestsTotal)
		prometheus.MustRegister(GenerationRequestDuration)
		prometheus.MustRegister(IndexOperationDuration)
		prometheus.MustRegister(IndexErrorsTotal)
		prometheus.MustRegister(PipelineRunsTotal)
		prometheus.MustRegister(PipelineStageDuration)
		prometheus.MustRegister(IngestRecordsTotal)
	})
}
