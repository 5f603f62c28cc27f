// Package metrics exposes Prometheus metrics for the RAG pipeline.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds every vdoc collector plus the Go runtime collectors.
var Registry = prometheus.NewRegistry()

var (
	requestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vdoc_rag_requests_total",
			Help: "Total number of RAG pipeline runs by outcome and error code",
		},
		[]string{"outcome", "code"},
	)
	stageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "vdoc_rag_stage_duration_seconds",
			Help:    "Duration of each RAG pipeline stage in seconds",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 18), // 0.5ms to ~65s
		},
		[]string{"stage"},
	)
	corpusChunks = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "vdoc_corpus_chunks",
			Help: "Number of chunks in the loaded corpus",
		},
	)
)

func init() {
	Registry.MustRegister(
		requestsTotal,
		stageDuration,
		corpusChunks,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
}

// Outcome labels
const (
	OutcomeCompleted = "completed"
	OutcomeFailed    = "failed"
)

// ObserveRequest counts one finished pipeline run. code is empty on success.
func ObserveRequest(outcome, code string) {
	requestsTotal.WithLabelValues(outcome, code).Inc()
}

// ObserveStage records how long a stage took.
func ObserveStage(stage string, d time.Duration) {
	stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// SetCorpusChunks records the size of the loaded corpus.
func SetCorpusChunks(n int) {
	corpusChunks.Set(float64(n))
}

// Handler serves the registry in the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{Registry: Registry})
}
