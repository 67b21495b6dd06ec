// Package metrics defines the Prometheus instrumentation the engine
// records: indexing throughput and errors, query latency and result
// counts by operation, embedding-cache hit/miss counters, and store-size
// gauges (SPEC_FULL.md DOMAIN STACK, Supplemented Feature #4). Metrics
// are registered with a prometheus.Registerer; this module serves no
// HTTP endpoint for them, and nothing in it calls the embedding-cache
// Record* methods.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Registry holds every metric this module emits, grouped the way the
// teacher's observability.MetricsCollector does (one struct, one
// constructor, namespaced metric names, label-parameterized Record*
// methods).
type Registry struct {
	FilesProcessedTotal prometheus.Counter
	FilesUpdatedTotal   prometheus.Counter
	ChunksAddedTotal    prometheus.Counter
	ChunksRemovedTotal  prometheus.Counter
	IndexErrorsTotal    prometheus.Counter
	IndexDuration       prometheus.Histogram

	QueryRequestsTotal *prometheus.CounterVec
	QueryDuration      *prometheus.HistogramVec
	QueryResultsCount  *prometheus.HistogramVec

	EmbeddingCacheHits   prometheus.Counter
	EmbeddingCacheMisses prometheus.Counter

	KeywordStoreSize prometheus.Gauge
	VectorStoreSize  prometheus.Gauge
	CachedChunksSize prometheus.Gauge
}

// NewRegistry creates and registers every metric against the default
// Prometheus registerer.
func NewRegistry(namespace string) *Registry {
	return NewRegistryWithRegisterer(namespace, prometheus.DefaultRegisterer)
}

// NewRegistryWithRegisterer creates metrics against reg, letting tests
// use a throwaway prometheus.NewRegistry() instead of the process-wide
// default (avoids "duplicate metrics collector registration" across
// tests that construct a Registry more than once).
func NewRegistryWithRegisterer(namespace string, reg prometheus.Registerer) *Registry {
	if namespace == "" {
		namespace = "docsmcp"
	}
	f := promauto.With(reg)

	return &Registry{
		FilesProcessedTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "files_processed_total",
			Help: "Total number of files processed by index_paths.",
		}),
		FilesUpdatedTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "files_updated_total",
			Help: "Total number of files whose existing chunks were removed and reinserted.",
		}),
		ChunksAddedTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "chunks_added_total",
			Help: "Total number of chunks added across all index_paths calls.",
		}),
		ChunksRemovedTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "chunks_removed_total",
			Help: "Total number of chunks removed across all index_paths calls.",
		}),
		IndexErrorsTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "index_errors_total",
			Help: "Total number of per-file errors encountered during index_paths.",
		}),
		IndexDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Name: "index_paths_duration_seconds",
			Help:    "Duration of a complete index_paths call.",
			Buckets: []float64{.1, .5, 1, 5, 10, 30, 60, 300, 900},
		}),

		QueryRequestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "query_requests_total",
			Help: "Total number of search/retrieve requests by operation and status.",
		}, []string{"operation", "status"}),
		QueryDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Name: "query_duration_seconds",
			Help:    "Query duration in seconds by operation.",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		}, []string{"operation"}),
		QueryResultsCount: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Name: "query_results_count",
			Help:    "Number of results returned by a query, by operation.",
			Buckets: []float64{0, 1, 5, 10, 20, 50, 100},
		}, []string{"operation"}),

		EmbeddingCacheHits: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "embedding_cache_hits_total",
			Help: "Total number of embedding cache hits.",
		}),
		EmbeddingCacheMisses: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "embedding_cache_misses_total",
			Help: "Total number of embedding cache misses.",
		}),

		KeywordStoreSize: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "keyword_store_chunks",
			Help: "Number of chunks currently in the keyword store.",
		}),
		VectorStoreSize: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "vector_store_chunks",
			Help: "Number of chunks currently in the vector store.",
		}),
		CachedChunksSize: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "metadata_cache_chunks",
			Help: "Number of chunks currently in the Metadata Cache.",
		}),
	}
}

// IncFilesProcessed implements index.MetricsRecorder.
func (r *Registry) IncFilesProcessed(n int) { r.FilesProcessedTotal.Add(float64(n)) }

// IncFilesUpdated implements index.MetricsRecorder.
func (r *Registry) IncFilesUpdated(n int) { r.FilesUpdatedTotal.Add(float64(n)) }

// IncChunksAdded implements index.MetricsRecorder.
func (r *Registry) IncChunksAdded(n int) { r.ChunksAddedTotal.Add(float64(n)) }

// IncChunksRemoved implements index.MetricsRecorder.
func (r *Registry) IncChunksRemoved(n int) { r.ChunksRemovedTotal.Add(float64(n)) }

// IncErrors implements index.MetricsRecorder.
func (r *Registry) IncErrors(n int) { r.IndexErrorsTotal.Add(float64(n)) }

// ObserveIndexDuration implements index.MetricsRecorder.
func (r *Registry) ObserveIndexDuration(d time.Duration) { r.IndexDuration.Observe(d.Seconds()) }

// RecordQuery records one search/retrieve call's outcome.
func (r *Registry) RecordQuery(operation, status string, duration time.Duration, resultCount int) {
	r.QueryRequestsTotal.WithLabelValues(operation, status).Inc()
	r.QueryDuration.WithLabelValues(operation).Observe(duration.Seconds())
	r.QueryResultsCount.WithLabelValues(operation).Observe(float64(resultCount))
}

// RecordEmbeddingCacheHit records an embedding cache hit.
func (r *Registry) RecordEmbeddingCacheHit() { r.EmbeddingCacheHits.Inc() }

// RecordEmbeddingCacheMiss records an embedding cache miss.
func (r *Registry) RecordEmbeddingCacheMiss() { r.EmbeddingCacheMisses.Inc() }

// SetStoreSizes updates the store-size gauges; docscore's GetStats calls
// it with the counts it has just read.
func (r *Registry) SetStoreSizes(keywordCount, vectorCount, cachedCount int) {
	r.KeywordStoreSize.Set(float64(keywordCount))
	r.VectorStoreSize.Set(float64(vectorCount))
	r.CachedChunksSize.Set(float64(cachedCount))
}
