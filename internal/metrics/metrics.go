// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

// Package metrics exposes Prometheus instrumentation for the indexer,
// the watch loop, and the query engine, all under the codegraph_ namespace.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

type registry struct {
	once sync.Once

	// Indexing delta
	filesAdded    prometheus.Counter
	filesModified prometheus.Counter
	filesDeleted  prometheus.Counter
	filesSkipped  prometheus.Counter

	// Symbols
	symbolsAdded    prometheus.Counter
	symbolsModified prometheus.Counter
	symbolsDeleted  prometheus.Counter

	// Edges
	edgesResolved   prometheus.Counter
	edgesUnresolved prometheus.Counter

	// Batches
	batchesFlushed  prometheus.Counter
	batchRetries    prometheus.Counter

	// Watch loop
	watchEventsCoalesced prometheus.Counter
	watchFallbackPolls   prometheus.Counter

	// Query engine
	queriesTotal   *prometheus.CounterVec
	queryErrors    *prometheus.CounterVec

	// Durations
	scanDuration    prometheus.Histogram
	extractDuration prometheus.Histogram
	writeDuration   prometheus.Histogram
	queryDuration   *prometheus.HistogramVec
}

var reg registry

func (r *registry) init() {
	r.once.Do(func() {
		r.filesAdded = prometheus.NewCounter(prometheus.CounterOpts{Name: "codegraph_index_files_added_total", Help: "Files newly seen by the indexer"})
		r.filesModified = prometheus.NewCounter(prometheus.CounterOpts{Name: "codegraph_index_files_modified_total", Help: "Files re-extracted because their digest changed"})
		r.filesDeleted = prometheus.NewCounter(prometheus.CounterOpts{Name: "codegraph_index_files_deleted_total", Help: "Files no longer present on disk"})
		r.filesSkipped = prometheus.NewCounter(prometheus.CounterOpts{Name: "codegraph_index_files_skipped_total", Help: "Files skipped (binary, oversized, or ignored)"})

		r.symbolsAdded = prometheus.NewCounter(prometheus.CounterOpts{Name: "codegraph_index_symbols_added_total", Help: "Symbols added across all extractions"})
		r.symbolsModified = prometheus.NewCounter(prometheus.CounterOpts{Name: "codegraph_index_symbols_modified_total", Help: "Symbols whose span/docstring changed under a stable stable_id"})
		r.symbolsDeleted = prometheus.NewCounter(prometheus.CounterOpts{Name: "codegraph_index_symbols_deleted_total", Help: "Symbols tombstoned"})

		r.edgesResolved = prometheus.NewCounter(prometheus.CounterOpts{Name: "codegraph_index_edges_resolved_total", Help: "Edges resolved to a target symbol"})
		r.edgesUnresolved = prometheus.NewCounter(prometheus.CounterOpts{Name: "codegraph_index_edges_unresolved_total", Help: "Edges left with only a target qualname"})

		r.batchesFlushed = prometheus.NewCounter(prometheus.CounterOpts{Name: "codegraph_index_batches_flushed_total", Help: "Write batches committed"})
		r.batchRetries = prometheus.NewCounter(prometheus.CounterOpts{Name: "codegraph_index_batch_retries_total", Help: "Write batches retried after a busy/locked error"})

		r.watchEventsCoalesced = prometheus.NewCounter(prometheus.CounterOpts{Name: "codegraph_watch_events_coalesced_total", Help: "Filesystem events coalesced by path during debounce"})
		r.watchFallbackPolls = prometheus.NewCounter(prometheus.CounterOpts{Name: "codegraph_watch_fallback_polls_total", Help: "Polling fallback cycles run when fsnotify is unavailable"})

		r.queriesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{Name: "codegraph_query_requests_total", Help: "Dispatcher requests by method"}, []string{"method"})
		r.queryErrors = prometheus.NewCounterVec(prometheus.CounterOpts{Name: "codegraph_query_errors_total", Help: "Dispatcher errors by method and kind"}, []string{"method", "kind"})

		buckets := []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}
		r.scanDuration = prometheus.NewHistogram(prometheus.HistogramOpts{Name: "codegraph_index_scan_seconds", Help: "Repository scan duration", Buckets: buckets})
		r.extractDuration = prometheus.NewHistogram(prometheus.HistogramOpts{Name: "codegraph_index_extract_seconds", Help: "Per-file extraction duration", Buckets: buckets})
		r.writeDuration = prometheus.NewHistogram(prometheus.HistogramOpts{Name: "codegraph_index_write_seconds", Help: "Batch commit duration", Buckets: buckets})
		r.queryDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{Name: "codegraph_query_duration_seconds", Help: "Dispatcher request duration by method", Buckets: buckets}, []string{"method"})

		prometheus.MustRegister(
			r.filesAdded, r.filesModified, r.filesDeleted, r.filesSkipped,
			r.symbolsAdded, r.symbolsModified, r.symbolsDeleted,
			r.edgesResolved, r.edgesUnresolved,
			r.batchesFlushed, r.batchRetries,
			r.watchEventsCoalesced, r.watchFallbackPolls,
			r.queriesTotal, r.queryErrors,
			r.scanDuration, r.extractDuration, r.writeDuration, r.queryDuration,
		)
	})
}

// RecordFileDelta increments the file-level delta counters.
func RecordFileDelta(added, modified, deleted, skipped int) {
	reg.init()
	reg.filesAdded.Add(float64(added))
	reg.filesModified.Add(float64(modified))
	reg.filesDeleted.Add(float64(deleted))
	reg.filesSkipped.Add(float64(skipped))
}

// RecordSymbolDelta increments the symbol-level delta counters.
func RecordSymbolDelta(added, modified, deleted int) {
	reg.init()
	reg.symbolsAdded.Add(float64(added))
	reg.symbolsModified.Add(float64(modified))
	reg.symbolsDeleted.Add(float64(deleted))
}

// RecordEdgeResolution increments edge resolution outcome counters.
func RecordEdgeResolution(resolved, unresolved int) {
	reg.init()
	reg.edgesResolved.Add(float64(resolved))
	reg.edgesUnresolved.Add(float64(unresolved))
}

// RecordBatchFlush records one committed write batch.
func RecordBatchFlush() { reg.init(); reg.batchesFlushed.Inc() }

// RecordBatchRetry records one busy/locked retry of a write batch.
func RecordBatchRetry() { reg.init(); reg.batchRetries.Inc() }

// RecordWatchCoalesce records events folded into an already-pending path.
func RecordWatchCoalesce(n int) { reg.init(); reg.watchEventsCoalesced.Add(float64(n)) }

// RecordWatchFallbackPoll records one fallback-poller cycle.
func RecordWatchFallbackPoll() { reg.init(); reg.watchFallbackPolls.Inc() }

// RecordQuery records a dispatcher request's outcome and latency.
func RecordQuery(method string, seconds float64, errKind string) {
	reg.init()
	reg.queriesTotal.WithLabelValues(method).Inc()
	reg.queryDuration.WithLabelValues(method).Observe(seconds)
	if errKind != "" {
		reg.queryErrors.WithLabelValues(method, errKind).Inc()
	}
}

// ObserveScan records the duration of a full repository scan.
func ObserveScan(seconds float64) { reg.init(); reg.scanDuration.Observe(seconds) }

// ObserveExtract records the duration of a single file's extraction.
func ObserveExtract(seconds float64) { reg.init(); reg.extractDuration.Observe(seconds) }

// ObserveWrite records the duration of a single batch commit.
func ObserveWrite(seconds float64) { reg.init(); reg.writeDuration.Observe(seconds) }
