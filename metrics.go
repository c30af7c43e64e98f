package main

import (
	"fmt"
	"io"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"
)

// HTTP metrics
var (
	httpRequestsTotal atomic.Int64
	httpErrorsTotal   atomic.Int64
)

// Hover session metrics
var (
	hoverSessionsActive atomic.Int64
	hoverSessionsTotal  atomic.Int64
	framesDroppedTotal  atomic.Int64
)

// Profile metrics
var (
	cacheHitsTotal     atomic.Int64
	cacheMissesTotal   atomic.Int64
	fetchSuccessTotal  atomic.Int64
	fetchFailureTotal  atomic.Int64
	staleDroppedTotal  atomic.Int64
	sharedFetchesTotal atomic.Int64
)

var serverStartTime = time.Now()

// engineMetrics feeds preview engine events into the process counters
type engineMetrics struct{}

func (engineMetrics) CacheHit()     { cacheHitsTotal.Add(1) }
func (engineMetrics) CacheMiss()    { cacheMissesTotal.Add(1) }
func (engineMetrics) StaleDropped() { staleDroppedTotal.Add(1) }

func (engineMetrics) FetchResult(ok bool) {
	if ok {
		fetchSuccessTotal.Add(1)
	} else {
		fetchFailureTotal.Add(1)
	}
}

func writeMetric(w io.Writer, name, kind, help string, value any) {
	fmt.Fprintf(w, "# HELP %s %s\n", name, help)
	fmt.Fprintf(w, "# TYPE %s %s\n", name, kind)
	fmt.Fprintf(w, "%s %v\n\n", name, value)
}

// metricsHandler serves Prometheus-compatible metrics
func metricsHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")

	// Build info metric
	fmt.Fprintf(w, "# HELP hnskin_build_info Build and configuration information\n")
	fmt.Fprintf(w, "# TYPE hnskin_build_info gauge\n")
	fmt.Fprintf(w, "hnskin_build_info{rate_limit_backend=%q,go_version=%q} 1\n\n", rateLimitBackendType, runtime.Version())

	// Process metrics
	writeMetric(w, "process_start_time_seconds", "gauge", "Unix timestamp of process start", serverStartTime.Unix())
	writeMetric(w, "process_uptime_seconds", "gauge", "Time since process started", fmt.Sprintf("%.0f", time.Since(serverStartTime).Seconds()))

	// Go runtime metrics
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)
	writeMetric(w, "go_goroutines", "gauge", "Number of active goroutines", runtime.NumGoroutine())
	writeMetric(w, "go_memstats_alloc_bytes", "gauge", "Currently allocated memory in bytes", memStats.Alloc)
	writeMetric(w, "go_memstats_heap_inuse_bytes", "gauge", "Heap memory in use", memStats.HeapInuse)
	writeMetric(w, "go_gc_cycles_total", "counter", "Number of completed GC cycles", memStats.NumGC)

	// HTTP metrics
	writeMetric(w, "http_requests_total", "counter", "Total number of HTTP requests", httpRequestsTotal.Load())
	writeMetric(w, "http_errors_total", "counter", "Total number of HTTP 5xx errors", httpErrorsTotal.Load())

	// Hover sessions
	writeMetric(w, "hnskin_hover_sessions_active", "gauge", "Open websocket hover sessions", hoverSessionsActive.Load())
	writeMetric(w, "hnskin_hover_sessions_total", "counter", "Websocket hover sessions opened", hoverSessionsTotal.Load())
	writeMetric(w, "hnskin_frames_dropped_total", "counter", "Frames dropped because a client was too slow", framesDroppedTotal.Load())

	// Profiles
	writeMetric(w, "hnskin_profile_cache_hits_total", "counter", "Profile cache hits", cacheHitsTotal.Load())
	writeMetric(w, "hnskin_profile_cache_misses_total", "counter", "Profile cache misses", cacheMissesTotal.Load())
	writeMetric(w, "hnskin_profile_fetch_success_total", "counter", "Profiles fetched and parsed", fetchSuccessTotal.Load())
	writeMetric(w, "hnskin_profile_fetch_failure_total", "counter", "Profile lookups that ended unavailable", fetchFailureTotal.Load())
	writeMetric(w, "hnskin_profile_stale_dropped_total", "counter", "Results discarded because their hover was superseded", staleDroppedTotal.Load())
	writeMetric(w, "hnskin_profile_shared_fetches_total", "counter", "Fetches that joined an in-flight request for the same user", sharedFetchesTotal.Load())
}
