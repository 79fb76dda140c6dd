package service

import (
	"net/http"
	"runtime"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/noah-isme/sma-academic-api/internal/models"
)

// MetricsService encapsulates Prometheus instrumentation for HTTP traffic, caching and the
// scheduling and grading engines.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	cacheLatency    prometheus.Observer
	cacheWrite      prometheus.Observer
	cacheHitRatio   prometheus.Gauge
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter

	scheduleChecks    *prometheus.CounterVec
	scheduleConflicts *prometheus.CounterVec
	scoresRecorded    *prometheus.CounterVec
	rankingDuration   prometheus.Observer
	rankedStudents    prometheus.Histogram
	warmupJobs        *prometheus.CounterVec

	cacheHitCount  uint64
	cacheMissCount uint64
}

// NewMetricsService registers core Prometheus collectors on a private registry.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	cacheLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_latency_seconds",
		Help:    "Latency for cache operations",
		Buckets: prometheus.DefBuckets,
	})

	cacheWrite := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_write_seconds",
		Help:    "Latency for cache set operations",
		Buckets: prometheus.DefBuckets,
	})

	cacheHitRatio := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "cache_hit_ratio",
		Help: "Ratio of cache hits to total cache lookups",
	})

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_hits_total",
		Help: "Total cache hits",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_misses_total",
		Help: "Total cache misses",
	})

	scheduleChecks := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "schedule_conflict_checks_total",
		Help: "Schedule conflict checks by outcome",
	}, []string{"outcome"})

	scheduleConflicts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "schedule_conflicts_total",
		Help: "Colliding schedule entries found, by dimension",
	}, []string{"dimension"})

	scoresRecorded := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "assessment_scores_recorded_total",
		Help: "Score writes by action",
	}, []string{"action"})

	rankingDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "class_ranking_duration_seconds",
		Help:    "Time spent computing a class ranking",
		Buckets: prometheus.DefBuckets,
	})

	rankedStudents := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "class_ranking_students",
		Help:    "Ranked students per class ranking",
		Buckets: []float64{5, 10, 20, 30, 40, 50, 75, 100},
	})

	warmupJobs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ranking_warmup_jobs_total",
		Help: "Ranking cache warm-up jobs by result",
	}, []string{"result"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(
		requestDuration, requestTotal,
		cacheLatency, cacheWrite, cacheHitRatio, cacheHits, cacheMisses,
		scheduleChecks, scheduleConflicts, scoresRecorded, rankingDuration, rankedStudents, warmupJobs,
		goroutines,
	)

	return &MetricsService{
		registry:          registry,
		handler:           promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration:   requestDuration,
		requestTotal:      requestTotal,
		cacheLatency:      cacheLatency,
		cacheWrite:        cacheWrite,
		cacheHitRatio:     cacheHitRatio,
		cacheHits:         cacheHits,
		cacheMisses:       cacheMisses,
		scheduleChecks:    scheduleChecks,
		scheduleConflicts: scheduleConflicts,
		scoresRecorded:    scoresRecorded,
		rankingDuration:   rankingDuration,
		rankedStudents:    rankedStudents,
		warmupJobs:        warmupJobs,
	}
}

// Registry exposes the underlying registry, mainly for tests.
func (m *MetricsService) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := strconv.Itoa(status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// RecordCacheOperation records cache hit/miss metrics and updates hit ratio.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheLatency.Observe(duration.Seconds())
	if hit {
		m.cacheHits.Inc()
		atomic.AddUint64(&m.cacheHitCount, 1)
	} else {
		m.cacheMisses.Inc()
		atomic.AddUint64(&m.cacheMissCount, 1)
	}
	hits := atomic.LoadUint64(&m.cacheHitCount)
	misses := atomic.LoadUint64(&m.cacheMissCount)
	if total := hits + misses; total > 0 {
		m.cacheHitRatio.Set(float64(hits) / float64(total))
	}
}

// ObserveCacheWrite tracks the duration for cache write operations.
func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheWrite.Observe(duration.Seconds())
}

// ObserveConflictCheck counts a conflict check and every collision dimension it found.
func (m *MetricsService) ObserveConflictCheck(result models.ConflictResult) {
	if m == nil {
		return
	}
	if !result.HasConflict() {
		m.scheduleChecks.WithLabelValues("clear").Inc()
		return
	}
	m.scheduleChecks.WithLabelValues("conflict").Inc()
	for _, conflict := range result.Conflicts {
		for _, dim := range conflict.Dimensions {
			m.scheduleConflicts.WithLabelValues(string(dim)).Inc()
		}
	}
}

// ObserveScoreWrite counts recorded ("record") or cleared ("clear") scores.
func (m *MetricsService) ObserveScoreWrite(action string) {
	if m == nil {
		return
	}
	m.scoresRecorded.WithLabelValues(action).Inc()
}

// ObserveRanking records how long a class ranking took and how many students it ranked.
func (m *MetricsService) ObserveRanking(duration time.Duration, ranked int) {
	if m == nil {
		return
	}
	m.rankingDuration.Observe(duration.Seconds())
	m.rankedStudents.Observe(float64(ranked))
}

// ObserveWarmup counts a finished ranking warm-up job.
func (m *MetricsService) ObserveWarmup(err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.warmupJobs.WithLabelValues(result).Inc()
}
