// Package metrics exposes Prometheus metrics for ranking fetches, fallbacks and cache usage.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Fetch outcomes.
const (
	OutcomeSuccess     = "success"
	OutcomeError       = "error"
	OutcomeCircuitOpen = "circuit_open"
)

// Manager owns a dedicated registry instead of the process-wide default.
// All recording methods are safe on a nil Manager.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	constLabels      map[string]string
	registry         *prometheus.Registry

	fetches        *prometheus.CounterVec
	fetchDuration  *prometheus.HistogramVec
	fallbacks      *prometheus.CounterVec
	staleDiscards  prometheus.Counter
	cacheLookups   *prometheus.CounterVec
	warmupRuns     *prometheus.CounterVec
	activeSessions prometheus.Gauge
	httpRequests   *prometheus.CounterVec
	httpDuration   *prometheus.HistogramVec
}

func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "global_standings",
		subsystem:        "ranking",
		histogramBuckets: prometheus.DefBuckets,
		enabled:          true,
	}

	for _, opt := range opts {
		opt(m)
	}
	if m.registry == nil {
		m.registry = prometheus.NewRegistry()
	}

	m.initializeMetrics()
	return m
}

func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)
	auto.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m.fetches = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "fetches_total",
		Help:        "Ranking fetches by source, variant and outcome.",
		ConstLabels: m.constLabels,
	}, []string{"source", "variant", "outcome"})

	m.fetchDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "fetch_duration_seconds",
		Help:        "Ranking fetch latency by source.",
		Buckets:     m.histogramBuckets,
		ConstLabels: m.constLabels,
	}, []string{"source", "variant"})

	m.fallbacks = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "fallback_attempts_total",
		Help:        "Fallback source attempts after a primary failure.",
		ConstLabels: m.constLabels,
	}, []string{"variant", "outcome"})

	m.staleDiscards = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "stale_results_discarded_total",
		Help:        "Session results dropped because a newer selection superseded them.",
		ConstLabels: m.constLabels,
	})

	m.cacheLookups = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "cache_lookups_total",
		Help:        "Ranking view cache lookups by result.",
		ConstLabels: m.constLabels,
	}, []string{"result"})

	m.warmupRuns = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "warmup_jobs_total",
		Help:        "Cache warmup jobs by outcome.",
		ConstLabels: m.constLabels,
	}, []string{"outcome"})

	m.activeSessions = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "active_sessions",
		Help:        "Selection sessions currently held in memory.",
		ConstLabels: m.constLabels,
	})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   "http",
		Name:        "requests_total",
		Help:        "HTTP requests by route, method and status code.",
		ConstLabels: m.constLabels,
	}, []string{"route", "method", "status_code"})

	m.httpDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   "http",
		Name:        "request_duration_seconds",
		Help:        "HTTP request latency by route and method.",
		Buckets:     m.histogramBuckets,
		ConstLabels: m.constLabels,
	}, []string{"route", "method"})
}

func (m *Manager) Registry() *prometheus.Registry {
	if m == nil {
		return prometheus.NewRegistry()
	}
	return m.registry
}

// Handler serves the manager's registry in the Prometheus exposition format.
func (m *Manager) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry(), promhttp.HandlerOpts{})
}

func (m *Manager) ObserveFetch(source, variant, outcome string, elapsed time.Duration) {
	if !m.active() {
		return
	}
	m.fetches.WithLabelValues(source, variant, outcome).Inc()
	m.fetchDuration.WithLabelValues(source, variant).Observe(elapsed.Seconds())
}

func (m *Manager) ObserveFallback(variant string, ok bool) {
	if !m.active() {
		return
	}
	outcome := OutcomeSuccess
	if !ok {
		outcome = OutcomeError
	}
	m.fallbacks.WithLabelValues(variant, outcome).Inc()
}

func (m *Manager) IncStaleDiscard() {
	if !m.active() {
		return
	}
	m.staleDiscards.Inc()
}

func (m *Manager) ObserveCacheLookup(hit bool) {
	if !m.active() {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookups.WithLabelValues(result).Inc()
}

func (m *Manager) ObserveWarmupJob(ok bool) {
	if !m.active() {
		return
	}
	outcome := OutcomeSuccess
	if !ok {
		outcome = OutcomeError
	}
	m.warmupRuns.WithLabelValues(outcome).Inc()
}

func (m *Manager) SetActiveSessions(n int) {
	if !m.active() {
		return
	}
	m.activeSessions.Set(float64(n))
}

func (m *Manager) ObserveHTTP(route, method string, status int, elapsed time.Duration) {
	if !m.active() {
		return
	}
	m.httpRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(route, method).Observe(elapsed.Seconds())
}

func (m *Manager) active() bool {
	return m != nil && m.enabled
}
