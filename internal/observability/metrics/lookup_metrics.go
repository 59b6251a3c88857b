package metrics

import (
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type LookupMetrics struct {
	lookupRequests     *prometheus.CounterVec
	upstreamDuration   *prometheus.HistogramVec
	rateLimitDecisions *prometheus.CounterVec
	cacheStaleBacklog  prometheus.Gauge
	cacheRefreshes     *prometheus.CounterVec
}

var (
	lookupMetricsOnce sync.Once
	lookupMetrics     *LookupMetrics
)

func Lookup() *LookupMetrics {
	return LookupWithConfig(Config{})
}

func LookupWithConfig(cfg Config) *LookupMetrics {
	lookupMetricsOnce.Do(func() {
		lookupMetrics = newLookupMetrics(prometheus.DefaultRegisterer, cfg)
	})
	return lookupMetrics
}

func ResetLookupMetricsForTest() {
	lookupMetricsOnce = sync.Once{}
	lookupMetrics = nil
}

func newLookupMetrics(registerer prometheus.Registerer, cfg Config) *LookupMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	serviceName := strings.TrimSpace(cfg.ServiceName)
	if serviceName == "" {
		serviceName = "patentapi"
	}
	environment := strings.TrimSpace(cfg.Environment)
	if environment == "" {
		environment = "unknown"
	}

	constLabels := prometheus.Labels{
		"service": serviceName,
		"env":     environment,
	}

	lookupRequests := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name:        "patentapi_lookup_requests_total",
			Help:        "Total patent status lookups by outcome and serving path.",
			ConstLabels: constLabels,
		},
		[]string{"outcome", "source", "cache"}, // cache: hit | miss | stale
	)

	upstreamDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "patentapi_upstream_request_duration_seconds",
			Help: "Latency of upstream office requests.",
			Buckets: []float64{
				0.1,
				0.25,
				0.5,
				1,
				2.5,
				5,
				10,
				30, // request timeout boundary
			},
			ConstLabels: constLabels,
		},
		[]string{"source", "result"}, // result: success | not_found | auth | transient
	)

	rateLimitDecisions := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name:        "patentapi_rate_limit_decisions_total",
			Help:        "Monthly quota admission decisions by tier.",
			ConstLabels: constLabels,
		},
		[]string{"tier", "result"}, // allowed | denied
	)

	cacheStaleBacklog := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name:        "patentapi_cache_stale_backlog_total",
			Help:        "Number of cached records past their freshness window.",
			ConstLabels: constLabels,
		},
	)

	cacheRefreshes := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name:        "patentapi_cache_refresh_total",
			Help:        "Background cache refresh attempts by result.",
			ConstLabels: constLabels,
		},
		[]string{"result"}, // success | skipped | failed
	)

	registerer.MustRegister(
		lookupRequests,
		upstreamDuration,
		rateLimitDecisions,
		cacheStaleBacklog,
		cacheRefreshes,
	)

	return &LookupMetrics{
		lookupRequests:     lookupRequests,
		upstreamDuration:   upstreamDuration,
		rateLimitDecisions: rateLimitDecisions,
		cacheStaleBacklog:  cacheStaleBacklog,
		cacheRefreshes:     cacheRefreshes,
	}
}

func (m *LookupMetrics) IncLookup(outcome, source, cache string) {
	if m == nil {
		return
	}
	if source == "" {
		source = "none"
	}
	m.lookupRequests.WithLabelValues(outcome, source, cache).Inc()
}

func (m *LookupMetrics) ObserveUpstreamDuration(source, result string, duration time.Duration) {
	if m == nil {
		return
	}
	m.upstreamDuration.WithLabelValues(source, result).Observe(duration.Seconds())
}

func (m *LookupMetrics) IncRateLimitDecision(tier string, allowed bool) {
	if m == nil {
		return
	}
	result := "allowed"
	if !allowed {
		result = "denied"
	}
	m.rateLimitDecisions.WithLabelValues(tier, result).Inc()
}

func (m *LookupMetrics) SetStaleBacklog(value int) {
	if m == nil {
		return
	}
	m.cacheStaleBacklog.Set(float64(value))
}

func (m *LookupMetrics) IncRefreshProcessed(result string) {
	if m == nil {
		return
	}
	m.cacheRefreshes.WithLabelValues(result).Inc()
}
