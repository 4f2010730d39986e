// Package prom implements the observability hooks on Prometheus collectors.
package prom

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/matzehuels/codecity/pkg/observability"
)

const namespace = "codecity"

// Metrics records hook events as Prometheus series.
type Metrics struct {
	stageDuration *prometheus.HistogramVec
	stageErrors   *prometheus.CounterVec
	buildings     *prometheus.GaugeVec

	cacheHits   *prometheus.CounterVec
	cacheMisses *prometheus.CounterVec
	cacheBytes  *prometheus.CounterVec

	hovers     *prometheus.CounterVec
	selects    *prometheus.CounterVec
	emptyViews *prometheus.CounterVec

	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		stageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Duration of pipeline stages.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"stage", "kind"}),
		stageErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stage_errors_total",
			Help:      "Pipeline stages that returned an error.",
		}, []string{"stage"}),
		buildings: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "layout_buildings",
			Help:      "Buildings placed by the most recent layout of each view.",
		}, []string{"view"}),
		cacheHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_hits_total",
			Help:      "Cache hits by key type.",
		}, []string{"type"}),
		cacheMisses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_misses_total",
			Help:      "Cache misses by key type.",
		}, []string{"type"}),
		cacheBytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_written_bytes_total",
			Help:      "Bytes written to the cache by key type.",
		}, []string{"type"}),
		hovers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "hover_events_total",
			Help:      "Hover changes; cleared hovers are labeled cleared=true.",
		}, []string{"view", "cleared"}),
		selects: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "select_events_total",
			Help:      "Building selections.",
		}, []string{"view"}),
		emptyViews: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "empty_views_total",
			Help:      "View switches that produced no buildings.",
		}, []string{"view"}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP responses by route and status.",
		}, []string{"method", "route", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	for _, c := range m.collectors() {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.stageDuration, m.stageErrors, m.buildings,
		m.cacheHits, m.cacheMisses, m.cacheBytes,
		m.hovers, m.selects, m.emptyViews,
		m.requests, m.requestDuration,
	}
}

// Install registers m as every global hook.
func (m *Metrics) Install() {
	observability.SetPipelineHooks(m)
	observability.SetCacheHooks(m)
	observability.SetInteractionHooks(m)
	observability.SetHTTPHooks(m)
}

// Handler serves the /metrics scrape endpoint for g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

func (m *Metrics) finish(stage, kind string, d time.Duration, err error) {
	m.stageDuration.WithLabelValues(stage, kind).Observe(d.Seconds())
	if err != nil {
		m.stageErrors.WithLabelValues(stage).Inc()
	}
}

// =============================================================================
// Pipeline
// =============================================================================

func (m *Metrics) OnAnalyzeStart(context.Context, string) {}

func (m *Metrics) OnAnalyzeComplete(_ context.Context, _ string, _ int, d time.Duration, err error) {
	m.finish("analyze", "", d, err)
}

func (m *Metrics) OnLayoutStart(context.Context, string, int) {}

func (m *Metrics) OnLayoutComplete(_ context.Context, view string, buildings int, d time.Duration, err error) {
	m.finish("layout", view, d, err)
	if err == nil {
		m.buildings.WithLabelValues(view).Set(float64(buildings))
	}
}

func (m *Metrics) OnRenderStart(context.Context, []string) {}

func (m *Metrics) OnRenderComplete(_ context.Context, formats []string, d time.Duration, err error) {
	kind := ""
	if len(formats) == 1 {
		kind = formats[0]
	}
	m.finish("render", kind, d, err)
}

// =============================================================================
// Cache
// =============================================================================

func (m *Metrics) OnCacheHit(_ context.Context, keyType string) {
	m.cacheHits.WithLabelValues(keyType).Inc()
}

func (m *Metrics) OnCacheMiss(_ context.Context, keyType string) {
	m.cacheMisses.WithLabelValues(keyType).Inc()
}

func (m *Metrics) OnCacheSet(_ context.Context, keyType string, size int) {
	m.cacheBytes.WithLabelValues(keyType).Add(float64(size))
}

// =============================================================================
// Interaction
// =============================================================================

func (m *Metrics) OnHover(_ context.Context, view, id string) {
	cleared := "false"
	if id == "" {
		cleared = "true"
	}
	m.hovers.WithLabelValues(view, cleared).Inc()
}

func (m *Metrics) OnSelect(_ context.Context, view, _ string) {
	m.selects.WithLabelValues(view).Inc()
}

func (m *Metrics) OnEmptyView(_ context.Context, view string) {
	m.emptyViews.WithLabelValues(view).Inc()
}

// =============================================================================
// HTTP
// =============================================================================

func (m *Metrics) OnRequest(context.Context, string, string) {}

func (m *Metrics) OnResponse(_ context.Context, method, route string, status int, d time.Duration) {
	m.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

var (
	_ observability.PipelineHooks    = (*Metrics)(nil)
	_ observability.CacheHooks       = (*Metrics)(nil)
	_ observability.InteractionHooks = (*Metrics)(nil)
	_ observability.HTTPHooks        = (*Metrics)(nil)
)
