package observability

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "flametower"

// PrometheusHooks implements every hook interface on top of Prometheus
// collectors. Create one with [NewPrometheusHooks] and call [PrometheusHooks.Install].
type PrometheusHooks struct {
	loads          *prometheus.CounterVec
	loadDuration   *prometheus.HistogramVec
	layouts        *prometheus.CounterVec
	layoutDuration *prometheus.HistogramVec
	layoutRects    prometheus.Histogram
	diagnostics    *prometheus.CounterVec
	renders        *prometheus.CounterVec
	renderDuration *prometheus.HistogramVec
	cacheEvents    *prometheus.CounterVec
	cacheBytes     *prometheus.CounterVec
	httpRequests   *prometheus.CounterVec
	httpDuration   *prometheus.HistogramVec
	httpErrors     *prometheus.CounterVec
	inflight       prometheus.Gauge
}

// NewPrometheusHooks creates the collectors and registers them with reg.
// A nil reg leaves the collectors unregistered.
func NewPrometheusHooks(reg prometheus.Registerer) (*PrometheusHooks, error) {
	h := &PrometheusHooks{
		loads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "loads_total",
			Help:      "Number of interval documents loaded, by source and result.",
		}, []string{"source", "result"}),
		loadDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "load_duration_seconds",
			Help:      "Time spent loading interval documents.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"source"}),
		layouts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "layouts_total",
			Help:      "Number of flame graph layouts built, by color mode and validity.",
		}, []string{"color_mode", "valid"}),
		layoutDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "layout_duration_seconds",
			Help:      "Time spent resolving and coloring a hierarchy.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 10),
		}, []string{"color_mode"}),
		layoutRects: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "layout_rects",
			Help:      "Number of rectangles emitted per layout.",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 10),
		}),
		diagnostics: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "layout_diagnostics_total",
			Help:      "Number of intervals excluded or overridden during layout.",
		}, []string{"color_mode"}),
		renders: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "renders_total",
			Help:      "Number of render passes, by format and result.",
		}, []string{"format", "result"}),
		renderDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "render_duration_seconds",
			Help:      "Time spent rendering a layout into its output formats.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"formats"}),
		cacheEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_events_total",
			Help:      "Cache lookups and writes, by key type and event.",
		}, []string{"key_type", "event"}),
		cacheBytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_written_bytes_total",
			Help:      "Bytes written to the cache, by key type.",
		}, []string{"key_type"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests, by method, path and status code.",
		}, []string{"method", "host", "path", "code"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "host", "path"}),
		httpErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_errors_total",
			Help:      "HTTP transport failures.",
		}, []string{"method", "host", "path"}),
		inflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "http_requests_in_flight",
			Help:      "HTTP requests currently being handled.",
		}),
	}
	if reg == nil {
		return h, nil
	}
	for _, c := range h.collectors() {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return h, nil
}

func (h *PrometheusHooks) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		h.loads, h.loadDuration,
		h.layouts, h.layoutDuration, h.layoutRects, h.diagnostics,
		h.renders, h.renderDuration,
		h.cacheEvents, h.cacheBytes,
		h.httpRequests, h.httpDuration, h.httpErrors, h.inflight,
	}
}

// Install registers h as the global pipeline, cache and HTTP hooks.
func (h *PrometheusHooks) Install() {
	SetPipelineHooks(h)
	SetCacheHooks(h)
	SetHTTPHooks(h)
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// =============================================================================
// PipelineHooks
// =============================================================================

func (h *PrometheusHooks) OnLoadStart(context.Context, string) {}

func (h *PrometheusHooks) OnLoadComplete(_ context.Context, source string, _ int, d time.Duration, err error) {
	h.loads.WithLabelValues(source, result(err)).Inc()
	h.loadDuration.WithLabelValues(source).Observe(d.Seconds())
}

func (h *PrometheusHooks) OnLayoutStart(context.Context, string, int) {}

func (h *PrometheusHooks) OnLayoutComplete(_ context.Context, mode string, stats LayoutStats, d time.Duration) {
	h.layouts.WithLabelValues(mode, strconv.FormatBool(stats.Valid)).Inc()
	h.layoutDuration.WithLabelValues(mode).Observe(d.Seconds())
	h.layoutRects.Observe(float64(stats.Rects))
	if stats.Diagnostics > 0 {
		h.diagnostics.WithLabelValues(mode).Add(float64(stats.Diagnostics))
	}
}

func (h *PrometheusHooks) OnRenderStart(context.Context, []string) {}

func (h *PrometheusHooks) OnRenderComplete(_ context.Context, formats []string, d time.Duration, err error) {
	res := result(err)
	for _, f := range formats {
		h.renders.WithLabelValues(f, res).Inc()
	}
	h.renderDuration.WithLabelValues(strings.Join(formats, ",")).Observe(d.Seconds())
}

// =============================================================================
// CacheHooks
// =============================================================================

func (h *PrometheusHooks) OnCacheHit(_ context.Context, keyType string) {
	h.cacheEvents.WithLabelValues(keyType, "hit").Inc()
}

func (h *PrometheusHooks) OnCacheMiss(_ context.Context, keyType string) {
	h.cacheEvents.WithLabelValues(keyType, "miss").Inc()
}

func (h *PrometheusHooks) OnCacheSet(_ context.Context, keyType string, size int) {
	h.cacheEvents.WithLabelValues(keyType, "set").Inc()
	h.cacheBytes.WithLabelValues(keyType).Add(float64(size))
}

// =============================================================================
// HTTPHooks
// =============================================================================

func (h *PrometheusHooks) OnRequest(context.Context, string, string, string) {
	h.inflight.Inc()
}

func (h *PrometheusHooks) OnResponse(_ context.Context, method, host, path string, code int, d time.Duration) {
	h.inflight.Dec()
	h.httpRequests.WithLabelValues(method, host, path, strconv.Itoa(code)).Inc()
	h.httpDuration.WithLabelValues(method, host, path).Observe(d.Seconds())
}

func (h *PrometheusHooks) OnError(_ context.Context, method, host, path string, _ error) {
	h.inflight.Dec()
	h.httpErrors.WithLabelValues(method, host, path).Inc()
}
