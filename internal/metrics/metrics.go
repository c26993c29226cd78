package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/keithlinneman/mdpreview/internal/version"
)

type ServerMetrics struct {
	reg            *prometheus.Registry
	handler        http.Handler
	inflight       prometheus.Gauge
	reqTotal       *prometheus.CounterVec
	reqDur         *prometheus.HistogramVec
	respBytes      *prometheus.HistogramVec
	httpPanicTotal prometheus.Counter
	buildInfo      *prometheus.GaugeVec
	contentSource  *prometheus.GaugeVec
	rendererInfo   *prometheus.GaugeVec

	errorsTotal *prometheus.CounterVec

	profilingActive prometheus.Gauge

	// preview metrics
	renderDuration   *prometheus.HistogramVec
	renderFailures   *prometheus.CounterVec
	pageErrorsTotal  *prometheus.CounterVec
	notModifiedTotal *prometheus.CounterVec
	liveSubscribers  prometheus.Gauge
	livePollsTotal   prometheus.Counter
	livePushesTotal  prometheus.Counter
	liveErrorsTotal  *prometheus.CounterVec
}

// New returns a fresh registry + standard collectors + HTTP metrics
// safe labels only (method, route, code) to avoid path/cardinality explosions
func New() *ServerMetrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &ServerMetrics{
		inflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "http_inflight_requests",
			Help: "Current number of in-flight HTTP requests",
		}),
		reqTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total HTTP requests by method, route, and status",
		}, []string{"method", "route", "status"}),
		reqDur: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Request latency by method and route",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"method", "route"}),
		respBytes: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_response_size_bytes",
			Help:    "Response size by method and route",
			Buckets: []float64{256, 1024, 4096, 16384, 65536, 262144, 1048576, 4194304, 16777216, 52428800},
		}, []string{"method", "route"}),
		httpPanicTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "http_panic_total",
			Help: "Total number of recovered httpserver panics",
		}),
		buildInfo: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "build_info",
			Help: "Build metadata (value is always 1)",
		}, []string{"app", "component", "version", "commit", "commit_date", "build_id", "build_date", "vcs_dirty", "go_version"}),
		contentSource: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "content_source_info",
			Help: "Current content source (label carries value, gauge is always 1)",
		}, []string{"source"}),
		rendererInfo: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "mdpreview_renderer_info",
			Help: "Active markdown renderer (label carries value, gauge is always 1)",
		}, []string{"kind"}),
		errorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_errors_total",
			Help: "Total 5xx HTTP server errors by method and route (SLI)",
		}, []string{"method", "route"}),
		profilingActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "profiling_active",
			Help: "Whether continuous profiling is active (1) or disabled/failed (0)",
		}),
		renderDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "mdpreview_render_duration_seconds",
			Help:    "Markdown render latency by renderer",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"kind"}),
		renderFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mdpreview_render_failures_total",
			Help: "Total failed markdown conversions by renderer",
		}, []string{"kind"}),
		pageErrorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mdpreview_render_errors_total",
			Help: "Total requests answered with an error page by failure kind",
		}, []string{"kind"}),
		notModifiedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mdpreview_not_modified_total",
			Help: "Total conditional requests answered with 304 by resource kind",
		}, []string{"kind"}),
		liveSubscribers: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "mdpreview_live_subscribers",
			Help: "Current number of open live-update streams",
		}),
		livePollsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mdpreview_live_polls_total",
			Help: "Total number of live-update poll cycles",
		}),
		livePushesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mdpreview_live_pushes_total",
			Help: "Total number of update events pushed to browsers",
		}),
		liveErrorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mdpreview_live_errors_total",
			Help: "Total live-update poll errors by type",
		}, []string{"type"}),
	}
	reg.MustRegister(
		m.inflight,
		m.reqTotal,
		m.reqDur,
		m.respBytes,
		m.httpPanicTotal,
		m.buildInfo,
		m.contentSource,
		m.rendererInfo,
		m.errorsTotal,
		m.profilingActive,
		m.renderDuration,
		m.renderFailures,
		m.pageErrorsTotal,
		m.notModifiedTotal,
		m.liveSubscribers,
		m.livePollsTotal,
		m.livePushesTotal,
		m.liveErrorsTotal,
	)

	m.handler = promhttp.HandlerFor(reg, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
	m.reg = reg
	return m
}

func (m *ServerMetrics) IncHttpPanic() {
	m.httpPanicTotal.Inc()
}

func (m *ServerMetrics) Handler() http.Handler {
	return m.handler
}

// set once at startup.
func (m *ServerMetrics) SetBuildInfoFromVersion(app, component string, vi version.Info) {
	dirty := "unknown"
	if vi.VCSDirty != nil {
		dirty = strconv.FormatBool(*vi.VCSDirty)
	}
	m.buildInfo.With(prometheus.Labels{
		"app":         app,
		"component":   component,
		"version":     vi.Version,
		"commit":      vi.Commit,
		"commit_date": vi.CommitDate,
		"build_id":    vi.BuildId,
		"build_date":  vi.BuildDate,
		"go_version":  vi.GoVersion,
		"vcs_dirty":   dirty,
	}).Set(1)
}

func (m *ServerMetrics) SetContentSource(source string) {
	m.contentSource.Reset() // clear previous label value
	m.contentSource.WithLabelValues(source).Set(1)
}

func (m *ServerMetrics) SetRenderer(kind string) {
	m.rendererInfo.Reset()
	m.rendererInfo.WithLabelValues(kind).Set(1)
}

func (m *ServerMetrics) SetProfilingActive(active bool) {
	if active {
		m.profilingActive.Set(1)
	} else {
		m.profilingActive.Set(0)
	}
}

// ObserveRender records one conversion; failed ones also count as failures.
func (m *ServerMetrics) ObserveRender(kind string, seconds float64, err error) {
	m.renderDuration.WithLabelValues(kind).Observe(seconds)
	if err != nil {
		m.renderFailures.WithLabelValues(kind).Inc()
	}
}

func (m *ServerMetrics) IncPageError(kind string) {
	m.pageErrorsTotal.WithLabelValues(kind).Inc()
}

func (m *ServerMetrics) IncNotModified(kind string) {
	m.notModifiedTotal.WithLabelValues(kind).Inc()
}

func (m *ServerMetrics) AddLiveSubscribers(delta float64) {
	m.liveSubscribers.Add(delta)
}

func (m *ServerMetrics) IncLivePolls() {
	m.livePollsTotal.Inc()
}

func (m *ServerMetrics) IncLivePushes() {
	m.livePushesTotal.Inc()
}

func (m *ServerMetrics) IncLiveError(errType string) {
	m.liveErrorsTotal.WithLabelValues(errType).Inc()
}
