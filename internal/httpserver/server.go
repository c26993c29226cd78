package httpserver

import (
	"context"
	"errors"
	"net"
	"net/http"
	"path"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/keithlinneman/mdpreview/internal/health"
	"github.com/keithlinneman/mdpreview/internal/httpcache"
	"github.com/keithlinneman/mdpreview/internal/httpmw"
	"github.com/keithlinneman/mdpreview/internal/log"
	"github.com/keithlinneman/mdpreview/internal/page"
	"github.com/keithlinneman/mdpreview/internal/xerrors"
)

const (
	DefaultHost = "127.0.0.1"
	DefaultPort = 4000
)

// nobody sends bodies to a GET/HEAD-only preview server
const maxRequestBody = 1024

// NewHandler builds an HTTP handler with routes + middleware
// main() owns *http.Server so it can do graceful shutdown
func NewHandler(opts Options) http.Handler {
	if opts.Logger == nil {
		opts.Logger = log.Nop()
	}

	r := chi.NewRouter()

	// outside Compress so encoded responses get their own ETag
	r.Use(httpcache.CodingETags)

	// Compress text responses. text/event-stream is left out on purpose,
	// live updates must reach the browser as they are flushed.
	r.Use(middleware.Compress(5,
		"text/html",
		"text/plain",
		"text/css",
		"application/json",
		"image/svg+xml",
		"font/ttf",
		"application/vnd.ms-fontobject",
	))

	// Annotate tracer with http.route from chi route pattern if trace is recording
	r.Use(httpmw.AnnotateHTTPRoute)

	r.Use(httpmw.AccessLog())
	r.Use(httpmw.MaxBody(maxRequestBody))

	// Health routes go first; chi prefers them over the page catch-all
	if opts.Health != nil {
		r.Get("/-/healthy", health.HealthzHandler(opts.Health))
	}
	if opts.Readiness != nil {
		r.Get("/-/ready", health.ReadyzHandler(opts.Readiness))
	}

	if opts.Routes != nil {
		opts.Routes(r)
	}

	tracing := otelhttp.NewMiddleware(
		"http.server",
		otelhttp.WithFilter(func(r *http.Request) bool {
			return shouldTrace(r.URL.Path)
		}),
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			// AnnotateHTTPRoute will rename the span later to the final route pattern
			return r.Method + " " + r.URL.Path
		}),
		// WithPublicEndpointFn is the replacement for WithPublicEndpoint()
		otelhttp.WithPublicEndpointFn(func(r *http.Request) bool { return true }),
	)

	var recoverMW func(http.Handler) http.Handler
	if opts.UseRecoverMW {
		recoverMW = httpmw.Recover(opts.Logger, opts.OnPanic)
	}

	// outermost first
	return httpmw.Chain(r,
		// Security headers outermost to ensure they are served on every response
		httpmw.SecurityHeaders,
		recoverMW,
		// Request ID (outer so everything downstream sees it)
		httpmw.RequestID(httpmw.DefaultRequestIDHeader),
		tracing,
		httpmw.PreviewHeaders(opts.Preview),
		// add trace-id headers to any requests with a recording trace
		httpmw.TraceResponseHeaders(httpmw.DefaultTraceIDHeader, httpmw.DefaultSpanIDHeader),
		opts.MetricsMW,
		// Request-scoped logging (inner so it sees trace_id, etc)
		httpmw.WithLogger(opts.Logger),
	)
}

// shouldTrace skips the page shell's assets and probes. Live streams are not
// traced either: a span that lives as long as a browser tab is noise.
func shouldTrace(p string) bool {
	if p == "/-/healthy" || p == "/-/ready" || p == "/favicon.ico" {
		return false
	}
	if p == page.LivePrefix || strings.HasPrefix(p, page.LivePrefix+"/") {
		return false
	}
	if strings.HasPrefix(p, "/static/") {
		return false
	}
	switch strings.ToLower(path.Ext(p)) {
	case ".css", ".js", ".png", ".jpg", ".jpeg", ".webp", ".svg", ".ico", ".woff", ".woff2", ".ttf", ".eot", ".map":
		return false
	}
	return true
}

// Server timeout defaults, shared with opshttp. WriteTimeout does not cut
// live-update streams; the live handler clears its own write deadline.
const (
	DefaultReadHeaderTimeout = 5 * time.Second
	DefaultReadTimeout       = 10 * time.Second
	DefaultWriteTimeout      = 30 * time.Second
	DefaultIdleTimeout       = 60 * time.Second
	DefaultMaxHeaderBytes    = 1 << 20 // 1 MB
)

func NewServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: DefaultReadHeaderTimeout,
		ReadTimeout:       DefaultReadTimeout,
		WriteTimeout:      DefaultWriteTimeout,
		IdleTimeout:       DefaultIdleTimeout,
		MaxHeaderBytes:    DefaultMaxHeaderBytes,
	}
}

// Addr returns host:port with the defaults applied.
func (o Options) Addr() string {
	host := o.Host
	if host == "" {
		host = DefaultHost
	}
	port := o.Port
	if port == 0 {
		port = DefaultPort
	}
	return net.JoinHostPort(host, strconv.Itoa(port))
}

// Start binds the preview listener and serves NewHandler in the background.
// Request contexts derive from ctx; cancel it before calling the returned stop
// so open live streams end and Shutdown does not wait out its timeout on them.
func Start(ctx context.Context, opts Options) (func(context.Context) error, error) {
	if opts.Logger == nil {
		opts.Logger = log.Nop()
	}
	addr := opts.Addr()

	ln, err := (&net.ListenConfig{}).Listen(ctx, "tcp", addr)
	if err != nil {
		return nil, xerrors.EnsureTrace(err)
	}

	srv := NewServer(addr, NewHandler(opts))
	srv.BaseContext = func(net.Listener) context.Context { return ctx }
	opts.Logger.Info(ctx, "preview server listening", "addr", addr, "url", "http://"+addr+"/")
	return Serve(ctx, opts.Logger.With("listener", "preview"), srv, ln), nil
}

// running tracks one server started by Serve.
type running struct {
	L    log.Logger
	srv  *http.Server
	once sync.Once
	err  error
}

// Serve runs srv on ln in a goroutine. The returned stop shuts srv down
// within 5s of its context; calls after the first return the first result.
func Serve(ctx context.Context, L log.Logger, srv *http.Server, ln net.Listener) func(context.Context) error {
	r := &running{L: L, srv: srv}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			L.Error(ctx, err, "server stopped unexpectedly", "addr", ln.Addr().String())
		}
	}()
	return r.stop
}

func (r *running) stop(ctx context.Context) error {
	r.once.Do(func() {
		r.L.Info(ctx, "shutting down")
		c, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		r.err = r.srv.Shutdown(c)
	})
	return r.err
}
