package opshttp

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/keithlinneman/mdpreview/internal/health"
	"github.com/keithlinneman/mdpreview/internal/httpmw"
	"github.com/keithlinneman/mdpreview/internal/httpserver"
	"github.com/keithlinneman/mdpreview/internal/log"
	"github.com/keithlinneman/mdpreview/internal/xerrors"
)

// pprof CPU profiles default to 30s, longer than the public write timeout
const pprofWriteTimeout = 65 * time.Second

// NewHandler builds the ops mux: probes, /metrics and (optionally) pprof,
// guarded so only non-public peers get through.
func NewHandler(L log.Logger, opts *Options) http.Handler {
	mux := http.NewServeMux()

	live, ready := health.HealthzHandler(opts.Health), health.ReadyzHandler(opts.Readiness)
	for _, p := range []string{"/healthz", "/-/healthy"} {
		mux.Handle(p, live)
	}
	for _, p := range []string{"/readyz", "/-/ready"} {
		mux.Handle(p, ready)
	}

	if opts.Metrics != nil {
		mux.Handle("/metrics", opts.Metrics)
	}

	if opts.EnablePprof {
		RegisterPprof(mux)
	} else {
		mux.HandleFunc("/debug/pprof/", http.NotFound)
	}

	var h http.Handler = requireNonPublicNetwork(L, mux)
	if opts.UseRecoverMW {
		h = httpmw.Recover(L, opts.OnPanic)(h)
	}
	return h
}

// addr falls back to 127.0.0.1:9000.
func (o *Options) addr() string {
	host, port := o.Host, o.Port
	if host == "" {
		host = "127.0.0.1"
	}
	if port == 0 {
		port = 9000
	}
	return net.JoinHostPort(host, strconv.Itoa(port))
}

// Start binds the admin listener and serves NewHandler on it in the background.
// The returned func shuts it down.
func Start(ctx context.Context, L log.Logger, opts *Options) (func(context.Context) error, error) {
	if L == nil {
		L = log.Nop()
	}
	addr := opts.addr()

	ln, err := (&net.ListenConfig{}).Listen(ctx, "tcp", addr)
	if err != nil {
		return nil, xerrors.Wrapf(err, "bind admin port %s", addr)
	}

	srv := httpserver.NewServer(addr, NewHandler(L, opts))
	if opts.EnablePprof {
		srv.WriteTimeout = pprofWriteTimeout
	}
	L.Info(ctx, "admin endpoints listening", "addr", addr, "pprof", opts.EnablePprof)
	return httpserver.Serve(ctx, L.With("listener", "admin"), srv, ln), nil
}
