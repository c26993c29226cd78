package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/keithlinneman/mdpreview/internal/cfg"
	"github.com/keithlinneman/mdpreview/internal/health"
	"github.com/keithlinneman/mdpreview/internal/httpmw"
	"github.com/keithlinneman/mdpreview/internal/httpserver"
	"github.com/keithlinneman/mdpreview/internal/log"
	"github.com/keithlinneman/mdpreview/internal/metrics"
	"github.com/keithlinneman/mdpreview/internal/opshttp"
	"github.com/keithlinneman/mdpreview/internal/otelx"
	"github.com/keithlinneman/mdpreview/internal/prof"
	"github.com/keithlinneman/mdpreview/internal/sitehandler"
	"github.com/keithlinneman/mdpreview/internal/sitehttp"
	v "github.com/keithlinneman/mdpreview/internal/version"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	vi := v.Get()

	var conf cfg.App
	var showVersion bool

	// Parse config from flags and env
	cfg.Register(flag.CommandLine, &conf)
	flag.BoolVar(&showVersion, "V", false, "Print version+build information and exit")
	flag.Parse()

	if showVersion {
		fmt.Println(vi.String())
		os.Exit(0)
	}

	// Fill in config from environment variables with prefix MDPREVIEW_
	cfg.FillFromEnv(flag.CommandLine, "MDPREVIEW_", func(format string, args ...any) {
		fmt.Fprintf(os.Stderr, format+"\n", args...)
	})

	if err := cfg.Validate(conf); err != nil {
		fmt.Fprintln(os.Stderr, "config error:", err)
		os.Exit(1)
	}

	// Setup logging, values were checked by Validate
	lvl, _ := log.ParseLevel(conf.LogLevel)
	stackLvl, _ := log.ParseLevel(conf.StacktraceLevel)
	format, _ := log.ParseFormat(conf.LogFormat)
	lg, err := log.New(log.Options{
		App:               v.AppName,
		Version:           vi.Version,
		Level:             lvl,
		StacktraceLevel:   stackLvl,
		Format:            format,
		MaxErrorLinks:     conf.MaxErrorLinks,
		IncludeErrorLinks: conf.IncludeErrorLinks,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger init error:", err)
		os.Exit(1)
	}
	defer lg.Sync()
	L := lg.With("component", "server")
	ctx = log.WithContext(ctx, L)

	L.Info(ctx, "initializing application",
		"version", vi.Version,
		"commit", vi.Commit,
		"build_date", vi.BuildDate,
		"go_version", vi.GoVersion,
		"host", conf.Host,
		"port", conf.Port,
		"folder", conf.Folder,
		"renderer", conf.RendererKind(),
		"context", conf.Context,
		"github_api", conf.GitHubAPI,
		"github_token_set", conf.GitHubToken != "",
		"s3_bucket", conf.S3Bucket,
		"s3_prefix", conf.S3Prefix,
		"poll_interval", conf.PollInterval,
		"admin_port", conf.AdminPort,
		"enable_pprof", conf.EnablePprof,
		"enable_pyroscope", conf.EnablePyroscope,
		"enable_tracing", conf.EnableTracing,
	)

	sourceKind := sourceKind(conf)

	// Setup pyroscope profiling
	stopProf, profErr := prof.Start(ctx, prof.Options{
		Enabled:       conf.EnablePyroscope,
		AppName:       v.AppName,
		ServerAddress: conf.PyroServer,
		TenantID:      conf.PyroTenantID,
		Tags: map[string]string{
			"app":       v.AppName,
			"component": "server",
			"version":   vi.Version,
			"commit":    vi.Commit,
			"renderer":  conf.RendererKind(),
			"source":    sourceKind,
		},
	})
	if profErr != nil {
		L.Error(ctx, profErr, "pyroscope start failed", "pyro_server", conf.PyroServer)
	}
	defer stopProf()

	// Insecure is true because the exporter only talks to a local collector
	shutdownOTEL, err := otelx.Init(ctx, otelx.Options{
		Enabled:   conf.EnableTracing,
		Endpoint:  conf.OTLPEndpoint,
		Insecure:  true,
		Sample:    conf.TraceSample,
		Service:   v.AppName,
		Component: "server",
		Version:   vi.Version,
		Attributes: map[string]string{
			"mdpreview.renderer": conf.RendererKind(),
			"mdpreview.source":   sourceKind,
		},
	})
	if err != nil {
		L.Error(ctx, err, "otel init failed")
		shutdownOTEL = func(context.Context) error { return nil }
	}
	defer func() { _ = shutdownOTEL(context.Background()) }()

	m := metrics.New()
	m.SetBuildInfoFromVersion(v.AppName, "server", vi)
	m.SetContentSource(sourceKind)
	m.SetRenderer(conf.RendererKind())
	m.SetProfilingActive(conf.EnablePyroscope && profErr == nil)

	src, err := newSource(ctx, L, conf)
	if err != nil {
		L.Error(ctx, err, "failed to create content source")
		os.Exit(1)
	}

	rdr, err := newRenderer(L, conf, m)
	if err != nil {
		L.Error(ctx, err, "failed to create renderer")
		os.Exit(1)
	}

	site, err := sitehandler.New(sitehandler.Options{
		Logger:            L,
		Source:            src,
		Renderer:          rdr,
		Metrics:           m,
		PollInterval:      conf.PollInterval,
		HeartbeatInterval: conf.Heartbeat,
	})
	if err != nil {
		L.Error(ctx, err, "failed to create site handler")
		os.Exit(1)
	}

	// setup toggle for server shutdown
	var gate health.ShutdownGate
	readiness := health.All(
		gate.Probe(),
		health.Timeout(sourceProbe(conf), 2*time.Second),
	)

	siteHTTPStop, err := httpserver.Start(ctx, httpserver.Options{
		Logger:       L,
		Host:         conf.Host,
		Port:         conf.Port,
		UseRecoverMW: true,
		OnPanic:      m.IncHttpPanic,
		MetricsMW:    m.Middleware,
		Health:       health.Fixed(true, ""),
		Readiness:    readiness,
		Routes:       sitehttp.New(site).RegisterRoutes,
		Preview: httpmw.PreviewInfo{
			Renderer: conf.RendererKind(),
			Source:   sourceKind,
		},
	})
	if err != nil {
		L.Error(ctx, err, "failed to start http listener")
		os.Exit(1)
	}
	defer func() { _ = siteHTTPStop(context.Background()) }()

	// the admin listener carries /metrics and pprof, off unless a port is set
	opsHTTPStop := func(context.Context) error { return nil }
	if conf.AdminPort > 0 {
		opsHTTPStop, err = opshttp.Start(ctx, L, &opshttp.Options{
			Port:         conf.AdminPort,
			Metrics:      m.Handler(),
			EnablePprof:  conf.EnablePprof,
			Health:       health.Fixed(true, ""),
			Readiness:    readiness,
			UseRecoverMW: true,
			OnPanic:      m.IncHttpPanic,
		})
		if err != nil {
			L.Error(ctx, err, "failed to start ops http listener")
			os.Exit(1)
		}
	}
	defer func() { _ = opsHTTPStop(context.Background()) }()

	if err := notifySystemd(); err != nil {
		L.Debug(ctx, "systemd notify skipped", "reason", err.Error())
	}

	// wait for ctrl+c / sigterm; this also ends open live streams
	<-ctx.Done()
	stop()

	L.Info(context.Background(), "shutdown signal received")
	gate.Set("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := siteHTTPStop(shutdownCtx); err != nil {
		L.Error(context.Background(), err, "http server shutdown")
	}
	if err := opsHTTPStop(shutdownCtx); err != nil {
		L.Error(context.Background(), err, "admin server shutdown")
	}
	if err := shutdownOTEL(shutdownCtx); err != nil {
		L.Error(context.Background(), err, "otel shutdown")
	}
	stopProf()

	L.Info(context.Background(), "shutdown complete")
}
