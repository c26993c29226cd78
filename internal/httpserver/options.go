package httpserver

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/keithlinneman/mdpreview/internal/health"
	"github.com/keithlinneman/mdpreview/internal/httpmw"
	"github.com/keithlinneman/mdpreview/internal/log"
)

type Options struct {
	Logger       log.Logger
	Host         string // default 127.0.0.1
	Port         int    // default 4000
	UseRecoverMW bool
	OnPanic      func()
	MetricsMW    func(http.Handler) http.Handler
	Health       health.Probe
	Readiness    health.Probe

	// Routes mounts the preview routes, normally sitehttp.Routes.RegisterRoutes.
	Routes func(chi.Router)

	// Preview is echoed as X-Mdpreview-Renderer / X-Mdpreview-Source.
	Preview httpmw.PreviewInfo
}
