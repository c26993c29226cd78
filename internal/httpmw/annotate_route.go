package httpmw

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// routePattern is the chi pattern that matched r, or the raw path when chi
// did not route it (tests, handlers mounted outside the router).
func routePattern(r *http.Request) string {
	if rc := chi.RouteContext(r.Context()); rc != nil {
		if p := rc.RoutePattern(); p != "" {
			return p
		}
	}
	return r.URL.Path
}

// AnnotateHTTPRoute renames the server span to "METHOD pattern" once chi has
// routed the request. Every Markdown page shares the "/*" pattern, so the
// resolved path goes on a separate attribute.
func AnnotateHTTPRoute(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r)

		span := trace.SpanFromContext(r.Context())
		if span == nil || !span.IsRecording() {
			return
		}
		routePat := routePattern(r)
		span.SetAttributes(
			attribute.String("http.route", routePat),
			attribute.String("url.path", r.URL.Path),
		)
		span.SetName(r.Method + " " + routePat)
	})
}
