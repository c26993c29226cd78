package httpmw

import (
	"net/http"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// PreviewInfo names the active backends for response headers and spans.
type PreviewInfo struct {
	Renderer string // github | offline
	Source   string // file | s3
}

// PreviewHeaders adds X-Mdpreview-Renderer and X-Mdpreview-Source so a
// rendered page can be traced back to the backend that produced it.
func PreviewHeaders(info PreviewInfo) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if info.Renderer == "" && info.Source == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if info.Renderer != "" {
				w.Header().Set("X-Mdpreview-Renderer", info.Renderer)
			}
			if info.Source != "" {
				w.Header().Set("X-Mdpreview-Source", info.Source)
			}
			if span := trace.SpanFromContext(r.Context()); span != nil && span.IsRecording() {
				span.SetAttributes(
					attribute.String("mdpreview.renderer", info.Renderer),
					attribute.String("mdpreview.source", info.Source),
				)
			}
			next.ServeHTTP(w, r)
		})
	}
}
