package httpmw

import (
	"net/http"

	"go.opentelemetry.io/otel/trace"
)

const (
	DefaultTraceIDHeader = "X-Trace-Id"
	DefaultSpanIDHeader  = "X-Span-Id"
)

// TraceResponseHeaders echoes the server span ids so a preview request seen
// in the browser can be found in the tracing backend. Requests without a
// valid span (live streams, static assets) get no headers.
func TraceResponseHeaders(traceHeader, spanHeader string) func(http.Handler) http.Handler {
	if traceHeader == "" {
		traceHeader = DefaultTraceIDHeader
	}
	if spanHeader == "" {
		spanHeader = DefaultSpanIDHeader
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if sc := trace.SpanContextFromContext(r.Context()); sc.IsValid() {
				h := w.Header()
				h.Set(traceHeader, sc.TraceID().String())
				h.Set(spanHeader, sc.SpanID().String())
			}
			next.ServeHTTP(w, r)
		})
	}
}
