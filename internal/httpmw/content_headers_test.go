package httpmw

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

func TestPreviewHeaders_BothSet(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	rec := httptest.NewRecorder()
	PreviewHeaders(PreviewInfo{Renderer: "offline", Source: "file"})(handler).
		ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", http.NoBody))

	if got := rec.Header().Get("X-Mdpreview-Renderer"); got != "offline" {
		t.Errorf("X-Mdpreview-Renderer = %q, want offline", got)
	}
	if got := rec.Header().Get("X-Mdpreview-Source"); got != "file" {
		t.Errorf("X-Mdpreview-Source = %q, want file", got)
	}
}

func TestPreviewHeaders_OnlyRenderer(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})

	rec := httptest.NewRecorder()
	PreviewHeaders(PreviewInfo{Renderer: "github"})(handler).
		ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", http.NoBody))

	if got := rec.Header().Get("X-Mdpreview-Renderer"); got != "github" {
		t.Errorf("X-Mdpreview-Renderer = %q, want github", got)
	}
	if _, ok := rec.Header()["X-Mdpreview-Source"]; ok {
		t.Error("X-Mdpreview-Source should be absent")
	}
}

func TestPreviewHeaders_EmptyInfoIsPassThrough(t *testing.T) {
	called := false
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	})

	rec := httptest.NewRecorder()
	PreviewHeaders(PreviewInfo{})(handler).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", http.NoBody))

	if !called {
		t.Fatal("handler not called")
	}
	if len(rec.Header()) != 0 {
		t.Fatalf("headers = %v, want none", rec.Header())
	}
}

func TestPreviewHeaders_AnnotatesSpan(t *testing.T) {
	ctx, sr := newRecordingSpan(t, "GET /")
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})

	req := httptest.NewRequest(http.MethodGet, "/", http.NoBody).WithContext(ctx)
	PreviewHeaders(PreviewInfo{Renderer: "github", Source: "s3"})(handler).ServeHTTP(httptest.NewRecorder(), req)
	trace.SpanFromContext(ctx).End()

	spans := sr.Ended()
	if len(spans) != 1 {
		t.Fatalf("ended spans = %d, want 1", len(spans))
	}
	want := map[attribute.Key]string{"mdpreview.renderer": "github", "mdpreview.source": "s3"}
	for _, kv := range spans[0].Attributes() {
		if v, ok := want[kv.Key]; ok && kv.Value.AsString() == v {
			delete(want, kv.Key)
		}
	}
	if len(want) != 0 {
		t.Fatalf("missing span attributes: %v", want)
	}
}
