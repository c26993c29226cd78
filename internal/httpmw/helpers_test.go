package httpmw

import (
	"bufio"
	"context"
	"net"
	"net/http/httptest"
	"sync"
	"testing"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/keithlinneman/mdpreview/internal/log"
)

type entry struct {
	level string
	msg   string
	err   error
	kv    []any
}

// recordLogger returns itself from With so every call lands in one place.
type recordLogger struct {
	mu      sync.Mutex
	entries []entry
	withs   [][]any
}

func (l *recordLogger) With(kv ...any) log.Logger {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.withs = append(l.withs, kv)
	return l
}

func (l *recordLogger) add(e entry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, e)
}

func (l *recordLogger) Debug(_ context.Context, msg string, kv ...any) {
	l.add(entry{level: "debug", msg: msg, kv: kv})
}
func (l *recordLogger) Info(_ context.Context, msg string, kv ...any) {
	l.add(entry{level: "info", msg: msg, kv: kv})
}
func (l *recordLogger) Warn(_ context.Context, msg string, kv ...any) {
	l.add(entry{level: "warn", msg: msg, kv: kv})
}
func (l *recordLogger) Error(_ context.Context, err error, msg string, kv ...any) {
	l.add(entry{level: "error", msg: msg, err: err, kv: kv})
}
func (l *recordLogger) Sync() error { return nil }

func (l *recordLogger) byLevel(level string) []entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []entry
	for _, e := range l.entries {
		if e.level == level {
			out = append(out, e)
		}
	}
	return out
}

// with returns the value of key from the most recent With call carrying it.
func (l *recordLogger) with(key string) (any, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := len(l.withs) - 1; i >= 0; i-- {
		if v, ok := field(l.withs[i], key); ok {
			return v, true
		}
	}
	return nil, false
}

func field(kv []any, key string) (any, bool) {
	for i := 0; i+1 < len(kv); i += 2 {
		if k, ok := kv[i].(string); ok && k == key {
			return kv[i+1], true
		}
	}
	return nil, false
}

// newRecordingSpan creates a context with a real recording span.
func newRecordingSpan(t *testing.T, name string) (context.Context, *tracetest.SpanRecorder) {
	t.Helper()
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	ctx, _ := tp.Tracer("test").Start(context.Background(), name)
	return ctx, sr
}

// flusherRecorder counts flushes the way a streaming connection would see them.
type flusherRecorder struct {
	*httptest.ResponseRecorder
	flushes int
}

func (f *flusherRecorder) Flush() { f.flushes++ }

type hijackRecorder struct {
	*httptest.ResponseRecorder
	hijacked bool
}

func (h *hijackRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h.hijacked = true
	return nil, nil, nil
}
