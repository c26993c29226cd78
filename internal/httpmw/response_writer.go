package httpmw

import (
	"bufio"
	"context"
	"net"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/keithlinneman/mdpreview/internal/xerrors"
)

// responseWriter records what AccessLog reports and times the response in a
// "response.write" child span once the handler starts answering.
type responseWriter struct {
	http.ResponseWriter
	status int
	bytes  int64

	ctx      context.Context
	reqStart time.Time

	writeSpan        trace.Span
	writeSpanStarted bool
	blocked          time.Duration
	firstErr         error
}

func (rw *responseWriter) beginWrite() {
	if rw.writeSpanStarted {
		return
	}
	rw.writeSpanStarted = true
	if !trace.SpanFromContext(rw.ctx).IsRecording() {
		return
	}
	ttfb := time.Since(rw.reqStart).Seconds()
	rw.ctx, rw.writeSpan = otel.Tracer("mdpreview/httpmw").Start(rw.ctx, "response.write",
		trace.WithAttributes(attribute.Float64("http.server.ttfb_seconds", ttfb)))
}

// timed runs one call against the underlying writer and adds its duration to
// the time spent blocked on the client.
func (rw *responseWriter) timed(fn func()) {
	start := time.Now()
	fn()
	rw.blocked += time.Since(start)
}

func (rw *responseWriter) finishWriteSpan() {
	if rw.writeSpan == nil {
		return
	}
	rw.writeSpan.SetAttributes(
		attribute.Int("http.response.status_code", rw.statusOrOK()),
		attribute.Int64("http.response.body.size", rw.bytes),
		attribute.Float64("http.server.write.block_seconds", rw.blocked.Seconds()),
	)
	if rw.firstErr != nil {
		rw.writeSpan.RecordError(rw.firstErr)
		rw.writeSpan.SetStatus(codes.Error, rw.firstErr.Error())
	}
	rw.writeSpan.End()
}

func (rw *responseWriter) statusOrOK() int {
	if rw.status == 0 {
		return http.StatusOK
	}
	return rw.status
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.beginWrite()
	rw.status = code
	rw.timed(func() { rw.ResponseWriter.WriteHeader(code) })
}

func (rw *responseWriter) Write(b []byte) (n int, err error) {
	rw.beginWrite()
	if rw.status == 0 {
		rw.status = http.StatusOK
	}
	rw.timed(func() { n, err = rw.ResponseWriter.Write(b) })
	rw.bytes += int64(n)
	if err != nil && rw.firstErr == nil {
		rw.firstErr = err
	}
	return n, err
}

// Flush pushes live-update events out as they are written.
func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		rw.timed(f.Flush)
	}
}

// Unwrap lets http.ResponseController reach the connection (write deadlines on streams).
func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := rw.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, xerrors.New("underlying ResponseWriter does not implement http.Hijacker")
	}
	return h.Hijack()
}
