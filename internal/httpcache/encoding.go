package httpcache

import (
	"net/http"
	"strings"
)

// CodingETags gives each content-coding of a response its own strong ETag,
// "<hex>" for identity and "<hex>-gzip" for gzip. It must wrap the
// compressing middleware so it sees the Content-Encoding that one sets.
// A 304 echoes the tag the client sent.
func CodingETags(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(&codingWriter{ResponseWriter: w, ifNoneMatch: r.Header.Get("If-None-Match")}, r)
	})
}

type codingWriter struct {
	http.ResponseWriter
	ifNoneMatch string
	wroteHeader bool
}

func (cw *codingWriter) retag(status int) {
	if cw.wroteHeader {
		return
	}
	cw.wroteHeader = true

	h := cw.Header()
	etag := h.Get("ETag")
	if etag == "" || strings.HasPrefix(etag, "W/") {
		return
	}
	if status == http.StatusNotModified {
		if held := heldTag(cw.ifNoneMatch, Validator(etag)); held != "" {
			h.Set("ETag", held)
		}
		return
	}
	if ce := h.Get("Content-Encoding"); ce != "" && ce != "identity" {
		h.Set("ETag", Validator(etag).Encoded(ce).String())
	}
}

func (cw *codingWriter) WriteHeader(status int) {
	cw.retag(status)
	cw.ResponseWriter.WriteHeader(status)
}

func (cw *codingWriter) Write(p []byte) (int, error) {
	if !cw.wroteHeader {
		cw.WriteHeader(http.StatusOK)
	}
	return cw.ResponseWriter.Write(p)
}

func (cw *codingWriter) Flush() {
	cw.retag(http.StatusOK)
	if f, ok := cw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (cw *codingWriter) Unwrap() http.ResponseWriter { return cw.ResponseWriter }
