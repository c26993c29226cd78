package sitehandler

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/keithlinneman/mdpreview/internal/content"
	"github.com/keithlinneman/mdpreview/internal/log"
	"github.com/keithlinneman/mdpreview/internal/page"
	"github.com/keithlinneman/mdpreview/internal/render"
)

// handlerFunc is a handler that leaves failure responses to wrap.
type handlerFunc func(w http.ResponseWriter, r *http.Request) error

// error kinds used as metric labels
const (
	errKindNotMarkdown = "not_markdown"
	errKindNotFound    = "not_found"
	errKindUnavailable = "unavailable"
	errKindOther       = "other"
)

// wrap adapts fn to http.Handler. It is the only place typed failures are
// turned into a status and body.
func (h *Handler) wrap(fn handlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			w.Header().Set("Allow", "GET, HEAD")
			w.Header().Set("Cache-Control", "no-store")
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if err := fn(w, r); err != nil {
			h.writeError(w, r, err)
		}
	})
}

// writeError maps err to its response. Headers a handler set before failing
// (ETag) are dropped.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()
	hdr := w.Header()
	hdr.Del("ETag")
	hdr.Set("Cache-Control", "no-store")

	var (
		nf *content.NotFoundError
		ue *render.UnavailableError
	)
	switch {
	case errors.Is(err, content.ErrNotMarkdown):
		h.opts.Metrics.IncPageError(errKindNotMarkdown)
		h.logger(ctx).Warn(ctx, "not a markdown file", "err", err)
		writeBody(w, r, http.StatusBadRequest, "text/html; charset=utf-8", page.NotMarkdown(r.URL.Path))

	case errors.As(err, &nf):
		h.opts.Metrics.IncPageError(errKindNotFound)
		h.logger(ctx).Warn(ctx, "resource not found", "resource", nf.Resource, "err", err)
		if acceptsHTML(r) {
			writeBody(w, r, http.StatusNotFound, "text/html; charset=utf-8", page.NotFound(content.DisplayName(nf.Resource)))
			return
		}
		writeBody(w, r, http.StatusNotFound, "text/plain; charset=utf-8", "Could not find `"+content.DisplayName(nf.Resource)+"`")

	case errors.As(err, &ue):
		h.opts.Metrics.IncPageError(errKindUnavailable)
		h.logger(ctx).Error(ctx, err, "markdown renderer unavailable")
		writeBody(w, r, http.StatusInternalServerError, "text/plain; charset=utf-8",
			"Could not convert the following markdown:\n"+ue.Reason+"\n\n"+ue.Markdown)

	default:
		h.opts.Metrics.IncPageError(errKindOther)
		h.logger(ctx).Warn(ctx, "request failed", "err", err)
		writeBody(w, r, http.StatusNotFound, "text/plain; charset=utf-8", "404 page not found")
	}
}

func writeBody(w http.ResponseWriter, r *http.Request, status int, contentType, body string) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	if r.Method == http.MethodHead {
		return
	}
	_, _ = w.Write([]byte(body))
}

func acceptsHTML(r *http.Request) bool {
	for _, part := range strings.Split(r.Header.Get("Accept"), ",") {
		mt, _, _ := strings.Cut(part, ";")
		if strings.EqualFold(strings.TrimSpace(mt), "text/html") {
			return true
		}
	}
	return false
}

// logger prefers the request-scoped logger installed by the middleware.
func (h *Handler) logger(ctx context.Context) log.Logger {
	if l := log.FromContext(ctx); l != log.Nop() {
		return l
	}
	return h.opts.Logger
}
