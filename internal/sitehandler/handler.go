package sitehandler

import (
	"net/http"
	"strconv"

	"github.com/keithlinneman/mdpreview/internal/content"
	"github.com/keithlinneman/mdpreview/internal/httpcache"
	"github.com/keithlinneman/mdpreview/internal/page"
	"github.com/keithlinneman/mdpreview/internal/webassets"
)

type Handler struct {
	opts Options
}

func New(opts Options) (*Handler, error) {
	opts.setDefaults()
	if err := opts.validate(); err != nil {
		return nil, err
	}
	return &Handler{opts: opts}, nil
}

// Index serves the index resource.
func (h *Handler) Index() http.Handler {
	return h.wrap(func(w http.ResponseWriter, r *http.Request) error {
		return h.servePage(w, r, content.IndexResource, content.IndexResource)
	})
}

// Page serves the resource named by the URL path.
func (h *Handler) Page() http.Handler {
	return h.wrap(func(w http.ResponseWriter, r *http.Request) error {
		resource, title := resolvePage(r.URL.Path)
		return h.servePage(w, r, resource, title)
	})
}

// servePage fetches, validates and renders one resource. A request that
// already holds the current validator is answered without rendering.
func (h *Handler) servePage(w http.ResponseWriter, r *http.Request, resource, title string) error {
	ctx := r.Context()

	res, err := h.opts.Source.Fetch(ctx, resource)
	if err != nil {
		return err
	}

	w.Header().Set("Cache-Control", h.opts.CachePolicy.Page)
	if httpcache.Check(w, r, httpcache.FromDigest(string(res.Digest))) {
		h.opts.Metrics.IncNotModified("page")
		return nil
	}

	html, err := h.opts.Renderer.Render(ctx, res.Text)
	if err != nil {
		return err
	}

	body := page.Document(title, page.Markdown(title, html))
	writeOK(w, r, "text/html; charset=utf-8", []byte(body))
	return nil
}

// Octicon serves the icon font file matching the suffix of the last path
// segment.
func (h *Handler) Octicon() http.Handler {
	return h.wrap(func(w http.ResponseWriter, r *http.Request) error {
		a, ok := webassets.Octicon(r.URL.Path)
		if !ok {
			w.Header().Set("Cache-Control", h.opts.CachePolicy.Other)
			writeBody(w, r, http.StatusNotFound, "text/plain; charset=utf-8", "This file does not exist")
			return nil
		}
		h.serveAsset(w, r, a)
		return nil
	})
}

// Stylesheet serves the bundled page stylesheet.
func (h *Handler) Stylesheet() http.Handler {
	return h.wrap(func(w http.ResponseWriter, r *http.Request) error {
		h.serveAsset(w, r, webassets.Stylesheet())
		return nil
	})
}

func (h *Handler) serveAsset(w http.ResponseWriter, r *http.Request, a webassets.Asset) {
	w.Header().Set("Cache-Control", h.opts.CachePolicy.ForFile(a.Name))
	if httpcache.Check(w, r, a.ETag) {
		h.opts.Metrics.IncNotModified("asset")
		return
	}
	writeOK(w, r, a.ContentType, a.Data)
}

func writeOK(w http.ResponseWriter, r *http.Request, contentType string, body []byte) {
	hdr := w.Header()
	hdr.Set("Content-Type", contentType)
	hdr.Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(http.StatusOK)
	if r.Method == http.MethodHead {
		return
	}
	_, _ = w.Write(body)
}
