package sitehandler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	sse "github.com/tmaxmax/go-sse"

	"github.com/keithlinneman/mdpreview/internal/content"
	"github.com/keithlinneman/mdpreview/internal/page"
	"github.com/keithlinneman/mdpreview/internal/xerrors"
)

// update is the payload of an "update" event. The page script swaps in
// Contents only when Hash differs from the last one it applied.
type update struct {
	Contents string `json:"contents"`
	Hash     string `json:"hash"`
}

// Live streams update events for the resource named by the path after the
// live prefix. The stream lasts until the client goes away or the server
// shuts down.
func (h *Handler) Live() http.Handler {
	return h.wrap(h.serveLive)
}

func (h *Handler) serveLive(w http.ResponseWriter, r *http.Request) error {
	resource := resolveLive(strings.TrimPrefix(r.URL.Path, page.LivePrefix))

	// fail before the stream starts; once headers are out the status is fixed
	if _, ok := content.Rel(resource); !ok {
		return &content.NotFoundError{Resource: resource}
	}
	if !content.IsMarkdown(resource) {
		return content.ErrNotMarkdown
	}

	if r.Method == http.MethodHead {
		streamHeaders(w.Header())
		w.WriteHeader(http.StatusOK)
		return nil
	}

	sess, err := sse.Upgrade(w, r)
	if err != nil {
		return xerrors.Wrap(err, "live: response does not support streaming")
	}
	streamHeaders(w.Header())

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	L := h.logger(ctx).With("resource", resource)

	rc := http.NewResponseController(w)
	if err := rc.SetWriteDeadline(time.Time{}); err != nil && !errors.Is(err, http.ErrNotSupported) {
		L.Debug(ctx, "live: clearing write deadline failed", "err", err)
	}

	// the compressor settles Content-Encoding in WriteHeader; Flush alone skips it
	w.WriteHeader(http.StatusOK)
	s := &stream{sess: sess}
	if err := s.open(); err != nil {
		L.Debug(ctx, "live: client gone before the stream opened", "err", err)
		return nil
	}

	h.opts.Metrics.AddLiveSubscribers(1)
	defer h.opts.Metrics.AddLiveSubscribers(-1)
	L.Debug(ctx, "live stream opened")

	watcher := content.NewWatcher(content.WatcherOptions{
		Logger:       L,
		Source:       h.opts.Source,
		Resource:     resource,
		PollInterval: h.opts.PollInterval,
		Metrics:      h.opts.Metrics,
		OnChange: func(ctx context.Context, res content.Result) error {
			html, err := h.opts.Renderer.Render(ctx, res.Text)
			if err != nil {
				return err
			}
			data, err := json.Marshal(update{Contents: html, Hash: string(res.Digest)})
			if err != nil {
				return xerrors.Wrap(err, "live: encode update")
			}
			if err := s.update(data); err != nil {
				cancel()
				return err
			}
			return nil
		},
	})

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = watcher.Run(ctx)
	}()

	heartbeat := time.NewTicker(h.opts.HeartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			<-done
			L.Debug(ctx, "live stream closed", "last_hash", string(watcher.LastDigest()))
			return nil
		case <-heartbeat.C:
			if err := s.heartbeat(); err != nil {
				cancel()
			}
		}
	}
}

var updateEvent = sse.Type("update")

func streamHeaders(hdr http.Header) {
	hdr.Set("Content-Type", "text/event-stream")
	hdr.Set("Cache-Control", "no-cache")
	hdr.Set("X-Accel-Buffering", "no")
}

// stream serialises writes from the poll goroutine and the heartbeat.
type stream struct {
	mu   sync.Mutex
	sess *sse.Session
}

// open sends the response headers so the browser sees the stream before the
// first update.
func (s *stream) open() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sess.Flush()
}

func (s *stream) update(data []byte) error {
	m := &sse.Message{Type: updateEvent}
	m.AppendData(string(data))
	return s.send(m)
}

func (s *stream) heartbeat() error {
	m := &sse.Message{}
	m.AppendComment("ping")
	return s.send(m)
}

func (s *stream) send(m *sse.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.sess.Send(m); err != nil {
		return err
	}
	return s.sess.Flush()
}
