package sitehandler

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	sse "github.com/tmaxmax/go-sse"
)

type sseEvent struct {
	name string
	data string
}

// readEvent returns the next event, skipping comments. It fails the test if
// nothing arrives before the deadline.
func readEvent(t *testing.T, br *bufio.Reader, deadline time.Duration) sseEvent {
	t.Helper()
	ch := make(chan sseEvent, 1)
	errc := make(chan error, 1)
	go func() {
		var ev sseEvent
		for {
			line, err := br.ReadString('\n')
			if err != nil {
				errc <- err
				return
			}
			line = strings.TrimRight(line, "\n")
			switch {
			case line == "":
				if ev.name != "" || ev.data != "" {
					ch <- ev
					return
				}
			case strings.HasPrefix(line, ":"):
			case strings.HasPrefix(line, "event: "):
				ev.name = strings.TrimPrefix(line, "event: ")
			case strings.HasPrefix(line, "data: "):
				ev.data = strings.TrimPrefix(line, "data: ")
			}
		}
	}()
	select {
	case ev := <-ch:
		return ev
	case err := <-errc:
		t.Fatalf("stream ended: %v", err)
	case <-time.After(deadline):
		t.Fatal("timed out waiting for event")
	}
	return sseEvent{}
}

func openStream(t *testing.T, srv *httptest.Server, path string) (*http.Response, context.CancelFunc) {
	t.Helper()
	ctx, cancel := context.WithCancel(t.Context())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+path, http.NoBody)
	if err != nil {
		cancel()
		t.Fatalf("NewRequest: %v", err)
	}
	resp, err := srv.Client().Do(req)
	if err != nil {
		cancel()
		t.Fatalf("GET %s: %v", path, err)
	}
	return resp, cancel
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met before deadline")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestLive_PushesOncePerChange(t *testing.T) {
	env := newTestEnv(t, map[string]string{"README.md": "one"})
	srv := httptest.NewServer(env.h.Live())
	defer srv.Close()

	resp, cancel := openStream(t, srv, "/__live-update/")
	defer cancel()
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("Content-Type = %q", ct)
	}
	if cc := resp.Header.Get("Cache-Control"); cc != "no-cache" {
		t.Errorf("Cache-Control = %q", cc)
	}

	br := bufio.NewReader(resp.Body)

	ev := readEvent(t, br, 2*time.Second)
	if ev.name != "update" {
		t.Fatalf("event = %q, want update", ev.name)
	}
	var u update
	if err := json.Unmarshal([]byte(ev.data), &u); err != nil {
		t.Fatalf("decode update: %v", err)
	}
	if u.Contents != "<p>one</p>" || u.Hash != string(digestOf("one")) {
		t.Fatalf("update = %+v", u)
	}

	// several polls over unchanged content must not push again
	time.Sleep(60 * time.Millisecond)
	if pushes, _ := env.metrics.snapshot(); pushes != 1 {
		t.Fatalf("pushes while unchanged = %d, want 1", pushes)
	}

	env.source.set("README.md", "two")
	ev = readEvent(t, br, 2*time.Second)
	if err := json.Unmarshal([]byte(ev.data), &u); err != nil {
		t.Fatalf("decode update: %v", err)
	}
	if u.Contents != "<p>two</p>" || u.Hash != string(digestOf("two")) {
		t.Fatalf("second update = %+v", u)
	}
	if pushes, subs := env.metrics.snapshot(); pushes != 2 || subs != 1 {
		t.Fatalf("pushes = %d subscribers = %v, want 2 and 1", pushes, subs)
	}
}

func TestLive_ClientDisconnectEndsStream(t *testing.T) {
	env := newTestEnv(t, map[string]string{"docs/a.md": "a"})
	srv := httptest.NewServer(env.h.Live())
	defer srv.Close()

	resp, cancel := openStream(t, srv, "/__live-update/docs/a.md")
	br := bufio.NewReader(resp.Body)
	readEvent(t, br, 2*time.Second)

	cancel()
	resp.Body.Close()

	waitFor(t, func() bool {
		_, subs := env.metrics.snapshot()
		return subs == 0
	})
}

func TestLive_RetriesAfterRenderFailure(t *testing.T) {
	env := newTestEnv(t, map[string]string{"README.md": "x"})
	env.renderer.setErr(errBoom)
	srv := httptest.NewServer(env.h.Live())
	defer srv.Close()

	resp, cancel := openStream(t, srv, "/__live-update")
	defer cancel()
	defer resp.Body.Close()

	waitFor(t, func() bool { return env.renderer.calls.Load() >= 2 })

	env.renderer.setErr(nil)
	ev := readEvent(t, bufio.NewReader(resp.Body), 2*time.Second)
	if ev.name != "update" {
		t.Fatalf("event = %q, want update", ev.name)
	}
}

func TestLive_Heartbeat(t *testing.T) {
	env := newTestEnv(t, map[string]string{"README.md": "x"})
	env.h.opts.HeartbeatInterval = 10 * time.Millisecond
	srv := httptest.NewServer(env.h.Live())
	defer srv.Close()

	resp, cancel := openStream(t, srv, "/__live-update/")
	defer cancel()
	defer resp.Body.Close()

	br := bufio.NewReader(resp.Body)
	found := make(chan struct{})
	go func() {
		for {
			line, err := br.ReadString('\n')
			if err != nil {
				return
			}
			if line == ": ping\n" {
				close(found)
				return
			}
		}
	}()
	select {
	case <-found:
	case <-time.After(2 * time.Second):
		t.Fatal("no heartbeat received")
	}
}

func TestLive_RejectsBeforeStreaming(t *testing.T) {
	env := newTestEnv(t, map[string]string{"README.md": "x"})

	tests := []struct {
		name   string
		path   string
		status int
	}{
		{"not markdown", "/__live-update/main.go", http.StatusBadRequest},
		{"escapes root", "/__live-update/a/../../secret.md", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(env.h.Live(), http.MethodGet, tt.path, nil)
			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d", rec.Code, tt.status)
			}
			if strings.HasPrefix(rec.Header().Get("Content-Type"), "text/event-stream") {
				t.Error("rejected stream must not advertise text/event-stream")
			}
		})
	}
	if env.source.calls != 0 {
		t.Errorf("source fetched %d times for rejected streams", env.source.calls)
	}
}

func TestLive_Head(t *testing.T) {
	env := newTestEnv(t, map[string]string{"README.md": "x"})

	rec := serve(env.h.Live(), http.MethodHead, "/__live-update/", nil)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("Content-Type = %q", ct)
	}
	if rec.Body.Len() != 0 {
		t.Error("HEAD must not stream")
	}
}

// noFlushWriter is a ResponseWriter that cannot stream.
type noFlushWriter struct {
	hdr    http.Header
	status int
	body   bytes.Buffer
}

func (w *noFlushWriter) Header() http.Header         { return w.hdr }
func (w *noFlushWriter) Write(p []byte) (int, error) { return w.body.Write(p) }
func (w *noFlushWriter) WriteHeader(code int)        { w.status = code }

func TestLive_WriterWithoutFlush(t *testing.T) {
	env := newTestEnv(t, map[string]string{"README.md": "x"})
	w := &noFlushWriter{hdr: http.Header{}}

	env.h.Live().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/__live-update/", http.NoBody))

	if w.status != http.StatusNotFound {
		t.Fatalf("status = %d, want the generic 404", w.status)
	}
	if strings.HasPrefix(w.hdr.Get("Content-Type"), "text/event-stream") {
		t.Error("a response that cannot stream must not advertise text/event-stream")
	}
	if env.source.calls != 0 {
		t.Errorf("source fetched %d times", env.source.calls)
	}
}

func TestStream_WireFormat(t *testing.T) {
	rec := httptest.NewRecorder()
	sess, err := sse.Upgrade(rec, httptest.NewRequest(http.MethodGet, "/__live-update/", http.NoBody))
	if err != nil {
		t.Fatalf("Upgrade: %v", err)
	}
	s := &stream{sess: sess}

	if err := s.open(); err != nil {
		t.Fatalf("open: %v", err)
	}
	if !rec.Flushed {
		t.Fatal("open should flush the headers")
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("Content-Type = %q", ct)
	}

	data, _ := json.Marshal(update{Contents: "<h1>Title</h1>\n<p>x</p>", Hash: "ab12"})
	if err := s.update(data); err != nil {
		t.Fatalf("update: %v", err)
	}
	if err := s.heartbeat(); err != nil {
		t.Fatalf("heartbeat: %v", err)
	}

	want := "event: update\n" +
		`data: {"contents":"\u003ch1\u003eTitle\u003c/h1\u003e\n\u003cp\u003ex\u003c/p\u003e","hash":"ab12"}` + "\n\n" +
		": ping\n\n"
	if got := rec.Body.String(); got != want {
		t.Fatalf("wire =\n%q\nwant\n%q", got, want)
	}
}
