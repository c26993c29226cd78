package sitehandler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/keithlinneman/mdpreview/internal/content"
	"github.com/keithlinneman/mdpreview/internal/cryptoutil"
	"github.com/keithlinneman/mdpreview/internal/log"
	"github.com/keithlinneman/mdpreview/internal/render"
)

// fakeSource serves an in-memory set of resources and applies the same
// typed failures as the real sources.
type fakeSource struct {
	mu    sync.Mutex
	files map[string]string
	err   error // returned for every fetch when set
	calls int
}

func newFakeSource(files map[string]string) *fakeSource {
	return &fakeSource{files: files}
}

func (s *fakeSource) set(resource, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[resource] = text
}

func (s *fakeSource) Fetch(_ context.Context, resource string) (content.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return content.Result{}, s.err
	}
	rel, ok := content.Rel(resource)
	if !ok {
		return content.Result{}, &content.NotFoundError{Resource: resource}
	}
	if !content.IsMarkdown(rel) {
		return content.Result{}, content.ErrNotMarkdown
	}
	text, ok := s.files[rel]
	if !ok {
		return content.Result{}, &content.NotFoundError{Resource: resource}
	}
	return content.Result{Text: text, Digest: digestOf(text)}, nil
}

func digestOf(text string) content.Digest {
	return content.Digest(cryptoutil.SHA256Hex([]byte(text)))
}

// spyRenderer wraps Markdown in a marker element and counts calls.
type spyRenderer struct {
	calls atomic.Int64

	mu  sync.Mutex
	err error
}

func (r *spyRenderer) setErr(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.err = err
}

func (r *spyRenderer) Render(ctx context.Context, md string) (string, error) {
	r.calls.Add(1)
	if err := ctx.Err(); err != nil {
		return "", err
	}
	r.mu.Lock()
	err := r.err
	r.mu.Unlock()
	if err != nil {
		return "", err
	}
	return "<p>" + md + "</p>", nil
}

type fakeMetrics struct {
	mu          sync.Mutex
	pageErrors  map[string]int
	notModified map[string]int
	liveErrors  map[string]int
	polls       int
	pushes      int
	subscribers float64
}

func newFakeMetrics() *fakeMetrics {
	return &fakeMetrics{
		pageErrors:  map[string]int{},
		notModified: map[string]int{},
		liveErrors:  map[string]int{},
	}
}

func (m *fakeMetrics) IncLivePolls() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.polls++
}

func (m *fakeMetrics) IncLivePushes() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pushes++
}

func (m *fakeMetrics) IncLiveError(errType string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.liveErrors[errType]++
}

func (m *fakeMetrics) IncPageError(kind string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pageErrors[kind]++
}

func (m *fakeMetrics) IncNotModified(kind string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notModified[kind]++
}

func (m *fakeMetrics) AddLiveSubscribers(delta float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subscribers += delta
}

func (m *fakeMetrics) snapshot() (pushes int, subscribers float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pushes, m.subscribers
}

func (m *fakeMetrics) pageError(kind string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pageErrors[kind]
}

type testEnv struct {
	h        *Handler
	source   *fakeSource
	renderer *spyRenderer
	metrics  *fakeMetrics
}

func newTestEnv(t *testing.T, files map[string]string) *testEnv {
	t.Helper()
	env := &testEnv{
		source:   newFakeSource(files),
		renderer: &spyRenderer{},
		metrics:  newFakeMetrics(),
	}
	h, err := New(Options{
		Logger:            log.Nop(),
		Source:            env.source,
		Renderer:          env.renderer,
		Metrics:           env.metrics,
		PollInterval:      10 * time.Millisecond,
		HeartbeatInterval: time.Minute,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	env.h = h
	return env
}

var errBoom = errors.New("boom")

var _ render.Renderer = (*spyRenderer)(nil)
