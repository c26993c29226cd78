package render

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/keithlinneman/mdpreview/internal/log"
)

// Kind selects the renderer backend.
type Kind string

const (
	KindGitHub  Kind = "github"
	KindOffline Kind = "offline"
)

// Renderer converts Markdown text to an HTML fragment.
type Renderer interface {
	Render(ctx context.Context, markdown string) (string, error)
}

// UnavailableError means the renderer could not convert Markdown.
type UnavailableError struct {
	Reason   string
	Markdown string
	Err      error
}

func (e *UnavailableError) Error() string {
	return "markdown renderer unavailable: " + e.Reason
}

func (e *UnavailableError) Unwrap() error { return e.Err }

func unavailable(md, reason string, err error) error {
	return &UnavailableError{Reason: reason, Markdown: md, Err: err}
}

// Metrics is implemented by the metrics package.
type Metrics interface {
	ObserveRender(kind string, seconds float64, err error)
}

type Options struct {
	Kind    Kind
	Logger  log.Logger
	Metrics Metrics

	GitHub  GitHubOptions
	Offline OfflineOptions
}

// New builds the renderer for opts.Kind, wrapped with tracing and metrics.
func New(opts Options) (Renderer, error) {
	if opts.Logger == nil {
		opts.Logger = log.Nop()
	}

	var r Renderer
	switch opts.Kind {
	case KindGitHub, "":
		opts.Kind = KindGitHub
		if opts.GitHub.Logger == nil {
			opts.GitHub.Logger = opts.Logger
		}
		gh, err := NewGitHub(opts.GitHub)
		if err != nil {
			return nil, err
		}
		r = gh
	case KindOffline:
		r = NewOffline(opts.Offline)
	default:
		return nil, fmt.Errorf("unknown renderer %q (valid renderers are github|offline)", opts.Kind)
	}

	return &instrumented{
		next:    r,
		kind:    opts.Kind,
		tracer:  otel.Tracer("github.com/keithlinneman/mdpreview/internal/render"),
		metrics: opts.Metrics,
	}, nil
}

type instrumented struct {
	next    Renderer
	kind    Kind
	tracer  trace.Tracer
	metrics Metrics
}

func (i *instrumented) Render(ctx context.Context, markdown string) (string, error) {
	ctx, span := i.tracer.Start(ctx, "render.Markdown",
		trace.WithAttributes(
			attribute.String("render.kind", string(i.kind)),
			attribute.Int("render.markdown_bytes", len(markdown)),
		),
	)
	defer span.End()

	start := time.Now()
	html, err := i.next.Render(ctx, markdown)
	if i.metrics != nil {
		i.metrics.ObserveRender(string(i.kind), time.Since(start).Seconds(), err)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "render failed")
		var ue *UnavailableError
		if !errors.As(err, &ue) {
			err = unavailable(markdown, err.Error(), err)
		}
		return "", err
	}
	span.SetAttributes(attribute.Int("render.html_bytes", len(html)))
	return html, nil
}
