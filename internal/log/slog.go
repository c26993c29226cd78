package log

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"
	"time"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
)

type slogLogger struct {
	h     slog.Handler
	attrs []slog.Attr

	// error_links settings, see describeError
	links    bool
	maxLinks int
}

func newSlog(opts Options) (Logger, error) {
	w := opts.Writer
	if w == nil {
		w = os.Stderr
	}
	if opts.Format == "" {
		opts.Format = FormatConsole
	}
	if opts.StacktraceLevel == 0 {
		opts.StacktraceLevel = slog.LevelError
	}
	if opts.MaxErrorLinks <= 0 {
		opts.MaxErrorLinks = 8
	}

	h, err := formatHandler(w, opts)
	if err != nil {
		return nil, err
	}
	h = stackHandler{next: otelHandler{next: h}, level: opts.StacktraceLevel}

	l := &slogLogger{
		h:        h,
		attrs:    []slog.Attr{slog.String("app", opts.App)},
		links:    opts.IncludeErrorLinks,
		maxLinks: opts.MaxErrorLinks,
	}
	if opts.Version != "" {
		l.attrs = append(l.attrs, slog.String("version", opts.Version))
	}
	return l, nil
}

func formatHandler(w io.Writer, opts Options) (slog.Handler, error) {
	ho := &slog.HandlerOptions{Level: opts.Level, AddSource: true}
	switch opts.Format {
	case FormatJSON:
		return slog.NewJSONHandler(w, ho), nil
	case FormatText:
		return slog.NewTextHandler(w, ho), nil
	case FormatConsole:
		return consoleHandler(w, opts), nil
	}
	return nil, fmt.Errorf("unknown log format %q", opts.Format)
}

// consoleHandler writes tinted lines. Colour is only used when w is a terminal.
func consoleHandler(w io.Writer, opts Options) slog.Handler {
	noColor := true
	if f, ok := w.(*os.File); ok {
		tty := isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
		noColor = opts.NoColor || !tty
		if !noColor {
			w = colorable.NewColorable(f)
		}
	}
	return tint.NewHandler(w, &tint.Options{
		Level:      opts.Level,
		TimeFormat: "15:04:05.000",
		NoColor:    noColor,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			// stacks are multi-line and unreadable inline on a console
			if a.Key == "stack" && len(groups) == 0 && opts.Level > slog.LevelDebug {
				return slog.Attr{}
			}
			return a
		},
	})
}

// pairs converts alternating key/value arguments. Non-string keys are dropped
// along with their value, as is a trailing key without a value.
func pairs(kv []any) []slog.Attr {
	out := make([]slog.Attr, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		if k, ok := kv[i].(string); ok {
			out = append(out, slog.Any(k, kv[i+1]))
		}
	}
	return out
}

func (s *slogLogger) With(kv ...any) Logger {
	add := pairs(kv)
	// never append into s.attrs: children of one parent must not share backing arrays
	attrs := make([]slog.Attr, len(s.attrs), len(s.attrs)+len(add))
	copy(attrs, s.attrs)
	child := *s
	child.attrs = append(attrs, add...)
	return &child
}

func (s *slogLogger) Debug(ctx context.Context, msg string, kv ...any) {
	s.emit(ctx, slog.LevelDebug, msg, kv)
}

func (s *slogLogger) Info(ctx context.Context, msg string, kv ...any) {
	s.emit(ctx, slog.LevelInfo, msg, kv)
}

func (s *slogLogger) Warn(ctx context.Context, msg string, kv ...any) {
	s.emit(ctx, slog.LevelWarn, msg, kv)
}

func (s *slogLogger) Error(ctx context.Context, err error, msg string, kv ...any) {
	if err != nil {
		kv = append(kv, describeError(err, s.links, s.maxLinks).kv(err, s.links)...)
	}
	s.emit(ctx, slog.LevelError, msg, kv)
}

func (s *slogLogger) Sync() error { return nil }

// emit must be called directly from a level method so the recorded source
// points at the caller of that method.
func (s *slogLogger) emit(ctx context.Context, lvl slog.Level, msg string, kv []any) {
	if !s.h.Enabled(ctx, lvl) {
		return
	}
	var pc [1]uintptr
	runtime.Callers(3, pc[:]) // Callers, emit, level method
	r := slog.NewRecord(time.Now(), lvl, msg, pc[0])
	r.AddAttrs(s.attrs...)
	r.AddAttrs(pairs(kv)...)
	_ = s.h.Handle(ctx, r)
}
