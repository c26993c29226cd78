package content

import (
	"context"
	"fmt"
	"time"

	"github.com/keithlinneman/mdpreview/internal/cryptoutil"
	"github.com/keithlinneman/mdpreview/internal/log"
)

// DefaultPollInterval is how often a watcher re-fetches its resource.
const DefaultPollInterval = time.Second

// pollResult describes what happened during a single poll cycle.
type pollResult int

const (
	pollNoChange     pollResult = iota // digest matches the last delivered one
	pollChanged                        // new digest delivered to OnChange
	pollFetchError                     // source failed, retry next tick
	pollDeliverError                   // OnChange failed, digest not recorded
)

// WatcherMetrics is implemented by the metrics package.
type WatcherMetrics interface {
	IncLivePolls()
	IncLivePushes()
	IncLiveError(errType string)
}

// WatcherOptions configures a single-resource watcher.
type WatcherOptions struct {
	Logger       log.Logger
	Source       Source
	Resource     string
	PollInterval time.Duration

	// OnChange receives each result whose digest differs from the last one
	// delivered. A returned error leaves the digest unrecorded so the next
	// poll delivers again. Called on the poll goroutine.
	OnChange func(ctx context.Context, r Result) error

	Metrics WatcherMetrics
}

// Watcher polls one resource and reports digest changes.
type Watcher struct {
	source   Source
	resource string
	logger   log.Logger
	interval time.Duration
	onChange func(ctx context.Context, r Result) error
	metrics  WatcherMetrics

	lastDigest      Digest
	consecutiveErrs int

	pollCount   int64
	changeCount int64
}

// NewWatcher creates a watcher. Call Run to start the poll loop.
func NewWatcher(opts WatcherOptions) *Watcher {
	if opts.Logger == nil {
		opts.Logger = log.Nop()
	}
	interval := opts.PollInterval
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Watcher{
		source:   opts.Source,
		resource: opts.Resource,
		logger:   opts.Logger,
		interval: interval,
		onChange: opts.OnChange,
		metrics:  opts.Metrics,
	}
}

// Run polls immediately, then on every tick until ctx is cancelled.
// Failures never end the loop.
func (w *Watcher) Run(ctx context.Context) error {
	w.logger.Debug(ctx, "live watcher starting",
		"resource", w.resource,
		"poll_interval", w.interval.String(),
	)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			w.logger.Debug(ctx, "live watcher stopping",
				"resource", w.resource,
				"reason", ctx.Err(),
				"polls", w.pollCount,
				"changes", w.changeCount,
			)
			return ctx.Err()
		case <-ticker.C:
			w.tick(ctx)
		}
	}
}

func (w *Watcher) tick(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	switch w.checkOnce(ctx) {
	case pollFetchError, pollDeliverError:
		w.consecutiveErrs++
	default:
		if w.consecutiveErrs > 0 {
			w.logger.Debug(ctx, "live watcher recovered",
				"resource", w.resource,
				"had_consecutive_errors", w.consecutiveErrs,
			)
			w.consecutiveErrs = 0
		}
	}
}

// checkOnce performs a single fetch-compare-deliver cycle.
func (w *Watcher) checkOnce(ctx context.Context) pollResult {
	w.pollCount++
	if w.metrics != nil {
		w.metrics.IncLivePolls()
	}

	r, err := w.source.Fetch(ctx, w.resource)
	if err != nil {
		// the file may be mid-write; try again next tick
		w.logger.Debug(ctx, "live watcher: fetch failed", "resource", w.resource, "err", err)
		if w.metrics != nil {
			w.metrics.IncLiveError("fetch")
		}
		return pollFetchError
	}

	if w.lastDigest != "" && cryptoutil.HashEqual(string(r.Digest), string(w.lastDigest)) {
		return pollNoChange
	}

	if err := w.deliver(ctx, r); err != nil {
		if ctx.Err() == nil {
			w.logger.Debug(ctx, "live watcher: delivery failed", "resource", w.resource, "err", err)
			if w.metrics != nil {
				w.metrics.IncLiveError("deliver")
			}
		}
		return pollDeliverError
	}

	w.lastDigest = r.Digest
	w.changeCount++
	if w.metrics != nil {
		w.metrics.IncLivePushes()
	}
	return pollChanged
}

func (w *Watcher) deliver(ctx context.Context, r Result) (err error) {
	if w.onChange == nil {
		return nil
	}
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("OnChange panic: %v", p)
		}
	}()
	return w.onChange(ctx, r)
}

// LastDigest returns the digest most recently delivered.
func (w *Watcher) LastDigest() Digest { return w.lastDigest }
