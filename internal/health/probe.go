package health

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/keithlinneman/mdpreview/internal/xerrors"
)

// Probe is evaluated per request. A nil error means healthy; otherwise the
// error text is the reason served with the 503.
type Probe interface{ Check(context.Context) error }

// CheckFunc adapts a function into a Probe.
type CheckFunc func(context.Context) error

func (f CheckFunc) Check(ctx context.Context) error { return f(ctx) }

// Fixed always passes, or always fails with reason ("unhealthy" if empty).
func Fixed(ok bool, reason string) CheckFunc {
	var err error
	if !ok {
		if reason == "" {
			reason = "unhealthy"
		}
		err = xerrors.New(reason)
	}
	return func(context.Context) error { return err }
}

// All runs probes in order and stops at the first failure. nil probes are
// skipped.
func All(ps ...Probe) CheckFunc {
	return func(ctx context.Context) error {
		for _, p := range ps {
			if p == nil {
				continue
			}
			if err := p.Check(ctx); err != nil {
				return err
			}
		}
		return nil
	}
}

// Timeout bounds each check of p by d. A probe that ignores its context still
// blocks the caller; the deadline only reaches probes that honour ctx.
func Timeout(p Probe, d time.Duration) CheckFunc {
	return func(ctx context.Context) error {
		if p == nil {
			return nil
		}
		if d <= 0 {
			return p.Check(ctx)
		}
		ctx, cancel := context.WithTimeout(ctx, d)
		defer cancel()
		if err := p.Check(ctx); err != nil {
			return xerrors.Wrapf(err, "probe failed within %s", d)
		}
		return nil
	}
}

// ShutdownGate turns readiness off once the server starts draining. The zero
// value is open.
type ShutdownGate struct {
	reason atomic.Pointer[string]
}

// Set closes the gate; reason is what /readyz reports ("draining" if empty).
func (g *ShutdownGate) Set(reason string) {
	if reason == "" {
		reason = "draining"
	}
	g.reason.Store(&reason)
}

// Clear reopens the gate.
func (g *ShutdownGate) Clear() { g.reason.Store(nil) }

func (g *ShutdownGate) Probe() CheckFunc {
	return func(context.Context) error {
		if r := g.reason.Load(); r != nil {
			return xerrors.New(*r)
		}
		return nil
	}
}
