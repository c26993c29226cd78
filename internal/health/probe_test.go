package health

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
)

var (
	pass        = CheckFunc(func(context.Context) error { return nil })
	errGone     = errors.New("content folder missing")
	folderGone  = CheckFunc(func(context.Context) error { return errGone })
	errRenderer = errors.New("renderer unreachable")
	rendererBad = CheckFunc(func(context.Context) error { return errRenderer })
)

func TestFixed(t *testing.T) {
	tests := []struct {
		name    string
		ok      bool
		reason  string
		wantErr string
	}{
		{"ok", true, "", ""},
		{"ok ignores reason", true, "ignored", ""},
		{"fail with reason", false, "maintenance", "maintenance"},
		{"fail default reason", false, "", "unhealthy"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Fixed(tt.ok, tt.reason)
			for i := 0; i < 2; i++ {
				err := p.Check(context.Background())
				if tt.wantErr == "" {
					if err != nil {
						t.Fatalf("err = %v, want nil", err)
					}
					continue
				}
				if err == nil || err.Error() != tt.wantErr {
					t.Fatalf("err = %v, want %q", err, tt.wantErr)
				}
			}
		})
	}
}

func TestAll(t *testing.T) {
	tests := []struct {
		name   string
		probes []Probe
		want   error
	}{
		{"empty", nil, nil},
		{"all pass", []Probe{pass, pass}, nil},
		{"nil skipped", []Probe{nil, pass, nil}, nil},
		{"first failure wins", []Probe{pass, folderGone, rendererBad}, errGone},
		{"nil before failure", []Probe{nil, rendererBad}, errRenderer},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := All(tt.probes...).Check(context.Background()); !errors.Is(err, tt.want) || (tt.want == nil && err != nil) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestAll_ShortCircuits(t *testing.T) {
	called := false
	later := CheckFunc(func(context.Context) error { called = true; return nil })
	_ = All(folderGone, later).Check(context.Background())
	if called {
		t.Fatal("probe after a failure should not run")
	}
}

func TestShutdownGate(t *testing.T) {
	var g ShutdownGate
	p := g.Probe()

	if err := p.Check(context.Background()); err != nil {
		t.Fatalf("new gate: %v", err)
	}

	g.Set("shutting down")
	if err := p.Check(context.Background()); err == nil || err.Error() != "shutting down" {
		t.Fatalf("after Set = %v", err)
	}

	g.Set("")
	if err := p.Check(context.Background()); err == nil || err.Error() != "draining" {
		t.Fatalf("empty reason = %v, want draining", err)
	}

	g.Clear()
	if err := p.Check(context.Background()); err != nil {
		t.Fatalf("after Clear: %v", err)
	}
}

func TestShutdownGate_ConcurrentAccess(t *testing.T) {
	var g ShutdownGate
	p := g.Probe()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			g.Set("draining")
			g.Clear()
		}()
		go func() {
			defer wg.Done()
			_ = p.Check(context.Background())
		}()
	}
	wg.Wait()
}

func TestReadinessComposition(t *testing.T) {
	var g ShutdownGate
	folderOK := true
	folder := CheckFunc(func(context.Context) error {
		if !folderOK {
			return errGone
		}
		return nil
	})
	ready := All(g.Probe(), Timeout(folder, time.Second))

	if err := ready.Check(context.Background()); err != nil {
		t.Fatalf("ready: %v", err)
	}

	folderOK = false
	err := ready.Check(context.Background())
	if !errors.Is(err, errGone) {
		t.Fatalf("err = %v, want folder error", err)
	}

	folderOK = true
	g.Set("shutting down")
	if err := ready.Check(context.Background()); err == nil || err.Error() != "shutting down" {
		t.Fatalf("gate err = %v", err)
	}
}

func TestTimeout_PassesDeadlineToProbe(t *testing.T) {
	var hasDeadline bool
	p := CheckFunc(func(ctx context.Context) error {
		_, hasDeadline = ctx.Deadline()
		return nil
	})
	if err := Timeout(p, time.Second).Check(context.Background()); err != nil {
		t.Fatalf("Check: %v", err)
	}
	if !hasDeadline {
		t.Fatal("probe context has no deadline")
	}
}

func TestTimeout_SlowProbeFails(t *testing.T) {
	slow := CheckFunc(func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	err := Timeout(slow, 10*time.Millisecond).Check(context.Background())
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want DeadlineExceeded", err)
	}
	if !strings.Contains(err.Error(), "probe failed within 10ms") {
		t.Errorf("err = %q", err.Error())
	}
}

func TestTimeout_NilProbeAndZeroDuration(t *testing.T) {
	if err := Timeout(nil, time.Second).Check(context.Background()); err != nil {
		t.Fatalf("nil probe: %v", err)
	}
	var hasDeadline bool
	p := CheckFunc(func(ctx context.Context) error {
		_, hasDeadline = ctx.Deadline()
		return errGone
	})
	if err := Timeout(p, 0).Check(context.Background()); err != errGone {
		t.Fatalf("zero duration err = %v, want passthrough", err)
	}
	if hasDeadline {
		t.Fatal("zero duration should not add a deadline")
	}
}
