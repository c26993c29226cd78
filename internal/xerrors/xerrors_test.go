package xerrors

import (
	"errors"
	"io/fs"
	"runtime"
	"strings"
	"testing"
)

type stackCarrier interface{ StackPCs() []uintptr }
type pcCarrier interface{ PC() uintptr }

func stackHas(pcs []uintptr, fn string) bool {
	frames := runtime.CallersFrames(pcs)
	for {
		fr, more := frames.Next()
		if strings.Contains(fr.Function, fn) {
			return true
		}
		if !more {
			return false
		}
	}
}

func TestNew(t *testing.T) {
	err := New("render failed")
	if err.Error() != "render failed" {
		t.Fatalf("Error() = %q", err.Error())
	}
	var sc stackCarrier
	if !errors.As(err, &sc) {
		t.Fatal("New should carry a stack")
	}
	if !stackHas(sc.StackPCs(), "TestNew") {
		t.Fatal("stack should start at the caller")
	}
}

func TestNewf_WrapsWithPercentW(t *testing.T) {
	err := Newf("open %s: %w", "README.md", fs.ErrNotExist)
	if !errors.Is(err, fs.ErrNotExist) {
		t.Fatal("Newf should keep %w chain")
	}
	if want := "open README.md: file does not exist"; err.Error() != want {
		t.Fatalf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestNilPassthrough(t *testing.T) {
	if WithStack(nil) != nil {
		t.Fatal("WithStack(nil) != nil")
	}
	if EnsureTrace(nil) != nil {
		t.Fatal("EnsureTrace(nil) != nil")
	}
	if Wrap(nil, "x") != nil {
		t.Fatal("Wrap(nil) != nil")
	}
	if Wrapf(nil, "x %d", 1) != nil {
		t.Fatal("Wrapf(nil) != nil")
	}
}

func TestWrap(t *testing.T) {
	base := errors.New("connection refused")
	err := Wrap(base, "post markdown")

	if err.Error() != "post markdown: connection refused" {
		t.Fatalf("Error() = %q", err.Error())
	}
	if !errors.Is(err, base) {
		t.Fatal("Wrap should unwrap to base")
	}
	var pc pcCarrier
	if !errors.As(err, &pc) || pc.PC() == 0 {
		t.Fatal("Wrap should record a caller PC")
	}
	fn := runtime.FuncForPC(pc.PC())
	if fn == nil || !strings.Contains(fn.Name(), "TestWrap") {
		t.Fatalf("PC should point at caller, got %v", fn)
	}
}

func TestWrapf(t *testing.T) {
	err := Wrapf(errors.New("eof"), "read %s", "docs/a.md")
	if err.Error() != "read docs/a.md: eof" {
		t.Fatalf("Error() = %q", err.Error())
	}
}

func TestEnsureTrace_AddsOnce(t *testing.T) {
	plain := errors.New("plain")
	traced := EnsureTrace(plain)
	var sc stackCarrier
	if !errors.As(traced, &sc) {
		t.Fatal("EnsureTrace should add a stack")
	}
	if again := EnsureTrace(traced); again != traced {
		t.Fatal("EnsureTrace should not stack twice")
	}
	// a stack deeper in the chain counts too
	wrapped := Wrap(New("inner"), "outer")
	if EnsureTrace(wrapped) != wrapped {
		t.Fatal("EnsureTrace should see stacks through Wrap")
	}
}

func TestWrappersAreMarked(t *testing.T) {
	type marker interface{ IsXerrorsWrapper() }
	for _, err := range []error{New("a"), WithStack(errors.New("b")), Wrap(errors.New("c"), "d")} {
		if _, ok := err.(marker); !ok {
			t.Fatalf("%T should implement IsXerrorsWrapper", err)
		}
	}
}
