package log

import (
	"errors"
	"fmt"
	"reflect"
	"runtime"
	"strings"
)

type hasPC interface {
	PC() uintptr
}

type hasStack interface {
	StackPCs() []uintptr
}

// errDetail is the structured view of an error attached by Logger.Error.
type errDetail struct {
	surface string
	cause   string
	chain   []string
	links   []map[string]any
}

// describeError walks err's Unwrap chain once. Consecutive identical messages
// collapse into one chain entry. Links are collected only when withLinks is
// set, at most maxLinks deep (0 means unbounded).
func describeError(err error, withLinks bool, maxLinks int) errDetail {
	var d errDetail
	d.surface, d.cause = classifyTypes(err)

	var last string
	add := func(msg string) {
		if msg != last {
			d.chain = append(d.chain, msg)
			last = msg
		}
	}

	depth := 0
	for e := err; e != nil; e = errors.Unwrap(e) {
		msg := e.Error()
		add(msg)
		if withLinks && (maxLinks <= 0 || depth < maxLinks) {
			fr, ok := origin(e)
			if ok || depth == 0 {
				link := map[string]any{"msg": msg}
				if ok {
					link["func"], link["file"], link["line"] = fr.Function, fr.File, fr.Line
				}
				d.links = append(d.links, link)
			}
		}
		depth++
	}
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		for _, e := range joined.Unwrap() {
			add(e.Error())
		}
	}
	return d
}

// kv renders d as logger key/values.
func (d errDetail) kv(err error, withLinks bool) []any {
	out := []any{"err", err, "error_type", d.surface, "cause_type", d.cause}
	if len(d.chain) > 1 {
		out = append(out, "error_chain", d.chain)
	}
	if withLinks {
		out = append(out, "error_links", d.links)
	}
	return out
}

// origin locates where e was created or wrapped.
func origin(e error) (runtime.Frame, bool) {
	if hp, ok := e.(hasPC); ok && hp.PC() != 0 {
		fr, _ := runtime.CallersFrames([]uintptr{hp.PC()}).Next()
		return fr, true
	}
	if hs, ok := e.(hasStack); ok {
		return callerFrame(hs.StackPCs())
	}
	return runtime.Frame{}, false
}

// wrapperType reports error types that only add context to another error.
func wrapperType(t reflect.Type) bool {
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if strings.Contains(t.PkgPath(), "/internal/xerrors") {
		return true
	}
	return t.PkgPath() == "fmt" && t.Name() == "wrapError"
}

// classifyTypes returns the first non-wrapper type in err's chain and the
// type of the innermost error.
func classifyTypes(err error) (surface, root string) {
	if err == nil {
		return "", ""
	}
	last := err
	for e := err; e != nil; e = errors.Unwrap(e) {
		if surface == "" && !wrapperType(reflect.TypeOf(e)) {
			surface = reflect.TypeOf(e).String()
		}
		last = e
	}
	if surface == "" {
		surface = fmt.Sprintf("%T", err)
	}
	return surface, fmt.Sprintf("%T", last)
}
