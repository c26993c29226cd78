package opshttp

import (
	"net/http"

	"github.com/keithlinneman/mdpreview/internal/health"
)

type Options struct {
	Host         string // default 127.0.0.1
	Port         int
	Metrics      http.Handler
	EnablePprof  bool
	Health       health.Probe
	Readiness    health.Probe
	UseRecoverMW bool
	OnPanic      func() // Optional callback for recovered panics, e.g. to increment a prometheus counter
}
