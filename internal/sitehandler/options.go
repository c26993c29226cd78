package sitehandler

import (
	"errors"
	"fmt"
	"time"

	"github.com/keithlinneman/mdpreview/internal/content"
	"github.com/keithlinneman/mdpreview/internal/httpcache"
	"github.com/keithlinneman/mdpreview/internal/log"
	"github.com/keithlinneman/mdpreview/internal/render"
)

var ErrInvalidOptions = errors.New("invalid sitehandler options")

const (
	// DefaultPollInterval is how often a live stream re-fetches its resource.
	DefaultPollInterval = content.DefaultPollInterval

	// DefaultHeartbeatInterval keeps idle live streams open through proxies.
	DefaultHeartbeatInterval = 15 * time.Second
)

// Metrics is implemented by the metrics package.
type Metrics interface {
	content.WatcherMetrics
	IncPageError(kind string)
	IncNotModified(kind string)
	AddLiveSubscribers(delta float64)
}

type Options struct {
	Logger   log.Logger
	Source   content.Source
	Renderer render.Renderer
	Metrics  Metrics

	// Cache policies applied per resource kind.
	CachePolicy httpcache.Policy

	PollInterval      time.Duration // default: DefaultPollInterval
	HeartbeatInterval time.Duration // default: DefaultHeartbeatInterval
}

func (o *Options) setDefaults() {
	if o.Logger == nil {
		o.Logger = log.Nop()
	}
	if o.Metrics == nil {
		o.Metrics = nopMetrics{}
	}
	def := httpcache.DefaultPolicy()
	if o.CachePolicy.Page == "" {
		o.CachePolicy.Page = def.Page
	}
	if o.CachePolicy.Asset == "" {
		o.CachePolicy.Asset = def.Asset
	}
	if o.CachePolicy.Other == "" {
		o.CachePolicy.Other = def.Other
	}
	if o.PollInterval <= 0 {
		o.PollInterval = DefaultPollInterval
	}
	if o.HeartbeatInterval <= 0 {
		o.HeartbeatInterval = DefaultHeartbeatInterval
	}
}

func (o *Options) validate() error {
	if o.Source == nil {
		return fmt.Errorf("%w: Source is nil", ErrInvalidOptions)
	}
	if o.Renderer == nil {
		return fmt.Errorf("%w: Renderer is nil", ErrInvalidOptions)
	}
	return nil
}

type nopMetrics struct{}

func (nopMetrics) IncLivePolls()              {}
func (nopMetrics) IncLivePushes()             {}
func (nopMetrics) IncLiveError(string)        {}
func (nopMetrics) IncPageError(string)        {}
func (nopMetrics) IncNotModified(string)      {}
func (nopMetrics) AddLiveSubscribers(float64) {}
