package render

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/time/rate"

	"github.com/keithlinneman/mdpreview/internal/log"
	"github.com/keithlinneman/mdpreview/internal/version"
	"github.com/keithlinneman/mdpreview/internal/xerrors"
)

const (
	DefaultGitHubAPI = "https://api.github.com"

	// DefaultTimeout bounds one API call.
	DefaultTimeout = 10 * time.Second

	maxResponseBytes = 16 << 20

	unreadableBody = "Could not read response body from GitHub"
)

type GitHubOptions struct {
	Logger log.Logger

	// APIBase is the API root; requests go to {APIBase}/markdown.
	APIBase string

	// Context is an "owner/repo" that switches the API to gfm mode so issue
	// and commit references become links.
	Context string

	// Token is sent as a bearer token when set.
	Token string

	// RequestsPerSecond limits calls to the API. <= 0 disables limiting.
	RequestsPerSecond float64
	Burst             int

	Timeout    time.Duration
	HTTPClient *http.Client
}

// GitHub renders through the GitHub Markdown API.
type GitHub struct {
	endpoint string
	context  string
	token    string
	timeout  time.Duration
	client   *http.Client
	limiter  *rate.Limiter
	logger   log.Logger
}

type markdownRequest struct {
	Text    string `json:"text"`
	Mode    string `json:"mode"`
	Context string `json:"context"`
}

// NewGitHub validates opts and returns a GitHub renderer.
func NewGitHub(opts GitHubOptions) (*GitHub, error) {
	if opts.Logger == nil {
		opts.Logger = log.Nop()
	}
	base := strings.TrimRight(strings.TrimSpace(opts.APIBase), "/")
	if base == "" {
		base = DefaultGitHubAPI
	}
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		return nil, xerrors.Newf("github api base %q must be an http(s) URL", opts.APIBase)
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}

	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)}
	}

	limit := rate.Inf
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
	}
	burst := opts.Burst
	if burst <= 0 {
		burst = 1
	}

	return &GitHub{
		endpoint: base + "/markdown",
		context:  strings.TrimSpace(opts.Context),
		token:    opts.Token,
		timeout:  opts.Timeout,
		client:   client,
		limiter:  rate.NewLimiter(limit, burst),
		logger:   opts.Logger,
	}, nil
}

func (g *GitHub) body(md string) markdownRequest {
	if g.context != "" {
		return markdownRequest{Text: md, Mode: "gfm", Context: g.context}
	}
	return markdownRequest{Text: md, Mode: "markdown", Context: ""}
}

// Render posts md to the API. Any status >= 400 is reported with the
// response body as the reason.
func (g *GitHub) Render(ctx context.Context, md string) (string, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return "", unavailable(md, "Rate limited waiting for GitHub", err)
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	payload, err := json.Marshal(g.body(md))
	if err != nil {
		return "", unavailable(md, "Error making request", xerrors.Wrap(err, "encode markdown request"))
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", unavailable(md, "Error making request", xerrors.Wrap(err, "build markdown request"))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", "2022-11-28")
	req.Header.Set("User-Agent", version.UserAgent())
	if g.token != "" {
		req.Header.Set("Authorization", "Bearer "+g.token)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		g.logger.Warn(ctx, "github markdown request failed", "endpoint", g.endpoint, "err", err)
		return "", unavailable(md, "Error awaiting response", xerrors.Wrapf(err, "post %s", g.endpoint))
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	body := string(raw)
	if err != nil {
		body = unreadableBody
	}

	if resp.StatusCode >= 400 {
		g.logger.Warn(ctx, "github markdown api returned an error",
			"status", resp.StatusCode,
			"ratelimit_remaining", resp.Header.Get("X-RateLimit-Remaining"),
		)
		return "", unavailable(md, body, xerrors.Newf("github markdown api status %d", resp.StatusCode))
	}
	if err != nil {
		return "", unavailable(md, body, xerrors.Wrap(err, "read markdown response"))
	}
	return body, nil
}
