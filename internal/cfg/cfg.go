package cfg

import (
	"errors"
	"flag"
	"fmt"
	"net"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/keithlinneman/mdpreview/internal/log"
)

type App struct {
	Host   string
	Port   int
	Folder string

	Offline         bool
	SafeMode        bool
	SkipFrontMatter bool
	Context         string
	GitHubAPI       string
	GitHubToken     string
	GitHubRPS       float64
	RenderTimeout   time.Duration
	PollInterval    time.Duration
	Heartbeat       time.Duration

	S3Bucket string
	S3Prefix string

	LogLevel          string
	LogFormat         string
	StacktraceLevel   string
	IncludeErrorLinks bool
	MaxErrorLinks     int

	AdminPort       int
	EnablePprof     bool
	EnablePyroscope bool
	EnableTracing   bool
	PyroServer      string
	PyroTenantID    string
	OTLPEndpoint    string
	TraceSample     float64
}

// Register binds all config fields to the given FlagSet with defaults inline
func Register(fs *flag.FlagSet, c *App) {
	fs.StringVar(&c.Host, "host", "127.0.0.1", "listen host")
	fs.IntVar(&c.Port, "port", 4000, "listen TCP port (1..65535)")
	fs.StringVar(&c.Folder, "folder", ".", "root folder to serve Markdown from")
	fs.BoolVar(&c.Offline, "offline", false, "render locally instead of calling the GitHub API")
	fs.BoolVar(&c.SafeMode, "safe-mode", false, "drop raw HTML when rendering offline")
	fs.BoolVar(&c.SkipFrontMatter, "skip-front-matter", false, "render YAML front matter as Markdown instead of a table (offline)")
	fs.StringVar(&c.Context, "context", "", "GitHub owner/repo used to resolve issue and commit references")
	fs.StringVar(&c.GitHubAPI, "github-api", "https://api.github.com", "GitHub API base URL")
	fs.StringVar(&c.GitHubToken, "github-token", "", "GitHub token for higher API rate limits")
	fs.Float64Var(&c.GitHubRPS, "github-rps", 1, "max GitHub API requests per second (0 disables limiting)")
	fs.DurationVar(&c.RenderTimeout, "render-timeout", 10*time.Second, "per-render timeout")
	fs.DurationVar(&c.PollInterval, "poll-interval", time.Second, "live-update poll interval")
	fs.DurationVar(&c.Heartbeat, "heartbeat-interval", 15*time.Second, "live-update keepalive comment interval")
	fs.StringVar(&c.S3Bucket, "s3-bucket", "", "serve Markdown from this S3 bucket instead of -folder")
	fs.StringVar(&c.S3Prefix, "s3-prefix", "", "key prefix inside -s3-bucket")
	fs.StringVar(&c.LogLevel, "log-level", "info", "debug|info|warn|error")
	fs.StringVar(&c.LogFormat, "log-format", "console", "console|json|text")
	fs.StringVar(&c.StacktraceLevel, "stacktrace-level", "error", "debug|info|warn|error")
	fs.BoolVar(&c.IncludeErrorLinks, "include-error-links", true, "Include error links in log messages")
	fs.IntVar(&c.MaxErrorLinks, "max-error-links", 5, "max error chain depth (1..64)")
	fs.IntVar(&c.AdminPort, "admin-port", 0, "admin listen TCP port (0 disables)")
	fs.BoolVar(&c.EnablePprof, "enable-pprof", false, "Enable pprof profiling (on admin port only)")
	fs.BoolVar(&c.EnableTracing, "enable-tracing", false, "Enable OTLP tracing and push to otlp-endpoint")
	fs.BoolVar(&c.EnablePyroscope, "enable-pyroscope", false, "Enable pushing Pyroscope data to server set in -pyro-server")
	fs.Float64Var(&c.TraceSample, "trace-sample", 0.0, "trace sampling ratio (0..1)")
	fs.StringVar(&c.PyroServer, "pyro-server", "", "pyroscope server url to push to")
	fs.StringVar(&c.PyroTenantID, "pyro-tenant", "", "tenant (x-scope-orgid) to use for pyro-server")
	fs.StringVar(&c.OTLPEndpoint, "otlp-endpoint", "", "OTLP endpoint to push to (gRPC) (host:port)")
}

// UseS3 reports whether content comes from S3 rather than the local folder.
func (c App) UseS3() bool { return c.S3Bucket != "" }

// RendererKind is "offline" or "github".
func (c App) RendererKind() string {
	if c.Offline {
		return "offline"
	}
	return "github"
}

// FillFromEnv sets any flag not explicitly passed on the CLI from
// environment variables. Flag "foo-bar" maps to PREFIX_FOO_BAR.
// Precedence: cli flag > env var > default.
func FillFromEnv(fs *flag.FlagSet, prefix string, logf func(string, ...any)) {
	explicit := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { explicit[f.Name] = true })

	fs.VisitAll(func(f *flag.Flag) {
		key := prefix + strings.ReplaceAll(strings.ToUpper(f.Name), "-", "_")
		envVal, envSet := os.LookupEnv(key)
		if !envSet {
			return
		}
		if explicit[f.Name] {
			if logf != nil {
				logf("flag -%s: cli value %q overrides env %s=%q", f.Name, f.Value.String(), key, envVal)
			}
			return
		}
		prev := f.Value.String()
		if err := fs.Set(f.Name, envVal); err != nil {
			_ = fs.Set(f.Name, prev)
			if logf != nil {
				logf("flag -%s: ignoring invalid env %s=%q: %v", f.Name, key, envVal, err)
			}
		}
	})
}

// Validate checks that config values are within expected ranges and formats.
// Returns an error describing all invalid fields, or nil if all valid.
func Validate(c App) error {
	var errs []error

	// Listeners
	if strings.TrimSpace(c.Host) == "" {
		errs = append(errs, fmt.Errorf("HOST is required"))
	}
	if c.Port < 1 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("invalid PORT %d (must be 1..65535)", c.Port))
	}
	if c.AdminPort < 0 || c.AdminPort > 65535 {
		errs = append(errs, fmt.Errorf("invalid ADMIN_PORT %d (must be 0..65535)", c.AdminPort))
	}
	if c.AdminPort != 0 && c.AdminPort == c.Port {
		errs = append(errs, fmt.Errorf("ADMIN_PORT and PORT must differ (both %d)", c.Port))
	}
	if c.EnablePprof && c.AdminPort == 0 {
		errs = append(errs, fmt.Errorf("ENABLE_PPROF requires ADMIN_PORT"))
	}

	// Content source
	if c.UseS3() {
		if strings.HasPrefix(c.S3Prefix, "/") {
			errs = append(errs, fmt.Errorf("S3_PREFIX must not start with / (got %q)", c.S3Prefix))
		}
	} else {
		if c.S3Prefix != "" {
			errs = append(errs, fmt.Errorf("S3_PREFIX set without S3_BUCKET"))
		}
		if strings.TrimSpace(c.Folder) == "" {
			errs = append(errs, fmt.Errorf("FOLDER is required"))
		}
	}

	// Rendering
	if !c.Offline {
		if u, err := url.Parse(c.GitHubAPI); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			errs = append(errs, fmt.Errorf("GITHUB_API must be an http(s) URL (got %q)", c.GitHubAPI))
		}
		if c.GitHubRPS < 0 {
			errs = append(errs, fmt.Errorf("invalid GITHUB_RPS %.3f (must be >= 0)", c.GitHubRPS))
		}
	}
	if c.Context != "" {
		owner, repo, ok := strings.Cut(c.Context, "/")
		if !ok || owner == "" || repo == "" || strings.Contains(repo, "/") {
			errs = append(errs, fmt.Errorf("CONTEXT must be owner/repo (got %q)", c.Context))
		}
	}
	if c.RenderTimeout <= 0 {
		errs = append(errs, fmt.Errorf("invalid RENDER_TIMEOUT %s (must be > 0)", c.RenderTimeout))
	}
	if c.PollInterval < 50*time.Millisecond {
		errs = append(errs, fmt.Errorf("invalid POLL_INTERVAL %s (must be >= 50ms)", c.PollInterval))
	}
	if c.Heartbeat < time.Second {
		errs = append(errs, fmt.Errorf("invalid HEARTBEAT_INTERVAL %s (must be >= 1s)", c.Heartbeat))
	}

	// Logging
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("invalid LOG_LEVEL %q: %w", c.LogLevel, err))
	}
	if _, err := log.ParseFormat(c.LogFormat); err != nil {
		errs = append(errs, fmt.Errorf("invalid LOG_FORMAT %q: %w", c.LogFormat, err))
	}
	if c.StacktraceLevel != "" {
		if _, err := log.ParseLevel(c.StacktraceLevel); err != nil {
			errs = append(errs, fmt.Errorf("invalid STACKTRACE_LEVEL %q: %w", c.StacktraceLevel, err))
		}
	}
	if c.IncludeErrorLinks {
		if c.MaxErrorLinks < 1 || c.MaxErrorLinks > 64 {
			errs = append(errs, fmt.Errorf("MAX_ERROR_LINKS must be 1..64 (got %d)", c.MaxErrorLinks))
		}
	}

	// Tracing sample
	if c.TraceSample < 0 || c.TraceSample > 1 {
		errs = append(errs, fmt.Errorf("invalid TRACE_SAMPLE %.3f (must be 0..1)", c.TraceSample))
	}

	// Pyroscope (URL and scheme)
	if c.EnablePyroscope {
		if c.PyroServer == "" {
			errs = append(errs, fmt.Errorf("PYRO_SERVER required when ENABLE_PYROSCOPE=true"))
		} else if u, err := url.Parse(c.PyroServer); err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, fmt.Errorf("PYRO_SERVER must be a URL (got %q)", c.PyroServer))
		}
	}

	// OTLP tracing (grpc exporter wants host:port, no scheme)
	if c.EnableTracing {
		if c.OTLPEndpoint == "" {
			errs = append(errs, fmt.Errorf("OTLP_ENDPOINT required when ENABLE_TRACING=true"))
		} else if _, _, err := net.SplitHostPort(c.OTLPEndpoint); err != nil {
			errs = append(errs, fmt.Errorf("OTLP_ENDPOINT must be host:port (got %q): %v", c.OTLPEndpoint, err))
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}
