// Package httpmw provides HTTP middleware for the preview server.
//
// httpserver.NewHandler composes them, outermost first: security headers,
// panic recovery, request ID, OTEL tracing, preview backend headers, trace
// response headers, metrics, request-scoped logging, then the chi router with
// compression, route annotation, access log and body limit.
//
// Wrapped response writers implement Flush and Unwrap so the live-update
// stream can flush events and clear its write deadline through the whole
// chain. User-supplied data (query strings, host, headers) stays out of log
// fields.
package httpmw
