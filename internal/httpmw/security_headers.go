package httpmw

import "net/http"

// The preview server holds no cookies or sessions and only answers GET and
// HEAD, so there is no CSRF surface to protect.

// PreviewCSP admits the forge stylesheets and fonts the page shell links, the
// inline live-update script, and images from anywhere since rendered
// documents embed arbitrary image URLs.
const PreviewCSP = "default-src 'self'; " +
	"script-src 'self' 'unsafe-inline'; " +
	"style-src 'self' 'unsafe-inline' https://github.githubassets.com; " +
	"img-src 'self' data: https: http:; " +
	"font-src 'self' https://github.githubassets.com; " +
	"connect-src 'self'; " +
	"base-uri 'self'; form-action 'self'; frame-ancestors 'none'; object-src 'none'"

// previewHeaders is applied to every response. There is no HSTS because the
// server usually listens on loopback over plain http, and no COEP because the
// forge stylesheets are cross-origin without CORP.
var previewHeaders = [...][2]string{
	{"Content-Security-Policy", PreviewCSP},
	{"X-Content-Type-Options", "nosniff"},
	{"X-Frame-Options", "DENY"},
	{"Referrer-Policy", "strict-origin-when-cross-origin"},
	{"Permissions-Policy", "accelerometer=(), camera=(), geolocation=(), gyroscope=(), magnetometer=(), microphone=(), payment=(), usb=()"},
	{"X-Permitted-Cross-Domain-Policies", "none"},
	{"Cross-Origin-Opener-Policy", "same-origin"},
	{"Cross-Origin-Resource-Policy", "same-origin"},
}

// SecurityHeaders sets the preview header set before the handler runs, so
// error pages and streams carry it too.
func SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		for _, kv := range previewHeaders {
			h.Set(kv[0], kv[1])
		}
		next.ServeHTTP(w, r)
	})
}
