package opshttp

import (
	"net"
	"net/http"

	"github.com/keithlinneman/mdpreview/internal/log"
)

// requireNonPublicNetwork rejects callers outside loopback, RFC 1918/4193 and
// link-local ranges. The ops port exposes pprof and must never be public even
// when someone binds it to 0.0.0.0.
func requireNonPublicNetwork(L log.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		host, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			forbid(w, r, L, "malformed remote address")
			return
		}
		ip := net.ParseIP(host)
		if ip == nil {
			forbid(w, r, L, "unparseable remote address")
			return
		}
		if !ip.IsLoopback() && !ip.IsPrivate() && !ip.IsLinkLocalUnicast() {
			forbid(w, r, L, "public remote address")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func forbid(w http.ResponseWriter, r *http.Request, L log.Logger, reason string) {
	L.Warn(r.Context(), "ops request rejected",
		"reason", reason,
		"url.path", r.URL.Path,
	)
	http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
}
