// Package httpcache implements strong ETag validators and the If-None-Match
// side of conditional GET, plus the Cache-Control policy per resource kind.
package httpcache

import (
	"net/http"
	"strings"

	"github.com/keithlinneman/mdpreview/internal/cryptoutil"
)

// Validator is a quoted hex digest suitable for the ETag header.
type Validator string

// FromDigest quotes a hex digest. Pages pass the digest of their Markdown
// source, never of the rendered HTML.
func FromDigest(hex string) Validator {
	return Validator(`"` + hex + `"`)
}

// ForPayload hashes a fixed payload such as a bundled asset.
func ForPayload(b []byte) Validator {
	return FromDigest(cryptoutil.SHA256Hex(b))
}

// Digest returns the unquoted hex digest.
func (v Validator) Digest() string {
	return strings.Trim(string(v), `"`)
}

func (v Validator) String() string { return string(v) }

// Encoded returns v tagged with a content-coding: "<hex>" becomes
// "<hex>-gzip". Weak or empty validators are returned unchanged.
func (v Validator) Encoded(coding string) Validator {
	s := string(v)
	if coding == "" || !strings.HasPrefix(s, `"`) || !strings.HasSuffix(s, `"`) || len(s) < 2 {
		return v
	}
	return Validator(s[:len(s)-1] + "-" + coding + `"`)
}

// baseTag strips W/ and any content-coding suffix added by Encoded. Digests
// are hex, so the first '-' inside the quotes starts the suffix.
func baseTag(tag string) string {
	tag = strings.TrimPrefix(strings.TrimSpace(tag), "W/")
	if len(tag) < 2 || tag[0] != '"' || tag[len(tag)-1] != '"' {
		return tag
	}
	if i := strings.IndexByte(tag, '-'); i > 0 {
		return tag[:i] + `"`
	}
	return tag
}

// Matches reports whether an If-None-Match header value selects v. The value
// may be "*", a single tag or a comma separated list. Comparison is weak, as
// RFC 9110 requires for If-None-Match, and a tag from Encoded selects the
// validator it was derived from.
func Matches(ifNoneMatch string, v Validator) bool {
	ifNoneMatch = strings.TrimSpace(ifNoneMatch)
	if ifNoneMatch == "" || v == "" {
		return false
	}
	if ifNoneMatch == "*" {
		return true
	}
	return heldTag(ifNoneMatch, v) != ""
}

// heldTag returns the If-None-Match entry that selects v, without W/.
func heldTag(ifNoneMatch string, v Validator) string {
	for _, tag := range strings.Split(ifNoneMatch, ",") {
		if cryptoutil.HashEqual(baseTag(tag), string(v)) {
			return strings.TrimPrefix(strings.TrimSpace(tag), "W/")
		}
	}
	return ""
}

// Check sets the ETag header and, when the request already holds v, writes
// a bodiless 304 and returns true. Callers must return without writing more.
func Check(w http.ResponseWriter, r *http.Request, v Validator) bool {
	h := w.Header()
	h.Set("ETag", string(v))
	if !Matches(r.Header.Get("If-None-Match"), v) {
		return false
	}
	h.Del("Content-Type")
	h.Del("Content-Length")
	w.WriteHeader(http.StatusNotModified)
	return true
}
