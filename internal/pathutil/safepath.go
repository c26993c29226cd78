// Package pathutil turns request paths into names that stay inside a
// content root, for both the filesystem and S3 key spaces.
package pathutil

import (
	"path"
	"strings"
)

// HasDotSegments reports whether any path segment is "." or "..".
func HasDotSegments(p string) bool {
	for _, seg := range strings.Split(p, "/") {
		if seg == "." || seg == ".." {
			return true
		}
	}
	return false
}

// CleanRel strips a leading "./" or "/" and returns the slash-separated
// remainder. ok is false for empty names, dot segments, backslashes and NUL
// bytes, anything that could escape the root or confuse a backend.
func CleanRel(p string) (rel string, ok bool) {
	r := strings.TrimPrefix(p, "./")
	r = strings.TrimPrefix(r, "/")
	if r == "" || strings.ContainsAny(r, "\\\x00") || HasDotSegments(r) {
		return "", false
	}
	rel = path.Clean(r)
	if rel == "." || strings.HasPrefix(rel, "/") {
		return "", false
	}
	return rel, true
}

// JoinKey prefixes rel with an object-store prefix. Surrounding slashes on
// prefix are ignored.
func JoinKey(prefix, rel string) string {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return rel
	}
	return prefix + "/" + rel
}
